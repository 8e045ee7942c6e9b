package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-bot/internal/application"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the HTTP API and the update dispatcher",
	RunE:  runAPI,
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.NewAPI(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
