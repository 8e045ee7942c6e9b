package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-bot/internal/application"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print ticket, FAQ and activity counters as JSON",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	core, err := application.NewCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer core.Close()

	st, err := service.CollectStats(ctx, core.Tickets, core.FAQ, core.Activity)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
