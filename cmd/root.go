package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-bot/internal/config"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "helpdesk-bot",
	Short: "Support desk chat bot: tickets, FAQ and admin triage",
	RunE:  runAPI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig читает окружение, проверяет его и настраивает логгер.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Setup(cfg)
	return cfg, nil
}
