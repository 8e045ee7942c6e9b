package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-bot/internal/application"
)

var republishTicketsCmd = &cobra.Command{
	Use:   "republish-tickets",
	Short: "Re-emit every ticket as a ticket.updated event to Kafka",
	RunE:  runRepublishTickets,
}

func init() {
	rootCmd.AddCommand(republishTicketsCmd)
}

func runRepublishTickets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	core, err := application.NewCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer core.Close()
	if !core.Events.Enabled() {
		return errors.New("republish-tickets: KAFKA_BROKERS and KAFKA_TOPIC_TICKET are required")
	}

	n, err := core.Tickets.Republish(ctx)
	if err != nil {
		return fmt.Errorf("republish-tickets: %w", err)
	}
	slog.Info("republish-tickets: done", "events", n, "topic", cfg.KafkaTopicTicket)
	return nil
}
