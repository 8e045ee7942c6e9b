package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// UpdateReader consumes inbound updates published by the chat gateway.
type UpdateReader struct {
	reader messageReader
	topic  string
}

func NewUpdateReader(brokers []string, topic, groupID string) *UpdateReader {
	return &UpdateReader{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

// Run fetches updates until ctx is done. Each message is committed after handle
// returns; malformed messages are logged and committed so they never block the topic.
func (r *UpdateReader) Run(ctx context.Context, handle func(ctx context.Context, u transport.Update) error) error {
	slog.InfoContext(ctx, "kafka: consuming updates", "topic", r.topic)
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: fetch update: %w", err)
		}
		u, err := DecodeUpdate(msg)
		if err != nil {
			slog.WarnContext(ctx, "kafka: drop malformed update", "offset", msg.Offset, "partition", msg.Partition, "error", err)
		} else if err := handle(ctx, u); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.ErrorContext(ctx, "kafka: handle update", "update_id", u.ID, "error", err)
		}
		if err := r.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "kafka: commit update", "offset", msg.Offset, "error", err)
		}
	}
}

func (r *UpdateReader) Close() error {
	return r.reader.Close()
}

func DecodeUpdate(msg kafka.Message) (transport.Update, error) {
	var u transport.Update
	if err := json.Unmarshal(msg.Value, &u); err != nil {
		return transport.Update{}, fmt.Errorf("decode update: %w", err)
	}
	if err := u.Normalize(); err != nil {
		return transport.Update{}, err
	}
	return u, nil
}
