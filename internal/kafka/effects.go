package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// EffectWriter publishes outbound effects for the chat gateway.
type EffectWriter struct {
	writer messageWriter
}

func NewEffectWriter(brokers []string, topic string) *EffectWriter {
	return &EffectWriter{writer: newWriter(brokers, topic)}
}

// Publish пишет payload как JSON; key определяет партицию.
func (w *EffectWriter) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka: marshal effect: %w", err)
	}
	return w.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body})
}

func (w *EffectWriter) Close() error {
	return w.writer.Close()
}
