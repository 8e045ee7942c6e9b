package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// TicketEventProducer — интерфейс для отправки событий тикета в Kafka (для подмены моком в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{})
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer пишет события тикетов в топик Kafka (best-effort, не блокирует диалог).
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer создаёт продюсер. Без brokers или topic методы ничего не делают.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic:  topic,
		writer: newWriter(brokers, topic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *Producer) Enabled() bool { return p.writer != nil }

// ProduceTicketEvent отправляет событие тикета в топик. Ключ ticket_id сохраняет порядок событий одной заявки.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg, err := ticketEventMessage(event, payload)
	if err != nil {
		slog.ErrorContext(ctx, "kafka: marshal ticket event", "event", event, "error", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "kafka: write ticket event", "event", event, "topic", p.topic, "error", err)
	}
}

func ticketEventMessage(event string, payload map[string]interface{}) (kafka.Message, error) {
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	var key []byte
	if id, ok := payload["ticket_id"]; ok {
		key, _ = json.Marshal(id)
	}
	return kafka.Message{
		Key:     key,
		Value:   body,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event)}},
	}, nil
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
