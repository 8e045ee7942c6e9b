package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Sender delivers one effect. An error means the recipient did not get it.
type Sender interface {
	Deliver(ctx context.Context, e Effect) error
}

// Publisher is satisfied by the kafka and rabbitmq sinks.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// LogSender only logs effects. Used when no outbox is configured.
type LogSender struct{}

func (LogSender) Deliver(ctx context.Context, e Effect) error {
	slog.InfoContext(ctx, "effect", "id", e.ID, "kind", e.Kind, "chat_id", e.ChatID,
		"message_id", e.MessageID, "text", e.Text, "buttons", len(e.Buttons))
	return nil
}

// Outbox publishes effects for the gateway to perform.
type Outbox struct {
	pub Publisher
}

func NewOutbox(pub Publisher) *Outbox {
	return &Outbox{pub: pub}
}

// Deliver publishes e keyed by chat, so one chat's effects stay in order on a partition.
func (o *Outbox) Deliver(ctx context.Context, e Effect) error {
	if err := o.pub.Publish(ctx, EffectKey(e), e); err != nil {
		return fmt.Errorf("outbox: publish %s: %w", e.Kind, err)
	}
	return nil
}

func EffectKey(e Effect) string {
	if e.ChatID != 0 {
		return strconv.FormatInt(e.ChatID, 10)
	}
	return "callback." + e.CallbackID
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, e Effect) error

func (f SenderFunc) Deliver(ctx context.Context, e Effect) error { return f(ctx, e) }
