package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/psds-microservice/helpdesk-bot/internal/config"
)

// Setup installs the process-wide slog logger: JSON in production, text otherwise.
func Setup(cfg *config.Config) {
	slog.SetDefault(New(os.Stdout, cfg.IsProduction(), ParseLevel(cfg.LogLevel)))
}

func New(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewFieldsHandler(h))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FieldsHandler adds the context LogFields to each record.
type FieldsHandler struct {
	slog.Handler
}

func NewFieldsHandler(h slog.Handler) *FieldsHandler {
	return &FieldsHandler{Handler: h}
}

func (h *FieldsHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := GetLogFields(ctx)
	if fields.UserID != nil {
		r.AddAttrs(slog.Int64("user_id", *fields.UserID))
	}
	if fields.TicketID != nil {
		r.AddAttrs(slog.Int64("ticket_id", *fields.TicketID))
	}
	if fields.FAQID != nil {
		r.AddAttrs(slog.Int64("faq_id", *fields.FAQID))
	}
	if fields.UpdateID != "" {
		r.AddAttrs(slog.String("update_id", fields.UpdateID))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *FieldsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FieldsHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *FieldsHandler) WithGroup(name string) slog.Handler {
	return &FieldsHandler{Handler: h.Handler.WithGroup(name)}
}
