package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to a context and added to every record logged with it.
// Newer non-zero values win when contexts are enriched more than once.
type LogFields struct {
	UserID    *int64
	TicketID  *int64
	FAQID     *int64
	UpdateID  string
	Component string
}

func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing
	if next.UserID != nil {
		result.UserID = next.UserID
	}
	if next.TicketID != nil {
		result.TicketID = next.TicketID
	}
	if next.FAQID != nil {
		result.FAQID = next.FAQID
	}
	if next.UpdateID != "" {
		result.UpdateID = next.UpdateID
	}
	if next.Component != "" {
		result.Component = next.Component
	}
	return result
}

// Ptr: logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
