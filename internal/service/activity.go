package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
)

// ActivityLog пишет журнал действий пользователей (только добавление).
type ActivityLog struct {
	log *store.Collection[model.Activity]
	now func() time.Time
}

func NewActivityLog(log *store.Collection[model.Activity]) *ActivityLog {
	return &ActivityLog{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends "label" or "label:detail". Failures are only logged.
func (a *ActivityLog) Record(ctx context.Context, userID int64, label, detail string) {
	if a == nil {
		return
	}
	action := label
	if detail != "" {
		action = label + ":" + detail
	}
	err := a.log.Mutate(ctx, func(tx *store.Tx[model.Activity]) error {
		tx.Records = append(tx.Records, model.Activity{
			ID:        tx.NextID(),
			UserID:    userID,
			Action:    action,
			Timestamp: a.now(),
		})
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "activity: record failed", "action", action, "error", err)
	}
}

// CountPrefix counts entries whose action is label or starts with "label:".
func (a *ActivityLog) CountPrefix(ctx context.Context, label string) (int, error) {
	all, err := a.log.Load(ctx)
	n := 0
	for _, e := range all {
		if e.Action == label || strings.HasPrefix(e.Action, label+":") {
			n++
		}
	}
	return n, err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
