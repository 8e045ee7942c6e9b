// Package notify delivers notifications to admins and ticket owners.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

type Notifier struct {
	sender transport.Sender
	admins []int64
}

func NewNotifier(sender transport.Sender, admins []int64) *Notifier {
	return &Notifier{sender: sender, admins: admins}
}

// NotifyAdmins sends text to every admin independently. A failed delivery is
// logged and the rest still get theirs. Returns how many were delivered.
func (n *Notifier) NotifyAdmins(ctx context.Context, text string, buttons ...[]transport.Button) int {
	delivered := 0
	for _, adminID := range n.admins {
		e := transport.Send(adminID, text)
		if len(buttons) > 0 {
			e = e.WithButtons(buttons...)
		}
		if err := n.sender.Deliver(ctx, e); err != nil {
			slog.ErrorContext(ctx, "notify: admin delivery failed", "admin_id", adminID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// NotifyUser sends a single message. The error goes back to the caller so the
// admin learns the reply did not land.
func (n *Notifier) NotifyUser(ctx context.Context, userID int64, text string) error {
	if err := n.sender.Deliver(ctx, transport.Send(userID, text)); err != nil {
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})
		slog.ErrorContext(ctx, "notify: user delivery failed", "error", err)
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	return nil
}
