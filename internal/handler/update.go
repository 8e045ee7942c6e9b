package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/psds-microservice/helpdesk-bot/internal/dispatch"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

// Submitter queues an update for processing (dispatch.Dispatcher).
type Submitter interface {
	Submit(ctx context.Context, u transport.Update) error
}

type UpdateHandler struct {
	queue Submitter
}

func NewUpdateHandler(queue Submitter) *UpdateHandler {
	return &UpdateHandler{queue: queue}
}

// Receive accepts one update from the chat gateway. Processing is
// asynchronous; replies go out through the outbox.
func (h *UpdateHandler) Receive(c *gin.Context) {
	var u transport.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UpdateID: u.ID, Component: "http"})

	err := h.queue.Submit(ctx, u)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"update_id": u.ID})
	case errors.Is(err, transport.ErrNoSender):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dispatch.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
	default:
		slog.WarnContext(ctx, "http: submit update", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "update not queued"})
	}
}
