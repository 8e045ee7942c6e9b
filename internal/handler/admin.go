package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards the admin API. An empty key disables the check.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AdminHandler — read-only доступ к заявкам, FAQ и статистике.
type AdminHandler struct {
	tickets  service.TicketServicer
	faq      service.FAQServicer
	activity service.ActivityCounter
}

func NewAdminHandler(tickets service.TicketServicer, faq service.FAQServicer, activity service.ActivityCounter) *AdminHandler {
	return &AdminHandler{tickets: tickets, faq: faq, activity: activity}
}

func (h *AdminHandler) ListTickets(c *gin.Context) {
	status := model.TicketStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	items, err := h.tickets.ListAll(c.Request.Context(), status)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "http: list tickets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tickets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   len(items),
	})
}

func (h *AdminHandler) GetTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	t, err := h.tickets.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrTicketNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) ListFAQ(c *gin.Context) {
	items, err := h.faq.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "http: list faq", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list faq"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"faq":   items,
		"total": len(items),
	})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := service.CollectStats(c.Request.Context(), h.tickets, h.faq, h.activity)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "http: collect stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats"})
		return
	}
	c.JSON(http.StatusOK, st)
}
