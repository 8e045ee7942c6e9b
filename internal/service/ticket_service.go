package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/kafka"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
)

const (
	EventTicketCreated = "ticket.created"
	EventTicketUpdated = "ticket.updated"
)

// TicketServicer — то, что нужно роутеру и HTTP-обработчикам (подменяется в тестах).
type TicketServicer interface {
	Create(ctx context.Context, in NewTicket) (*model.Ticket, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Ticket, error)
	ListAll(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error)
	GetByID(ctx context.Context, id int64) (*model.Ticket, error)
	SetStatus(ctx context.Context, id int64, status model.TicketStatus, change StatusChange) (*model.Ticket, error)
	Claim(ctx context.Context, id, adminID int64) (*model.Ticket, error)
	Close(ctx context.Context, id, adminID int64) (*model.Ticket, error)
	Respond(ctx context.Context, id, adminID int64, text string) (*model.Ticket, error)
	Cancel(ctx context.Context, id, userID int64) (*model.Ticket, error)
	Counts(ctx context.Context) (TicketCounts, error)
}

type NewTicket struct {
	UserID    int64
	Username  string
	FirstName string
	Question  string
}

// StatusChange carries the optional fields applied together with a status.
type StatusChange struct {
	AdminID  *int64
	Response *string
}

type TicketCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
	Cancelled  int `json:"cancelled"`
}

type TicketService struct {
	tickets  *store.Collection[model.Ticket]
	activity *ActivityLog
	events   kafka.TicketEventProducer
	now      func() time.Time
}

func NewTicketService(tickets *store.Collection[model.Ticket], activity *ActivityLog, events kafka.TicketEventProducer) *TicketService {
	return &TicketService{tickets: tickets, activity: activity, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// ValidateQuestion checks the minimum length in characters, ignoring surrounding spaces.
func ValidateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if utf8.RuneCountInString(q) < model.MinQuestionLength {
		return q, errs.ErrQuestionTooShort
	}
	return q, nil
}

func (s *TicketService) Create(ctx context.Context, in NewTicket) (*model.Ticket, error) {
	if _, err := ValidateQuestion(in.Question); err != nil {
		return nil, err
	}
	var created model.Ticket
	err := s.tickets.Mutate(ctx, func(tx *store.Tx[model.Ticket]) error {
		now := s.now()
		created = model.Ticket{
			ID:        tx.NextID(),
			UserID:    in.UserID,
			Username:  orUnknown(in.Username),
			FirstName: orUnknown(in.FirstName),
			Question:  in.Question,
			Status:    model.TicketStatusOpen,
			CreatedAt: now,
			UpdatedAt: now,
		}
		tx.Records = append(tx.Records, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(created.ID)})
	slog.InfoContext(ctx, "ticket: created", "question", logger.Truncate(created.Question, 80))

	s.activity.Record(ctx, created.UserID, model.ActionTicketCreated, formatID(created.ID))
	s.emit(ctx, EventTicketCreated, &created)
	return &created, nil
}

// ListForUser возвращает заявки пользователя, новые сверху.
func (s *TicketService) ListForUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	all, err := s.tickets.Load(ctx)
	out := make([]model.Ticket, 0, len(all))
	for _, t := range all {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	return out, err
}

// ListAll returns every ticket, or only those with status when it is set.
func (s *TicketService) ListAll(ctx context.Context, status model.TicketStatus) ([]model.Ticket, error) {
	all, err := s.tickets.Load(ctx)
	out := make([]model.Ticket, 0, len(all))
	for _, t := range all {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	return out, err
}

func (s *TicketService) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	all, err := s.tickets.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, errs.ErrTicketNotFound
}

// SetStatus applies status and the optional change fields and re-stamps UpdatedAt.
// A missing ticket is a silent no-op: (nil, nil). A transition CanTransition
// forbids returns errs.ErrInvalidTransition and nothing is written.
func (s *TicketService) SetStatus(ctx context.Context, id int64, status model.TicketStatus, change StatusChange) (*model.Ticket, error) {
	var updated *model.Ticket
	err := s.tickets.Mutate(ctx, func(tx *store.Tx[model.Ticket]) error {
		i := tx.Find(id)
		if i < 0 {
			return store.ErrSkip
		}
		t := &tx.Records[i]
		if !model.CanTransition(t.Status, status) {
			return errs.ErrInvalidTransition
		}
		t.Status = status
		t.UpdatedAt = s.now()
		if change.AdminID != nil {
			t.AdminID = logger.Ptr(*change.AdminID)
		}
		if change.Response != nil {
			t.AdminResponse = logger.Ptr(*change.Response)
		}
		cp := *t
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		slog.DebugContext(ctx, "ticket: set status on missing ticket ignored", "ticket_id", id, "status", status)
		return nil, nil
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
	slog.InfoContext(ctx, "ticket: status changed", "status", status)
	s.emit(ctx, EventTicketUpdated, updated)
	return updated, nil
}

// Claim: open → in_progress.
func (s *TicketService) Claim(ctx context.Context, id, adminID int64) (*model.Ticket, error) {
	return s.SetStatus(ctx, id, model.TicketStatusInProgress, StatusChange{AdminID: &adminID})
}

func (s *TicketService) Close(ctx context.Context, id, adminID int64) (*model.Ticket, error) {
	return s.SetStatus(ctx, id, model.TicketStatusClosed, StatusChange{AdminID: &adminID})
}

// Respond records the admin's answer. Answering closes the ticket, also a finished one.
func (s *TicketService) Respond(ctx context.Context, id, adminID int64, text string) (*model.Ticket, error) {
	return s.SetStatus(ctx, id, model.TicketStatusClosed, StatusChange{AdminID: &adminID, Response: &text})
}

// Cancel lets the owner withdraw an open ticket.
func (s *TicketService) Cancel(ctx context.Context, id, userID int64) (*model.Ticket, error) {
	var updated model.Ticket
	err := s.tickets.Mutate(ctx, func(tx *store.Tx[model.Ticket]) error {
		i := tx.Find(id)
		if i < 0 {
			return errs.ErrTicketNotFound
		}
		t := &tx.Records[i]
		if t.UserID != userID {
			return errs.ErrForbidden
		}
		if !model.CanTransition(t.Status, model.TicketStatusCancelled) {
			return errs.ErrInvalidTransition
		}
		t.Status = model.TicketStatusCancelled
		t.UpdatedAt = s.now()
		updated = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
	slog.InfoContext(ctx, "ticket: cancelled by owner")
	s.activity.Record(ctx, userID, model.ActionTicketCanceled, formatID(id))
	s.emit(ctx, EventTicketUpdated, &updated)
	return &updated, nil
}

func (s *TicketService) Counts(ctx context.Context) (TicketCounts, error) {
	all, err := s.tickets.Load(ctx)
	var c TicketCounts
	for _, t := range all {
		c.Total++
		switch t.Status {
		case model.TicketStatusOpen:
			c.Open++
		case model.TicketStatusInProgress:
			c.InProgress++
		case model.TicketStatusClosed:
			c.Closed++
		case model.TicketStatusCancelled:
			c.Cancelled++
		}
	}
	return c, err
}

// Republish re-emits every ticket as ticket.updated. Returns how many were sent.
func (s *TicketService) Republish(ctx context.Context) (int, error) {
	all, err := s.tickets.Load(ctx)
	if err != nil {
		return 0, err
	}
	for i := range all {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		s.emit(ctx, EventTicketUpdated, &all[i])
	}
	return len(all), nil
}

func (s *TicketService) emit(ctx context.Context, event string, t *model.Ticket) {
	if s.events == nil {
		return
	}
	s.events.ProduceTicketEvent(ctx, event, TicketEventPayload(t))
}

// TicketEventPayload — поля события тикета для Kafka.
func TicketEventPayload(t *model.Ticket) map[string]interface{} {
	payload := map[string]interface{}{
		"ticket_id":  t.ID,
		"user_id":    t.UserID,
		"username":   t.Username,
		"first_name": t.FirstName,
		"question":   t.Question,
		"status":     string(t.Status),
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
	if t.AdminID != nil {
		payload["admin_id"] = *t.AdminID
	}
	if t.AdminResponse != nil {
		payload["admin_response"] = *t.AdminResponse
	}
	return payload
}

func sortNewestFirst(tickets []model.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.UnknownName
	}
	return s
}
