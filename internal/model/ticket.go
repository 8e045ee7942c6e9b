package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// MinQuestionLength: минимальная длина вопроса в символах (после обрезки пробелов).
const MinQuestionLength = 10

// UnknownName заменяет отсутствующие username/first name.
const UnknownName = "Unknown"

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the ticket can no longer be claimed.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// CanTransition: open→in_progress, open→cancelled, any→closed. Nothing returns to open.
// closed→closed is allowed so an admin can overwrite the response on a finished ticket.
func CanTransition(from, to TicketStatus) bool {
	switch to {
	case TicketStatusInProgress, TicketStatusCancelled:
		return from == TicketStatusOpen
	case TicketStatusClosed:
		return from.Valid()
	}
	return false
}

type Ticket struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	Username      string       `json:"username"`
	FirstName     string       `json:"first_name"`
	Question      string       `json:"question"`
	Status        TicketStatus `json:"status"`
	AdminID       *int64       `json:"admin_id"`
	AdminResponse *string      `json:"admin_response"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Ticket) RecordID() int64 { return t.ID }
