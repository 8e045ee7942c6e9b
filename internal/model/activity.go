package model

import "time"

// Activity: запись журнала действий. Только добавляется, используется для агрегатов.
type Activity struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func (a Activity) RecordID() int64 { return a.ID }

const (
	ActionStart          = "start"
	ActionHelp           = "help"
	ActionFAQViewed      = "faq_viewed"
	ActionFAQUsed        = "faq_used"
	ActionFAQHelpful     = "faq_helpful"
	ActionFAQNotHelpful  = "faq_not_helpful"
	ActionTicketCreated  = "ticket_created"
	ActionTicketCanceled = "ticket_cancelled"
	ActionTicketsViewed  = "tickets_viewed"
	ActionAdminPanel     = "admin_panel"
)
