// Package session holds the per-user pending flow. A session has at most one flow;
// starting a flow always builds a fresh record, so scratch fields of an abandoned
// flow never leak into the next one.
package session

import (
	"context"

	"github.com/psds-microservice/helpdesk-bot/internal/model"
)

type Flow string

const (
	FlowNone           Flow = ""
	FlowAwaitingTicket Flow = "awaiting_ticket_text"
	FlowAddingFAQ      Flow = "adding_faq"
	FlowEditingFAQ     Flow = "editing_faq_field"
	FlowResponding     Flow = "responding_to_ticket"
)

// FAQStage — шаг добавления FAQ: вопрос → ответ → категория.
type FAQStage string

const (
	StageQuestion FAQStage = "question"
	StageAnswer   FAQStage = "answer"
	StageCategory FAQStage = "category"
)

type Session struct {
	Flow Flow `json:"flow,omitempty"`

	FAQStage    FAQStage `json:"faq_stage,omitempty"`
	FAQQuestion string   `json:"faq_question,omitempty"`
	FAQAnswer   string   `json:"faq_answer,omitempty"`

	FAQID    int64          `json:"faq_id,omitempty"`
	FAQField model.FAQField `json:"faq_field,omitempty"`

	TicketID int64 `json:"ticket_id,omitempty"`
}

func (s Session) Active() bool { return s.Flow != FlowNone }

func AwaitingTicket() Session {
	return Session{Flow: FlowAwaitingTicket}
}

func AddingFAQ() Session {
	return Session{Flow: FlowAddingFAQ, FAQStage: StageQuestion}
}

// WithFAQQuestion moves the adding flow to the answer stage.
func (s Session) WithFAQQuestion(q string) Session {
	return Session{Flow: FlowAddingFAQ, FAQStage: StageAnswer, FAQQuestion: q}
}

func (s Session) WithFAQAnswer(a string) Session {
	return Session{Flow: FlowAddingFAQ, FAQStage: StageCategory, FAQQuestion: s.FAQQuestion, FAQAnswer: a}
}

func EditingFAQ(id int64, field model.FAQField) Session {
	return Session{Flow: FlowEditingFAQ, FAQID: id, FAQField: field}
}

func Responding(ticketID int64) Session {
	return Session{Flow: FlowResponding, TicketID: ticketID}
}

// Store maps a user to their session. Put replaces the whole record;
// putting an inactive session is the same as Clear.
type Store interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Put(ctx context.Context, userID int64, s Session) error
	Clear(ctx context.Context, userID int64) error
}
