package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/helpdesk-bot/internal/model"
)

// ActivityCounter — агрегаты журнала действий.
type ActivityCounter interface {
	CountPrefix(ctx context.Context, label string) (int, error)
}

type Stats struct {
	Tickets        TicketCounts `json:"tickets"`
	FAQEntries     int          `json:"faq_entries"`
	FAQViews       int64        `json:"faq_views"`
	TicketsCreated int          `json:"tickets_created"`
	FAQAnswered    int          `json:"faq_answered"`
}

// CollectStats gathers what it can. Every part that failed to load is
// counted as zero and its error is joined into the result.
func CollectStats(ctx context.Context, tickets TicketServicer, faq FAQServicer, activity ActivityCounter) (Stats, error) {
	var s Stats
	var errList []error

	counts, err := tickets.Counts(ctx)
	s.Tickets = counts
	errList = append(errList, err)

	items, err := faq.List(ctx, "")
	errList = append(errList, err)
	s.FAQEntries = len(items)
	for _, e := range items {
		s.FAQViews += e.UsageCount
	}

	s.TicketsCreated, err = activity.CountPrefix(ctx, model.ActionTicketCreated)
	errList = append(errList, err)
	s.FAQAnswered, err = activity.CountPrefix(ctx, model.ActionFAQUsed)
	errList = append(errList, err)

	return s, errors.Join(errList...)
}
