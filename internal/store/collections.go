package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/psds-microservice/helpdesk-bot/internal/model"
)

const (
	TicketsCollection  = "tickets"
	FAQCollection      = "faq"
	ActivityCollection = "stats"
)

type Store struct {
	Tickets  *Collection[model.Ticket]
	FAQ      *Collection[model.FAQEntry]
	Activity *Collection[model.Activity]
}

func New(backend Backend) *Store {
	return &Store{
		Tickets:  NewCollection[model.Ticket](TicketsCollection, backend),
		FAQ:      NewCollection[model.FAQEntry](FAQCollection, backend),
		Activity: NewCollection[model.Activity](ActivityCollection, backend),
	}
}

// Init creates the tickets and activity collections when absent and seeds the
// FAQ with the default entries when it is absent or empty. An unreadable
// collection is logged and left as it is; only write failures stop Init.
func (s *Store) Init(ctx context.Context) error {
	if err := ensure(ctx, s.Tickets); err != nil {
		return err
	}
	if err := ensure(ctx, s.Activity); err != nil {
		return err
	}
	seeded := false
	err := s.FAQ.Mutate(ctx, func(tx *Tx[model.FAQEntry]) error {
		if len(tx.Records) > 0 {
			return ErrSkip
		}
		now := time.Now().UTC()
		for _, d := range DefaultFAQ() {
			d.ID = tx.NextID()
			d.CreatedAt = now
			tx.Records = append(tx.Records, d)
		}
		seeded = true
		return nil
	})
	if errors.Is(err, ErrUnreadable) {
		slog.WarnContext(ctx, "store: faq unreadable, seeding skipped", "error", err)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "seed faq")
	}
	if seeded {
		slog.InfoContext(ctx, "store: seeded default faq", "entries", len(DefaultFAQ()))
	}
	return nil
}

func ensure[T Record](ctx context.Context, c *Collection[T]) error {
	created := false
	err := c.Mutate(ctx, func(tx *Tx[T]) error {
		if tx.Exists {
			return ErrSkip
		}
		created = true
		return nil
	})
	if errors.Is(err, ErrUnreadable) {
		// файл не трогаем: чтение вернёт пустой список, запись откажет
		slog.WarnContext(ctx, "store: collection unreadable, left as is", "collection", c.Name(), "error", err)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "ensure %s", c.Name())
	}
	if created {
		slog.InfoContext(ctx, "store: created collection", "collection", c.Name())
	}
	return nil
}

// DefaultFAQ: стартовый набор записей для пустого FAQ.
func DefaultFAQ() []model.FAQEntry {
	return []model.FAQEntry{
		{
			Question: "How do I contact support?",
			Answer:   "Create a ticket right here: send /new or press \"Create ticket\".",
			Category: model.DefaultCategory,
		},
		{
			Question: "How long does it take to get an answer?",
			Answer:   "We usually reply within 1-2 business hours. Outside working hours it can take up to 24 hours.",
			Category: model.DefaultCategory,
		},
		{
			Question: "How do I cancel a ticket?",
			Answer:   "Open \"My tickets\" and press the cancel button next to an open ticket. Send /cancel to abort a message you are typing.",
			Category: model.DefaultCategory,
		},
		{
			Question: "Where can I see the status of my ticket?",
			Answer:   "Send /my_tickets to see all of your tickets and their statuses.",
			Category: model.DefaultCategory,
		},
	}
}
