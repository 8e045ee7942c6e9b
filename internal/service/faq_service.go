package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
)

type FAQServicer interface {
	List(ctx context.Context, category string) ([]model.FAQEntry, error)
	GetByID(ctx context.Context, id int64) (*model.FAQEntry, error)
	Add(ctx context.Context, question, answer, category string) (*model.FAQEntry, error)
	Update(ctx context.Context, id int64, patch FAQPatch) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	IncrementUsage(ctx context.Context, id int64) error
}

// FAQPatch: nil fields are left unchanged.
type FAQPatch struct {
	Question *string
	Answer   *string
	Category *string
}

// PatchField builds a patch that sets a single field.
func PatchField(field model.FAQField, value string) FAQPatch {
	switch field {
	case model.FAQFieldQuestion:
		return FAQPatch{Question: &value}
	case model.FAQFieldAnswer:
		return FAQPatch{Answer: &value}
	case model.FAQFieldCategory:
		return FAQPatch{Category: &value}
	}
	return FAQPatch{}
}

type FAQService struct {
	faq *store.Collection[model.FAQEntry]
	now func() time.Time
}

func NewFAQService(faq *store.Collection[model.FAQEntry]) *FAQService {
	return &FAQService{faq: faq, now: func() time.Time { return time.Now().UTC() }}
}

// List returns entries of category (all when empty), most used first.
func (s *FAQService) List(ctx context.Context, category string) ([]model.FAQEntry, error) {
	all, err := s.faq.Load(ctx)
	out := make([]model.FAQEntry, 0, len(all))
	for _, e := range all {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (s *FAQService) GetByID(ctx context.Context, id int64) (*model.FAQEntry, error) {
	all, err := s.faq.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, errs.ErrFAQNotFound
}

func (s *FAQService) Add(ctx context.Context, question, answer, category string) (*model.FAQEntry, error) {
	question, answer = strings.TrimSpace(question), strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, errs.ErrEmptyField
	}
	var created model.FAQEntry
	err := s.faq.Mutate(ctx, func(tx *store.Tx[model.FAQEntry]) error {
		created = model.FAQEntry{
			ID:        tx.NextID(),
			Question:  question,
			Answer:    answer,
			Category:  NormalizeCategory(category),
			CreatedAt: s.now(),
		}
		tx.Records = append(tx.Records, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(created.ID)}),
		"faq: added", "category", created.Category)
	return &created, nil
}

// Update reports whether the entry existed.
func (s *FAQService) Update(ctx context.Context, id int64, patch FAQPatch) (bool, error) {
	if patch.Question != nil && strings.TrimSpace(*patch.Question) == "" {
		return false, errs.ErrEmptyField
	}
	if patch.Answer != nil && strings.TrimSpace(*patch.Answer) == "" {
		return false, errs.ErrEmptyField
	}
	found := false
	err := s.faq.Mutate(ctx, func(tx *store.Tx[model.FAQEntry]) error {
		i := tx.Find(id)
		if i < 0 {
			return store.ErrSkip
		}
		e := &tx.Records[i]
		if patch.Question != nil {
			e.Question = strings.TrimSpace(*patch.Question)
		}
		if patch.Answer != nil {
			e.Answer = strings.TrimSpace(*patch.Answer)
		}
		if patch.Category != nil {
			e.Category = NormalizeCategory(*patch.Category)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Delete removes the entry for good and reports whether it existed.
func (s *FAQService) Delete(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.faq.Mutate(ctx, func(tx *store.Tx[model.FAQEntry]) error {
		i := tx.Find(id)
		if i < 0 {
			return store.ErrSkip
		}
		tx.Records = append(tx.Records[:i], tx.Records[i+1:]...)
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if found {
		slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(id)}), "faq: deleted")
	}
	return found, nil
}

func (s *FAQService) IncrementUsage(ctx context.Context, id int64) error {
	return s.faq.Mutate(ctx, func(tx *store.Tx[model.FAQEntry]) error {
		i := tx.Find(id)
		if i < 0 {
			return store.ErrSkip
		}
		tx.Records[i].UsageCount++
		return nil
	})
}

// NormalizeCategory trims the category; empty means "general".
func NormalizeCategory(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return model.DefaultCategory
}
