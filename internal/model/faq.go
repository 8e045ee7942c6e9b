package model

import "time"

const DefaultCategory = "general"

type FAQEntry struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Category   string    `json:"category"`
	UsageCount int64     `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f FAQEntry) RecordID() int64 { return f.ID }

// FAQField names an editable FAQ field.
type FAQField string

const (
	FAQFieldQuestion FAQField = "question"
	FAQFieldAnswer   FAQField = "answer"
	FAQFieldCategory FAQField = "category"
)

func (f FAQField) Valid() bool {
	return f == FAQFieldQuestion || f == FAQFieldAnswer || f == FAQFieldCategory
}
