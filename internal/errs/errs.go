// Package errs содержит доменные ошибки, общие для сервисов и обработчиков.
package errs

import "errors"

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrFAQNotFound       = errors.New("faq entry not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	ErrQuestionTooShort  = errors.New("question is too short")
	ErrEmptyField        = errors.New("field must not be empty")
	ErrForbidden         = errors.New("access denied")
)
