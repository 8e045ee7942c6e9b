package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Button actions. Payloads look like "action" or "action:id".
const (
	ActFAQList        = "faq.list"
	ActFAQView        = "faq.view"
	ActFAQHelpful     = "faq.helpful"
	ActFAQNotHelpful  = "faq.not_helpful"
	ActTicketNew      = "ticket.new"
	ActTicketCancel   = "ticket.cancel"
	ActAdminHome      = "admin.home"
	ActAdminAll       = "admin.tickets.all"
	ActAdminOpen      = "admin.tickets.open"
	ActAdminStats     = "admin.stats"
	ActAdminFAQ       = "admin.faq"
	ActAdminFAQList   = "admin.faq.list"
	ActAdminFAQAdd    = "admin.faq.add"
	ActAdminFAQView   = "admin.faq.view"
	ActAdminFAQEditQ  = "admin.faq.edit.question"
	ActAdminFAQEditA  = "admin.faq.edit.answer"
	ActAdminFAQEditC  = "admin.faq.edit.category"
	ActAdminFAQDelete = "admin.faq.delete"
	ActAdminTicket    = "admin.ticket"
	ActAdminClaim     = "admin.ticket.claim"
	ActAdminClose     = "admin.ticket.close"
	ActAdminRespond   = "admin.ticket.respond"
)

var ErrBadPayload = errors.New("malformed button payload")

type Payload struct {
	Action string
	ID     int64
}

func (p Payload) String() string {
	if p.ID == 0 {
		return p.Action
	}
	return p.Action + ":" + strconv.FormatInt(p.ID, 10)
}

// Data builds a payload string: Data(ActFAQView, 3) == "faq.view:3".
func Data(action string, id ...int64) string {
	p := Payload{Action: action}
	if len(id) > 0 {
		p.ID = id[0]
	}
	return p.String()
}

func ParsePayload(data string) (Payload, error) {
	data = strings.TrimSpace(data)
	action, rawID, hasID := strings.Cut(data, ":")
	if action == "" {
		return Payload{}, ErrBadPayload
	}
	p := Payload{Action: action}
	if !hasID {
		return p, nil
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, data)
	}
	p.ID = id
	return p, nil
}
