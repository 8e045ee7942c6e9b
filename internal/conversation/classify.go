package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/psds-microservice/helpdesk-bot/internal/session"
)

// Kind — что делать с входящим текстом.
type Kind int

const (
	KindIgnore Kind = iota
	KindStart
	KindNewTicket
	KindFAQ
	KindMyTickets
	KindHelp
	KindCancel
	KindAdminPanel
	KindTicketText
	KindFAQQuestion
	KindFAQAnswer
	KindFAQCategory
	KindFAQEdit
	KindTicketResponse
	KindReplyShorthand
	KindMalformedReply
)

var kindNames = map[Kind]string{
	KindIgnore:         "ignore",
	KindStart:          "start",
	KindNewTicket:      "new_ticket",
	KindFAQ:            "faq",
	KindMyTickets:      "my_tickets",
	KindHelp:           "help",
	KindCancel:         "cancel",
	KindAdminPanel:     "admin_panel",
	KindTicketText:     "ticket_text",
	KindFAQQuestion:    "faq_question",
	KindFAQAnswer:      "faq_answer",
	KindFAQCategory:    "faq_category",
	KindFAQEdit:        "faq_edit",
	KindTicketResponse: "ticket_response",
	KindReplyShorthand: "reply_shorthand",
	KindMalformedReply: "malformed_reply",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Action is the classifier's verdict. Text and TicketID are set only for the
// kinds that carry them.
type Action struct {
	Kind     Kind
	Text     string
	TicketID int64
}

// Menu labels, matched case-insensitively after trimming.
const (
	LabelCreateTicket = "Create ticket"
	LabelFAQ          = "FAQ"
	LabelMyTickets    = "My tickets"
	LabelHelp         = "Help"
)

// ReplyPlaceholder stands in for a shorthand reply that has no text.
const ReplyPlaceholder = "Response received"

var commands = map[string]Kind{
	"/start":      KindStart,
	"/new":        KindNewTicket,
	"/faq":        KindFAQ,
	"/my_tickets": KindMyTickets,
	"/help":       KindHelp,
	"/cancel":     KindCancel,
	"/admin":      KindAdminPanel,
}

var labels = map[string]Kind{
	strings.ToLower(LabelCreateTicket): KindNewTicket,
	strings.ToLower(LabelFAQ):          KindFAQ,
	strings.ToLower(LabelMyTickets):    KindMyTickets,
	strings.ToLower(LabelHelp):         KindHelp,
}

var (
	replyPrefix = regexp.MustCompile(`(?i)^\s*(?:reply|ответ)\s*#`)
	replyFull   = regexp.MustCompile(`(?is)^\s*(?:reply|ответ)\s*#(\d+)(?:\s+(.*))?$`)
)

// Classify maps (session, admin-ness, raw text) to an action. First match wins:
//
//	commands → awaiting ticket text → menu labels → admin adding FAQ →
//	admin editing FAQ → admin responding → admin "reply #id text" → ignore
//
// Commands never become flow input, so /cancel always reaches the user.
func Classify(s session.Session, isAdmin bool, text string) Action {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "/") {
		return Action{Kind: commands[commandName(trimmed)]}
	}

	if s.Flow == session.FlowAwaitingTicket {
		return Action{Kind: KindTicketText, Text: text}
	}

	if k, ok := labels[strings.ToLower(trimmed)]; ok {
		return Action{Kind: k}
	}

	if isAdmin {
		switch s.Flow {
		case session.FlowAddingFAQ:
			switch s.FAQStage {
			case session.StageAnswer:
				return Action{Kind: KindFAQAnswer, Text: text}
			case session.StageCategory:
				return Action{Kind: KindFAQCategory, Text: text}
			default:
				return Action{Kind: KindFAQQuestion, Text: text}
			}
		case session.FlowEditingFAQ:
			return Action{Kind: KindFAQEdit, Text: text}
		case session.FlowResponding:
			return Action{Kind: KindTicketResponse, TicketID: s.TicketID, Text: text}
		}

		if replyPrefix.MatchString(text) {
			return parseReply(text)
		}
	}

	return Action{Kind: KindIgnore}
}

func parseReply(text string) Action {
	m := replyFull.FindStringSubmatch(text)
	if m == nil {
		return Action{Kind: KindMalformedReply}
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return Action{Kind: KindMalformedReply}
	}
	body := strings.TrimSpace(m[2])
	if body == "" {
		body = ReplyPlaceholder
	}
	return Action{Kind: KindReplyShorthand, TicketID: id, Text: body}
}

// commandName: "/new@helpdesk_bot extra" → "/new".
func commandName(text string) string {
	name := strings.Fields(text)[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
