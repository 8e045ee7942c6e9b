package conversation

import (
	"fmt"
	"strings"

	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

const (
	faqMenuLimit     = 10
	adminListLimit   = 20
	userTicketsLimit = 10
	timeLayout       = "02.01.2006 15:04"
)

const (
	textTicketPrompt   = "Please describe your question or problem.\n\nSend /cancel to abort."
	textQuestionShort  = "The question is too short. Please describe the problem in more detail (at least 10 characters)."
	textCancelled      = "Action cancelled."
	textNoAccess       = "You do not have access to the admin panel."
	textAccessDenied   = "Access denied."
	textTicketNotFound = "Ticket not found."
	textFAQNotFound    = "FAQ not found."
	textFAQEmpty       = "The FAQ is empty for now."
	textNoTickets      = "You have no tickets yet. Create one with /new"
	textStoreFailed    = "Something went wrong while saving. Please try again later."
	textReplyFormat    = "Use the format: reply #<ticket id> <response text>"
	textUnknownAction  = "Unknown action."
)

var statusLabels = map[model.TicketStatus]string{
	model.TicketStatusOpen:       "Open",
	model.TicketStatusInProgress: "In progress",
	model.TicketStatusClosed:     "Closed",
	model.TicketStatusCancelled:  "Cancelled",
}

func statusLabel(s model.TicketStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func btn(text, data string) transport.Button {
	return transport.Button{Text: text, Data: data}
}

func backRow(data string) []transport.Button {
	return transport.Row(btn("Back", data))
}

func mainMenu(faqEnabled bool) [][]string {
	first := []string{LabelCreateTicket}
	if faqEnabled {
		first = append(first, LabelFAQ)
	}
	return [][]string{first, {LabelMyTickets, LabelHelp}}
}

func welcomeText(firstName string, isAdmin, faqEnabled bool) string {
	if firstName == "" {
		firstName = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome, %s!\n\nI am the support desk bot. I can:\n", firstName)
	if faqEnabled {
		b.WriteString("- answer frequently asked questions\n")
	}
	b.WriteString("- create a support ticket\n- show the status of your tickets\n\n")
	b.WriteString("Use the buttons below or the commands:\n/new - create a ticket\n/faq - frequently asked questions\n/my_tickets - my tickets\n/help - help\n")
	if isAdmin {
		b.WriteString("/admin - admin panel\n")
	}
	return b.String()
}

const helpText = `How to use the bot:

Commands:
/start - main menu
/new - create a new ticket
/faq - frequently asked questions
/my_tickets - view my tickets
/cancel - cancel the current action

Creating a ticket:
1. Press "Create ticket" or send /new
2. Describe your question or problem
3. Wait for the support team to answer

For administrators:
/admin - admin panel`

func ticketPromptButtons(faqEnabled bool) [][]transport.Button {
	if !faqEnabled {
		return nil
	}
	return [][]transport.Button{transport.Row(btn("Browse FAQ", Data(ActFAQList)))}
}

func faqMenu(items []model.FAQEntry) (string, [][]transport.Button) {
	if len(items) == 0 {
		return textFAQEmpty, nil
	}
	rows := make([][]transport.Button, 0, faqMenuLimit)
	for i, e := range items {
		if i == faqMenuLimit {
			break
		}
		rows = append(rows, transport.Row(btn(logger.Truncate(e.Question, 50), Data(ActFAQView, e.ID))))
	}
	return "Choose a question:", rows
}

func faqAnswerView(e *model.FAQEntry) (string, [][]transport.Button) {
	text := fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\n---\nDid this help? If not, create a ticket with /new", e.Question, e.Answer)
	return text, [][]transport.Button{
		transport.Row(btn("Helpful", Data(ActFAQHelpful, e.ID)), btn("Not helpful", Data(ActFAQNotHelpful, e.ID))),
		transport.Row(btn(LabelCreateTicket, Data(ActTicketNew))),
	}
}

func ticketCreatedText(t *model.Ticket) string {
	return fmt.Sprintf("Ticket #%d created!\n\nYour question: %s\n\nWe will get back to you soon. Use /my_tickets to check the status.", t.ID, t.Question)
}

func displayUsername(t *model.Ticket) string {
	if t.Username == "" || t.Username == model.UnknownName {
		return "no username"
	}
	return "@" + t.Username
}

func newTicketAdminText(t *model.Ticket) string {
	return fmt.Sprintf("New ticket #%d\n\nUser: %s (%s)\nQuestion: %s\n\nUse /admin to manage tickets.",
		t.ID, t.FirstName, displayUsername(t), t.Question)
}

func userTickets(tickets []model.Ticket) (string, [][]transport.Button) {
	if len(tickets) == 0 {
		return textNoTickets, nil
	}
	var b strings.Builder
	b.WriteString("Your tickets:\n\n")
	var rows [][]transport.Button
	for i, t := range tickets {
		if i == userTicketsLimit {
			break
		}
		fmt.Fprintf(&b, "Ticket #%d - %s\n", t.ID, statusLabel(t.Status))
		fmt.Fprintf(&b, "   Created: %s\n", t.CreatedAt.Format(timeLayout))
		fmt.Fprintf(&b, "   Question: %s\n", logger.Truncate(t.Question, 50))
		if t.AdminResponse != nil {
			fmt.Fprintf(&b, "   Response: %s\n", logger.Truncate(*t.AdminResponse, 50))
		}
		b.WriteString("\n")
		if t.Status == model.TicketStatusOpen {
			rows = append(rows, transport.Row(btn(fmt.Sprintf("Cancel #%d", t.ID), Data(ActTicketCancel, t.ID))))
		}
	}
	return strings.TrimRight(b.String(), "\n"), rows
}

func responseToUserText(id int64, text string) string {
	return fmt.Sprintf("Response to your ticket #%d:\n\n%s", id, text)
}

func dashboard(c service.TicketCounts) (string, [][]transport.Button) {
	text := fmt.Sprintf("Admin panel\n\nStatistics:\n- Total tickets: %d\n- Open: %d\n- In progress: %d", c.Total, c.Open, c.InProgress)
	return text, [][]transport.Button{
		transport.Row(btn("All tickets", Data(ActAdminAll)), btn("Open", Data(ActAdminOpen))),
		transport.Row(btn("Statistics", Data(ActAdminStats)), btn("Manage FAQ", Data(ActAdminFAQ))),
	}
}

func ticketList(title string, tickets []model.Ticket) (string, [][]transport.Button) {
	if len(tickets) == 0 {
		return fmt.Sprintf("%s: none.", title), [][]transport.Button{backRow(Data(ActAdminHome))}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n\n", title, len(tickets))
	rows := make([][]transport.Button, 0, adminListLimit+1)
	for i, t := range tickets {
		if i == adminListLimit {
			break
		}
		fmt.Fprintf(&b, "#%d [%s] %s\n", t.ID, statusLabel(t.Status), logger.Truncate(t.Question, 40))
		rows = append(rows, transport.Row(btn(fmt.Sprintf("#%d - %s", t.ID, logger.Truncate(t.Question, 30)), Data(ActAdminTicket, t.ID))))
	}
	rows = append(rows, backRow(Data(ActAdminHome)))
	return strings.TrimRight(b.String(), "\n"), rows
}

func ticketDetails(t *model.Ticket) (string, [][]transport.Button) {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket #%d\n\n%s\nUser: %s (%s)\nID: %d\nCreated: %s\nUpdated: %s\n\nQuestion:\n%s\n",
		t.ID, statusLabel(t.Status), t.FirstName, displayUsername(t), t.UserID,
		t.CreatedAt.Format(timeLayout), t.UpdatedAt.Format(timeLayout), t.Question)
	if t.AdminResponse != nil {
		fmt.Fprintf(&b, "\nResponse:\n%s\n", *t.AdminResponse)
	}

	var rows [][]transport.Button
	if t.Status == model.TicketStatusOpen {
		rows = append(rows, transport.Row(btn("Take", Data(ActAdminClaim, t.ID))))
	}
	if t.Status != model.TicketStatusClosed {
		rows = append(rows, transport.Row(btn("Close", Data(ActAdminClose, t.ID))))
	}
	rows = append(rows,
		transport.Row(btn("Respond", Data(ActAdminRespond, t.ID))),
		backRow(Data(ActAdminOpen)),
	)
	return strings.TrimRight(b.String(), "\n"), rows
}

func statsText(s service.Stats) (string, [][]transport.Button) {
	text := fmt.Sprintf(`Bot statistics

Tickets:
- Total: %d
- Open: %d
- In progress: %d
- Closed: %d
- Cancelled: %d

FAQ:
- Entries: %d
- Answer views: %d

Activity:
- Tickets created: %d
- FAQ answers opened: %d`,
		s.Tickets.Total, s.Tickets.Open, s.Tickets.InProgress, s.Tickets.Closed, s.Tickets.Cancelled,
		s.FAQEntries, s.FAQViews, s.TicketsCreated, s.FAQAnswered)
	return text, [][]transport.Button{backRow(Data(ActAdminHome))}
}

func faqPanel(total int) (string, [][]transport.Button) {
	return fmt.Sprintf("FAQ management\n\nEntries: %d", total), [][]transport.Button{
		transport.Row(btn("FAQ list", Data(ActAdminFAQList))),
		transport.Row(btn("Add FAQ", Data(ActAdminFAQAdd))),
		backRow(Data(ActAdminHome)),
	}
}

func faqAdminList(items []model.FAQEntry) (string, [][]transport.Button) {
	if len(items) == 0 {
		return "The FAQ is empty.", [][]transport.Button{backRow(Data(ActAdminFAQ))}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "FAQ list (%d):\n\n", len(items))
	rows := make([][]transport.Button, 0, adminListLimit+1)
	for i, e := range items {
		if i == adminListLimit {
			break
		}
		fmt.Fprintf(&b, "#%d - %s\n", e.ID, logger.Truncate(e.Question, 40))
		rows = append(rows, transport.Row(btn(fmt.Sprintf("#%d - %s", e.ID, logger.Truncate(e.Question, 30)), Data(ActAdminFAQView, e.ID))))
	}
	rows = append(rows, backRow(Data(ActAdminFAQ)))
	return strings.TrimRight(b.String(), "\n"), rows
}

func adminFAQDetails(e *model.FAQEntry) (string, [][]transport.Button) {
	text := fmt.Sprintf("FAQ #%d\n\nQuestion: %s\n\nAnswer: %s\n\nCategory: %s\nViews: %d",
		e.ID, e.Question, e.Answer, e.Category, e.UsageCount)
	return text, [][]transport.Button{
		transport.Row(btn("Edit question", Data(ActAdminFAQEditQ, e.ID))),
		transport.Row(btn("Edit answer", Data(ActAdminFAQEditA, e.ID))),
		transport.Row(btn("Edit category", Data(ActAdminFAQEditC, e.ID))),
		transport.Row(btn("Delete", Data(ActAdminFAQDelete, e.ID))),
		backRow(Data(ActAdminFAQList)),
	}
}

func faqEditPrompt(id int64, field model.FAQField) string {
	return fmt.Sprintf("Send the new %s for FAQ #%d.\n\nSend /cancel to abort.", field, id)
}

func respondPrompt(id int64) string {
	return fmt.Sprintf("Send your response to ticket #%d.\n\nYou can also write: reply #%d your response text\nSend /cancel to abort.", id, id)
}

func fieldTitle(f model.FAQField) string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
