package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/session"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

func buttonTable() map[string]buttonHandler {
	return map[string]buttonHandler{
		ActFAQList:       {fn: (*Router).faqListButton},
		ActFAQView:       {needID: true, fn: (*Router).faqView},
		ActFAQHelpful:    {needID: true, fn: (*Router).faqHelpful},
		ActFAQNotHelpful: {needID: true, fn: (*Router).faqNotHelpful},
		ActTicketNew:     {fn: (*Router).ticketNewButton},
		ActTicketCancel:  {needID: true, fn: (*Router).ticketCancel},

		ActAdminHome:      {admin: true, fn: (*Router).adminHome},
		ActAdminAll:       {admin: true, fn: (*Router).adminAllTickets},
		ActAdminOpen:      {admin: true, fn: (*Router).adminOpenTickets},
		ActAdminStats:     {admin: true, fn: (*Router).adminStats},
		ActAdminFAQ:       {admin: true, fn: (*Router).adminFAQPanel},
		ActAdminFAQList:   {admin: true, fn: (*Router).adminFAQList},
		ActAdminFAQAdd:    {admin: true, fn: (*Router).adminFAQAdd},
		ActAdminFAQView:   {admin: true, needID: true, fn: (*Router).adminFAQView},
		ActAdminFAQEditQ:  {admin: true, needID: true, fn: editFAQField(model.FAQFieldQuestion)},
		ActAdminFAQEditA:  {admin: true, needID: true, fn: editFAQField(model.FAQFieldAnswer)},
		ActAdminFAQEditC:  {admin: true, needID: true, fn: editFAQField(model.FAQFieldCategory)},
		ActAdminFAQDelete: {admin: true, needID: true, fn: (*Router).adminFAQDelete},
		ActAdminTicket:    {admin: true, needID: true, fn: (*Router).adminTicket},
		ActAdminClaim:     {admin: true, needID: true, fn: (*Router).adminClaim},
		ActAdminClose:     {admin: true, needID: true, fn: (*Router).adminClose},
		ActAdminRespond:   {admin: true, needID: true, fn: (*Router).adminRespond},
	}
}

// start сбрасывает незавершённый сценарий и показывает главное меню.
func (r *Router) start(ctx context.Context, c *call) error {
	r.clearSession(ctx, c)
	r.Activity.Record(ctx, c.userID(), model.ActionStart, "")
	return r.replyMenu(ctx, c, welcomeText(c.u.From.FirstName, c.isAdmin, r.FAQEnabled))
}

func (r *Router) cancel(ctx context.Context, c *call) error {
	r.clearSession(ctx, c)
	return r.reply(ctx, c, textCancelled)
}

func (r *Router) beginTicket(ctx context.Context, c *call, asEdit bool) error {
	if err := r.setSession(ctx, c, session.AwaitingTicket()); err != nil {
		return errors.Join(err, r.show(ctx, c, asEdit, textStoreFailed, nil))
	}
	return r.show(ctx, c, asEdit, textTicketPrompt, ticketPromptButtons(r.FAQEnabled))
}

func (r *Router) submitTicket(ctx context.Context, c *call, text string) error {
	if _, err := service.ValidateQuestion(text); err != nil {
		return r.reply(ctx, c, textQuestionShort)
	}
	from := c.u.From
	t, err := r.Tickets.Create(ctx, service.NewTicket{
		UserID:    from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		Question:  text,
	})
	if err != nil {
		// сценарий остаётся активным: пользователь может отправить вопрос ещё раз
		slog.ErrorContext(ctx, "router: create ticket", "error", err)
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	}
	r.clearSession(ctx, c)

	replyErr := r.reply(ctx, c, ticketCreatedText(t))
	r.Notifier.NotifyAdmins(ctx, newTicketAdminText(t), transport.Row(btn("Open ticket", Data(ActAdminTicket, t.ID))))
	return replyErr
}

func (r *Router) showFAQ(ctx context.Context, c *call, asEdit bool) error {
	items, err := r.FAQ.List(ctx, "")
	if err != nil {
		slog.ErrorContext(ctx, "router: list faq", "error", err)
	}
	r.Activity.Record(ctx, c.userID(), model.ActionFAQViewed, "")
	text, rows := faqMenu(items)
	return r.show(ctx, c, asEdit, text, rows)
}

func (r *Router) myTickets(ctx context.Context, c *call) error {
	tickets, err := r.Tickets.ListForUser(ctx, c.userID())
	if err != nil {
		slog.ErrorContext(ctx, "router: list user tickets", "error", err)
	}
	r.Activity.Record(ctx, c.userID(), model.ActionTicketsViewed, "")
	text, rows := userTickets(tickets)
	return r.reply(ctx, c, text, rows...)
}

func (r *Router) faqListButton(ctx context.Context, c *call) error {
	return r.showFAQ(ctx, c, true)
}

func (r *Router) faqView(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(c.id)})
	e, err := r.FAQ.GetByID(ctx, c.id)
	if err != nil {
		if errors.Is(err, errs.ErrFAQNotFound) {
			return r.edit(ctx, c, textFAQNotFound, nil)
		}
		slog.ErrorContext(ctx, "router: get faq", "error", err)
		return errors.Join(err, r.edit(ctx, c, textStoreFailed, nil))
	}
	if err := r.FAQ.IncrementUsage(ctx, c.id); err != nil {
		slog.ErrorContext(ctx, "router: increment faq usage", "error", err)
	}
	r.Activity.Record(ctx, c.userID(), model.ActionFAQUsed, fmt.Sprint(c.id))
	text, rows := faqAnswerView(e)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) faqHelpful(ctx context.Context, c *call) error {
	c.notice = "Thanks for the feedback!"
	r.Activity.Record(ctx, c.userID(), model.ActionFAQHelpful, fmt.Sprint(c.id))
	return nil
}

func (r *Router) faqNotHelpful(ctx context.Context, c *call) error {
	c.notice = "Create a ticket, we will help!"
	r.Activity.Record(ctx, c.userID(), model.ActionFAQNotHelpful, fmt.Sprint(c.id))
	return r.beginTicket(ctx, c, true)
}

func (r *Router) ticketNewButton(ctx context.Context, c *call) error {
	return r.beginTicket(ctx, c, true)
}

func (r *Router) ticketCancel(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(c.id)})
	_, err := r.Tickets.Cancel(ctx, c.id, c.userID())
	switch {
	case errors.Is(err, errs.ErrTicketNotFound):
		c.notice = textTicketNotFound
		return nil
	case errors.Is(err, errs.ErrForbidden):
		c.notice = "You can only cancel your own tickets."
		return nil
	case errors.Is(err, errs.ErrInvalidTransition):
		c.notice = "Only open tickets can be cancelled."
		return nil
	case err != nil:
		slog.ErrorContext(ctx, "router: cancel ticket", "error", err)
		c.notice = textStoreFailed
		return err
	}
	c.notice = fmt.Sprintf("Ticket #%d cancelled", c.id)
	r.Notifier.NotifyAdmins(ctx, fmt.Sprintf("Ticket #%d was cancelled by the user.", c.id))

	tickets, err := r.Tickets.ListForUser(ctx, c.userID())
	if err != nil {
		slog.ErrorContext(ctx, "router: list user tickets", "error", err)
	}
	text, rows := userTickets(tickets)
	return r.edit(ctx, c, text, rows)
}
