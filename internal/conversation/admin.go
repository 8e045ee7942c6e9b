package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/session"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

const (
	textFAQAddQuestion = "Adding a new FAQ entry.\n\nStep 1/3: send the question.\nSend /cancel to abort."
	textFAQAddAnswer   = "Step 2/3: send the answer."
	textFAQAddCategory = "Step 3/3: send the category. Send - to use \"general\"."
	textFAQFieldEmpty  = "The text must not be empty. Try again or send /cancel."
)

func (r *Router) adminPanel(ctx context.Context, c *call) error {
	if !c.isAdmin {
		return r.reply(ctx, c, textNoAccess)
	}
	r.Activity.Record(ctx, c.userID(), model.ActionAdminPanel, "")
	text, rows := r.dashboard(ctx)
	return r.reply(ctx, c, text, rows...)
}

func (r *Router) dashboard(ctx context.Context) (string, [][]transport.Button) {
	counts, err := r.Tickets.Counts(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "router: count tickets", "error", err)
	}
	return dashboard(counts)
}

func (r *Router) adminHome(ctx context.Context, c *call) error {
	text, rows := r.dashboard(ctx)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminAllTickets(ctx context.Context, c *call) error {
	return r.adminTickets(ctx, c, "All tickets", "")
}

func (r *Router) adminOpenTickets(ctx context.Context, c *call) error {
	return r.adminTickets(ctx, c, "Open tickets", model.TicketStatusOpen)
}

func (r *Router) adminTickets(ctx context.Context, c *call, title string, status model.TicketStatus) error {
	tickets, err := r.Tickets.ListAll(ctx, status)
	if err != nil {
		slog.ErrorContext(ctx, "router: list tickets", "status", status, "error", err)
	}
	text, rows := ticketList(title, tickets)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminStats(ctx context.Context, c *call) error {
	st, err := service.CollectStats(ctx, r.Tickets, r.FAQ, r.Activity)
	if err != nil {
		slog.ErrorContext(ctx, "router: collect stats", "error", err)
	}
	text, rows := statsText(st)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminFAQPanel(ctx context.Context, c *call) error {
	items, err := r.FAQ.List(ctx, "")
	if err != nil {
		slog.ErrorContext(ctx, "router: list faq", "error", err)
	}
	text, rows := faqPanel(len(items))
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminFAQList(ctx context.Context, c *call) error {
	items, err := r.FAQ.List(ctx, "")
	if err != nil {
		slog.ErrorContext(ctx, "router: list faq", "error", err)
	}
	text, rows := faqAdminList(items)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminFAQAdd(ctx context.Context, c *call) error {
	if err := r.setSession(ctx, c, session.AddingFAQ()); err != nil {
		c.notice = textStoreFailed
		return err
	}
	return r.edit(ctx, c, textFAQAddQuestion, nil)
}

func (r *Router) adminFAQView(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(c.id)})
	e, err := r.FAQ.GetByID(ctx, c.id)
	if err != nil {
		if !errors.Is(err, errs.ErrFAQNotFound) {
			slog.ErrorContext(ctx, "router: get faq", "error", err)
		}
		return r.edit(ctx, c, textFAQNotFound, [][]transport.Button{backRow(Data(ActAdminFAQList))})
	}
	text, rows := adminFAQDetails(e)
	return r.edit(ctx, c, text, rows)
}

// editFAQField starts the single-field edit flow for the pressed entry.
func editFAQField(field model.FAQField) func(r *Router, ctx context.Context, c *call) error {
	return func(r *Router, ctx context.Context, c *call) error {
		ctx = logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(c.id)})
		if _, err := r.FAQ.GetByID(ctx, c.id); err != nil {
			c.notice = textFAQNotFound
			if errors.Is(err, errs.ErrFAQNotFound) {
				return nil
			}
			return err
		}
		if err := r.setSession(ctx, c, session.EditingFAQ(c.id, field)); err != nil {
			c.notice = textStoreFailed
			return err
		}
		return r.edit(ctx, c, faqEditPrompt(c.id, field), nil)
	}
}

func (r *Router) adminFAQDelete(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(c.id)})
	found, err := r.FAQ.Delete(ctx, c.id)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "router: delete faq", "error", err)
		c.notice = textStoreFailed
		return err
	case !found:
		c.notice = textFAQNotFound
	default:
		c.notice = fmt.Sprintf("FAQ #%d deleted", c.id)
	}
	return r.adminFAQList(ctx, c)
}

func (r *Router) adminTicket(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(c.id)})
	t, err := r.Tickets.GetByID(ctx, c.id)
	if err != nil {
		if !errors.Is(err, errs.ErrTicketNotFound) {
			slog.ErrorContext(ctx, "router: get ticket", "error", err)
		}
		return r.edit(ctx, c, textTicketNotFound, [][]transport.Button{backRow(Data(ActAdminOpen))})
	}
	text, rows := ticketDetails(t)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminClaim(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(c.id)})
	t, err := r.Tickets.Claim(ctx, c.id, c.userID())
	switch {
	case errors.Is(err, errs.ErrInvalidTransition):
		c.notice = "Only open tickets can be taken"
		return nil
	case err != nil:
		slog.ErrorContext(ctx, "router: claim ticket", "error", err)
		c.notice = textStoreFailed
		return err
	case t == nil:
		c.notice = textTicketNotFound
		return nil
	}
	c.notice = fmt.Sprintf("Ticket #%d taken", t.ID)
	text, rows := ticketDetails(t)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminClose(ctx context.Context, c *call) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(c.id)})
	t, err := r.Tickets.Close(ctx, c.id, c.userID())
	if err != nil {
		slog.ErrorContext(ctx, "router: close ticket", "error", err)
		c.notice = textStoreFailed
		return err
	}
	if t == nil {
		c.notice = textTicketNotFound
		return nil
	}
	c.notice = fmt.Sprintf("Ticket #%d closed", t.ID)
	// владелец узнаёт о закрытии; ошибка доставки не мешает админу
	_ = r.Notifier.NotifyUser(ctx, t.UserID, fmt.Sprintf("Your ticket #%d was closed by an administrator.", t.ID))
	text, rows := ticketDetails(t)
	return r.edit(ctx, c, text, rows)
}

func (r *Router) adminRespond(ctx context.Context, c *call) error {
	if err := r.setSession(ctx, c, session.Responding(c.id)); err != nil {
		c.notice = textStoreFailed
		return err
	}
	return r.edit(ctx, c, respondPrompt(c.id), nil)
}

func (r *Router) faqQuestion(ctx context.Context, c *call, sess session.Session, text string) error {
	q := strings.TrimSpace(text)
	if q == "" {
		return r.reply(ctx, c, textFAQFieldEmpty)
	}
	if err := r.setSession(ctx, c, sess.WithFAQQuestion(q)); err != nil {
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	}
	return r.reply(ctx, c, textFAQAddAnswer)
}

func (r *Router) faqAnswer(ctx context.Context, c *call, sess session.Session, text string) error {
	a := strings.TrimSpace(text)
	if a == "" {
		return r.reply(ctx, c, textFAQFieldEmpty)
	}
	if err := r.setSession(ctx, c, sess.WithFAQAnswer(a)); err != nil {
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	}
	return r.reply(ctx, c, textFAQAddCategory)
}

// faqCategory завершает сценарий добавления; сессия сбрасывается при любом исходе.
func (r *Router) faqCategory(ctx context.Context, c *call, sess session.Session, text string) error {
	r.clearSession(ctx, c)
	category := strings.TrimSpace(text)
	if category == "-" {
		category = ""
	}
	e, err := r.FAQ.Add(ctx, sess.FAQQuestion, sess.FAQAnswer, category)
	if err != nil {
		slog.ErrorContext(ctx, "router: add faq", "error", err)
		return errors.Join(err, r.reply(ctx, c, "Failed to add the FAQ entry."))
	}
	return r.reply(ctx, c, fmt.Sprintf("FAQ #%d added!\n\nCategory: %s", e.ID, e.Category))
}

func (r *Router) faqEdit(ctx context.Context, c *call, sess session.Session, text string) error {
	r.clearSession(ctx, c)
	ctx = logger.WithLogFields(ctx, logger.LogFields{FAQID: logger.Ptr(sess.FAQID)})
	found, err := r.FAQ.Update(ctx, sess.FAQID, service.PatchField(sess.FAQField, text))
	switch {
	case errors.Is(err, errs.ErrEmptyField):
		return r.reply(ctx, c, "The new value must not be empty. Nothing was changed.")
	case err != nil:
		slog.ErrorContext(ctx, "router: update faq", "field", sess.FAQField, "error", err)
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	case !found:
		return r.reply(ctx, c, textFAQNotFound)
	}
	return r.reply(ctx, c, fmt.Sprintf("%s of FAQ #%d updated.", fieldTitle(sess.FAQField), sess.FAQID))
}

// respond сохраняет ответ, закрывает заявку и пересылает ответ владельцу.
func (r *Router) respond(ctx context.Context, c *call, ticketID int64, text string) error {
	r.clearSession(ctx, c)
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(ticketID)})
	t, err := r.Tickets.Respond(ctx, ticketID, c.userID(), text)
	if err != nil {
		slog.ErrorContext(ctx, "router: respond to ticket", "error", err)
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	}
	if t == nil {
		return r.reply(ctx, c, textTicketNotFound)
	}
	if err := r.Notifier.NotifyUser(ctx, t.UserID, responseToUserText(t.ID, text)); err != nil {
		return errors.Join(err, r.reply(ctx, c, fmt.Sprintf("Could not deliver the response: %v", err)))
	}
	return r.reply(ctx, c, "Response sent to the user.")
}
