// Package conversation routes inbound chat updates. It owns the per-user
// session state and turns each update into store calls and outbound effects.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/psds-microservice/helpdesk-bot/internal/auth"
	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/notify"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/session"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

// ActivityRecorder — журнал действий (service.ActivityLog).
type ActivityRecorder interface {
	Record(ctx context.Context, userID int64, label, detail string)
	CountPrefix(ctx context.Context, label string) (int, error)
}

type Deps struct {
	Auth     *auth.Authorizer
	Sessions session.Store
	Tickets  service.TicketServicer
	FAQ      service.FAQServicer
	Activity ActivityRecorder
	Notifier *notify.Notifier
	Sender   transport.Sender

	// FAQEnabled shows FAQ in the main menu and the ticket prompt. /faq works either way.
	FAQEnabled bool
}

type Router struct {
	Deps
	buttons map[string]buttonHandler
}

// call is one update being handled. notice is the text of the callback
// acknowledgement; it stays empty for a silent acknowledgement.
type call struct {
	u       transport.Update
	id      int64
	isAdmin bool
	notice  string
}

func (c *call) userID() int64 { return c.u.From.ID }

type buttonHandler struct {
	admin  bool
	needID bool
	fn     func(r *Router, ctx context.Context, c *call) error
}

func New(deps Deps) *Router {
	r := &Router{Deps: deps}
	r.buttons = buttonTable()
	return r
}

// Handle processes one update. The returned error is for logging only: every
// user visible failure has already been reported in the chat.
func (r *Router) Handle(ctx context.Context, u transport.Update) error {
	if err := u.Normalize(); err != nil {
		return err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(u.From.ID),
		UpdateID:  u.ID,
		Component: "router",
	})
	c := &call{u: u, isAdmin: r.Auth.IsAdmin(u.From.ID)}
	if u.IsCallback() {
		return r.handleButton(ctx, c)
	}
	return r.handleText(ctx, c)
}

func (r *Router) handleText(ctx context.Context, c *call) error {
	sess, err := r.Sessions.Get(ctx, c.userID())
	if err != nil {
		slog.ErrorContext(ctx, "router: load session", "error", err)
		return errors.Join(err, r.reply(ctx, c, textStoreFailed))
	}

	a := Classify(sess, c.isAdmin, c.u.Text)
	slog.DebugContext(ctx, "router: text classified", "kind", a.Kind, "flow", sess.Flow)

	switch a.Kind {
	case KindStart:
		return r.start(ctx, c)
	case KindHelp:
		r.Activity.Record(ctx, c.userID(), model.ActionHelp, "")
		return r.reply(ctx, c, helpText)
	case KindNewTicket:
		return r.beginTicket(ctx, c, false)
	case KindFAQ:
		return r.showFAQ(ctx, c, false)
	case KindMyTickets:
		return r.myTickets(ctx, c)
	case KindCancel:
		return r.cancel(ctx, c)
	case KindAdminPanel:
		return r.adminPanel(ctx, c)
	case KindTicketText:
		return r.submitTicket(ctx, c, a.Text)
	case KindFAQQuestion:
		return r.faqQuestion(ctx, c, sess, a.Text)
	case KindFAQAnswer:
		return r.faqAnswer(ctx, c, sess, a.Text)
	case KindFAQCategory:
		return r.faqCategory(ctx, c, sess, a.Text)
	case KindFAQEdit:
		return r.faqEdit(ctx, c, sess, a.Text)
	case KindTicketResponse, KindReplyShorthand:
		return r.respond(ctx, c, a.TicketID, a.Text)
	case KindMalformedReply:
		return r.reply(ctx, c, textReplyFormat)
	}
	return nil
}

func (r *Router) handleButton(ctx context.Context, c *call) error {
	cb := c.u.Callback
	p, err := ParsePayload(cb.Data)
	h, known := r.buttons[p.Action]
	if err != nil || !known || (h.needID && p.ID == 0) {
		slog.WarnContext(ctx, "router: unknown button", "data", cb.Data)
		c.notice = textUnknownAction
		return r.ack(ctx, c)
	}
	c.id = p.ID

	// права проверяются при каждом нажатии, а не только при показе меню
	if h.admin {
		if err := r.Auth.Require(c.userID()); err != nil {
			slog.WarnContext(ctx, "router: admin action denied", "action", p.Action, "error", err)
			c.notice = textAccessDenied
			return errors.Join(r.edit(ctx, c, textAccessDenied, nil), r.ack(ctx, c))
		}
	}

	herr := h.fn(r, ctx, c)
	return errors.Join(herr, r.ack(ctx, c))
}

func (r *Router) reply(ctx context.Context, c *call, text string, buttons ...[]transport.Button) error {
	e := transport.Send(c.u.ChatID, text)
	if len(buttons) > 0 {
		e = e.WithButtons(buttons...)
	}
	return r.deliver(ctx, e)
}

func (r *Router) replyMenu(ctx context.Context, c *call, text string) error {
	return r.deliver(ctx, transport.Send(c.u.ChatID, text).WithMenu(mainMenu(r.FAQEnabled)...))
}

// edit replaces the message the pressed button belongs to. Without a message id
// it falls back to a new message.
func (r *Router) edit(ctx context.Context, c *call, text string, buttons [][]transport.Button) error {
	var e transport.Effect
	if c.u.Callback != nil && c.u.Callback.MessageID != 0 {
		e = transport.Edit(c.u.ChatID, c.u.Callback.MessageID, text)
	} else {
		e = transport.Send(c.u.ChatID, text)
	}
	if len(buttons) > 0 {
		e = e.WithButtons(buttons...)
	}
	return r.deliver(ctx, e)
}

// show is edit for button presses and a plain reply for commands.
func (r *Router) show(ctx context.Context, c *call, asEdit bool, text string, buttons [][]transport.Button) error {
	if asEdit {
		return r.edit(ctx, c, text, buttons)
	}
	return r.reply(ctx, c, text, buttons...)
}

func (r *Router) ack(ctx context.Context, c *call) error {
	return r.deliver(ctx, transport.Notice(c.u.Callback.ID, c.notice))
}

func (r *Router) deliver(ctx context.Context, e transport.Effect) error {
	if err := r.Sender.Deliver(ctx, e); err != nil {
		slog.ErrorContext(ctx, "router: deliver effect", "kind", e.Kind, "chat_id", e.ChatID, "error", err)
		return fmt.Errorf("deliver %s: %w", e.Kind, err)
	}
	return nil
}

func (r *Router) setSession(ctx context.Context, c *call, s session.Session) error {
	if err := r.Sessions.Put(ctx, c.userID(), s); err != nil {
		slog.ErrorContext(ctx, "router: save session", "flow", s.Flow, "error", err)
		return err
	}
	return nil
}

func (r *Router) clearSession(ctx context.Context, c *call) {
	if err := r.Sessions.Clear(ctx, c.userID()); err != nil {
		slog.ErrorContext(ctx, "router: clear session", "error", err)
	}
}
