package conversation_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/helpdesk-bot/internal/auth"
	"github.com/psds-microservice/helpdesk-bot/internal/conversation"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/notify"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/session"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

const (
	userID  int64 = 1
	otherID int64 = 2
	adminID int64 = 100
)

// recorder is a transport.Sender that keeps every effect and fails for chats in fail.
type recorder struct {
	mu      sync.Mutex
	effects []transport.Effect
	fail    map[int64]error
}

func (r *recorder) Deliver(_ context.Context, e transport.Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[e.ChatID]; err != nil && e.Kind != transport.EffectNotice {
		return err
	}
	r.effects = append(r.effects, e)
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = nil
}

func (r *recorder) to(chatID int64) []transport.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transport.Effect
	for _, e := range r.effects {
		if e.Kind != transport.EffectNotice && e.ChatID == chatID {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last(chatID int64) transport.Effect {
	all := r.to(chatID)
	Expect(all).NotTo(BeEmpty(), "no effects for chat %d", chatID)
	return all[len(all)-1]
}

func (r *recorder) notices() []transport.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []transport.Effect
	for _, e := range r.effects {
		if e.Kind == transport.EffectNotice {
			out = append(out, e)
		}
	}
	return out
}

var _ = Describe("Router", func() {
	var (
		ctx      context.Context
		out      *recorder
		sessions *session.MemoryStore
		tickets  *service.TicketService
		faq      *service.FAQService
		router   *conversation.Router
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend, err := store.NewFileBackend(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		st := store.New(backend)
		activity := service.NewActivityLog(st.Activity)
		tickets = service.NewTicketService(st.Tickets, activity, nil)
		faq = service.NewFAQService(st.FAQ)
		sessions = session.NewMemoryStore()
		out = &recorder{fail: map[int64]error{}}

		router = conversation.New(conversation.Deps{
			Auth:       auth.NewAuthorizer([]int64{adminID}),
			Sessions:   sessions,
			Tickets:    tickets,
			FAQ:        faq,
			Activity:   activity,
			Notifier:   notify.NewNotifier(out, []int64{adminID}),
			Sender:     out,
			FAQEnabled: true,
		})
	})

	text := func(from int64, s string) error {
		return router.Handle(ctx, transport.Update{
			ID:   "upd",
			From: transport.User{ID: from, Username: "ann", FirstName: "Ann"},
			Text: s,
		})
	}
	press := func(from int64, data string) error {
		return router.Handle(ctx, transport.Update{
			ID:       "upd",
			From:     transport.User{ID: from, FirstName: "Ann"},
			Callback: &transport.Callback{ID: "cb", MessageID: 55, Data: data},
		})
	}
	sessionOf := func(id int64) session.Session {
		s, err := sessions.Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return s
	}
	createTicket := func() *model.Ticket {
		Expect(text(userID, "/new")).To(Succeed())
		Expect(text(userID, "My printer does not print anything")).To(Succeed())
		all, err := tickets.ListForUser(ctx, userID)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
		out.reset()
		return &all[0]
	}

	Describe("ticket creation", func() {
		It("creates the ticket and notifies admins", func() {
			Expect(text(userID, "/new")).To(Succeed())
			Expect(sessionOf(userID).Flow).To(Equal(session.FlowAwaitingTicket))
			Expect(out.last(userID).Text).To(ContainSubstring("describe your question"))

			Expect(text(userID, "My printer does not print anything")).To(Succeed())
			Expect(sessionOf(userID).Active()).To(BeFalse())
			Expect(out.last(userID).Text).To(HavePrefix("Ticket #1 created!"))

			notice := out.last(adminID)
			Expect(notice.Text).To(HavePrefix("New ticket #1"))
			Expect(notice.Text).To(ContainSubstring("@ann"))
			Expect(notice.Buttons).To(Equal([][]transport.Button{{{Text: "Open ticket", Data: "admin.ticket:1"}}}))

			t, err := tickets.GetByID(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Status).To(Equal(model.TicketStatusOpen))
		})

		It("keeps the flow when the question is too short", func() {
			Expect(text(userID, "/new")).To(Succeed())
			Expect(text(userID, "   short   ")).To(Succeed())
			Expect(out.last(userID).Text).To(HavePrefix("The question is too short"))
			Expect(sessionOf(userID).Flow).To(Equal(session.FlowAwaitingTicket))

			all, _ := tickets.ListAll(ctx, "")
			Expect(all).To(BeEmpty())
		})

		It("cancels the flow mid-way", func() {
			Expect(text(userID, "/new")).To(Succeed())
			Expect(text(userID, "/cancel")).To(Succeed())
			Expect(out.last(userID).Text).To(Equal("Action cancelled."))
			Expect(sessionOf(userID).Active()).To(BeFalse())

			out.reset()
			Expect(text(userID, "This is not a ticket anymore")).To(Succeed())
			Expect(out.to(userID)).To(BeEmpty())
		})

		It("resets any flow on /start", func() {
			Expect(text(userID, "/new")).To(Succeed())
			Expect(text(userID, "/start")).To(Succeed())
			Expect(sessionOf(userID).Active()).To(BeFalse())
			Expect(out.last(userID).Menu).NotTo(BeEmpty())
		})
	})

	Describe("admin response", func() {
		It("delivers a shorthand reply to the owner and closes the ticket", func() {
			t := createTicket()
			Expect(text(adminID, "reply #1 Please restart the printer")).To(Succeed())

			Expect(out.last(userID).Text).To(Equal("Response to your ticket #1:\n\nPlease restart the printer"))
			Expect(out.last(adminID).Text).To(Equal("Response sent to the user."))

			got, err := tickets.GetByID(ctx, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(model.TicketStatusClosed))
			Expect(*got.AdminResponse).To(Equal("Please restart the printer"))
			Expect(*got.AdminID).To(Equal(adminID))
		})

		It("answers through the respond button flow", func() {
			createTicket()
			Expect(press(adminID, "admin.ticket.respond:1")).To(Succeed())
			Expect(sessionOf(adminID).Flow).To(Equal(session.FlowResponding))

			Expect(text(adminID, "Fixed on our side")).To(Succeed())
			Expect(sessionOf(adminID).Active()).To(BeFalse())
			Expect(out.last(userID).Text).To(HaveSuffix("Fixed on our side"))
		})

		It("tells the admin when the reply could not be delivered", func() {
			createTicket()
			out.fail[userID] = errors.New("bot was blocked by the user")

			Expect(text(adminID, "reply #1 done")).To(HaveOccurred())
			Expect(out.last(adminID).Text).To(And(
				HavePrefix("Could not deliver the response"),
				ContainSubstring("bot was blocked by the user"),
			))
			got, _ := tickets.GetByID(ctx, 1)
			Expect(got.Status).To(Equal(model.TicketStatusClosed))
		})

		It("reports a missing ticket", func() {
			Expect(text(adminID, "reply #77 hello")).To(Succeed())
			Expect(out.last(adminID).Text).To(Equal("Ticket not found."))
		})

		It("explains the shorthand format", func() {
			Expect(text(adminID, "reply #x")).To(Succeed())
			Expect(out.last(adminID).Text).To(HavePrefix("Use the format"))
		})
	})

	Describe("FAQ management", func() {
		It("adds an entry with the default category", func() {
			Expect(press(adminID, "admin.faq.add")).To(Succeed())
			Expect(text(adminID, "How do I reset my password?")).To(Succeed())
			Expect(text(adminID, "Use the reset link on the login page.")).To(Succeed())
			Expect(sessionOf(adminID).FAQStage).To(Equal(session.StageCategory))

			Expect(text(adminID, "")).To(Succeed())
			Expect(sessionOf(adminID).Active()).To(BeFalse())
			Expect(out.last(adminID).Text).To(HavePrefix("FAQ #1 added!"))

			e, err := faq.GetByID(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Category).To(Equal(model.DefaultCategory))
			Expect(e.Question).To(Equal("How do I reset my password?"))
		})

		It("edits a single field", func() {
			_, err := faq.Add(ctx, "Q?", "old", "billing")
			Expect(err).NotTo(HaveOccurred())

			Expect(press(adminID, "admin.faq.edit.answer:1")).To(Succeed())
			Expect(text(adminID, "new answer")).To(Succeed())
			Expect(out.last(adminID).Text).To(Equal("Answer of FAQ #1 updated."))

			e, _ := faq.GetByID(ctx, 1)
			Expect(e.Answer).To(Equal("new answer"))
			Expect(e.Category).To(Equal("billing"))
		})

		It("counts a view when a user opens an answer", func() {
			_, err := faq.Add(ctx, "Q?", "A.", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(press(userID, "faq.view:1")).To(Succeed())
			edit := out.last(userID)
			Expect(edit.Kind).To(Equal(transport.EffectEdit))
			Expect(edit.MessageID).To(BeEquivalentTo(55))

			e, _ := faq.GetByID(ctx, 1)
			Expect(e.UsageCount).To(BeEquivalentTo(1))
		})
	})

	Describe("buttons", func() {
		It("rejects an admin payload from a regular user", func() {
			createTicket()
			Expect(press(userID, "admin.ticket.close:1")).To(Succeed())

			Expect(out.last(userID).Text).To(Equal("Access denied."))
			Expect(out.notices()).To(HaveLen(1))
			got, _ := tickets.GetByID(ctx, 1)
			Expect(got.Status).To(Equal(model.TicketStatusOpen))
		})

		It("acknowledges an unknown payload once", func() {
			Expect(press(userID, "does.not.exist")).To(Succeed())
			Expect(press(userID, "faq.view:abc")).To(Succeed())
			notices := out.notices()
			Expect(notices).To(HaveLen(2))
			Expect(notices[0].Text).To(Equal("Unknown action."))
			Expect(out.to(userID)).To(BeEmpty())
		})

		It("claims only open tickets", func() {
			createTicket()
			Expect(press(adminID, "admin.ticket.claim:1")).To(Succeed())
			Expect(press(adminID, "admin.ticket.claim:1")).To(Succeed())

			notices := out.notices()
			Expect(notices).To(HaveLen(2))
			Expect(notices[0].Text).To(Equal("Ticket #1 taken"))
			Expect(notices[1].Text).To(Equal("Only open tickets can be taken"))
		})

		It("notifies the owner when an admin closes the ticket", func() {
			createTicket()
			Expect(press(adminID, "admin.ticket.close:1")).To(Succeed())
			Expect(out.last(userID).Text).To(Equal("Your ticket #1 was closed by an administrator."))
		})

		It("lets the owner cancel an open ticket and tells the admins", func() {
			createTicket()
			Expect(press(otherID, "ticket.cancel:1")).To(Succeed())
			Expect(out.notices()[0].Text).To(Equal("You can only cancel your own tickets."))

			Expect(press(userID, "ticket.cancel:1")).To(Succeed())
			Expect(out.notices()[1].Text).To(Equal("Ticket #1 cancelled"))
			Expect(out.last(adminID).Text).To(Equal("Ticket #1 was cancelled by the user."))

			got, _ := tickets.GetByID(ctx, 1)
			Expect(got.Status).To(Equal(model.TicketStatusCancelled))
		})

		It("replaces a running flow with the newly chosen one", func() {
			createTicket()
			Expect(press(adminID, "admin.ticket.respond:1")).To(Succeed())
			Expect(press(adminID, "ticket.new")).To(Succeed())
			Expect(sessionOf(adminID).Flow).To(Equal(session.FlowAwaitingTicket))

			Expect(text(adminID, "Admins have questions too")).To(Succeed())
			got, _ := tickets.GetByID(ctx, 1)
			Expect(got.Status).To(Equal(model.TicketStatusOpen))
			mine, _ := tickets.ListForUser(ctx, adminID)
			Expect(mine).To(HaveLen(1))
		})
	})

	Describe("admin panel", func() {
		It("is refused to regular users", func() {
			Expect(text(userID, "/admin")).To(Succeed())
			Expect(out.last(userID).Text).To(Equal("You do not have access to the admin panel."))
		})

		It("shows ticket counts", func() {
			createTicket()
			Expect(text(adminID, "/admin")).To(Succeed())
			Expect(out.last(adminID).Text).To(ContainSubstring("Total tickets: 1"))
		})

		It("shows statistics", func() {
			createTicket()
			Expect(press(adminID, "admin.stats")).To(Succeed())
			Expect(out.last(adminID).Text).To(ContainSubstring("Tickets created: 1"))
		})
	})
})
