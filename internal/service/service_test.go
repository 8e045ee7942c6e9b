package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/helpdesk-bot/internal/errs"
	"github.com/psds-microservice/helpdesk-bot/internal/model"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
)

func TestService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Service Suite")
}

type recordedEvent struct {
	event   string
	payload map[string]interface{}
}

type mockEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockEvents) ProduceTicketEvent(_ context.Context, event string, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{event: event, payload: payload})
}

func newStore() *store.Store {
	backend, err := store.NewFileBackend(GinkgoT().TempDir())
	Expect(err).NotTo(HaveOccurred())
	return store.New(backend)
}

var _ = Describe("TicketService", func() {
	var (
		ctx      context.Context
		st       *store.Store
		activity *service.ActivityLog
		events   *mockEvents
		svc      *service.TicketService
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = newStore()
		activity = service.NewActivityLog(st.Activity)
		events = &mockEvents{}
		svc = service.NewTicketService(st.Tickets, activity, events)
	})

	create := func(userID int64, question string) *model.Ticket {
		t, err := svc.Create(ctx, service.NewTicket{UserID: userID, Username: "alice", FirstName: "Alice", Question: question})
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	Describe("Create", func() {
		It("opens a ticket, logs activity and emits an event", func() {
			t := create(10, "My printer does not print anything")

			Expect(t.ID).To(Equal(int64(1)))
			Expect(t.Status).To(Equal(model.TicketStatusOpen))
			Expect(t.CreatedAt).To(Equal(t.UpdatedAt))
			Expect(t.AdminID).To(BeNil())
			Expect(t.AdminResponse).To(BeNil())

			n, err := activity.CountPrefix(ctx, model.ActionTicketCreated)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			Expect(events.events).To(HaveLen(1))
			Expect(events.events[0].event).To(Equal(service.EventTicketCreated))
			Expect(events.events[0].payload).To(HaveKeyWithValue("ticket_id", int64(1)))
		})

		It("stores the question exactly as sent", func() {
			create(10, "  My screen flickers\nafter the update  ")

			mine, err := svc.ListForUser(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))
			Expect(mine[0].Question).To(Equal("  My screen flickers\nafter the update  "))
		})

		It("normalizes missing names", func() {
			t, err := svc.Create(ctx, service.NewTicket{UserID: 1, Question: "Something is broken here"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Username).To(Equal(model.UnknownName))
			Expect(t.FirstName).To(Equal(model.UnknownName))
		})

		DescribeTable("question length",
			func(question string, ok bool) {
				_, err := svc.Create(ctx, service.NewTicket{UserID: 1, Question: question})
				if ok {
					Expect(err).NotTo(HaveOccurred())
					return
				}
				Expect(err).To(MatchError(errs.ErrQuestionTooShort))
				all, _ := svc.ListAll(ctx, "")
				Expect(all).To(BeEmpty())
			},
			Entry("9 characters", "123456789", false),
			Entry("10 characters", "1234567890", true),
			Entry("padding does not count", "   short    ", false),
			Entry("10 cyrillic letters", "приветмир!", true),
		)

		It("hands out strictly increasing ids", func() {
			var last int64
			for i := 0; i < 5; i++ {
				t := create(1, "question number "+strings.Repeat("x", i))
				Expect(t.ID).To(BeNumerically(">", last))
				last = t.ID
			}
		})
	})

	Describe("listing", func() {
		It("filters by user and status, newest first", func() {
			a := create(1, "first question from one")
			b := create(2, "question from user two")
			c := create(1, "second question from one")
			_, err := svc.Claim(ctx, b.ID, 99)
			Expect(err).NotTo(HaveOccurred())

			mine, err := svc.ListForUser(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
			Expect(mine[0].ID).To(Equal(c.ID))
			Expect(mine[1].ID).To(Equal(a.ID))

			open, err := svc.ListAll(ctx, model.TicketStatusOpen)
			Expect(err).NotTo(HaveOccurred())
			Expect(open).To(HaveLen(2))

			all, err := svc.ListAll(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("returns not found for unknown ids", func() {
			_, err := svc.GetByID(ctx, 404)
			Expect(err).To(MatchError(errs.ErrTicketNotFound))
		})
	})

	Describe("SetStatus", func() {
		It("claims, then closes with a response", func() {
			t := create(1, "please help me with vpn")

			claimed, err := svc.Claim(ctx, t.ID, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(claimed.Status).To(Equal(model.TicketStatusInProgress))
			Expect(*claimed.AdminID).To(Equal(int64(7)))

			closed, err := svc.Respond(ctx, t.ID, 8, "Restart the VPN client")
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.Status).To(Equal(model.TicketStatusClosed))
			Expect(*closed.AdminID).To(Equal(int64(8)))
			Expect(*closed.AdminResponse).To(Equal("Restart the VPN client"))
			Expect(closed.UpdatedAt).NotTo(BeTemporally("<", claimed.UpdatedAt))
		})

		It("overwrites the response of a closed ticket", func() {
			t := create(1, "please help me with vpn")
			_, err := svc.Respond(ctx, t.ID, 7, "first answer")
			Expect(err).NotTo(HaveOccurred())
			again, err := svc.Respond(ctx, t.ID, 7, "second answer")
			Expect(err).NotTo(HaveOccurred())
			Expect(*again.AdminResponse).To(Equal("second answer"))
		})

		It("refuses to claim a finished ticket", func() {
			t := create(1, "please help me with vpn")
			_, err := svc.Close(ctx, t.ID, 7)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Claim(ctx, t.ID, 7)
			Expect(err).To(MatchError(errs.ErrInvalidTransition))
			got, _ := svc.GetByID(ctx, t.ID)
			Expect(got.Status).To(Equal(model.TicketStatusClosed))
		})

		It("never reopens a ticket", func() {
			t := create(1, "please help me with vpn")
			_, err := svc.SetStatus(ctx, t.ID, model.TicketStatusOpen, service.StatusChange{})
			Expect(err).To(MatchError(errs.ErrInvalidTransition))
		})

		It("is a silent no-op for a missing ticket", func() {
			got, err := svc.SetStatus(ctx, 42, model.TicketStatusClosed, service.StatusChange{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
			Expect(events.events).To(BeEmpty())
		})
	})

	Describe("Cancel", func() {
		It("lets the owner cancel an open ticket", func() {
			t := create(1, "please help me with vpn")
			got, err := svc.Cancel(ctx, t.ID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(model.TicketStatusCancelled))

			n, _ := activity.CountPrefix(ctx, model.ActionTicketCanceled)
			Expect(n).To(Equal(1))
		})

		It("rejects other users", func() {
			t := create(1, "please help me with vpn")
			_, err := svc.Cancel(ctx, t.ID, 2)
			Expect(err).To(MatchError(errs.ErrForbidden))
		})

		It("rejects tickets already taken", func() {
			t := create(1, "please help me with vpn")
			_, _ = svc.Claim(ctx, t.ID, 9)
			_, err := svc.Cancel(ctx, t.ID, 1)
			Expect(err).To(MatchError(errs.ErrInvalidTransition))
		})
	})

	It("counts tickets by status", func() {
		a := create(1, "first question text")
		b := create(1, "second question text")
		create(1, "third question text")
		_, _ = svc.Claim(ctx, a.ID, 9)
		_, _ = svc.Cancel(ctx, b.ID, 1)

		c, err := svc.Counts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(service.TicketCounts{Total: 3, Open: 1, InProgress: 1, Cancelled: 1}))
	})

	It("republishes every ticket", func() {
		create(1, "first question text")
		create(2, "second question text")
		events.events = nil

		n, err := svc.Republish(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(events.events).To(HaveLen(2))
		Expect(events.events[0].event).To(Equal(service.EventTicketUpdated))
	})

	It("keeps every ticket under concurrent creation", func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(user int64) {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := svc.Create(ctx, service.NewTicket{UserID: user, Question: "concurrent question"})
				Expect(err).NotTo(HaveOccurred())
			}(int64(i))
		}
		wg.Wait()
		all, err := svc.ListAll(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(20))
	})
})

var _ = Describe("FAQService", func() {
	var (
		ctx context.Context
		svc *service.FAQService
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = service.NewFAQService(newStore().FAQ)
	})

	It("round-trips an added entry", func() {
		e, err := svc.Add(ctx, "How do I reset my password?", "Click reset on the login page.", "account")
		Expect(err).NotTo(HaveOccurred())

		got, err := svc.GetByID(ctx, e.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Question).To(Equal("How do I reset my password?"))
		Expect(got.Answer).To(Equal("Click reset on the login page."))
		Expect(got.Category).To(Equal("account"))
		Expect(got.UsageCount).To(BeZero())
		Expect(got.CreatedAt).NotTo(BeZero())
	})

	It("defaults the category", func() {
		e, err := svc.Add(ctx, "Question?", "Answer.", "   ")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Category).To(Equal(model.DefaultCategory))
	})

	It("rejects empty question or answer", func() {
		_, err := svc.Add(ctx, " ", "Answer.", "")
		Expect(err).To(MatchError(errs.ErrEmptyField))
	})

	It("ranks by usage and increments exactly one entry", func() {
		a, _ := svc.Add(ctx, "A?", "a", "")
		b, _ := svc.Add(ctx, "B?", "b", "")
		c, _ := svc.Add(ctx, "C?", "c", "other")

		Expect(svc.IncrementUsage(ctx, b.ID)).To(Succeed())
		Expect(svc.IncrementUsage(ctx, b.ID)).To(Succeed())
		Expect(svc.IncrementUsage(ctx, c.ID)).To(Succeed())

		list, err := svc.List(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect([]int64{list[0].ID, list[1].ID, list[2].ID}).To(Equal([]int64{b.ID, c.ID, a.ID}))
		Expect(list[0].UsageCount).To(Equal(int64(2)))
		Expect(list[2].UsageCount).To(BeZero())

		general, err := svc.List(ctx, model.DefaultCategory)
		Expect(err).NotTo(HaveOccurred())
		Expect(general).To(HaveLen(2))
	})

	It("ignores usage of a missing entry", func() {
		Expect(svc.IncrementUsage(ctx, 99)).To(Succeed())
	})

	It("updates only the patched fields", func() {
		e, _ := svc.Add(ctx, "Old?", "old answer", "x")

		ok, err := svc.Update(ctx, e.ID, service.PatchField(model.FAQFieldAnswer, "new answer"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		got, _ := svc.GetByID(ctx, e.ID)
		Expect(got.Question).To(Equal("Old?"))
		Expect(got.Answer).To(Equal("new answer"))
		Expect(got.Category).To(Equal("x"))

		ok, err = svc.Update(ctx, 999, service.PatchField(model.FAQFieldQuestion, "Q?"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("resets an emptied category to general", func() {
		e, _ := svc.Add(ctx, "Q?", "A", "billing")
		ok, err := svc.Update(ctx, e.ID, service.PatchField(model.FAQFieldCategory, ""))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		got, _ := svc.GetByID(ctx, e.ID)
		Expect(got.Category).To(Equal(model.DefaultCategory))
	})

	It("deletes permanently and never reuses the id", func() {
		a, _ := svc.Add(ctx, "A?", "a", "")
		b, _ := svc.Add(ctx, "B?", "b", "")

		ok, err := svc.Delete(ctx, b.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		_, err = svc.GetByID(ctx, b.ID)
		Expect(err).To(MatchError(errs.ErrFAQNotFound))

		ok, err = svc.Delete(ctx, b.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		c, _ := svc.Add(ctx, "C?", "c", "")
		Expect(c.ID).To(BeNumerically(">", b.ID))
		Expect(a.ID).To(BeNumerically("<", b.ID))
	})
})

var _ = Describe("ActivityLog", func() {
	It("records labels with details and counts by prefix", func() {
		ctx := context.Background()
		log := service.NewActivityLog(newStore().Activity)
		log.Record(ctx, 1, model.ActionFAQUsed, "3")
		log.Record(ctx, 1, model.ActionFAQUsed, "4")
		log.Record(ctx, 2, model.ActionFAQViewed, "")

		n, err := log.CountPrefix(ctx, model.ActionFAQUsed)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		n, _ = log.CountPrefix(ctx, model.ActionFAQViewed)
		Expect(n).To(Equal(1))
		n, _ = log.CountPrefix(ctx, "faq")
		Expect(n).To(BeZero())
	})
})

var _ = Describe("CollectStats", func() {
	It("aggregates tickets, faq usage and activity", func() {
		ctx := context.Background()
		st := newStore()
		activity := service.NewActivityLog(st.Activity)
		tickets := service.NewTicketService(st.Tickets, activity, nil)
		faq := service.NewFAQService(st.FAQ)

		for _, q := range []string{"first long question", "second long question"} {
			_, err := tickets.Create(ctx, service.NewTicket{UserID: 1, Question: q})
			Expect(err).NotTo(HaveOccurred())
		}
		_, err := tickets.Close(ctx, 1, 100)
		Expect(err).NotTo(HaveOccurred())
		e, _ := faq.Add(ctx, "Q?", "A.", "")
		Expect(faq.IncrementUsage(ctx, e.ID)).To(Succeed())
		Expect(faq.IncrementUsage(ctx, e.ID)).To(Succeed())
		activity.Record(ctx, 1, model.ActionFAQUsed, "1")

		stats, err := service.CollectStats(ctx, tickets, faq, activity)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Tickets).To(Equal(service.TicketCounts{Total: 2, Open: 1, Closed: 1}))
		Expect(stats.FAQEntries).To(Equal(1))
		Expect(stats.FAQViews).To(BeEquivalentTo(2))
		Expect(stats.TicketsCreated).To(Equal(2))
		Expect(stats.FAQAnswered).To(Equal(1))
	})
})
