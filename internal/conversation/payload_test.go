package conversation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/helpdesk-bot/internal/conversation"
)

var _ = Describe("Payload", func() {
	It("builds payloads with and without id", func() {
		Expect(conversation.Data(conversation.ActFAQView, 3)).To(Equal("faq.view:3"))
		Expect(conversation.Data(conversation.ActAdminHome)).To(Equal("admin.home"))
	})

	DescribeTable("ParsePayload",
		func(data string, want conversation.Payload, ok bool) {
			p, err := conversation.ParsePayload(data)
			if !ok {
				Expect(err).To(MatchError(conversation.ErrBadPayload))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(want))
		},
		Entry("action only", "admin.stats", conversation.Payload{Action: "admin.stats"}, true),
		Entry("action with id", "admin.ticket.claim:15", conversation.Payload{Action: "admin.ticket.claim", ID: 15}, true),
		Entry("empty", "", conversation.Payload{}, false),
		Entry("missing action", ":4", conversation.Payload{}, false),
		Entry("non-numeric id", "faq.view:abc", conversation.Payload{}, false),
		Entry("negative id", "faq.view:-1", conversation.Payload{}, false),
		Entry("zero id", "faq.view:0", conversation.Payload{}, false),
	)

	It("round-trips through String", func() {
		p := conversation.Payload{Action: conversation.ActTicketCancel, ID: 9}
		parsed, err := conversation.ParsePayload(p.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(p))
	})
})
