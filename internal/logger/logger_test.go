package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/helpdesk-bot/internal/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	It("adds context fields to records", func() {
		var buf bytes.Buffer
		log := logger.New(&buf, true, slog.LevelInfo)

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{UserID: logger.Ptr(int64(7)), Component: "router"})
		ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(int64(3))})
		log.InfoContext(ctx, "hello")

		var rec map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &rec)).To(Succeed())
		Expect(rec["user_id"]).To(BeNumerically("==", 7))
		Expect(rec["ticket_id"]).To(BeNumerically("==", 3))
		Expect(rec["component"]).To(Equal("router"))
	})

	It("keeps earlier fields when a later enrichment leaves them empty", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{Component: "a", UpdateID: "u1"})
		ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "b"})
		f := logger.GetLogFields(ctx)
		Expect(f.Component).To(Equal("b"))
		Expect(f.UpdateID).To(Equal("u1"))
	})

	It("parses levels and truncates by runes", func() {
		Expect(logger.ParseLevel("DEBUG")).To(Equal(slog.LevelDebug))
		Expect(logger.ParseLevel("nope")).To(Equal(slog.LevelInfo))
		Expect(logger.Truncate("привет мир", 6)).To(Equal("привет..."))
		Expect(logger.Truncate("short", 10)).To(Equal("short"))
	})
})
