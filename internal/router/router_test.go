package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/helpdesk-bot/internal/handler"
	"github.com/psds-microservice/helpdesk-bot/internal/router"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

func TestRouter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Router Suite")
}

type queueFunc func(ctx context.Context, u transport.Update) error

func (f queueFunc) Submit(ctx context.Context, u transport.Update) error { return f(ctx, u) }

var _ = Describe("Router", func() {
	var (
		h      http.Handler
		queued []transport.Update
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		queued = nil
		backend, err := store.NewFileBackend(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		st := store.New(backend)
		activity := service.NewActivityLog(st.Activity)

		h = router.New(router.Deps{
			Updates: handler.NewUpdateHandler(queueFunc(func(_ context.Context, u transport.Update) error {
				queued = append(queued, u)
				return nil
			})),
			Admin:    handler.NewAdminHandler(service.NewTicketService(st.Tickets, activity, nil), service.NewFAQService(st.FAQ), activity),
			AdminKey: "k",
		})
	})

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	It("serves health and readiness", func() {
		Expect(serve(http.MethodGet, router.PathHealth, "").Code).To(Equal(http.StatusOK))
		Expect(serve(http.MethodGet, router.PathReady, "").Code).To(Equal(http.StatusOK))
	})

	It("serves the embedded OpenAPI document", func() {
		w := serve(http.MethodGet, router.PathSwagger+"/openapi.json", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"/api/v1/updates"`))
	})

	It("redirects the bare swagger path", func() {
		w := serve(http.MethodGet, router.PathSwagger, "")
		Expect(w.Code).To(Equal(http.StatusFound))
	})

	It("accepts updates without the admin key", func() {
		w := serve(http.MethodPost, router.PathAPIV1+"/updates", `{"from":{"id":3},"text":"/help"}`)
		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(queued).To(HaveLen(1))
	})

	It("protects the admin endpoints", func() {
		Expect(serve(http.MethodGet, router.PathAPIV1+"/stats", "").Code).To(Equal(http.StatusUnauthorized))
	})
})
