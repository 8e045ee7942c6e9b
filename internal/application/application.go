package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/psds-microservice/helpdesk-bot/internal/auth"
	"github.com/psds-microservice/helpdesk-bot/internal/config"
	"github.com/psds-microservice/helpdesk-bot/internal/conversation"
	"github.com/psds-microservice/helpdesk-bot/internal/database"
	"github.com/psds-microservice/helpdesk-bot/internal/dispatch"
	"github.com/psds-microservice/helpdesk-bot/internal/handler"
	"github.com/psds-microservice/helpdesk-bot/internal/kafka"
	"github.com/psds-microservice/helpdesk-bot/internal/mq"
	"github.com/psds-microservice/helpdesk-bot/internal/notify"
	"github.com/psds-microservice/helpdesk-bot/internal/router"
	"github.com/psds-microservice/helpdesk-bot/internal/service"
	"github.com/psds-microservice/helpdesk-bot/internal/session"
	"github.com/psds-microservice/helpdesk-bot/internal/store"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
	"github.com/psds-microservice/helpdesk-bot/internal/webhook"
)

// Core — хранилище и сервисы без транспорта. Используется и API, и CLI-командами.
type Core struct {
	Store    *store.Store
	Activity *service.ActivityLog
	Tickets  *service.TicketService
	FAQ      *service.FAQService
	Events   *kafka.Producer

	closers []io.Closer
}

// NewCore opens the configured backend, creates missing collections and seeds the FAQ.
func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	st := store.New(backend)
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("store init: %w", err)
	}

	events := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	activity := service.NewActivityLog(st.Activity)
	return &Core{
		Store:    st,
		Activity: activity,
		Tickets:  service.NewTicketService(st.Tickets, activity, events),
		FAQ:      service.NewFAQService(st.FAQ),
		Events:   events,
		closers:  []io.Closer{events},
	}, nil
}

func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return store.NewPostgresBackend(db), nil
	default:
		b, err := store.NewFileBackend(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return b, nil
	}
}

func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			slog.Warn("application: close", "error", err)
		}
	}
}

// API приложение: HTTP-приём обновлений, диспетчер, опциональный Kafka-консьюмер.
type API struct {
	cfg        *config.Config
	core       *Core
	dispatcher *dispatch.Dispatcher
	updates    *kafka.UpdateReader
	httpSrv    *http.Server
	closers    []io.Closer
}

func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	core, err := NewCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &API{cfg: cfg, core: core}
	if err := a.build(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *API) build() error {
	cfg := a.cfg

	sessions, err := a.openSessions()
	if err != nil {
		return err
	}
	sender, err := a.openOutbox()
	if err != nil {
		return err
	}

	authz := auth.NewAuthorizer(cfg.AdminIDs)
	if len(authz.Admins()) == 0 {
		slog.Warn("application: ADMIN_IDS is empty, admin features are unreachable")
	}
	bot := conversation.New(conversation.Deps{
		Auth:       authz,
		Sessions:   sessions,
		Tickets:    a.core.Tickets,
		FAQ:        a.core.FAQ,
		Activity:   a.core.Activity,
		Notifier:   notify.NewNotifier(sender, authz.Admins()),
		Sender:     sender,
		FAQEnabled: cfg.FAQEnabled,
	})
	a.dispatcher = dispatch.New(bot, dispatch.Config{Workers: cfg.Dispatch.Workers, QueueSize: cfg.Dispatch.QueueSize})

	if cfg.KafkaTopicUpdates != "" && len(cfg.KafkaBrokers) > 0 {
		a.updates = kafka.NewUpdateReader(cfg.KafkaBrokers, cfg.KafkaTopicUpdates, cfg.KafkaGroupID)
		a.closers = append(a.closers, a.updates)
	}

	h := router.New(router.Deps{
		Updates:  handler.NewUpdateHandler(a.dispatcher),
		Admin:    handler.NewAdminHandler(a.core.Tickets, a.core.FAQ, a.core.Activity),
		AdminKey: cfg.AdminAPIKey,
		Ready: func(ctx context.Context) error {
			_, err := a.core.Store.Tickets.Load(ctx)
			return err
		},
	})
	a.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

func (a *API) openSessions() (session.Store, error) {
	if a.cfg.Session.Driver != config.SessionRedis {
		return session.NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(a.cfg.Session.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client)
	return session.NewRedisStore(client, a.cfg.Session.KeyPrefix), nil
}

func (a *API) openOutbox() (transport.Sender, error) {
	switch a.cfg.Outbox.Driver {
	case config.OutboxKafka:
		w := kafka.NewEffectWriter(a.cfg.KafkaBrokers, a.cfg.KafkaTopicEffects)
		a.closers = append(a.closers, w)
		return transport.NewOutbox(w), nil
	case config.OutboxRabbitMQ:
		p, err := mq.NewRabbitPublisher(a.cfg.RabbitURL, a.cfg.RabbitExchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.closers = append(a.closers, p)
		return transport.NewOutbox(p), nil
	case config.OutboxWebhook:
		c := webhook.NewClient(a.cfg.Outbox.WebhookURL)
		a.closers = append(a.closers, c)
		return transport.NewOutbox(c), nil
	default:
		return transport.LogSender{}, nil
	}
}

// Run запускает HTTP-сервер, диспетчер и консьюмер; блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	defer a.close()

	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	slog.Info("HTTP server listening", "addr", a.httpSrv.Addr)
	slog.Info("  Swagger UI", "url", base+router.PathSwagger)
	slog.Info("  Health", "url", base+router.PathHealth)
	slog.Info("  Updates", "url", base+router.PathAPIV1+"/updates")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	if a.updates != nil {
		g.Go(func() error { return a.updates.Run(gctx, a.dispatcher.Submit) })
	}
	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (a *API) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("application: close", "error", err)
		}
	}
	a.core.Close()
}
