// Package dispatch feeds updates to the router. Updates of one user are
// handled strictly in arrival order; different users proceed concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/psds-microservice/helpdesk-bot/internal/logger"
	"github.com/psds-microservice/helpdesk-bot/internal/transport"
)

var ErrStopped = errors.New("dispatcher stopped")

// Handler обрабатывает одно обновление (conversation.Router).
type Handler interface {
	Handle(ctx context.Context, u transport.Update) error
}

type HandlerFunc func(ctx context.Context, u transport.Update) error

func (f HandlerFunc) Handle(ctx context.Context, u transport.Update) error { return f(ctx, u) }

type Config struct {
	Workers   int
	QueueSize int
}

type Dispatcher struct {
	handler Handler
	shards  []chan transport.Update

	// mu: Submit держит RLock на время отправки, остановка берёт Lock,
	// поэтому после закрытия done в очередь ничего не попадёт.
	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

func New(handler Handler, cfg Config) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	d := &Dispatcher{
		handler: handler,
		shards:  make([]chan transport.Update, cfg.Workers),
		done:    make(chan struct{}),
	}
	for i := range d.shards {
		d.shards[i] = make(chan transport.Update, cfg.QueueSize)
	}
	return d
}

// Shard returns the worker index for userID.
func (d *Dispatcher) Shard(userID int64) int {
	n := uint64(len(d.shards))
	return int(uint64(userID) % n)
}

// Submit queues u on its user's shard. Blocks while the shard is full.
func (d *Dispatcher) Submit(ctx context.Context, u transport.Update) error {
	if err := u.Normalize(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.shards[d.Shard(u.From.ID)] <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.once.Do(func() { close(d.done) })
}

// Run starts one goroutine per shard and blocks until ctx is cancelled.
// Updates still queued at that point are drained before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "dispatch: started", "workers", len(d.shards))

	var wg sync.WaitGroup
	for i, ch := range d.shards {
		wg.Add(1)
		go func(shard int, ch <-chan transport.Update) {
			defer wg.Done()
			d.work(ctx, shard, ch)
		}(i, ch)
	}

	<-ctx.Done()
	d.stop()
	wg.Wait()
	slog.InfoContext(ctx, "dispatch: stopped")
	return nil
}

func (d *Dispatcher) work(ctx context.Context, shard int, ch <-chan transport.Update) {
	// обработка оставшейся очереди идёт без отмены, иначе последние ответы потеряются
	handleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case u := <-ch:
			d.handleSafe(handleCtx, shard, u)
		case <-d.done:
			for {
				select {
				case u := <-ch:
					d.handleSafe(handleCtx, shard, u)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) handleSafe(ctx context.Context, shard int, u transport.Update) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(u.From.ID), UpdateID: u.ID})
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "dispatch: panic recovered", "shard", shard, "panic", fmt.Sprint(r))
		}
	}()
	if err := d.handler.Handle(ctx, u); err != nil {
		slog.WarnContext(ctx, "dispatch: update handled with error", "shard", shard, "error", err)
	}
}
