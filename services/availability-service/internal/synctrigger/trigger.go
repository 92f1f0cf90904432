// Package synctrigger asks the calendar sync collaborator to refresh a
// provider's events without holding up the slot query that noticed it.
package synctrigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	otelx "github.com/md-rashed-zaman/slotwise/libs/otel"
)

type Config struct {
	// Window is the minimum gap between two requests for one provider.
	Window      time.Duration
	Timeout     time.Duration
	MaxInFlight int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 5 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 16
	}
	return c
}

// Trigger runs each request as a detached task with its own timeout. When
// MaxInFlight tasks are already running new requests are dropped.
type Trigger struct {
	pub      Publisher
	throttle Throttle
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	sem      chan struct{}
	wg       sync.WaitGroup
}

func New(pub Publisher, throttle Throttle, cfg Config, logger *slog.Logger) *Trigger {
	cfg = cfg.withDefaults()
	if throttle == nil {
		throttle = NewMemoryThrottle()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		pub:      pub,
		throttle: throttle,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sem:      make(chan struct{}, cfg.MaxInFlight),
	}
}

// Request never blocks and never fails the caller. The request context only
// contributes its trace; cancelling it does not cancel the task.
func (t *Trigger) Request(ctx context.Context, providerID, reason string) {
	select {
	case t.sem <- struct{}{}:
	default:
		t.logger.Warn("sync trigger saturated, dropping request", "provider_id", providerID, "reason", reason)
		return
	}

	carry := otelx.CarryFrom(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() { <-t.sem }()

		ctx, cancel := context.WithTimeout(carry.Into(context.Background()), t.cfg.Timeout)
		defer cancel()
		t.run(ctx, providerID, reason)
	}()
}

func (t *Trigger) run(ctx context.Context, providerID, reason string) {
	ok, err := t.throttle.Allow(ctx, providerID, t.cfg.Window)
	if err != nil {
		t.logger.Warn("sync throttle unavailable", "provider_id", providerID, "err", err)
		return
	}
	if !ok {
		return
	}
	req := SyncRequest{
		EventID:     uuid.NewString(),
		ProviderID:  providerID,
		Reason:      reason,
		RequestedAt: t.now().UTC(),
	}
	if err := t.pub.Publish(ctx, req); err != nil {
		t.logger.Error("sync request failed", "provider_id", providerID, "reason", reason, "err", err)
		return
	}
	t.logger.Debug("sync requested", "provider_id", providerID, "reason", reason, "event_id", req.EventID)
}

// Wait blocks until in-flight tasks finish or ctx is done.
func (t *Trigger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
