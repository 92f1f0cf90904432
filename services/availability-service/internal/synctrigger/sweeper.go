package synctrigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
)

type ConnectionReader interface {
	// StaleConnections returns connections never synced or last synced
	// before olderThan.
	StaleConnections(ctx context.Context, olderThan time.Time) ([]model.CalendarConnection, error)
}

type Requester interface {
	Request(ctx context.Context, providerID, reason string)
}

// Sweeper periodically requests a sync for providers whose calendars have
// gone stale, so busy data stays fresh for providers nobody is querying.
type Sweeper struct {
	reader     ConnectionReader
	trigger    Requester
	staleAfter time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
	cron       *cron.Cron
}

func NewSweeper(reader ConnectionReader, trigger Requester, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		reader:     reader,
		trigger:    trigger,
		staleAfter: staleAfter,
		timeout:    30 * time.Second,
		logger:     logger,
		now:        time.Now,
		cron:       cron.New(),
	}
}

// Start schedules the sweep with a cron spec such as "@every 10m".
func (s *Sweeper) Start(spec string) error {
	const op = "synctrigger.Sweeper.Start"

	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("stale sync sweep failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("%s: %q: %w", op, spec, err)
	}
	s.cron.Start()
	s.logger.Info("stale sync sweeper started", "schedule", spec, "stale_after", s.staleAfter.String())
	return nil
}

// Stop halts scheduling and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep requests one sync per provider with a stale connection and returns
// how many providers it asked for.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	const op = "synctrigger.Sweeper.Sweep"

	conns, err := s.reader.StaleConnections(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		if _, ok := seen[c.ProviderID]; ok || c.ProviderID == "" {
			continue
		}
		seen[c.ProviderID] = struct{}{}
		s.trigger.Request(ctx, c.ProviderID, "stale_connection")
	}
	if len(seen) > 0 {
		s.logger.Info("stale sync sweep", "providers", len(seen), "connections", len(conns))
	}
	return len(seen), nil
}
