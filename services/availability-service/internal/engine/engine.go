// Package engine resolves a provider's bookable slots over a date window.
//
// A query loads the provider, fans out the independent reads, then for each
// date resolves the governing windows, generates candidates per allowed
// duration, filters them against busy time and merges in manual slots from
// bookable calendar events.
package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/location"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/resolver"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// DefaultDaysAhead is the window length used when a query does not set one.
const DefaultDaysAhead = 14

// fetchPadDays widens every read so provider-local dates at either end of
// the window are fully covered whatever the zone offset.
const fetchPadDays = 2

var slotNamespace = uuid.MustParse("6f1c3a52-8d0e-4c1d-9a57-3b2f7e4d9c10")

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	// Step forces a fixed candidate step; zero selects the buffer-aware policy.
	Step             time.Duration
	SafetyBuffer     time.Duration
	DefaultDaysAhead int
	Now              func() time.Time
	Sync             SyncTrigger
	Logger           *slog.Logger
	Tracer           trace.Tracer
}

// Engine answers slot queries against a read-only Repository.
type Engine struct {
	repo   Repository
	tz     *tz.Loader
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

// New returns an Engine with defaults filled into opts.
func New(repo Repository, loader *tz.Loader, opts Options) *Engine {
	if opts.SafetyBuffer <= 0 {
		opts.SafetyBuffer = availability.DefaultSafetyBuffer
	}
	if opts.DefaultDaysAhead <= 0 {
		opts.DefaultDaysAhead = DefaultDaysAhead
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sync == nil {
		opts.Sync = nopSync{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("availability-service/engine")
	}
	return &Engine{repo: repo, tz: loader, opts: opts, logger: opts.Logger, tracer: opts.Tracer}
}

// Query selects a provider's slots over a date window.
type Query struct {
	ProviderID  string
	ServiceType string
	// DaysAhead <= 0 selects the default; it is clamped to the provider's
	// booking horizon.
	DaysAhead int
	// StartDate defaults to today in the provider's zone.
	StartDate tz.Date
}

// Result holds the slots of one query, sorted, with the effective window.
type Result struct {
	Provider  model.Provider
	Timezone  string
	StartDate tz.Date
	DaysAhead int
	Slots     []model.GeneratedSlot
}

// snapshot is every read one query needs.
type snapshot struct {
	templates   []model.AvailabilityTemplate
	assignments []model.TemplateAssignment
	schedules   []model.AdvancedSchedule
	events      []model.CalendarEvent
	bookings    []model.Booking
	locations   []model.ProviderLocation
}

// Slots returns the bookable slots for q. It fails with ErrInvalidQuery or
// ErrProviderNotFound, or with a wrapped read error.
func (e *Engine) Slots(ctx context.Context, q Query) (Result, error) {
	const op = "engine.Slots"

	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("provider.id", q.ProviderID)))
	defer span.End()

	res, err := e.slots(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	span.SetAttributes(attribute.Int("slots.count", len(res.Slots)))
	return res, nil
}

func (e *Engine) slots(ctx context.Context, q Query) (Result, error) {
	q.ProviderID = strings.TrimSpace(q.ProviderID)
	if q.ProviderID == "" {
		return Result{}, fmt.Errorf("%w: provider id is required", ErrInvalidQuery)
	}

	provider, err := e.repo.Provider(ctx, q.ProviderID)
	if err != nil {
		return Result{}, err
	}
	provider = provider.Normalize()

	e.opts.Sync.Request(ctx, provider.ID, "slot_query")

	days := q.DaysAhead
	if days <= 0 {
		days = e.opts.DefaultDaysAhead
	}
	days = max(1, min(days, provider.AdvanceBookingDays))

	now := e.opts.Now()
	anchor := q.StartDate
	if anchor.IsZero() {
		anchor = tz.DateOf(now.UTC())
	}
	from, to := anchor.AddDays(-fetchPadDays), anchor.AddDays(days+fetchPadDays)
	rangeStart := tz.ToInstant(from, 0, time.UTC)
	rangeEnd := tz.ToInstant(to, tz.EndOfDay, time.UTC)

	snap, err := e.load(ctx, provider.ID, from, to, rangeStart, rangeEnd)
	if err != nil {
		return Result{}, err
	}

	res := resolver.New(resolver.Snapshot{
		Templates:   snap.templates,
		Assignments: snap.assignments,
		Schedules:   snap.schedules,
	}, e.tz.FallbackName())
	providerLoc, providerTZ := e.tz.Load(res.ProviderTimezone())

	start := q.StartDate
	if start.IsZero() {
		start = tz.Today(now, providerLoc)
	}

	a := assembler{
		provider:  provider,
		now:       now,
		safety:    e.opts.SafetyBuffer,
		step:      availability.StepPolicy{Fixed: e.opts.Step, Buffer: minutes(provider.BufferMinutes)},
		buffer:    minutes(provider.BufferMinutes),
		busy:      busy.Aggregate(snap.events, snap.bookings, rangeStart, rangeEnd),
		locations: location.NewAnnotator(snap.locations),
		providerZ: providerLoc,
		first:     start,
		last:      start.AddDays(days - 1),
		slots:     make(map[slotKey]model.GeneratedSlot),
	}
	for d := range tz.Days(start, days) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		plan := res.Resolve(d)
		loc, _ := e.tz.Load(plan.Timezone)
		a.addPlan(plan, loc)
	}
	a.addManual(snap.events, snap.bookings)

	return Result{
		Provider:  provider,
		Timezone:  providerTZ,
		StartDate: start,
		DaysAhead: days,
		Slots:     filterService(a.sorted(), q.ServiceType),
	}, nil
}

// load issues the independent reads concurrently. Any failure cancels the
// rest and nothing partial is returned.
func (e *Engine) load(ctx context.Context, providerID string, from, to tz.Date, rangeStart, rangeEnd time.Time) (snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "engine.load")
	defer span.End()

	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.templates, err = e.repo.Templates(gctx, providerID)
		return wrap("templates", err)
	})
	g.Go(func() (err error) {
		snap.assignments, err = e.repo.Assignments(gctx, providerID, from, to)
		return wrap("assignments", err)
	})
	g.Go(func() (err error) {
		snap.schedules, err = e.repo.AdvancedSchedules(gctx, providerID, from, to)
		return wrap("advanced schedules", err)
	})
	g.Go(func() (err error) {
		snap.events, err = e.repo.CalendarEvents(gctx, providerID, rangeStart, rangeEnd)
		return wrap("calendar events", err)
	})
	g.Go(func() (err error) {
		snap.bookings, err = e.repo.Bookings(gctx, providerID, rangeStart, rangeEnd)
		return wrap("bookings", err)
	})
	g.Go(func() (err error) {
		snap.locations, err = e.repo.Locations(gctx, providerID)
		return wrap("locations", err)
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// SlotID is stable for a provider, start, duration and source so clients can
// refer to a slot across repeated queries.
func SlotID(providerID string, start time.Time, duration int, source model.SlotSource) string {
	name := providerID + "|" + start.UTC().Format(time.RFC3339) + "|" + strconv.Itoa(duration) + "|" + string(source)
	return uuid.NewSHA1(slotNamespace, []byte(name)).String()
}

func filterService(slots []model.GeneratedSlot, serviceType string) []model.GeneratedSlot {
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return slots
	}
	out := slots[:0]
	for _, s := range slots {
		if slices.ContainsFunc(s.AvailableServices, func(v string) bool { return strings.EqualFold(v, serviceType) }) {
			out = append(out, s)
		}
	}
	return out
}

func sourceRank(s model.SlotSource) int {
	if s == model.SourceManual {
		return 1
	}
	return 0
}

func compareSlots(a, b model.GeneratedSlot) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DurationMinutes, b.DurationMinutes); c != 0 {
		return c
	}
	return cmp.Compare(sourceRank(a.Source), sourceRank(b.Source))
}
