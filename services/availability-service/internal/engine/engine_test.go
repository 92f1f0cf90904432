package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/resolver"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

type fakeRepo struct {
	provider    model.Provider
	templates   []model.AvailabilityTemplate
	assignments []model.TemplateAssignment
	schedules   []model.AdvancedSchedule
	events      []model.CalendarEvent
	bookings    []model.Booking
	locations   []model.ProviderLocation
	eventsErr   error
}

func (f *fakeRepo) Provider(ctx context.Context, id string) (model.Provider, error) {
	if err := ctx.Err(); err != nil {
		return model.Provider{}, err
	}
	if id != f.provider.ID {
		return model.Provider{}, ErrProviderNotFound
	}
	return f.provider, nil
}

func (f *fakeRepo) Templates(ctx context.Context, _ string) ([]model.AvailabilityTemplate, error) {
	return f.templates, ctx.Err()
}

func (f *fakeRepo) Assignments(ctx context.Context, _ string, _, _ tz.Date) ([]model.TemplateAssignment, error) {
	return f.assignments, ctx.Err()
}

func (f *fakeRepo) AdvancedSchedules(ctx context.Context, _ string, _, _ tz.Date) ([]model.AdvancedSchedule, error) {
	return f.schedules, ctx.Err()
}

func (f *fakeRepo) CalendarEvents(ctx context.Context, _ string, _, _ time.Time) ([]model.CalendarEvent, error) {
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, ctx.Err()
}

func (f *fakeRepo) Bookings(ctx context.Context, _ string, _, _ time.Time) ([]model.Booking, error) {
	return f.bookings, ctx.Err()
}

func (f *fakeRepo) Locations(ctx context.Context, _ string) ([]model.ProviderLocation, error) {
	return f.locations, ctx.Err()
}

type recordingSync struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingSync) Request(_ context.Context, providerID, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, providerID+":"+reason)
}

const zone = "America/New_York"

var (
	ny     = mustZone(zone)
	monday = tz.Date{Year: 2026, Month: time.June, Day: 1}
)

func mustZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func local(d tz.Date, h, m int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, h, m, 0, 0, ny)
}

func weekdayTemplate(start, end tz.Clock) model.AvailabilityTemplate {
	t := model.AvailabilityTemplate{ID: "tpl", Timezone: zone, IsDefault: true, IsActive: true}
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		t.Windows = append(t.Windows, model.RecurringWindow{Weekday: wd, Window: model.Window{Start: start, End: end}})
	}
	return t
}

func newEngine(t *testing.T, repo *fakeRepo, now time.Time, opts Options) *Engine {
	t.Helper()
	loader, err := tz.NewLoader(tz.DefaultFallback, nil)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	opts.Now = func() time.Time { return now }
	return New(repo, loader, opts)
}

func TestScenarioBufferedMorning(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", Name: "Dr. Q", DefaultDuration: 60, BufferMinutes: 15, AllowedDurations: []int{60}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 12*60)},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})

	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Timezone != zone || res.StartDate != monday || res.DaysAhead != 1 {
		t.Fatalf("unexpected result header %+v", res)
	}
	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(res.Slots), res.Slots)
	}
	if !res.Slots[0].Start.Equal(local(monday, 9, 0)) || !res.Slots[1].Start.Equal(local(monday, 10, 15)) {
		t.Fatalf("expected 09:00 and 10:15 local, got %s and %s", res.Slots[0].Start.In(ny), res.Slots[1].Start.In(ny))
	}
	for _, s := range res.Slots {
		if s.Source != model.SourceAutomatic || s.RemainingCapacity != 1 || s.ID == "" {
			t.Fatalf("unexpected slot %+v", s)
		}
	}
}

func TestNoDoubleBookingAndDurationConformance(t *testing.T) {
	busyStart := local(monday, 10, 0)
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 60, BufferMinutes: 15, AllowedDurations: []int{30, 60}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(8*60, 13*60)},
		events: []model.CalendarEvent{
			{ID: "meeting", Start: busyStart, End: busyStart.Add(30 * time.Minute)},
		},
		bookings: []model.Booking{
			{ID: "b1", ScheduledAt: local(monday, 12, 0), DurationMinutes: 30, Status: "CONFIRMED"},
			{ID: "b2", ScheduledAt: local(monday, 8, 0), DurationMinutes: 60, Status: "CANCELLED"},
		},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{Step: 15 * time.Minute})

	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Slots) == 0 {
		t.Fatalf("expected slots")
	}

	busy := [][2]time.Time{
		{busyStart, busyStart.Add(30 * time.Minute)},
		{local(monday, 12, 0), local(monday, 12, 30)},
	}
	buffer := 15 * time.Minute
	sawCancelledWindow := false
	for _, s := range res.Slots {
		if !slices.Contains([]int{30, 60}, s.DurationMinutes) {
			t.Fatalf("slot duration %d not allowed", s.DurationMinutes)
		}
		if !s.End.Equal(s.Start.Add(time.Duration(s.DurationMinutes) * time.Minute)) {
			t.Fatalf("slot end does not match duration: %+v", s)
		}
		for _, b := range busy {
			if s.Start.Add(-buffer).Before(b[1]) && b[0].Before(s.End.Add(buffer)) {
				t.Fatalf("slot %s (%dm) overlaps busy %s", s.Start.In(ny), s.DurationMinutes, b[0].In(ny))
			}
		}
		if s.Start.Equal(local(monday, 8, 0)) {
			sawCancelledWindow = true
		}
	}
	if !sawCancelledWindow {
		t.Fatalf("expected cancelled booking not to block 08:00")
	}
}

func TestSixtyMinuteCandidatesAroundShortMeeting(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 60, BufferMinutes: 15, AllowedDurations: []int{60}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(8*60, 13*60)},
		events:    []model.CalendarEvent{{ID: "e", Start: local(monday, 10, 0), End: local(monday, 10, 30)}},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{Step: 15 * time.Minute})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, s := range res.Slots {
		lo, hi := s.Start.Add(-15*time.Minute), s.End.Add(15*time.Minute)
		if lo.Before(local(monday, 10, 30)) && local(monday, 10, 0).Before(hi) {
			t.Fatalf("slot at %s should be suppressed", s.Start.In(ny).Format("15:04"))
		}
	}
	if !res.Slots[0].Start.Equal(local(monday, 8, 0)) {
		t.Fatalf("expected first slot 08:00, got %s", res.Slots[0].Start.In(ny))
	}
}

func TestFutureOnly(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 30, AllowedDurations: []int{30}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 12*60)},
	}
	now := local(monday, 10, 0)
	e := newEngine(t, repo, now, Options{})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, s := range res.Slots {
		if !s.Start.After(now.Add(15 * time.Minute)) {
			t.Fatalf("slot %s is not in the future past the guard", s.Start.In(ny))
		}
	}
	if len(res.Slots) != 3 || !res.Slots[0].Start.Equal(local(monday, 10, 30)) {
		t.Fatalf("expected 10:30, 11:00, 11:30, got %+v", res.Slots)
	}
}

func TestManualSlotsAndDedup(t *testing.T) {
	evStart := local(monday, 14, 0)
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 60, AllowedDurations: []int{60}, ServiceTypes: []string{"consultation"}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(14*60, 15*60)},
		events: []model.CalendarEvent{{
			ID: "clinic", Start: evStart, End: evStart.Add(3 * time.Hour),
			AllowBookings: true, MaxBookings: 3, CurrentBookings: 1,
			Location: "Room 4", ServiceTypes: []string{"massage"},
		}},
		bookings: []model.Booking{
			{ID: "taken", CalendarEventID: "clinic", ScheduledAt: evStart.Add(time.Hour), DurationMinutes: 60, Status: "CONFIRMED"},
		},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(res.Slots), res.Slots)
	}
	first, second := res.Slots[0], res.Slots[1]
	if !first.Start.Equal(evStart) || first.Source != model.SourceManual {
		t.Fatalf("expected manual slot to win the 14:00 collision, got %+v", first)
	}
	if first.RemainingCapacity != 2 || first.LocationDisplay != "Room 4" || first.CalendarEventID != "clinic" {
		t.Fatalf("unexpected manual slot fields %+v", first)
	}
	if !second.Start.Equal(evStart.Add(2 * time.Hour)) {
		t.Fatalf("expected 16:00 manual slot, got %s", second.Start.In(ny))
	}
}

func TestBookableEventBlocksAutomaticSlots(t *testing.T) {
	evStart := local(monday, 10, 0)
	evEnd := evStart.Add(time.Hour)
	buffer := 15 * time.Minute

	for _, current := range []int{0, 5} {
		repo := &fakeRepo{
			provider:  model.Provider{ID: "p1", DefaultDuration: 60, BufferMinutes: 15, AllowedDurations: []int{60}},
			templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 12*60)},
			events: []model.CalendarEvent{{
				ID: "group", Start: evStart, End: evEnd,
				AllowBookings: true, MaxBookings: 5, CurrentBookings: current,
			}},
		}
		e := newEngine(t, repo, local(monday, 6, 0), Options{})
		res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
		if err != nil {
			t.Fatalf("current=%d: expected no error, got %v", current, err)
		}

		var manual []model.GeneratedSlot
		for _, s := range res.Slots {
			if s.Source == model.SourceManual {
				manual = append(manual, s)
				continue
			}
			if s.Start.Add(-buffer).Before(evEnd) && evStart.Before(s.End.Add(buffer)) {
				t.Fatalf("current=%d: automatic slot %s-%s overlaps event", current, s.Start.In(ny), s.End.In(ny))
			}
		}
		switch current {
		case 0:
			if len(manual) != 1 || !manual[0].Start.Equal(evStart) || manual[0].RemainingCapacity != 5 {
				t.Fatalf("expected one manual 10:00 slot with capacity 5, got %+v", manual)
			}
		default:
			if len(manual) != 0 {
				t.Fatalf("expected full event to offer no manual slots, got %+v", manual)
			}
		}
	}
}

func TestServiceTypeFilterPreservesOrder(t *testing.T) {
	evStart := local(monday, 15, 0)
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 30, AllowedDurations: []int{30}, ServiceTypes: []string{"consultation", "follow-up"}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 11*60)},
		events: []model.CalendarEvent{{
			ID: "group", Start: evStart, End: evStart.Add(time.Hour),
			AllowBookings: true, MaxBookings: 5, ServiceTypes: []string{"yoga"},
		}},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	all, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	filtered, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1, ServiceType: "Consultation"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var want []string
	for _, s := range all.Slots {
		if slices.Contains(s.AvailableServices, "consultation") {
			want = append(want, s.ID)
		}
	}
	var got []string
	for _, s := range filtered.Slots {
		got = append(got, s.ID)
	}
	if len(got) == 0 || !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(filtered.Slots) == len(all.Slots) {
		t.Fatalf("expected yoga slots to be removed")
	}
}

func TestPrecedenceFlowsIntoSlots(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 60, AllowedDurations: []int{60}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 10*60)},
		schedules: []model.AdvancedSchedule{{ID: "s", Date: monday, Windows: []model.Window{{Start: 18 * 60, End: 19 * 60}}}},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %+v", res.Slots)
	}
	if !res.Slots[0].Start.Equal(local(monday, 18, 0)) {
		t.Fatalf("expected advanced schedule slot at 18:00, got %s", res.Slots[0].Start.In(ny))
	}
	if !res.Slots[1].Start.Equal(local(monday.AddDays(1), 9, 0)) {
		t.Fatalf("expected template slot on tuesday, got %s", res.Slots[1].Start.In(ny))
	}
}

func TestWallTimeHeldAcrossDST(t *testing.T) {
	before := tz.Date{Year: 2026, Month: time.March, Day: 6}
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", DefaultDuration: 60, AllowedDurations: []int{60}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 10*60)},
	}
	e := newEngine(t, repo, local(before, 6, 0), Options{})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 4})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Slots) != 2 {
		t.Fatalf("expected friday and monday slots, got %+v", res.Slots)
	}
	if h := res.Slots[0].Start.UTC().Hour(); h != 14 {
		t.Fatalf("expected 14:00Z before DST, got %d", h)
	}
	if h := res.Slots[1].Start.UTC().Hour(); h != 13 {
		t.Fatalf("expected 13:00Z after DST, got %d", h)
	}
}

func TestDaysAheadClampedToHorizon(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", AdvanceBookingDays: 3},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 10*60)},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 90})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.DaysAhead != 3 {
		t.Fatalf("expected 3 days, got %d", res.DaysAhead)
	}
	last := res.Slots[len(res.Slots)-1].Start.In(ny)
	if tz.DateOf(last) != monday.AddDays(2) {
		t.Fatalf("expected last slot on %s, got %s", monday.AddDays(2), last)
	}
}

func TestDeterministicSlotIDs(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1", AllowedDurations: []int{30}},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 12*60)},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	a, _ := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	b, _ := e.Slots(context.Background(), Query{ProviderID: "p1", DaysAhead: 1})
	if len(a.Slots) == 0 || len(a.Slots) != len(b.Slots) {
		t.Fatalf("expected equal non-empty results")
	}
	for i := range a.Slots {
		if a.Slots[i].ID != b.Slots[i].ID {
			t.Fatalf("slot %d id changed between calls", i)
		}
	}
}

func TestErrorsAndSync(t *testing.T) {
	repo := &fakeRepo{provider: model.Provider{ID: "p1"}}
	rec := &recordingSync{}
	e := newEngine(t, repo, local(monday, 6, 0), Options{Sync: rec})

	if _, err := e.Slots(context.Background(), Query{}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := e.Slots(context.Background(), Query{ProviderID: "nope"}); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}

	repo.eventsErr = errors.New("db down")
	res, err := e.Slots(context.Background(), Query{ProviderID: "p1"})
	if err == nil || len(res.Slots) != 0 {
		t.Fatalf("expected error with no slots, got %v %+v", err, res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Slots(ctx, Query{ProviderID: "p1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if len(rec.calls) != 1 || rec.calls[0] != "p1:slot_query" {
		t.Fatalf("expected one sync request for p1, got %v", rec.calls)
	}
}

func TestDayView(t *testing.T) {
	repo := &fakeRepo{
		provider:  model.Provider{ID: "p1"},
		templates: []model.AvailabilityTemplate{weekdayTemplate(9*60, 17*60)},
		locations: []model.ProviderLocation{{ID: "l", City: "Boston", IsDefault: true}},
	}
	e := newEngine(t, repo, local(monday, 6, 0), Options{})
	view, err := e.Day(context.Background(), "p1", monday)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if view.Plan.Source != resolver.KindDefaultTemplate || view.Timezone != zone || view.LocationDisplay != "Boston" {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, err := e.Day(context.Background(), "p1", tz.Date{}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}
