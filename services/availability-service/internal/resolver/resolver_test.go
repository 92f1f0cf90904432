package resolver

import (
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

var (
	monday     = tz.Date{Year: 2026, Month: time.June, Day: 1}
	created    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nineToFive = model.Window{Start: 9 * 60, End: 17 * 60}
)

func template(id string, isDefault bool, tzName string, windows ...model.Window) model.AvailabilityTemplate {
	t := model.AvailabilityTemplate{ID: id, Timezone: tzName, IsDefault: isDefault, IsActive: true, CreatedAt: created}
	for _, w := range windows {
		t.Windows = append(t.Windows, model.RecurringWindow{Weekday: time.Monday, Window: w})
	}
	return t
}

func ptr(d tz.Date) *tz.Date { return &d }

func TestPrecedenceAdvancedOverAssignmentOverDefault(t *testing.T) {
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{
			template("default", true, "America/Chicago", nineToFive),
			template("summer", false, "Europe/Berlin", model.Window{Start: 8 * 60, End: 12 * 60}),
		},
		Assignments: []model.TemplateAssignment{
			{ID: "a1", TemplateID: "summer", StartDate: monday.AddDays(-7), EndDate: ptr(monday.AddDays(7)), CreatedAt: created},
		},
		Schedules: []model.AdvancedSchedule{
			{ID: "s1", Date: monday, Timezone: "Asia/Tokyo", Windows: []model.Window{{Start: 13 * 60, End: 14 * 60}}, CreatedAt: created},
		},
	}
	r := New(snap, tz.DefaultFallback)

	plan := r.Resolve(monday)
	if plan.Source != KindAdvancedSchedule || !plan.UsingAdvancedSchedule || plan.Timezone != "Asia/Tokyo" {
		t.Fatalf("expected advanced schedule in Asia/Tokyo, got %+v", plan)
	}

	next := monday.AddDays(7)
	plan = r.Resolve(next)
	if plan.Source != KindAssignment || plan.TemplateID != "summer" || plan.Timezone != "Europe/Berlin" {
		t.Fatalf("expected summer assignment, got %+v", plan)
	}

	later := monday.AddDays(14)
	plan = r.Resolve(later)
	if plan.Source != KindDefaultTemplate || plan.TemplateID != "default" || plan.Timezone != "America/Chicago" {
		t.Fatalf("expected default template, got %+v", plan)
	}
	if len(plan.Windows) != 1 || plan.Windows[0] != nineToFive {
		t.Fatalf("expected 09:00-17:00, got %v", plan.Windows)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{
			template("a", false, "", nineToFive),
			template("b", false, "", model.Window{Start: 10 * 60, End: 11 * 60}),
		},
		Assignments: []model.TemplateAssignment{
			{ID: "x", TemplateID: "a", StartDate: monday, CreatedAt: created},
			{ID: "y", TemplateID: "b", StartDate: monday, CreatedAt: created},
		},
	}
	first := New(snap, tz.DefaultFallback).Resolve(monday)
	for range 20 {
		snap.Assignments[0], snap.Assignments[1] = snap.Assignments[1], snap.Assignments[0]
		got := New(snap, tz.DefaultFallback).Resolve(monday)
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("expected identical plans, got %+v and %+v", first, got)
		}
	}
	if first.AssignmentID != "y" {
		t.Fatalf("expected greatest id to win a full tie, got %s", first.AssignmentID)
	}
}

func TestAssignmentTieBreak(t *testing.T) {
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{
			template("early", false, "", nineToFive),
			template("late-start", false, "", nineToFive),
			template("late-created", false, "", nineToFive),
		},
		Assignments: []model.TemplateAssignment{
			{ID: "1", TemplateID: "early", StartDate: monday.AddDays(-30), CreatedAt: created.Add(48 * time.Hour)},
			{ID: "2", TemplateID: "late-start", StartDate: monday.AddDays(-1), CreatedAt: created},
			{ID: "3", TemplateID: "late-created", StartDate: monday.AddDays(-1), CreatedAt: created.Add(time.Hour)},
		},
	}
	plan := New(snap, tz.DefaultFallback).Resolve(monday)
	if plan.TemplateID != "late-created" {
		t.Fatalf("expected late-created, got %s", plan.TemplateID)
	}
}

func TestInactiveAssignedTemplateIsSkipped(t *testing.T) {
	inactive := template("off", false, "", nineToFive)
	inactive.IsActive = false
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{inactive, template("default", true, "", nineToFive)},
		Assignments: []model.TemplateAssignment{
			{ID: "a", TemplateID: "off", StartDate: monday},
			{ID: "b", TemplateID: "missing", StartDate: monday},
		},
	}
	plan := New(snap, tz.DefaultFallback).Resolve(monday)
	if plan.Source != KindDefaultTemplate {
		t.Fatalf("expected default template, got %s", plan.Source)
	}
}

func TestNoTemplateYieldsNoWindowsAndFallbackTimezone(t *testing.T) {
	plan := New(Snapshot{}, tz.DefaultFallback).Resolve(monday)
	if plan.Source != KindNone || len(plan.Windows) != 0 || plan.Timezone != tz.DefaultFallback {
		t.Fatalf("expected empty plan in fallback zone, got %+v", plan)
	}
}

func TestEmptyAdvancedScheduleClosesDay(t *testing.T) {
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{template("default", true, "", nineToFive)},
		Schedules: []model.AdvancedSchedule{{ID: "closed", Date: monday}},
	}
	plan := New(snap, tz.DefaultFallback).Resolve(monday)
	if plan.Source != KindAdvancedSchedule || len(plan.Windows) != 0 {
		t.Fatalf("expected closed day, got %+v", plan)
	}
}

func TestWindowsSortedAndInvalidDropped(t *testing.T) {
	snap := Snapshot{
		Templates: []model.AvailabilityTemplate{template("default", true, "",
			model.Window{Start: 14 * 60, End: 16 * 60},
			model.Window{Start: 22 * 60, End: 2 * 60},
			model.Window{Start: 9 * 60, End: 12 * 60},
		)},
	}
	plan := New(snap, tz.DefaultFallback).Resolve(monday)
	want := []model.Window{{Start: 9 * 60, End: 12 * 60}, {Start: 14 * 60, End: 16 * 60}}
	if !reflect.DeepEqual(plan.Windows, want) {
		t.Fatalf("expected %v, got %v", want, plan.Windows)
	}
}

func TestDuplicateDefaultsPickNewest(t *testing.T) {
	older := template("older", true, "Europe/Rome", nineToFive)
	newer := template("newer", true, "Europe/Madrid", nineToFive)
	newer.CreatedAt = created.Add(time.Hour)
	r := New(Snapshot{Templates: []model.AvailabilityTemplate{newer, older}}, tz.DefaultFallback)
	if r.ProviderTimezone() != "Europe/Madrid" {
		t.Fatalf("expected Europe/Madrid, got %s", r.ProviderTimezone())
	}
}
