// Package resolver picks, for each calendar date, the availability source
// that governs it and yields that date's open wall-clock windows.
//
// Precedence is advanced schedule, then covering template assignment, then
// the provider's default active template. Ties are broken deterministically:
// assignments by latest start date, then latest creation, then greatest ID;
// duplicate defaults and duplicate schedules for one date by latest creation,
// then greatest ID.
package resolver

import (
	"cmp"
	"slices"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// Snapshot is everything the resolver reads, loaded once per request.
type Snapshot struct {
	Templates   []model.AvailabilityTemplate
	Assignments []model.TemplateAssignment
	Schedules   []model.AdvancedSchedule
}

type Resolver struct {
	templates   map[string]model.AvailabilityTemplate
	def         *model.AvailabilityTemplate
	assignments []model.TemplateAssignment
	schedules   map[tz.Date]model.AdvancedSchedule
	fallbackTZ  string
}

// DayPlan is the outcome of resolving one date.
type DayPlan struct {
	Date                  tz.Date
	Source                Kind
	TemplateID            string
	AssignmentID          string
	ScheduleID            string
	Windows               []model.Window
	Timezone              string
	UsingAdvancedSchedule bool
}

func New(snap Snapshot, fallbackTZ string) *Resolver {
	r := &Resolver{
		templates:  make(map[string]model.AvailabilityTemplate, len(snap.Templates)),
		schedules:  make(map[tz.Date]model.AdvancedSchedule, len(snap.Schedules)),
		fallbackTZ: fallbackTZ,
	}

	for _, t := range snap.Templates {
		r.templates[t.ID] = t
		if !t.IsDefault || !t.IsActive {
			continue
		}
		if r.def == nil || newer(t.CreatedAt, t.ID, r.def.CreatedAt, r.def.ID) {
			r.def = &t
		}
	}

	for _, s := range snap.Schedules {
		cur, ok := r.schedules[s.Date]
		if !ok || newer(s.CreatedAt, s.ID, cur.CreatedAt, cur.ID) {
			r.schedules[s.Date] = s
		}
	}

	r.assignments = slices.Clone(snap.Assignments)
	slices.SortFunc(r.assignments, func(a, b model.TemplateAssignment) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return r
}

func newer(at time.Time, id string, thanAt time.Time, thanID string) bool {
	if c := at.Compare(thanAt); c != 0 {
		return c > 0
	}
	return id > thanID
}

// ProviderTimezone is the zone of the default active template, else the
// fallback. It anchors "today" for the provider.
func (r *Resolver) ProviderTimezone() string {
	if r.def != nil && r.def.Timezone != "" {
		return r.def.Timezone
	}
	return r.fallbackTZ
}

// Select returns the governing source for date.
func (r *Resolver) Select(date tz.Date) Source {
	if s, ok := r.schedules[date]; ok {
		return AdvancedScheduleSource{Schedule: s}
	}
	for _, a := range r.assignments {
		if !a.Covers(date) {
			continue
		}
		t, ok := r.templates[a.TemplateID]
		if !ok || !t.IsActive {
			continue
		}
		return AssignmentSource{Assignment: a, Template: t}
	}
	if r.def != nil {
		return DefaultTemplateSource{Template: *r.def}
	}
	return NoSource{}
}

// Resolve returns the open windows of date, sorted by start. Empty or
// inverted windows are dropped; windows crossing midnight are not supported.
func (r *Resolver) Resolve(date tz.Date) DayPlan {
	plan := DayPlan{Date: date, Timezone: r.ProviderTimezone()}

	var windows []model.Window
	switch src := r.Select(date).(type) {
	case AdvancedScheduleSource:
		plan.Source = KindAdvancedSchedule
		plan.ScheduleID = src.Schedule.ID
		plan.UsingAdvancedSchedule = true
		plan.Timezone = firstNonEmpty(src.Schedule.Timezone, plan.Timezone)
		windows = src.Schedule.Windows
	case AssignmentSource:
		plan.Source = KindAssignment
		plan.AssignmentID = src.Assignment.ID
		plan.TemplateID = src.Template.ID
		plan.Timezone = firstNonEmpty(src.Template.Timezone, plan.Timezone)
		windows = src.Template.WindowsOn(date.Weekday())
	case DefaultTemplateSource:
		plan.Source = KindDefaultTemplate
		plan.TemplateID = src.Template.ID
		windows = src.Template.WindowsOn(date.Weekday())
	default:
		plan.Source = KindNone
	}

	plan.Windows = make([]model.Window, 0, len(windows))
	for _, w := range windows {
		if w.Valid() {
			plan.Windows = append(plan.Windows, w)
		}
	}
	slices.SortStableFunc(plan.Windows, func(a, b model.Window) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	return plan
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
