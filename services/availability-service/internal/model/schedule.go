package model

import (
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

// Window is an open wall-clock range [Start, End) on one date.
type Window struct {
	Start tz.Clock
	End   tz.Clock
}

func (w Window) Valid() bool { return w.Start >= 0 && w.End <= tz.EndOfDay && w.End > w.Start }

type RecurringWindow struct {
	Weekday time.Weekday
	Window
}

type AvailabilityTemplate struct {
	ID         string
	ProviderID string
	Name       string
	Timezone   string
	IsDefault  bool
	IsActive   bool
	Windows    []RecurringWindow
	CreatedAt  time.Time
}

// WindowsOn returns the template's windows for weekday, in stored order.
func (t AvailabilityTemplate) WindowsOn(weekday time.Weekday) []Window {
	var out []Window
	for _, w := range t.Windows {
		if w.Weekday == weekday {
			out = append(out, w.Window)
		}
	}
	return out
}

// TemplateAssignment binds a template to [StartDate, EndDate]; a nil EndDate
// is open-ended.
type TemplateAssignment struct {
	ID         string
	ProviderID string
	TemplateID string
	StartDate  tz.Date
	EndDate    *tz.Date
	CreatedAt  time.Time
}

func (a TemplateAssignment) Covers(d tz.Date) bool { return d.Within(a.StartDate, a.EndDate) }

// AdvancedSchedule replaces every template for a single date. An empty
// Windows list closes the date.
type AdvancedSchedule struct {
	ID         string
	ProviderID string
	Date       tz.Date
	Timezone   string
	Windows    []Window
	CreatedAt  time.Time
}
