// Package busy turns synced calendar events and active bookings into the
// provider's busy intervals.
package busy

import (
	"cmp"
	"slices"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
)

type Source string

const (
	SourceCalendarEvent Source = "calendar_event"
	SourceBooking       Source = "booking"
)

// Interval is a half-open busy range [Start, End).
type Interval struct {
	Start  time.Time
	End    time.Time
	Source Source
	RefID  string
}

// Overlaps reports whether [start, end) intersects the interval.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// Aggregate collects every busy interval intersecting [rangeStart, rangeEnd),
// sorted by start. Overlapping intervals are kept apart; the conflict filter
// applies buffers to each one independently.
//
// Cancelled events are ignored. Events open for booking still block
// automatic slots; their manual sub-slots are checked with ForEvent instead.
func Aggregate(events []model.CalendarEvent, bookings []model.Booking, rangeStart, rangeEnd time.Time) []Interval {
	out := make([]Interval, 0, len(events)+len(bookings))
	inRange := func(start, end time.Time) bool {
		return end.After(start) && start.Before(rangeEnd) && end.After(rangeStart)
	}

	for _, e := range events {
		if e.Cancelled() {
			continue
		}
		if inRange(e.Start, e.End) {
			out = append(out, Interval{Start: e.Start, End: e.End, Source: SourceCalendarEvent, RefID: e.ID})
		}
	}
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		if end := b.End(); inRange(b.ScheduledAt, end) {
			out = append(out, Interval{Start: b.ScheduledAt, End: end, Source: SourceBooking, RefID: b.ID})
		}
	}

	slices.SortFunc(out, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := a.End.Compare(b.End); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.RefID, b.RefID)
	})
	return out
}

// ForEvent returns the active bookings attached to one calendar event as
// intervals, sorted by start.
func ForEvent(eventID string, bookings []model.Booking) []Interval {
	var out []Interval
	for _, b := range bookings {
		if b.CalendarEventID != eventID || !b.Active() || b.DurationMinutes <= 0 {
			continue
		}
		out = append(out, Interval{Start: b.ScheduledAt, End: b.End(), Source: SourceBooking, RefID: b.ID})
	}
	slices.SortFunc(out, func(a, b Interval) int { return a.Start.Compare(b.Start) })
	return out
}
