package model

import (
	"slices"
	"testing"
	"time"
)

func TestProviderNormalize(t *testing.T) {
	p := Provider{AllowedDurations: []int{60, 30, 0, 60, -5}, ServiceTypes: []string{" consultation ", ""}}.Normalize()
	if p.DefaultDuration != DefaultDurationMinutes || p.AdvanceBookingDays != DefaultAdvanceBookingDays {
		t.Fatalf("expected defaults, got %+v", p)
	}
	if !slices.Equal(p.AllowedDurations, []int{30, 60}) {
		t.Fatalf("expected [30 60], got %v", p.AllowedDurations)
	}
	if !slices.Equal(p.ServiceTypes, []string{"consultation"}) {
		t.Fatalf("expected trimmed services, got %v", p.ServiceTypes)
	}
}

func TestProviderNormalizeEmptyDurations(t *testing.T) {
	p := Provider{DefaultDuration: 45}.Normalize()
	if !slices.Equal(p.AllowedDurations, []int{45}) {
		t.Fatalf("expected [45], got %v", p.AllowedDurations)
	}
}

func TestManualSliceDuration(t *testing.T) {
	p := Provider{DefaultDuration: 45, AllowedDurations: []int{60, 30}}.Normalize()
	if got := p.ManualSliceDuration(); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	p = Provider{DefaultDuration: 60, AllowedDurations: []int{60, 30}}.Normalize()
	if got := p.ManualSliceDuration(); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
}

func TestBookingActive(t *testing.T) {
	for status, want := range map[string]bool{"CONFIRMED": true, "PENDING": true, "CANCELLED": false, "no_show": false} {
		if got := (Booking{Status: status}).Active(); got != want {
			t.Fatalf("status %s: expected %v, got %v", status, want, got)
		}
	}
}

func TestCalendarEventBookable(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	e := CalendarEvent{Start: start, End: start.Add(time.Hour), AllowBookings: true, MaxBookings: 2, CurrentBookings: 1}
	if !e.Bookable() {
		t.Fatalf("expected bookable")
	}
	e.CurrentBookings = 2
	if e.Bookable() {
		t.Fatalf("expected full event to be unbookable")
	}
	e.CurrentBookings = 0
	e.Status = "Cancelled"
	if e.Bookable() {
		t.Fatalf("expected cancelled event to be unbookable")
	}
}
