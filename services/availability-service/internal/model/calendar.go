package model

import (
	"strings"
	"time"
)

const (
	EventStatusCancelled = "cancelled"

	BookingStatusCancelled = "CANCELLED"
	BookingStatusNoShow    = "NO_SHOW"
)

// CalendarEvent is an event copied from an external calendar by the sync
// collaborator. Events with AllowBookings are offered as manual slots.
type CalendarEvent struct {
	ID              string
	ProviderID      string
	ConnectionID    string
	Title           string
	Start           time.Time
	End             time.Time
	Status          string
	Location        string
	AllowBookings   bool
	MaxBookings     int
	CurrentBookings int
	ServiceTypes    []string
}

func (e CalendarEvent) Cancelled() bool {
	s := strings.ToLower(strings.TrimSpace(e.Status))
	return s == EventStatusCancelled || s == "canceled"
}

// Bookable reports whether the event still has capacity for manual booking.
func (e CalendarEvent) Bookable() bool {
	return e.AllowBookings && !e.Cancelled() && e.CurrentBookings < e.MaxBookings && e.End.After(e.Start)
}

type Booking struct {
	ID              string
	ProviderID      string
	CalendarEventID string
	ScheduledAt     time.Time
	DurationMinutes int
	Status          string
}

func (b Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

func (b Booking) Active() bool {
	switch strings.ToUpper(strings.TrimSpace(b.Status)) {
	case BookingStatusCancelled, BookingStatusNoShow:
		return false
	}
	return true
}

// CalendarConnection is read only to find providers whose sync is stale.
type CalendarConnection struct {
	ID           string
	ProviderID   string
	Platform     string
	LastSyncedAt *time.Time
}
