package engine

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrInvalidQuery     = errors.New("invalid query")
)

type ProviderReader interface {
	Provider(ctx context.Context, providerID string) (model.Provider, error)
}

type ScheduleReader interface {
	Templates(ctx context.Context, providerID string) ([]model.AvailabilityTemplate, error)
	// Assignments returns assignments whose range intersects [from, to].
	Assignments(ctx context.Context, providerID string, from, to tz.Date) ([]model.TemplateAssignment, error)
	AdvancedSchedules(ctx context.Context, providerID string, from, to tz.Date) ([]model.AdvancedSchedule, error)
}

type BusyReader interface {
	// CalendarEvents returns events intersecting [from, to).
	CalendarEvents(ctx context.Context, providerID string, from, to time.Time) ([]model.CalendarEvent, error)
	// Bookings returns bookings that start before to and end after from,
	// whatever their status.
	Bookings(ctx context.Context, providerID string, from, to time.Time) ([]model.Booking, error)
}

type LocationReader interface {
	Locations(ctx context.Context, providerID string) ([]model.ProviderLocation, error)
}

// Repository is the read-only store the engine resolves against.
type Repository interface {
	ProviderReader
	ScheduleReader
	BusyReader
	LocationReader
}

// SyncTrigger requests a best-effort calendar refresh. It must not block.
type SyncTrigger interface {
	Request(ctx context.Context, providerID, reason string)
}

type nopSync struct{}

func (nopSync) Request(context.Context, string, string) {}
