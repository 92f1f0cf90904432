package model

import "time"

type SlotSource string

const (
	SourceAutomatic SlotSource = "automatic"
	SourceManual    SlotSource = "manual"
)

type GeneratedSlot struct {
	ID                string
	Start             time.Time
	End               time.Time
	DurationMinutes   int
	LocationDisplay   string
	AvailableServices []string
	RemainingCapacity int
	Source            SlotSource
	// CalendarEventID is set on manual slots.
	CalendarEventID string
}
