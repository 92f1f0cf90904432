package model

import (
	"slices"
	"strings"
)

const (
	DefaultDurationMinutes    = 30
	DefaultAdvanceBookingDays = 30
)

type Provider struct {
	ID                 string
	Name               string
	DefaultDuration    int
	BufferMinutes      int
	AdvanceBookingDays int
	AllowedDurations   []int
	ServiceTypes       []string
}

// Normalize applies the defaults the engine relies on: a positive default
// duration and booking horizon, and a sorted, de-duplicated, non-empty set
// of allowed durations.
func (p Provider) Normalize() Provider {
	if p.DefaultDuration <= 0 {
		p.DefaultDuration = DefaultDurationMinutes
	}
	if p.AdvanceBookingDays <= 0 {
		p.AdvanceBookingDays = DefaultAdvanceBookingDays
	}
	if p.BufferMinutes < 0 {
		p.BufferMinutes = 0
	}

	durations := make([]int, 0, len(p.AllowedDurations))
	for _, d := range p.AllowedDurations {
		if d > 0 {
			durations = append(durations, d)
		}
	}
	slices.Sort(durations)
	durations = slices.Compact(durations)
	if len(durations) == 0 {
		durations = []int{p.DefaultDuration}
	}
	p.AllowedDurations = durations

	services := make([]string, 0, len(p.ServiceTypes))
	for _, s := range p.ServiceTypes {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	p.ServiceTypes = services
	return p
}

// AllowsDuration reports whether minutes is one of the allowed durations.
func (p Provider) AllowsDuration(minutes int) bool {
	return slices.Contains(p.AllowedDurations, minutes)
}

// ManualSliceDuration is the sub-slot length used to slice bookable calendar
// events: the default duration when it is allowed, else the shortest allowed.
func (p Provider) ManualSliceDuration() int {
	if p.AllowsDuration(p.DefaultDuration) || len(p.AllowedDurations) == 0 {
		return p.DefaultDuration
	}
	return p.AllowedDurations[0]
}
