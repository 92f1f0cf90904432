package engine

import (
	"slices"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/busy"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/location"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/resolver"
	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/tz"
)

type slotKey struct {
	start    int64
	duration int
}

// assembler accumulates the de-duplicated slots of one query.
type assembler struct {
	provider  model.Provider
	now       time.Time
	safety    time.Duration
	step      availability.StepPolicy
	buffer    time.Duration
	busy      []busy.Interval
	locations *location.Annotator
	providerZ *time.Location
	first     tz.Date
	last      tz.Date
	slots     map[slotKey]model.GeneratedSlot
}

func (a *assembler) addPlan(plan resolver.DayPlan, loc *time.Location) {
	if len(plan.Windows) == 0 {
		return
	}
	f := availability.Filter{Busy: a.busy, Buffer: a.buffer, Now: a.now, Safety: a.safety}
	display := a.locations.Display(plan.Date)

	for _, w := range plan.Windows {
		ws := tz.ToInstant(plan.Date, w.Start, loc)
		we := tz.ToInstant(plan.Date, w.End, loc)
		for _, mins := range a.provider.AllowedDurations {
			dur := time.Duration(mins) * time.Minute
			for _, start := range availability.AvailableSlots(ws, we, dur, a.step.Step(dur), f) {
				a.put(model.GeneratedSlot{
					Start:             start,
					End:               start.Add(dur),
					DurationMinutes:   mins,
					LocationDisplay:   display,
					AvailableServices: a.provider.ServiceTypes,
					RemainingCapacity: 1,
					Source:            model.SourceAutomatic,
				})
			}
		}
	}
}

// addManual slices each bookable event into sub-slots and checks them only
// against the bookings already taken on that event.
func (a *assembler) addManual(events []model.CalendarEvent, bookings []model.Booking) {
	mins := a.provider.ManualSliceDuration()
	dur := time.Duration(mins) * time.Minute

	for _, ev := range events {
		if !ev.Bookable() {
			continue
		}
		f := availability.Filter{
			Busy:   busy.ForEvent(ev.ID, bookings),
			Buffer: a.buffer,
			Now:    a.now,
			Safety: a.safety,
		}
		services := ev.ServiceTypes
		if len(services) == 0 {
			services = a.provider.ServiceTypes
		}
		for _, start := range availability.AvailableSlots(ev.Start, ev.End, dur, dur, f) {
			d, _ := tz.FromInstant(start, a.providerZ)
			if d.Before(a.first) || d.After(a.last) {
				continue
			}
			display := ev.Location
			if display == "" {
				display = a.locations.Display(d)
			}
			a.put(model.GeneratedSlot{
				Start:             start,
				End:               start.Add(dur),
				DurationMinutes:   mins,
				LocationDisplay:   display,
				AvailableServices: services,
				RemainingCapacity: ev.MaxBookings - ev.CurrentBookings,
				Source:            model.SourceManual,
				CalendarEventID:   ev.ID,
			})
		}
	}
}

// put stores s under (start, duration); a manual slot replaces an automatic
// one at the same key.
func (a *assembler) put(s model.GeneratedSlot) {
	k := slotKey{start: s.Start.UnixNano(), duration: s.DurationMinutes}
	if cur, ok := a.slots[k]; ok && (cur.Source == model.SourceManual || s.Source != model.SourceManual) {
		return
	}
	s.Start, s.End = s.Start.UTC(), s.End.UTC()
	s.ID = SlotID(a.provider.ID, s.Start, s.DurationMinutes, s.Source)
	a.slots[k] = s
}

func (a *assembler) sorted() []model.GeneratedSlot {
	out := make([]model.GeneratedSlot, 0, len(a.slots))
	for _, s := range a.slots {
		out = append(out, s)
	}
	slices.SortFunc(out, compareSlots)
	return out
}
