package availability

import (
	"iter"
	"time"

	"github.com/md-rashed-zaman/slotwise/services/availability-service/internal/busy"
)

// DefaultSafetyBuffer keeps slots from starting too close to now.
const DefaultSafetyBuffer = 15 * time.Minute

// StepPolicy decides the distance between consecutive candidate starts.
type StepPolicy struct {
	// Fixed overrides everything when positive.
	Fixed  time.Duration
	Buffer time.Duration
}

// Step returns Fixed when set. Otherwise a provider with a buffer gets
// back-to-back slots that already leave the buffer free (duration+buffer),
// and one without gets min(30m, duration).
func (p StepPolicy) Step(duration time.Duration) time.Duration {
	if p.Fixed > 0 {
		return p.Fixed
	}
	if p.Buffer > 0 {
		return duration + p.Buffer
	}
	return min(30*time.Minute, duration)
}

// Candidates yields start instants inside [windowStart, windowEnd) where a
// slot of length duration fits. The end boundary is inclusive: a slot ending
// exactly at windowEnd is emitted.
func Candidates(windowStart, windowEnd time.Time, duration, step time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if duration <= 0 || step <= 0 || !windowEnd.After(windowStart) {
			return
		}
		for i := 0; ; i++ {
			t := windowStart.Add(time.Duration(i) * step)
			if t.Add(duration).After(windowEnd) {
				return
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Filter rejects candidates that collide with busy time or start too soon.
type Filter struct {
	// Busy must be sorted by start.
	Busy   []busy.Interval
	Buffer time.Duration
	Now    time.Time
	Safety time.Duration
}

// Accept reports whether [start, end) is bookable: [start-buffer, end+buffer)
// intersects no busy interval and start is after Now+Safety.
func (f Filter) Accept(start, end time.Time) bool {
	if !start.After(f.Now.Add(f.Safety)) {
		return false
	}
	lo, hi := start.Add(-f.Buffer), end.Add(f.Buffer)
	for _, b := range f.Busy {
		if !b.Start.Before(hi) {
			break
		}
		// Half-open intervals: [lo,hi) overlaps [b.Start,b.End) iff lo < b.End && b.Start < hi.
		if b.Overlaps(lo, hi) {
			return false
		}
	}
	return true
}

// AvailableSlots returns the accepted starts of duration-long slots inside
// the window.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, f Filter) []time.Time {
	var slots []time.Time
	for t := range Candidates(windowStart, windowEnd, duration, step) {
		if f.Accept(t, t.Add(duration)) {
			slots = append(slots, t)
		}
	}
	return slots
}
