package tz

import "time"

// ToInstant interprets the wall time c on date d in loc.
//
// Wall times repeated when clocks go back resolve to the earlier instant.
// Wall times skipped when clocks go forward are shifted forward by the
// size of the gap, so 02:30 on a spring-forward night becomes 03:30.
func ToInstant(d Date, c Clock, loc *time.Location) time.Time {
	// wall is the requested reading expressed as if it were UTC; 24:00
	// normalises to the next day here.
	wall := time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, time.UTC)
	approx := time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, loc)

	before := offsetAt(approx.Add(-24*time.Hour), loc)
	after := offsetAt(approx.Add(24*time.Hour), loc)

	var best time.Time
	found := false
	for _, off := range []time.Duration{before, after} {
		u := wall.Add(-off)
		if !sameWall(u.In(loc), wall) {
			continue
		}
		if !found || u.Before(best) {
			best, found = u, true
		}
	}
	if found {
		return best.In(loc)
	}
	return wall.Add(-before).In(loc)
}

// FromInstant returns the wall date and time of t observed in loc.
func FromInstant(t time.Time, loc *time.Location) (Date, Clock) {
	local := t.In(loc)
	return DateOf(local), Clock(local.Hour()*60 + local.Minute())
}

func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, secs := t.In(loc).Zone()
	return time.Duration(secs) * time.Second
}

func sameWall(local, wall time.Time) bool {
	return local.Year() == wall.Year() &&
		local.Month() == wall.Month() &&
		local.Day() == wall.Day() &&
		local.Hour() == wall.Hour() &&
		local.Minute() == wall.Minute()
}
