package tz

import (
	"fmt"
	"strconv"
	"strings"
)

// EndOfDay is 24:00, a valid window end.
const EndOfDay Clock = 24 * 60

// Clock is a wall-clock time as minutes after local midnight, 0..1440.
type Clock int

// ParseClock accepts HH:MM and HH:MM:SS. Seconds must be zero.
func ParseClock(s string) (Clock, error) {
	const op = "tz.ParseClock"

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%s: %q: want HH:MM", op, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", op, s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", op, s, err)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("%s: %q: seconds not supported", op, s)
		}
	}
	c := Clock(h*60 + m)
	if h < 0 || m < 0 || m > 59 || c > EndOfDay {
		return 0, fmt.Errorf("%s: %q: out of range", op, s)
	}
	return c, nil
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
