package rail

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockMinutes is a time of day expressed as minutes since local midnight.
// All schedule entries live on a single calendar day.
type ClockMinutes int

// NoTime marks an absent arrival or departure.
const NoTime ClockMinutes = -1

const minutesPerDay = 24 * 60

// ParseClock parses an "HH:MM" time-of-day string. The empty string maps to
// NoTime, which is how schedules mark a missing arrival or departure.
func ParseClock(s string) (ClockMinutes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoTime, nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return NoTime, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return NoTime, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return NoTime, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return ClockMinutes(h*60 + m), nil
}

// String renders the time back as "HH:MM"; NoTime renders empty.
func (c ClockMinutes) String() string {
	if c == NoTime {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(c)/60%24, int(c)%60)
}

// Add advances the clock by the given number of simulated minutes, wrapping
// at midnight so a long-running simulation stays within the calendar day.
func (c ClockMinutes) Add(mins int) ClockMinutes {
	if c == NoTime {
		return NoTime
	}
	v := (int(c) + mins) % minutesPerDay
	if v < 0 {
		v += minutesPerDay
	}
	return ClockMinutes(v)
}
