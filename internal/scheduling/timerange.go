// Package scheduling holds the pure conflict-detection, room-occupancy, availability
// search and calendar layout logic. Every function takes its full input set as
// arguments and performs no I/O.
package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned for clock strings that are not HH:MM.
var ErrInvalidClock = errors.New("invalid clock time")

// MinutesPerDay bounds clock values.
const MinutesPerDay = 24 * 60

// ToMinutes parses "HH:MM" into minutes since midnight.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return hours*60 + minutes, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// FormatClock renders minutes since midnight as HH:MM. Values past midnight keep counting hours.
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Window is a half-open [Start, End) range in minutes since midnight.
type Window struct {
	Start int
	End   int
}

// ParseWindow builds a window from two clock strings.
func ParseWindow(start, end string) (Window, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return w.Start < w.End
}

// Overlaps reports whether two half-open windows intersect. Touching windows do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Duration returns the window length in minutes.
func (w Window) Duration() int {
	return w.End - w.Start
}

// String renders the window as HH:MM-HH:MM.
func (w Window) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Any malformed clock makes the result false.
func Overlaps(startA, endA, startB, endB string) bool {
	a, err := ParseWindow(startA, endA)
	if err != nil {
		return false
	}
	b, err := ParseWindow(startB, endB)
	if err != nil {
		return false
	}
	return a.Overlaps(b)
}
