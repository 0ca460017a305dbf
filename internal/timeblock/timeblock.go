// Package timeblock parses timetable meeting times such as "11:00-1:50 pm"
// into unambiguous 24-hour ranges and compares them for overlap.
package timeblock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrParse is returned when a time range string is malformed.
var ErrParse = errors.New("invalid time block")

// TimeBlock is a single meeting interval, accurate to the minute, in 24-hour
// form. A TimeBlock never spans midnight.
type TimeBlock struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`
}

// New builds a TimeBlock from 24-hour components
func New(startHour, startMinute, endHour, endMinute int) TimeBlock {
	return TimeBlock{
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
	}
}

// Parse parses a string in the format "H:MM-H:MM xm", where xm is "am" or "pm"
// (case-insensitive). The designator applies to the end of the range; a range
// whose end hour is smaller than its start hour crosses noon, so
// "11:00-1:50 pm" is 11:00 to 13:50 and "11:30-12:30 pm" is 11:30 to 12:30.
func Parse(text string) (TimeBlock, error) {
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return TimeBlock{}, fmt.Errorf("%w: %q: too short", ErrParse, text)
	}

	designator := strings.ToLower(text[len(text)-2:])
	if designator != "am" && designator != "pm" {
		return TimeBlock{}, fmt.Errorf("%w: %q: designator must be am or pm", ErrParse, text)
	}

	parts := strings.Split(text[:len(text)-2], "-")
	if len(parts) != 2 {
		return TimeBlock{}, fmt.Errorf("%w: %q: expected a single '-' separator", ErrParse, text)
	}

	startHour, startMinute, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeBlock{}, fmt.Errorf("%w: %q: start: %v", ErrParse, text, err)
	}
	endHour, endMinute, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeBlock{}, fmt.Errorf("%w: %q: end: %v", ErrParse, text, err)
	}

	if designator == "pm" {
		if startHour <= 12 && endHour < startHour {
			// Starts in the morning, ends in the afternoon
			endHour += 12
		} else if startHour != 12 && endHour != 12 {
			startHour += 12
			endHour += 12
		}
	}

	tb := New(startHour, startMinute, endHour, endMinute)
	if tb.End() < tb.Start() {
		return TimeBlock{}, fmt.Errorf("%w: %q: range spans midnight", ErrParse, text)
	}

	return tb, nil
}

// parseClock parses "H:MM" in 12-hour form
func parseClock(s string) (int, int, error) {
	hm := strings.Split(s, ":")
	if len(hm) != 2 {
		return 0, 0, fmt.Errorf("expected hour:minute, got %q", s)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(hm[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing hour %q: %w", hm[0], err)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(hm[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing minute %q: %w", hm[1], err)
	}

	if hour < 0 || hour > 12 {
		return 0, 0, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range", minute)
	}

	return hour, minute, nil
}

// Start returns the start of the block in minutes since midnight.
func (tb TimeBlock) Start() int {
	return tb.StartHour*60 + tb.StartMinute
}

// End returns the end of the block in minutes since midnight.
func (tb TimeBlock) End() int {
	return tb.EndHour*60 + tb.EndMinute
}

// Duration returns the length of the block.
func (tb TimeBlock) Duration() time.Duration {
	return time.Duration(tb.End()-tb.Start()) * time.Minute
}

// Overlaps reports whether two blocks share any instant. Blocks are half-open,
// so a block ending at 9:50 does not overlap one starting at 9:50.
func (tb TimeBlock) Overlaps(other TimeBlock) bool {
	return tb.Start() < other.End() && other.Start() < tb.End()
}

// IsZero reports whether the block is the zero value.
func (tb TimeBlock) IsZero() bool {
	return tb == TimeBlock{}
}

// String formats the block as "H:MM am - H:MM pm".
func (tb TimeBlock) String() string {
	return formatClock(tb.StartHour, tb.StartMinute) + " - " + formatClock(tb.EndHour, tb.EndMinute)
}

func formatClock(hour, minute int) string {
	designator := "am"
	if hour >= 12 {
		designator = "pm"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, designator)
}
