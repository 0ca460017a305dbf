// Package filter narrows a term's lectures down to the ones a student can take.
//
// A filter combines independent criteria; a lecture must satisfy all of them:
//   - Days: every meeting day is one of the allowed days
//   - Within: every meeting falls inside a time window
//   - Instructors: the instructor name contains one of the given names (case-insensitive)
//   - OpenOnly: the lecture has seats left
//   - MinRating: the instructor is rated at least this high
//
// Day and time criteria apply to a lecture's lab as well, since the two are
// taken together.
//
// Example usage:
//
//	window, _ := filter.ParseWindow("9:00-2:00 pm")
//	f := filter.NewFilter()
//	f.Days = "MWF"
//	f.Within = &window
//	f.OpenOnly = true
//
//	lectures = f.Apply(lectures)
package filter

import (
	"fmt"
	"strings"

	"github.com/pfrederiksen/schedule-planner/internal/sections"
	"github.com/pfrederiksen/schedule-planner/internal/timeblock"
)

// Filter represents lecture filtering criteria
type Filter struct {
	// Allowed meeting day codes, e.g. "MWF"
	Days string `json:"days,omitempty"`

	// Time window all meetings must fall within
	Within *timeblock.TimeBlock `json:"within,omitempty"`

	// Instructor filtering (case-insensitive substring match)
	Instructors []string `json:"instructors,omitempty"`

	// Only lectures with open seats
	OpenOnly bool `json:"open_only,omitempty"`

	// Minimum instructor rating; unrated instructors never pass a non-zero minimum
	MinRating float64 `json:"min_rating,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all lectures until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Instructors: []string{},
	}
}

// ParseWindow parses a time window in the timetable's "H:MM-H:MM xm" form
func ParseWindow(text string) (timeblock.TimeBlock, error) {
	tb, err := timeblock.Parse(text)
	if err != nil {
		return timeblock.TimeBlock{}, fmt.Errorf("invalid time window: %w", err)
	}
	return tb, nil
}

// IsEmpty checks if the filter has any active criteria.
// Returns true if the filter would match all lectures.
func (f *Filter) IsEmpty() bool {
	return f.Days == "" &&
		f.Within == nil &&
		len(f.Instructors) == 0 &&
		!f.OpenOnly &&
		f.MinRating == 0
}

// Matches checks if a lecture matches all active filter criteria.
// An empty filter matches all lectures.
func (f *Filter) Matches(l *sections.Lecture) bool {
	if f.IsEmpty() {
		return true
	}

	// Check meeting days and times of the lecture and its lab
	for _, meeting := range l.Meetings() {
		d := meeting.Info()
		if !f.daysAllowed(d.Days) {
			return false
		}
		if f.Within != nil && !d.Time.IsZero() {
			if d.Time.Start() < f.Within.Start() || d.Time.End() > f.Within.End() {
				return false
			}
		}
	}

	// Check open seats
	if f.OpenOnly && l.OpenSeats() == 0 {
		return false
	}

	// Check instructor name (case-insensitive substring match)
	if len(f.Instructors) > 0 {
		if l.Instructor == nil {
			return false
		}
		matched := false
		nameLower := strings.ToLower(l.Instructor.Name)
		for _, name := range f.Instructors {
			if strings.Contains(nameLower, strings.ToLower(name)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// Check rating
	if f.MinRating > 0 {
		if !l.Instructor.HasRating() || *l.Instructor.Rating < f.MinRating {
			return false
		}
	}

	return true
}

func (f *Filter) daysAllowed(days string) bool {
	if f.Days == "" {
		return true
	}
	allowed := strings.ToUpper(f.Days)
	for _, day := range strings.ToUpper(days) {
		if day == ' ' {
			continue
		}
		if !strings.ContainsRune(allowed, day) {
			return false
		}
	}
	return true
}

// Apply applies the filter to a list of lectures and returns only matching lectures.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(lectures []*sections.Lecture) []*sections.Lecture {
	if f.IsEmpty() {
		return lectures
	}

	filtered := make([]*sections.Lecture, 0, len(lectures))
	for _, l := range lectures {
		if f.Matches(l) {
			filtered = append(filtered, l)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Returns "No active filters" if the filter is empty.
// Format: "Days: MWF | Within: 9:00 am - 2:00 pm | Open seats only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.Days != "" {
		parts = append(parts, fmt.Sprintf("Days: %s", strings.ToUpper(f.Days)))
	}

	if f.Within != nil {
		parts = append(parts, fmt.Sprintf("Within: %s", f.Within))
	}

	if len(f.Instructors) > 0 {
		parts = append(parts, fmt.Sprintf("Instructors: %s", strings.Join(f.Instructors, ", ")))
	}

	if f.OpenOnly {
		parts = append(parts, "Open seats only")
	}

	if f.MinRating > 0 {
		parts = append(parts, fmt.Sprintf("Min rating: %.1f", f.MinRating))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Days:      f.Days,
		OpenOnly:  f.OpenOnly,
		MinRating: f.MinRating,
	}

	if f.Within != nil {
		w := *f.Within
		clone.Within = &w
	}

	if len(f.Instructors) > 0 {
		clone.Instructors = make([]string, len(f.Instructors))
		copy(clone.Instructors, f.Instructors)
	} else {
		clone.Instructors = []string{}
	}

	return clone
}
