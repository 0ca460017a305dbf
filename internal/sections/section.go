// Package sections turns the rows of a timetable result page into typed
// lecture and lab records.
package sections

import (
	"strings"

	"github.com/pfrederiksen/schedule-planner/internal/instructor"
	"github.com/pfrederiksen/schedule-planner/internal/timeblock"
)

// Variant distinguishes the section types
type Variant string

const (
	VariantLecture Variant = "lecture"
	VariantLab     Variant = "lab"
)

// Details holds the fields every section has
type Details struct {
	CRN        int                    `json:"crn"`
	Days       string                 `json:"days"`
	Time       timeblock.TimeBlock    `json:"time"`
	Instructor *instructor.Instructor `json:"instructor,omitempty"`
	Room       string                 `json:"room"`
	MaxSeats   int                    `json:"max_seats"`
	Enrolled   int                    `json:"enrolled"`
	Traits     []string               `json:"traits,omitempty"`
}

// Section is implemented by *Lecture and *Lab
type Section interface {
	Info() *Details
	Variant() Variant
}

// Lecture is a primary section, optionally accompanied by a lab
type Lecture struct {
	Details
	Lab *Lab `json:"lab,omitempty"`
}

// Lab is a supplementary meeting attached to the lecture listed before it
type Lab struct {
	Details
	LectureCRN int `json:"lecture_crn"`
}

func (l *Lecture) Info() *Details  { return &l.Details }
func (l *Lecture) Variant() Variant { return VariantLecture }
func (l *Lab) Info() *Details      { return &l.Details }
func (l *Lab) Variant() Variant     { return VariantLab }

// Meetings returns the lecture followed by its lab, if any
func (l *Lecture) Meetings() []Section {
	if l.Lab == nil {
		return []Section{l}
	}
	return []Section{l, l.Lab}
}

// OpenSeats returns the remaining capacity, never negative
func (d *Details) OpenSeats() int {
	if d.Enrolled >= d.MaxSeats {
		return 0
	}
	return d.MaxSeats - d.Enrolled
}

// MeetsOn reports whether day (a day code such as 'M' or 'R') is among the meeting days
func (d *Details) MeetsOn(day rune) bool {
	return strings.ContainsRune(strings.ToUpper(d.Days), day)
}

// Conflicts reports whether two meetings share a day and overlap in time
func (d *Details) Conflicts(other *Details) bool {
	if d.Time.IsZero() || other.Time.IsZero() {
		return false
	}
	for _, day := range strings.ToUpper(d.Days) {
		if day == ' ' {
			continue
		}
		if other.MeetsOn(day) {
			return d.Time.Overlaps(other.Time)
		}
	}
	return false
}
