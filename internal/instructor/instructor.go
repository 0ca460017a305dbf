// Package instructor models the people teaching sections and looks up their
// public ratings.
package instructor

import (
	"context"
	"strings"
	"time"
)

// StaffName is the placeholder the timetable lists when no instructor is assigned.
const StaffName = "Staff"

// Instructor is a person teaching one or more sections. Records are shared
// between sections and are treated as read-only once resolved.
type Instructor struct {
	Name        string    `json:"name"`
	First       string    `json:"first,omitempty"`
	Last        string    `json:"last,omitempty"`
	TID         int       `json:"tid,omitempty"` // ratings site id, 0 when unknown
	Rating      *float64  `json:"rating,omitempty"`
	Difficulty  *float64  `json:"difficulty,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// Resolver looks up an instructor's rating record by full name. It returns
// nil and no error when nobody qualifies.
type Resolver interface {
	Resolve(ctx context.Context, fullName string) (*Instructor, error)
}

// FromListing builds an unrated Instructor from a timetable cell in the form
// "Last, First". Empty cells and the Staff placeholder yield a Staff record.
func FromListing(text string) *Instructor {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || strings.EqualFold(text, StaffName) {
		return &Instructor{Name: StaffName}
	}

	parts := strings.SplitN(text, ", ", 2)
	if len(parts) != 2 {
		return &Instructor{Name: text}
	}

	last := strings.TrimSpace(parts[0])
	first := strings.TrimSpace(parts[1])
	return &Instructor{
		Name:  strings.TrimSpace(first + " " + last),
		First: first,
		Last:  last,
	}
}

// IsStaff reports whether this is the unassigned placeholder
func (i *Instructor) IsStaff() bool {
	return i == nil || i.Name == StaffName
}

// HasRating reports whether a rating has been resolved
func (i *Instructor) HasRating() bool {
	return i != nil && i.Rating != nil
}

// nameTokens returns the first and last name used for lookups
func nameTokens(fullName string) (string, string, bool) {
	fields := strings.Fields(fullName)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[len(fields)-1], true
}
