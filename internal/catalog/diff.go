package catalog

import (
	"sort"

	"github.com/pfrederiksen/schedule-planner/internal/sections"
)

// SeatChange is a lecture whose capacity or enrollment moved between fetches
type SeatChange struct {
	CRN         int `json:"crn"`
	OldEnrolled int `json:"old_enrolled"`
	NewEnrolled int `json:"new_enrolled"`
	OldMax      int `json:"old_max"`
	NewMax      int `json:"new_max"`
}

// TermDiff contains the results of comparing two section lists of one term
type TermDiff struct {
	Added   []int        `json:"added"`   // CRNs only in the new list
	Removed []int        `json:"removed"` // CRNs only in the old list
	Seats   []SeatChange `json:"seats"`
}

// Empty reports whether nothing changed
func (d TermDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Seats) == 0
}

// DiffTerm compares the lectures of a term before and after a refresh
func DiffTerm(previous, current []*sections.Lecture) TermDiff {
	diff := TermDiff{
		Added:   make([]int, 0),
		Removed: make([]int, 0),
		Seats:   make([]SeatChange, 0),
	}

	before := make(map[int]*sections.Lecture, len(previous))
	for _, l := range previous {
		before[l.CRN] = l
	}
	after := make(map[int]*sections.Lecture, len(current))
	for _, l := range current {
		after[l.CRN] = l
	}

	for crn, cur := range after {
		prev, exists := before[crn]
		if !exists {
			diff.Added = append(diff.Added, crn)
			continue
		}
		if prev.Enrolled != cur.Enrolled || prev.MaxSeats != cur.MaxSeats {
			diff.Seats = append(diff.Seats, SeatChange{
				CRN:         crn,
				OldEnrolled: prev.Enrolled,
				NewEnrolled: cur.Enrolled,
				OldMax:      prev.MaxSeats,
				NewMax:      cur.MaxSeats,
			})
		}
	}
	for crn := range before {
		if _, exists := after[crn]; !exists {
			diff.Removed = append(diff.Removed, crn)
		}
	}

	// Sort for consistent output
	sort.Ints(diff.Added)
	sort.Ints(diff.Removed)
	sort.Slice(diff.Seats, func(i, j int) bool {
		return diff.Seats[i].CRN < diff.Seats[j].CRN
	})

	return diff
}
