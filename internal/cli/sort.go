package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/schedule-planner/internal/sections"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByCRN    SortOrder = "crn"
	SortByTime   SortOrder = "time"
	SortBySeats  SortOrder = "seats"
	SortByRating SortOrder = "rating"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case "":
		return SortByCRN, nil
	case SortByCRN, SortByTime, SortBySeats, SortByRating:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be crn, time, seats or rating)", s)
}

// sortLectures sorts lectures in place based on the specified sort order
func sortLectures(lectures []*sections.Lecture, order SortOrder) {
	switch order {
	case SortByCRN:
		sort.SliceStable(lectures, func(i, j int) bool {
			return lectures[i].CRN < lectures[j].CRN
		})
	case SortByTime:
		sort.SliceStable(lectures, func(i, j int) bool {
			if lectures[i].Time.Start() != lectures[j].Time.Start() {
				return lectures[i].Time.Start() < lectures[j].Time.Start()
			}
			return lectures[i].CRN < lectures[j].CRN
		})
	case SortBySeats:
		sort.SliceStable(lectures, func(i, j int) bool {
			if lectures[i].OpenSeats() != lectures[j].OpenSeats() {
				return lectures[i].OpenSeats() > lectures[j].OpenSeats()
			}
			return lectures[i].CRN < lectures[j].CRN
		})
	case SortByRating:
		sort.SliceStable(lectures, func(i, j int) bool {
			return compareByRating(lectures[i], lectures[j])
		})
	}
}

// compareByRating compares two lectures by instructor rating
// Returns true if lecture i should come before lecture j
func compareByRating(i, j *sections.Lecture) bool {
	rated := func(l *sections.Lecture) bool { return l.Instructor.HasRating() }

	// If both are rated, the higher rating comes first
	if rated(i) && rated(j) {
		if *i.Instructor.Rating != *j.Instructor.Rating {
			return *i.Instructor.Rating > *j.Instructor.Rating
		}
		return i.CRN < j.CRN
	}

	// If only one is rated, put the rated one first
	if rated(i) {
		return true
	}
	if rated(j) {
		return false
	}

	return i.CRN < j.CRN
}
