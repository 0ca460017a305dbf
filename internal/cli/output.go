package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/catalog"
	"github.com/pfrederiksen/schedule-planner/internal/instructor"
	"github.com/pfrederiksen/schedule-planner/internal/sections"
	"github.com/pfrederiksen/schedule-planner/internal/timetable"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// TermResult is the outcome of one term
type TermResult struct {
	Term      int                 `json:"term"`
	Available bool                `json:"available"`
	Lectures  []*sections.Lecture `json:"lectures"`
	Changes   *catalog.TermDiff   `json:"changes,omitempty"` // nil on the first fetch of a term
}

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt    time.Time    `json:"checked_at"`
	Course       string       `json:"course"`
	Name         string       `json:"name,omitempty"`
	Credits      int          `json:"credits"`
	Filter       string       `json:"filter,omitempty"`
	Terms        []TermResult `json:"terms"`
	SectionCount int          `json:"section_count"` // sections shown, after filtering
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteOptions writes a select control's options
func WriteOptions(w io.Writer, options []timetable.Option, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if options == nil {
			options = make([]timetable.Option, 0)
		}
		return writeJSON(w, options)
	case FormatText:
		for _, opt := range options {
			if opt.Value == "" {
				continue
			}
			fmt.Fprintf(w, "%-8s %s\n", opt.Value, opt.Label)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteCourseList writes the identities of saved courses
func WriteCourseList(w io.Writer, courses []string, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, courses)
	case FormatText:
		if len(courses) == 0 {
			fmt.Fprintln(w, "No saved courses.")
			return nil
		}
		for _, c := range courses {
			fmt.Fprintln(w, c)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprint(w, result.Course)
	if result.Name != "" {
		fmt.Fprintf(w, " %s", result.Name)
	}
	if result.Credits > 0 {
		fmt.Fprintf(w, " (%d credits)", result.Credits)
	}
	fmt.Fprintln(w)
	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}

	for _, tr := range result.Terms {
		if !tr.Available && len(tr.Lectures) == 0 {
			fmt.Fprintf(w, "\nTerm %d: no sections\n", tr.Term)
			continue
		}

		fmt.Fprintf(w, "\nTerm %d (%d sections):\n", tr.Term, len(tr.Lectures))
		for _, l := range tr.Lectures {
			writeSection(w, "", &l.Details, verbose)
			if l.Lab != nil {
				writeSection(w, "lab", &l.Lab.Details, verbose)
			}
		}

		if tr.Changes != nil && !tr.Changes.Empty() {
			writeChanges(w, tr.Changes)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d sections across %d terms\n", result.SectionCount, len(result.Terms))
	return nil
}

func writeSection(w io.Writer, label string, d *sections.Details, verbose bool) {
	id := fmt.Sprint(d.CRN)
	if label != "" {
		id = "  " + label
		if d.CRN > 0 {
			id = fmt.Sprintf("  %s %d", label, d.CRN)
		}
	}

	fmt.Fprintf(w, "  %-11s %-6s %-20s %-24s %-10s", id, d.Days, d.Time, instructorText(d.Instructor), d.Room)
	if d.MaxSeats > 0 {
		fmt.Fprintf(w, " %d/%d", d.Enrolled, d.MaxSeats)
	}
	fmt.Fprintln(w)

	if !verbose {
		return
	}
	if len(d.Traits) > 0 {
		fmt.Fprintf(w, "       Traits: %s\n", strings.Join(d.Traits, ", "))
	}
	if inst := d.Instructor; inst != nil && inst.TID > 0 {
		fmt.Fprintf(w, "       Ratings ID: %d\n", inst.TID)
		if inst.Difficulty != nil {
			fmt.Fprintf(w, "       Difficulty: %.1f\n", *inst.Difficulty)
		}
	}
}

func instructorText(inst *instructor.Instructor) string {
	if inst == nil {
		return instructor.StaffName
	}
	if inst.HasRating() {
		return fmt.Sprintf("%s (%.1f)", inst.Name, *inst.Rating)
	}
	return inst.Name
}

func writeChanges(w io.Writer, diff *catalog.TermDiff) {
	fmt.Fprintln(w, "  Changes since last fetch:")
	for _, crn := range diff.Added {
		fmt.Fprintf(w, "    NEW: %d\n", crn)
	}
	for _, crn := range diff.Removed {
		fmt.Fprintf(w, "    REMOVED: %d\n", crn)
	}
	for _, s := range diff.Seats {
		fmt.Fprintf(w, "    SEATS: %d %d/%d -> %d/%d\n", s.CRN, s.OldEnrolled, s.OldMax, s.NewEnrolled, s.NewMax)
	}
}
