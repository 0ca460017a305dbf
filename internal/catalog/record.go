package catalog

import (
	"errors"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/sections"
	"github.com/pfrederiksen/schedule-planner/internal/timetable"
)

// Record is the stored form of a Course
type Record struct {
	Prefix    string                      `json:"prefix"`
	Code      int                         `json:"code"`
	Name      string                      `json:"name,omitempty"`
	Credits   int                         `json:"credits"`
	Sections  map[int][]*sections.Lecture `json:"sections"`
	UpdatedAt time.Time                   `json:"updated_at"`
	SavedAt   time.Time                   `json:"saved_at,omitempty"`
}

// Record captures the course's current state
func (c *Course) Record() *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec := &Record{
		Prefix:    c.prefix,
		Code:      c.code,
		Name:      c.name,
		Credits:   c.credits,
		Sections:  make(map[int][]*sections.Lecture, len(c.sections)),
		UpdatedAt: c.updatedAt,
	}
	for term, lectures := range c.sections {
		rec.Sections[term] = lectures
	}
	return rec
}

// Restore rebuilds a Course from rec. nav may be nil for a read-only course;
// AddTerm then fails.
func Restore(rec *Record, nav *timetable.Navigator, opts ...Option) (*Course, error) {
	if rec == nil {
		return nil, errors.New("restoring course: nil record")
	}
	if rec.Prefix == "" || rec.Code <= 0 {
		return nil, errors.New("restoring course: record has no identity")
	}

	c := newCourse(nav, rec.Prefix, rec.Code, opts)
	c.name = rec.Name
	c.credits = rec.Credits
	c.updatedAt = rec.UpdatedAt
	for term, lectures := range rec.Sections {
		if lectures == nil {
			lectures = make([]*sections.Lecture, 0)
		}
		for _, l := range lectures {
			if l != nil && l.Lab != nil {
				l.Lab.LectureCRN = l.CRN
			}
		}
		c.sections[term] = lectures
	}
	return c, nil
}
