// Package catalog keeps the sections of one course across terms, fetched
// from the timetable through a shared navigator.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pfrederiksen/schedule-planner/internal/logger"
	"github.com/pfrederiksen/schedule-planner/internal/sections"
	"github.com/pfrederiksen/schedule-planner/internal/timetable"
)

// ErrTermUnavailable means a term requested at construction yielded no lectures
var ErrTermUnavailable = errors.New("term unavailable")

// Course is one catalog course identified by subject prefix and number.
// Its per-term section lists change only through AddTerm.
type Course struct {
	prefix string
	code   int

	nav           *timetable.Navigator
	parser        *sections.Parser
	titleSelector string

	mu        sync.RWMutex
	name      string
	credits   int
	updatedAt time.Time
	sections  map[int][]*sections.Lecture
}

// Option customizes a Course
type Option func(*Course)

// WithParser sets the section parser, e.g. one with an instructor resolver
func WithParser(p *sections.Parser) Option {
	return func(c *Course) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithTitleSelector sets the selector for course header cells
func WithTitleSelector(selector string) Option {
	return func(c *Course) {
		if selector != "" {
			c.titleSelector = selector
		}
	}
}

func newCourse(nav *timetable.Navigator, prefix string, code int, opts []Option) *Course {
	c := &Course{
		prefix:        prefix,
		code:          code,
		nav:           nav,
		parser:        sections.NewParser(),
		titleSelector: sections.DefaultTitleSelector,
		sections:      make(map[int][]*sections.Lecture),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New validates prefix against the live subject list and loads every term in
// terms. A term that yields no lectures fails construction with ErrTermUnavailable.
func New(ctx context.Context, nav *timetable.Navigator, prefix string, code int, terms []int, opts ...Option) (*Course, error) {
	if nav == nil {
		return nil, errors.New("creating course: nil navigator")
	}
	c := newCourse(nav, prefix, code, opts)

	s, err := nav.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	if err := s.ValidateSubject(ctx, prefix); err != nil {
		return nil, fmt.Errorf("creating %s: %w", c, err)
	}

	for _, term := range terms {
		ok, err := c.addTerm(ctx, s, term, true)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c, err)
		}
		if !ok {
			return nil, fmt.Errorf("creating %s: %w: %d", c, ErrTermUnavailable, term)
		}
	}

	return c, nil
}

// AddTerm loads the course's sections for term, replacing any earlier list.
// It returns false when the term is not offered or the course has no
// lectures in it; an unknown term leaves the course untouched. Metadata is
// written when updateMetadata is set or no name is known yet.
func (c *Course) AddTerm(ctx context.Context, term int, updateMetadata bool) (bool, error) {
	if c.nav == nil {
		return false, fmt.Errorf("adding term %d to %s: no navigator", term, c)
	}

	s, err := c.nav.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer s.Release()

	return c.addTerm(ctx, s, term, updateMetadata)
}

func (c *Course) addTerm(ctx context.Context, s *timetable.Session, term int, updateMetadata bool) (bool, error) {
	start := time.Now()

	if _, err := s.EnsureOn(ctx, c.prefix, term); err != nil {
		if errors.Is(err, timetable.ErrInvalidTerm) {
			logger.Warn("Term not offered", logger.Fields{"course": c.String(), "term": term})
			return false, nil
		}
		return false, fmt.Errorf("loading term %d: %w", term, err)
	}

	doc := s.Document()
	if doc == nil {
		return false, fmt.Errorf("loading term %d: %w: no result page", term, timetable.ErrFetch)
	}

	res := c.parser.Parse(ctx, sections.ExtractRows(doc, c.titleSelector), c.prefix, c.code)

	c.mu.Lock()
	c.sections[term] = res.Lectures
	if res.Found && (updateMetadata || c.name == "") {
		c.name = res.Name
		c.credits = res.Credits
	}
	c.updatedAt = time.Now()
	c.mu.Unlock()

	logger.RecordTiming("catalog.add_term", time.Since(start))
	logger.Info("Loaded sections", logger.Fields{
		"course":   c.String(),
		"term":     term,
		"lectures": len(res.Lectures),
		"skipped":  len(res.Skipped),
		"found":    res.Found,
	})

	return res.HasLecture, nil
}

// Prefix returns the subject prefix
func (c *Course) Prefix() string { return c.prefix }

// Code returns the course number
func (c *Course) Code() int { return c.code }

// Name returns the course title, or "" before a header was found
func (c *Course) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Credits returns the credit hours
func (c *Course) Credits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credits
}

// UpdatedAt returns when sections were last loaded, zero if never
func (c *Course) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Sections returns the lectures loaded for term. The second result is false
// when the term was never loaded, which differs from a loaded empty list.
func (c *Course) Sections(term int) ([]*sections.Lecture, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lectures, ok := c.sections[term]
	if !ok {
		return nil, false
	}
	out := make([]*sections.Lecture, len(lectures))
	copy(out, lectures)
	return out, true
}

// Terms returns the loaded terms in ascending order
func (c *Course) Terms() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	terms := make([]int, 0, len(c.sections))
	for term := range c.sections {
		terms = append(terms, term)
	}
	sort.Ints(terms)
	return terms
}

func (c *Course) String() string {
	return fmt.Sprintf("%s %d", c.prefix, c.code)
}
