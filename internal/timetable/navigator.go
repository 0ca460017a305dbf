package timetable

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/schedule-planner/internal/logger"
)

const (
	DefaultSubjectSelect = "subj"
	DefaultTermSelect    = "term"
	DefaultRetries       = 3
	DefaultRetryInterval = 500 * time.Millisecond
)

// Options configures a Navigator
type Options struct {
	URL           string        // address of the timetable form
	ExpectedTitle string        // page title; a mismatch is only a warning
	SubjectSelect string        // id of the subject select control
	TermSelect    string        // id of the term select control
	Retries       int           // retries after a transient failure
	RetryInterval time.Duration // initial backoff between retries
	Timeout       time.Duration // bound on a whole EnsureOn call
}

// DefaultOptions returns Options for the given form URL and expected title
func DefaultOptions(formURL, expectedTitle string) Options {
	return Options{
		URL:           formURL,
		ExpectedTitle: expectedTitle,
		SubjectSelect: DefaultSubjectSelect,
		TermSelect:    DefaultTermSelect,
		Retries:       DefaultRetries,
		RetryInterval: DefaultRetryInterval,
		Timeout:       2 * DefaultTimeout,
	}
}

// Navigator owns one browsing session against the timetable. The session is
// exclusive: callers Acquire it, drive it, and Release it.
type Navigator struct {
	page Page
	opts Options
	sem  chan struct{}

	// onForm is false once the page has moved past the form
	onForm bool
}

// New creates a Navigator driving page
func New(page Page, opts Options) *Navigator {
	if opts.SubjectSelect == "" {
		opts.SubjectSelect = DefaultSubjectSelect
	}
	if opts.TermSelect == "" {
		opts.TermSelect = DefaultTermSelect
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	return &Navigator{
		page: page,
		opts: opts,
		sem:  make(chan struct{}, 1),
	}
}

// Acquire waits for exclusive use of the session. The returned Session must be
// released when the caller is done with it.
func (n *Navigator) Acquire(ctx context.Context) (*Session, error) {
	select {
	case n.sem <- struct{}{}:
		return &Session{nav: n}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring timetable session: %w", ctx.Err())
	}
}

// Do runs fn while holding the session
func (n *Navigator) Do(ctx context.Context, fn func(*Session) error) error {
	s, err := n.Acquire(ctx)
	if err != nil {
		return err
	}
	defer s.Release()
	return fn(s)
}

// Session is an exclusive lease on a Navigator's page
type Session struct {
	nav      *Navigator
	once     sync.Once
	released bool
}

// Release returns the session to its Navigator. Calling it more than once is a no-op.
func (s *Session) Release() {
	s.once.Do(func() {
		s.released = true
		<-s.nav.sem
	})
}

// Result describes a successful EnsureOn
type Result struct {
	Subject  string
	Term     int
	URL      string
	Title    string
	Warnings []error
	Elapsed  time.Duration
}

// form holds the option lists read from a freshly loaded form page
type form struct {
	title    string
	subjects []Option
	terms    []Option
}

// EnsureOn brings the page to the result listing for prefix and term. Both
// are validated against the option lists the page currently offers.
func (s *Session) EnsureOn(ctx context.Context, prefix string, term int) (*Result, error) {
	if s.released {
		return nil, ErrSessionReleased
	}

	n := s.nav
	start := time.Now()
	if n.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.Timeout)
		defer cancel()
	}

	termValue := strconv.Itoa(term)
	var result *Result

	err := n.retry(ctx, "ensure on timetable", func(reload bool) error {
		f, err := n.loadForm(ctx, reload)
		if err != nil {
			return err
		}

		result = &Result{Subject: prefix, Term: term}
		if n.opts.ExpectedTitle != "" && f.title != n.opts.ExpectedTitle {
			result.Warnings = append(result.Warnings,
				fmt.Errorf("%w: title %q, want %q", ErrPageMismatch, f.title, n.opts.ExpectedTitle))
		}

		if !containsValue(f.subjects, prefix) {
			return fmt.Errorf("%w: %s", ErrInvalidSubject, prefix)
		}
		if !containsValue(f.terms, termValue) {
			return fmt.Errorf("%w: %d", ErrInvalidTerm, term)
		}

		if err := n.page.Select(n.opts.SubjectSelect, prefix); err != nil {
			return err
		}
		if err := n.page.Select(n.opts.TermSelect, termValue); err != nil {
			return err
		}

		submitStart := time.Now()
		n.onForm = false
		if err := n.page.Submit(ctx); err != nil {
			return err
		}
		logger.RecordTiming("timetable.submit", time.Since(submitStart))

		if n.page.Document() == nil {
			return fmt.Errorf("%w: result page not loaded", ErrStale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, w := range result.Warnings {
		logger.Warn("Unexpected timetable page", logger.Fields{
			"url":     n.page.URL(),
			"subject": prefix,
			"term":    term,
			"warning": w.Error(),
		})
	}

	result.URL = n.page.URL()
	result.Title = n.page.Title()
	result.Elapsed = time.Since(start)
	logger.RecordTiming("timetable.ensure_on", result.Elapsed)

	return result, nil
}

// Document returns the currently loaded page, normally the result listing after EnsureOn.
func (s *Session) Document() *goquery.Document {
	if s.released {
		return nil
	}
	return s.nav.page.Document()
}

// Subjects lists the subject options currently offered by the form
func (s *Session) Subjects(ctx context.Context) ([]Option, error) {
	f, err := s.form(ctx)
	if err != nil {
		return nil, err
	}
	return f.subjects, nil
}

// Terms lists the term options currently offered by the form
func (s *Session) Terms(ctx context.Context) ([]Option, error) {
	f, err := s.form(ctx)
	if err != nil {
		return nil, err
	}
	return f.terms, nil
}

// ValidateSubject checks prefix against the live subject list
func (s *Session) ValidateSubject(ctx context.Context, prefix string) error {
	subjects, err := s.Subjects(ctx)
	if err != nil {
		return err
	}
	if !containsValue(subjects, prefix) {
		return fmt.Errorf("%w: %s", ErrInvalidSubject, prefix)
	}
	return nil
}

func (s *Session) form(ctx context.Context) (*form, error) {
	if s.released {
		return nil, ErrSessionReleased
	}

	n := s.nav
	if n.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.Timeout)
		defer cancel()
	}

	var f *form
	err := n.retry(ctx, "load timetable form", func(reload bool) error {
		var err error
		f, err = n.loadForm(ctx, reload)
		return err
	})
	return f, err
}

// loadForm makes sure the form page is loaded and reads its option lists
func (n *Navigator) loadForm(ctx context.Context, reload bool) (*form, error) {
	if reload || !n.onForm || n.page.URL() != n.opts.URL {
		n.onForm = false
		if err := n.page.Navigate(ctx, n.opts.URL); err != nil {
			return nil, err
		}
		n.onForm = true
	}

	subjects, err := n.page.Options(n.opts.SubjectSelect)
	if err != nil {
		return nil, fmt.Errorf("reading subjects: %w", err)
	}
	terms, err := n.page.Options(n.opts.TermSelect)
	if err != nil {
		return nil, fmt.Errorf("reading terms: %w", err)
	}

	return &form{
		title:    n.page.Title(),
		subjects: subjects,
		terms:    terms,
	}, nil
}

// retry runs op with exponential backoff while it fails transiently. op is
// told to reload the page on every attempt after the first. Transient
// failures that exhaust the budget are reported as ErrFetch.
func (n *Navigator) retry(ctx context.Context, what string, op func(reload bool) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.opts.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(n.opts.Retries)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op(attempt > 1)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		logger.IncrCounter("timetable.retries")
		logger.Warn("Transient timetable failure", logger.Fields{
			"operation": what,
			"attempt":   attempt,
			"error":     err.Error(),
		})
		return err
	}, policy)

	if err != nil && (isTransient(err) || ctx.Err() != nil) {
		return fmt.Errorf("%w: %s after %d attempts: %w", ErrFetch, what, attempt, err)
	}
	return err
}
