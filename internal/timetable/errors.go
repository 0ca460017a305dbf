package timetable

import "errors"

var (
	// ErrInvalidSubject means the subject prefix is not offered by the timetable.
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrInvalidTerm means the term code is not offered by the timetable.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrPageMismatch is recorded as a warning when the page title is not the expected one.
	ErrPageMismatch = errors.New("unexpected timetable page")

	// ErrElementNotFound means an expected control is missing from the loaded page.
	ErrElementNotFound = errors.New("element not found")

	// ErrStale means the page could not be loaded or its contents are out of date.
	ErrStale = errors.New("stale page")

	// ErrFetch is returned once transient failures exhaust the retry budget.
	ErrFetch = errors.New("timetable fetch failed")

	// ErrSessionReleased is returned when a released session is used.
	ErrSessionReleased = errors.New("session already released")
)

// isTransient reports whether err is worth retrying after a page reload
func isTransient(err error) bool {
	return errors.Is(err, ErrElementNotFound) || errors.Is(err, ErrStale)
}
