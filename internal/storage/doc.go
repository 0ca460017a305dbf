// Package storage provides JSON-based persistence for course records and the
// instructor rating cache.
//
// Each course is stored in its own file (course_PREFIX_CODE.json) holding the
// sections of every term fetched so far. Resolved instructors share a single
// instructors.json. The default storage location is
// ~/.local/share/schedule-planner/.
package storage
