// Package cli implements the command-line interface for schedule-planner.
//
// The cli package provides the Cobra-based CLI with commands for fetching a
// course's sections for one or more terms, listing the subjects and terms the
// timetable offers, and showing courses saved by earlier fetches. Output is
// text or JSON, sections can be sorted by CRN, start time, open seats or
// instructor rating, and each refresh reports how a term changed since the
// previous fetch.
package cli
