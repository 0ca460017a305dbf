// Package timetable drives the form-based timetable page: it selects a
// subject and term, submits the form and hands back the loaded result page.
package timetable

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Option is one entry of a select control
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Page is the browsing surface the navigator drives. Implementations hold the
// currently loaded document and any pending form selections.
type Page interface {
	// Navigate loads url, discarding pending selections.
	Navigate(ctx context.Context, url string) error
	// URL returns the address of the loaded document, or "" before the first load.
	URL() string
	// Title returns the loaded document's title.
	Title() string
	// Options lists the options of the select control with the given id.
	Options(selectID string) ([]Option, error)
	// Select chooses value in the select control with the given id.
	Select(selectID, value string) error
	// Submit sends the form and loads the resulting page.
	Submit(ctx context.Context) error
	// Document returns the loaded document, or nil before the first load.
	Document() *goquery.Document
}

func containsValue(options []Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
