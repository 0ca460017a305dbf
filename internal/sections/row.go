package sections

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTitleSelector matches the bold cells holding course headers
	DefaultTitleSelector = "td.fieldformatboldtext"
	// DefaultHeaderLabel is the first cell text of column header rows
	DefaultHeaderLabel = "Term"
	// DefaultMinLectureCells is the fewest cells a full lecture row has
	DefaultMinLectureCells = 13
)

// Kind is the classification of a section-table row
type Kind int

const (
	KindNoise Kind = iota
	KindLab
	KindTitle
	KindLecture
)

func (k Kind) String() string {
	switch k {
	case KindNoise:
		return "noise"
	case KindLab:
		return "lab"
	case KindTitle:
		return "title"
	case KindLecture:
		return "lecture"
	}
	return "unknown"
}

// Row is one table row of the result page. Title rows carry the course
// header text and the text of the link embedded in it.
type Row struct {
	Cells  []string
	Title  bool
	Header string
	Link   string
}

// Classify determines a row's kind from its cell count and first cell text
// using the default header label and minimum lecture width.
func Classify(cells []string) Kind {
	return classify(cells, DefaultHeaderLabel, DefaultMinLectureCells)
}

func classify(cells []string, headerLabel string, minCells int) Kind {
	switch {
	case len(cells) == 0 || cells[0] == headerLabel:
		return KindNoise
	case cells[0] == "":
		return KindLab
	case len(cells) < minCells:
		return KindTitle
	default:
		return KindLecture
	}
}

// ExtractRows flattens doc into rows in document order. Only innermost rows
// are kept, so layout tables wrapping the listing do not produce rows.
func ExtractRows(doc *goquery.Document, titleSelector string) []Row {
	if titleSelector == "" {
		titleSelector = DefaultTitleSelector
	}

	rows := make([]Row, 0)
	doc.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if tr.Find("tr").Length() > 0 {
			return
		}

		row := Row{Cells: make([]string, 0)}
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			row.Cells = append(row.Cells, cellText(td.Text()))
		})

		if title := tr.Find(titleSelector).First(); title.Length() > 0 {
			row.Title = true
			row.Header = cellText(title.Text())
			row.Link = cellText(title.Find("a").First().Text())
		}

		rows = append(rows, row)
	})

	return rows
}

// cellText collapses runs of whitespace, including non-breaking spaces
func cellText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
