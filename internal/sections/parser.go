package sections

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pfrederiksen/schedule-planner/internal/instructor"
	"github.com/pfrederiksen/schedule-planner/internal/logger"
	"github.com/pfrederiksen/schedule-planner/internal/timeblock"
)

var (
	// ErrParse marks a row whose numbers or times could not be read
	ErrParse = errors.New("unparseable row")

	// ErrMalformedRowOrder marks a lab row that has no lecture before it
	ErrMalformedRowOrder = errors.New("lab row without a preceding lecture")
)

// Columns maps section fields to cell positions. A negative position
// disables the field.
type Columns struct {
	CRN        int
	Days       int
	Time       int
	Instructor int
	Room       int
	MaxSeats   int
	Enrolled   int
	Traits     int
}

// DefaultColumns returns the observed lecture row layout
func DefaultColumns() Columns {
	return Columns{
		CRN:        1,
		Days:       2,
		Time:       3,
		Instructor: 4,
		Room:       5,
		MaxSeats:   7,
		Enrolled:   8,
		Traits:     -1,
	}
}

// Parser classifies result rows and builds section records
type Parser struct {
	Columns         Columns
	LabColumns      Columns
	HeaderLabel     string
	MinLectureCells int

	// Resolver, if set, is asked once per distinct instructor name
	Resolver instructor.Resolver
}

// NewParser returns a parser with the default layout and no resolver
func NewParser() *Parser {
	return &Parser{
		Columns:         DefaultColumns(),
		LabColumns:      DefaultColumns(),
		HeaderLabel:     DefaultHeaderLabel,
		MinLectureCells: DefaultMinLectureCells,
	}
}

// Result is the outcome of parsing one course's rows
type Result struct {
	Name       string
	Credits    int
	Lectures   []*Lecture
	Found      bool    // the course header was present
	HasLecture bool    // at least one lecture row was parsed
	Skipped    []error // rows that were skipped, with the reason
}

// Parse walks rows in document order, finds the header for prefix and code
// and collects the sections listed under it until the next course begins.
func (p *Parser) Parse(ctx context.Context, rows []Row, prefix string, code int) *Result {
	res := &Result{Lectures: make([]*Lecture, 0)}
	course := fmt.Sprintf("%s %d", prefix, code)
	people := make(map[string]*instructor.Instructor)

	var open *Lecture
	matched := false

rows:
	for _, row := range rows {
		if row.Title {
			if matched {
				break
			}
			h, err := parseHeader(row)
			if err != nil {
				logger.Debug("Skipping course header", logger.Fields{"header": row.Header, "error": err.Error()})
				continue
			}
			if h.prefix != prefix || h.code != code {
				continue
			}

			matched = true
			res.Found = true
			res.Name = h.name
			res.Credits = h.credits
			if h.creditsErr != nil {
				logger.Warn("Unreadable credit hours", logger.Fields{"course": course, "header": row.Header})
			}
			continue
		}
		if !matched {
			continue
		}

		kind := classify(row.Cells, p.HeaderLabel, p.MinLectureCells)
		logger.IncrCounter("sections.rows." + kind.String())

		switch kind {
		case KindNoise:
			continue

		case KindTitle:
			break rows

		case KindLab:
			if open == nil {
				err := fmt.Errorf("%w: %s: %v", ErrMalformedRowOrder, course, row.Cells)
				res.Skipped = append(res.Skipped, err)
				logger.Warn("Skipping lab row", logger.Fields{"course": course, "error": err.Error()})
				continue
			}
			lab, err := p.parseLab(ctx, row.Cells, people)
			if err != nil {
				res.Skipped = append(res.Skipped, err)
				logger.Warn("Skipping lab row", logger.Fields{"course": course, "lecture_crn": open.CRN, "error": err.Error()})
				continue
			}
			lab.LectureCRN = open.CRN
			if open.Lab != nil {
				logger.Debug("Replacing lab", logger.Fields{"course": course, "lecture_crn": open.CRN})
			}
			open.Lab = lab

		case KindLecture:
			lecture, err := p.parseLecture(ctx, row.Cells, people)
			if err != nil {
				// Labs that follow belong to this unreadable lecture, not the previous one
				open = nil
				res.Skipped = append(res.Skipped, err)
				logger.Warn("Skipping lecture row", logger.Fields{"course": course, "error": err.Error()})
				continue
			}
			res.Lectures = append(res.Lectures, lecture)
			res.HasLecture = true
			open = lecture
		}
	}

	return res
}

type header struct {
	prefix     string
	code       int
	name       string
	credits    int
	creditsErr error
}

// parseHeader reads "PREFIX CODE <name> <credits>" course header text
func parseHeader(row Row) (*header, error) {
	tokens := strings.Fields(row.Header)
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: header %q", ErrParse, row.Header)
	}

	code, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, fmt.Errorf("%w: course code %q", ErrParse, tokens[1])
	}

	h := &header{prefix: tokens[0], code: code, name: row.Link}

	last := []rune(tokens[len(tokens)-1])
	if len(tokens) > 2 && unicode.IsDigit(last[0]) {
		h.credits = int(last[0] - '0')
	} else {
		h.creditsErr = fmt.Errorf("%w: credits in %q", ErrParse, row.Header)
	}

	if h.name == "" && len(tokens) > 3 {
		h.name = strings.Join(tokens[2:len(tokens)-1], " ")
	}

	return h, nil
}

func (p *Parser) parseLecture(ctx context.Context, cells []string, people map[string]*instructor.Instructor) (*Lecture, error) {
	d, err := p.parseDetails(ctx, cells, p.Columns, true, people)
	if err != nil {
		return nil, err
	}
	return &Lecture{Details: *d}, nil
}

func (p *Parser) parseLab(ctx context.Context, cells []string, people map[string]*instructor.Instructor) (*Lab, error) {
	d, err := p.parseDetails(ctx, cells, p.LabColumns, false, people)
	if err != nil {
		return nil, err
	}
	return &Lab{Details: *d}, nil
}

// parseDetails reads the shared section fields. Lectures must carry a CRN
// and seat counts; labs often leave them blank.
func (p *Parser) parseDetails(ctx context.Context, cells []string, cols Columns, strict bool, people map[string]*instructor.Instructor) (*Details, error) {
	d := &Details{
		Days: cell(cells, cols.Days),
		Room: cell(cells, cols.Room),
	}

	var err error
	if d.CRN, err = number(cell(cells, cols.CRN), strict); err != nil {
		return nil, fmt.Errorf("%w: CRN: %v", ErrParse, err)
	}
	if strict && d.CRN <= 0 {
		return nil, fmt.Errorf("%w: CRN must be positive, got %d", ErrParse, d.CRN)
	}

	timeText := cell(cells, cols.Time)
	if d.Time, err = timeblock.Parse(timeText); err != nil {
		return nil, fmt.Errorf("%w: CRN %d: %w", ErrParse, d.CRN, err)
	}

	if d.MaxSeats, err = number(cell(cells, cols.MaxSeats), strict); err != nil {
		return nil, fmt.Errorf("%w: CRN %d: max seats: %v", ErrParse, d.CRN, err)
	}
	if d.Enrolled, err = number(cell(cells, cols.Enrolled), strict); err != nil {
		return nil, fmt.Errorf("%w: CRN %d: enrolled seats: %v", ErrParse, d.CRN, err)
	}

	if traits := cell(cells, cols.Traits); traits != "" {
		d.Traits = strings.FieldsFunc(traits, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
	}

	d.Instructor = p.instructor(ctx, cell(cells, cols.Instructor), people)
	return d, nil
}

// instructor returns the shared record for a listing, resolving each distinct name once
func (p *Parser) instructor(ctx context.Context, listing string, people map[string]*instructor.Instructor) *instructor.Instructor {
	base := instructor.FromListing(listing)
	if known, ok := people[base.Name]; ok {
		return known
	}
	people[base.Name] = base

	if p.Resolver == nil || base.IsStaff() {
		return base
	}

	resolved, err := p.Resolver.Resolve(ctx, base.Name)
	if err != nil {
		logger.Warn("Instructor lookup failed", logger.Fields{"instructor": base.Name, "error": err.Error()})
		return base
	}
	if resolved == nil {
		logger.Debug("No rating found", logger.Fields{"instructor": base.Name})
		return base
	}

	people[base.Name] = resolved
	return resolved
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// number parses a non-negative integer; blank is zero unless required
func number(s string, required bool) (int, error) {
	if s == "" {
		if required {
			return 0, errors.New("missing value")
		}
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
