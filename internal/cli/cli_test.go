package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pfrederiksen/schedule-planner/internal/timetable"
)

const formPage = `<html>
<head><title>WWU TimeTable of Classes</title></head>
<body>
<form action="/TimeTable" method="post">
  <select id="term" name="term">
    <option value="202440">Fall 2024</option>
    <option value="202510">Winter 2025</option>
  </select>
  <select id="subj" name="sel_subj">
    <option value="CSCI">Computer Science</option>
    <option value="MATH">Mathematics</option>
  </select>
  <input type="submit" name="sub" value="Submit">
</form>
</body>
</html>`

// timetableServer serves the form and a listing for CSCI 241 in Fall 2024
type timetableServer struct {
	*httptest.Server

	mu       sync.Mutex
	enrolled int
}

func newTimetableServer(t *testing.T) *timetableServer {
	t.Helper()
	ts := &timetableServer{enrolled: 25}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/TimeTable" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			fmt.Fprint(w, formPage)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fmt.Fprint(w, `<html><head><title>Results</title></head><body><table>`)
		if r.Form.Get("sel_subj") == "CSCI" && r.Form.Get("term") == "202440" {
			ts.mu.Lock()
			enrolled := ts.enrolled
			ts.mu.Unlock()
			fmt.Fprint(w, `<tr><td class="fieldformatboldtext">CSCI 241 <a>Data Structures</a> 4</td></tr>`)
			fmt.Fprint(w, `<tr><td>Term</td><td>CRN</td></tr>`)
			fmt.Fprintf(w, `<tr><td>202440</td><td>40124</td><td>TR</td><td>11:00-12:50 pm</td><td>Staff</td><td>CF 312</td><td></td><td>24</td><td>%d</td><td></td><td></td><td></td><td></td></tr>`, enrolled)
			fmt.Fprint(w, `<tr><td>202440</td><td>40123</td><td>MWF</td><td>9:00-9:50 am</td><td>Smith, John</td><td>CF 225</td><td></td><td>30</td><td>12</td><td></td><td></td><td></td><td></td></tr>`)
			fmt.Fprint(w, `<tr><td></td><td></td><td>T</td><td>1:00-2:50 pm</td><td>Smith, John</td><td>CF 420</td><td></td><td></td><td></td></tr>`)
		}
		fmt.Fprint(w, `<tr><td class="fieldformatboldtext">CSCI 301 <a>Formal Languages</a> 4</td></tr>`)
		fmt.Fprint(w, `</table></body></html>`)
	}))
	t.Cleanup(ts.Close)

	t.Setenv("TIMETABLE_URL", ts.URL+"/TimeTable")
	t.Setenv("FETCH_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RESOLVE_INSTRUCTORS", "false")
	return ts
}

func (ts *timetableServer) setEnrolled(n int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.enrolled = n
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetch(t *testing.T) {
	ts := newTimetableServer(t)
	dataDir := t.TempDir()

	out, err := run(t, "fetch", "--prefix", "csci", "--code", "241", "--term", "202440", "--data-dir", dataDir)
	if err != nil {
		t.Fatalf("fetch error = %v\n%s", err, out)
	}

	for _, want := range []string{
		"CSCI 241 Data Structures (4 credits)",
		"Term 202440 (2 sections):",
		"40123",
		"John Smith",
		"lab",
		"1:00 pm - 2:50 pm",
		"12/30",
		"Total: 2 sections across 1 terms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Changes since last fetch") {
		t.Error("first fetch must not report changes")
	}
	if strings.Index(out, "40123") > strings.Index(out, "40124") {
		t.Error("expected sections sorted by CRN")
	}

	if _, err := os.Stat(filepath.Join(dataDir, "course_CSCI_241.json")); err != nil {
		t.Errorf("expected course file saved: %v", err)
	}

	t.Run("refresh reports changes", func(t *testing.T) {
		ts.setEnrolled(24)

		out, err := run(t, "fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--data-dir", dataDir)
		if err != nil {
			t.Fatalf("fetch error = %v", err)
		}
		if !strings.Contains(out, "SEATS: 40124 25/24 -> 24/24") {
			t.Errorf("expected seat change reported\n%s", out)
		}
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, "fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--term", "202510",
			"--data-dir", dataDir, "--format", "json", "--sort", "seats")
		if err != nil {
			t.Fatalf("fetch error = %v", err)
		}

		var result OutputResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if result.Course != "CSCI 241" || result.Name != "Data Structures" || result.Credits != 4 {
			t.Errorf("unexpected course fields: %+v", result)
		}
		if len(result.Terms) != 2 {
			t.Fatalf("expected 2 terms, got %d", len(result.Terms))
		}

		fall := result.Terms[0]
		if !fall.Available || len(fall.Lectures) != 2 {
			t.Fatalf("unexpected fall result: %+v", fall)
		}
		if fall.Lectures[0].CRN != 40123 {
			t.Errorf("expected the section with most open seats first, got %d", fall.Lectures[0].CRN)
		}
		if fall.Changes == nil || !fall.Changes.Empty() {
			t.Errorf("expected an empty change set, got %+v", fall.Changes)
		}

		winter := result.Terms[1]
		if winter.Available || len(winter.Lectures) != 0 {
			t.Errorf("expected no winter sections, got %+v", winter)
		}
		if winter.Changes != nil {
			t.Error("first fetch of a term must not carry changes")
		}
		if result.SectionCount != 2 {
			t.Errorf("expected 2 sections, got %d", result.SectionCount)
		}
	})

	t.Run("filters sections", func(t *testing.T) {
		out, err := run(t, "fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440",
			"--data-dir", dataDir, "--format", "json", "--open", "--days", "MWFT")
		if err != nil {
			t.Fatalf("fetch error = %v", err)
		}

		var result OutputResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if result.Filter != "Days: MWFT | Open seats only" {
			t.Errorf("unexpected filter description %q", result.Filter)
		}
		lectures := result.Terms[0].Lectures
		if len(lectures) != 1 || lectures[0].CRN != 40123 {
			t.Errorf("expected only the open MWF lecture, got %d lectures", len(lectures))
		}
		if result.SectionCount != 1 {
			t.Errorf("expected 1 section shown, got %d", result.SectionCount)
		}
	})

	t.Run("list and show", func(t *testing.T) {
		out, err := run(t, "list", "--data-dir", dataDir)
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		if strings.TrimSpace(out) != "CSCI 241" {
			t.Errorf("unexpected list output %q", out)
		}

		out, err = run(t, "show", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--data-dir", dataDir)
		if err != nil {
			t.Fatalf("show error = %v", err)
		}
		if !strings.Contains(out, "Term 202440 (2 sections):") {
			t.Errorf("unexpected show output\n%s", out)
		}
	})
}

func TestFetchNotFound(t *testing.T) {
	newTimetableServer(t)
	dataDir := t.TempDir()

	out, err := run(t, "fetch", "--prefix", "MATH", "--code", "204", "--term", "202440", "--data-dir", dataDir)
	if !errors.Is(err, errNotFound) {
		t.Fatalf("expected errNotFound, got %v", err)
	}
	if exitCode(err) != ExitNotFound {
		t.Errorf("expected exit code %d, got %d", ExitNotFound, exitCode(err))
	}
	if !strings.Contains(out, "Term 202440: no sections") {
		t.Errorf("expected output before the error\n%s", out)
	}
}

func TestFetchInvalidSubject(t *testing.T) {
	newTimetableServer(t)

	_, err := run(t, "fetch", "--prefix", "XXXX", "--code", "101", "--term", "202440", "--data-dir", t.TempDir())
	if !errors.Is(err, timetable.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
	if exitCode(err) != ExitError {
		t.Errorf("expected exit code %d, got %d", ExitError, exitCode(err))
	}
}

func TestFetchFlagValidation(t *testing.T) {
	newTimetableServer(t)
	dataDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing term", []string{"fetch", "--prefix", "CSCI", "--code", "241"}, "term"},
		{"bad code", []string{"fetch", "--prefix", "CSCI", "--code", "-1", "--term", "202440"}, "--code"},
		{"bad format", []string{"fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--format", "xml"}, "invalid format"},
		{"bad sort", []string{"fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--sort", "name"}, "invalid sort order"},
		{"bad window", []string{"fetch", "--prefix", "CSCI", "--code", "241", "--term", "202440", "--within", "noon"}, "invalid time window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(tt.args, "--data-dir", dataDir)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSubjectsAndTerms(t *testing.T) {
	newTimetableServer(t)

	out, err := run(t, "subjects")
	if err != nil {
		t.Fatalf("subjects error = %v", err)
	}
	if !strings.Contains(out, "CSCI") || !strings.Contains(out, "Computer Science") {
		t.Errorf("unexpected subjects output\n%s", out)
	}

	out, err = run(t, "terms", "--format", "json")
	if err != nil {
		t.Fatalf("terms error = %v", err)
	}
	var terms []timetable.Option
	if err := json.Unmarshal([]byte(out), &terms); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(terms) != 2 || terms[0].Value != "202440" {
		t.Errorf("unexpected terms %+v", terms)
	}
}

func TestShowNotFetched(t *testing.T) {
	_, err := run(t, "show", "--prefix", "CSCI", "--code", "999", "--data-dir", t.TempDir())
	if exitCode(err) != ExitNotFound {
		t.Errorf("expected exit code %d, got %d (%v)", ExitNotFound, exitCode(err), err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"not found", errNotFound, ExitNotFound},
		{"wrapped not found", fmt.Errorf("show: %w", errNotFound), ExitNotFound},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
