package timeblock

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  TimeBlock
	}{
		{"9:00-9:50 am", New(9, 0, 9, 50)},
		{"1:00-2:50 pm", New(13, 0, 14, 50)},
		{"11:00-1:50 pm", New(11, 0, 13, 50)},
		{"11:30-12:30 pm", New(11, 30, 12, 30)},
		{"12:00-12:50 pm", New(12, 0, 12, 50)},
		{"12:30-1:20 pm", New(12, 30, 13, 20)},
		{"8:00-10:50 AM", New(8, 0, 10, 50)},
		{"  4:00 - 5:20 PM ", New(16, 0, 17, 20)},
		{"10:00-11:20am", New(10, 0, 11, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"TBA", "TBA"},
		{"missing separator", "9:00 9:50 am"},
		{"too many separators", "9:00-9:50-10:00 am"},
		{"bad designator", "9:00-9:50 xm"},
		{"no designator", "9:00-9:50"},
		{"non-numeric hour", "a:00-9:50 am"},
		{"non-numeric minute", "9:bb-9:50 am"},
		{"missing minute", "9-9:50 am"},
		{"hour out of range", "13:00-14:00 pm"},
		{"minute out of range", "9:60-10:00 am"},
		{"spans midnight", "11:00-1:00 am"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", tt.input)
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("Parse(%q) error = %v, want ErrParse", tt.input, err)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeBlock
		want bool
	}{
		{"partial overlap", New(9, 0, 9, 50), New(9, 30, 10, 20), true},
		{"disjoint", New(9, 0, 9, 50), New(10, 0, 10, 50), false},
		{"touching boundary", New(9, 0, 9, 50), New(9, 50, 10, 40), false},
		{"contained", New(8, 0, 11, 50), New(9, 0, 9, 50), true},
		{"identical", New(13, 0, 14, 50), New(13, 0, 14, 50), true},
		{"same hour different minutes", New(9, 0, 9, 20), New(9, 30, 9, 50), false},
		{"minute overlap across hours", New(9, 0, 10, 10), New(10, 0, 10, 50), true},
		{"morning vs afternoon", New(9, 0, 9, 50), New(13, 0, 14, 50), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap not symmetric: %v.Overlaps(%v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	blocks := []TimeBlock{
		New(8, 0, 8, 50),
		New(8, 30, 9, 20),
		New(9, 0, 9, 50),
		New(9, 50, 10, 40),
		New(11, 0, 13, 50),
		New(12, 0, 12, 50),
		New(16, 0, 17, 20),
	}

	for _, a := range blocks {
		for _, b := range blocks {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Errorf("Overlaps not symmetric for %v and %v", a, b)
			}
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		tb   TimeBlock
		want string
	}{
		{New(9, 0, 9, 50), "9:00 am - 9:50 am"},
		{New(11, 0, 13, 50), "11:00 am - 1:50 pm"},
		{New(12, 0, 12, 50), "12:00 pm - 12:50 pm"},
		{New(16, 5, 17, 20), "4:05 pm - 5:20 pm"},
	}

	for _, tt := range tests {
		if got := tt.tb.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tb, err := Parse("11:00-1:50 pm")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := tb.Duration(); got != 170*time.Minute {
		t.Errorf("Duration() = %v, want %v", got, 170*time.Minute)
	}
	if tb.IsZero() {
		t.Error("parsed block should not be zero")
	}
}
