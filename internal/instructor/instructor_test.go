package instructor

import "testing"

func TestFromListing(t *testing.T) {
	tests := []struct {
		input     string
		wantName  string
		wantFirst string
		wantLast  string
		wantStaff bool
	}{
		{"Nelson, Michael", "Michael Nelson", "Michael", "Nelson", false},
		{"  Van Dyke,   Anna Marie ", "Anna Marie Van Dyke", "Anna Marie", "Van Dyke", false},
		{"Staff", "Staff", "", "", true},
		{"STAFF", "Staff", "", "", true},
		{"", "Staff", "", "", true},
		{"Madonna", "Madonna", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := FromListing(tt.input)
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("First/Last = %q/%q, want %q/%q", got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
			if got.IsStaff() != tt.wantStaff {
				t.Errorf("IsStaff() = %v, want %v", got.IsStaff(), tt.wantStaff)
			}
			if got.HasRating() {
				t.Error("listing record should not carry a rating")
			}
		})
	}
}

func TestNameTokens(t *testing.T) {
	first, last, ok := nameTokens("Anna Marie Van Dyke")
	if !ok || first != "Anna" || last != "Dyke" {
		t.Errorf("nameTokens() = %q, %q, %v", first, last, ok)
	}
	if _, _, ok := nameTokens("Staff"); ok {
		t.Error("single-token name should not produce lookup tokens")
	}
}
