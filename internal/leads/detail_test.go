package leads

import (
	"testing"
	"time"
)

func TestProjectUnknownIDYieldsNoSelection(t *testing.T) {
	projector := Projector{}
	for _, id := range []string{"", "missing"} {
		detail := projector.Project(sampleLeads(), id)
		if detail != EmptyDetail() {
			t.Fatalf("expected empty detail for %q, got %#v", id, detail)
		}
		if detail.CanCopyID || detail.CanEdit || detail.Selected {
			t.Fatalf("expected actions disabled for %q", id)
		}
		if detail.Name != Placeholder || detail.Phone != Placeholder || detail.Created != Placeholder {
			t.Fatalf("expected placeholders for %q, got %#v", id, detail)
		}
	}
}

func TestProjectFillsPlaceholdersForEmptyFields(t *testing.T) {
	detail := Projector{}.Project(sampleLeads(), "c3")

	if !detail.Selected || !detail.CanCopyID || !detail.CanEdit {
		t.Fatalf("expected enabled actions, got %#v", detail)
	}
	if detail.Name != "José" || detail.LastName != "Martín" {
		t.Fatalf("unexpected names: %#v", detail)
	}
	if detail.Phone != Placeholder || detail.Address != Placeholder || detail.CreatedAt != Placeholder {
		t.Fatalf("expected placeholders, got %#v", detail)
	}
}

func TestFormatCreated(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("time zone database unavailable: %v", err)
	}
	projector := NewProjector(madrid)

	testCases := []struct {
		raw  string
		want string
	}{
		{raw: "2025-03-01T09:00:00+00:00", want: "01/03/2025 10:00"},
		{raw: "2025-07-01T09:00:00.123456+00:00", want: "01/07/2025 11:00"},
		{raw: "", want: Placeholder},
		{raw: "yesterday", want: "yesterday"},
	}
	for _, testCase := range testCases {
		if got := projector.FormatCreated(testCase.raw); got != testCase.want {
			t.Fatalf("FormatCreated(%q) = %q, want %q", testCase.raw, got, testCase.want)
		}
	}
}

func TestRowLabels(t *testing.T) {
	projector := Projector{}
	row := projector.Row(Lead{ID: "0123456789abcdef", Name: "Ana", LastName: ""})
	if row.Label != "Ana" {
		t.Fatalf("expected trimmed label, got %q", row.Label)
	}
	if row.ShortID != "0123456789…" {
		t.Fatalf("unexpected short id %q", row.ShortID)
	}
	if row.Phone != Placeholder || row.Created != Placeholder {
		t.Fatalf("expected placeholders, got %#v", row)
	}

	anonymous := projector.Row(Lead{ID: "x"})
	if anonymous.Label != Placeholder || anonymous.ShortID != "x" {
		t.Fatalf("unexpected anonymous row %#v", anonymous)
	}
}
