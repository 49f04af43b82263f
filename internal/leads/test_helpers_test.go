package leads

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type stubTransport struct {
	leads      []Lead
	fetchErr   error
	patchErr   error
	patched    Lead
	fetchCalls int
	patchCalls int
	lastID     string
	lastPatch  Patch
}

func (s *stubTransport) FetchLeads(ctx context.Context) ([]Lead, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]Lead(nil), s.leads...), nil
}

func (s *stubTransport) PatchLead(ctx context.Context, id string, patch Patch) (Lead, error) {
	s.patchCalls++
	s.lastID = id
	s.lastPatch = patch.Clone()
	if s.patchErr != nil {
		return Lead{}, s.patchErr
	}
	if s.patched.ID != "" {
		for index := range s.leads {
			if s.leads[index].ID == s.patched.ID {
				s.leads[index] = s.patched
			}
		}
	}
	return s.patched, nil
}

type userFacingError struct {
	text string
}

func (e userFacingError) Error() string       { return "transport: " + e.text }
func (e userFacingError) UserMessage() string { return e.text }

func numberedLeads(count int) []Lead {
	records := make([]Lead, 0, count)
	for index := 1; index <= count; index++ {
		records = append(records, Lead{
			ID:        fmt.Sprintf("lead-%02d", index),
			CreatedAt: fmt.Sprintf("2025-01-%02dT10:00:00+00:00", index%28+1),
			Name:      fmt.Sprintf("Name %02d", index),
		})
	}
	return records
}

func sampleLeads() []Lead {
	return []Lead{
		{ID: "a1", CreatedAt: "2025-03-01T09:00:00+00:00", Name: "Juan", LastName: "Pérez", Phone: "654789098", Address: "Calle Mayor 1"},
		{ID: "b2", CreatedAt: "2025-01-15T12:30:00+00:00", Name: "ana", LastName: "López", Phone: "612345678", Address: "Gran Vía 22"},
		{ID: "c3", CreatedAt: "", Name: "José", LastName: "Martín", Phone: "", Address: ""},
		{ID: "d4", CreatedAt: "2025-02-10T08:00:00+00:00", Name: "", LastName: "Sin Nombre", Phone: "699000111", Address: "Plaza España"},
	}
}

func newTestConsole(t *testing.T, transport *stubTransport) *Console {
	t.Helper()
	console, err := NewConsole(Config{
		Transport:    transport,
		PageSize:     20,
		ConfirmDelay: 10 * time.Millisecond,
		Clock:        func() time.Time { return time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected console error: %v", err)
	}
	return console
}

func mustReload(t *testing.T, console *Console) {
	t.Helper()
	if err := console.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
}

func ids(items []Lead) []string {
	out := make([]string, 0, len(items))
	for _, lead := range items {
		out = append(out, lead.ID)
	}
	return out
}

func assertIDs(t *testing.T, got []Lead, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, gotIDs)
	}
	for index := range want {
		if gotIDs[index] != want[index] {
			t.Fatalf("expected ids %v, got %v", want, gotIDs)
		}
	}
}
