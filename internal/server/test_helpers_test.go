package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/gin-gonic/gin"
)

type stubTransport struct {
	mu         sync.Mutex
	leads      []leads.Lead
	fetchErr   error
	patchErr   error
	fetchCalls int
	patchCalls int
	lastPatch  leads.Patch

	patchStarted chan struct{}
	releasePatch chan struct{}
}

func (s *stubTransport) FetchLeads(ctx context.Context) ([]leads.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]leads.Lead(nil), s.leads...), nil
}

func (s *stubTransport) PatchLead(ctx context.Context, id string, patch leads.Patch) (leads.Lead, error) {
	if s.patchStarted != nil {
		s.patchStarted <- struct{}{}
		<-s.releasePatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchCalls++
	s.lastPatch = patch.Clone()
	if s.patchErr != nil {
		return leads.Lead{}, s.patchErr
	}
	for index := range s.leads {
		if s.leads[index].ID != id {
			continue
		}
		for field, value := range patch {
			switch field {
			case leads.FieldName:
				s.leads[index].Name = value
			case leads.FieldLastName:
				s.leads[index].LastName = value
			case leads.FieldPhone:
				s.leads[index].Phone = value
			case leads.FieldAddress:
				s.leads[index].Address = value
			}
		}
		return s.leads[index], nil
	}
	return leads.Lead{}, nil
}

type userFacingError struct {
	text string
}

func (e userFacingError) Error() string       { return "transport: " + e.text }
func (e userFacingError) UserMessage() string { return e.text }

type scheduledCall struct {
	delay time.Duration
	fn    func()
}

type manualScheduler struct {
	mu      sync.Mutex
	pending []scheduledCall
}

func (s *manualScheduler) schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, scheduledCall{delay: delay, fn: fn})
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.pending))
	for _, call := range s.pending {
		out = append(out, call.delay)
	}
	return out
}

func (s *manualScheduler) runAll() {
	s.mu.Lock()
	calls := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, call := range calls {
		call.fn()
	}
}

func sampleLeads() []leads.Lead {
	return []leads.Lead{
		{ID: "a1", CreatedAt: "2025-03-01T09:00:00+00:00", Name: "Juan", LastName: "Pérez", Phone: "654789098", Address: "Calle Mayor 1"},
		{ID: "b2", CreatedAt: "2025-01-15T12:30:00+00:00", Name: "Ana", LastName: "López", Phone: "612345678", Address: "Gran Vía 22"},
		{ID: "c3", CreatedAt: "2025-02-10T08:00:00+00:00", Name: "José", LastName: "Martín", Phone: "699000111", Address: ""},
	}
}

func newTestHandler(t *testing.T, transport *stubTransport) (http.Handler, *manualScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	console, err := leads.NewConsole(leads.Config{
		Transport: transport,
		PageSize:  20,
		Clock:     func() time.Time { return time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("failed to construct console: %v", err)
	}

	scheduler := &manualScheduler{}
	handler, err := NewHTTPHandler(Dependencies{
		Console:  console,
		schedule: scheduler.schedule,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return handler, scheduler
}

func performRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		payload = encoded
	}
	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeState(t *testing.T, recorder *httptest.ResponseRecorder) leads.State {
	t.Helper()
	var state leads.State
	if err := json.Unmarshal(recorder.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode state: %v (%s)", err, recorder.Body.String())
	}
	return state
}

type wrappedResponse struct {
	Applied bool        `json:"applied"`
	Saved   bool        `json:"saved"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
	State   leads.State `json:"state"`
}

func decodeWrapped(t *testing.T, recorder *httptest.ResponseRecorder) wrappedResponse {
	t.Helper()
	var response wrappedResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v (%s)", err, recorder.Body.String())
	}
	return response
}

func mustReload(t *testing.T, handler http.Handler) leads.State {
	t.Helper()
	recorder := performRequest(t, handler, http.MethodPost, "/console/reload", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected reload status 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	return decodeWrapped(t, recorder).State
}
