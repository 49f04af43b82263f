package config

import (
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"golang.org/x/text/language"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("leads.base_url", "http://localhost:8000")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("expected default address, got %q", cfg.HTTPAddress)
	}
	if cfg.PageSize != leads.DefaultPageSize || cfg.Sort != leads.SortCreatedDesc {
		t.Fatalf("unexpected view defaults %d %v", cfg.PageSize, cfg.Sort)
	}
	if cfg.Locale != language.Spanish {
		t.Fatalf("expected spanish collation, got %v", cfg.Locale)
	}
	if cfg.LeadsTimeout != defaultLeadsTimeout || cfg.ConfirmDelay != leads.DefaultConfirmDelay {
		t.Fatalf("unexpected durations %v %v", cfg.LeadsTimeout, cfg.ConfirmDelay)
	}
	if cfg.Location == nil {
		t.Fatalf("expected a location")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("LEADCONSOLE_LEADS_BASE_URL", "https://leads.example.com/api")
	t.Setenv("LEADCONSOLE_VIEW_SORT", "name_asc")
	t.Setenv("LEADCONSOLE_VIEW_PAGE_SIZE", "50")
	t.Setenv("LEADCONSOLE_VIEW_TIME_ZONE", "UTC")
	t.Setenv("LEADCONSOLE_LEADS_TIMEOUT", "3s")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.LeadsBaseURL != "https://leads.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.LeadsBaseURL)
	}
	if cfg.Sort != leads.SortNameAsc || cfg.PageSize != 50 {
		t.Fatalf("unexpected view settings %v %d", cfg.Sort, cfg.PageSize)
	}
	if cfg.Location != time.UTC || cfg.LeadsTimeout != 3*time.Second {
		t.Fatalf("unexpected location or timeout %v %v", cfg.Location, cfg.LeadsTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{name: "missing-base-url", key: "leads.base_url", value: "", wantErr: "leads.base_url is required"},
		{name: "relative-base-url", key: "leads.base_url", value: "leads.local", wantErr: "leads.base_url must be"},
		{name: "page-size", key: "view.page_size", value: 0, wantErr: "view.page_size"},
		{name: "sort", key: "view.sort", value: "phone_asc", wantErr: "view.sort"},
		{name: "locale", key: "view.locale", value: "not a locale!", wantErr: "view.locale"},
		{name: "time-zone", key: "view.time_zone", value: "Mars/Olympus", wantErr: "view.time_zone"},
		{name: "rate-limit", key: "leads.rate_limit_rps", value: 0, wantErr: "leads.rate_limit_rps"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set("leads.base_url", "http://localhost:8000")
			configViper.Set(testCase.key, testCase.value)

			_, err := Load(configViper)
			if err == nil || !strings.Contains(err.Error(), testCase.wantErr) {
				t.Fatalf("expected error containing %q, got %v", testCase.wantErr, err)
			}
		})
	}
}
