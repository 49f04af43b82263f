package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	envPrefix             = "LEADCONSOLE"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultLeadsTimeout   = 15 * time.Second
	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 10
	defaultSort           = "created_desc"
	defaultLocale         = "es"
	defaultTimeZone       = "Local"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultLogOutput      = "stderr"
)

// AppConfig captures runtime configuration for the console.
type AppConfig struct {
	LeadsBaseURL   string
	LeadsTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	HTTPAddress    string
	PageSize       int
	Sort           leads.SortKey
	Locale         language.Tag
	Location       *time.Location
	ConfirmDelay   time.Duration
	LogLevel       string
	LogFormat      string
	LogOutput      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("leads.base_url", "")
	configViper.SetDefault("leads.timeout", defaultLeadsTimeout)
	configViper.SetDefault("leads.rate_limit_rps", defaultRateLimitRPS)
	configViper.SetDefault("leads.rate_limit_burst", defaultRateLimitBurst)
	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("view.page_size", leads.DefaultPageSize)
	configViper.SetDefault("view.sort", defaultSort)
	configViper.SetDefault("view.locale", defaultLocale)
	configViper.SetDefault("view.time_zone", defaultTimeZone)
	configViper.SetDefault("ui.confirm_delay", leads.DefaultConfirmDelay)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("log.output", defaultLogOutput)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		LeadsBaseURL:   strings.TrimSpace(configViper.GetString("leads.base_url")),
		LeadsTimeout:   configViper.GetDuration("leads.timeout"),
		RateLimitRPS:   configViper.GetFloat64("leads.rate_limit_rps"),
		RateLimitBurst: configViper.GetInt("leads.rate_limit_burst"),
		HTTPAddress:    configViper.GetString("http.address"),
		PageSize:       configViper.GetInt("view.page_size"),
		ConfirmDelay:   configViper.GetDuration("ui.confirm_delay"),
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
		LogOutput:      configViper.GetString("log.output"),
	}

	sortKey, err := leads.ParseSortKey(configViper.GetString("view.sort"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("view.sort: %w", err)
	}
	cfg.Sort = sortKey

	locale, err := language.Parse(strings.TrimSpace(configViper.GetString("view.locale")))
	if err != nil {
		return AppConfig{}, fmt.Errorf("view.locale: %w", err)
	}
	cfg.Locale = locale

	location, err := time.LoadLocation(strings.TrimSpace(configViper.GetString("view.time_zone")))
	if err != nil {
		return AppConfig{}, fmt.Errorf("view.time_zone: %w", err)
	}
	cfg.Location = location

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.LeadsBaseURL == "" {
		return fmt.Errorf("leads.base_url is required")
	}
	parsed, err := url.Parse(c.LeadsBaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("leads.base_url must be an absolute http(s) url")
	}
	if c.LeadsTimeout <= 0 {
		return fmt.Errorf("leads.timeout must be positive")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("leads.rate_limit_rps must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("leads.rate_limit_burst must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("view.page_size must be positive")
	}
	if c.ConfirmDelay < 0 {
		return fmt.Errorf("ui.confirm_delay must not be negative")
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	return nil
}
