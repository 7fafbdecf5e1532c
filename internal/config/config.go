package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvListen      = "AGENDACAL_LISTEN"
	EnvGeocoderURL = "AGENDACAL_GEOCODER_URL"
	EnvLogLevel    = "AGENDACAL_LOG_LEVEL"
)

// ICSConfig describes a single ICS subscription contributing baseline events.
type ICSConfig struct {
	// URL is the ICS endpoint, a file:// URL or a local path.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Color is a palette token (blue, green, ...). Empty means gray.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// GridConfig mirrors layout.Grid.
type GridConfig struct {
	StartHour        int     `yaml:"start_hour" json:"start_hour"`
	EndHour          int     `yaml:"end_hour" json:"end_hour"`
	HourHeight       float64 `yaml:"hour_height" json:"hour_height"`
	MinBlockHeight   float64 `yaml:"min_block_height" json:"min_block_height"`
	CompactThreshold float64 `yaml:"compact_threshold" json:"compact_threshold"`
}

// WizardConfig tunes the address lookup of the appointment wizard.
type WizardConfig struct {
	DebounceMS     int `yaml:"debounce_ms" json:"debounce_ms"`
	MinQueryLength int `yaml:"min_query_length" json:"min_query_length"`
}

// GeocoderConfig points at a Nominatim-compatible search endpoint.
type GeocoderConfig struct {
	URL            string `yaml:"url" json:"url"`
	Country        string `yaml:"country" json:"country"`
	Limit          int    `yaml:"limit" json:"limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size" json:"cache_size"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen   string `yaml:"listen" json:"listen"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Locale selects day names: "fr" (default) or "en".
	Locale string `yaml:"locale" json:"locale"`

	// Timezone is the IANA zone ICS events are placed in. Empty means local.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") for re-fetching
	// ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Grid     GridConfig     `yaml:"grid" json:"grid"`
	Wizard   WizardConfig   `yaml:"wizard" json:"wizard"`
	Geocoder GeocoderConfig `yaml:"geocoder" json:"geocoder"`

	ICS      []ICSConfig `yaml:"ics" json:"ics"`
	CacheDir string      `yaml:"cache_dir" json:"cache_dir"`

	// Directory is an optional YAML file of contacts, projects, addresses and
	// collaborators. Empty uses the built-in sample directory.
	Directory string `yaml:"directory,omitempty" json:"directory,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	switch c.Locale {
	case "fr", "en":
	default:
		c.Locale = "fr"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}

	g := &c.Grid
	if g.StartHour <= 0 && g.EndHour <= 0 {
		g.StartHour, g.EndHour = 8, 20
	}
	if g.EndHour <= g.StartHour {
		g.EndHour = g.StartHour + 1
	}
	if g.HourHeight <= 0 {
		g.HourHeight = 72
	}
	if g.MinBlockHeight <= 0 {
		g.MinBlockHeight = 24
	}
	if g.CompactThreshold <= 0 {
		g.CompactThreshold = 48
	}

	if c.Wizard.DebounceMS <= 0 {
		c.Wizard.DebounceMS = 500
	}
	if c.Wizard.MinQueryLength <= 0 {
		c.Wizard.MinQueryLength = 3
	}

	geo := &c.Geocoder
	if geo.URL == "" {
		geo.URL = "https://nominatim.openstreetmap.org"
	}
	if geo.Country == "" {
		geo.Country = "fr"
	}
	if geo.Limit <= 0 {
		geo.Limit = 5
	}
	if geo.TimeoutSeconds <= 0 {
		geo.TimeoutSeconds = 5
	}
	if geo.CacheSize <= 0 {
		geo.CacheSize = 128
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies the AGENDACAL_* overrides. Variables already set win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvGeocoderURL); v != "" {
		c.Geocoder.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with 0600
// permissions on the result.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agendacal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
