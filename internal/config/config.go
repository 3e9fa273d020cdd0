// Package config loads and validates the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Unparseable-row policies for the schedule builder.
const (
	PolicySkip  = "skip"
	PolicyAbort = "abort"
)

// SourceConfig describes where the schedule spreadsheet lives.
type SourceConfig struct {
	// PublicLink is the Yandex.Disk public link to the XLSX document.
	PublicLink string `yaml:"public_link"`
	// Sheet is the worksheet name; empty means the first sheet.
	Sheet string `yaml:"sheet"`
	// Timeout bounds the whole download (e.g. "30s", "1m"). Parsed with
	// str2duration so day/week units also work.
	Timeout string `yaml:"timeout"`
}

// ScheduleConfig controls how raw rows are resolved to timestamps.
type ScheduleConfig struct {
	// Timezone is the IANA zone the schedule times are anchored to.
	Timezone string `yaml:"timezone"`
	// Year completes "DD.MM" date labels found in the sheet.
	Year int `yaml:"year"`
	// WeekStart is an optional YYYY-MM-DD Monday used to resolve rows
	// that carry only a weekday name and no date label.
	WeekStart string `yaml:"week_start"`
	// UIDPrefix is prepended to every generated event UID.
	UIDPrefix string `yaml:"uid_prefix"`
	// OnUnparseable is "skip" (log and continue) or "abort" (fail the
	// whole build on the first row that cannot be interpreted).
	OnUnparseable string `yaml:"on_unparseable"`
}

// ScanConfig bounds the spreadsheet grid scan.
type ScanConfig struct {
	// MaxHeaderRows is how many leading rows are searched for the
	// weekday header.
	MaxHeaderRows int `yaml:"max_header_rows"`
	// DateScanUp is how many rows above a lesson cell are searched for
	// its "DD.MM" date label.
	DateScanUp int `yaml:"date_scan_up"`
}

// CalendarConfig carries feed metadata.
type CalendarConfig struct {
	Name string `yaml:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the server.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ServerConfig configures the HTTP delivery layer.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// LazyBuild makes GET /schedule.ics trigger a build when the cache
	// is empty instead of answering 503.
	LazyBuild bool `yaml:"lazy_build"`
	// BuildOnStart runs one pipeline pass before serving.
	BuildOnStart bool `yaml:"build_on_start"`
	// Refresh is an optional cron expression for periodic rebuilds
	// (e.g. "*/30 * * * *"). Empty disables the timer.
	Refresh string `yaml:"refresh"`
	// BasicAuth, if non-nil, protects all endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Scan     ScanConfig     `yaml:"scan"`
	Calendar CalendarConfig `yaml:"calendar"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills in missing values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Source.Timeout == "" {
		c.Source.Timeout = "30s"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Moscow"
	}
	if c.Schedule.Year == 0 {
		c.Schedule.Year = time.Now().Year()
	}
	if c.Schedule.OnUnparseable == "" {
		c.Schedule.OnUnparseable = PolicySkip
	}
	if c.Scan.MaxHeaderRows <= 0 {
		c.Scan.MaxHeaderRows = 8
	}
	if c.Scan.DateScanUp <= 0 {
		c.Scan.DateScanUp = 8
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = "Schedule"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8080"
	}
}

// Validate checks fields that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.Source.PublicLink == "" {
		return errors.New("source.public_link is required")
	}
	if _, err := str2duration.ParseDuration(c.Source.Timeout); err != nil {
		return fmt.Errorf("source.timeout: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	switch c.Schedule.OnUnparseable {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("schedule.on_unparseable: must be %q or %q, got %q",
			PolicySkip, PolicyAbort, c.Schedule.OnUnparseable)
	}
	if c.Schedule.WeekStart != "" {
		if _, err := time.Parse("2006-01-02", c.Schedule.WeekStart); err != nil {
			return fmt.Errorf("schedule.week_start: %w", err)
		}
	}
	if c.Server.BasicAuth != nil &&
		(c.Server.BasicAuth.Username == "" || c.Server.BasicAuth.Password == "") {
		return errors.New("server.basic_auth: username and password must both be set")
	}
	return nil
}

// SourceTimeout returns the parsed source.timeout value. Validate has
// already checked it, so a parse failure here falls back to 30s.
func (c *Config) SourceTimeout() time.Duration {
	d, err := str2duration.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Location returns the parsed schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}
