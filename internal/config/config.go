package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

const (
	defaultTimezone    = "Asia/Seoul"
	defaultLogLevel    = "info"
	defaultRefreshCron = "0 3 * * *"
	defaultCacheDir    = "/var/lib/coursecal/holiday-cache"
	defaultOutputDir   = "/var/lib/coursecal/ics"
)

// HolidaySource describes one holiday calendar. Exactly one of URL or Path
// is expected; URL wins when both are set.
type HolidaySource struct {
	// ID is referenced from Course.HolidaySources and used in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is an ICS subscription endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA zone in which holiday feed instants are turned
	// into calendar dates (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxScanDays bounds how far past a course's start date sessions are
	// searched before the course is reported unreachable.
	MaxScanDays int `yaml:"max_scan_days" json:"max_scan_days"`

	// RefreshCron is a standard 5-field cron spec for re-planning all courses.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds cached holiday feed bodies and HTTP validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// OutputDir receives one <course-id>.ics per planned course.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// ExcludedDates are skipped by every course (YYYY-MM-DD).
	ExcludedDates []string `yaml:"excluded_dates" json:"excluded_dates"`

	// Holidays is the list of holiday calendars.
	Holidays []HolidaySource `yaml:"holidays" json:"holidays"`

	// Courses is the list of course variations to plan.
	Courses []model.Course `yaml:"courses" json:"courses"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:      defaultTimezone,
		LogLevel:      defaultLogLevel,
		MaxScanDays:   schedule.DefaultMaxScanDays,
		RefreshCron:   defaultRefreshCron,
		CacheDir:      defaultCacheDir,
		OutputDir:     defaultOutputDir,
		ExcludedDates: []string{},
		Holidays:      []HolidaySource{},
		Courses:       []model.Course{},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxScanDays <= 0 {
		c.MaxScanDays = schedule.DefaultMaxScanDays
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.ExcludedDates == nil {
		c.ExcludedDates = []string{}
	}
	if c.Holidays == nil {
		c.Holidays = []HolidaySource{}
	}
	for i := range c.Holidays {
		if c.Holidays[i].ID == "" {
			c.Holidays[i].ID = fmt.Sprintf("holidays-%d", i+1)
		}
	}
	if c.Courses == nil {
		c.Courses = []model.Course{}
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: invalid refresh spec %q: %w", c.RefreshCron, err)
	}
	if _, err := schedule.ParseDates(c.ExcludedDates); err != nil {
		return fmt.Errorf("config: excluded_dates: %w", err)
	}
	seen := make(map[string]bool, len(c.Holidays))
	for _, h := range c.Holidays {
		if h.URL == "" && h.Path == "" {
			return fmt.Errorf("config: holiday source %q has neither url nor path", h.ID)
		}
		if seen[h.ID] {
			return fmt.Errorf("config: duplicate holiday source id %q", h.ID)
		}
		seen[h.ID] = true
	}
	ids := make(map[string]bool, len(c.Courses))
	files := make(map[string]string, len(c.Courses))
	for _, course := range c.Courses {
		if course.ID == "" {
			return errors.New("config: course without id")
		}
		if ids[course.ID] {
			return fmt.Errorf("config: duplicate course id %q", course.ID)
		}
		ids[course.ID] = true
		// Case-folded so case-insensitive filesystems are covered too.
		name := strings.ToLower(course.FileName())
		if other, ok := files[name]; ok {
			return fmt.Errorf("config: courses %q and %q share output file %s", other, course.ID, course.FileName())
		}
		files[name] = course.ID
		for _, src := range course.HolidaySources {
			if !seen[src] {
				return fmt.Errorf("config: course %q references unknown holiday source %q", course.ID, src)
			}
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshaled, normalized and validated.
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
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data next to path and renames it into place.
// The final file has 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-*.tmp")
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
