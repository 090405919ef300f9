package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/export"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/holiday"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/model"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/timetable"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for serve mode.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Input is the path to the saved timetable HTML page.
	Input string `yaml:"input"`

	// Target selects which plan on the page to export: "own" or "all".
	Target string `yaml:"target"`

	// OutDir is where timetable.ics and timetable.json are written.
	OutDir string `yaml:"out_dir"`

	// Land is the Bundesland code used for holiday lookups (e.g. "HE").
	Land string `yaml:"land"`

	// RangeStart/RangeEnd bound the export as YYYY-MM-DD dates. When both
	// are empty the school-year range is auto-detected from the vacation
	// API.
	RangeStart string `yaml:"range_start"`
	RangeEnd   string `yaml:"range_end"`

	// IncludeBreaks synthesizes break entries between lessons.
	IncludeBreaks bool `yaml:"include_breaks"`

	// UIDMode is "timestamp" (fresh identifiers per export) or "stable"
	// (repeat exports are update-compatible).
	UIDMode string `yaml:"uid_mode"`

	// Exclude lists identity keys ("Subject|Teacher") left out of exports.
	Exclude []string `yaml:"exclude"`

	// Listen is the HTTP address for serve mode.
	Listen string `yaml:"listen"`

	// RefreshCron schedules re-exports in serve mode (5-field cron spec).
	RefreshCron string `yaml:"refresh"`

	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`

	// BasicAuth, if non-nil, protects serve-mode endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input:       "stundenplan.html",
		Target:      timetable.TargetOwn,
		OutDir:      ".",
		Land:        "HE",
		UIDMode:     string(export.UIDTimestamp),
		Exclude:     []string{},
		Listen:      "127.0.0.1:8172",
		RefreshCron: "0 6 * * *",
		LogLevel:    "info",
	}
}

// Normalize fills missing or unknown values with defaults so that
// partially filled configs still behave.
func (c *Config) Normalize() {
	if c.Input == "" {
		c.Input = "stundenplan.html"
	}
	switch c.Target {
	case timetable.TargetOwn, timetable.TargetAll:
	default:
		c.Target = timetable.TargetOwn
	}
	if c.OutDir == "" {
		c.OutDir = "."
	}
	if c.Land == "" || !holiday.ValidLand(c.Land) {
		c.Land = "HE"
	}
	switch export.UIDMode(c.UIDMode) {
	case export.UIDTimestamp, export.UIDStable:
	default:
		c.UIDMode = string(export.UIDTimestamp)
	}
	if c.Exclude == nil {
		c.Exclude = []string{}
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8172"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 6 * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Range parses the configured date bounds. ok is false when no explicit
// range is configured and the school year should be auto-detected instead.
func (c *Config) Range() (rng model.DateRange, ok bool, err error) {
	if c.RangeStart == "" && c.RangeEnd == "" {
		return model.DateRange{}, false, nil
	}
	start, err := time.Parse("2006-01-02", c.RangeStart)
	if err != nil {
		return model.DateRange{}, false, fmt.Errorf("range_start: %w", model.ErrMissingRange)
	}
	end, err := time.Parse("2006-01-02", c.RangeEnd)
	if err != nil {
		return model.DateRange{}, false, fmt.Errorf("range_end: %w", model.ErrMissingRange)
	}
	rng, err = model.NewDateRange(start, end)
	if err != nil {
		return model.DateRange{}, false, err
	}
	return rng, true, nil
}

// Load reads configuration from the given YAML path via koanf, applying
// ST_-prefixed environment overrides (ST_OUT_DIR overrides out_dir; a
// double underscore nests, so ST_BASIC_AUTH__USERNAME reaches
// basic_auth.username).
// A missing file yields a freshly written default config, so first runs
// leave an editable file behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if saveErr := Save(path, cfg); saveErr != nil {
				return cfg, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := k.Load(env.Provider("ST_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "st_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically with 0600 permissions, creating
// the parent directory if needed.
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

	tmp, err := os.CreateTemp(dir, ".stundenplan-config-*.tmp")
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
