package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
)

// VaultConfig points at the note vault.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig controls the desktop notification sent after a run.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Config holds lunarsync configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Vault      VaultConfig      `yaml:"vault"`
	Conversion convert.Settings `yaml:"conversion"`
	Notify     NotifyConfig     `yaml:"notify"`
	Watch      WatchConfig      `yaml:"watch"`
}

// DefaultDebounceMS is the watch debounce used when none is configured.
const DefaultDebounceMS = 300

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version:    "1",
		Conversion: convert.DefaultSettings(),
		Notify:     NotifyConfig{Enabled: true},
		Watch:      WatchConfig{DebounceMS: DefaultDebounceMS},
	}
}

// Normalize repairs invalid values in place.
func (c *Config) Normalize() {
	c.Conversion.Normalize()
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = DefaultDebounceMS
	}
}

// Store represents a loaded LUNARSYNC_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the LUNARSYNC_HOME path, respecting the LUNARSYNC_HOME env var.
func Home() string {
	if h := os.Getenv("LUNARSYNC_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lunarsync")
	}
	return filepath.Join(home, ".lunarsync")
}

// Init creates the LUNARSYNC_HOME directory structure with a default config.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("LUNARSYNC_HOME already exists at %s (use --force to reinitialize)", home)
	}

	for _, d := range []string{home, filepath.Join(home, "logs")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	s := &Store{Home: home, Config: DefaultConfig()}
	return s.SaveConfig()
}

// Load reads an existing LUNARSYNC_HOME. Missing config fields are filled
// from defaults and invalid values are repaired.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read LUNARSYNC_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	cfg.Normalize()
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

type setter func(c *Config, value string) error

func stringField(field func(c *Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

// rangeField parses a year count. Malformed input falls back to the default
// and out-of-range numbers are clamped by Normalize.
func rangeField(field func(c *Config) *int, def int) setter {
	return func(c *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			n = def
		}
		*field(c) = n
		return nil
	}
}

var setters = map[string]setter{
	"vault.path": func(c *Config, value string) error {
		if value == "" {
			c.Vault.Path = ""
			return nil
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return fmt.Errorf("invalid vault path: %w", err)
		}
		c.Vault.Path = abs
		return nil
	},
	"notify.enabled": func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("notify.enabled must be true or false")
		}
		c.Notify.Enabled = b
		return nil
	},
	"watch.debounce_ms": func(c *Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return fmt.Errorf("watch.debounce_ms must be a positive integer")
		}
		c.Watch.DebounceMS = n
		return nil
	},
	"conversion.source_key":         stringField(func(c *Config) *string { return &c.Conversion.SourceKey }),
	"conversion.output_key_single":  stringField(func(c *Config) *string { return &c.Conversion.OutputKeySingle }),
	"conversion.output_key_pattern": stringField(func(c *Config) *string { return &c.Conversion.OutputKeyPattern }),
	"conversion.output_date_format": stringField(func(c *Config) *string { return &c.Conversion.OutputDateFormat }),
	"conversion.leap_strategy_key":  stringField(func(c *Config) *string { return &c.Conversion.LeapStrategyKey }),
	"conversion.output_mode": func(c *Config, value string) error {
		m := convert.OutputMode(strings.TrimSpace(value))
		if m != convert.Single && m != convert.Range {
			return fmt.Errorf("conversion.output_mode must be %q or %q", convert.Single, convert.Range)
		}
		c.Conversion.OutputMode = m
		return nil
	},
	"conversion.default_leap_strategy": func(c *Config, value string) error {
		s := lunar.ParseStrategy(value, "")
		if s == "" {
			return fmt.Errorf("conversion.default_leap_strategy must be one of strict, forward, backward")
		}
		c.Conversion.DefaultLeapStrategy = s
		return nil
	},
	"conversion.range_past":   rangeField(func(c *Config) *int { return &c.Conversion.RangePast }, convert.DefaultSettings().RangePast),
	"conversion.range_future": rangeField(func(c *Config) *int { return &c.Conversion.RangeFuture }, convert.DefaultSettings().RangeFuture),
	"conversion.target_paths": func(c *Config, value string) error {
		c.Conversion.TargetPaths = strings.Split(value, ",")
		return nil
	},
}

// ConfigKeys lists the keys accepted by SetConfigValue.
func ConfigKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetConfigValue sets a config value by dot-path key (e.g. "conversion.output_mode")
// and saves the config. The stored config is always normalized.
func (s *Store) SetConfigValue(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys(), ", "))
	}
	if err := set(&s.Config, value); err != nil {
		return err
	}
	s.Config.Normalize()
	return s.SaveConfig()
}

// Path resolves a path within LUNARSYNC_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// LogPath is the file receiving per-document diagnostics.
func (s *Store) LogPath() string {
	return s.Path("logs", "lunarsync.log")
}

// CheckHealth verifies LUNARSYNC_HOME structure and config.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "logs")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
		return issues
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		return issues
	}

	normalized := cfg
	normalized.Normalize()
	if normalized.Conversion.RangePast != cfg.Conversion.RangePast || normalized.Conversion.RangeFuture != cfg.Conversion.RangeFuture {
		issues = append(issues, Issue{"warning", fmt.Sprintf("range bounds out of [0, %d]; they will be clamped", convert.MaxRange)})
	}
	if normalized.Conversion.OutputMode != cfg.Conversion.OutputMode {
		issues = append(issues, Issue{"warning", fmt.Sprintf("unknown output_mode %q; using %q", cfg.Conversion.OutputMode, normalized.Conversion.OutputMode)})
	}
	if normalized.Conversion.DefaultLeapStrategy != cfg.Conversion.DefaultLeapStrategy {
		issues = append(issues, Issue{"warning", fmt.Sprintf("unknown default_leap_strategy %q; using %q", cfg.Conversion.DefaultLeapStrategy, normalized.Conversion.DefaultLeapStrategy)})
	}

	if cfg.Vault.Path == "" {
		issues = append(issues, Issue{"warning", "no vault configured (run: lunarsync config set vault.path <dir>)"})
	} else if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("vault path is not a directory: %s", cfg.Vault.Path)})
	}

	return issues
}

// FixIssues attempts to repair simple issues in LUNARSYNC_HOME.
func FixIssues(home string) []string {
	var fixed []string

	p := filepath.Join(home, "logs")
	if _, err := os.Stat(p); err != nil {
		if err := os.MkdirAll(p, 0755); err == nil {
			fixed = append(fixed, "recreated missing directory: logs")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		s := &Store{Home: home, Config: DefaultConfig()}
		if s.SaveConfig() == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
		return fixed
	}

	before, _ := os.ReadFile(cfgPath)
	s, err := Load(home)
	if err != nil {
		return fixed
	}
	after, err := yaml.Marshal(s.Config)
	if err == nil && !bytes.Equal(before, after) && s.SaveConfig() == nil {
		fixed = append(fixed, "rewrote config.yaml with normalized values")
	}
	return fixed
}
