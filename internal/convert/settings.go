package convert

import (
	"strings"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
)

// OutputMode selects between one next-occurrence field and one field per year.
type OutputMode string

const (
	Single OutputMode = "single"
	Range  OutputMode = "range"
)

// MaxRange caps RangePast and RangeFuture.
const MaxRange = 200

// Settings controls how notes are converted.
type Settings struct {
	SourceKey           string             `yaml:"source_key" json:"source_key"`
	OutputMode          OutputMode         `yaml:"output_mode" json:"output_mode"`
	OutputKeySingle     string             `yaml:"output_key_single" json:"output_key_single"`
	OutputKeyPattern    string             `yaml:"output_key_pattern" json:"output_key_pattern"`
	OutputDateFormat    string             `yaml:"output_date_format" json:"output_date_format"`
	RangePast           int                `yaml:"range_past" json:"range_past"`
	RangeFuture         int                `yaml:"range_future" json:"range_future"`
	DefaultLeapStrategy lunar.LeapStrategy `yaml:"default_leap_strategy" json:"default_leap_strategy"`
	LeapStrategyKey     string             `yaml:"leap_strategy_key" json:"leap_strategy_key"`
	// TargetPaths limits sync-all to these files or folders; empty means the whole vault.
	TargetPaths []string `yaml:"target_paths,omitempty" json:"target_paths,omitempty"`
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		SourceKey:           "lunar_date",
		OutputMode:          Single,
		OutputKeySingle:     "solar_date",
		OutputKeyPattern:    "[solar_]YYYY",
		OutputDateFormat:    "YYYY-MM-DD",
		RangePast:           1,
		RangeFuture:         3,
		DefaultLeapStrategy: lunar.Forward,
		LeapStrategyKey:     "leap_strategy",
	}
}

// Normalize repairs invalid values in place: ranges are clamped to
// [0, MaxRange], unknown modes and strategies fall back to the defaults and
// blank keys or patterns are restored.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	s.RangePast = clampRange(s.RangePast)
	s.RangeFuture = clampRange(s.RangeFuture)
	if s.OutputMode != Single && s.OutputMode != Range {
		s.OutputMode = def.OutputMode
	}
	if !s.DefaultLeapStrategy.Valid() {
		s.DefaultLeapStrategy = def.DefaultLeapStrategy
	}
	for _, f := range []struct{ v, d *string }{
		{&s.SourceKey, &def.SourceKey},
		{&s.OutputKeySingle, &def.OutputKeySingle},
		{&s.OutputKeyPattern, &def.OutputKeyPattern},
		{&s.OutputDateFormat, &def.OutputDateFormat},
		{&s.LeapStrategyKey, &def.LeapStrategyKey},
	} {
		if strings.TrimSpace(*f.v) == "" {
			*f.v = *f.d
		}
	}
	var targets []string
	for _, t := range s.TargetPaths {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	s.TargetPaths = targets
}

func clampRange(n int) int {
	return max(0, min(n, MaxRange))
}
