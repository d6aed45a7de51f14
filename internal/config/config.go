// Package config loads and validates the habitd configuration.
// Every empirical constant in the engine (confidence formulas, thresholds,
// ranking weights, decay rates) is surfaced here so it can be tuned
// without code changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by all validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root habitd configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Detectors DetectorsConfig `yaml:"detectors"`
	Ranker    RankerConfig    `yaml:"ranker"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// EngineConfig holds analysis pipeline settings.
type EngineConfig struct {
	// HabitWindowDays is the default lookback for habit analysis.
	HabitWindowDays int `yaml:"habit_window_days"`

	// PreferenceWindowDays is the default lookback for preference analysis.
	PreferenceWindowDays int `yaml:"preference_window_days"`

	// StoreThreshold is the minimum pattern confidence to persist a habit.
	StoreThreshold float64 `yaml:"store_threshold"`

	// SuggestThreshold is the minimum habit confidence to generate a suggestion.
	SuggestThreshold float64 `yaml:"suggest_threshold"`

	// SuppressionDays is the cool-down after not_helpful feedback during
	// which a habit produces no suggestions.
	SuppressionDays int `yaml:"suppression_days"`

	// AutoLearnTriggerEvents is the number of newly recorded events that
	// triggers an opportunistic analysis run (when auto-learn is enabled).
	AutoLearnTriggerEvents int `yaml:"auto_learn_trigger_events"`

	// RetentionDays is how long raw events are kept before purge.
	RetentionDays int `yaml:"retention_days"`
}

// DetectorsConfig groups the per-detector tuning knobs.
type DetectorsConfig struct {
	Sequential SequentialConfig `yaml:"sequential"`
	TimeOfDay  TimeOfDayConfig  `yaml:"time_of_day"`
	Frequency  FrequencyConfig  `yaml:"frequency"`
}

// SequentialConfig tunes the sequential (chain) detector.
type SequentialConfig struct {
	// MaxGapMinutes is the maximum gap between consecutive events in a chain.
	MaxGapMinutes int `yaml:"max_gap_minutes"`

	// MinSupport is the minimum occurrences for a chain to become a pattern.
	MinSupport int `yaml:"min_support"`

	// MinChains is the minimum number of observed chains before the
	// detector emits anything at all.
	MinChains int `yaml:"min_chains"`

	// BaseConfidence is the confidence floor for a qualifying chain.
	BaseConfidence float64 `yaml:"base_confidence"`

	// OccurrenceBonus is added per occurrence on top of BaseConfidence.
	OccurrenceBonus float64 `yaml:"occurrence_bonus"`

	// MaxConfidence caps detector output, leaving headroom for
	// re-confirmation to raise stored habits later.
	MaxConfidence float64 `yaml:"max_confidence"`
}

// TimeOfDayConfig tunes the time-of-day detector.
type TimeOfDayConfig struct {
	// PeakShare is the bucket share above which a day part is a peak.
	PeakShare float64 `yaml:"peak_share"`

	// MinEvents is the minimum window event count before emitting.
	MinEvents int `yaml:"min_events"`
}

// FrequencyConfig tunes the frequency detector.
type FrequencyConfig struct {
	// CommandShare is the share threshold for command-type patterns.
	CommandShare float64 `yaml:"command_share"`

	// AppShare is the share threshold for app-usage patterns.
	AppShare float64 `yaml:"app_share"`

	// MinCommandEvents is the minimum command events before emitting.
	MinCommandEvents int `yaml:"min_command_events"`

	// MinAppEvents is the minimum app-open events before emitting.
	MinAppEvents int `yaml:"min_app_events"`

	// ConfidenceScale multiplies the share to produce the confidence.
	ConfidenceScale float64 `yaml:"confidence_scale"`
}

// RankerConfig tunes suggestion ranking.
type RankerConfig struct {
	Weights RankerWeights `yaml:"weights"`

	// RecencyTauHours is the exponential-decay time constant for recency.
	RecencyTauHours int `yaml:"recency_tau_hours"`

	// MinContextMatch filters for-context queries: suggestions scoring
	// below this context match are dropped, not just down-ranked.
	MinContextMatch float64 `yaml:"min_context_match"`
}

// RankerWeights holds the multi-factor ranking weights.
type RankerWeights struct {
	Frequency    float64 `yaml:"frequency"`
	Recency      float64 `yaml:"recency"`
	ContextMatch float64 `yaml:"context_match"`
}

// DaemonConfig holds process-level settings.
type DaemonConfig struct {
	DatabasePath string `yaml:"database_path"` // empty = ~/.habitd/habitd.db
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			HabitWindowDays:        7,
			PreferenceWindowDays:   14,
			StoreThreshold:         0.6,
			SuggestThreshold:       0.7,
			SuppressionDays:        14,
			AutoLearnTriggerEvents: 25,
			RetentionDays:          90,
		},
		Detectors: DetectorsConfig{
			Sequential: SequentialConfig{
				MaxGapMinutes:   10,
				MinSupport:      3,
				MinChains:       3,
				BaseConfidence:  0.7,
				OccurrenceBonus: 0.05,
				MaxConfidence:   0.95,
			},
			TimeOfDay: TimeOfDayConfig{
				PeakShare: 0.35,
				MinEvents: 5,
			},
			Frequency: FrequencyConfig{
				CommandShare:     0.25,
				AppShare:         0.30,
				MinCommandEvents: 5,
				MinAppEvents:     10,
				ConfidenceScale:  0.85,
			},
		},
		Ranker: RankerConfig{
			Weights: RankerWeights{
				Frequency:    0.4,
				Recency:      0.3,
				ContextMatch: 0.3,
			},
			RecencyTauHours: 72,
			MinContextMatch: 0.3,
		},
		Daemon: DaemonConfig{
			LogLevel: "info",
		},
	}
}

// DefaultPath returns the default config file path (~/.habitd/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".habitd", "config.yaml"), nil
}

// Load reads the config file at path, applying defaults for missing
// fields. A missing file yields the defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Engine.HabitWindowDays < 1 {
		return fmt.Errorf("%w: engine.habit_window_days must be >= 1", ErrInvalidConfig)
	}
	if c.Engine.PreferenceWindowDays < 1 {
		return fmt.Errorf("%w: engine.preference_window_days must be >= 1", ErrInvalidConfig)
	}
	if c.Engine.StoreThreshold < 0 || c.Engine.StoreThreshold > 1 {
		return fmt.Errorf("%w: engine.store_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.Engine.SuggestThreshold < 0 || c.Engine.SuggestThreshold > 1 {
		return fmt.Errorf("%w: engine.suggest_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.Detectors.Sequential.MinSupport < 1 {
		return fmt.Errorf("%w: detectors.sequential.min_support must be >= 1", ErrInvalidConfig)
	}
	if c.Detectors.Sequential.MaxConfidence <= 0 || c.Detectors.Sequential.MaxConfidence > 1 {
		return fmt.Errorf("%w: detectors.sequential.max_confidence must be in (0,1]", ErrInvalidConfig)
	}
	if c.Detectors.TimeOfDay.PeakShare <= 0 || c.Detectors.TimeOfDay.PeakShare >= 1 {
		return fmt.Errorf("%w: detectors.time_of_day.peak_share must be in (0,1)", ErrInvalidConfig)
	}
	w := c.Ranker.Weights
	if w.Frequency < 0 || w.Recency < 0 || w.ContextMatch < 0 {
		return fmt.Errorf("%w: ranker.weights must be non-negative", ErrInvalidConfig)
	}
	if w.Frequency+w.Recency+w.ContextMatch == 0 {
		return fmt.Errorf("%w: ranker.weights must not all be zero", ErrInvalidConfig)
	}
	if c.Ranker.MinContextMatch < 0 || c.Ranker.MinContextMatch > 1 {
		return fmt.Errorf("%w: ranker.min_context_match must be in [0,1]", ErrInvalidConfig)
	}
	if c.Ranker.RecencyTauHours < 1 {
		return fmt.Errorf("%w: ranker.recency_tau_hours must be >= 1", ErrInvalidConfig)
	}
	return nil
}
