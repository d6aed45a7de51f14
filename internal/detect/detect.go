// Package detect implements the three pattern-detection strategies over a
// window of user-action events: sequential chains, time-of-day peaks, and
// frequency concentrations. Detectors are stateless and deterministic:
// the same event window always produces the same patterns and scores.
package detect

import (
	"fmt"
	"log/slog"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/event"
)

// PatternType identifies the detection strategy that produced a pattern.
type PatternType string

const (
	PatternSequential PatternType = "sequential"
	PatternTimeBased  PatternType = "time_based"
	PatternFrequency  PatternType = "frequency"
)

// Evidence is the structured support data behind a pattern's confidence.
type Evidence struct {
	// Share is the fraction of window events supporting the pattern
	// (time-of-day and frequency detectors).
	Share float64 `json:"share,omitempty"`

	// SampleSize is the number of events the detector considered.
	SampleSize int `json:"sample_size"`

	// Chain is the ordered subject sequence (sequential detector).
	Chain []string `json:"chain,omitempty"`

	// DayPart is the peak bucket (time-of-day detector).
	DayPart event.DayPart `json:"day_part,omitempty"`

	// Subject is the concentrated item (frequency detector).
	Subject string `json:"subject,omitempty"`

	// SubjectKind is "command" or "app" (frequency detector).
	SubjectKind string `json:"subject_kind,omitempty"`
}

// Pattern is a transient regularity detected in one analysis run.
// Patterns are not persisted; those clearing the store threshold
// become habits.
type Pattern struct {
	Type        PatternType `json:"pattern_type"`
	Description string      `json:"description"`
	Occurrences int         `json:"occurrences"`
	Confidence  float64     `json:"confidence"`
	Evidence    Evidence    `json:"evidence"`
	Detector    string      `json:"source_detector"`
}

// Detector is a single stateless detection strategy.
type Detector interface {
	// Name identifies the detector in logs and pattern records.
	Name() string

	// Detect scans the event window and returns zero or more patterns.
	// Events are expected in ascending timestamp order. A window below
	// the detector's minimum sample size yields an empty result, not
	// an error.
	Detect(events []event.Event) ([]Pattern, error)
}

// All returns the full detector set for the given configuration.
func All(cfg config.DetectorsConfig) []Detector {
	return []Detector{
		NewSequential(cfg.Sequential),
		NewTimeOfDay(cfg.TimeOfDay),
		NewFrequency(cfg.Frequency),
	}
}

// Result is the outcome of running every detector over one window.
type Result struct {
	Patterns []Pattern
	// Errors counts detectors that failed; their output is excluded.
	Errors int
}

// Run executes each detector independently. One detector failing is
// logged and counted but never aborts the others.
func Run(detectors []Detector, events []event.Event, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for _, d := range detectors {
		patterns, err := d.Detect(events)
		if err != nil {
			logger.Warn("detector failed", "detector", d.Name(), "error", err)
			res.Errors++
			continue
		}
		res.Patterns = append(res.Patterns, patterns...)
	}
	return res
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// validateWindow rejects obviously malformed input.
func validateWindow(events []event.Event) error {
	for i := 1; i < len(events); i++ {
		if events[i].TsMs < events[i-1].TsMs {
			return fmt.Errorf("event window not in ascending timestamp order at index %d", i)
		}
	}
	return nil
}
