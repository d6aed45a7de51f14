package preference

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/runger/habitd/internal/event"
)

// Analyzer thresholds. Candidates below persistThreshold are reported
// but not stored.
const (
	minAppEvents     = 5
	minCommandEvents = 5
	minTurnEvents    = 5
	minTimeEvents    = 5

	appShareFloor     = 0.30
	commandShareFloor = 0.30

	persistThreshold = 0.6

	briefTurnChars    = 60
	moderateTurnChars = 200
)

// Preference categories and keys the analyzer produces.
const (
	CategoryUI            = "ui"
	CategorySchedule      = "schedule"
	CategoryInteraction   = "interaction"
	CategoryAutomation    = "automation"
	KeyPreferredApp       = "preferred_app"
	KeyPeakActivityTime   = "peak_activity_time"
	KeyResponseStyle      = "response_style"
	KeyPreferredCmdFamily = "preferred_command_type"
)

// Analyzer infers preferences from an event window and persists the
// confident ones as inferred preferences.
type Analyzer struct {
	store  *Store
	logger *slog.Logger
}

// NewAnalyzer returns an Analyzer writing through st.
func NewAnalyzer(st *Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{store: st, logger: logger.With("component", "preference_analyzer")}
}

// Analyze runs every inference pass over the window and persists
// candidates at or above the persist threshold. It returns all
// candidates, persisted or not, for reporting.
func (a *Analyzer) Analyze(ctx context.Context, events []event.Event, nowMs int64) ([]Candidate, error) {
	var candidates []Candidate
	for _, infer := range []func([]event.Event) (Candidate, bool){
		inferPreferredApp,
		inferPeakActivityTime,
		inferResponseStyle,
		inferPreferredCommandFamily,
	} {
		if c, ok := infer(events); ok {
			candidates = append(candidates, c)
		}
	}

	for _, c := range candidates {
		if c.Confidence < persistThreshold {
			continue
		}
		_, err := a.store.Set(ctx, Preference{
			Category:   c.Category,
			Key:        c.Key,
			Value:      c.Value,
			Source:     SourceInferred,
			Confidence: c.Confidence,
			Evidence:   c.Evidence,
		}, nowMs)
		if err != nil {
			return nil, fmt.Errorf("persist inferred preference %s/%s: %w", c.Category, c.Key, err)
		}
	}
	a.logger.Info("preference analysis complete",
		"events", len(events), "candidates", len(candidates))
	return candidates, nil
}

// inferPreferredApp picks the dominant opened app when it clearly
// stands out from the rest.
func inferPreferredApp(events []event.Event) (Candidate, bool) {
	counts := make(map[string]int)
	total := 0
	for _, e := range events {
		if e.Type != event.TypeAppOpened {
			continue
		}
		if name := e.AppName(); name != "" {
			counts[name]++
			total++
		}
	}
	if total < minAppEvents {
		return Candidate{}, false
	}

	app, count := topEntry(counts)
	share := float64(count) / float64(total)
	if share < appShareFloor {
		return Candidate{}, false
	}
	return Candidate{
		Category:   CategoryUI,
		Key:        KeyPreferredApp,
		Value:      app,
		Confidence: clamp(0.5+share, 0, 0.95),
		Evidence: map[string]any{
			"share":       share,
			"occurrences": count,
			"sample_size": total,
		},
	}, true
}

// inferPeakActivityTime locates the day part holding the plurality of
// all activity.
func inferPeakActivityTime(events []event.Event) (Candidate, bool) {
	if len(events) < minTimeEvents {
		return Candidate{}, false
	}
	counts := make(map[event.DayPart]int)
	for _, e := range events {
		counts[e.DayPart]++
	}

	var peak event.DayPart
	peakCount := -1
	for _, part := range event.DayParts {
		if counts[part] > peakCount {
			peak = part
			peakCount = counts[part]
		}
	}
	share := float64(peakCount) / float64(len(events))
	return Candidate{
		Category:   CategorySchedule,
		Key:        KeyPeakActivityTime,
		Value:      string(peak),
		Confidence: clamp(0.4+share, 0, 0.9),
		Evidence: map[string]any{
			"share":       share,
			"occurrences": peakCount,
			"sample_size": len(events),
		},
	}, true
}

// inferResponseStyle classifies how verbose the user's conversation
// turns are. Turn length comes from the "chars" payload field.
func inferResponseStyle(events []event.Event) (Candidate, bool) {
	total, n := 0, 0
	for _, e := range events {
		if e.Type != event.TypeConversationTurn {
			continue
		}
		chars, err := strconv.Atoi(e.Payload["chars"])
		if err != nil || chars <= 0 {
			continue
		}
		total += chars
		n++
	}
	if n < minTurnEvents {
		return Candidate{}, false
	}

	avg := float64(total) / float64(n)
	style := "detailed"
	switch {
	case avg < briefTurnChars:
		style = "brief"
	case avg < moderateTurnChars:
		style = "moderate"
	}
	return Candidate{
		Category:   CategoryInteraction,
		Key:        KeyResponseStyle,
		Value:      style,
		Confidence: clamp(0.5+float64(n)/40, 0, 0.85),
		Evidence: map[string]any{
			"avg_chars":   avg,
			"sample_size": n,
		},
	}, true
}

// inferPreferredCommandFamily picks the dominant command family.
func inferPreferredCommandFamily(events []event.Event) (Candidate, bool) {
	counts := make(map[string]int)
	total := 0
	for _, e := range events {
		if e.Type != event.TypeCommandExecuted {
			continue
		}
		if family := e.CommandType(); family != "" {
			counts[family]++
			total++
		}
	}
	if total < minCommandEvents {
		return Candidate{}, false
	}

	family, count := topEntry(counts)
	share := float64(count) / float64(total)
	if share < commandShareFloor {
		return Candidate{}, false
	}
	return Candidate{
		Category:   CategoryAutomation,
		Key:        KeyPreferredCmdFamily,
		Value:      family,
		Confidence: clamp(0.5+share, 0, 0.85),
		Evidence: map[string]any{
			"share":       share,
			"occurrences": count,
			"sample_size": total,
		},
	}, true
}

// topEntry returns the highest-count key, breaking ties on the
// lexically smaller key so results are deterministic.
func topEntry(counts map[string]int) (string, int) {
	var best string
	bestCount := -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best = k
			bestCount = n
		}
	}
	return best, bestCount
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
