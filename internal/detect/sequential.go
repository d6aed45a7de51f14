package detect

import (
	"sort"
	"strings"
	"time"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/event"
)

// chainSeparator joins subjects in a sequential pattern description,
// e.g. "Chrome → Slack → VSCode".
const chainSeparator = " → "

// Sequential detects recurring action chains: runs of app opens and
// command executions that follow each other within a bounded gap.
// Candidate subsequences are length 2 and 3; a chain becomes a pattern
// once it repeats at least MinSupport times across the window.
type Sequential struct {
	cfg config.SequentialConfig
}

// NewSequential creates the sequential detector.
func NewSequential(cfg config.SequentialConfig) *Sequential {
	return &Sequential{cfg: cfg}
}

// Name implements Detector.
func (d *Sequential) Name() string { return "sequential" }

// Detect implements Detector.
func (d *Sequential) Detect(events []event.Event) ([]Pattern, error) {
	if err := validateWindow(events); err != nil {
		return nil, err
	}

	// Only actions with a subject can participate in a chain.
	var actions []event.Event
	for _, ev := range events {
		if ev.Type != event.TypeAppOpened && ev.Type != event.TypeCommandExecuted {
			continue
		}
		if ev.Subject() == "" {
			continue
		}
		actions = append(actions, ev)
	}
	if len(actions) < 2 {
		return nil, nil
	}

	maxGapMs := int64(time.Duration(d.cfg.MaxGapMinutes) * time.Minute / time.Millisecond)
	counts := make(map[string]*chainCount)
	chainsBuilt := 0

	for i := 0; i < len(actions)-1; i++ {
		if actions[i+1].TsMs-actions[i].TsMs > maxGapMs {
			continue
		}
		pair := []string{actions[i].Subject(), actions[i+1].Subject()}
		record(counts, pair)
		chainsBuilt++

		// Extend to a triple when the third step also falls inside the gap.
		if i+2 < len(actions) && actions[i+2].TsMs-actions[i+1].TsMs <= maxGapMs {
			triple := []string{pair[0], pair[1], actions[i+2].Subject()}
			record(counts, triple)
		}
	}

	// Sparse histories produce spurious chains; require a minimum number
	// of observed chains before emitting anything.
	if chainsBuilt < d.cfg.MinChains {
		return nil, nil
	}

	var patterns []Pattern
	for _, cc := range counts {
		if cc.count < d.cfg.MinSupport {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        PatternSequential,
			Description: strings.Join(cc.chain, chainSeparator),
			Occurrences: cc.count,
			Confidence:  d.confidence(cc.count),
			Evidence: Evidence{
				SampleSize: chainsBuilt,
				Chain:      cc.chain,
			},
			Detector: d.Name(),
		})
	}

	// Map iteration order is random; sort for deterministic output.
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Description < patterns[j].Description
	})
	return patterns, nil
}

// confidence grows with occurrences from the base and saturates at
// MaxConfidence, leaving headroom for re-confirmation of stored habits.
func (d *Sequential) confidence(occurrences int) float64 {
	score := d.cfg.BaseConfidence + d.cfg.OccurrenceBonus*float64(occurrences)
	return clamp(score, 0, d.cfg.MaxConfidence)
}

type chainCount struct {
	chain []string
	count int
}

func record(counts map[string]*chainCount, chain []string) {
	key := strings.Join(chain, "\x00")
	if cc, ok := counts[key]; ok {
		cc.count++
		return
	}
	counts[key] = &chainCount{chain: append([]string(nil), chain...), count: 1}
}
