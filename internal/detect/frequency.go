package detect

import (
	"fmt"
	"sort"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/event"
)

// Frequency detects disproportionately repeated actions: command types
// and app opens whose share of their family's events exceeds the
// configured thresholds. Commands and apps use separate thresholds and
// minimum sample sizes.
type Frequency struct {
	cfg config.FrequencyConfig
}

// NewFrequency creates the frequency detector.
func NewFrequency(cfg config.FrequencyConfig) *Frequency {
	return &Frequency{cfg: cfg}
}

// Name implements Detector.
func (d *Frequency) Name() string { return "frequency" }

// Detect implements Detector.
func (d *Frequency) Detect(events []event.Event) ([]Pattern, error) {
	if err := validateWindow(events); err != nil {
		return nil, err
	}

	commands := make(map[string]int)
	apps := make(map[string]int)
	commandTotal, appTotal := 0, 0

	for _, ev := range events {
		switch ev.Type {
		case event.TypeCommandExecuted:
			if ct := ev.CommandType(); ct != "" {
				commands[ct]++
				commandTotal++
			}
		case event.TypeAppOpened:
			if app := ev.AppName(); app != "" {
				apps[app]++
				appTotal++
			}
		}
	}

	var patterns []Pattern
	if commandTotal >= d.cfg.MinCommandEvents {
		patterns = append(patterns, d.family(commands, commandTotal, "command", d.cfg.CommandShare)...)
	}
	if appTotal >= d.cfg.MinAppEvents {
		patterns = append(patterns, d.family(apps, appTotal, "app", d.cfg.AppShare)...)
	}
	return patterns, nil
}

// family emits one pattern per item whose share exceeds the threshold.
func (d *Frequency) family(counts map[string]int, total int, kind string, threshold float64) []Pattern {
	subjects := make([]string, 0, len(counts))
	for subject := range counts {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	var patterns []Pattern
	for _, subject := range subjects {
		count := counts[subject]
		share := float64(count) / float64(total)
		if share <= threshold {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        PatternFrequency,
			Description: fmt.Sprintf("Frequent %s: %s", kind, subject),
			Occurrences: count,
			Confidence:  clamp(share*d.cfg.ConfidenceScale, 0, 1),
			Evidence: Evidence{
				Share:       share,
				SampleSize:  total,
				Subject:     subject,
				SubjectKind: kind,
			},
			Detector: d.Name(),
		})
	}
	return patterns
}
