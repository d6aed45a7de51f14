package detect

import (
	"fmt"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/event"
)

// TimeOfDay detects activity peaks by bucketing all events into the four
// day parts and flagging buckets whose share of total activity exceeds
// the configured peak threshold.
type TimeOfDay struct {
	cfg config.TimeOfDayConfig
}

// NewTimeOfDay creates the time-of-day detector.
func NewTimeOfDay(cfg config.TimeOfDayConfig) *TimeOfDay {
	return &TimeOfDay{cfg: cfg}
}

// Name implements Detector.
func (d *TimeOfDay) Name() string { return "time_of_day" }

// Detect implements Detector.
func (d *TimeOfDay) Detect(events []event.Event) ([]Pattern, error) {
	if err := validateWindow(events); err != nil {
		return nil, err
	}
	if len(events) < d.cfg.MinEvents {
		return nil, nil
	}

	buckets := make(map[event.DayPart]int, len(event.DayParts))
	for _, ev := range events {
		part := ev.DayPart
		if part == "" {
			part = event.DayPartOf(ev.Time())
		}
		buckets[part]++
	}

	total := len(events)
	var patterns []Pattern
	// Iterate buckets in fixed order for deterministic output.
	for _, part := range event.DayParts {
		count := buckets[part]
		share := float64(count) / float64(total)
		if share <= d.cfg.PeakShare {
			continue
		}
		patterns = append(patterns, Pattern{
			Type:        PatternTimeBased,
			Description: fmt.Sprintf("Peak activity in the %s", part),
			Occurrences: count,
			Confidence:  d.confidence(share),
			Evidence: Evidence{
				Share:      share,
				SampleSize: total,
				DayPart:    part,
			},
			Detector: d.Name(),
		})
	}
	return patterns, nil
}

// confidence maps a peak share to a score: a bucket exactly at the
// threshold scores 0.4, below the auto-store cutoff, so only a clear
// peak is persisted without review.
func (d *TimeOfDay) confidence(share float64) float64 {
	return clamp((share-d.cfg.PeakShare)+0.4, 0, 1)
}
