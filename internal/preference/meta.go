package preference

import (
	"context"
	"fmt"
	"sort"
)

// Meta-pattern thresholds.
const (
	unstableChangeCount = 3
	affinityMinPrefs    = 2
	affinityMinAvgConf  = 0.7
	inferredDominance   = 0.7
)

// MetaPattern is a higher-order observation about the preference store
// itself rather than about events.
type MetaPattern struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// DetectMeta inspects stored preferences and their history for
// second-order patterns: keys that keep flip-flopping, categories the
// user has a strong affinity for, and whether the store is dominated
// by inferred values. sinceMs bounds how far back history is read.
func (s *Store) DetectMeta(ctx context.Context, sinceMs int64) ([]MetaPattern, error) {
	var out []MetaPattern

	history, err := s.History(ctx, 0)
	if err != nil {
		return nil, err
	}
	changes := make(map[string]int)
	for _, e := range history {
		if e.TsMs < sinceMs {
			continue
		}
		changes[e.Category+"/"+e.Key]++
	}
	var unstable []string
	for key, n := range changes {
		if n >= unstableChangeCount {
			unstable = append(unstable, key)
		}
	}
	sort.Strings(unstable)
	for _, key := range unstable {
		out = append(out, MetaPattern{
			Kind:        "unstable_preference",
			Description: fmt.Sprintf("Preference %s changed %d times recently", key, changes[key]),
			Confidence:  clamp(0.4+0.1*float64(changes[key]), 0, 0.9),
		})
	}

	prefs, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string][]Preference)
	inferred := 0
	for _, p := range prefs {
		byCategory[p.Category] = append(byCategory[p.Category], p)
		if p.Source == SourceInferred {
			inferred++
		}
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		group := byCategory[c]
		if len(group) < affinityMinPrefs {
			continue
		}
		sum := 0.0
		for _, p := range group {
			sum += p.Confidence
		}
		avg := sum / float64(len(group))
		if avg < affinityMinAvgConf {
			continue
		}
		out = append(out, MetaPattern{
			Kind:        "category_affinity",
			Description: fmt.Sprintf("Strong %s preferences (%d settled, avg confidence %.2f)", c, len(group), avg),
			Confidence:  clamp(avg, 0, 0.95),
		})
	}

	if len(prefs) >= affinityMinPrefs {
		ratio := float64(inferred) / float64(len(prefs))
		if ratio > inferredDominance {
			out = append(out, MetaPattern{
				Kind:        "mostly_inferred",
				Description: fmt.Sprintf("%.0f%% of preferences were inferred, not set by hand", ratio*100),
				Confidence:  ratio,
			})
		}
	}
	return out, nil
}
