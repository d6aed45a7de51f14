// Package preference stores user preferences, both explicitly set and
// inferred from event history, with a full change audit trail. Manual
// preferences always win over inferred ones for the same key.
package preference

// Source records how a preference came to exist.
type Source string

const (
	// SourceManual marks a preference the user set explicitly.
	SourceManual Source = "manual"

	// SourceInferred marks a preference the analyzer derived from events.
	SourceInferred Source = "inferred"

	// SourceAuto marks a preference persisted automatically, such as by
	// accepting a suggestion.
	SourceAuto Source = "auto"
)

// ValidSource returns true if s is a recognized preference source.
func ValidSource(s string) bool {
	switch Source(s) {
	case SourceManual, SourceInferred, SourceAuto:
		return true
	default:
		return false
	}
}

// Preference is one stored (category, key) setting.
type Preference struct {
	ID         string         `json:"preference_id"`
	Category   string         `json:"category"`
	Key        string         `json:"key"`
	Value      string         `json:"value"`
	Source     Source         `json:"source"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	CreatedMs  int64          `json:"created_ms"`
	ModifiedMs int64          `json:"modified_ms"`
	Version    int            `json:"version"`
}

// HistoryEntry is one row of the preference audit trail.
type HistoryEntry struct {
	TsMs     int64  `json:"ts_ms"`
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Source   Source `json:"source"`
}

// Candidate is an inferred preference proposal produced by the
// analyzer before persistence.
type Candidate struct {
	Category   string         `json:"category"`
	Key        string         `json:"key"`
	Value      string         `json:"value"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence,omitempty"`
}

// Stats summarizes the preference store for analytics output.
type Stats struct {
	Total                 int                `json:"total"`
	BySource              map[Source]int     `json:"by_source"`
	ByCategory            map[string]int     `json:"by_category"`
	AvgConfidence         float64            `json:"avg_confidence"`
	AvgConfidenceBySource map[Source]float64 `json:"avg_confidence_by_source"`
}
