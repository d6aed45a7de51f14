// Package suggestion generates, ranks, and persists actionable
// recommendations derived from habits and inferred preferences, and
// records the user's responses to them.
package suggestion

import "strings"

// Type classifies what a suggestion offers.
type Type string

const (
	TypeAutomation   Type = "automation"
	TypePreference   Type = "preference"
	TypeOptimization Type = "optimization"
	TypeLearning     Type = "learning"
)

// ValidType returns true if t is a recognized suggestion type.
func ValidType(t string) bool {
	switch Type(t) {
	case TypeAutomation, TypePreference, TypeOptimization, TypeLearning:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a suggestion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusDeferred Status = "deferred"
)

// ValidResponse returns true if s is a status a user response may set.
func ValidResponse(s string) bool {
	switch Status(s) {
	case StatusAccepted, StatusRejected, StatusDeferred:
		return true
	default:
		return false
	}
}

// ActionKind discriminates the suggested_action union.
type ActionKind string

const (
	ActionAutomation ActionKind = "automation"
	ActionPreference ActionKind = "preference"
	ActionSchedule   ActionKind = "schedule"
)

// Action is the payload an external executor interprets when a
// suggestion is accepted. Exactly one variant matching Kind is set.
type Action struct {
	Kind       ActionKind        `json:"kind"`
	Automation *AutomationAction `json:"automation,omitempty"`
	Preference *PreferenceAction `json:"preference,omitempty"`
	Schedule   *ScheduleAction   `json:"schedule,omitempty"`
}

// AutomationAction describes a multi-step automation to create.
type AutomationAction struct {
	Steps []string `json:"steps"`
}

// PreferenceAction describes a preference to persist.
type PreferenceAction struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// ScheduleAction describes a routine to schedule in a day part.
type ScheduleAction struct {
	DayPart     string `json:"day_part"`
	Description string `json:"description"`
}

// MatchContext is the defining context a suggestion matches against
// caller-supplied context at ranking time.
type MatchContext struct {
	DayPart string   `json:"day_part,omitempty"`
	Apps    []string `json:"apps,omitempty"`
}

// Empty reports whether the suggestion has no defining context.
func (m MatchContext) Empty() bool {
	return m.DayPart == "" && len(m.Apps) == 0
}

// Context is caller-supplied situational information for ranking and
// for-context filtering.
type Context struct {
	TimeOfDay  string   `json:"time_of_day,omitempty"`
	ActiveApps []string `json:"active_apps,omitempty"`
}

// RankingFactors are the per-suggestion inputs to the weighted score,
// each in [0, 1].
type RankingFactors struct {
	Frequency    float64 `json:"frequency"`
	Recency      float64 `json:"recency"`
	ContextMatch float64 `json:"context_match"`
}

// Suggestion is an actionable recommendation surfaced to the user.
type Suggestion struct {
	ID              string       `json:"suggestion_id"`
	HabitID         string       `json:"habit_id,omitempty"`
	Type            Type         `json:"type"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Confidence      float64      `json:"confidence_score"`
	Occurrences     int          `json:"occurrences"`
	LastConfirmedMs int64        `json:"last_confirmed_ms"`
	MatchCtx        MatchContext `json:"match_context"`
	Action          Action       `json:"suggested_action"`
	Status          Status       `json:"status"`
	CreatedMs       int64        `json:"created_ms"`
	RespondedMs     int64        `json:"responded_ms,omitempty"`
	Helpful         *bool        `json:"helpful,omitempty"`
}

// appMatches reports a case-insensitive membership test used for
// context matching.
func appMatches(apps []string, name string) bool {
	for _, a := range apps {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}
