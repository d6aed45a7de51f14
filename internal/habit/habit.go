// Package habit persists detected behavior patterns as deduplicated
// habit records and tracks per-habit user feedback. At most one habit
// exists per (pattern type, description) pair; re-detection confirms
// the existing record instead of duplicating it.
package habit

import (
	"github.com/runger/habitd/internal/detect"
)

// Feedback is the user's verdict on a detected habit.
type Feedback string

const (
	FeedbackUnset      Feedback = "unset"
	FeedbackHelpful    Feedback = "helpful"
	FeedbackNotHelpful Feedback = "not_helpful"
	FeedbackSkip       Feedback = "skip"
)

// ValidFeedback returns true if f is a recognized feedback value.
func ValidFeedback(f string) bool {
	switch Feedback(f) {
	case FeedbackUnset, FeedbackHelpful, FeedbackNotHelpful, FeedbackSkip:
		return true
	default:
		return false
	}
}

// Habit is a persisted, deduplicated pattern.
type Habit struct {
	ID                string             `json:"habit_id"`
	PatternType       detect.PatternType `json:"pattern_type"`
	Description       string             `json:"description"`
	Confidence        float64            `json:"confidence_score"`
	Occurrences       int                `json:"occurrences"`
	Evidence          detect.Evidence    `json:"evidence"`
	FirstDetectedMs   int64              `json:"first_detected_ms"`
	LastConfirmedMs   int64              `json:"last_confirmed_ms"`
	Feedback          Feedback           `json:"user_feedback"`
	SuppressedUntilMs int64              `json:"suppressed_until_ms,omitempty"`
	AutomationCreated bool               `json:"automation_created"`
	AutomationID      string             `json:"linked_automation_id,omitempty"`
}

// Suppressed reports whether the habit is inside its feedback cool-down
// at the given time and must not produce suggestions.
func (h Habit) Suppressed(nowMs int64) bool {
	return h.Feedback == FeedbackNotHelpful && h.SuppressedUntilMs > nowMs
}
