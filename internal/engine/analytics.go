package engine

import (
	"context"

	"github.com/runger/habitd/internal/habit"
	"github.com/runger/habitd/internal/metrics"
	"github.com/runger/habitd/internal/preference"
	"github.com/runger/habitd/internal/suggestion"
)

// Analytics is the learning feedback-loop summary.
type Analytics struct {
	TotalEvents   int64                   `json:"total_events"`
	Habits        habit.Analytics         `json:"habits"`
	Suggestions   suggestion.StatusCounts `json:"suggestions"`
	ByType        map[suggestion.Type]int `json:"suggestions_by_type"`
	Preferences   preference.Stats        `json:"preferences"`
	AutoLearn     bool                    `json:"auto_learn_enabled"`
	MutedTypes    []string                `json:"muted_types,omitempty"`
	LearningScore float64                 `json:"learning_score"`
	Counters      map[string]int64        `json:"counters"`
}

// LearningAnalytics aggregates the state of the whole feedback loop.
// The learning score is the accepted share of responded suggestions as
// a percentage; with no responses yet it is 0, not an error.
func (e *Engine) LearningAnalytics(ctx context.Context) (Analytics, error) {
	var a Analytics
	var err error

	if a.TotalEvents, err = e.events.Count(ctx); err != nil {
		return Analytics{}, err
	}
	if a.Habits, err = e.habits.Summarize(ctx); err != nil {
		return Analytics{}, err
	}
	if a.Suggestions, err = e.suggestions.CountByStatus(ctx); err != nil {
		return Analytics{}, err
	}
	if a.ByType, err = e.suggestions.CountByType(ctx); err != nil {
		return Analytics{}, err
	}
	if a.Preferences, err = e.prefs.Summarize(ctx); err != nil {
		return Analytics{}, err
	}
	if a.AutoLearn, err = e.settings.AutoLearn(ctx); err != nil {
		return Analytics{}, err
	}
	if a.MutedTypes, err = e.settings.MutedTypes(ctx); err != nil {
		return Analytics{}, err
	}

	if responded := a.Suggestions.Responded(); responded > 0 {
		a.LearningScore = float64(a.Suggestions.Accepted) / float64(responded) * 100
	}
	a.Counters = metrics.Global.Snapshot()
	return a, nil
}
