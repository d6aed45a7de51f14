// Package engine wires the event log, detectors, habit registry,
// suggestion pipeline, and preference analyzer into one orchestrator.
// All persistence goes through a single sqlite database; analysis runs
// are serialized with a mutex so concurrent callers never interleave
// detector output.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/detect"
	"github.com/runger/habitd/internal/event"
	"github.com/runger/habitd/internal/habit"
	"github.com/runger/habitd/internal/metrics"
	"github.com/runger/habitd/internal/preference"
	"github.com/runger/habitd/internal/store"
	"github.com/runger/habitd/internal/suggestion"
)

// Engine is the top-level orchestrator. Construct with New; the zero
// value is not usable.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	events      *event.Store
	habits      *habit.Store
	suggestions *suggestion.Store
	generator   *suggestion.Generator
	ranker      *suggestion.Ranker
	prefs       *preference.Store
	analyzer    *preference.Analyzer
	settings    *store.Settings

	// analysisMu serializes Analyze and the auto-learn trigger.
	analysisMu sync.Mutex

	// eventsSinceLearn counts records since the last opportunistic
	// analysis, guarded by analysisMu.
	eventsSinceLearn int

	// now is swappable for tests.
	now func() time.Time
}

// New assembles an Engine over an open database.
func New(db *store.DB, cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	handle := db.Handle()
	settings := store.NewSettings(handle)
	sgStore := suggestion.NewStore(handle, logger)
	prefStore := preference.NewStore(handle, logger)
	return &Engine{
		cfg:         cfg,
		logger:      logger.With("component", "engine"),
		events:      event.NewStore(handle, logger),
		habits:      habit.NewStore(handle, habit.Config{SuppressionDays: cfg.Engine.SuppressionDays}, logger),
		suggestions: sgStore,
		generator: suggestion.NewGenerator(sgStore, settings, suggestion.GeneratorConfig{
			MinConfidence: cfg.Engine.SuggestThreshold,
		}, logger),
		ranker:   suggestion.NewRanker(cfg.Ranker),
		prefs:    prefStore,
		analyzer: preference.NewAnalyzer(prefStore, logger),
		settings: settings,
		now:      time.Now,
	}
}

// Events exposes the event store for read-only CLI queries.
func (e *Engine) Events() *event.Store { return e.events }

// Habits exposes the habit registry for read-only CLI queries.
func (e *Engine) Habits() *habit.Store { return e.habits }

// Preferences exposes the preference store.
func (e *Engine) Preferences() *preference.Store { return e.prefs }

// RecordEvent validates and appends one event, then gives auto-learn a
// chance to run. A failed opportunistic analysis is logged, never
// surfaced to the recorder.
func (e *Engine) RecordEvent(ctx context.Context, typ string, ts time.Time, payload map[string]string) (event.Event, error) {
	if !event.ValidType(typ) {
		metrics.Global.EventErrors.Add(1)
		return event.Event{}, fmt.Errorf("unknown event type %q", typ)
	}
	if ts.IsZero() {
		ts = e.now()
	}
	ev, err := e.events.Append(ctx, event.New(event.Type(typ), ts, payload))
	if err != nil {
		metrics.Global.EventErrors.Add(1)
		return event.Event{}, err
	}
	metrics.Global.EventsRecorded.Add(1)
	e.noteEvent(ctx)
	return ev, nil
}

// AnalysisReport is the partial-success outcome of one analysis run.
type AnalysisReport struct {
	WindowDays      int           `json:"window_days"`
	EventsScanned   int           `json:"events_scanned"`
	PatternsFound   int           `json:"patterns_detected"`
	DetectorErrors  int           `json:"detector_errors"`
	HabitsStored    int           `json:"habits_stored"`
	HabitsConfirmed int           `json:"habits_confirmed"`
	HabitsFailed    int           `json:"habits_failed"`
	Habits          []habit.Habit `json:"habits"`
}

// Analyze runs every detector over the window and persists patterns
// clearing the store threshold as habits. A detector failing degrades
// the run (reported in DetectorErrors) instead of aborting it, and a
// failed habit write skips only that pattern (reported in
// HabitsFailed). windowDays <= 0 uses the configured default.
func (e *Engine) Analyze(ctx context.Context, windowDays int) (AnalysisReport, error) {
	e.analysisMu.Lock()
	defer e.analysisMu.Unlock()
	return e.analyzeLocked(ctx, windowDays)
}

func (e *Engine) analyzeLocked(ctx context.Context, windowDays int) (AnalysisReport, error) {
	if windowDays <= 0 {
		windowDays = e.cfg.Engine.HabitWindowDays
	}
	started := e.now()
	end := started
	start := end.AddDate(0, 0, -windowDays)

	events, err := e.events.ListRange(ctx, start, end)
	if err != nil {
		return AnalysisReport{}, fmt.Errorf("load event window: %w", err)
	}

	result := detect.Run(detect.All(e.cfg.Detectors), events, e.logger)
	metrics.Global.AnalysisRuns.Add(1)
	metrics.Global.PatternsDetected.Add(int64(len(result.Patterns)))
	metrics.Global.DetectorErrors.Add(int64(result.Errors))

	report := AnalysisReport{
		WindowDays:     windowDays,
		EventsScanned:  len(events),
		PatternsFound:  len(result.Patterns),
		DetectorErrors: result.Errors,
	}
	nowMs := started.UnixMilli()
	for _, p := range result.Patterns {
		if p.Confidence < e.cfg.Engine.StoreThreshold {
			continue
		}
		h, created, err := e.habits.Upsert(ctx, p, nowMs)
		if err != nil {
			report.HabitsFailed++
			e.logger.Warn("habit store failed", "pattern", p.Description, "error", err)
			continue
		}
		metrics.Global.HabitsStored.Add(1)
		if created {
			report.HabitsStored++
		} else {
			report.HabitsConfirmed++
		}
		report.Habits = append(report.Habits, h)
	}

	metrics.Global.AnalysisLatencySumMs.Add(e.now().Sub(started).Milliseconds())
	e.logger.Info("analysis complete",
		"window_days", windowDays,
		"events", report.EventsScanned,
		"patterns", report.PatternsFound,
		"detector_errors", report.DetectorErrors,
		"habits_new", report.HabitsStored,
		"habits_confirmed", report.HabitsConfirmed,
		"habits_failed", report.HabitsFailed)
	return report, nil
}

// DetectPatterns runs the detectors over the window without touching
// the habit registry.
func (e *Engine) DetectPatterns(ctx context.Context, windowDays int) ([]detect.Pattern, int, error) {
	if windowDays <= 0 {
		windowDays = e.cfg.Engine.HabitWindowDays
	}
	end := e.now()
	events, err := e.events.ListRange(ctx, end.AddDate(0, 0, -windowDays), end)
	if err != nil {
		return nil, 0, fmt.Errorf("load event window: %w", err)
	}
	result := detect.Run(detect.All(e.cfg.Detectors), events, e.logger)
	return result.Patterns, result.Errors, nil
}

// SuggestFromHabits generates or refreshes suggestions. With no ids it
// covers every eligible habit; with ids only those habits, still
// subject to the confidence floor, suppression, and type mutes.
func (e *Engine) SuggestFromHabits(ctx context.Context, habitIDs []string) ([]suggestion.Suggestion, error) {
	nowMs := e.now().UnixMilli()

	var habits []habit.Habit
	var err error
	if len(habitIDs) == 0 {
		habits, err = e.habits.ListEligible(ctx, e.cfg.Engine.SuggestThreshold, nowMs)
	} else {
		habits, err = e.habits.ListByIDs(ctx, habitIDs)
	}
	if err != nil {
		return nil, err
	}

	before, err := e.suggestions.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out, err := e.generator.FromHabits(ctx, habits, nowMs)
	if err != nil {
		return nil, err
	}
	after, err := e.suggestions.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	metrics.Global.SuggestionsGenerated.Add(int64(after.Total() - before.Total()))
	return out, nil
}

// ActiveSuggestions returns pending suggestions ranked without
// situational context. limit <= 0 returns all.
func (e *Engine) ActiveSuggestions(ctx context.Context, limit int) ([]suggestion.Ranked, error) {
	metrics.Global.SuggestRequests.Add(1)
	pending, err := e.suggestions.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ranked := e.ranker.Rank(pending, nil, e.now().UnixMilli())
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// SuggestionsForContext returns pending suggestions ranked against the
// given context, dropping poor context matches entirely.
func (e *Engine) SuggestionsForContext(ctx context.Context, qctx suggestion.Context, limit int) ([]suggestion.Ranked, error) {
	metrics.Global.SuggestRequests.Add(1)
	pending, err := e.suggestions.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ranked := e.ranker.ForContext(pending, qctx, e.now().UnixMilli())
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// RespondToSuggestion records the user's response and cascades it:
// the source habit receives matching feedback, and an accepted action
// is applied (automation linked to its habit, preference persisted).
func (e *Engine) RespondToSuggestion(ctx context.Context, id string, response suggestion.Status, helpful *bool) (suggestion.Suggestion, error) {
	if !suggestion.ValidResponse(string(response)) {
		return suggestion.Suggestion{}, fmt.Errorf("invalid response %q", response)
	}
	nowMs := e.now().UnixMilli()

	sg, err := e.suggestions.Respond(ctx, id, response, helpful, nowMs)
	if err != nil {
		return suggestion.Suggestion{}, err
	}
	switch response {
	case suggestion.StatusAccepted:
		metrics.Global.ResponsesAccepted.Add(1)
	case suggestion.StatusRejected:
		metrics.Global.ResponsesRejected.Add(1)
	case suggestion.StatusDeferred:
		metrics.Global.ResponsesDeferred.Add(1)
	}

	if sg.HabitID != "" {
		fb := feedbackFor(response, helpful)
		if err := e.habits.RecordFeedback(ctx, sg.HabitID, fb, nowMs); err != nil {
			return sg, fmt.Errorf("record habit feedback: %w", err)
		}
	}
	if response == suggestion.StatusAccepted {
		if err := e.applyAction(ctx, sg, nowMs); err != nil {
			return sg, err
		}
	}
	return sg, nil
}

// applyAction performs the persistent side of an accepted suggestion.
// Automations run outside this process; only the link is recorded.
func (e *Engine) applyAction(ctx context.Context, sg suggestion.Suggestion, nowMs int64) error {
	switch sg.Action.Kind {
	case suggestion.ActionAutomation:
		if sg.HabitID == "" {
			return nil
		}
		if err := e.habits.LinkAutomation(ctx, sg.HabitID, sg.ID); err != nil {
			return fmt.Errorf("link automation: %w", err)
		}
	case suggestion.ActionPreference:
		act := sg.Action.Preference
		if act == nil {
			return fmt.Errorf("suggestion %s has a preference action with no payload", sg.ID)
		}
		_, err := e.prefs.Set(ctx, preference.Preference{
			Category:   act.Category,
			Key:        act.Key,
			Value:      act.Value,
			Source:     preference.SourceAuto,
			Confidence: sg.Confidence,
		}, nowMs)
		if err != nil {
			return fmt.Errorf("persist accepted preference: %w", err)
		}
	case suggestion.ActionSchedule:
		// Scheduling is advisory; nothing to persist beyond the response.
	}
	return nil
}

// feedbackFor maps a response (and optional helpful flag) onto habit
// feedback. An explicit helpful flag wins over the response itself.
func feedbackFor(response suggestion.Status, helpful *bool) habit.Feedback {
	if helpful != nil {
		if *helpful {
			return habit.FeedbackHelpful
		}
		return habit.FeedbackNotHelpful
	}
	switch response {
	case suggestion.StatusAccepted:
		return habit.FeedbackHelpful
	case suggestion.StatusRejected:
		return habit.FeedbackNotHelpful
	default:
		return habit.FeedbackSkip
	}
}

// AnalyzePreferences infers preferences from the window, persists the
// confident ones, and raises suggestions proposing the persisted
// values. windowDays <= 0 uses the configured default.
func (e *Engine) AnalyzePreferences(ctx context.Context, windowDays int) ([]preference.Candidate, error) {
	if windowDays <= 0 {
		windowDays = e.cfg.Engine.PreferenceWindowDays
	}
	end := e.now()
	events, err := e.events.ListRange(ctx, end.AddDate(0, 0, -windowDays), end)
	if err != nil {
		return nil, fmt.Errorf("load event window: %w", err)
	}

	nowMs := end.UnixMilli()
	candidates, err := e.analyzer.Analyze(ctx, events, nowMs)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		_, created, err := e.generator.FromPreference(ctx, c.Category, c.Key, c.Value, c.Confidence, nowMs)
		if err != nil {
			return nil, err
		}
		if created {
			metrics.Global.SuggestionsGenerated.Add(1)
		}
	}
	return candidates, nil
}

// MetaPatterns reports second-order patterns over the preference store
// itself, looking back over the preference window.
func (e *Engine) MetaPatterns(ctx context.Context) ([]preference.MetaPattern, error) {
	since := e.now().AddDate(0, 0, -e.cfg.Engine.PreferenceWindowDays)
	return e.prefs.DetectMeta(ctx, since.UnixMilli())
}

// AutoLearn reports the persisted auto-learn flag.
func (e *Engine) AutoLearn(ctx context.Context) (bool, error) {
	return e.settings.AutoLearn(ctx)
}

// SetAutoLearn persists the auto-learn flag.
func (e *Engine) SetAutoLearn(ctx context.Context, enabled bool) error {
	if err := e.settings.SetAutoLearn(ctx, enabled); err != nil {
		return err
	}
	e.logger.Info("auto-learn setting changed", "enabled", enabled)
	return nil
}

// MuteSuggestionType stops future generation of one suggestion type and
// rejects its pending suggestions. Returns the number rejected.
func (e *Engine) MuteSuggestionType(ctx context.Context, typ string) (int64, error) {
	if !suggestion.ValidType(typ) {
		return 0, fmt.Errorf("unknown suggestion type %q", typ)
	}
	if err := e.settings.MuteType(ctx, typ); err != nil {
		return 0, err
	}
	rejected, err := e.suggestions.RejectPendingOfType(ctx, suggestion.Type(typ), e.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	metrics.Global.ResponsesRejected.Add(rejected)
	return rejected, nil
}

// UnmuteSuggestionType re-enables generation of one suggestion type.
func (e *Engine) UnmuteSuggestionType(ctx context.Context, typ string) error {
	if !suggestion.ValidType(typ) {
		return fmt.Errorf("unknown suggestion type %q", typ)
	}
	return e.settings.UnmuteType(ctx, typ)
}

// MutedTypes lists the currently muted suggestion types.
func (e *Engine) MutedTypes(ctx context.Context) ([]string, error) {
	return e.settings.MutedTypes(ctx)
}

// noteEvent drives opportunistic learning. When auto-learn is on and
// enough events accumulated since the last pass, it runs a full
// analysis followed by suggestion generation. Failures are logged and
// swallowed so event recording never breaks.
func (e *Engine) noteEvent(ctx context.Context) {
	e.analysisMu.Lock()
	defer e.analysisMu.Unlock()

	e.eventsSinceLearn++
	if e.eventsSinceLearn < e.cfg.Engine.AutoLearnTriggerEvents {
		return
	}
	enabled, err := e.settings.AutoLearn(ctx)
	if err != nil {
		e.logger.Warn("auto-learn check failed", "error", err)
		return
	}
	if !enabled {
		return
	}
	e.eventsSinceLearn = 0

	if _, err := e.analyzeLocked(ctx, 0); err != nil {
		e.logger.Warn("auto-learn analysis failed", "error", err)
		return
	}
	nowMs := e.now().UnixMilli()
	habits, err := e.habits.ListEligible(ctx, e.cfg.Engine.SuggestThreshold, nowMs)
	if err != nil {
		e.logger.Warn("auto-learn habit listing failed", "error", err)
		return
	}
	if _, err := e.generator.FromHabits(ctx, habits, nowMs); err != nil {
		e.logger.Warn("auto-learn suggestion generation failed", "error", err)
	}
}

// Purge applies the retention policy: events and responded suggestions
// older than the retention window are deleted. Habits and preferences
// are kept indefinitely. days <= 0 uses the configured default.
func (e *Engine) Purge(ctx context.Context, days int) (eventsDeleted, suggestionsDeleted int64, err error) {
	if days <= 0 {
		days = e.cfg.Engine.RetentionDays
	}
	cutoff := e.now().AddDate(0, 0, -days)
	eventsDeleted, err = e.events.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}
	suggestionsDeleted, err = e.suggestions.PurgeOlderThan(ctx, cutoff.UnixMilli())
	if err != nil {
		return eventsDeleted, 0, err
	}
	e.logger.Info("retention purge complete",
		"events_deleted", eventsDeleted, "suggestions_deleted", suggestionsDeleted)
	return eventsDeleted, suggestionsDeleted, nil
}
