package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/runger/habitd/internal/detect"
	"github.com/runger/habitd/internal/habit"
	"github.com/runger/habitd/internal/store"
)

// GeneratorConfig carries the thresholds the generator applies.
type GeneratorConfig struct {
	// MinConfidence is the habit confidence floor for generating a
	// suggestion.
	MinConfidence float64
}

// Generator turns high-confidence habits and inferred preferences into
// persisted suggestions. Generation is idempotent per habit: a habit
// with a pending suggestion gets its suggestion refreshed, not
// duplicated.
type Generator struct {
	store    *Store
	settings *store.Settings
	cfg      GeneratorConfig
	logger   *slog.Logger
}

// NewGenerator returns a Generator writing through st.
func NewGenerator(st *Store, settings *store.Settings, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:    st,
		settings: settings,
		cfg:      cfg,
		logger:   logger.With("component", "suggestion_generator"),
	}
}

// FromHabits generates or refreshes suggestions for the given habits
// and returns the suggestions that are pending afterwards. Habits
// below the confidence floor, suppressed habits, and habits whose
// suggestion type is muted are skipped.
func (g *Generator) FromHabits(ctx context.Context, habits []habit.Habit, nowMs int64) ([]Suggestion, error) {
	var out []Suggestion
	for _, h := range habits {
		if h.Confidence < g.cfg.MinConfidence {
			continue
		}
		if h.Suppressed(nowMs) || h.Feedback == habit.FeedbackNotHelpful {
			continue
		}

		draft, ok := draftFor(h)
		if !ok {
			g.logger.Warn("no suggestion template for pattern type",
				"habit_id", h.ID, "pattern_type", string(h.PatternType))
			continue
		}
		muted, err := g.settings.TypeMuted(ctx, string(draft.Type))
		if err != nil {
			return nil, err
		}
		if muted {
			continue
		}

		existing, err := g.store.PendingForHabit(ctx, h.ID)
		switch {
		case err == nil:
			if err := g.store.Refresh(ctx, existing.ID, h.Confidence, h.Occurrences, h.LastConfirmedMs); err != nil {
				return nil, err
			}
			existing.Confidence = h.Confidence
			existing.Occurrences = h.Occurrences
			existing.LastConfirmedMs = h.LastConfirmedMs
			out = append(out, existing)
		case errors.Is(err, ErrNotFound):
			draft.HabitID = h.ID
			draft.Confidence = h.Confidence
			draft.Occurrences = h.Occurrences
			draft.LastConfirmedMs = h.LastConfirmedMs
			created, err := g.store.Insert(ctx, draft, nowMs)
			if err != nil {
				return nil, err
			}
			g.logger.Info("suggestion generated",
				"suggestion_id", created.ID, "habit_id", h.ID, "type", string(created.Type))
			out = append(out, created)
		default:
			return nil, err
		}
	}
	return out, nil
}

// FromPreference generates a suggestion proposing a freshly inferred
// preference. Duplicate pending proposals for the same key are
// refreshed rather than re-created.
func (g *Generator) FromPreference(ctx context.Context, category, key, value string, confidence float64, nowMs int64) (Suggestion, bool, error) {
	if confidence < g.cfg.MinConfidence {
		return Suggestion{}, false, nil
	}
	muted, err := g.settings.TypeMuted(ctx, string(TypePreference))
	if err != nil {
		return Suggestion{}, false, err
	}
	if muted {
		return Suggestion{}, false, nil
	}

	title := fmt.Sprintf("Remember your %s?", strings.ReplaceAll(key, "_", " "))
	existing, err := g.store.PendingByTitle(ctx, TypePreference, title)
	switch {
	case err == nil:
		if err := g.store.Refresh(ctx, existing.ID, confidence, existing.Occurrences, nowMs); err != nil {
			return Suggestion{}, false, err
		}
		existing.Confidence = confidence
		existing.LastConfirmedMs = nowMs
		return existing, false, nil
	case errors.Is(err, ErrNotFound):
	default:
		return Suggestion{}, false, err
	}

	created, err := g.store.Insert(ctx, Suggestion{
		Type:  TypePreference,
		Title: title,
		Description: fmt.Sprintf("It looks like your %s is %q. Save it so future suggestions use it?",
			strings.ReplaceAll(key, "_", " "), value),
		Confidence:      confidence,
		LastConfirmedMs: nowMs,
		Action: Action{
			Kind: ActionPreference,
			Preference: &PreferenceAction{
				Category: category,
				Key:      key,
				Value:    value,
			},
		},
	}, nowMs)
	if err != nil {
		return Suggestion{}, false, err
	}
	g.logger.Info("preference suggestion generated",
		"suggestion_id", created.ID, "key", key)
	return created, true, nil
}

// draftFor maps a habit onto a typed suggestion draft. The second
// return is false when the pattern type has no template.
func draftFor(h habit.Habit) (Suggestion, bool) {
	switch h.PatternType {
	case detect.PatternSequential:
		chain := h.Evidence.Chain
		if len(chain) == 0 {
			chain = strings.Split(h.Description, " → ")
		}
		return Suggestion{
			Type:  TypeAutomation,
			Title: fmt.Sprintf("Automate %s", strings.Join(chain, " → ")),
			Description: fmt.Sprintf("You ran %s back to back %d times. A one-step automation could run the whole chain.",
				strings.Join(chain, " then "), h.Occurrences),
			MatchCtx: MatchContext{Apps: chain},
			Action: Action{
				Kind:       ActionAutomation,
				Automation: &AutomationAction{Steps: chain},
			},
		}, true

	case detect.PatternTimeBased:
		part := string(h.Evidence.DayPart)
		if part == "" {
			return Suggestion{}, false
		}
		return Suggestion{
			Type:  TypeOptimization,
			Title: fmt.Sprintf("Plan your %s routine", part),
			Description: fmt.Sprintf("Most of your activity lands in the %s. Scheduling focused work there could make it count.",
				part),
			MatchCtx: MatchContext{DayPart: part},
			Action: Action{
				Kind: ActionSchedule,
				Schedule: &ScheduleAction{
					DayPart:     part,
					Description: fmt.Sprintf("%s focus block", part),
				},
			},
		}, true

	case detect.PatternFrequency:
		subject := h.Evidence.Subject
		if subject == "" {
			return Suggestion{}, false
		}
		if h.Evidence.SubjectKind == "app" {
			return Suggestion{
				Type:  TypeAutomation,
				Title: fmt.Sprintf("Quick-launch %s", subject),
				Description: fmt.Sprintf("You open %s constantly (%d times in the window). A shortcut or startup entry would save the clicks.",
					subject, h.Occurrences),
				MatchCtx: MatchContext{Apps: []string{subject}},
				Action: Action{
					Kind:       ActionAutomation,
					Automation: &AutomationAction{Steps: []string{subject}},
				},
			}, true
		}
		return Suggestion{
			Type:  TypeLearning,
			Title: fmt.Sprintf("Lean into %s commands", subject),
			Description: fmt.Sprintf("%s commands dominate your recent activity (%d runs). Aliases or snippets for the common ones could speed you up.",
				subject, h.Occurrences),
			Action: Action{
				Kind: ActionPreference,
				Preference: &PreferenceAction{
					Category: "automation",
					Key:      "preferred_command_type",
					Value:    subject,
				},
			},
		}, true
	}
	return Suggestion{}, false
}
