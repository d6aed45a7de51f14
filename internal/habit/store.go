package habit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runger/habitd/internal/detect"
)

// ErrNotFound is returned when a habit id does not exist.
var ErrNotFound = errors.New("habit not found")

// maxConfidence caps stored habit confidence.
const maxConfidence = 0.95

// Config holds habit registry settings.
type Config struct {
	// SuppressionDays is the cool-down applied on not_helpful feedback.
	SuppressionDays int
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{SuppressionDays: 14}
}

// Store is the sqlite-backed habit registry.
type Store struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

// NewStore creates a habit store on the shared database handle.
func NewStore(db *sql.DB, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SuppressionDays < 1 {
		cfg.SuppressionDays = DefaultConfig().SuppressionDays
	}
	return &Store{db: db, cfg: cfg, logger: logger}
}

// Upsert stores a pattern as a habit, deduplicating on
// (pattern_type, description). Re-detection updates occurrences and
// last_confirmed and never lowers confidence; creation starts with
// unset feedback. Returns the resulting habit and whether it was
// newly created.
func (s *Store) Upsert(ctx context.Context, p detect.Pattern, nowMs int64) (Habit, bool, error) {
	if nowMs == 0 {
		nowMs = time.Now().UnixMilli()
	}

	existing, err := s.getByKey(ctx, p.Type, p.Description)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Habit{}, false, err
	}

	evidence, merr := json.Marshal(p.Evidence)
	if merr != nil {
		return Habit{}, false, fmt.Errorf("failed to marshal evidence: %w", merr)
	}

	if errors.Is(err, ErrNotFound) {
		h := Habit{
			ID:              uuid.NewString(),
			PatternType:     p.Type,
			Description:     p.Description,
			Confidence:      p.Confidence,
			Occurrences:     p.Occurrences,
			Evidence:        p.Evidence,
			FirstDetectedMs: nowMs,
			LastConfirmedMs: nowMs,
			Feedback:        FeedbackUnset,
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO habit (habit_id, pattern_type, description, confidence, occurrences, evidence, first_detected_ms, last_confirmed_ms, user_feedback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, h.ID, string(h.PatternType), h.Description, h.Confidence, h.Occurrences, string(evidence), h.FirstDetectedMs, h.LastConfirmedMs, string(h.Feedback))
		if err != nil {
			return Habit{}, false, fmt.Errorf("failed to insert habit: %w", err)
		}
		s.logger.Debug("habit created", "habit_id", h.ID, "pattern_type", h.PatternType)
		return h, true, nil
	}

	// Re-detection is evidence of persistence: confidence is
	// non-decreasing across confirmations, capped below 1.0. Taking the
	// max also keeps the upsert idempotent, so a retried write is safe.
	confidence := existing.Confidence
	if p.Confidence > confidence {
		confidence = p.Confidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE habit SET confidence = ?, occurrences = ?, evidence = ?, last_confirmed_ms = ?
		WHERE habit_id = ?
	`, confidence, p.Occurrences, string(evidence), nowMs, existing.ID)
	if err != nil {
		return Habit{}, false, fmt.Errorf("failed to update habit: %w", err)
	}

	existing.Confidence = confidence
	existing.Occurrences = p.Occurrences
	existing.Evidence = p.Evidence
	existing.LastConfirmedMs = nowMs
	s.logger.Debug("habit reconfirmed", "habit_id", existing.ID, "confidence", confidence)
	return existing, false, nil
}

// Get returns a habit by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Habit, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectHabit+" WHERE habit_id = ?", id))
}

func (s *Store) getByKey(ctx context.Context, pt detect.PatternType, description string) (Habit, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		selectHabit+" WHERE pattern_type = ? AND description = ?", string(pt), description))
}

// List returns habits ordered by confidence descending.
func (s *Store) List(ctx context.Context, limit int) ([]Habit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectHabit+" ORDER BY confidence DESC, last_confirmed_ms DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	return s.scanAll(rows)
}

// ListByIDs returns the habits for the given ids; unknown ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]Habit, error) {
	var habits []Habit
	for _, id := range ids {
		h, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, nil
}

// ListEligible returns habits at or above minConfidence that are not
// suppressed at nowMs, ordered by confidence descending. These are the
// candidates for suggestion generation.
func (s *Store) ListEligible(ctx context.Context, minConfidence float64, nowMs int64) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx, selectHabit+`
		WHERE confidence >= ?
		  AND NOT (user_feedback = ? AND suppressed_until_ms > ?)
		ORDER BY confidence DESC, last_confirmed_ms DESC
	`, minConfidence, string(FeedbackNotHelpful), nowMs)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible habits: %w", err)
	}
	return s.scanAll(rows)
}

// RecordFeedback sets the user's verdict on a habit. not_helpful starts
// the suppression cool-down so the habit is not re-suggested.
func (s *Store) RecordFeedback(ctx context.Context, id string, fb Feedback, nowMs int64) error {
	if !ValidFeedback(string(fb)) {
		return fmt.Errorf("invalid feedback %q", fb)
	}
	if nowMs == 0 {
		nowMs = time.Now().UnixMilli()
	}

	suppressedUntil := int64(0)
	if fb == FeedbackNotHelpful {
		suppressedUntil = nowMs + int64(s.cfg.SuppressionDays)*24*int64(time.Hour/time.Millisecond)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE habit SET user_feedback = ?, suppressed_until_ms = ? WHERE habit_id = ?",
		string(fb), suppressedUntil, id)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.Debug("habit feedback recorded", "habit_id", id, "feedback", fb)
	return nil
}

// LinkAutomation marks a habit as having a created automation.
func (s *Store) LinkAutomation(ctx context.Context, id, automationID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE habit SET automation_created = 1, automation_id = ? WHERE habit_id = ?",
		automationID, id)
	if err != nil {
		return fmt.Errorf("failed to link automation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Analytics summarizes the registry for reporting.
type Analytics struct {
	Total         int            `json:"total_habits"`
	ByFeedback    map[string]int `json:"by_feedback"`
	ByPatternType map[string]int `json:"by_pattern_type"`
	AvgConfidence float64        `json:"average_confidence"`
}

// Summarize computes registry analytics.
func (s *Store) Summarize(ctx context.Context) (Analytics, error) {
	a := Analytics{
		ByFeedback:    make(map[string]int),
		ByPatternType: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT user_feedback, pattern_type, confidence FROM habit")
	if err != nil {
		return a, fmt.Errorf("failed to summarize habits: %w", err)
	}
	defer rows.Close()

	sum := 0.0
	for rows.Next() {
		var fb, pt string
		var conf float64
		if err := rows.Scan(&fb, &pt, &conf); err != nil {
			return a, fmt.Errorf("failed to scan habit row: %w", err)
		}
		a.Total++
		a.ByFeedback[fb]++
		a.ByPatternType[pt]++
		sum += conf
	}
	if a.Total > 0 {
		a.AvgConfidence = sum / float64(a.Total)
	}
	return a, rows.Err()
}

const selectHabit = `
	SELECT habit_id, pattern_type, description, confidence, occurrences, COALESCE(evidence, '{}'),
	       first_detected_ms, last_confirmed_ms, user_feedback, suppressed_until_ms,
	       automation_created, COALESCE(automation_id, '')
	FROM habit`

func (s *Store) scanOne(row *sql.Row) (Habit, error) {
	var h Habit
	var evidence string
	var automationCreated int
	err := row.Scan(&h.ID, &h.PatternType, &h.Description, &h.Confidence, &h.Occurrences, &evidence,
		&h.FirstDetectedMs, &h.LastConfirmedMs, &h.Feedback, &h.SuppressedUntilMs,
		&automationCreated, &h.AutomationID)
	if errors.Is(err, sql.ErrNoRows) {
		return Habit{}, ErrNotFound
	}
	if err != nil {
		return Habit{}, fmt.Errorf("failed to scan habit: %w", err)
	}
	h.AutomationCreated = automationCreated != 0
	if err := json.Unmarshal([]byte(evidence), &h.Evidence); err != nil {
		s.logger.Warn("habit has malformed evidence", "habit_id", h.ID, "error", err)
	}
	return h, nil
}

func (s *Store) scanAll(rows *sql.Rows) ([]Habit, error) {
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		var evidence string
		var automationCreated int
		err := rows.Scan(&h.ID, &h.PatternType, &h.Description, &h.Confidence, &h.Occurrences, &evidence,
			&h.FirstDetectedMs, &h.LastConfirmedMs, &h.Feedback, &h.SuppressedUntilMs,
			&automationCreated, &h.AutomationID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		h.AutomationCreated = automationCreated != 0
		if err := json.Unmarshal([]byte(evidence), &h.Evidence); err != nil {
			s.logger.Warn("habit has malformed evidence", "habit_id", h.ID, "error", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}
