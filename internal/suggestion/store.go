package suggestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a suggestion id does not exist.
var ErrNotFound = errors.New("suggestion not found")

// ErrAlreadyResponded is returned when a response targets a suggestion
// that is already accepted or rejected.
var ErrAlreadyResponded = errors.New("suggestion already responded to")

// Store persists suggestions in sqlite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore returns a Store over db.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "suggestion_store")}
}

const selectSuggestion = `
SELECT suggestion_id, habit_id, type, title, description, confidence, occurrences,
       last_confirmed_ms, match_ctx, action, status, created_ms,
       responded_ms, helpful
FROM suggestion`

// Insert stores a new suggestion. ID, Status and CreatedMs are
// assigned here.
func (s *Store) Insert(ctx context.Context, sg Suggestion, nowMs int64) (Suggestion, error) {
	sg.ID = uuid.NewString()
	sg.Status = StatusPending
	sg.CreatedMs = nowMs

	matchCtx, err := json.Marshal(sg.MatchCtx)
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal match context: %w", err)
	}
	action, err := json.Marshal(sg.Action)
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal action: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO suggestion (suggestion_id, habit_id, type, title, description, confidence,
                        occurrences, last_confirmed_ms, match_ctx, action,
                        status, created_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, nullIfEmpty(sg.HabitID), string(sg.Type), sg.Title, sg.Description,
		sg.Confidence, sg.Occurrences, sg.LastConfirmedMs, string(matchCtx),
		string(action), string(sg.Status), sg.CreatedMs)
	if err != nil {
		return Suggestion{}, fmt.Errorf("insert suggestion: %w", err)
	}
	return sg, nil
}

// Refresh updates the evidence columns of an existing pending
// suggestion after its source habit was re-detected.
func (s *Store) Refresh(ctx context.Context, id string, confidence float64, occurrences int, lastConfirmedMs int64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE suggestion
SET confidence = ?, occurrences = ?, last_confirmed_ms = ?
WHERE suggestion_id = ? AND status = ?`,
		confidence, occurrences, lastConfirmedMs, id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("refresh suggestion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one suggestion by id.
func (s *Store) Get(ctx context.Context, id string) (Suggestion, error) {
	row := s.db.QueryRowContext(ctx, selectSuggestion+` WHERE suggestion_id = ?`, id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("get suggestion: %w", err)
	}
	return sg, nil
}

// PendingForHabit returns the pending suggestion sourced from the
// given habit, or ErrNotFound.
func (s *Store) PendingForHabit(ctx context.Context, habitID string) (Suggestion, error) {
	row := s.db.QueryRowContext(ctx,
		selectSuggestion+` WHERE habit_id = ? AND status = ?`, habitID, string(StatusPending))
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("pending for habit: %w", err)
	}
	return sg, nil
}

// PendingByTitle returns a pending suggestion with the given type and
// title, used to dedupe suggestions that have no source habit.
func (s *Store) PendingByTitle(ctx context.Context, typ Type, title string) (Suggestion, error) {
	row := s.db.QueryRowContext(ctx,
		selectSuggestion+` WHERE type = ? AND title = ? AND status = ?`,
		string(typ), title, string(StatusPending))
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Suggestion{}, ErrNotFound
	}
	if err != nil {
		return Suggestion{}, fmt.Errorf("pending by title: %w", err)
	}
	return sg, nil
}

// ListPending returns all pending suggestions ordered oldest first.
func (s *Store) ListPending(ctx context.Context) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSuggestion+` WHERE status = ? ORDER BY created_ms ASC, suggestion_id ASC`,
		string(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// ListAll returns every suggestion, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSuggestion+` ORDER BY created_ms DESC, suggestion_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// Respond records the user's response. Pending and deferred
// suggestions accept a response; a deferred one may still be accepted
// or rejected later. Helpful feedback is optional.
func (s *Store) Respond(ctx context.Context, id string, response Status, helpful *bool, nowMs int64) (Suggestion, error) {
	sg, err := s.Get(ctx, id)
	if err != nil {
		return Suggestion{}, err
	}
	switch sg.Status {
	case StatusPending, StatusDeferred:
	default:
		return Suggestion{}, fmt.Errorf("%w: %s is %s", ErrAlreadyResponded, id, sg.Status)
	}

	var helpfulVal any
	if helpful != nil {
		if *helpful {
			helpfulVal = int64(1)
		} else {
			helpfulVal = int64(0)
		}
	}
	_, err = s.db.ExecContext(ctx, `
UPDATE suggestion SET status = ?, responded_ms = ?, helpful = ? WHERE suggestion_id = ?`,
		string(response), nowMs, helpfulVal, id)
	if err != nil {
		return Suggestion{}, fmt.Errorf("respond suggestion: %w", err)
	}

	sg.Status = response
	sg.RespondedMs = nowMs
	sg.Helpful = helpful
	s.logger.Info("suggestion response recorded",
		"suggestion_id", id, "response", string(response))
	return sg, nil
}

// StatusCounts is the per-status tally used by learning analytics.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Deferred int `json:"deferred"`
}

// Total returns the sum over all statuses.
func (c StatusCounts) Total() int {
	return c.Pending + c.Accepted + c.Rejected + c.Deferred
}

// Responded returns the count of suggestions that left pending.
func (c StatusCounts) Responded() int {
	return c.Accepted + c.Rejected + c.Deferred
}

// CountByStatus tallies suggestions per lifecycle state.
func (s *Store) CountByStatus(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM suggestion GROUP BY status`)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count suggestions: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("scan status count: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			counts.Pending = n
		case StatusAccepted:
			counts.Accepted = n
		case StatusRejected:
			counts.Rejected = n
		case StatusDeferred:
			counts.Deferred = n
		}
	}
	if err := rows.Err(); err != nil {
		return StatusCounts{}, fmt.Errorf("count suggestions: %w", err)
	}
	return counts, nil
}

// CountByType tallies non-rejected suggestions per type.
func (s *Store) CountByType(ctx context.Context) (map[Type]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT type, COUNT(*) FROM suggestion WHERE status != ? GROUP BY type`,
		string(StatusRejected))
	if err != nil {
		return nil, fmt.Errorf("count suggestion types: %w", err)
	}
	defer rows.Close()

	counts := make(map[Type]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts[Type(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count suggestion types: %w", err)
	}
	return counts, nil
}

// RejectPendingOfType rejects every pending suggestion of the given
// type in one statement, used when the type is muted.
func (s *Store) RejectPendingOfType(ctx context.Context, typ Type, nowMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE suggestion SET status = ?, responded_ms = ?
WHERE type = ? AND status = ?`,
		string(StatusRejected), nowMs, string(typ), string(StatusPending))
	if err != nil {
		return 0, fmt.Errorf("reject pending %s suggestions: %w", typ, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject pending %s suggestions: %w", typ, err)
	}
	if n > 0 {
		s.logger.Info("pending suggestions rejected by mute",
			"type", string(typ), "count", n)
	}
	return n, nil
}

// PurgeOlderThan removes responded suggestions whose response predates
// cutoffMs. Pending suggestions are kept regardless of age.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM suggestion WHERE status != ? AND responded_ms < ?`,
		string(StatusPending), cutoffMs)
	if err != nil {
		return 0, fmt.Errorf("purge suggestions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge suggestions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (Suggestion, error) {
	var sg Suggestion
	var habitID sql.NullString
	var matchCtx, action string
	var status, typ string
	var respondedMs sql.NullInt64
	var helpful sql.NullInt64
	err := row.Scan(&sg.ID, &habitID, &typ, &sg.Title, &sg.Description,
		&sg.Confidence, &sg.Occurrences, &sg.LastConfirmedMs, &matchCtx,
		&action, &status, &sg.CreatedMs, &respondedMs, &helpful)
	if err != nil {
		return Suggestion{}, err
	}
	sg.HabitID = habitID.String
	sg.Type = Type(typ)
	sg.Status = Status(status)
	if respondedMs.Valid {
		sg.RespondedMs = respondedMs.Int64
	}
	if helpful.Valid {
		v := helpful.Int64 == 1
		sg.Helpful = &v
	}
	if err := json.Unmarshal([]byte(matchCtx), &sg.MatchCtx); err != nil {
		return Suggestion{}, fmt.Errorf("decode match context for %s: %w", sg.ID, err)
	}
	if err := json.Unmarshal([]byte(action), &sg.Action); err != nil {
		return Suggestion{}, fmt.Errorf("decode action for %s: %w", sg.ID, err)
	}
	return sg, nil
}

func scanSuggestions(rows *sql.Rows) ([]Suggestion, error) {
	var out []Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan suggestions: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
