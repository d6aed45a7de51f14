package preference

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a (category, key) pair does not exist.
var ErrNotFound = errors.New("preference not found")

// Store persists preferences and their change history in sqlite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore returns a Store over db.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "preference_store")}
}

const selectPreference = `
SELECT preference_id, category, key, value, source, confidence, evidence,
       created_ms, modified_ms, version
FROM preference`

// Set creates or updates a preference and appends a history row in the
// same transaction. Updating bumps the version. An inferred write
// never overwrites a manual preference; it is dropped silently so
// re-analysis cannot clobber explicit user choices.
func (s *Store) Set(ctx context.Context, p Preference, nowMs int64) (Preference, error) {
	if p.Category == "" || p.Key == "" {
		return Preference{}, errors.New("preference category and key are required")
	}
	if !ValidSource(string(p.Source)) {
		return Preference{}, fmt.Errorf("invalid preference source %q", p.Source)
	}

	existing, err := s.Get(ctx, p.Category, p.Key)
	switch {
	case err == nil:
		if existing.Source == SourceManual && p.Source == SourceInferred {
			return existing, nil
		}
	case errors.Is(err, ErrNotFound):
	default:
		return Preference{}, err
	}

	evidence, err := json.Marshal(p.Evidence)
	if err != nil {
		return Preference{}, fmt.Errorf("marshal evidence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Preference{}, fmt.Errorf("begin preference tx: %w", err)
	}
	defer tx.Rollback()

	p.ID = uuid.NewString()
	p.CreatedMs = nowMs
	p.ModifiedMs = nowMs
	p.Version = 1
	_, err = tx.ExecContext(ctx, `
INSERT INTO preference (preference_id, category, key, value, source, confidence,
                        evidence, created_ms, modified_ms, version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(category, key) DO UPDATE SET
  value = excluded.value,
  source = excluded.source,
  confidence = excluded.confidence,
  evidence = excluded.evidence,
  modified_ms = excluded.modified_ms,
  version = preference.version + 1`,
		p.ID, p.Category, p.Key, p.Value, string(p.Source), p.Confidence,
		string(evidence), nowMs, nowMs)
	if err != nil {
		return Preference{}, fmt.Errorf("upsert preference: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO preference_history (ts_ms, category, key, value, source)
VALUES (?, ?, ?, ?, ?)`,
		nowMs, p.Category, p.Key, p.Value, string(p.Source))
	if err != nil {
		return Preference{}, fmt.Errorf("append preference history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Preference{}, fmt.Errorf("commit preference tx: %w", err)
	}

	stored, err := s.Get(ctx, p.Category, p.Key)
	if err != nil {
		return Preference{}, err
	}
	s.logger.Info("preference set",
		"category", p.Category, "key", p.Key, "source", string(p.Source),
		"version", stored.Version)
	return stored, nil
}

// Promote converts an inferred or auto preference into a manual one at
// full confidence, keeping its value.
func (s *Store) Promote(ctx context.Context, category, key string, nowMs int64) (Preference, error) {
	existing, err := s.Get(ctx, category, key)
	if err != nil {
		return Preference{}, err
	}
	if existing.Source == SourceManual {
		return existing, nil
	}
	existing.Source = SourceManual
	existing.Confidence = 1.0
	return s.Set(ctx, existing, nowMs)
}

// Get returns one preference by category and key.
func (s *Store) Get(ctx context.Context, category, key string) (Preference, error) {
	row := s.db.QueryRowContext(ctx,
		selectPreference+` WHERE category = ? AND key = ?`, category, key)
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, ErrNotFound
	}
	if err != nil {
		return Preference{}, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

// List returns stored preferences, optionally filtered by category,
// ordered by category then key.
func (s *Store) List(ctx context.Context, category string) ([]Preference, error) {
	query := selectPreference
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category ASC, key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var out []Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return out, nil
}

// Delete removes a preference. The removal is recorded in history with
// an empty value.
func (s *Store) Delete(ctx context.Context, category, key string, nowMs int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preference tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM preference WHERE category = ? AND key = ?`, category, key)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO preference_history (ts_ms, category, key, value, source)
VALUES (?, ?, ?, '', 'manual')`,
		nowMs, category, key)
	if err != nil {
		return fmt.Errorf("append preference history: %w", err)
	}
	return tx.Commit()
}

// History returns the newest limit audit rows, most recent first.
// limit <= 0 returns everything.
func (s *Store) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `
SELECT ts_ms, category, key, value, source
FROM preference_history ORDER BY ts_ms DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("preference history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var source string
		if err := rows.Scan(&e.TsMs, &e.Category, &e.Key, &e.Value, &source); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Source = Source(source)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preference history: %w", err)
	}
	return out, nil
}

// Summarize computes store-wide statistics.
func (s *Store) Summarize(ctx context.Context) (Stats, error) {
	prefs, err := s.List(ctx, "")
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Total:                 len(prefs),
		BySource:              make(map[Source]int),
		ByCategory:            make(map[string]int),
		AvgConfidenceBySource: make(map[Source]float64),
	}
	sum := 0.0
	sumBySource := make(map[Source]float64)
	for _, p := range prefs {
		stats.BySource[p.Source]++
		stats.ByCategory[p.Category]++
		sum += p.Confidence
		sumBySource[p.Source] += p.Confidence
	}
	if len(prefs) > 0 {
		stats.AvgConfidence = sum / float64(len(prefs))
	}
	for source, n := range stats.BySource {
		stats.AvgConfidenceBySource[source] = sumBySource[source] / float64(n)
	}
	return stats, nil
}

func scanPreference(row interface{ Scan(...any) error }) (Preference, error) {
	var p Preference
	var source string
	var evidence sql.NullString
	err := row.Scan(&p.ID, &p.Category, &p.Key, &p.Value, &source,
		&p.Confidence, &evidence, &p.CreatedMs, &p.ModifiedMs, &p.Version)
	if err != nil {
		return Preference{}, err
	}
	p.Source = Source(source)
	if evidence.Valid && evidence.String != "" && evidence.String != "null" {
		if err := json.Unmarshal([]byte(evidence.String), &p.Evidence); err != nil {
			return Preference{}, fmt.Errorf("decode evidence for %s/%s: %w", p.Category, p.Key, err)
		}
	}
	return p, nil
}
