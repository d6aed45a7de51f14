package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the sqlite-backed event log. The engine appends events and
// reads time windows; rows are never updated.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates an event store on the shared database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Append inserts an event and returns it with its assigned id.
func (s *Store) Append(ctx context.Context, ev Event) (Event, error) {
	if !ValidType(string(ev.Type)) {
		return ev, fmt.Errorf("invalid event type %q", ev.Type)
	}
	if ev.TsMs == 0 {
		now := time.Now()
		ev.TsMs = now.UnixMilli()
		ev.DayPart = DayPartOf(now)
	}
	if ev.DayPart == "" {
		ev.DayPart = DayPartOf(ev.Time())
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return ev, fmt.Errorf("failed to marshal payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO event (event_type, ts_ms, day_part, payload) VALUES (?, ?, ?, ?)",
		string(ev.Type), ev.TsMs, string(ev.DayPart), string(payload))
	if err != nil {
		return ev, fmt.Errorf("failed to insert event: %w", err)
	}
	ev.ID, _ = res.LastInsertId()

	s.logger.Debug("event recorded", "id", ev.ID, "type", ev.Type, "day_part", ev.DayPart)
	return ev, nil
}

// ListRange returns events with start <= ts < end in ascending timestamp
// order. When types is non-empty, only those event types are returned.
func (s *Store) ListRange(ctx context.Context, start, end time.Time, types ...Type) ([]Event, error) {
	query := "SELECT id, event_type, ts_ms, day_part, payload FROM event WHERE ts_ms >= ? AND ts_ms < ?"
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if len(types) > 0 {
		query += " AND event_type IN (?" + strings.Repeat(",?", len(types)-1) + ")"
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += " ORDER BY ts_ms ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload string
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.TsMs, &ev.DayPart, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload != "" && payload != "{}" {
			if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
				// A malformed payload makes this row useless but must not
				// abort the read; skip it and keep going.
				s.logger.Warn("skipping event with malformed payload", "id", ev.ID, "error", err)
				continue
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Count returns the total number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// PurgeOlderThan deletes events recorded before the cutoff and returns
// the number of rows removed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM event WHERE ts_ms < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("purged old events", "deleted", n, "cutoff_ms", cutoff.UnixMilli())
	}
	return n, nil
}
