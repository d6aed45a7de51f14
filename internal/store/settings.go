package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Setting keys owned by the engine.
const (
	settingAutoLearn  = "auto_learn"
	settingMutePrefix = "mute_type:"
)

// Settings provides persisted engine flags on top of the engine_setting table.
type Settings struct {
	db *sql.DB
}

// NewSettings creates a settings accessor.
func NewSettings(db *sql.DB) *Settings {
	return &Settings{db: db}
}

func (s *Settings) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM engine_setting WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Settings) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_setting (key, value, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ms = excluded.updated_ms
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

// AutoLearn reports whether opportunistic analysis is enabled.
// The default is false: learning is opt-in.
func (s *Settings) AutoLearn(ctx context.Context) (bool, error) {
	value, ok, err := s.get(ctx, settingAutoLearn)
	if err != nil {
		return false, err
	}
	return ok && value == "1", nil
}

// SetAutoLearn persists the auto-learn flag.
func (s *Settings) SetAutoLearn(ctx context.Context, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return s.set(ctx, settingAutoLearn, value)
}

// MuteType suppresses future generation of a suggestion type.
func (s *Settings) MuteType(ctx context.Context, suggestionType string) error {
	return s.set(ctx, settingMutePrefix+suggestionType, "1")
}

// UnmuteType re-enables generation of a suggestion type.
func (s *Settings) UnmuteType(ctx context.Context, suggestionType string) error {
	return s.set(ctx, settingMutePrefix+suggestionType, "0")
}

// TypeMuted reports whether a suggestion type is muted.
func (s *Settings) TypeMuted(ctx context.Context, suggestionType string) (bool, error) {
	value, ok, err := s.get(ctx, settingMutePrefix+suggestionType)
	if err != nil {
		return false, err
	}
	return ok && value == "1", nil
}

// MutedTypes returns all currently muted suggestion types.
func (s *Settings) MutedTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM engine_setting WHERE key LIKE ? AND value = '1'", settingMutePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list muted types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		types = append(types, strings.TrimPrefix(key, settingMutePrefix))
	}
	return types, rows.Err()
}
