package store

// SchemaVersion is the current schema version. Open refuses databases
// whose recorded version is newer than this.
const SchemaVersion = 1

// schemaV1 creates the full habitd schema.
//
// Tables:
//  1. event              - append-only user-action event log
//  2. habit              - persisted, deduplicated behavior patterns
//  3. suggestion         - actionable recommendations and their lifecycle
//  4. preference         - inferred and manual preferences
//  5. preference_history - audit log of preference changes
//  6. engine_setting     - persisted engine flags (auto-learn, type mutes)
//  7. schema_migrations  - migration version tracking
const schemaV1 = `
-- 1. Event log (append-only)
CREATE TABLE IF NOT EXISTS event (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type  TEXT NOT NULL,
  ts_ms       INTEGER NOT NULL,
  day_part    TEXT NOT NULL,
  payload     TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_event_ts ON event(ts_ms);
CREATE INDEX IF NOT EXISTS idx_event_type_ts ON event(event_type, ts_ms);

-- 2. Habits (one active row per pattern_type + description)
CREATE TABLE IF NOT EXISTS habit (
  habit_id            TEXT PRIMARY KEY,
  pattern_type        TEXT NOT NULL,
  description         TEXT NOT NULL,
  confidence          REAL NOT NULL,
  occurrences         INTEGER NOT NULL,
  evidence            TEXT,
  first_detected_ms   INTEGER NOT NULL,
  last_confirmed_ms   INTEGER NOT NULL,
  user_feedback       TEXT NOT NULL DEFAULT 'unset',
  suppressed_until_ms INTEGER NOT NULL DEFAULT 0,
  automation_created  INTEGER NOT NULL DEFAULT 0,
  automation_id       TEXT,
  UNIQUE(pattern_type, description)
);

CREATE INDEX IF NOT EXISTS idx_habit_confidence ON habit(confidence DESC);

-- 3. Suggestions
CREATE TABLE IF NOT EXISTS suggestion (
  suggestion_id     TEXT PRIMARY KEY,
  habit_id          TEXT,
  type              TEXT NOT NULL,
  title             TEXT NOT NULL,
  description       TEXT NOT NULL,
  confidence        REAL NOT NULL,
  occurrences       INTEGER NOT NULL DEFAULT 0,
  last_confirmed_ms INTEGER NOT NULL DEFAULT 0,
  match_ctx         TEXT NOT NULL DEFAULT '{}',
  action            TEXT NOT NULL DEFAULT '{}',
  status            TEXT NOT NULL DEFAULT 'pending',
  created_ms        INTEGER NOT NULL,
  responded_ms      INTEGER,
  helpful           INTEGER
);

CREATE INDEX IF NOT EXISTS idx_suggestion_status ON suggestion(status, created_ms);
CREATE INDEX IF NOT EXISTS idx_suggestion_habit ON suggestion(habit_id, status);

-- 4. Preferences (one row per category + key)
CREATE TABLE IF NOT EXISTS preference (
  preference_id TEXT PRIMARY KEY,
  category      TEXT NOT NULL,
  key           TEXT NOT NULL,
  value         TEXT NOT NULL,
  source        TEXT NOT NULL,
  confidence    REAL NOT NULL,
  evidence      TEXT,
  created_ms    INTEGER NOT NULL,
  modified_ms   INTEGER NOT NULL,
  version       INTEGER NOT NULL DEFAULT 1,
  UNIQUE(category, key)
);

-- 5. Preference change history
CREATE TABLE IF NOT EXISTS preference_history (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms     INTEGER NOT NULL,
  category  TEXT NOT NULL,
  key       TEXT NOT NULL,
  value     TEXT NOT NULL,
  source    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pref_history_ts ON preference_history(ts_ms);

-- 6. Engine settings
CREATE TABLE IF NOT EXISTS engine_setting (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_ms INTEGER NOT NULL
);

-- 7. Schema migrations tracking
CREATE TABLE IF NOT EXISTS schema_migrations (
  version    INTEGER PRIMARY KEY,
  applied_ms INTEGER NOT NULL
);
`
