// Package event defines the user-action events consumed by the habitd
// analysis engine and the sqlite-backed event log they are read from.
// Events are immutable facts: the engine appends and reads, never mutates.
package event

import (
	"strings"
	"time"

	"github.com/google/shlex"
)

// Type identifies the kind of user action an event records.
type Type string

const (
	TypeAppOpened        Type = "app_opened"
	TypeAppClosed        Type = "app_closed"
	TypeCommandExecuted  Type = "command_executed"
	TypeConversationTurn Type = "conversation_turn"
)

// ValidType returns true if t is a recognized event type.
func ValidType(t string) bool {
	switch Type(t) {
	case TypeAppOpened, TypeAppClosed, TypeCommandExecuted, TypeConversationTurn:
		return true
	default:
		return false
	}
}

// DayPart is a coarse time-of-day bucket.
type DayPart string

const (
	Morning   DayPart = "morning"   // 05:00-11:59
	Afternoon DayPart = "afternoon" // 12:00-16:59
	Evening   DayPart = "evening"   // 17:00-20:59
	Night     DayPart = "night"     // 21:00-04:59
)

// DayParts lists all buckets in chronological order starting at morning.
var DayParts = []DayPart{Morning, Afternoon, Evening, Night}

// DayPartOf buckets a timestamp into its time-of-day segment.
func DayPartOf(t time.Time) DayPart {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	case h >= 17 && h < 21:
		return Evening
	default:
		return Night
	}
}

// Event is a single timestamped user-action record.
type Event struct {
	// ID is the row id assigned by the event log (0 before insertion).
	ID int64 `json:"id,omitempty"`

	// Type is the event type.
	Type Type `json:"event_type"`

	// TsMs is the timestamp in Unix milliseconds.
	TsMs int64 `json:"ts_ms"`

	// DayPart is the time-of-day bucket derived from TsMs at record time.
	DayPart DayPart `json:"day_part"`

	// Payload carries event-specific data, e.g. {"app_name": "Chrome"}.
	Payload map[string]string `json:"payload,omitempty"`
}

// New creates an event of the given type stamped at ts.
func New(t Type, ts time.Time, payload map[string]string) Event {
	return Event{
		Type:    t,
		TsMs:    ts.UnixMilli(),
		DayPart: DayPartOf(ts),
		Payload: payload,
	}
}

// Time returns the event timestamp.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.TsMs)
}

// AppName returns the application name for app events, or "" if absent.
func (e Event) AppName() string {
	return strings.TrimSpace(e.Payload["app_name"])
}

// CommandType returns the command classifier for command_executed events.
// It prefers an explicit "command_type" payload field and falls back to
// the head token of the raw "command" string. Returns "" when neither
// yields a usable value.
func (e Event) CommandType() string {
	if ct := strings.TrimSpace(e.Payload["command_type"]); ct != "" {
		return ct
	}
	raw := strings.TrimSpace(e.Payload["command"])
	if raw == "" {
		return ""
	}
	tokens, err := shlex.Split(raw)
	if err != nil || len(tokens) == 0 {
		// Unparseable quoting; take the first whitespace-delimited word.
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	}
	return tokens[0]
}

// Subject returns the label the detectors chain or count for this event:
// the app name for app events, the command type for command events.
func (e Event) Subject() string {
	switch e.Type {
	case TypeAppOpened, TypeAppClosed:
		return e.AppName()
	case TypeCommandExecuted:
		return e.CommandType()
	default:
		return ""
	}
}
