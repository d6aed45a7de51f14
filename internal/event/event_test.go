package event

import (
	"testing"
	"time"
)

func TestDayPartOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour int
		want DayPart
	}{
		{0, Night},
		{4, Night},
		{5, Morning},
		{11, Morning},
		{12, Afternoon},
		{16, Afternoon},
		{17, Evening},
		{20, Evening},
		{21, Night},
		{23, Night},
	}
	for _, tt := range tests {
		ts := time.Date(2026, 8, 1, tt.hour, 30, 0, 0, time.UTC)
		if got := DayPartOf(ts); got != tt.want {
			t.Errorf("DayPartOf(hour=%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestValidType(t *testing.T) {
	t.Parallel()

	for _, typ := range []string{"app_opened", "app_closed", "command_executed", "conversation_turn"} {
		if !ValidType(typ) {
			t.Errorf("ValidType(%q) = false, want true", typ)
		}
	}
	for _, typ := range []string{"", "app_open", "keystroke", "APP_OPENED"} {
		if ValidType(typ) {
			t.Errorf("ValidType(%q) = true, want false", typ)
		}
	}
}

func TestCommandType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload map[string]string
		want    string
	}{
		{"explicit classifier wins", map[string]string{"command_type": "git", "command": "npm install"}, "git"},
		{"head token fallback", map[string]string{"command": "git commit -m done"}, "git"},
		{"quoted argument", map[string]string{"command": `grep "hello world" file.txt`}, "grep"},
		{"unbalanced quote degrades to fields", map[string]string{"command": `echo "oops`}, "echo"},
		{"leading whitespace", map[string]string{"command": "  docker ps"}, "docker"},
		{"empty payload", nil, ""},
		{"blank command", map[string]string{"command": "   "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Type: TypeCommandExecuted, Payload: tt.payload}
			if got := e.CommandType(); got != tt.want {
				t.Errorf("CommandType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	t.Parallel()

	app := Event{Type: TypeAppOpened, Payload: map[string]string{"app_name": "Chrome"}}
	if got := app.Subject(); got != "Chrome" {
		t.Errorf("app Subject() = %q, want Chrome", got)
	}

	cmd := Event{Type: TypeCommandExecuted, Payload: map[string]string{"command": "git status"}}
	if got := cmd.Subject(); got != "git" {
		t.Errorf("command Subject() = %q, want git", got)
	}

	turn := Event{Type: TypeConversationTurn, Payload: map[string]string{"chars": "80"}}
	if got := turn.Subject(); got != "" {
		t.Errorf("conversation Subject() = %q, want empty", got)
	}
}

func TestNew_DerivesDayPart(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	e := New(TypeAppOpened, ts, map[string]string{"app_name": "Slack"})
	if e.DayPart != Morning {
		t.Errorf("DayPart = %q, want morning", e.DayPart)
	}
	if e.TsMs != ts.UnixMilli() {
		t.Errorf("TsMs = %d, want %d", e.TsMs, ts.UnixMilli())
	}
	if !e.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", e.Time(), ts)
	}
}
