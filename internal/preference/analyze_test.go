package preference

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/runger/habitd/internal/event"
)

func appOpen(ts time.Time, app string) event.Event {
	return event.New(event.TypeAppOpened, ts, map[string]string{"app_name": app})
}

func cmdExec(ts time.Time, command string) event.Event {
	return event.New(event.TypeCommandExecuted, ts, map[string]string{"command": command})
}

func turn(ts time.Time, chars string) event.Event {
	return event.New(event.TypeConversationTurn, ts, map[string]string{"chars": chars})
}

func candidateFor(t *testing.T, candidates []Candidate, key string) Candidate {
	t.Helper()
	for _, c := range candidates {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("no candidate for key %q in %+v", key, candidates)
	return Candidate{}
}

func hasCandidate(candidates []Candidate, key string) bool {
	for _, c := range candidates {
		if c.Key == key {
			return true
		}
	}
	return false
}

func TestInferPreferredApp(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 6; i++ {
		events = append(events, appOpen(base.Add(time.Duration(i)*time.Minute), "Chrome"))
	}
	for i := 0; i < 4; i++ {
		events = append(events, appOpen(base.Add(time.Duration(10+i)*time.Minute), "Slack"))
	}

	c, ok := inferPreferredApp(events)
	if !ok {
		t.Fatal("inferPreferredApp() found nothing")
	}
	if c.Value != "Chrome" {
		t.Errorf("Value = %q, want Chrome", c.Value)
	}
	// share 0.6 gives confidence 0.5 + 0.6 clamped to 0.95.
	if math.Abs(c.Confidence-0.95) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.95", c.Confidence)
	}
	if c.Category != CategoryUI {
		t.Errorf("Category = %q, want ui", c.Category)
	}
}

func TestInferPreferredApp_NoDominance(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i, app := range []string{"a", "b", "c", "d", "e"} {
		events = append(events, appOpen(base.Add(time.Duration(i)*time.Minute), app))
	}
	// Five opens, each at share 0.2, below the floor.
	if _, ok := inferPreferredApp(events); ok {
		t.Error("inferPreferredApp() reported a preference without a dominant app")
	}

	if _, ok := inferPreferredApp(events[:4]); ok {
		t.Error("inferPreferredApp() ran on too few events")
	}
}

func TestInferPeakActivityTime(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 3, 19, 0, 0, 0, time.UTC)

	var events []event.Event
	for i := 0; i < 7; i++ {
		events = append(events, appOpen(morning.Add(time.Duration(i)*time.Minute), "Chrome"))
	}
	for i := 0; i < 3; i++ {
		events = append(events, appOpen(evening.Add(time.Duration(i)*time.Minute), "Chrome"))
	}

	c, ok := inferPeakActivityTime(events)
	if !ok {
		t.Fatal("inferPeakActivityTime() found nothing")
	}
	if c.Value != string(event.Morning) {
		t.Errorf("Value = %q, want morning", c.Value)
	}
	// share 0.7 gives confidence 0.4 + 0.7 clamped to 0.9.
	if math.Abs(c.Confidence-0.9) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.9", c.Confidence)
	}

	if _, ok := inferPeakActivityTime(events[:4]); ok {
		t.Error("inferPeakActivityTime() ran on too few events")
	}
}

func TestInferResponseStyle(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		chars string
		want  string
	}{
		{"brief", "30", "brief"},
		{"moderate", "120", "moderate"},
		{"detailed", "500", "detailed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []event.Event
			for i := 0; i < 6; i++ {
				events = append(events, turn(base.Add(time.Duration(i)*time.Minute), tt.chars))
			}
			c, ok := inferResponseStyle(events)
			if !ok {
				t.Fatal("inferResponseStyle() found nothing")
			}
			if c.Value != tt.want {
				t.Errorf("Value = %q, want %q", c.Value, tt.want)
			}
			// 6 samples give confidence 0.5 + 6/40 = 0.65.
			if math.Abs(c.Confidence-0.65) > 1e-9 {
				t.Errorf("Confidence = %v, want 0.65", c.Confidence)
			}
		})
	}
}

func TestInferResponseStyle_IgnoresBadPayloads(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	events := []event.Event{
		turn(base, "30"),
		turn(base, "not-a-number"),
		turn(base, "0"),
		turn(base, "30"),
		turn(base, "30"),
		turn(base, "30"),
	}
	// Only four usable samples, below the minimum.
	if _, ok := inferResponseStyle(events); ok {
		t.Error("inferResponseStyle() counted unusable turns")
	}
}

func TestInferPreferredCommandFamily(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 4; i++ {
		events = append(events, cmdExec(base.Add(time.Duration(i)*time.Minute), "git status"))
	}
	events = append(events,
		cmdExec(base.Add(10*time.Minute), "npm install"),
		cmdExec(base.Add(11*time.Minute), "ls -la"),
	)

	c, ok := inferPreferredCommandFamily(events)
	if !ok {
		t.Fatal("inferPreferredCommandFamily() found nothing")
	}
	if c.Value != "git" {
		t.Errorf("Value = %q, want git", c.Value)
	}
	// share 4/6 gives confidence 0.5 + 0.667 clamped to 0.85.
	if math.Abs(c.Confidence-0.85) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.85", c.Confidence)
	}
	if c.Category != CategoryAutomation {
		t.Errorf("Category = %q, want automation", c.Category)
	}
}

func TestAnalyze_PersistsConfidentCandidates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := NewAnalyzer(s, nil)
	ctx := context.Background()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 6; i++ {
		events = append(events, appOpen(base.Add(time.Duration(i)*time.Minute), "Chrome"))
	}

	candidates, err := a.Analyze(ctx, events, 5000)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !hasCandidate(candidates, KeyPreferredApp) {
		t.Fatal("Analyze() missed the preferred-app candidate")
	}
	app := candidateFor(t, candidates, KeyPreferredApp)
	if app.Value != "Chrome" {
		t.Errorf("candidate value = %q, want Chrome", app.Value)
	}

	stored, err := s.Get(ctx, CategoryUI, KeyPreferredApp)
	if err != nil {
		t.Fatalf("preferred app was not persisted: %v", err)
	}
	if stored.Source != SourceInferred {
		t.Errorf("Source = %q, want inferred", stored.Source)
	}
	if stored.Value != "Chrome" {
		t.Errorf("stored value = %q, want Chrome", stored.Value)
	}

	// Peak time also fires on six events, all morning: share 1.0, confidence 0.9.
	if _, err := s.Get(ctx, CategorySchedule, KeyPeakActivityTime); err != nil {
		t.Errorf("peak activity time was not persisted: %v", err)
	}
}

func TestAnalyze_RespectsManualPreference(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := NewAnalyzer(s, nil)
	ctx := context.Background()

	if _, err := s.Set(ctx, Preference{
		Category: CategoryUI, Key: KeyPreferredApp, Value: "Firefox",
		Source: SourceManual, Confidence: 1.0,
	}, 1000); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 6; i++ {
		events = append(events, appOpen(base.Add(time.Duration(i)*time.Minute), "Chrome"))
	}
	if _, err := a.Analyze(ctx, events, 5000); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	stored, err := s.Get(ctx, CategoryUI, KeyPreferredApp)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Value != "Firefox" || stored.Source != SourceManual {
		t.Errorf("analysis clobbered the manual preference: %+v", stored)
	}
}

func TestAnalyze_EmptyWindow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	a := NewAnalyzer(s, nil)

	candidates, err := a.Analyze(context.Background(), nil, 1000)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Analyze(nil) = %d candidates, want 0", len(candidates))
	}
}

func TestTopEntry_Deterministic(t *testing.T) {
	t.Parallel()

	counts := map[string]int{"b": 3, "a": 3, "c": 1}
	key, n := topEntry(counts)
	if key != "a" || n != 3 {
		t.Errorf("topEntry() = %q/%d, want a/3 (lexical tie-break)", key, n)
	}
}
