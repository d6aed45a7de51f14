package detect

import (
	"math"
	"testing"
	"time"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/event"
)

func commandSeries(base time.Time, name string, n int) []event.Event {
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, cmdExec(base.Add(time.Duration(i)*time.Minute), name+" run"))
	}
	return out
}

func appSeries(base time.Time, name string, n int) []event.Event {
	out := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, appOpen(base.Add(time.Duration(i)*time.Minute), name))
	}
	return out
}

func TestFrequency_DetectsDominantCommand(t *testing.T) {
	t.Parallel()

	d := NewFrequency(config.Default().Detectors.Frequency)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	var events = commandSeries(base, "git", 6)
	events = append(events, commandSeries(base.Add(time.Hour), "npm", 4)...)

	patterns, err := d.Detect(events)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	// git (0.6) and npm (0.4) both exceed the 0.25 command threshold.
	if len(patterns) != 2 {
		t.Fatalf("Detect() returned %d patterns, want 2, got %v", len(patterns), descriptions(patterns))
	}

	var git *Pattern
	for i := range patterns {
		if patterns[i].Evidence.Subject == "git" {
			git = &patterns[i]
		}
	}
	if git == nil {
		t.Fatal("git pattern not found")
	}
	if git.Occurrences != 6 {
		t.Errorf("git Occurrences = %d, want 6", git.Occurrences)
	}
	// share 0.6 times scale 0.85 = 0.51
	if math.Abs(git.Confidence-0.51) > 1e-9 {
		t.Errorf("git Confidence = %v, want 0.51", git.Confidence)
	}
	if git.Evidence.SubjectKind != "command" {
		t.Errorf("SubjectKind = %q, want command", git.Evidence.SubjectKind)
	}
}

func TestFrequency_DetectsDominantApp(t *testing.T) {
	t.Parallel()

	d := NewFrequency(config.Default().Detectors.Frequency)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	evs := appSeries(base, "Chrome", 5)
	for i, name := range []string{"Slack", "VSCode", "Mail", "Terminal", "Music", "Notes", "Photos"} {
		evs = append(evs, appOpen(base.Add(time.Duration(i+20)*time.Minute), name))
	}

	patterns, err := d.Detect(evs)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("Detect() returned %d patterns, want 1: %v", len(patterns), descriptions(patterns))
	}
	p := patterns[0]
	if p.Evidence.Subject != "Chrome" || p.Evidence.SubjectKind != "app" {
		t.Errorf("Evidence = %+v, want Chrome/app", p.Evidence)
	}
	// 5 of 12 opens; 0.4167 share times 0.85 scale.
	if math.Abs(p.Confidence-(5.0/12.0)*0.85) > 1e-9 {
		t.Errorf("Confidence = %v", p.Confidence)
	}
}

func TestFrequency_BelowMinSamples(t *testing.T) {
	t.Parallel()

	d := NewFrequency(config.Default().Detectors.Frequency)
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// 4 commands and 9 app opens, each below its family's minimum.
	events := commandSeries(base, "git", 4)
	events = append(events, appSeries(base.Add(time.Hour), "Chrome", 9)...)

	patterns, err := d.Detect(events)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("Detect() returned %d patterns below min samples, want 0", len(patterns))
	}
}
