package habit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/runger/habitd/internal/detect"
	"github.com/runger/habitd/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.Handle(), Config{SuppressionDays: 14}, nil)
}

func chromeSlack(confidence float64, occurrences int) detect.Pattern {
	return detect.Pattern{
		Type:        detect.PatternSequential,
		Description: "Chrome → Slack",
		Occurrences: occurrences,
		Confidence:  confidence,
		Evidence:    detect.Evidence{Chain: []string{"Chrome", "Slack"}, SampleSize: occurrences},
		Detector:    "sequential",
	}
}

func TestUpsert_CreatesHabit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	h, created, err := s.Upsert(ctx, chromeSlack(0.8, 3), 1000)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("Upsert() created = false for a new pattern")
	}
	if h.ID == "" {
		t.Error("Upsert() did not assign an id")
	}
	if h.Feedback != FeedbackUnset {
		t.Errorf("Feedback = %q, want unset", h.Feedback)
	}
	if h.FirstDetectedMs != 1000 || h.LastConfirmedMs != 1000 {
		t.Errorf("timestamps = %d/%d, want 1000/1000", h.FirstDetectedMs, h.LastConfirmedMs)
	}
}

func TestUpsert_DeduplicatesOnRedetection(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	first, _, err := s.Upsert(ctx, chromeSlack(0.8, 3), 1000)
	if err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	second, created, err := s.Upsert(ctx, chromeSlack(0.85, 5), 2000)
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if created {
		t.Error("re-detection reported created = true")
	}
	if second.ID != first.ID {
		t.Errorf("re-detection produced a new habit id %s, want %s", second.ID, first.ID)
	}
	if second.Occurrences != 5 {
		t.Errorf("Occurrences = %d, want 5", second.Occurrences)
	}
	if second.LastConfirmedMs != 2000 {
		t.Errorf("LastConfirmedMs = %d, want 2000", second.LastConfirmedMs)
	}
	if second.FirstDetectedMs != 1000 {
		t.Errorf("FirstDetectedMs = %d, want 1000 (unchanged)", second.FirstDetectedMs)
	}

	habits, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(habits) != 1 {
		t.Errorf("List() returned %d habits, want 1", len(habits))
	}
}

func TestUpsert_ConfidenceNeverDecreases(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Upsert(ctx, chromeSlack(0.9, 5), 1000); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	h, _, err := s.Upsert(ctx, chromeSlack(0.7, 2), 2000)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if h.Confidence != 0.9 {
		t.Errorf("Confidence = %v after weaker re-detection, want 0.9", h.Confidence)
	}
}

func TestUpsert_ConfidenceCapped(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.Upsert(ctx, chromeSlack(0.9, 5), 1000); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	h, _, err := s.Upsert(ctx, chromeSlack(0.99, 9), 2000)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if h.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want cap 0.95", h.Confidence)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	p := chromeSlack(0.8, 3)
	first, _, err := s.Upsert(ctx, p, 1000)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	retry, created, err := s.Upsert(ctx, p, 1000)
	if err != nil {
		t.Fatalf("retried Upsert() error = %v", err)
	}
	if created {
		t.Error("retry reported created = true")
	}
	if retry.Confidence != first.Confidence || retry.Occurrences != first.Occurrences {
		t.Errorf("retry changed the habit: %+v vs %+v", retry, first)
	}
}

func TestRecordFeedback_NotHelpfulSuppresses(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	const nowMs = int64(1_000_000)

	h, _, err := s.Upsert(ctx, chromeSlack(0.8, 3), nowMs)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.RecordFeedback(ctx, h.ID, FeedbackNotHelpful, nowMs); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	got, err := s.Get(ctx, h.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Feedback != FeedbackNotHelpful {
		t.Errorf("Feedback = %q, want not_helpful", got.Feedback)
	}

	const dayMs = int64(24 * 60 * 60 * 1000)
	wantUntil := nowMs + 14*dayMs
	if got.SuppressedUntilMs != wantUntil {
		t.Errorf("SuppressedUntilMs = %d, want %d", got.SuppressedUntilMs, wantUntil)
	}
	if !got.Suppressed(nowMs + dayMs) {
		t.Error("habit should be suppressed one day after not_helpful")
	}
	if got.Suppressed(wantUntil + 1) {
		t.Error("habit should leave suppression after the cool-down")
	}
}

func TestRecordFeedback_UnknownHabit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.RecordFeedback(context.Background(), "no-such-id", FeedbackHelpful, 1000)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordFeedback() error = %v, want ErrNotFound", err)
	}
}

func TestListEligible(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	const nowMs = int64(1_000_000)

	strong, _, err := s.Upsert(ctx, chromeSlack(0.85, 5), nowMs)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	weak := detect.Pattern{
		Type:        detect.PatternFrequency,
		Description: "Frequent command: git",
		Occurrences: 4,
		Confidence:  0.65,
		Evidence:    detect.Evidence{Subject: "git", SubjectKind: "command"},
	}
	if _, _, err := s.Upsert(ctx, weak, nowMs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	suppressed := detect.Pattern{
		Type:        detect.PatternTimeBased,
		Description: "Peak activity in the morning",
		Occurrences: 8,
		Confidence:  0.8,
		Evidence:    detect.Evidence{DayPart: "morning"},
	}
	supHabit, _, err := s.Upsert(ctx, suppressed, nowMs)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.RecordFeedback(ctx, supHabit.ID, FeedbackNotHelpful, nowMs); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	eligible, err := s.ListEligible(ctx, 0.7, nowMs+1)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if len(eligible) != 1 {
		t.Fatalf("ListEligible() returned %d habits, want 1", len(eligible))
	}
	if eligible[0].ID != strong.ID {
		t.Errorf("eligible habit = %s, want %s", eligible[0].ID, strong.ID)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	h1, _, err := s.Upsert(ctx, chromeSlack(0.8, 3), 1000)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	freq := detect.Pattern{
		Type:        detect.PatternFrequency,
		Description: "Frequent command: git",
		Occurrences: 6,
		Confidence:  0.6,
		Evidence:    detect.Evidence{Subject: "git", SubjectKind: "command"},
	}
	if _, _, err := s.Upsert(ctx, freq, 1000); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.RecordFeedback(ctx, h1.ID, FeedbackHelpful, 2000); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	a, err := s.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if a.Total != 2 {
		t.Errorf("Total = %d, want 2", a.Total)
	}
	if a.ByFeedback["helpful"] != 1 || a.ByFeedback["unset"] != 1 {
		t.Errorf("ByFeedback = %v", a.ByFeedback)
	}
	if a.ByPatternType["sequential"] != 1 || a.ByPatternType["frequency"] != 1 {
		t.Errorf("ByPatternType = %v", a.ByPatternType)
	}
	if diff := a.AvgConfidence - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AvgConfidence = %v, want 0.7", a.AvgConfidence)
	}
}
