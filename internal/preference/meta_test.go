package preference

import (
	"context"
	"math"
	"testing"
)

func metaByKind(patterns []MetaPattern) map[string]MetaPattern {
	out := make(map[string]MetaPattern)
	for _, p := range patterns {
		out[p.Kind] = p
	}
	return out
}

func TestDetectMeta_UnstablePreference(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i, value := range []string{"Chrome", "Firefox", "Chrome"} {
		if _, err := s.Set(ctx, Preference{
			Category: "ui", Key: "preferred_app", Value: value,
			Source: SourceManual, Confidence: 1.0,
		}, int64(1000+i)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	patterns, err := s.DetectMeta(ctx, 0)
	if err != nil {
		t.Fatalf("DetectMeta() error = %v", err)
	}
	unstable, ok := metaByKind(patterns)["unstable_preference"]
	if !ok {
		t.Fatalf("no unstable_preference in %+v", patterns)
	}
	// 3 changes give confidence 0.4 + 0.3.
	if math.Abs(unstable.Confidence-0.7) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.7", unstable.Confidence)
	}

	// Changes older than the window do not count.
	patterns, err = s.DetectMeta(ctx, 5000)
	if err != nil {
		t.Fatalf("DetectMeta() error = %v", err)
	}
	if _, ok := metaByKind(patterns)["unstable_preference"]; ok {
		t.Error("DetectMeta() counted history outside the window")
	}
}

func TestDetectMeta_CategoryAffinity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, p := range []Preference{
		{Category: "ui", Key: "theme", Value: "dark", Source: SourceManual, Confidence: 0.9},
		{Category: "ui", Key: "preferred_app", Value: "Chrome", Source: SourceManual, Confidence: 0.8},
		{Category: "schedule", Key: "peak_activity_time", Value: "morning", Source: SourceManual, Confidence: 0.5},
	} {
		if _, err := s.Set(ctx, p, 1000); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	patterns, err := s.DetectMeta(ctx, 0)
	if err != nil {
		t.Fatalf("DetectMeta() error = %v", err)
	}
	affinity, ok := metaByKind(patterns)["category_affinity"]
	if !ok {
		t.Fatalf("no category_affinity in %+v", patterns)
	}
	// Only the ui category qualifies; schedule has a single entry.
	if got := affinity.Description; got == "" {
		t.Error("empty affinity description")
	}
	for _, p := range patterns {
		if p.Kind == "category_affinity" && p.Confidence < 0.7 {
			t.Errorf("affinity confidence = %v below the floor", p.Confidence)
		}
	}
}

func TestDetectMeta_MostlyInferred(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i, p := range []Preference{
		{Category: "ui", Key: "a", Value: "1", Source: SourceInferred, Confidence: 0.6},
		{Category: "ui", Key: "b", Value: "2", Source: SourceInferred, Confidence: 0.6},
		{Category: "ui", Key: "c", Value: "3", Source: SourceInferred, Confidence: 0.6},
		{Category: "ui", Key: "d", Value: "4", Source: SourceManual, Confidence: 1.0},
	} {
		if _, err := s.Set(ctx, p, int64(1000+i)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	patterns, err := s.DetectMeta(ctx, 0)
	if err != nil {
		t.Fatalf("DetectMeta() error = %v", err)
	}
	inferred, ok := metaByKind(patterns)["mostly_inferred"]
	if !ok {
		t.Fatalf("no mostly_inferred in %+v", patterns)
	}
	if inferred.Confidence != 0.75 {
		t.Errorf("Confidence = %v, want the inferred ratio 0.75", inferred.Confidence)
	}
}

func TestDetectMeta_EmptyStore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	patterns, err := s.DetectMeta(context.Background(), 0)
	if err != nil {
		t.Fatalf("DetectMeta() error = %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("DetectMeta(empty) = %+v, want none", patterns)
	}
}
