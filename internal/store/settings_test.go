package store

import (
	"context"
	"testing"
)

func TestSettings_AutoLearnDefaultsOff(t *testing.T) {
	t.Parallel()

	s := NewSettings(newTestDB(t).Handle())
	enabled, err := s.AutoLearn(context.Background())
	if err != nil {
		t.Fatalf("AutoLearn() error = %v", err)
	}
	if enabled {
		t.Error("auto-learn should default to off")
	}
}

func TestSettings_AutoLearnPersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettings(newTestDB(t).Handle())

	if err := s.SetAutoLearn(ctx, true); err != nil {
		t.Fatalf("SetAutoLearn(true) error = %v", err)
	}
	enabled, err := s.AutoLearn(ctx)
	if err != nil {
		t.Fatalf("AutoLearn() error = %v", err)
	}
	if !enabled {
		t.Error("auto-learn should be on after SetAutoLearn(true)")
	}

	if err := s.SetAutoLearn(ctx, false); err != nil {
		t.Fatalf("SetAutoLearn(false) error = %v", err)
	}
	enabled, err = s.AutoLearn(ctx)
	if err != nil {
		t.Fatalf("AutoLearn() error = %v", err)
	}
	if enabled {
		t.Error("auto-learn should be off after SetAutoLearn(false)")
	}
}

func TestSettings_MuteTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSettings(newTestDB(t).Handle())

	muted, err := s.TypeMuted(ctx, "optimization")
	if err != nil {
		t.Fatalf("TypeMuted() error = %v", err)
	}
	if muted {
		t.Error("type should not start muted")
	}

	if err := s.MuteType(ctx, "optimization"); err != nil {
		t.Fatalf("MuteType() error = %v", err)
	}
	if err := s.MuteType(ctx, "learning"); err != nil {
		t.Fatalf("MuteType() error = %v", err)
	}

	muted, err = s.TypeMuted(ctx, "optimization")
	if err != nil {
		t.Fatalf("TypeMuted() error = %v", err)
	}
	if !muted {
		t.Error("optimization should be muted")
	}

	types, err := s.MutedTypes(ctx)
	if err != nil {
		t.Fatalf("MutedTypes() error = %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("MutedTypes() = %v, want 2 entries", types)
	}

	if err := s.UnmuteType(ctx, "optimization"); err != nil {
		t.Fatalf("UnmuteType() error = %v", err)
	}
	muted, err = s.TypeMuted(ctx, "optimization")
	if err != nil {
		t.Fatalf("TypeMuted() error = %v", err)
	}
	if muted {
		t.Error("optimization should be unmuted")
	}
}
