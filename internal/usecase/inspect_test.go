package usecase

import (
	"context"
	"testing"

	"SegmentCompass/internal/domain"
)

func TestSnapshotDefaults(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	snap, err := NewInspector(h.store, h.store, h.store, h.store).Snapshot(context.Background(), "c1", 10)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if snap.HasFeatures || snap.Tier != domain.TierNew || snap.Profile.RiskFlag != domain.RiskUnknown {
		t.Fatalf("unexpected defaults: %+v", snap)
	}
	if snap.Features.S != domain.DefaultSatisfaction || len(snap.Transitions) != 0 {
		t.Fatalf("unexpected default features: %+v", snap.Features)
	}
}

func TestSnapshotAfterTransitions(t *testing.T) {
	t.Parallel()

	cls := &stubClassifier{}
	cls.set(domain.TierGold, 0.9)
	h := newHarness(t, cls, nil)

	h.seed(t, "c1", 1, 100, 0)
	if _, err := h.rec.Recompute(context.Background(), "c1"); err != nil {
		t.Fatalf("cold start: %v", err)
	}
	h.seed(t, "c1", 4, 100, 0)
	if _, err := h.rec.Recompute(context.Background(), "c1"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	insp := NewInspector(h.store, h.store, h.store, h.store)
	snap, err := insp.Snapshot(context.Background(), "c1", 1)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	if snap.Tier != domain.TierSilver || !snap.HasFeatures || snap.Features.F != 5 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Profile.RiskFlag != domain.RiskMedium {
		t.Fatalf("unexpected profile: %+v", snap.Profile)
	}
	if len(snap.Transitions) != 1 || snap.Transitions[0].NewTier != domain.TierSilver {
		t.Fatalf("expected newest transition only, got %+v", snap.Transitions)
	}

	full, _ := insp.Snapshot(context.Background(), "c1", 0)
	if len(full.Transitions) != 2 {
		t.Fatalf("expected full history, got %d", len(full.Transitions))
	}
}
