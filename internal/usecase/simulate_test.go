package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/infrastructure/memory"
	"SegmentCompass/internal/ports"
)

func newSimulator(st *memory.Store, cls ports.Classifier) *Simulator {
	return NewSimulator(SimulatorDeps{
		Features:          st,
		Tiers:             st,
		Ledger:            st,
		Classifier:        cls,
		ClassifierTimeout: 50 * time.Millisecond,
		Clock:             func() time.Time { return baseTime },
	})
}

func TestSimulateDoesNotPersist(t *testing.T) {
	t.Parallel()

	st := memory.NewStore()
	ctx := context.Background()
	stored := domain.FeatureVector{CustomerID: "c1", L: 2, R: 5, F: 4, M: 300, S: 0.4, UpdatedAt: baseTime}
	if err := st.UpsertFeatures(ctx, stored); err != nil {
		t.Fatalf("seed features: %v", err)
	}
	if err := st.SetTier(ctx, domain.TierAssignment{CustomerID: "c1", Tier: domain.TierBronze}); err != nil {
		t.Fatalf("seed tier: %v", err)
	}

	cls := &stubClassifier{}
	cls.set(domain.TierPlatinum, 0.92)

	sim, err := newSimulator(st, cls).Simulate(ctx, "c1", Delta{F: 3, M: 700, R: -10})
	if err != nil {
		t.Fatalf("Simulate error: %v", err)
	}
	if sim.Inputs.F != 7 || sim.Inputs.M != 1000 || sim.Inputs.R != 0 {
		t.Fatalf("unexpected adjusted inputs: %+v", sim.Inputs)
	}
	if sim.Prediction.Tier != domain.TierPlatinum || sim.Decision.To != domain.TierSilver || !sim.Decision.Accepted {
		t.Fatalf("unexpected simulation: %+v", sim)
	}

	got, _, _ := st.GetFeatures(ctx, "c1")
	if got != stored {
		t.Fatalf("stored features changed: %+v", got)
	}
	if a, _, _ := st.CurrentTier(ctx, "c1"); a.Tier != domain.TierBronze {
		t.Fatalf("tier changed by simulation")
	}
	if recs, _ := st.Transitions(ctx, "c1", 0); len(recs) != 0 {
		t.Fatalf("simulation wrote ledger entries")
	}
}

func TestSimulateUnknownCustomerUsesDefaults(t *testing.T) {
	t.Parallel()

	cls := &stubClassifier{}
	cls.set(domain.TierBronze, 0.8)

	sim, err := newSimulator(memory.NewStore(), cls).Simulate(context.Background(), "nobody", Delta{F: -2, M: -50})
	if err != nil {
		t.Fatalf("Simulate error: %v", err)
	}
	if sim.Inputs.F != 0 || sim.Inputs.M != 0 || sim.Inputs.S != domain.DefaultSatisfaction {
		t.Fatalf("expected clamped defaults, got %+v", sim.Inputs)
	}
	if sim.Current != domain.TierNew || sim.Decision.Reason != ReasonColdStart {
		t.Fatalf("unexpected decision %+v", sim.Decision)
	}
}

func TestSimulateReturnsClassifierErrors(t *testing.T) {
	t.Parallel()

	_, err := newSimulator(memory.NewStore(), nil).Simulate(context.Background(), "c1", Delta{})
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
