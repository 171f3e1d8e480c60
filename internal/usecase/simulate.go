package usecase

import (
	"context"
	"fmt"
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

// Delta is a what-if adjustment applied to a stored feature vector.
type Delta struct {
	F int
	M float64
	R int
}

// Simulation is the classifier view of an adjusted feature vector and the
// guardrail decision it would produce. Nothing is persisted.
type Simulation struct {
	CustomerID string
	Inputs     domain.FeatureVector
	Current    domain.Tier
	Prediction domain.Prediction
	Decision   Decision
}

// SimulatorDeps wires the read-side adapters used for what-if analysis.
type SimulatorDeps struct {
	Features   ports.FeatureStore
	Tiers      ports.TierStore
	Ledger     ports.TransitionLedger
	Classifier ports.Classifier
	Policy     *GuardrailPolicy

	ClassifierTimeout time.Duration
	Clock             func() time.Time
}

// Simulator answers "what tier would this customer get if ..." questions.
type Simulator struct {
	features          ports.FeatureStore
	tiers             ports.TierStore
	ledger            ports.TransitionLedger
	classifier        ports.Classifier
	policy            *GuardrailPolicy
	classifierTimeout time.Duration
	now               func() time.Time
}

// NewSimulator constructs a read-only simulator.
func NewSimulator(deps SimulatorDeps) *Simulator {
	s := &Simulator{
		features:          deps.Features,
		tiers:             deps.Tiers,
		ledger:            deps.Ledger,
		classifier:        deps.Classifier,
		policy:            deps.Policy,
		classifierTimeout: deps.ClassifierTimeout,
		now:               deps.Clock,
	}
	if s.policy == nil {
		s.policy = NewGuardrailPolicy(DefaultThresholds())
	}
	if s.classifierTimeout <= 0 {
		s.classifierTimeout = defaultClassifierTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Simulate applies delta to the stored vector (clamped at zero) and scores it.
// Classifier failures are returned to the caller.
func (s *Simulator) Simulate(ctx context.Context, customerID string, delta Delta) (Simulation, error) {
	if s.features == nil || s.tiers == nil {
		return Simulation{}, fmt.Errorf("simulator stores are not configured")
	}

	fv, found, err := s.features.GetFeatures(ctx, customerID)
	if err != nil {
		return Simulation{}, fmt.Errorf("load features %s: %w", customerID, err)
	}
	if !found {
		fv = domain.DefaultFeatureVector(customerID)
	}

	fv.F = max(0, fv.F+delta.F)
	fv.M = max(0, fv.M+delta.M)
	fv.R = max(0, fv.R+delta.R)

	current := domain.TierNew
	if a, ok, err := s.tiers.CurrentTier(ctx, customerID); err != nil {
		return Simulation{}, fmt.Errorf("load tier %s: %w", customerID, err)
	} else if ok {
		current = a.Tier
	}

	pred, err := classify(ctx, s.classifier, s.classifierTimeout, fv)
	if err != nil {
		return Simulation{}, err
	}

	in := GuardInput{
		Old:         current,
		Predicted:   pred.Tier,
		Confidence:  pred.Confidence,
		RecencyDays: fv.R,
		Now:         s.now(),
	}
	if s.ledger != nil {
		last, ok, err := s.ledger.LastTransitionInto(ctx, customerID, UpgradeTiers()...)
		if err != nil {
			return Simulation{}, fmt.Errorf("load last upgrade %s: %w", customerID, err)
		}
		if ok {
			in.LastUpgradeAt = last.Timestamp
		}
	}

	return Simulation{
		CustomerID: customerID,
		Inputs:     fv,
		Current:    current,
		Prediction: pred,
		Decision:   s.policy.Decide(in),
	}, nil
}
