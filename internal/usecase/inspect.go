package usecase

import (
	"context"
	"fmt"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

// Snapshot is the operator view of one customer.
type Snapshot struct {
	CustomerID  string
	Features    domain.FeatureVector
	HasFeatures bool
	Tier        domain.Tier
	Profile     domain.Profile
	Transitions []domain.TransitionRecord
}

// Inspector reads the current state of a customer without side effects.
type Inspector struct {
	features ports.FeatureStore
	tiers    ports.TierStore
	ledger   ports.TransitionLedger
	profiles ports.ProfileStore
}

// NewInspector wires the read-side stores.
func NewInspector(features ports.FeatureStore, tiers ports.TierStore, ledger ports.TransitionLedger, profiles ports.ProfileStore) *Inspector {
	return &Inspector{features: features, tiers: tiers, ledger: ledger, profiles: profiles}
}

// Snapshot returns features, tier, profile and up to historyLimit ledger
// entries (most recent first). Missing state falls back to documented defaults.
func (i *Inspector) Snapshot(ctx context.Context, customerID string, historyLimit int) (Snapshot, error) {
	snap := Snapshot{
		CustomerID: customerID,
		Features:   domain.DefaultFeatureVector(customerID),
		Tier:       domain.TierNew,
		Profile: domain.Profile{
			CustomerID: customerID,
			Tier:       domain.TierNew,
			RiskFlag:   domain.RiskUnknown,
		},
	}

	fv, ok, err := i.features.GetFeatures(ctx, customerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load features: %w", err)
	}
	if ok {
		snap.Features, snap.HasFeatures = fv, true
	}

	a, ok, err := i.tiers.CurrentTier(ctx, customerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load tier: %w", err)
	}
	if ok {
		snap.Tier = a.Tier
		snap.Profile.Tier = a.Tier
	}

	if i.profiles != nil {
		p, ok, err := i.profiles.GetProfile(ctx, customerID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load profile: %w", err)
		}
		if ok {
			snap.Profile = p
		}
	}

	if i.ledger != nil {
		snap.Transitions, err = i.ledger.Transitions(ctx, customerID, historyLimit)
		if err != nil {
			return Snapshot{}, fmt.Errorf("load transitions: %w", err)
		}
	}

	return snap, nil
}
