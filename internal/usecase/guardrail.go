package usecase

import (
	"time"

	"SegmentCompass/internal/domain"
)

// ColdStartConfidence is recorded for the New → Bronze transition.
const ColdStartConfidence = 1.0

// Thresholds parameterize the trigger gate and the guardrail state machine.
type Thresholds struct {
	MinConfidence        float64
	DowngradeRecencyDays int
	UpgradeCooldownDays  int
	MaxUpgradeStep       int
	TriggerEvery         int
	TriggerMonetary      float64
}

// DefaultThresholds returns the production guardrail settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:        0.7,
		DowngradeRecencyDays: 60,
		UpgradeCooldownDays:  30,
		MaxUpgradeStep:       1,
		TriggerEvery:         5,
		TriggerMonetary:      10000,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.MinConfidence <= 0 {
		t.MinConfidence = def.MinConfidence
	}
	if t.DowngradeRecencyDays <= 0 {
		t.DowngradeRecencyDays = def.DowngradeRecencyDays
	}
	if t.UpgradeCooldownDays <= 0 {
		t.UpgradeCooldownDays = def.UpgradeCooldownDays
	}
	if t.MaxUpgradeStep <= 0 {
		t.MaxUpgradeStep = def.MaxUpgradeStep
	}
	if t.TriggerEvery <= 0 {
		t.TriggerEvery = def.TriggerEvery
	}
	if t.TriggerMonetary <= 0 {
		t.TriggerMonetary = def.TriggerMonetary
	}
	return t
}

// DecisionReason names the branch of the state machine that produced a decision.
type DecisionReason string

const (
	ReasonColdStart      DecisionReason = "cold_start"
	ReasonUpgrade        DecisionReason = "upgrade"
	ReasonDowngrade      DecisionReason = "downgrade"
	ReasonLowConfidence  DecisionReason = "low_confidence"
	ReasonDowngradeGuard DecisionReason = "downgrade_guard"
	ReasonNoChange       DecisionReason = "no_change"

	// ReasonAwaitingActivity blocks a second upgrade until new purchases arrive.
	ReasonAwaitingActivity DecisionReason = "awaiting_activity"
)

// Decision is the outcome of one guardrail evaluation.
type Decision struct {
	Accepted   bool
	From       domain.Tier
	To         domain.Tier
	Predicted  domain.Tier
	Confidence float64
	Reason     DecisionReason
}

// GuardInput carries everything the policy needs for a non-cold-start decision.
type GuardInput struct {
	Old         domain.Tier
	Predicted   domain.Tier
	Confidence  float64
	RecencyDays int
	Now         time.Time
	// LastUpgradeAt is the time of the latest transition into Silver, Gold or
	// Platinum; zero when there is none.
	LastUpgradeAt time.Time
	// NoNewActivity is set when the latest accepted transition saw the same
	// purchase count as this evaluation.
	NoNewActivity bool
}

// GuardrailPolicy turns raw predictions into safe, single-step tier changes.
type GuardrailPolicy struct {
	th Thresholds
}

// NewGuardrailPolicy builds a policy; zero fields fall back to DefaultThresholds.
func NewGuardrailPolicy(th Thresholds) *GuardrailPolicy {
	return &GuardrailPolicy{th: th.withDefaults()}
}

// Thresholds exposes the effective settings.
func (g *GuardrailPolicy) Thresholds() Thresholds {
	return g.th
}

// ShouldEvaluate is the trigger gate in front of tier evaluation.
func (g *GuardrailPolicy) ShouldEvaluate(eventCount int, monetarySum float64) bool {
	return eventCount == 1 ||
		(eventCount > 0 && eventCount%g.th.TriggerEvery == 0) ||
		monetarySum >= g.th.TriggerMonetary
}

// ColdStart promotes a New customer to Bronze without consulting the classifier.
// ok is false when old is not New.
func (g *GuardrailPolicy) ColdStart(old domain.Tier) (Decision, bool) {
	if old != domain.TierNew {
		return Decision{}, false
	}
	return Decision{
		Accepted:   true,
		From:       domain.TierNew,
		To:         domain.TierBronze,
		Predicted:  domain.TierBronze,
		Confidence: ColdStartConfidence,
		Reason:     ReasonColdStart,
	}, true
}

// UpgradeTiers are the tiers whose most recent entry starts the downgrade cooldown.
func UpgradeTiers() []domain.Tier {
	return []domain.Tier{domain.TierSilver, domain.TierGold, domain.TierPlatinum}
}

// Decide runs the confidence gate, upgrade cap and downgrade protection.
func (g *GuardrailPolicy) Decide(in GuardInput) Decision {
	if d, ok := g.ColdStart(in.Old); ok {
		return d
	}

	d := Decision{
		From:       in.Old,
		To:         in.Old,
		Predicted:  in.Predicted,
		Confidence: in.Confidence,
	}

	if in.Confidence < g.th.MinConfidence {
		d.Reason = ReasonLowConfidence
		return d
	}

	oldRank, newRank := in.Old.Rank(), in.Predicted.Rank()

	switch {
	case newRank > oldRank:
		if in.NoNewActivity {
			d.Reason = ReasonAwaitingActivity
			return d
		}
		if newRank-oldRank > g.th.MaxUpgradeStep {
			newRank = oldRank + g.th.MaxUpgradeStep
		}
		d.To = domain.Tier(newRank)
		if !d.To.Valid() {
			d.To = domain.TierPlatinum
		}
		d.Reason = ReasonUpgrade
	case newRank < oldRank:
		if !g.downgradeAllowed(in) {
			d.Reason = ReasonDowngradeGuard
			return d
		}
		d.To = in.Old.Prev()
		d.Reason = ReasonDowngrade
	}

	if d.To == d.From {
		d.Reason = ReasonNoChange
		return d
	}

	d.Accepted = true
	return d
}

// downgradeAllowed requires inactivity past the recency threshold, a confident
// prediction and no upgrade inside the cooldown window. Bronze is the floor:
// a one-step downgrade from Bronze would land on New, which is reserved for
// customers that never purchased, and the next purchase would cold-start them
// straight back to Bronze.
func (g *GuardrailPolicy) downgradeAllowed(in GuardInput) bool {
	if in.Old.Prev() == domain.TierNew {
		return false
	}
	if in.RecencyDays <= g.th.DowngradeRecencyDays {
		return false
	}
	if in.Confidence < g.th.MinConfidence {
		return false
	}
	if in.LastUpgradeAt.IsZero() {
		return true
	}
	return daysBetween(in.LastUpgradeAt, in.Now) > g.th.UpgradeCooldownDays
}
