package httpapi

import (
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/usecase"
)

type purchaseRequest struct {
	EventID   string     `json:"event_id"`
	ProductID string     `json:"product_id"`
	Amount    float64    `json:"amount"`
	Quantity  int        `json:"quantity"`
	Timestamp *time.Time `json:"timestamp"`
}

type simulateRequest struct {
	DeltaF int     `json:"dF"`
	DeltaM float64 `json:"dM"`
	DeltaR int     `json:"dR"`
}

type featuresDTO struct {
	L         int       `json:"L"`
	R         int       `json:"R"`
	F         int       `json:"F"`
	M         float64   `json:"M"`
	S         float64   `json:"S"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type decisionDTO struct {
	Accepted   bool        `json:"accepted"`
	From       domain.Tier `json:"from"`
	To         domain.Tier `json:"to"`
	Predicted  domain.Tier `json:"predicted"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
}

type transitionDTO struct {
	ID          string      `json:"id"`
	OldTier     domain.Tier `json:"old_tier"`
	NewTier     domain.Tier `json:"new_tier"`
	Confidence  float64     `json:"confidence"`
	EventCount  int         `json:"event_count"`
	MonetarySum float64     `json:"monetary_sum"`
	Reason      string      `json:"reason"`
	Timestamp   time.Time   `json:"transition_time"`
}

type outcomeDTO struct {
	CustomerID string         `json:"customer_id"`
	Features   featuresDTO    `json:"features"`
	Skipped    string         `json:"skipped,omitempty"`
	Evaluated  bool           `json:"evaluated"`
	Decision   *decisionDTO   `json:"decision,omitempty"`
	Transition *transitionDTO `json:"transition,omitempty"`
}

type profileDTO struct {
	Tier           domain.Tier `json:"tier"`
	RiskFlag       string      `json:"risk_flag"`
	StabilityScore float64     `json:"stability_score"`
}

type snapshotDTO struct {
	CustomerID  string          `json:"customer_id"`
	Tier        domain.Tier     `json:"tier"`
	Features    featuresDTO     `json:"lrfms"`
	Profile     profileDTO      `json:"profile"`
	Transitions []transitionDTO `json:"transitions"`
}

type simulationDTO struct {
	CustomerID   string      `json:"customer_id"`
	Inputs       featuresDTO `json:"inputs"`
	Current      domain.Tier `json:"current_tier"`
	Tier         domain.Tier `json:"tier"`
	Confidence   float64     `json:"confidence"`
	ModelVersion string      `json:"model_version,omitempty"`
	Decision     decisionDTO `json:"decision"`
}

type sweepDTO struct {
	Customers   int `json:"customers"`
	Evaluated   int `json:"evaluated"`
	Transitions int `json:"transitions"`
	Failures    int `json:"failures"`
}

func toFeatures(fv domain.FeatureVector) featuresDTO {
	return featuresDTO{L: fv.L, R: fv.R, F: fv.F, M: fv.M, S: fv.S, UpdatedAt: fv.UpdatedAt}
}

func toDecision(d usecase.Decision) decisionDTO {
	return decisionDTO{
		Accepted:   d.Accepted,
		From:       d.From,
		To:         d.To,
		Predicted:  d.Predicted,
		Confidence: d.Confidence,
		Reason:     string(d.Reason),
	}
}

func toTransition(rec domain.TransitionRecord) transitionDTO {
	return transitionDTO{
		ID:          rec.ID,
		OldTier:     rec.OldTier,
		NewTier:     rec.NewTier,
		Confidence:  rec.Confidence,
		EventCount:  rec.EventCount,
		MonetarySum: rec.MonetarySum,
		Reason:      rec.Reason,
		Timestamp:   rec.Timestamp,
	}
}

func toOutcome(out usecase.Outcome) outcomeDTO {
	dto := outcomeDTO{
		CustomerID: out.CustomerID,
		Features:   toFeatures(out.Features),
		Skipped:    string(out.Skipped),
		Evaluated:  out.Evaluated,
	}
	if out.Evaluated {
		d := toDecision(out.Decision)
		dto.Decision = &d
	}
	if out.Transition != nil {
		t := toTransition(*out.Transition)
		dto.Transition = &t
	}
	return dto
}

func toSnapshot(s usecase.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		CustomerID: s.CustomerID,
		Tier:       s.Tier,
		Features:   toFeatures(s.Features),
		Profile: profileDTO{
			Tier:           s.Profile.Tier,
			RiskFlag:       string(s.Profile.RiskFlag),
			StabilityScore: s.Profile.StabilityScore,
		},
		Transitions: make([]transitionDTO, 0, len(s.Transitions)),
	}
	for _, rec := range s.Transitions {
		dto.Transitions = append(dto.Transitions, toTransition(rec))
	}
	return dto
}
