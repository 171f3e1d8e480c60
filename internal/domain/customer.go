package domain

import (
	"fmt"
	"time"
)

// EventType classifies raw customer events. Only purchases feed the tier engine.
type EventType string

const (
	EventPurchase EventType = "purchase"
	EventView     EventType = "view"
	EventRefund   EventType = "refund"
)

// Event is an immutable record from the customer event stream.
type Event struct {
	ID          string
	CustomerID  string
	Type        EventType
	ProductID   string
	Timestamp   time.Time
	Amount      float64
	Quantity    int
	TierAtEvent Tier
}

// Validate checks the structural invariants of a recorded event.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: event id is empty", ErrInvalidEvent)
	}
	if e.CustomerID == "" {
		return fmt.Errorf("%w: event %s: customer id is empty", ErrInvalidEvent, e.ID)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: event %s: type is empty", ErrInvalidEvent, e.ID)
	}
	if e.Amount < 0 {
		return fmt.Errorf("%w: event %s: negative amount %.2f", ErrInvalidEvent, e.ID, e.Amount)
	}
	if e.Quantity < 1 {
		return fmt.Errorf("%w: event %s: quantity must be at least 1", ErrInvalidEvent, e.ID)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: event %s: timestamp is zero", ErrInvalidEvent, e.ID)
	}
	return nil
}

// Default values for a customer that has no stored feature vector yet.
const (
	DefaultLength       = 0
	DefaultSatisfaction = 0.2
)

// FeatureVector is the LRFMS snapshot of a customer.
// L and S are carried forward; R, F and M are rebuilt from the purchase history.
type FeatureVector struct {
	CustomerID string
	L          int
	R          int
	F          int
	M          float64
	S          float64
	UpdatedAt  time.Time
}

// DefaultFeatureVector is substituted when no vector has been stored yet.
func DefaultFeatureVector(customerID string) FeatureVector {
	return FeatureVector{
		CustomerID: customerID,
		L:          DefaultLength,
		S:          DefaultSatisfaction,
	}
}

// Values returns the classifier input in L, R, F, M, S order.
func (f FeatureVector) Values() [5]float64 {
	return [5]float64{float64(f.L), float64(f.R), float64(f.F), f.M, f.S}
}

// TierAssignment is the current tier of a customer.
type TierAssignment struct {
	CustomerID string
	Tier       Tier
	UpdatedAt  time.Time
}

// TransitionRecord is an append-only ledger entry for an accepted tier change.
type TransitionRecord struct {
	ID          string
	CustomerID  string
	OldTier     Tier
	NewTier     Tier
	Confidence  float64
	EventCount  int
	MonetarySum float64
	Reason      string
	Timestamp   time.Time
}

// Prediction is the classifier output for one feature vector.
type Prediction struct {
	Tier         Tier
	Confidence   float64
	ModelVersion string
}

// Validate rejects labels outside the enum and confidences outside [0,1].
func (p Prediction) Validate() error {
	if !p.Tier.Valid() {
		return fmt.Errorf("%w: tier %d", ErrInvalidPrediction, int(p.Tier))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.4f", ErrInvalidPrediction, p.Confidence)
	}
	return nil
}
