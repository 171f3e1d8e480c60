package ports

import (
	"context"
	"time"

	"SegmentCompass/internal/domain"
)

// EventSource reads the customer event stream.
type EventSource interface {
	// PurchaseEvents returns every purchase event of the customer ordered by time.
	PurchaseEvents(ctx context.Context, customerID string) ([]domain.Event, error)
	// CustomersWithPurchases lists customer ids that have at least one purchase.
	CustomersWithPurchases(ctx context.Context) ([]string, error)
}

// EventRecorder appends new events to the stream.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event domain.Event) error
}

// FeatureStore keeps one feature vector per customer.
type FeatureStore interface {
	GetFeatures(ctx context.Context, customerID string) (domain.FeatureVector, bool, error)
	UpsertFeatures(ctx context.Context, fv domain.FeatureVector) error
}

// TierStore keeps the current tier per customer.
type TierStore interface {
	CurrentTier(ctx context.Context, customerID string) (domain.TierAssignment, bool, error)
	SetTier(ctx context.Context, assignment domain.TierAssignment) error
}

// TransitionLedger is the append-only history of accepted tier changes.
type TransitionLedger interface {
	AppendTransition(ctx context.Context, rec domain.TransitionRecord) error
	// LastTransitionInto returns the most recent transition whose new tier is one of tiers.
	LastTransitionInto(ctx context.Context, customerID string, tiers ...domain.Tier) (domain.TransitionRecord, bool, error)
	// Transitions returns history most-recent-first; limit <= 0 means all.
	Transitions(ctx context.Context, customerID string, limit int) ([]domain.TransitionRecord, error)
}

// ProfileStore holds the denormalized customer profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, customerID string) (domain.Profile, bool, error)
	UpsertProfile(ctx context.Context, profile domain.Profile) error
}

// Transactor runs fn so that the writes it performs commit together.
// Stores without multi-record atomicity run fn directly.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Classifier maps a feature vector to a predicted tier and confidence.
type Classifier interface {
	Predict(ctx context.Context, fv domain.FeatureVector) (domain.Prediction, error)
}

// Locker provides per-key mutual exclusion. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// TransitionNotifier publishes accepted transitions to operators.
type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, rec domain.TransitionRecord) error
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
