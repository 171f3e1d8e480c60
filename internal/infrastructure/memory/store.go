// Package memory provides thread-safe in-memory implementations of every
// storage port. It backs the development profile and the use case tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

// Store keeps events, feature vectors, tiers, ledger and profiles in maps.
type Store struct {
	mu          sync.RWMutex
	events      map[string][]domain.Event
	eventIDs    map[string]struct{}
	features    map[string]domain.FeatureVector
	tiers       map[string]domain.TierAssignment
	transitions map[string][]domain.TransitionRecord
	profiles    map[string]domain.Profile
}

var (
	_ ports.EventSource      = (*Store)(nil)
	_ ports.EventRecorder    = (*Store)(nil)
	_ ports.FeatureStore     = (*Store)(nil)
	_ ports.TierStore        = (*Store)(nil)
	_ ports.TransitionLedger = (*Store)(nil)
	_ ports.ProfileStore     = (*Store)(nil)
	_ ports.Transactor       = (*Store)(nil)
)

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		events:      map[string][]domain.Event{},
		eventIDs:    map[string]struct{}{},
		features:    map[string]domain.FeatureVector{},
		tiers:       map[string]domain.TierAssignment{},
		transitions: map[string][]domain.TransitionRecord{},
		profiles:    map[string]domain.Profile{},
	}
}

// RecordEvent appends an event; duplicate ids are rejected.
func (s *Store) RecordEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.eventIDs[ev.ID]; dup {
		return fmt.Errorf("event %s: %w", ev.ID, domain.ErrDuplicateEvent)
	}
	s.eventIDs[ev.ID] = struct{}{}
	s.events[ev.CustomerID] = append(s.events[ev.CustomerID], ev)
	return nil
}

// PurchaseEvents returns a copy of the purchase history ordered by time.
func (s *Store) PurchaseEvents(_ context.Context, customerID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0, len(s.events[customerID]))
	for _, ev := range s.events[customerID] {
		if ev.Type == domain.EventPurchase {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// CustomersWithPurchases lists customers with purchase history in id order.
func (s *Store) CustomersWithPurchases(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, evs := range s.events {
		if slices.ContainsFunc(evs, func(ev domain.Event) bool { return ev.Type == domain.EventPurchase }) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetFeatures returns the stored vector.
func (s *Store) GetFeatures(_ context.Context, customerID string) (domain.FeatureVector, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fv, ok := s.features[customerID]
	return fv, ok, nil
}

// UpsertFeatures overwrites the vector of fv.CustomerID.
func (s *Store) UpsertFeatures(_ context.Context, fv domain.FeatureVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features[fv.CustomerID] = fv
	return nil
}

// CurrentTier returns the stored assignment.
func (s *Store) CurrentTier(_ context.Context, customerID string) (domain.TierAssignment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.tiers[customerID]
	return a, ok, nil
}

// SetTier overwrites the assignment of a customer.
func (s *Store) SetTier(_ context.Context, a domain.TierAssignment) error {
	if !a.Tier.Valid() {
		return fmt.Errorf("invalid tier %d", int(a.Tier))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[a.CustomerID] = a
	return nil
}

// AppendTransition adds a ledger entry.
func (s *Store) AppendTransition(_ context.Context, rec domain.TransitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[rec.CustomerID] = append(s.transitions[rec.CustomerID], rec)
	return nil
}

// LastTransitionInto scans the ledger tail for the newest entry into one of tiers.
func (s *Store) LastTransitionInto(_ context.Context, customerID string, tiers ...domain.Tier) (domain.TransitionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  domain.TransitionRecord
		found bool
	)
	for _, rec := range s.transitions[customerID] {
		if !slices.Contains(tiers, rec.NewTier) {
			continue
		}
		if !found || !rec.Timestamp.Before(best.Timestamp) {
			best, found = rec, true
		}
	}
	return best, found, nil
}

// Transitions returns the ledger most-recent-first.
func (s *Store) Transitions(_ context.Context, customerID string, limit int) ([]domain.TransitionRecord, error) {
	s.mu.RLock()
	recs := slices.Clone(s.transitions[customerID])
	s.mu.RUnlock()

	// Append order breaks timestamp ties.
	slices.Reverse(recs)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.After(recs[j].Timestamp) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// GetProfile returns the stored profile.
func (s *Store) GetProfile(_ context.Context, customerID string) (domain.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[customerID]
	return p, ok, nil
}

// UpsertProfile overwrites the profile of a customer.
func (s *Store) UpsertProfile(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.CustomerID] = p
	return nil
}

// InTx runs fn directly; writes land in call order and are not rolled back when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
