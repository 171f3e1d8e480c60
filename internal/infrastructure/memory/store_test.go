package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"SegmentCompass/internal/domain"
)

var t0 = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

func TestEventsOrderedAndDeduplicated(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	events := []domain.Event{
		{ID: "2", CustomerID: "c1", Type: domain.EventPurchase, Timestamp: t0.Add(time.Hour)},
		{ID: "1", CustomerID: "c1", Type: domain.EventPurchase, Timestamp: t0},
		{ID: "3", CustomerID: "c1", Type: domain.EventView, Timestamp: t0},
		{ID: "4", CustomerID: "c2", Type: domain.EventView, Timestamp: t0},
	}
	for _, ev := range events {
		if err := s.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}
	if err := s.RecordEvent(ctx, events[0]); !errors.Is(err, domain.ErrDuplicateEvent) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	got, _ := s.PurchaseEvents(ctx, "c1")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("unexpected purchases: %+v", got)
	}

	ids, _ := s.CustomersWithPurchases(ctx)
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("unexpected customers: %v", ids)
	}
}

func TestTransitionsMostRecentFirst(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	recs := []domain.TransitionRecord{
		{ID: "a", CustomerID: "c1", OldTier: domain.TierNew, NewTier: domain.TierBronze, Timestamp: t0},
		{ID: "b", CustomerID: "c1", OldTier: domain.TierBronze, NewTier: domain.TierSilver, Timestamp: t0.Add(time.Hour)},
		{ID: "c", CustomerID: "c1", OldTier: domain.TierSilver, NewTier: domain.TierBronze, Timestamp: t0.Add(time.Hour)},
	}
	for _, rec := range recs {
		if err := s.AppendTransition(ctx, rec); err != nil {
			t.Fatalf("AppendTransition: %v", err)
		}
	}

	got, _ := s.Transitions(ctx, "c1", 2)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}

	last, ok, _ := s.LastTransitionInto(ctx, "c1", domain.TierSilver, domain.TierGold)
	if !ok || last.ID != "b" {
		t.Fatalf("unexpected last upgrade: %+v", last)
	}
	if _, ok, _ := s.LastTransitionInto(ctx, "c1", domain.TierPlatinum); ok {
		t.Fatalf("no platinum entry expected")
	}
}
