package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SegmentCompass/internal/domain"
)

type sliceSource []domain.Event

func (s sliceSource) PurchaseEvents(_ context.Context, customerID string) ([]domain.Event, error) {
	return s, nil
}

func (s sliceSource) CustomersWithPurchases(context.Context) ([]string, error) {
	return nil, nil
}

func TestAggregateFullHistory(t *testing.T) {
	t.Parallel()

	day := 24 * time.Hour
	src := sliceSource{
		{ID: "1", CustomerID: "c1", Type: domain.EventPurchase, Timestamp: baseTime.Add(-40 * day), Amount: 10},
		{ID: "2", CustomerID: "c1", Type: domain.EventView, Timestamp: baseTime.Add(-1 * day), Amount: 999},
		{ID: "3", CustomerID: "c2", Type: domain.EventPurchase, Timestamp: baseTime, Amount: 999},
		{ID: "4", CustomerID: "c1", Type: domain.EventPurchase, Timestamp: baseTime.Add(-3*day - time.Hour), Amount: 32.5},
	}

	agg, err := NewAggregator(src).Aggregate(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if agg.EventCount != 2 || agg.MonetarySum != 42.5 {
		t.Fatalf("unexpected counters: %+v", agg)
	}
	if !agg.FirstEventAt.Equal(baseTime.Add(-40 * day)) {
		t.Fatalf("unexpected first event %s", agg.FirstEventAt)
	}
	if got := agg.RecencyDays(baseTime); got != 3 {
		t.Fatalf("RecencyDays = %d, want 3", got)
	}
}

func TestAggregateNoEvents(t *testing.T) {
	t.Parallel()

	_, err := NewAggregator(sliceSource{}).Aggregate(context.Background(), "c1")
	if !errors.Is(err, domain.ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents, got %v", err)
	}
}

func TestRecencyNeverNegative(t *testing.T) {
	t.Parallel()

	agg := Aggregate{LastEventAt: baseTime.Add(time.Hour)}
	if got := agg.RecencyDays(baseTime); got != 0 {
		t.Fatalf("future event recency = %d", got)
	}
}
