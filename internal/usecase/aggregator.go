package usecase

import (
	"context"
	"fmt"
	"time"

	"SegmentCompass/internal/domain"
	"SegmentCompass/internal/ports"
)

// Aggregate summarizes the full purchase history of one customer.
type Aggregate struct {
	CustomerID   string
	EventCount   int
	MonetarySum  float64
	FirstEventAt time.Time
	LastEventAt  time.Time
}

// RecencyDays is the whole-day gap between now and the last purchase, never negative.
func (a Aggregate) RecencyDays(now time.Time) int {
	return daysBetween(a.LastEventAt, now)
}

// Aggregator reduces the purchase history into behavioral counters.
type Aggregator struct {
	events ports.EventSource
}

// NewAggregator wires the event source.
func NewAggregator(events ports.EventSource) *Aggregator {
	return &Aggregator{events: events}
}

// Aggregate scans the complete purchase history on every call.
// It returns domain.ErrNoEvents when the customer never purchased.
func (a *Aggregator) Aggregate(ctx context.Context, customerID string) (Aggregate, error) {
	if a.events == nil {
		return Aggregate{}, fmt.Errorf("event source is not configured")
	}

	events, err := a.events.PurchaseEvents(ctx, customerID)
	if err != nil {
		return Aggregate{}, fmt.Errorf("load purchase events: %w", err)
	}

	agg := Aggregate{CustomerID: customerID}
	for _, ev := range events {
		if ev.Type != domain.EventPurchase || ev.CustomerID != customerID {
			continue
		}
		agg.EventCount++
		agg.MonetarySum += ev.Amount
		if agg.FirstEventAt.IsZero() || ev.Timestamp.Before(agg.FirstEventAt) {
			agg.FirstEventAt = ev.Timestamp
		}
		if ev.Timestamp.After(agg.LastEventAt) {
			agg.LastEventAt = ev.Timestamp
		}
	}

	if agg.EventCount == 0 {
		return Aggregate{}, domain.ErrNoEvents
	}

	return agg, nil
}

func daysBetween(from, to time.Time) int {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
