package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SegmentCompass/internal/domain"
)

// RecordEvent inserts an immutable event row.
func (r *PostgresRepository) RecordEvent(ctx context.Context, ev domain.Event) error {
	err := r.exec(ctx, psql.Insert("customer_events").
		Columns("event_id", "customer_id", "event_type", "product_id", "event_time", "amount", "quantity", "tier_at_event").
		Values(ev.ID, ev.CustomerID, string(ev.Type), ev.ProductID, ev.Timestamp.UTC(), ev.Amount, ev.Quantity, ev.TierAtEvent.String()))
	if isUniqueViolation(err) {
		return fmt.Errorf("event %s: %w", ev.ID, domain.ErrDuplicateEvent)
	}
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// PurchaseEvents returns the full purchase history ordered by time.
func (r *PostgresRepository) PurchaseEvents(ctx context.Context, customerID string) ([]domain.Event, error) {
	rows, err := r.query(ctx, psql.
		Select("event_id", "customer_id", "event_type", "product_id", "event_time", "amount", "quantity", "tier_at_event").
		From("customer_events").
		Where(sq.Eq{"customer_id": customerID, "event_type": string(domain.EventPurchase)}).
		OrderBy("event_time ASC", "event_id ASC"))
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev        domain.Event
			eventType string
			tierLabel string
		)
		if err := rows.Scan(&ev.ID, &ev.CustomerID, &eventType, &ev.ProductID, &ev.Timestamp, &ev.Amount, &ev.Quantity, &tierLabel); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = domain.EventType(eventType)
		if t, err := domain.ParseTier(tierLabel); err == nil {
			ev.TierAtEvent = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}

// CustomersWithPurchases lists distinct customer ids with purchase history.
func (r *PostgresRepository) CustomersWithPurchases(ctx context.Context) ([]string, error) {
	rows, err := r.query(ctx, psql.
		Select("DISTINCT customer_id").
		From("customer_events").
		Where(sq.Eq{"event_type": string(domain.EventPurchase)}).
		OrderBy("customer_id"))
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}
