package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SegmentCompass/internal/domain"
)

var transitionColumns = []string{
	"id", "customer_id", "old_tier", "new_tier", "confidence",
	"event_count", "monetary_sum", "reason", "transition_time",
}

// AppendTransition inserts a ledger row. Rows are never updated.
func (r *PostgresRepository) AppendTransition(ctx context.Context, rec domain.TransitionRecord) error {
	err := r.exec(ctx, psql.Insert("tier_transitions").
		Columns(transitionColumns...).
		Values(rec.ID, rec.CustomerID, rec.OldTier.String(), rec.NewTier.String(), rec.Confidence,
			rec.EventCount, rec.MonetarySum, rec.Reason, rec.Timestamp.UTC()))
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// LastTransitionInto returns the newest ledger row whose new tier is in tiers.
func (r *PostgresRepository) LastTransitionInto(ctx context.Context, customerID string, tiers ...domain.Tier) (domain.TransitionRecord, bool, error) {
	if len(tiers) == 0 {
		return domain.TransitionRecord{}, false, nil
	}

	recs, err := r.selectTransitions(ctx, psql.
		Select(transitionColumns...).
		From("tier_transitions").
		Where(sq.Eq{"customer_id": customerID, "new_tier": tierLabels(tiers)}).
		OrderBy("transition_time DESC", "seq DESC").
		Limit(1))
	if err != nil {
		return domain.TransitionRecord{}, false, err
	}
	if len(recs) == 0 {
		return domain.TransitionRecord{}, false, nil
	}
	return recs[0], true, nil
}

// Transitions returns the ledger most-recent-first.
func (r *PostgresRepository) Transitions(ctx context.Context, customerID string, limit int) ([]domain.TransitionRecord, error) {
	b := psql.
		Select(transitionColumns...).
		From("tier_transitions").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("transition_time DESC", "seq DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.selectTransitions(ctx, b)
}

func (r *PostgresRepository) selectTransitions(ctx context.Context, b sq.SelectBuilder) ([]domain.TransitionRecord, error) {
	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var recs []domain.TransitionRecord
	for rows.Next() {
		var (
			rec           domain.TransitionRecord
			oldTier, newT string
		)
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &oldTier, &newT, &rec.Confidence,
			&rec.EventCount, &rec.MonetarySum, &rec.Reason, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if rec.OldTier, err = domain.ParseTier(oldTier); err != nil {
			return nil, fmt.Errorf("transition %s: %w", rec.ID, err)
		}
		if rec.NewTier, err = domain.ParseTier(newT); err != nil {
			return nil, fmt.Errorf("transition %s: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return recs, nil
}
