package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SegmentCompass/internal/domain"
)

// CurrentTier loads the tier assignment of a customer.
func (r *PostgresRepository) CurrentTier(ctx context.Context, customerID string) (domain.TierAssignment, bool, error) {
	row, err := r.queryRow(ctx, psql.
		Select("tier", "updated_at").
		From("tier_assignments").
		Where(sq.Eq{"customer_id": customerID}))
	if err != nil {
		return domain.TierAssignment{}, false, err
	}

	var label string
	a := domain.TierAssignment{CustomerID: customerID}
	err = row.Scan(&label, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TierAssignment{}, false, nil
	}
	if err != nil {
		return domain.TierAssignment{}, false, fmt.Errorf("scan tier: %w", err)
	}
	if a.Tier, err = domain.ParseTier(label); err != nil {
		return domain.TierAssignment{}, false, fmt.Errorf("customer %s: %w", customerID, err)
	}
	return a, true, nil
}

// SetTier upserts the tier assignment.
func (r *PostgresRepository) SetTier(ctx context.Context, a domain.TierAssignment) error {
	if !a.Tier.Valid() {
		return fmt.Errorf("invalid tier %d", int(a.Tier))
	}
	err := r.exec(ctx, psql.Insert("tier_assignments").
		Columns("customer_id", "tier", "updated_at").
		Values(a.CustomerID, a.Tier.String(), a.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (customer_id) DO UPDATE
              SET tier = EXCLUDED.tier,
                  updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return fmt.Errorf("upsert tier: %w", err)
	}
	return nil
}
