package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SegmentCompass/internal/domain"
)

// GetProfile loads the denormalized customer profile.
func (r *PostgresRepository) GetProfile(ctx context.Context, customerID string) (domain.Profile, bool, error) {
	row, err := r.queryRow(ctx, psql.
		Select("tier", "risk_flag", "stability_score", "updated_at").
		From("customer_profiles").
		Where(sq.Eq{"customer_id": customerID}))
	if err != nil {
		return domain.Profile{}, false, err
	}

	var tier, risk string
	p := domain.Profile{CustomerID: customerID}
	err = row.Scan(&tier, &risk, &p.StabilityScore, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, false, nil
	}
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("scan profile: %w", err)
	}
	if p.Tier, err = domain.ParseTier(tier); err != nil {
		return domain.Profile{}, false, fmt.Errorf("customer %s: %w", customerID, err)
	}
	p.RiskFlag = domain.RiskFlag(risk)
	return p, true, nil
}

// UpsertProfile writes tier, risk flag and stability onto the profile.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, p domain.Profile) error {
	err := r.exec(ctx, psql.Insert("customer_profiles").
		Columns("customer_id", "tier", "risk_flag", "stability_score", "updated_at").
		Values(p.CustomerID, p.Tier.String(), string(p.RiskFlag), p.StabilityScore, p.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (customer_id) DO UPDATE
              SET tier = EXCLUDED.tier,
                  risk_flag = EXCLUDED.risk_flag,
                  stability_score = EXCLUDED.stability_score,
                  updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
