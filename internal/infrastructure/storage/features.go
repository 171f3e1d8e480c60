package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"SegmentCompass/internal/domain"
)

// GetFeatures loads the feature vector of a customer.
func (r *PostgresRepository) GetFeatures(ctx context.Context, customerID string) (domain.FeatureVector, bool, error) {
	row, err := r.queryRow(ctx, psql.
		Select("l", "r", "f", "m", "s", "updated_at").
		From("feature_vectors").
		Where(sq.Eq{"customer_id": customerID}))
	if err != nil {
		return domain.FeatureVector{}, false, err
	}

	fv := domain.FeatureVector{CustomerID: customerID}
	err = row.Scan(&fv.L, &fv.R, &fv.F, &fv.M, &fv.S, &fv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeatureVector{}, false, nil
	}
	if err != nil {
		return domain.FeatureVector{}, false, fmt.Errorf("scan features: %w", err)
	}
	return fv, true, nil
}

// UpsertFeatures overwrites the feature vector snapshot.
func (r *PostgresRepository) UpsertFeatures(ctx context.Context, fv domain.FeatureVector) error {
	err := r.exec(ctx, psql.Insert("feature_vectors").
		Columns("customer_id", "l", "r", "f", "m", "s", "updated_at").
		Values(fv.CustomerID, fv.L, fv.R, fv.F, fv.M, fv.S, fv.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (customer_id) DO UPDATE
              SET l = EXCLUDED.l,
                  r = EXCLUDED.r,
                  f = EXCLUDED.f,
                  m = EXCLUDED.m,
                  s = EXCLUDED.s,
                  updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return fmt.Errorf("upsert features: %w", err)
	}
	return nil
}
