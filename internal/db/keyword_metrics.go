package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"kwintel/internal/models"
)

// GetMetrics returns the stored metrics for a keyword, or nil when the
// keyword has none.
func (d *DB) GetMetrics(ctx context.Context, keywordID string) (*models.KeywordMetrics, error) {
	var m models.KeywordMetrics
	err := d.Pool.QueryRow(ctx, `
		SELECT impressions, clicks, cost, conversions, conversion_value, landing_page_mismatch
		FROM keyword_metrics
		WHERE keyword_id = $1
	`, keywordID).Scan(&m.Impressions, &m.Clicks, &m.Cost, &m.Conversions, &m.ConversionValue, &m.LandingPageMismatch)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertMetrics stores the latest metrics for a keyword.
func (d *DB) UpsertMetrics(ctx context.Context, keywordID string, m models.KeywordMetrics) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO keyword_metrics (keyword_id, impressions, clicks, cost, conversions, conversion_value, landing_page_mismatch, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (keyword_id) DO UPDATE
		SET impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			cost = EXCLUDED.cost,
			conversions = EXCLUDED.conversions,
			conversion_value = EXCLUDED.conversion_value,
			landing_page_mismatch = EXCLUDED.landing_page_mismatch,
			updated_at = NOW()
	`, keywordID, m.Impressions, m.Clicks, m.Cost, m.Conversions, m.ConversionValue, m.LandingPageMismatch)
	return err
}
