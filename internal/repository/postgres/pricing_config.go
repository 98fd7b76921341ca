package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// PricingConfigRepository is a PostgreSQL implementation of repository.PricingConfigRepository.
// The table holds a single row.
type PricingConfigRepository struct {
	q Querier
}

// NewPricingConfigRepository creates a new PostgreSQL pricing config repository.
func NewPricingConfigRepository(db *sql.DB) *PricingConfigRepository {
	return &PricingConfigRepository{q: db}
}

var _ repository.PricingConfigRepository = (*PricingConfigRepository)(nil)

// GetDynamicConfig returns the current overrides.
func (r *PricingConfigRepository) GetDynamicConfig(ctx context.Context) (*domain.DynamicPricingConfig, error) {
	query := `SELECT base_fares, surge_multiplier, updated_at FROM pricing_config WHERE id = 1`

	var raw []byte
	var surge sql.NullFloat64
	var cfg domain.DynamicPricingConfig
	if err := r.q.QueryRowContext(ctx, query).Scan(&raw, &surge, &cfg.UpdatedAt); err != nil {
		return nil, mapError(err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg.BaseFares); err != nil {
			return nil, err
		}
	}
	if surge.Valid {
		v := surge.Float64
		cfg.SurgeMultiplier = &v
	}
	return &cfg, nil
}

// SaveDynamicConfig replaces the current overrides.
func (r *PricingConfigRepository) SaveDynamicConfig(ctx context.Context, cfg *domain.DynamicPricingConfig) error {
	query := `
		INSERT INTO pricing_config (id, base_fares, surge_multiplier, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET base_fares = EXCLUDED.base_fares, surge_multiplier = EXCLUDED.surge_multiplier, updated_at = now()
	`

	baseFares := cfg.BaseFares
	if baseFares == nil {
		baseFares = map[domain.VehicleCategory]float64{}
	}
	raw, err := json.Marshal(baseFares)
	if err != nil {
		return err
	}

	var surge sql.NullFloat64
	if cfg.SurgeMultiplier != nil {
		surge = sql.NullFloat64{Float64: *cfg.SurgeMultiplier, Valid: true}
	}

	_, err = r.q.ExecContext(ctx, query, raw, surge)
	return mapError(err)
}
