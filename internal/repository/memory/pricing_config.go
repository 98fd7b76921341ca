package memory

import (
	"context"
	"sync"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// PricingConfigRepository holds the dynamic pricing overrides in memory.
type PricingConfigRepository struct {
	mu  sync.RWMutex
	cfg *domain.DynamicPricingConfig
}

// NewPricingConfigRepository creates a repository with no overrides.
func NewPricingConfigRepository() *PricingConfigRepository {
	return &PricingConfigRepository{}
}

var _ repository.PricingConfigRepository = (*PricingConfigRepository)(nil)

func (r *PricingConfigRepository) GetDynamicConfig(ctx context.Context) (*domain.DynamicPricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return nil, repository.ErrNotFound
	}
	c := copyDynamicConfig(r.cfg)
	return c, nil
}

func (r *PricingConfigRepository) SaveDynamicConfig(ctx context.Context, cfg *domain.DynamicPricingConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = copyDynamicConfig(cfg)
	return nil
}

func copyDynamicConfig(cfg *domain.DynamicPricingConfig) *domain.DynamicPricingConfig {
	c := &domain.DynamicPricingConfig{UpdatedAt: cfg.UpdatedAt}
	if cfg.BaseFares != nil {
		c.BaseFares = make(map[domain.VehicleCategory]float64, len(cfg.BaseFares))
		for k, v := range cfg.BaseFares {
			c.BaseFares[k] = v
		}
	}
	if cfg.SurgeMultiplier != nil {
		v := *cfg.SurgeMultiplier
		c.SurgeMultiplier = &v
	}
	return c
}
