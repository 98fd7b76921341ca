package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const (
	pricingCollection = "pricingConfig"
	pricingDocID      = "current"
)

type pricingConfigDoc struct {
	BaseFares       map[string]float64 `firestore:"baseFares"`
	SurgeMultiplier *float64           `firestore:"surgeMultiplier"`
	UpdatedAt       time.Time          `firestore:"updatedAt,serverTimestamp"`
}

// PricingConfigRepository stores the dynamic pricing overrides in a single document.
type PricingConfigRepository struct {
	client *firestore.Client
}

// NewPricingConfigRepository creates a new Firestore pricing config repository.
func NewPricingConfigRepository(client *firestore.Client) *PricingConfigRepository {
	return &PricingConfigRepository{client: client}
}

var _ repository.PricingConfigRepository = (*PricingConfigRepository)(nil)

func (r *PricingConfigRepository) doc() *firestore.DocumentRef {
	return r.client.Collection(pricingCollection).Doc(pricingDocID)
}

func (r *PricingConfigRepository) GetDynamicConfig(ctx context.Context) (*domain.DynamicPricingConfig, error) {
	snap, err := r.doc().Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	var d pricingConfigDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}

	cfg := &domain.DynamicPricingConfig{
		SurgeMultiplier: d.SurgeMultiplier,
		UpdatedAt:       d.UpdatedAt,
	}
	if len(d.BaseFares) > 0 {
		cfg.BaseFares = make(map[domain.VehicleCategory]float64, len(d.BaseFares))
		for k, v := range d.BaseFares {
			cfg.BaseFares[domain.VehicleCategory(k)] = v
		}
	}
	return cfg, nil
}

func (r *PricingConfigRepository) SaveDynamicConfig(ctx context.Context, cfg *domain.DynamicPricingConfig) error {
	d := pricingConfigDoc{SurgeMultiplier: cfg.SurgeMultiplier}
	if len(cfg.BaseFares) > 0 {
		d.BaseFares = make(map[string]float64, len(cfg.BaseFares))
		for k, v := range cfg.BaseFares {
			d.BaseFares[string(k)] = v
		}
	}

	_, err := r.doc().Set(ctx, d)
	return mapError(err)
}
