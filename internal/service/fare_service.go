package service

import (
	"context"
	"errors"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/repository"
)

// FareService prices trips using the deployment policy and the
// admin-managed dynamic overrides.
type FareService struct {
	pricingRepo repository.PricingConfigRepository
	config      domain.PricingConfig
	log         *logging.Logger
}

// NewFareService creates a new FareService. pricingRepo may be nil, in
// which case only the static rate table is used.
func NewFareService(pricingRepo repository.PricingConfigRepository, config domain.PricingConfig, log *logging.Logger) *FareService {
	if log == nil {
		log = logging.Nop()
	}
	return &FareService{
		pricingRepo: pricingRepo,
		config:      config,
		log:         log.WithService("fare"),
	}
}

// QuoteRequest contains the parameters for a fare quote.
type QuoteRequest struct {
	DistanceKm     float64
	DurationMins   float64
	Category       domain.VehicleCategory
	Rider          *domain.Rider
	PassengerCount int
	At             time.Time
}

// Quote loads the dynamic overrides and computes the fare. A missing
// override set is not an error.
func (s *FareService) Quote(ctx context.Context, req QuoteRequest) (*domain.PricingDetails, error) {
	dynamic, err := s.dynamicConfig(ctx)
	if err != nil {
		return nil, err
	}

	return ComputeFare(FareInput{
		DistanceKm:     req.DistanceKm,
		DurationMins:   req.DurationMins,
		Category:       req.Category,
		Rider:          req.Rider,
		Dynamic:        dynamic,
		PassengerCount: req.PassengerCount,
		Config:         s.config,
		At:             req.At,
	})
}

func (s *FareService) dynamicConfig(ctx context.Context) (*domain.DynamicPricingConfig, error) {
	if s.pricingRepo == nil {
		return nil, nil
	}

	cfg, err := s.pricingRepo.GetDynamicConfig(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to load dynamic pricing config", "error", err)
		return nil, newError(KindStoreUnavailable, "", err)
	}
	return cfg, nil
}
