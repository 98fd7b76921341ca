package repository

import (
	"context"
	"time"

	"ridedispatch/internal/domain"
)

// Mutation inspects and optionally mutates a private copy of a ride request
// inside a store transaction. now is the store-assigned timestamp.
//
// Returning an error aborts the transaction. Returning a nil entry commits
// nothing. Returning an entry persists the mutated request together with the
// entry as one atomic unit.
type Mutation func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error)

// RideRequestRepository is the transactional port the dispatch service
// depends on.
type RideRequestRepository interface {
	// Create persists a new ride request.
	Create(ctx context.Context, ride *domain.RideRequest) error

	// GetByID retrieves a ride request by ID outside any transaction.
	GetByID(ctx context.Context, id string) (*domain.RideRequest, error)

	// Update atomically reads, checks and writes the ride request with the given ID.
	// Errors returned by mutate are passed through unchanged.
	Update(ctx context.Context, id string, mutate Mutation) error

	// ListAuditEntries returns the audit trail of a ride request in version order.
	ListAuditEntries(ctx context.Context, rideRequestID string) ([]*domain.AuditEntry, error)
}

// PricingConfigRepository provides the admin-managed dynamic pricing overrides.
type PricingConfigRepository interface {
	// GetDynamicConfig returns the current overrides, or ErrNotFound if none are set.
	GetDynamicConfig(ctx context.Context) (*domain.DynamicPricingConfig, error)

	// SaveDynamicConfig replaces the current overrides.
	SaveDynamicConfig(ctx context.Context, cfg *domain.DynamicPricingConfig) error
}
