package redis

import "context"

// DispatchStateCacheInterface defines the dispatch-state cache contract.
type DispatchStateCacheInterface interface {
	GetDispatchState(ctx context.Context, rideRequestID string) (*DispatchState, error)
	SetDispatchState(ctx context.Context, state *DispatchState) (bool, error)
	InvalidateDispatchState(ctx context.Context, rideRequestID string) error
}

// PickupIndexInterface defines the pickup GEO index contract.
type PickupIndexInterface interface {
	UpsertPickup(ctx context.Context, rideRequestID string, lat, lng float64) error
	FindPendingPickups(ctx context.Context, lat, lng, radiusKm float64) ([]PickupLocation, error)
	RemovePickup(ctx context.Context, rideRequestID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ DispatchStateCacheInterface = (*CacheStore)(nil)
	_ PickupIndexInterface        = (*PickupIndex)(nil)
)
