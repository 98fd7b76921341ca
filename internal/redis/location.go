package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const pickupIndexKey = "ride_requests:pickups"

// PickupLocation is a searching ride request's pickup point.
type PickupLocation struct {
	RideRequestID string
	Lat           float64
	Lng           float64
	DistanceKm    float64
}

// PickupIndex keeps the latest pickup point of searching ride requests in a
// Redis GEO set.
type PickupIndex struct {
	client *redis.Client
}

// NewPickupIndex creates a new PickupIndex.
func NewPickupIndex(client *redis.Client) *PickupIndex {
	return &PickupIndex{client: client}
}

// UpsertPickup stores the pickup point using GEOADD.
func (s *PickupIndex) UpsertPickup(ctx context.Context, rideRequestID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, pickupIndexKey, &redis.GeoLocation{
		Name:      rideRequestID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindPendingPickups returns ride requests whose pickup lies within radiusKm,
// nearest first.
func (s *PickupIndex) FindPendingPickups(ctx context.Context, lat, lng, radiusKm float64) ([]PickupLocation, error) {
	results, err := s.client.GeoRadius(ctx, pickupIndexKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	pickups := make([]PickupLocation, 0, len(results))
	for _, r := range results {
		pickups = append(pickups, PickupLocation{
			RideRequestID: r.Name,
			Lat:           r.Latitude,
			Lng:           r.Longitude,
			DistanceKm:    r.Dist,
		})
	}
	return pickups, nil
}

// RemovePickup drops a ride request from the index.
func (s *PickupIndex) RemovePickup(ctx context.Context, rideRequestID string) error {
	return s.client.ZRem(ctx, pickupIndexKey, rideRequestID).Err()
}
