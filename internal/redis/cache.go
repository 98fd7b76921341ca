package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DispatchStateTTL bounds how long a snapshot may outlive a status change made
// by another component (acceptance, cancellation).
const DispatchStateTTL = 10 * time.Second

const dispatchStatePrefix = "cache:ride_request:dispatch:"

// DispatchState is the cached dispatch view of a ride request.
type DispatchState struct {
	RideRequestID     string   `json:"ride_request_id"`
	Status            string   `json:"status"`
	Version           int64    `json:"version"`
	DispatchedDrivers []string `json:"dispatched_drivers"`
	DeclinedDrivers   []string `json:"declined_drivers"`
	LocationSequence  int64    `json:"location_sequence"`
}

// HasDispatched reports whether driverID is in the cached dispatched set.
func (s *DispatchState) HasDispatched(driverID string) bool {
	for _, id := range s.DispatchedDrivers {
		if id == driverID {
			return true
		}
	}
	return false
}

// setIfNewer stores ARGV[1] unless the cached snapshot already carries a
// version >= ARGV[2], so a slow writer cannot roll the cache back.
var setIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local decoded = cjson.decode(current)
	if tonumber(decoded.version) >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// CacheStore handles dispatch-state caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client, ttl: DispatchStateTTL}
}

// GetDispatchState retrieves a snapshot. A miss returns nil, nil.
func (s *CacheStore) GetDispatchState(ctx context.Context, rideRequestID string) (*DispatchState, error) {
	data, err := s.client.Get(ctx, dispatchStatePrefix+rideRequestID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var state DispatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SetDispatchState stores a snapshot unless a newer version is already cached.
// It reports whether the snapshot was written.
func (s *CacheStore) SetDispatchState(ctx context.Context, state *DispatchState) (bool, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, err
	}

	written, err := setIfNewer.Run(ctx, s.client,
		[]string{dispatchStatePrefix + state.RideRequestID},
		string(data), state.Version, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// InvalidateDispatchState removes a snapshot.
func (s *CacheStore) InvalidateDispatchState(ctx context.Context, rideRequestID string) error {
	return s.client.Del(ctx, dispatchStatePrefix+rideRequestID).Err()
}
