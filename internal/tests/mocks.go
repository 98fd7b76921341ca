package tests

import (
	"context"
	"sync"
	"sync/atomic"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/repository/memory"
)

// ──────────────────────────────────────────────
// MOCK RIDE REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockRideRequestRepository wraps the in-memory repository with call
// counters and error injection.
type MockRideRequestRepository struct {
	*memory.RideRequestRepository

	// Counters for verification
	GetByIDCallCount int32
	UpdateCallCount  int32

	// Error injection
	GetByIDError error
	UpdateError  error
}

// NewMockRideRequestRepository creates a mock seeded with the given requests.
func NewMockRideRequestRepository(rides ...*domain.RideRequest) *MockRideRequestRepository {
	m := &MockRideRequestRepository{RideRequestRepository: memory.NewRideRequestRepository()}
	for _, r := range rides {
		_ = m.RideRequestRepository.Create(context.Background(), r)
	}
	return m
}

func (m *MockRideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	return m.RideRequestRepository.GetByID(ctx, id)
}

func (m *MockRideRequestRepository) Update(ctx context.Context, id string, mutate repository.Mutation) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	return m.RideRequestRepository.Update(ctx, id, mutate)
}

// GetRideRequest returns the stored request or nil.
func (m *MockRideRequestRepository) GetRideRequest(id string) *domain.RideRequest {
	ride, err := m.RideRequestRepository.GetByID(context.Background(), id)
	if err != nil {
		return nil
	}
	return ride
}

// ──────────────────────────────────────────────
// MOCK DISPATCH STATE CACHE
// ──────────────────────────────────────────────

// MockDispatchStateCache is a mock implementation of DispatchStateCacheInterface.
type MockDispatchStateCache struct {
	mu     sync.RWMutex
	states map[string]*redis.DispatchState

	// Counters
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32

	// Error injection
	GetError error
	SetError error
}

// NewMockDispatchStateCache creates a new mock cache.
func NewMockDispatchStateCache() *MockDispatchStateCache {
	return &MockDispatchStateCache{states: make(map[string]*redis.DispatchState)}
}

// Put stores a snapshot directly (for test setup).
func (m *MockDispatchStateCache) Put(state *redis.DispatchState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.RideRequestID] = state
}

// State returns the cached snapshot or nil.
func (m *MockDispatchStateCache) State(id string) *redis.DispatchState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[id]
}

func (m *MockDispatchStateCache) GetDispatchState(ctx context.Context, id string) (*redis.DispatchState, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.State(id), nil
}

// SetDispatchState keeps the newer version, like the Redis script does.
func (m *MockDispatchStateCache) SetDispatchState(ctx context.Context, state *redis.DispatchState) (bool, error) {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return false, m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.states[state.RideRequestID]; ok && cur.Version >= state.Version {
		return false, nil
	}
	m.states[state.RideRequestID] = state
	return true, nil
}

func (m *MockDispatchStateCache) InvalidateDispatchState(ctx context.Context, id string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PICKUP INDEX
// ──────────────────────────────────────────────

// MockPickupIndex is a mock implementation of PickupIndexInterface.
type MockPickupIndex struct {
	mu      sync.RWMutex
	pickups map[string]redis.PickupLocation

	// Counters
	UpsertCallCount int32
	RemoveCallCount int32

	// Error injection
	UpsertError error
	FindError   error
}

// NewMockPickupIndex creates a new mock pickup index.
func NewMockPickupIndex() *MockPickupIndex {
	return &MockPickupIndex{pickups: make(map[string]redis.PickupLocation)}
}

// Has reports whether the request is indexed.
func (m *MockPickupIndex) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pickups[id]
	return ok
}

// Get returns the indexed pickup.
func (m *MockPickupIndex) Get(id string) redis.PickupLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pickups[id]
}

func (m *MockPickupIndex) UpsertPickup(ctx context.Context, id string, lat, lng float64) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pickups[id] = redis.PickupLocation{RideRequestID: id, Lat: lat, Lng: lng}
	return nil
}

// FindPendingPickups returns every indexed pickup (mock doesn't do real geo filtering).
func (m *MockPickupIndex) FindPendingPickups(ctx context.Context, lat, lng, radiusKm float64) ([]redis.PickupLocation, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.PickupLocation, 0, len(m.pickups))
	for _, p := range m.pickups {
		result = append(result, p)
	}
	return result, nil
}

func (m *MockPickupIndex) RemovePickup(ctx context.Context, id string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pickups, id)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published audit entries.
type MockPublisher struct {
	mu        sync.Mutex
	published []*domain.AuditEntry

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, entry *domain.AuditEntry) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, entry)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Published returns the entries published so far.
func (m *MockPublisher) Published() []*domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditEntry, len(m.published))
	copy(out, m.published)
	return out
}
