// Package memory provides in-process repositories honouring the same atomic
// contract as the database-backed ones. They are used by tests and by the
// "memory" store backend for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// RideRequestRepository keeps ride requests and their audit trail in maps.
// A single mutex serialises transactions, which gives every Update a
// consistent snapshot and makes the write-plus-log pair atomic.
type RideRequestRepository struct {
	mu      sync.Mutex
	rides   map[string]*domain.RideRequest
	audit   map[string][]*domain.AuditEntry
	keys    map[string]struct{}
	clock   func() time.Time
	updates int
}

// NewRideRequestRepository creates an empty repository using the wall clock.
func NewRideRequestRepository() *RideRequestRepository {
	return NewRideRequestRepositoryWithClock(time.Now)
}

// NewRideRequestRepositoryWithClock creates an empty repository whose
// transaction timestamps come from clock.
func NewRideRequestRepositoryWithClock(clock func() time.Time) *RideRequestRepository {
	return &RideRequestRepository{
		rides: make(map[string]*domain.RideRequest),
		audit: make(map[string][]*domain.AuditEntry),
		keys:  make(map[string]struct{}),
		clock: clock,
	}
}

var _ repository.RideRequestRepository = (*RideRequestRepository)(nil)

// Create persists a new ride request.
func (r *RideRequestRepository) Create(ctx context.Context, ride *domain.RideRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rides[ride.ID]; ok {
		return repository.ErrConflict
	}
	r.rides[ride.ID] = ride.Clone()
	return nil
}

// GetByID retrieves a copy of the ride request.
func (r *RideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ride.Clone(), nil
}

// Update applies mutate to a copy and swaps it in only when an entry is returned.
func (r *RideRequestRepository) Update(ctx context.Context, id string, mutate repository.Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rides[id]
	if !ok {
		return repository.ErrNotFound
	}

	working := current.Clone()
	entry, err := mutate(working, r.clock())
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	if working.Version <= current.Version {
		return repository.ErrConflict
	}
	if _, dup := r.keys[entry.IdempotencyKey]; dup {
		return repository.ErrConflict
	}

	stored := *entry
	r.rides[id] = working
	r.audit[id] = append(r.audit[id], &stored)
	r.keys[entry.IdempotencyKey] = struct{}{}
	r.updates++
	return nil
}

// ListAuditEntries returns copies of the audit trail in version order.
func (r *RideRequestRepository) ListAuditEntries(ctx context.Context, rideRequestID string) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*domain.AuditEntry, 0, len(r.audit[rideRequestID]))
	for _, e := range r.audit[rideRequestID] {
		c := *e
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// SetStatus changes the status outside the dispatch flow, the way acceptance
// or cancellation by another component would.
func (r *RideRequestRepository) SetStatus(id string, status domain.RideStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.Status = status
	return nil
}

// CommittedUpdates returns how many mutations have been committed.
func (r *RideRequestRepository) CommittedUpdates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}
