package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
)

// Result is the outcome of a successful dispatch operation. AlreadyProcessed
// is set when the call was an idempotent replay and nothing was written.
type Result struct {
	AlreadyProcessed bool
	Version          int64
	LocationSequence int64
	Status           domain.RideStatus
}

// guard describes one read-validate-mutate-log operation.
//
// replay is checked first and turns the call into a no-op success.
// precondition rejects the call without side effects. mutate applies the
// change to the request; version and timestamps are handled by guardedUpdate.
// entry builds the kind specific part of the audit entry from the pre-version.
type guard struct {
	replay       func(ride *domain.RideRequest) bool
	precondition func(ride *domain.RideRequest) error
	mutate       func(ride *domain.RideRequest, now time.Time)
	entry        func(ride *domain.RideRequest, preVersion int64) *domain.AuditEntry
}

// committed is what guardedUpdate observed in the last transaction attempt.
type committed struct {
	result Result
	ride   *domain.RideRequest
	entry  *domain.AuditEntry
}

func (s *DispatchService) guardedUpdate(ctx context.Context, id string, g guard) (*committed, error) {
	var out committed

	err := s.repo.Update(ctx, id, func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		// The store may run this more than once.
		out = committed{}

		if g.replay(ride) {
			out.result = resultOf(ride, true)
			out.ride = ride.Clone()
			return nil, nil
		}
		if err := g.precondition(ride); err != nil {
			return nil, err
		}

		pre := ride.Version
		g.mutate(ride, now)
		ride.Version = pre + 1
		ride.UpdatedAt = now

		entry := g.entry(ride, pre)
		entry.ID = uuid.NewString()
		entry.RideRequestID = ride.ID
		entry.PreviousVersion = pre
		entry.Version = ride.Version
		entry.CreatedAt = now

		out.result = resultOf(ride, false)
		out.ride = ride.Clone()
		out.entry = entry
		return entry, nil
	})
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return &out, nil
}

func resultOf(ride *domain.RideRequest, replay bool) Result {
	return Result{
		AlreadyProcessed: replay,
		Version:          ride.Version,
		LocationSequence: ride.LocationSequence,
		Status:           ride.Status,
	}
}

func requireSearching(ride *domain.RideRequest) error {
	if !ride.IsSearching() {
		return invalidState(ride.ID, ride.Status)
	}
	return nil
}
