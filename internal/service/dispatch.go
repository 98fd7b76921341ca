package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// effectTimeout bounds each post-commit side effect.
const effectTimeout = 2 * time.Second

// DispatchService offers ride requests to drivers, records declines and
// applies rider pickup updates. All coordination happens inside the store
// transaction; the service itself holds no mutable state.
//
// cache, pickups and publisher are optional. They are refreshed after a
// commit and their failures never change the result of an operation.
type DispatchService struct {
	repo      repository.RideRequestRepository
	cache     redis.DispatchStateCacheInterface
	pickups   redis.PickupIndexInterface
	publisher events.Publisher
	log       *logging.Logger
}

// NewDispatchService creates a new DispatchService. Nil collaborators other
// than repo disable the corresponding side effect.
func NewDispatchService(
	repo repository.RideRequestRepository,
	cache redis.DispatchStateCacheInterface,
	pickups redis.PickupIndexInterface,
	publisher events.Publisher,
	log *logging.Logger,
) *DispatchService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &DispatchService{
		repo:      repo,
		cache:     cache,
		pickups:   pickups,
		publisher: publisher,
		log:       log.WithService("dispatch"),
	}
}

// CreateRideRequestInput contains the parameters for creating a ride request.
type CreateRideRequestInput struct {
	RiderID        string
	Pickup         domain.Location
	PickupAddress  string
	Dropoff        domain.Location
	DropoffAddress string
	Category       domain.VehicleCategory
	EstimatedFare  float64
	Currency       string
	PassengerCount int
}

// Create stores a new ride request in SEARCHING with version 0.
func (s *DispatchService) Create(ctx context.Context, in CreateRideRequestInput) (*domain.RideRequest, error) {
	if strings.TrimSpace(in.RiderID) == "" {
		return nil, invalidArgument("", "rider id is required")
	}
	if !in.Pickup.Valid() {
		return nil, invalidArgument("", "pickup location out of range")
	}
	if !in.Dropoff.Valid() {
		return nil, invalidArgument("", "dropoff location out of range")
	}
	if in.Category != "" {
		if _, ok := RatesFor(in.Category); !ok {
			return nil, invalidArgument("", "unknown vehicle category %q", in.Category)
		}
	}
	if in.EstimatedFare < 0 {
		return nil, invalidArgument("", "estimated fare must not be negative")
	}

	ride := domain.NewRideRequest(uuid.NewString(), in.RiderID, time.Now().UTC())
	ride.PickupLocation = in.Pickup.Normalize()
	ride.PickupAddress = in.PickupAddress
	ride.DropoffLocation = in.Dropoff.Normalize()
	ride.DropoffAddress = in.DropoffAddress
	ride.Category = in.Category
	ride.EstimatedFare = in.EstimatedFare
	ride.Currency = in.Currency
	if in.PassengerCount > 1 {
		ride.PassengerCount = in.PassengerCount
	}

	if err := s.repo.Create(ctx, ride); err != nil {
		return nil, mapStoreError(ride.ID, err)
	}

	s.log.Info("ride request created", "ride_request_id", ride.ID, "rider_id", ride.RiderID)
	s.afterCommit(ctx, ride, nil)
	return ride, nil
}

// Get returns the ride request.
func (s *DispatchService) Get(ctx context.Context, id string) (*domain.RideRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidArgument(id, "ride request id is required")
	}
	ride, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return ride, nil
}

// AuditTrail returns the audit entries of a ride request in version order.
func (s *DispatchService) AuditTrail(ctx context.Context, id string) ([]*domain.AuditEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAuditEntries(ctx, id)
	if err != nil {
		return nil, mapStoreError(id, err)
	}
	return entries, nil
}

// Dispatch offers the ride request to driverID.
//
// Dispatching a driver who is already in the dispatched set is a replay and
// succeeds without writing. A driver who declined cannot be dispatched.
func (s *DispatchService) Dispatch(ctx context.Context, id, driverID string) (*Result, error) {
	if err := validateIDs(id, driverID); err != nil {
		return nil, err
	}

	out, err := s.guardedUpdate(ctx, id, guard{
		replay: func(ride *domain.RideRequest) bool {
			return ride.DispatchedDrivers.Has(driverID)
		},
		precondition: func(ride *domain.RideRequest) error {
			if ride.DeclinedDrivers.Has(driverID) {
				return newError(KindAlreadyDeclined, ride.ID, nil)
			}
			return requireSearching(ride)
		},
		mutate: func(ride *domain.RideRequest, _ time.Time) {
			ride.DispatchedDrivers.Add(driverID)
		},
		entry: func(ride *domain.RideRequest, pre int64) *domain.AuditEntry {
			return &domain.AuditEntry{
				Kind:           domain.AuditKindDispatch,
				ActorID:        driverID,
				IdempotencyKey: domain.DispatchIdempotencyKey(ride.ID, driverID, pre),
			}
		},
	})
	return s.finish(ctx, id, "driver_id", driverID, out, err)
}

// Decline records that driverID refused the ride request. A driver may
// decline without having been dispatched. The driver leaves the dispatched
// set so the two sets stay disjoint.
func (s *DispatchService) Decline(ctx context.Context, id, driverID, reason string) (*Result, error) {
	if err := validateIDs(id, driverID); err != nil {
		return nil, err
	}

	out, err := s.guardedUpdate(ctx, id, guard{
		replay: func(ride *domain.RideRequest) bool {
			return ride.DeclinedDrivers.Has(driverID)
		},
		precondition: requireSearching,
		mutate: func(ride *domain.RideRequest, _ time.Time) {
			ride.DispatchedDrivers.Remove(driverID)
			ride.DeclinedDrivers.Add(driverID)
		},
		entry: func(ride *domain.RideRequest, pre int64) *domain.AuditEntry {
			return &domain.AuditEntry{
				Kind:           domain.AuditKindDecline,
				ActorID:        driverID,
				IdempotencyKey: domain.DeclineIdempotencyKey(ride.ID, driverID, pre),
				Reason:         reason,
			}
		},
	})
	return s.finish(ctx, id, "driver_id", driverID, out, err)
}

// UpdateLocationInput contains a rider pickup update.
type UpdateLocationInput struct {
	Lat      float64
	Lng      float64
	Address  string
	Sequence int64
}

// UpdateLocation applies a pickup update. Updates whose sequence is not
// greater than the stored one are dropped and reported as already processed.
func (s *DispatchService) UpdateLocation(ctx context.Context, id string, in UpdateLocationInput) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidArgument(id, "ride request id is required")
	}
	loc := domain.Location{Lat: in.Lat, Lng: in.Lng}
	if !loc.Valid() {
		return nil, invalidArgument(id, "location (%f, %f) out of range", in.Lat, in.Lng)
	}
	if in.Sequence < 1 {
		return nil, invalidArgument(id, "sequence must be at least 1")
	}
	loc = loc.Normalize()

	out, err := s.guardedUpdate(ctx, id, guard{
		replay: func(ride *domain.RideRequest) bool {
			return in.Sequence <= ride.LocationSequence
		},
		precondition: requireSearching,
		mutate: func(ride *domain.RideRequest, now time.Time) {
			ride.PickupLocation = loc
			ride.PickupAddress = in.Address
			ride.LocationSequence = in.Sequence
			ride.LocationUpdatedAt = now
		},
		entry: func(ride *domain.RideRequest, _ int64) *domain.AuditEntry {
			l := loc
			return &domain.AuditEntry{
				Kind:           domain.AuditKindLocation,
				ActorID:        ride.RiderID,
				IdempotencyKey: domain.LocationIdempotencyKey(ride.ID, ride.RiderID, in.Sequence),
				Location:       &l,
				Address:        in.Address,
				Sequence:       in.Sequence,
			}
		},
	})
	return s.finish(ctx, id, "sequence", in.Sequence, out, err)
}

// HasBeenDispatched reports whether driverID is in the dispatched set. The
// cached snapshot is consulted first; the store is read on a miss. A commit
// whose cache refresh fails invalidates the snapshot, so a hit is never older
// than the last commit that reached the cache.
func (s *DispatchService) HasBeenDispatched(ctx context.Context, id, driverID string) (bool, error) {
	if err := validateIDs(id, driverID); err != nil {
		return false, err
	}

	if s.cache != nil {
		state, err := s.cache.GetDispatchState(ctx, id)
		if err != nil {
			s.log.Warn("dispatch state cache read failed", "ride_request_id", id, "error", err)
		} else if state != nil {
			return state.HasDispatched(driverID), nil
		}
	}

	ride, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, mapStoreError(id, err)
	}
	s.refreshCache(ctx, ride)
	return ride.DispatchedDrivers.Has(driverID), nil
}

// FindPendingPickups returns searching ride requests whose pickup lies within
// radiusKm of the given point, nearest first.
func (s *DispatchService) FindPendingPickups(ctx context.Context, lat, lng, radiusKm float64) ([]redis.PickupLocation, error) {
	if !(domain.Location{Lat: lat, Lng: lng}).Valid() {
		return nil, invalidArgument("", "location (%f, %f) out of range", lat, lng)
	}
	if radiusKm <= 0 {
		return nil, invalidArgument("", "radius must be positive")
	}
	if s.pickups == nil {
		return []redis.PickupLocation{}, nil
	}

	found, err := s.pickups.FindPendingPickups(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, newError(KindStoreUnavailable, "", err)
	}
	return found, nil
}

func validateIDs(id, driverID string) error {
	if strings.TrimSpace(id) == "" {
		return invalidArgument(id, "ride request id is required")
	}
	if strings.TrimSpace(driverID) == "" {
		return invalidArgument(id, "driver id is required")
	}
	return nil
}

// finish logs the outcome and runs post-commit effects.
func (s *DispatchService) finish(ctx context.Context, id, actorKey string, actor any, out *committed, err error) (*Result, error) {
	log := s.logger(ctx).WithRideRequest(id).With(actorKey, actor)

	if err != nil {
		var de *DispatchError
		if errors.As(err, &de) && de.Kind == KindInvalidState {
			s.dropPickup(ctx, id)
		}
		if de != nil && de.Retryable() {
			log.Error("dispatch transaction failed", "kind", de.Kind, "error", err)
		} else {
			log.Info("dispatch operation rejected", "error", err)
		}
		return nil, err
	}

	if out.result.AlreadyProcessed {
		log.Debug("idempotent replay", "version", out.result.Version)
		return &out.result, nil
	}

	log.Info("ride request updated", "kind", out.entry.Kind, "version", out.result.Version)
	s.afterCommit(ctx, out.ride, out.entry)
	return &out.result, nil
}

// logger prefers the request-scoped logger carried by ctx.
func (s *DispatchService) logger(ctx context.Context) *logging.Logger {
	if l := logging.FromContext(ctx, nil); l != nil {
		return l.WithService("dispatch")
	}
	return s.log
}

// afterCommit refreshes the cache and the pickup index and publishes entry.
func (s *DispatchService) afterCommit(ctx context.Context, ride *domain.RideRequest, entry *domain.AuditEntry) {
	s.refreshCache(ctx, ride)

	if s.pickups != nil && ride.IsSearching() && (entry == nil || entry.Kind == domain.AuditKindLocation) {
		ectx, cancel := effectContext(ctx)
		err := s.pickups.UpsertPickup(ectx, ride.ID, ride.PickupLocation.Lat, ride.PickupLocation.Lng)
		cancel()
		if err != nil {
			s.log.Warn("pickup index update failed", "ride_request_id", ride.ID, "error", err)
		}
	}

	if entry != nil {
		ectx, cancel := effectContext(ctx)
		err := s.publisher.Publish(ectx, entry)
		cancel()
		if err != nil {
			s.log.Warn("audit event publish failed", "ride_request_id", ride.ID, "audit_id", entry.ID, "error", err)
		}
	}
}

func (s *DispatchService) refreshCache(ctx context.Context, ride *domain.RideRequest) {
	if s.cache == nil {
		return
	}
	ectx, cancel := effectContext(ctx)
	defer cancel()

	if _, err := s.cache.SetDispatchState(ectx, dispatchStateOf(ride)); err != nil {
		s.log.Warn("dispatch state cache write failed", "ride_request_id", ride.ID, "error", err)
		// A snapshot older than the commit must not keep answering reads.
		if err := s.cache.InvalidateDispatchState(ectx, ride.ID); err != nil {
			s.log.Warn("dispatch state cache invalidation failed", "ride_request_id", ride.ID, "error", err)
		}
	}
}

// dropPickup removes a request that left SEARCHING from the index and cache.
func (s *DispatchService) dropPickup(ctx context.Context, id string) {
	ectx, cancel := effectContext(ctx)
	defer cancel()

	if s.pickups != nil {
		if err := s.pickups.RemovePickup(ectx, id); err != nil {
			s.log.Warn("pickup index removal failed", "ride_request_id", id, "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateDispatchState(ectx, id); err != nil {
			s.log.Warn("dispatch state cache invalidation failed", "ride_request_id", id, "error", err)
		}
	}
}

func dispatchStateOf(ride *domain.RideRequest) *redis.DispatchState {
	return &redis.DispatchState{
		RideRequestID:     ride.ID,
		Status:            string(ride.Status),
		Version:           ride.Version,
		DispatchedDrivers: ride.DispatchedDrivers.Slice(),
		DeclinedDrivers:   ride.DeclinedDrivers.Slice(),
		LocationSequence:  ride.LocationSequence,
	}
}

// effectContext detaches side effects from caller cancellation so a client
// hanging up after commit does not skip them.
func effectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), effectTimeout)
}
