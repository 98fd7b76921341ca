package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *RideRequestRepository {
	t.Helper()
	repo := NewRideRequestRepositoryWithClock(func() time.Time { return fixedNow })
	require.NoError(t, repo.Create(context.Background(), domain.NewRideRequest("r1", "u1", fixedNow)))
	return repo
}

func bump(kind domain.AuditKind, key string) repository.Mutation {
	return func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		ride.Version++
		ride.DispatchedDrivers.Add("d1")
		return &domain.AuditEntry{RideRequestID: ride.ID, Kind: kind, IdempotencyKey: key, Version: ride.Version, CreatedAt: now}, nil
	}
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	repo := seeded(t)
	err := repo.Create(context.Background(), domain.NewRideRequest("r1", "u1", fixedNow))
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestGetByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)

	ride, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	ride.DispatchedDrivers.Add("intruder")

	again, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, again.DispatchedDrivers.Has("intruder"))

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_CommitsRideAndEntryTogether(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)

	var seen time.Time
	err := repo.Update(ctx, "r1", func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		seen = now
		return bump(domain.AuditKindDispatch, "k1")(ride, now)
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, seen)

	ride, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, ride.Version)
	assert.True(t, ride.DispatchedDrivers.Has("d1"))

	entries, err := repo.ListAuditEntries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k1", entries[0].IdempotencyKey)
	assert.Equal(t, 1, repo.CommittedUpdates())
}

func TestUpdate_ErrorDiscardsMutation(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)
	boom := errors.New("boom")

	err := repo.Update(ctx, "r1", func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		ride.DispatchedDrivers.Add("d1")
		ride.Version = 9
		return nil, boom
	})
	assert.Same(t, boom, err)

	ride, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, ride.Version)
	assert.Empty(t, ride.DispatchedDrivers)
}

func TestUpdate_NilEntryWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)

	err := repo.Update(ctx, "r1", func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		ride.DispatchedDrivers.Add("d1")
		return nil, nil
	})
	require.NoError(t, err)

	ride, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, ride.DispatchedDrivers)
	assert.Zero(t, repo.CommittedUpdates())
}

func TestUpdate_RequiresVersionAdvance(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)

	err := repo.Update(ctx, "r1", func(ride *domain.RideRequest, now time.Time) (*domain.AuditEntry, error) {
		return &domain.AuditEntry{IdempotencyKey: "k"}, nil
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestUpdate_DuplicateIdempotencyKeyConflicts(t *testing.T) {
	ctx := context.Background()
	repo := seeded(t)

	require.NoError(t, repo.Update(ctx, "r1", bump(domain.AuditKindDispatch, "same")))
	err := repo.Update(ctx, "r1", bump(domain.AuditKindDispatch, "same"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	ride, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, ride.Version)
}

func TestUpdate_UnknownAndCancelled(t *testing.T) {
	repo := seeded(t)

	err := repo.Update(context.Background(), "nope", bump(domain.AuditKindDispatch, "k"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = repo.Update(ctx, "r1", bump(domain.AuditKindDispatch, "k"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPricingConfigRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPricingConfigRepository()

	_, err := repo.GetDynamicConfig(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	surge := 1.2
	in := &domain.DynamicPricingConfig{
		BaseFares:       map[domain.VehicleCategory]float64{domain.CategoryCompactCar: 45},
		SurgeMultiplier: &surge,
	}
	require.NoError(t, repo.SaveDynamicConfig(ctx, in))
	in.BaseFares[domain.CategoryCompactCar] = 1

	got, err := repo.GetDynamicConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45.0, got.BaseFares[domain.CategoryCompactCar])
	require.NotNil(t, got.SurgeMultiplier)
	assert.Equal(t, 1.2, *got.SurgeMultiplier)
}
