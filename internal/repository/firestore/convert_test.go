package firestore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

func TestToRideRequestDoc(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ride := domain.NewRideRequest("r1", "rider-1", now)
	ride.Version = 3
	ride.DispatchedDrivers.Add("d2")
	ride.DispatchedDrivers.Add("d1")
	ride.DeclinedDrivers.Add("d3")
	ride.PickupLocation = domain.Location{Lat: 12.971599, Lng: 77.594566}

	d := toRideRequestDoc(ride)
	assert.Equal(t, "SEARCHING", d.Status)
	assert.EqualValues(t, 3, d.Version)
	assert.ElementsMatch(t, []string{"d1", "d2"}, d.DispatchedDrivers)
	assert.Equal(t, []string{"d3"}, d.DeclinedDrivers)
	assert.Equal(t, 12.971599, d.PickupLocation.GetLatitude())
	assert.Equal(t, 77.594566, d.PickupLocation.GetLongitude())
	assert.Nil(t, d.LocationUpdatedAt)

	ride.LocationUpdatedAt = now.Add(time.Minute)
	d = toRideRequestDoc(ride)
	require.NotNil(t, d.LocationUpdatedAt)
	assert.Equal(t, now.Add(time.Minute), *d.LocationUpdatedAt)
}

func TestAuditEntryDocRoundTrip(t *testing.T) {
	entry := &domain.AuditEntry{
		ID:              "e1",
		RideRequestID:   "r1",
		Kind:            domain.AuditKindLocation,
		ActorID:         "rider-1",
		IdempotencyKey:  "LOCATION/r1/rider-1/2",
		PreviousVersion: 4,
		Version:         5,
		Location:        &domain.Location{Lat: -33.868820, Lng: 151.209296},
		Address:         "George St",
		Sequence:        2,
		CreatedAt:       time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, entry, fromAuditEntryDoc(toAuditEntryDoc(entry)))

	decline := &domain.AuditEntry{ID: "e2", Kind: domain.AuditKindDecline, Reason: "too far"}
	got := fromAuditEntryDoc(toAuditEntryDoc(decline))
	assert.Nil(t, got.Location)
	assert.Equal(t, "too far", got.Reason)
}

func TestFromLatLngNil(t *testing.T) {
	assert.Equal(t, domain.Location{}, fromLatLng(nil))
}

func TestVersionDocIDSortsLexically(t *testing.T) {
	assert.Equal(t, "00000000000000000009", versionDocID(9))
	assert.Less(t, versionDocID(9), versionDocID(10))
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(status.Error(codes.NotFound, "gone")), repository.ErrNotFound)
	assert.ErrorIs(t, mapError(status.Error(codes.Aborted, "contention")), repository.ErrConflict)
	assert.ErrorIs(t, mapError(status.Error(codes.AlreadyExists, "dup")), repository.ErrConflict)
	assert.ErrorIs(t, mapError(status.Error(codes.Unavailable, "down")), repository.ErrUnavailable)

	plain := errors.New("mutation rejected")
	assert.Same(t, plain, mapError(plain))
}
