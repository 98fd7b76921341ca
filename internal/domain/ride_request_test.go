package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocation_Normalize(t *testing.T) {
	got := Location{Lat: 12.3456789, Lng: 77.1234561}.Normalize()
	assert.Equal(t, Location{Lat: 12.345679, Lng: 77.123456}, got)

	neg := Location{Lat: -33.8688197, Lng: -151.2092957}.Normalize()
	assert.Equal(t, Location{Lat: -33.86882, Lng: -151.209296}, neg)
}

func TestLocation_Valid(t *testing.T) {
	assert.True(t, Location{Lat: 90, Lng: 180}.Valid())
	assert.True(t, Location{Lat: -90, Lng: -180}.Valid())
	assert.False(t, Location{Lat: 90.0001}.Valid())
	assert.False(t, Location{Lng: -180.5}.Valid())
}

func TestDriverSet(t *testing.T) {
	s := NewDriverSet("b", "a")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))

	s.Add("c")
	s.Remove("b")
	assert.Equal(t, []string{"a", "c"}, s.Slice())

	var empty DriverSet
	assert.False(t, empty.Has("a"))
	assert.Empty(t, empty.Slice())
}

func TestRideRequest_CloneIsIndependent(t *testing.T) {
	r := NewRideRequest("r1", "u1", time.Now())
	r.DispatchedDrivers.Add("d1")

	c := r.Clone()
	c.DispatchedDrivers.Add("d2")
	c.DeclinedDrivers.Add("d3")
	c.Version = 7

	assert.False(t, r.DispatchedDrivers.Has("d2"))
	assert.False(t, r.DeclinedDrivers.Has("d3"))
	assert.EqualValues(t, 0, r.Version)
	assert.True(t, c.DispatchedDrivers.Has("d1"))
}

func TestNewRideRequest(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := NewRideRequest("r1", "u1", now)

	assert.Equal(t, RideStatusSearching, r.Status)
	assert.True(t, r.IsSearching())
	assert.EqualValues(t, 0, r.Version)
	assert.EqualValues(t, 0, r.LocationSequence)
	assert.Equal(t, 1, r.PassengerCount)
	assert.Equal(t, now, r.CreatedAt)
	assert.Empty(t, r.DispatchedDrivers)
	assert.Empty(t, r.DeclinedDrivers)
}

func TestRideStatus_Valid(t *testing.T) {
	assert.True(t, RideStatusPaymentPending.Valid())
	assert.False(t, RideStatus("LOST").Valid())
}

func TestIdempotencyKeys(t *testing.T) {
	assert.Equal(t, "DISPATCH/r1/d1/0", DispatchIdempotencyKey("r1", "d1", 0))
	assert.Equal(t, "DECLINE/r1/d1/4", DeclineIdempotencyKey("r1", "d1", 4))
	assert.Equal(t, "LOCATION/r1/u1/12", LocationIdempotencyKey("r1", "u1", 12))
}
