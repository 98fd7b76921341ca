package domain

import (
	"math"
	"sort"
	"time"
)

// RideStatus represents the lifecycle state of a ride request.
type RideStatus string

const (
	RideStatusSearching      RideStatus = "SEARCHING"
	RideStatusAccepted       RideStatus = "ACCEPTED"
	RideStatusArrived        RideStatus = "ARRIVED"
	RideStatusStarted        RideStatus = "STARTED"
	RideStatusCompleted      RideStatus = "COMPLETED"
	RideStatusCancelled      RideStatus = "CANCELLED"
	RideStatusDeclined       RideStatus = "DECLINED"
	RideStatusPaymentPending RideStatus = "PAYMENT_PENDING"
)

// Valid reports whether s is a known status.
func (s RideStatus) Valid() bool {
	switch s {
	case RideStatusSearching, RideStatusAccepted, RideStatusArrived, RideStatusStarted,
		RideStatusCompleted, RideStatusCancelled, RideStatusDeclined, RideStatusPaymentPending:
		return true
	}
	return false
}

// coordinatePrecision is 6 decimal places (~0.11m).
const coordinatePrecision = 1e6

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lng float64
}

// Normalize rounds both coordinates to 6 decimal places.
func (l Location) Normalize() Location {
	return Location{
		Lat: math.Round(l.Lat*coordinatePrecision) / coordinatePrecision,
		Lng: math.Round(l.Lng*coordinatePrecision) / coordinatePrecision,
	}
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// DriverSet is a set of driver identifiers.
type DriverSet map[string]struct{}

// NewDriverSet builds a set from the given ids.
func NewDriverSet(ids ...string) DriverSet {
	s := make(DriverSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set has no members.
func (s DriverSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s DriverSet) Add(id string) {
	s[id] = struct{}{}
}

// Remove deletes id from the set.
func (s DriverSet) Remove(id string) {
	delete(s, id)
}

// Slice returns the members sorted, for stable persistence and output.
func (s DriverSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s DriverSet) Clone() DriverSet {
	c := make(DriverSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// RideRequest is the aggregate root of dispatch. Only the dispatch state
// (driver sets, version, pickup location) is mutated by the dispatch service;
// the remaining fields are payload owned by the surrounding application.
type RideRequest struct {
	ID                string
	RiderID           string
	Status            RideStatus
	Version           int64
	DispatchedDrivers DriverSet
	DeclinedDrivers   DriverSet
	LocationSequence  int64
	PickupLocation    Location
	PickupAddress     string
	DropoffLocation   Location
	DropoffAddress    string
	Category          VehicleCategory
	PassengerCount    int
	EstimatedFare     float64
	Currency          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LocationUpdatedAt time.Time
}

// NewRideRequest returns a request in SEARCHING with version 0 and empty driver sets.
func NewRideRequest(id, riderID string, now time.Time) *RideRequest {
	return &RideRequest{
		ID:                id,
		RiderID:           riderID,
		Status:            RideStatusSearching,
		DispatchedDrivers: NewDriverSet(),
		DeclinedDrivers:   NewDriverSet(),
		PassengerCount:    1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsSearching reports whether dispatch operations are still allowed.
func (r *RideRequest) IsSearching() bool {
	return r.Status == RideStatusSearching
}

// Clone returns a deep copy so a mutation can be discarded on rollback.
func (r *RideRequest) Clone() *RideRequest {
	c := *r
	c.DispatchedDrivers = r.DispatchedDrivers.Clone()
	c.DeclinedDrivers = r.DeclinedDrivers.Clone()
	return &c
}
