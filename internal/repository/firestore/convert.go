package firestore

import (
	"cloud.google.com/go/firestore"
	"google.golang.org/genproto/googleapis/type/latlng"

	"ridedispatch/internal/domain"
)

func toRideRequestDoc(ride *domain.RideRequest) *rideRequestDoc {
	d := &rideRequestDoc{
		ID:                ride.ID,
		RiderID:           ride.RiderID,
		Status:            string(ride.Status),
		Version:           ride.Version,
		DispatchedDrivers: ride.DispatchedDrivers.Slice(),
		DeclinedDrivers:   ride.DeclinedDrivers.Slice(),
		LocationSequence:  ride.LocationSequence,
		PickupLocation:    toLatLng(ride.PickupLocation),
		PickupAddress:     ride.PickupAddress,
		DropoffLocation:   toLatLng(ride.DropoffLocation),
		DropoffAddress:    ride.DropoffAddress,
		Category:          string(ride.Category),
		PassengerCount:    ride.PassengerCount,
		EstimatedFare:     ride.EstimatedFare,
		Currency:          ride.Currency,
		CreatedAt:         ride.CreatedAt,
		UpdatedAt:         ride.UpdatedAt,
	}
	if !ride.LocationUpdatedAt.IsZero() {
		t := ride.LocationUpdatedAt
		d.LocationUpdatedAt = &t
	}
	return d
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*domain.RideRequest, error) {
	var d rideRequestDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	ride := &domain.RideRequest{
		ID:                snap.Ref.ID,
		RiderID:           d.RiderID,
		Status:            domain.RideStatus(d.Status),
		Version:           d.Version,
		DispatchedDrivers: domain.NewDriverSet(d.DispatchedDrivers...),
		DeclinedDrivers:   domain.NewDriverSet(d.DeclinedDrivers...),
		LocationSequence:  d.LocationSequence,
		PickupLocation:    fromLatLng(d.PickupLocation),
		PickupAddress:     d.PickupAddress,
		DropoffLocation:   fromLatLng(d.DropoffLocation),
		DropoffAddress:    d.DropoffAddress,
		Category:          domain.VehicleCategory(d.Category),
		PassengerCount:    d.PassengerCount,
		EstimatedFare:     d.EstimatedFare,
		Currency:          d.Currency,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.LocationUpdatedAt != nil {
		ride.LocationUpdatedAt = *d.LocationUpdatedAt
	}
	return ride, nil
}

func toAuditEntryDoc(e *domain.AuditEntry) *auditEntryDoc {
	d := &auditEntryDoc{
		ID:              e.ID,
		RideRequestID:   e.RideRequestID,
		Kind:            string(e.Kind),
		ActorID:         e.ActorID,
		IdempotencyKey:  e.IdempotencyKey,
		PreviousVersion: e.PreviousVersion,
		Version:         e.Version,
		Reason:          e.Reason,
		Address:         e.Address,
		Sequence:        e.Sequence,
		CreatedAt:       e.CreatedAt,
	}
	if e.Location != nil {
		d.Location = toLatLng(*e.Location)
	}
	return d
}

func fromAuditEntryDoc(d *auditEntryDoc) *domain.AuditEntry {
	e := &domain.AuditEntry{
		ID:              d.ID,
		RideRequestID:   d.RideRequestID,
		Kind:            domain.AuditKind(d.Kind),
		ActorID:         d.ActorID,
		IdempotencyKey:  d.IdempotencyKey,
		PreviousVersion: d.PreviousVersion,
		Version:         d.Version,
		Reason:          d.Reason,
		Address:         d.Address,
		Sequence:        d.Sequence,
		CreatedAt:       d.CreatedAt,
	}
	if d.Location != nil {
		loc := fromLatLng(d.Location)
		e.Location = &loc
	}
	return e
}

func toLatLng(l domain.Location) *latlng.LatLng {
	return &latlng.LatLng{Latitude: l.Lat, Longitude: l.Lng}
}

func fromLatLng(p *latlng.LatLng) domain.Location {
	if p == nil {
		return domain.Location{}
	}
	return domain.Location{Lat: p.GetLatitude(), Lng: p.GetLongitude()}
}
