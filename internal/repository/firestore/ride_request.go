// Package firestore implements the ride request repository on Cloud Firestore.
// Each ride request is one document; its audit trail lives in the
// "auditLog" subcollection keyed by version.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const auditCollection = "auditLog"

type rideRequestDoc struct {
	ID                string         `firestore:"id"`
	RiderID           string         `firestore:"riderId"`
	Status            string         `firestore:"status"`
	Version           int64          `firestore:"version"`
	DispatchedDrivers []string       `firestore:"dispatchedDrivers"`
	DeclinedDrivers   []string       `firestore:"declinedDrivers"`
	LocationSequence  int64          `firestore:"locationSequence"`
	PickupLocation    *latlng.LatLng `firestore:"pickupLocation"`
	PickupAddress     string         `firestore:"pickupAddress"`
	DropoffLocation   *latlng.LatLng `firestore:"dropoffLocation"`
	DropoffAddress    string         `firestore:"dropoffAddress"`
	Category          string         `firestore:"category"`
	PassengerCount    int            `firestore:"passengerCount"`
	EstimatedFare     float64        `firestore:"estimatedFare"`
	Currency          string         `firestore:"currency"`
	CreatedAt         time.Time      `firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time      `firestore:"updatedAt,serverTimestamp"`
	LocationUpdatedAt *time.Time     `firestore:"locationUpdatedAt,omitempty"`
}

type auditEntryDoc struct {
	ID              string         `firestore:"id"`
	RideRequestID   string         `firestore:"rideRequestId"`
	Kind            string         `firestore:"kind"`
	ActorID         string         `firestore:"actorId"`
	IdempotencyKey  string         `firestore:"idempotencyKey"`
	PreviousVersion int64          `firestore:"previousVersion"`
	Version         int64          `firestore:"version"`
	Reason          string         `firestore:"reason,omitempty"`
	Location        *latlng.LatLng `firestore:"location,omitempty"`
	Address         string         `firestore:"address,omitempty"`
	Sequence        int64          `firestore:"sequence,omitempty"`
	CreatedAt       time.Time      `firestore:"createdAt,serverTimestamp"`
}

// RideRequestRepository is a Firestore implementation of repository.RideRequestRepository.
// Update runs inside Client.RunTransaction, which retries on contention; the
// mutation may therefore be invoked more than once per call.
type RideRequestRepository struct {
	client     *firestore.Client
	collection string
	clock      func() time.Time
}

// NewRideRequestRepository creates a repository over the given collection.
func NewRideRequestRepository(client *firestore.Client, collection string) *RideRequestRepository {
	return &RideRequestRepository{client: client, collection: collection, clock: time.Now}
}

var _ repository.RideRequestRepository = (*RideRequestRepository)(nil)

func (r *RideRequestRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(id)
}

// Create persists a new ride request. Zero timestamps are assigned by the server.
func (r *RideRequestRepository) Create(ctx context.Context, ride *domain.RideRequest) error {
	_, err := r.doc(ride.ID).Create(ctx, toRideRequestDoc(ride))
	return mapError(err)
}

// GetByID reads the ride request document.
func (r *RideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return fromSnapshot(snap)
}

// Update reads the document inside a transaction, applies mutate and writes
// the changed dispatch fields plus the audit entry. Timestamps written by
// this method are server-assigned.
func (r *RideRequestRepository) Update(ctx context.Context, id string, mutate repository.Mutation) error {
	ref := r.doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		ride, err := fromSnapshot(snap)
		if err != nil {
			return err
		}

		previousVersion := ride.Version
		previousSequence := ride.LocationSequence
		now := r.clock()
		entry, err := mutate(ride, now)
		if err != nil || entry == nil {
			return err
		}
		if ride.Version <= previousVersion {
			return fmt.Errorf("%w: ride request %s version not advanced", repository.ErrConflict, id)
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(ride.Status)},
			{Path: "version", Value: ride.Version},
			{Path: "dispatchedDrivers", Value: ride.DispatchedDrivers.Slice()},
			{Path: "declinedDrivers", Value: ride.DeclinedDrivers.Slice()},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if ride.LocationSequence != previousSequence {
			updates = append(updates,
				firestore.Update{Path: "locationSequence", Value: ride.LocationSequence},
				firestore.Update{Path: "pickupLocation", Value: toLatLng(ride.PickupLocation)},
				firestore.Update{Path: "pickupAddress", Value: ride.PickupAddress},
				firestore.Update{Path: "locationUpdatedAt", Value: firestore.ServerTimestamp},
			)
		}
		if err := tx.Update(ref, updates); err != nil {
			return err
		}

		entryDoc := toAuditEntryDoc(entry)
		entryDoc.CreatedAt = time.Time{}
		return tx.Create(ref.Collection(auditCollection).Doc(versionDocID(entry.Version)), entryDoc)
	})
	return mapError(err)
}

// ListAuditEntries returns the audit trail in version order.
func (r *RideRequestRepository) ListAuditEntries(ctx context.Context, rideRequestID string) ([]*domain.AuditEntry, error) {
	iter := r.doc(rideRequestID).Collection(auditCollection).OrderBy("version", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var entries []*domain.AuditEntry
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapError(err)
		}
		var d auditEntryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		entries = append(entries, fromAuditEntryDoc(&d))
	}
	return entries, nil
}

func versionDocID(version int64) string {
	return fmt.Sprintf("%020d", version)
}

// mapError translates gRPC status codes into repository sentinel errors.
// Errors that carry no status, such as those returned by a mutation, pass
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return repository.ErrNotFound
	case codes.Aborted, codes.AlreadyExists, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", repository.ErrConflict, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", repository.ErrUnavailable, st.Message())
	}
	return err
}
