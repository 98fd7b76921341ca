package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

const rideRequestColumns = `id, rider_id, status, version, dispatched_drivers, declined_drivers, location_sequence,
		pickup_lat, pickup_lng, pickup_address, dropoff_lat, dropoff_lng, dropoff_address,
		category, passenger_count, estimated_fare, currency, created_at, updated_at, location_updated_at`

// RideRequestRepository is a PostgreSQL implementation of repository.RideRequestRepository.
// Update locks the row with SELECT ... FOR UPDATE and fences the write on the
// version that was read, so a concurrent writer can never be overwritten.
type RideRequestRepository struct {
	db *sql.DB
}

// NewRideRequestRepository creates a new PostgreSQL ride request repository.
func NewRideRequestRepository(db *sql.DB) *RideRequestRepository {
	return &RideRequestRepository{db: db}
}

var _ repository.RideRequestRepository = (*RideRequestRepository)(nil)

// Create persists a new ride request.
func (r *RideRequestRepository) Create(ctx context.Context, ride *domain.RideRequest) error {
	query := `
		INSERT INTO ride_requests (` + rideRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.Status,
		ride.Version,
		pq.StringArray(ride.DispatchedDrivers.Slice()),
		pq.StringArray(ride.DeclinedDrivers.Slice()),
		ride.LocationSequence,
		ride.PickupLocation.Lat,
		ride.PickupLocation.Lng,
		ride.PickupAddress,
		ride.DropoffLocation.Lat,
		ride.DropoffLocation.Lng,
		ride.DropoffAddress,
		ride.Category,
		ride.PassengerCount,
		ride.EstimatedFare,
		ride.Currency,
		ride.CreatedAt,
		ride.UpdatedAt,
		nullTime(ride.LocationUpdatedAt),
	)
	return mapError(err)
}

// GetByID retrieves a ride request by ID.
func (r *RideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	query := `SELECT ` + rideRequestColumns + ` FROM ride_requests WHERE id = $1`

	ride, err := scanRideRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return ride, nil
}

// Update runs mutate against the locked row and commits the result with its
// audit entry in the same transaction.
func (r *RideRequestRepository) Update(ctx context.Context, id string, mutate repository.Mutation) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var now time.Time
		ride, err := lockRideRequest(ctx, tx, id, &now)
		if err != nil {
			return mapError(err)
		}

		previousVersion := ride.Version
		entry, err := mutate(ride, now)
		if err != nil || entry == nil {
			return err
		}

		if err := saveRideRequest(ctx, tx, ride, previousVersion); err != nil {
			return err
		}
		return mapError(insertAuditEntry(ctx, tx, entry))
	})
}

// ListAuditEntries returns the audit trail of a ride request in version order.
func (r *RideRequestRepository) ListAuditEntries(ctx context.Context, rideRequestID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, ride_request_id, kind, actor_id, idempotency_key, previous_version, version,
		       reason, lat, lng, address, sequence, created_at
		FROM ride_request_audit_log
		WHERE ride_request_id = $1
		ORDER BY version ASC
	`

	rows, err := r.db.QueryContext(ctx, query, rideRequestID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&e.ID,
			&e.RideRequestID,
			&e.Kind,
			&e.ActorID,
			&e.IdempotencyKey,
			&e.PreviousVersion,
			&e.Version,
			&e.Reason,
			&lat,
			&lng,
			&e.Address,
			&e.Sequence,
			&e.CreatedAt,
		); err != nil {
			return nil, mapError(err)
		}
		if lat.Valid && lng.Valid {
			e.Location = &domain.Location{Lat: lat.Float64, Lng: lng.Float64}
		}
		entries = append(entries, &e)
	}
	return entries, mapError(rows.Err())
}

// lockRideRequest reads the row under FOR UPDATE together with the
// transaction timestamp, which serves as the server-assigned clock.
func lockRideRequest(ctx context.Context, q Querier, id string, now *time.Time) (*domain.RideRequest, error) {
	query := `SELECT ` + rideRequestColumns + `, now() FROM ride_requests WHERE id = $1 FOR UPDATE`
	return scanRideRequest(q.QueryRowContext(ctx, query, id), now)
}

func saveRideRequest(ctx context.Context, q Querier, ride *domain.RideRequest, previousVersion int64) error {
	query := `
		UPDATE ride_requests
		SET status = $1, version = $2, dispatched_drivers = $3, declined_drivers = $4,
		    location_sequence = $5, pickup_lat = $6, pickup_lng = $7, pickup_address = $8,
		    updated_at = $9, location_updated_at = $10
		WHERE id = $11 AND version = $12
	`

	result, err := q.ExecContext(ctx, query,
		ride.Status,
		ride.Version,
		pq.StringArray(ride.DispatchedDrivers.Slice()),
		pq.StringArray(ride.DeclinedDrivers.Slice()),
		ride.LocationSequence,
		ride.PickupLocation.Lat,
		ride.PickupLocation.Lng,
		ride.PickupAddress,
		ride.UpdatedAt,
		nullTime(ride.LocationUpdatedAt),
		ride.ID,
		previousVersion,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: ride request %s moved past version %d", repository.ErrConflict, ride.ID, previousVersion)
	}
	return nil
}

func insertAuditEntry(ctx context.Context, q Querier, e *domain.AuditEntry) error {
	query := `
		INSERT INTO ride_request_audit_log (
			id, ride_request_id, kind, actor_id, idempotency_key, previous_version, version,
			reason, lat, lng, address, sequence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var lat, lng sql.NullFloat64
	if e.Location != nil {
		lat = sql.NullFloat64{Float64: e.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: e.Location.Lng, Valid: true}
	}

	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.RideRequestID,
		e.Kind,
		e.ActorID,
		e.IdempotencyKey,
		e.PreviousVersion,
		e.Version,
		e.Reason,
		lat,
		lng,
		e.Address,
		e.Sequence,
		e.CreatedAt,
	)
	return err
}

// scanRideRequest scans the rideRequestColumns, plus any trailing destinations.
func scanRideRequest(row *sql.Row, extra ...any) (*domain.RideRequest, error) {
	var ride domain.RideRequest
	var dispatched, declined pq.StringArray
	var locationUpdatedAt sql.NullTime

	dest := []any{
		&ride.ID,
		&ride.RiderID,
		&ride.Status,
		&ride.Version,
		&dispatched,
		&declined,
		&ride.LocationSequence,
		&ride.PickupLocation.Lat,
		&ride.PickupLocation.Lng,
		&ride.PickupAddress,
		&ride.DropoffLocation.Lat,
		&ride.DropoffLocation.Lng,
		&ride.DropoffAddress,
		&ride.Category,
		&ride.PassengerCount,
		&ride.EstimatedFare,
		&ride.Currency,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&locationUpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	ride.DispatchedDrivers = domain.NewDriverSet(dispatched...)
	ride.DeclinedDrivers = domain.NewDriverSet(declined...)
	if locationUpdatedAt.Valid {
		ride.LocationUpdatedAt = locationUpdatedAt.Time
	}
	return &ride, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
