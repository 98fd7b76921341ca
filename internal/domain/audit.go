package domain

import (
	"fmt"
	"time"
)

// AuditKind identifies which operation produced an audit entry.
type AuditKind string

const (
	AuditKindDispatch AuditKind = "DISPATCH"
	AuditKindDecline  AuditKind = "DECLINE"
	AuditKindLocation AuditKind = "LOCATION"
)

// AuditEntry is an append-only record written in the same transaction as the
// ride request mutation it describes. Entries are never updated or deleted.
//
// Reason is set for DECLINE entries; Location, Address and Sequence for
// LOCATION entries.
type AuditEntry struct {
	ID              string
	RideRequestID   string
	Kind            AuditKind
	ActorID         string
	IdempotencyKey  string
	PreviousVersion int64
	Version         int64
	Reason          string
	Location        *Location
	Address         string
	Sequence        int64
	CreatedAt       time.Time
}

// DispatchIdempotencyKey derives the replay key of a dispatch from the
// request, the driver and the version observed before the transaction.
func DispatchIdempotencyKey(requestID, driverID string, preVersion int64) string {
	return idempotencyKey(AuditKindDispatch, requestID, driverID, preVersion)
}

// DeclineIdempotencyKey derives the replay key of a decline.
func DeclineIdempotencyKey(requestID, driverID string, preVersion int64) string {
	return idempotencyKey(AuditKindDecline, requestID, driverID, preVersion)
}

// LocationIdempotencyKey derives the replay key of a location update from the
// caller supplied sequence number, which is unique per accepted update.
func LocationIdempotencyKey(requestID, riderID string, seq int64) string {
	return idempotencyKey(AuditKindLocation, requestID, riderID, seq)
}

func idempotencyKey(kind AuditKind, requestID, actor string, n int64) string {
	return fmt.Sprintf("%s/%s/%s/%d", kind, requestID, actor, n)
}
