// Package events publishes committed audit entries to downstream consumers.
// Publishing happens after commit and is best effort: the audit log in the
// store remains the source of truth.
package events

import (
	"context"
	"strings"
	"time"

	"ridedispatch/internal/domain"
)

// Publisher delivers a committed audit entry.
type Publisher interface {
	Publish(ctx context.Context, entry *domain.AuditEntry) error
	Close() error
}

// AuditEvent is the wire form of an audit entry.
type AuditEvent struct {
	ID              string    `json:"id"`
	RideRequestID   string    `json:"ride_request_id"`
	Kind            string    `json:"kind"`
	ActorID         string    `json:"actor_id"`
	IdempotencyKey  string    `json:"idempotency_key"`
	PreviousVersion int64     `json:"previous_version"`
	Version         int64     `json:"version"`
	Reason          string    `json:"reason,omitempty"`
	Lat             *float64  `json:"lat,omitempty"`
	Lng             *float64  `json:"lng,omitempty"`
	Address         string    `json:"address,omitempty"`
	Sequence        int64     `json:"sequence,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewAuditEvent converts an audit entry into its wire form.
func NewAuditEvent(e *domain.AuditEntry) AuditEvent {
	ev := AuditEvent{
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
		lat, lng := e.Location.Lat, e.Location.Lng
		ev.Lat, ev.Lng = &lat, &lng
	}
	return ev
}

// RoutingKey returns the topic routing key for an entry, e.g. "ride_request.dispatch".
func RoutingKey(e *domain.AuditEntry) string {
	return "ride_request." + strings.ToLower(string(e.Kind))
}

// NoopPublisher discards every entry.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *domain.AuditEntry) error { return nil }
func (NoopPublisher) Close() error                                      { return nil }
