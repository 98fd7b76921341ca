package service

import (
	"errors"
	"fmt"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

var (
	// ErrRideRequestNotFound is returned when the ride request does not exist.
	ErrRideRequestNotFound = errors.New("ride request not found")

	// ErrInvalidState is returned when the ride request is no longer SEARCHING.
	ErrInvalidState = errors.New("ride request not in searching state")

	// ErrAlreadyDeclined is returned when dispatching to a driver who declined.
	ErrAlreadyDeclined = errors.New("driver already declined ride request")

	// ErrStoreConflict is returned when a concurrent write prevented the commit.
	ErrStoreConflict = errors.New("store conflict")

	// ErrStoreUnavailable is returned when the store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidArgument is returned when the input fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorKind classifies a dispatch failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindInvalidState     ErrorKind = "INVALID_STATE"
	KindAlreadyDeclined  ErrorKind = "ALREADY_DECLINED"
	KindStoreConflict    ErrorKind = "STORE_CONFLICT"
	KindStoreUnavailable ErrorKind = "STORE_UNAVAILABLE"
	KindInvalidArgument  ErrorKind = "INVALID_ARGUMENT"
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:         ErrRideRequestNotFound,
	KindInvalidState:     ErrInvalidState,
	KindAlreadyDeclined:  ErrAlreadyDeclined,
	KindStoreConflict:    ErrStoreConflict,
	KindStoreUnavailable: ErrStoreUnavailable,
	KindInvalidArgument:  ErrInvalidArgument,
}

// DispatchError is the structured failure returned by the dispatch operations.
// Status is set for InvalidState and carries the status observed in the
// transaction.
type DispatchError struct {
	Kind          ErrorKind
	RideRequestID string
	Status        domain.RideStatus
	Err           error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: ride request %s", kindSentinels[e.Kind], e.RideRequestID)
	if e.Status != "" {
		msg += fmt.Sprintf(" (status %s)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *DispatchError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether repeating the call with identical inputs may succeed.
func (e *DispatchError) Retryable() bool {
	return e.Kind == KindStoreConflict || e.Kind == KindStoreUnavailable
}

// KindOf returns the kind of a DispatchError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

func newError(kind ErrorKind, id string, err error) *DispatchError {
	return &DispatchError{Kind: kind, RideRequestID: id, Err: err}
}

func invalidArgument(id, format string, args ...any) *DispatchError {
	return newError(KindInvalidArgument, id, fmt.Errorf(format, args...))
}

func invalidState(id string, status domain.RideStatus) *DispatchError {
	return &DispatchError{Kind: KindInvalidState, RideRequestID: id, Status: status}
}

// mapStoreError translates repository failures into dispatch errors. A
// DispatchError raised inside the transaction passes through unchanged.
func mapStoreError(id string, err error) error {
	if err == nil {
		return nil
	}

	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(KindNotFound, id, nil)
	case errors.Is(err, repository.ErrConflict):
		return newError(KindStoreConflict, id, err)
	default:
		// ErrUnavailable, context expiry and unclassified driver failures.
		return newError(KindStoreUnavailable, id, err)
	}
}
