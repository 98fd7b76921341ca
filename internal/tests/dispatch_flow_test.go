package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// 1. DISPATCH LIFECYCLE
// ──────────────────────────────────────────────

func newSearchingRide(id string) *domain.RideRequest {
	return domain.NewRideRequest(id, "rider-1", time.Now())
}

func TestDispatchFlow_FullScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMockRideRequestRepository(newSearchingRide("r1"))
	cache := NewMockDispatchStateCache()
	pickups := NewMockPickupIndex()
	publisher := NewMockPublisher()
	svc := service.NewDispatchService(repo, cache, pickups, publisher, nil)

	steps := []struct {
		name        string
		run         func() (*service.Result, error)
		wantVersion int64
		wantReplay  bool
		wantErr     error
	}{
		{"dispatch d1", func() (*service.Result, error) { return svc.Dispatch(ctx, "r1", "d1") }, 1, false, nil},
		{"d1 declines", func() (*service.Result, error) { return svc.Decline(ctx, "r1", "d1", "too far") }, 2, false, nil},
		{"redispatch d1", func() (*service.Result, error) { return svc.Dispatch(ctx, "r1", "d1") }, 0, false, service.ErrAlreadyDeclined},
		{"dispatch d2", func() (*service.Result, error) { return svc.Dispatch(ctx, "r1", "d2") }, 3, false, nil},
		{"location seq 1", func() (*service.Result, error) {
			return svc.UpdateLocation(ctx, "r1", service.UpdateLocationInput{Lat: 12.9716, Lng: 77.5946, Address: "Gate 1", Sequence: 1})
		}, 4, false, nil},
		{"duplicate seq 1", func() (*service.Result, error) {
			return svc.UpdateLocation(ctx, "r1", service.UpdateLocationInput{Lat: 12.9716, Lng: 77.5946, Address: "Gate 1", Sequence: 1})
		}, 4, true, nil},
	}

	for _, step := range steps {
		res, err := step.run()
		if step.wantErr != nil {
			if !errors.Is(err, step.wantErr) {
				t.Fatalf("%s: expected %v, got %v", step.name, step.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", step.name, err)
		}
		if res.Version != step.wantVersion {
			t.Errorf("%s: version = %d, want %d", step.name, res.Version, step.wantVersion)
		}
		if res.AlreadyProcessed != step.wantReplay {
			t.Errorf("%s: alreadyProcessed = %v, want %v", step.name, res.AlreadyProcessed, step.wantReplay)
		}
	}

	// Every committed transition is published exactly once, in order.
	published := publisher.Published()
	if len(published) != 4 {
		t.Fatalf("expected 4 published entries, got %d", len(published))
	}
	wantKinds := []domain.AuditKind{domain.AuditKindDispatch, domain.AuditKindDecline, domain.AuditKindDispatch, domain.AuditKindLocation}
	for i, e := range published {
		if e.Kind != wantKinds[i] {
			t.Errorf("entry %d: kind = %s, want %s", i, e.Kind, wantKinds[i])
		}
		if e.Version != int64(i+1) {
			t.Errorf("entry %d: version = %d, want %d", i, e.Version, i+1)
		}
	}

	state := cache.State("r1")
	if state == nil || state.Version != 4 {
		t.Fatalf("expected cached state at version 4, got %+v", state)
	}
	if !pickups.Has("r1") {
		t.Error("expected pickup to be indexed after location update")
	}
}

func TestDispatchFlow_ReplaysHaveNoSideEffects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMockRideRequestRepository(newSearchingRide("r1"))
	publisher := NewMockPublisher()
	svc := service.NewDispatchService(repo, nil, nil, publisher, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Dispatch(ctx, "r1", "d1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Decline(ctx, "r1", "d2", "busy"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if n := len(publisher.Published()); n != 2 {
		t.Errorf("expected 2 published entries, got %d", n)
	}
	if n := repo.CommittedUpdates(); n != 2 {
		t.Errorf("expected 2 committed updates, got %d", n)
	}
}

func TestDispatchFlow_IdempotencyKeysAreDerivable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMockRideRequestRepository(newSearchingRide("r1"))
	svc := service.NewDispatchService(repo, nil, nil, nil, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Dispatch(ctx, "r1", fmt.Sprintf("d%d", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := svc.AuditTrail(ctx, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, e := range entries {
		want := domain.DispatchIdempotencyKey("r1", fmt.Sprintf("d%d", i), int64(i))
		if e.IdempotencyKey != want {
			t.Errorf("entry %d: key = %q, want %q", i, e.IdempotencyKey, want)
		}
	}
}

// ──────────────────────────────────────────────
// 2. STORE FAILURES
// ──────────────────────────────────────────────

func TestDispatchFlow_StoreFailuresAreClassified(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		storeErr  error
		want      error
		retryable bool
	}{
		{"conflict", fmt.Errorf("%w: serialization failure", repository.ErrConflict), service.ErrStoreConflict, true},
		{"unavailable", repository.ErrUnavailable, service.ErrStoreUnavailable, true},
		{"deadline", context.DeadlineExceeded, service.ErrStoreUnavailable, true},
		{"not found", repository.ErrNotFound, service.ErrRideRequestNotFound, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewMockRideRequestRepository(newSearchingRide("r1"))
			repo.UpdateError = tc.storeErr
			publisher := NewMockPublisher()
			svc := service.NewDispatchService(repo, nil, nil, publisher, nil)

			_, err := svc.Dispatch(context.Background(), "r1", "d1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			var de *service.DispatchError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DispatchError, got %T", err)
			}
			if de.Retryable() != tc.retryable {
				t.Errorf("retryable = %v, want %v", de.Retryable(), tc.retryable)
			}
			if len(publisher.Published()) != 0 {
				t.Error("nothing should be published when the transaction fails")
			}
		})
	}
}

func TestDispatchFlow_RetryAfterConflictIsSafe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMockRideRequestRepository(newSearchingRide("r1"))
	svc := service.NewDispatchService(repo, nil, nil, nil, nil)

	repo.UpdateError = repository.ErrConflict
	if _, err := svc.Dispatch(ctx, "r1", "d1"); !errors.Is(err, service.ErrStoreConflict) {
		t.Fatalf("expected ErrStoreConflict, got %v", err)
	}

	repo.UpdateError = nil
	res, err := svc.Dispatch(ctx, "r1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Version != 1 || res.AlreadyProcessed {
		t.Errorf("expected first commit at version 1, got %+v", res)
	}

	res, err = svc.Dispatch(ctx, "r1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AlreadyProcessed {
		t.Error("expected second retry to be a replay")
	}
}
