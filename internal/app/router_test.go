package app_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridedispatch/internal/app"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/logging"
	"ridedispatch/internal/repository/memory"
	"ridedispatch/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.RideRequestRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewRideRequestRepository()
	log := logging.Nop()
	dispatchService := service.NewDispatchService(repo, nil, nil, nil, log)
	fareService := service.NewFareService(memory.NewPricingConfigRepository(), domain.DefaultPricingConfig(), log)

	router := app.NewRouter(app.RouterDeps{
		RideRequestHandler: handler.NewRideRequestHandler(dispatchService),
		FareHandler:        handler.NewFareHandler(fareService),
		Logger:             log,
	})
	return router, repo
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createRide(t *testing.T, router *gin.Engine) handler.RideRequestResponse {
	t.Helper()
	w := do(t, router, http.MethodPost, "/v1/ride-requests", handler.CreateRideRequestBody{
		RiderID:   "rider-1",
		PickupLat: 12.9716, PickupLng: 77.5946,
		DropoffLat: 12.9352, DropoffLng: 77.6245,
		Category: string(domain.CategoryAutoRickshaw),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[handler.RideRequestResponse](t, w)
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CreateAndGet(t *testing.T) {
	router, _ := newTestRouter(t)
	ride := createRide(t, router)

	assert.Equal(t, "SEARCHING", ride.Status)
	assert.EqualValues(t, 0, ride.Version)
	assert.Empty(t, ride.DispatchedDrivers)
	assert.Equal(t, 1, ride.PassengerCount)

	w := do(t, router, http.MethodGet, "/v1/ride-requests/"+ride.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ride.ID, decode[handler.RideRequestResponse](t, w).ID)
}

func TestRouter_CreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/ride-requests", handler.CreateRideRequestBody{PickupLat: 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode[handler.ErrorResponse](t, w).Kind)

	w = do(t, router, http.MethodPost, "/v1/ride-requests", handler.CreateRideRequestBody{RiderID: "r", PickupLat: 91})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_DispatchDeclineFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	ride := createRide(t, router)
	base := "/v1/ride-requests/" + ride.ID

	w := do(t, router, http.MethodPost, base+"/dispatch", handler.DispatchBody{DriverID: "d1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	op := decode[handler.OperationResponse](t, w)
	assert.False(t, op.AlreadyProcessed)
	assert.EqualValues(t, 1, op.Version)

	w = do(t, router, http.MethodPost, base+"/dispatch", handler.DispatchBody{DriverID: "d1"})
	require.Equal(t, http.StatusOK, w.Code)
	op = decode[handler.OperationResponse](t, w)
	assert.True(t, op.AlreadyProcessed)
	assert.EqualValues(t, 1, op.Version)

	w = do(t, router, http.MethodGet, base+"/drivers/d1/dispatched", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["dispatched"])

	w = do(t, router, http.MethodPost, base+"/decline", handler.DeclineBody{DriverID: "d1", Reason: "busy"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[handler.OperationResponse](t, w).Version)

	w = do(t, router, http.MethodPost, base+"/dispatch", handler.DispatchBody{DriverID: "d1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, "ALREADY_DECLINED", errResp.Kind)
	assert.False(t, errResp.Retryable)

	w = do(t, router, http.MethodGet, base+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]handler.AuditEntryResponse](t, w)
	require.Len(t, entries, 2)
	assert.Equal(t, "DISPATCH", entries[0].Kind)
	assert.Equal(t, "DECLINE", entries[1].Kind)
	assert.Equal(t, "busy", entries[1].Reason)
}

func TestRouter_InvalidStateCarriesStatus(t *testing.T) {
	router, repo := newTestRouter(t)
	ride := createRide(t, router)
	require.NoError(t, repo.SetStatus(ride.ID, domain.RideStatusAccepted))

	w := do(t, router, http.MethodPost, "/v1/ride-requests/"+ride.ID+"/dispatch", handler.DispatchBody{DriverID: "d1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[handler.ErrorResponse](t, w)
	assert.Equal(t, "INVALID_STATE", errResp.Kind)
	assert.Equal(t, "ACCEPTED", errResp.Status)
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/ride-requests/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/v1/ride-requests/missing/dispatch", handler.DispatchBody{DriverID: "d1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[handler.ErrorResponse](t, w).Kind)
}

func TestRouter_UpdateLocation(t *testing.T) {
	router, _ := newTestRouter(t)
	ride := createRide(t, router)
	path := "/v1/ride-requests/" + ride.ID + "/location"

	w := do(t, router, http.MethodPost, path, map[string]any{"lat": 12.3456789, "lng": 77.1234561, "seq": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	op := decode[handler.OperationResponse](t, w)
	assert.EqualValues(t, 1, op.LocationSequence)
	assert.False(t, op.AlreadyProcessed)

	w = do(t, router, http.MethodPost, path, map[string]any{"lat": 1.0, "lng": 1.0, "seq": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[handler.OperationResponse](t, w).AlreadyProcessed)

	w = do(t, router, http.MethodGet, "/v1/ride-requests/"+ride.ID, nil)
	got := decode[handler.RideRequestResponse](t, w)
	assert.Equal(t, 12.345679, got.PickupLat)
	assert.Equal(t, 77.123456, got.PickupLng)
	assert.NotEmpty(t, got.LocationUpdatedAt)

	// Missing coordinates are rejected by binding.
	w = do(t, router, http.MethodPost, path, map[string]any{"seq": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, path, map[string]any{"lat": 12.0, "lng": 77.0, "seq": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PendingPickupsWithoutIndex(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/ride-requests/pickups?lat=12.97&lng=77.59", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]handler.PickupResponse](t, w))

	w = do(t, router, http.MethodGet, "/v1/ride-requests/pickups?lat=abc&lng=77.59", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_FareEstimate(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/fares/estimate", handler.EstimateFareBody{
		DistanceKm:   5,
		DurationMins: 20,
		Category:     string(domain.CategoryAutoRickshaw),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[handler.EstimateFareResponse](t, w)
	assert.EqualValues(t, 75, resp.Total)
	assert.Empty(t, resp.Discounts)

	w = do(t, router, http.MethodPost, "/v1/fares/estimate", handler.EstimateFareBody{
		DistanceKm: 5,
		Category:   string(domain.CategoryAutoRickshaw),
		Rider:      &handler.RiderBody{BirthDate: "01/02/2000"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/v1/fares/estimate", map[string]any{"distance_km": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
