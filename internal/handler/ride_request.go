package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// RideRequestHandler handles HTTP requests for ride request dispatch.
type RideRequestHandler struct {
	dispatchService *service.DispatchService
}

// NewRideRequestHandler creates a new RideRequestHandler.
func NewRideRequestHandler(dispatchService *service.DispatchService) *RideRequestHandler {
	return &RideRequestHandler{dispatchService: dispatchService}
}

// CreateRideRequestBody is the HTTP request body for creating a ride request.
type CreateRideRequestBody struct {
	RiderID        string  `json:"rider_id"`
	PickupLat      float64 `json:"pickup_lat"`
	PickupLng      float64 `json:"pickup_lng"`
	PickupAddress  string  `json:"pickup_address"`
	DropoffLat     float64 `json:"dropoff_lat"`
	DropoffLng     float64 `json:"dropoff_lng"`
	DropoffAddress string  `json:"dropoff_address"`
	Category       string  `json:"category,omitempty"`
	EstimatedFare  float64 `json:"estimated_fare,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	PassengerCount int     `json:"passenger_count,omitempty"`
}

// DispatchBody is the HTTP request body for dispatching a driver.
type DispatchBody struct {
	DriverID string `json:"driver_id"`
}

// DeclineBody is the HTTP request body for a driver decline.
type DeclineBody struct {
	DriverID string `json:"driver_id"`
	Reason   string `json:"reason,omitempty"`
}

// LocationBody is the HTTP request body for a pickup update.
type LocationBody struct {
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
	Address string   `json:"address"`
	Seq     int64    `json:"seq"`
}

// RideRequestResponse is the HTTP representation of a ride request.
type RideRequestResponse struct {
	ID                string   `json:"id"`
	RiderID           string   `json:"rider_id"`
	Status            string   `json:"status"`
	Version           int64    `json:"version"`
	DispatchedDrivers []string `json:"dispatched_drivers"`
	DeclinedDrivers   []string `json:"declined_drivers"`
	LocationSequence  int64    `json:"location_sequence"`
	PickupLat         float64  `json:"pickup_lat"`
	PickupLng         float64  `json:"pickup_lng"`
	PickupAddress     string   `json:"pickup_address"`
	DropoffLat        float64  `json:"dropoff_lat"`
	DropoffLng        float64  `json:"dropoff_lng"`
	DropoffAddress    string   `json:"dropoff_address"`
	Category          string   `json:"category,omitempty"`
	PassengerCount    int      `json:"passenger_count"`
	EstimatedFare     float64  `json:"estimated_fare,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
	LocationUpdatedAt string   `json:"location_updated_at,omitempty"`
}

// OperationResponse is the HTTP response of dispatch, decline and location updates.
type OperationResponse struct {
	RideRequestID    string `json:"ride_request_id"`
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed"`
	Version          int64  `json:"version"`
	LocationSequence int64  `json:"location_sequence"`
	Status           string `json:"status"`
}

// AuditEntryResponse is the HTTP representation of an audit entry.
type AuditEntryResponse struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	ActorID         string   `json:"actor_id"`
	IdempotencyKey  string   `json:"idempotency_key"`
	PreviousVersion int64    `json:"previous_version"`
	Version         int64    `json:"version"`
	Reason          string   `json:"reason,omitempty"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	Address         string   `json:"address,omitempty"`
	Sequence        int64    `json:"sequence,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// PickupResponse is one entry of a pending pickup search.
type PickupResponse struct {
	RideRequestID string  `json:"ride_request_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	DistanceKm    float64 `json:"distance_km"`
}

// Create handles POST /v1/ride-requests
func (h *RideRequestHandler) Create(c *gin.Context) {
	var req CreateRideRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.dispatchService.Create(c.Request.Context(), service.CreateRideRequestInput{
		RiderID:        req.RiderID,
		Pickup:         domain.Location{Lat: req.PickupLat, Lng: req.PickupLng},
		PickupAddress:  req.PickupAddress,
		Dropoff:        domain.Location{Lat: req.DropoffLat, Lng: req.DropoffLng},
		DropoffAddress: req.DropoffAddress,
		Category:       domain.VehicleCategory(req.Category),
		EstimatedFare:  req.EstimatedFare,
		Currency:       req.Currency,
		PassengerCount: req.PassengerCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideRequestResponse(ride))
}

// Get handles GET /v1/ride-requests/:id
func (h *RideRequestHandler) Get(c *gin.Context) {
	ride, err := h.dispatchService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideRequestResponse(ride))
}

// AuditTrail handles GET /v1/ride-requests/:id/audit
func (h *RideRequestHandler) AuditTrail(c *gin.Context) {
	entries, err := h.dispatchService.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toAuditEntryResponse(e))
	}
	respondJSON(c, http.StatusOK, resp)
}

// Dispatch handles POST /v1/ride-requests/:id/dispatch
func (h *RideRequestHandler) Dispatch(c *gin.Context) {
	var req DispatchBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	res, err := h.dispatchService.Dispatch(c.Request.Context(), id, req.DriverID)
	respondOperation(c, id, res, err)
}

// Decline handles POST /v1/ride-requests/:id/decline
func (h *RideRequestHandler) Decline(c *gin.Context) {
	var req DeclineBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	res, err := h.dispatchService.Decline(c.Request.Context(), id, req.DriverID, req.Reason)
	respondOperation(c, id, res, err)
}

// UpdateLocation handles POST /v1/ride-requests/:id/location
func (h *RideRequestHandler) UpdateLocation(c *gin.Context) {
	var req LocationBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := c.Param("id")
	res, err := h.dispatchService.UpdateLocation(c.Request.Context(), id, service.UpdateLocationInput{
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		Address:  req.Address,
		Sequence: req.Seq,
	})
	respondOperation(c, id, res, err)
}

// HasBeenDispatched handles GET /v1/ride-requests/:id/drivers/:driverId/dispatched
func (h *RideRequestHandler) HasBeenDispatched(c *gin.Context) {
	id, driverID := c.Param("id"), c.Param("driverId")
	dispatched, err := h.dispatchService.HasBeenDispatched(c.Request.Context(), id, driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"ride_request_id": id,
		"driver_id":       driverID,
		"dispatched":      dispatched,
	})
}

// FindPendingPickups handles GET /v1/ride-requests/pickups?lat=&lng=&radius_km=
func (h *RideRequestHandler) FindPendingPickups(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	radius, errRadius := strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64)
	if errLat != nil || errLng != nil || errRadius != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat, lng and radius_km must be numbers"})
		return
	}

	found, err := h.dispatchService.FindPendingPickups(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PickupResponse, 0, len(found))
	for _, p := range found {
		resp = append(resp, PickupResponse{
			RideRequestID: p.RideRequestID,
			Lat:           p.Lat,
			Lng:           p.Lng,
			DistanceKm:    p.DistanceKm,
		})
	}
	respondJSON(c, http.StatusOK, resp)
}

func respondOperation(c *gin.Context, id string, res *service.Result, err error) {
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OperationResponse{
		RideRequestID:    id,
		Success:          true,
		AlreadyProcessed: res.AlreadyProcessed,
		Version:          res.Version,
		LocationSequence: res.LocationSequence,
		Status:           string(res.Status),
	})
}

func toRideRequestResponse(r *domain.RideRequest) RideRequestResponse {
	resp := RideRequestResponse{
		ID:                r.ID,
		RiderID:           r.RiderID,
		Status:            string(r.Status),
		Version:           r.Version,
		DispatchedDrivers: r.DispatchedDrivers.Slice(),
		DeclinedDrivers:   r.DeclinedDrivers.Slice(),
		LocationSequence:  r.LocationSequence,
		PickupLat:         r.PickupLocation.Lat,
		PickupLng:         r.PickupLocation.Lng,
		PickupAddress:     r.PickupAddress,
		DropoffLat:        r.DropoffLocation.Lat,
		DropoffLng:        r.DropoffLocation.Lng,
		DropoffAddress:    r.DropoffAddress,
		Category:          string(r.Category),
		PassengerCount:    r.PassengerCount,
		EstimatedFare:     r.EstimatedFare,
		Currency:          r.Currency,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.Format(time.RFC3339),
	}
	if !r.LocationUpdatedAt.IsZero() {
		resp.LocationUpdatedAt = r.LocationUpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func toAuditEntryResponse(e *domain.AuditEntry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:              e.ID,
		Kind:            string(e.Kind),
		ActorID:         e.ActorID,
		IdempotencyKey:  e.IdempotencyKey,
		PreviousVersion: e.PreviousVersion,
		Version:         e.Version,
		Reason:          e.Reason,
		Address:         e.Address,
		Sequence:        e.Sequence,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.Location != nil {
		lat, lng := e.Location.Lat, e.Location.Lng
		resp.Lat, resp.Lng = &lat, &lng
	}
	return resp
}
