package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// FareHandler handles fare estimation requests.
type FareHandler struct {
	fareService *service.FareService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService) *FareHandler {
	return &FareHandler{fareService: fareService}
}

// EstimateFareBody is the HTTP request body for a fare estimate.
type EstimateFareBody struct {
	DistanceKm     float64    `json:"distance_km"`
	DurationMins   float64    `json:"duration_mins"`
	Category       string     `json:"category" binding:"required"`
	PassengerCount int        `json:"passenger_count,omitempty"`
	Rider          *RiderBody `json:"rider,omitempty"`
}

// RiderBody carries the rider attributes relevant to discounts.
type RiderBody struct {
	ID             string `json:"id,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"` // YYYY-MM-DD
	CompletedRides int    `json:"completed_rides"`
}

// DiscountResponse is one eligible discount.
type DiscountResponse struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// EstimateFareResponse is the HTTP response for a fare estimate.
type EstimateFareResponse struct {
	Category        string             `json:"category"`
	BaseFare        float64            `json:"base_fare"`
	DistanceFare    float64            `json:"distance_fare"`
	TimeFare        float64            `json:"time_fare"`
	GrossFare       float64            `json:"gross_fare"`
	SurgeMultiplier float64            `json:"surge_multiplier"`
	PassengerCount  int                `json:"passenger_count"`
	Discounts       []DiscountResponse `json:"discounts"`
	AppliedDiscount float64            `json:"applied_discount"`
	Total           int64              `json:"total"`
	Currency        string             `json:"currency"`
}

// Estimate handles POST /v1/fares/estimate
func (h *FareHandler) Estimate(c *gin.Context) {
	var req EstimateFareBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var rider *domain.Rider
	if req.Rider != nil {
		rider = &domain.Rider{ID: req.Rider.ID, CompletedRides: req.Rider.CompletedRides}
		if req.Rider.BirthDate != "" {
			bd, err := time.Parse(time.DateOnly, req.Rider.BirthDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "birth_date must be YYYY-MM-DD"})
				return
			}
			rider.BirthDate = &bd
		}
	}

	details, err := h.fareService.Quote(c.Request.Context(), service.QuoteRequest{
		DistanceKm:     req.DistanceKm,
		DurationMins:   req.DurationMins,
		Category:       domain.VehicleCategory(req.Category),
		Rider:          rider,
		PassengerCount: req.PassengerCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	discounts := make([]DiscountResponse, 0, len(details.Discounts))
	for _, d := range details.Discounts {
		discounts = append(discounts, DiscountResponse{Type: string(d.Type), Label: d.Label, Amount: d.Amount})
	}

	respondJSON(c, http.StatusOK, EstimateFareResponse{
		Category:        string(details.Category),
		BaseFare:        details.Breakdown.BaseFare,
		DistanceFare:    details.Breakdown.DistanceFare,
		TimeFare:        details.Breakdown.TimeFare,
		GrossFare:       details.Breakdown.Gross,
		SurgeMultiplier: details.SurgeMultiplier,
		PassengerCount:  details.PassengerCount,
		Discounts:       discounts,
		AppliedDiscount: details.AppliedDiscount,
		Total:           details.Total,
		Currency:        details.Currency,
	})
}
