package domain

import "time"

// VehicleCategory is a bookable ride category.
type VehicleCategory string

const (
	CategoryEconomyBike      VehicleCategory = "ECONOMY_BIKE"
	CategoryAutoRickshaw     VehicleCategory = "AUTO_RICKSHAW"
	CategoryCompactCar       VehicleCategory = "COMPACT_CAR"
	CategoryPremiumSedan     VehicleCategory = "PREMIUM_SEDAN"
	CategoryWomenOnlyPremium VehicleCategory = "WOMEN_ONLY_PREMIUM"
)

// CategoryRates are the fixed fare factors of a category.
type CategoryRates struct {
	Base   float64
	PerKm  float64
	PerMin float64
}

// DiscountType classifies a discount candidate.
type DiscountType string

const (
	DiscountTypeAge     DiscountType = "AGE"
	DiscountTypeLoyalty DiscountType = "LOYALTY"
)

// Discount is one eligible discount candidate.
type Discount struct {
	Type   DiscountType
	Label  string
	Amount float64
}

// PricingConfig holds the deployment-wide discount policy.
type PricingConfig struct {
	Currency               string
	StudentDiscountPercent float64
	SeniorDiscountPercent  float64
	LoyaltyDiscountPercent float64
	LoyaltyRideThreshold   int
}

// DefaultPricingConfig returns the policy used when nothing is configured.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Currency:               "INR",
		StudentDiscountPercent: 5,
		SeniorDiscountPercent:  10,
		LoyaltyDiscountPercent: 10,
		LoyaltyRideThreshold:   10,
	}
}

// DynamicPricingConfig is the admin-managed override set. Nil fields mean
// "not configured".
type DynamicPricingConfig struct {
	BaseFares       map[VehicleCategory]float64
	SurgeMultiplier *float64
	UpdatedAt       time.Time
}

// Rider carries the attributes the fare engine needs for discounts.
type Rider struct {
	ID             string
	BirthDate      *time.Time
	CompletedRides int
}

// FareBreakdown splits the fare into its components. BaseFare, DistanceFare
// and TimeFare are per passenger before surge; Gross includes surge and the
// passenger multiplier.
type FareBreakdown struct {
	BaseFare     float64
	DistanceFare float64
	TimeFare     float64
	Gross        float64
}

// PricingDetails is the outcome of a fare computation. Discounts lists every
// eligible candidate while only the largest one is subtracted from Total.
type PricingDetails struct {
	Category        VehicleCategory
	Breakdown       FareBreakdown
	Discounts       []Discount
	AppliedDiscount float64
	SurgeMultiplier float64
	PassengerCount  int
	Total           int64
	Currency        string
}
