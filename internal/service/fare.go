package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ridedispatch/internal/domain"
)

var categoryRates = map[domain.VehicleCategory]domain.CategoryRates{
	domain.CategoryEconomyBike:      {Base: 15, PerKm: 5, PerMin: 0.5},
	domain.CategoryAutoRickshaw:     {Base: 20, PerKm: 7, PerMin: 1},
	domain.CategoryCompactCar:       {Base: 40, PerKm: 10, PerMin: 1.5},
	domain.CategoryPremiumSedan:     {Base: 60, PerKm: 14, PerMin: 2},
	domain.CategoryWomenOnlyPremium: {Base: 70, PerKm: 15, PerMin: 2},
}

// RatesFor returns the fixed fare factors of a category.
func RatesFor(category domain.VehicleCategory) (domain.CategoryRates, bool) {
	r, ok := categoryRates[category]
	return r, ok
}

const (
	studentMinAge          = 13
	studentMaxAge          = 25
	seniorMinAge           = 60
	fallbackSeniorDiscount = 10
	daysPerYear            = 365.25
)

var hundred = decimal.NewFromInt(100)

// FareInput contains the parameters of a fare computation. Rider and Dynamic
// are optional. A zero At means the current time and is only used to derive
// the rider's age.
type FareInput struct {
	DistanceKm     float64
	DurationMins   float64
	Category       domain.VehicleCategory
	Rider          *domain.Rider
	Dynamic        *domain.DynamicPricingConfig
	PassengerCount int
	Config         domain.PricingConfig
	At             time.Time
}

// ComputeFare prices a trip. It is deterministic for a fixed At.
//
// Every eligible discount is listed, but only the largest one is subtracted
// from the total.
func ComputeFare(in FareInput) (*domain.PricingDetails, error) {
	rates, ok := RatesFor(in.Category)
	if !ok {
		return nil, invalidArgument("", "unknown vehicle category %q", in.Category)
	}
	if !nonNegativeFinite(in.DistanceKm) || !nonNegativeFinite(in.DurationMins) {
		return nil, invalidArgument("", "distance and duration must be finite and not negative")
	}

	base := decimal.NewFromFloat(rates.Base)
	surge := decimal.NewFromInt(1)
	if in.Dynamic != nil {
		// Non-finite overrides are ignored.
		if override, ok := in.Dynamic.BaseFares[in.Category]; ok && nonNegativeFinite(override) {
			base = decimal.NewFromFloat(override)
		}
		if m := in.Dynamic.SurgeMultiplier; m != nil && *m > 0 && !math.IsInf(*m, 0) {
			surge = decimal.NewFromFloat(*in.Dynamic.SurgeMultiplier)
		}
	}

	passengers := in.PassengerCount
	if passengers < 1 {
		passengers = 1
	}

	distanceFare := decimal.NewFromFloat(in.DistanceKm).Mul(decimal.NewFromFloat(rates.PerKm))
	timeFare := decimal.NewFromFloat(in.DurationMins).Mul(decimal.NewFromFloat(rates.PerMin))
	gross := base.Add(distanceFare).Add(timeFare).
		Mul(surge).
		Mul(decimal.NewFromInt(int64(passengers)))

	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	discounts, best := discountCandidates(gross, in.Rider, in.Config, at)

	currency := in.Config.Currency
	if currency == "" {
		currency = domain.DefaultPricingConfig().Currency
	}

	return &domain.PricingDetails{
		Category: in.Category,
		Breakdown: domain.FareBreakdown{
			BaseFare:     money(base),
			DistanceFare: money(distanceFare),
			TimeFare:     money(timeFare),
			Gross:        money(gross),
		},
		Discounts:       discounts,
		AppliedDiscount: money(best),
		SurgeMultiplier: surge.InexactFloat64(),
		PassengerCount:  passengers,
		Total:           gross.Sub(best).Round(0).IntPart(),
		Currency:        currency,
	}, nil
}

func nonNegativeFinite(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}

// discountCandidates lists every discount the rider is eligible for and
// returns the largest amount.
func discountCandidates(gross decimal.Decimal, rider *domain.Rider, cfg domain.PricingConfig, at time.Time) ([]domain.Discount, decimal.Decimal) {
	discounts := []domain.Discount{}
	best := decimal.Zero
	if rider == nil {
		return discounts, best
	}

	add := func(typ domain.DiscountType, label string, percent float64) {
		amount := gross.Mul(decimal.NewFromFloat(percent)).Div(hundred)
		discounts = append(discounts, domain.Discount{Type: typ, Label: label, Amount: money(amount)})
		if amount.GreaterThan(best) {
			best = amount
		}
	}

	if rider.BirthDate != nil {
		age := ageAt(*rider.BirthDate, at)
		switch {
		case age >= studentMinAge && age <= studentMaxAge:
			add(domain.DiscountTypeAge, "Student", cfg.StudentDiscountPercent)
		case age >= seniorMinAge:
			percent := cfg.SeniorDiscountPercent
			if percent == 0 {
				percent = fallbackSeniorDiscount
			}
			add(domain.DiscountTypeAge, "Senior", percent)
		}
	}

	if rider.CompletedRides >= cfg.LoyaltyRideThreshold-1 {
		add(domain.DiscountTypeLoyalty, "Loyalty", cfg.LoyaltyDiscountPercent)
	}

	return discounts, best
}

// ageAt returns whole years elapsed, counting a year as 365.25 days.
func ageAt(birth, at time.Time) int {
	days := at.Sub(birth).Hours() / 24
	return int(math.Floor(days / daysPerYear))
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
