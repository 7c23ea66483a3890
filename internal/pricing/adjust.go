package pricing

import (
	"fmt"
	"math"
)

// MarketAdjuster nudges a price back towards the market average once it deviates by more
// than Threshold.
type MarketAdjuster struct {
	Threshold float64
	PullDown  float64
	PushUp    float64
}

// Adjust returns the corrected price and the fraction applied. A nil point leaves the price
// unchanged; a point without a usable average is compared against basePrice instead.
func (m MarketAdjuster) Adjust(price float64, point *MarketDataPoint, basePrice float64) (float64, float64) {
	if point == nil {
		return price, 0
	}
	average := marketAverage(point, basePrice)
	if average <= 0 {
		return price, 0
	}
	deviation := (price - average) / average
	if math.Abs(deviation) <= m.Threshold {
		return price, 0
	}
	nudge := m.PushUp
	if deviation > 0 {
		nudge = m.PullDown
	}
	return price * (1 + nudge), nudge
}

// Step wraps Adjust as a pipeline step. basePrice is the unit price from the formula.
func (m MarketAdjuster) Step(point *MarketDataPoint, basePrice float64) Step {
	return func(price float64) (float64, Adjustment) {
		adj := Adjustment{Stage: StageMarket, Name: "market adjustment"}
		next, fraction := m.Adjust(price, point, basePrice)
		switch {
		case point == nil:
			adj.Description = "no market data"
		case marketAverage(point, basePrice) <= 0:
			adj.Description = "market data has no average price"
		case fraction == 0:
			adj.Description = "within market tolerance"
		default:
			adj.Applied = true
			adj.Fraction = fraction
			adj.Description = fmt.Sprintf("%s%% towards market average of £%s", formatNumber(fraction*100), formatNumber(marketAverage(point, basePrice)))
		}
		return next, adj
	}
}

func marketAverage(point *MarketDataPoint, basePrice float64) float64 {
	if point.AveragePrice > 0 {
		return point.AveragePrice
	}
	return basePrice
}

// CustomerAdjuster discounts prices for customers whose historical acceptance is below
// AcceptanceThreshold.
type CustomerAdjuster struct {
	AcceptanceThreshold float64
	Discount            float64
}

// Adjust returns the adjusted price and the fraction applied.
func (c CustomerAdjuster) Adjust(price float64, profile *CustomerProfile) (float64, float64) {
	if profile == nil || profile.PriceAcceptance >= c.AcceptanceThreshold {
		return price, 0
	}
	return price * (1 + c.Discount), c.Discount
}

// Step wraps Adjust as a pipeline step.
func (c CustomerAdjuster) Step(profile *CustomerProfile) Step {
	return func(price float64) (float64, Adjustment) {
		adj := Adjustment{Stage: StageCustomer, Name: "customer adjustment"}
		next, fraction := c.Adjust(price, profile)
		switch {
		case profile == nil:
			adj.Description = "no customer profile"
		case fraction == 0:
			adj.Description = "customer not price sensitive"
		default:
			adj.Applied = true
			adj.Fraction = fraction
			adj.Description = fmt.Sprintf("%s%% price sensitivity adjustment for %s", formatNumber(fraction*100), profile.CustomerName)
		}
		return next, adj
	}
}
