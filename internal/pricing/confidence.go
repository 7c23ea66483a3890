package pricing

import "math"

// ConfidenceEstimator scores a prediction from the model confidence plus bonuses for the data
// that was available.
type ConfidenceEstimator struct {
	MarketBonus   float64
	CustomerBonus float64
	Cap           float64
}

// Estimate returns a confidence in [0, Cap].
func (e ConfidenceEstimator) Estimate(modelConfidence float64, hasMarketData, hasCustomerProfile bool) float64 {
	confidence := modelConfidence
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	}
	if hasMarketData {
		confidence += e.MarketBonus
	}
	if hasCustomerProfile {
		confidence += e.CustomerBonus
	}
	return math.Min(confidence, e.Cap)
}

// Range returns the interval around price whose half-width is (1 - confidence) / 2 of the price.
func (e ConfidenceEstimator) Range(price, confidence float64) PriceRange {
	variance := 1 - confidence
	return PriceRange{
		Min: price * (1 - variance*0.5),
		Max: price * (1 + variance*0.5),
	}
}
