package pricing

import "time"

// Config holds the tunables of the prediction engine.
type Config struct {
	LookupTimeout time.Duration
	SinkTimeout   time.Duration

	MarketDeviationThreshold float64
	MarketPullDown           float64
	MarketPushUp             float64

	CustomerAcceptanceThreshold float64
	CustomerDiscount            float64

	MarketDataBonus   float64
	CustomerDataBonus float64
	ConfidenceCap     float64

	DefaultMaxDiscount float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		LookupTimeout:               2 * time.Second,
		SinkTimeout:                 5 * time.Second,
		MarketDeviationThreshold:    0.15,
		MarketPullDown:              -0.05,
		MarketPushUp:                0.03,
		CustomerAcceptanceThreshold: 0.7,
		CustomerDiscount:            -0.08,
		MarketDataBonus:             0.05,
		CustomerDataBonus:           0.03,
		ConfidenceCap:               0.98,
		DefaultMaxDiscount:          0.2,
	}
}
