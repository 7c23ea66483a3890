// Package pricing predicts quote prices for glazing products.
//
// A prediction starts from the best pricing model of the requested category, evaluates its factor
// formula against the request specification, folds the ordered pricing rules over the running price,
// corrects towards the latest market data point and the customer's price sensitivity, and finally
// derives a confidence score, a price range and advisory recommendations.
package pricing

import (
	"time"
)

// WildcardCategory matches every request category when used as a rule category.
const WildcardCategory = "All"

// Trend is the qualitative direction of a market data point.
type Trend string

// Market trends.
const (
	TrendRising  Trend = "RISING"
	TrendFalling Trend = "FALLING"
	TrendStable  Trend = "STABLE"
)

// Model is a category pricing model: a base price and a factor formula.
type Model struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BasePrice   float64 `json:"basePrice"`
	Formula     Formula `json:"formula"`
	Confidence  float64 `json:"confidence"`
	IsActive    bool    `json:"isActive"`
}

// MarketDataPoint is one observation of market pricing for a category/product.
type MarketDataPoint struct {
	ID           int64     `json:"id"`
	DataType     string    `json:"dataType"`
	Source       string    `json:"source"`
	Category     string    `json:"category"`
	Product      string    `json:"product"`
	Region       string    `json:"region"`
	AveragePrice float64   `json:"averagePrice"`
	MinPrice     float64   `json:"minPrice"`
	MaxPrice     float64   `json:"maxPrice"`
	Trend        Trend     `json:"trend"`
	Confidence   float64   `json:"confidence"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// CustomerProfile summarises a customer's historical reaction to quoted prices.
// PriceAcceptance is in [0,1], higher meaning less price sensitive.
type CustomerProfile struct {
	CustomerName    string  `json:"customerName"`
	BehaviorType    string  `json:"behaviorType"`
	Category        string  `json:"category"`
	AverageValue    float64 `json:"averageValue"`
	PriceAcceptance float64 `json:"priceAcceptance"`
	NegotiationRate float64 `json:"negotiationRate"`
}

// Rule is a configurable pricing rule. Lower priorities are evaluated first.
type Rule struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Conditions  Conditions `json:"conditions"`
	Actions     Actions    `json:"actions"`
	Priority    int        `json:"priority"`
	IsActive    bool       `json:"isActive"`
}

// Request is an inbound prediction request.
type Request struct {
	Product        string        `json:"product"`
	Category       string        `json:"category"`
	Quantity       float64       `json:"quantity,omitempty"`
	Specifications Specification `json:"specifications"`
	CustomerName   string        `json:"customerName,omitempty"`
	Urgency        string        `json:"urgency,omitempty"`
}

// PriceRange is the symmetric interval around a predicted price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AppliedRule describes a rule that changed the running price.
type AppliedRule struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Adjustment string `json:"adjustment"`
}

// Breakdown lists the factors that produced a predicted price.
type Breakdown struct {
	BasePrice          float64       `json:"basePrice"`
	Quantity           float64       `json:"quantity"`
	MarketAdjustment   float64       `json:"marketAdjustment"`
	CustomerAdjustment float64       `json:"customerAdjustment"`
	AppliedRules       []AppliedRule `json:"appliedRules"`
}

// MarketContext summarises the market data point used by a prediction.
type MarketContext struct {
	AveragePrice float64 `json:"averagePrice"`
	Trend        Trend   `json:"trend"`
	Source       string  `json:"source"`
}

// Result is the outcome of a prediction.
type Result struct {
	PredictedPrice  float64        `json:"predictedPrice"`
	Confidence      float64        `json:"confidence"`
	PriceRange      PriceRange     `json:"priceRange"`
	Factors         Breakdown      `json:"factors"`
	Recommendations []string       `json:"recommendations"`
	ModelUsed       string         `json:"modelUsed"`
	MarketContext   *MarketContext `json:"marketContext"`
	Trace           []Adjustment   `json:"trace"`
}
