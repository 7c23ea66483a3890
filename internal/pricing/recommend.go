package pricing

// Recommendation texts.
const (
	RecommendMoreData          = "Consider gathering more market data to improve pricing accuracy"
	RecommendPremium           = "Market trend is rising - consider premium pricing strategy"
	RecommendNegotiationBuffer = "Customer has high negotiation rate - build in negotiation buffer"
	RecommendValueProposition  = "Price significantly above base - ensure value proposition is clear"
	RecommendMarginImprovement = "Price below market average - opportunity for margin improvement"
)

// Trace is everything the recommendation generator looks at.
type Trace struct {
	Price      float64
	BasePrice  float64
	Confidence float64
	Market     *MarketDataPoint
	Customer   *CustomerProfile
}

// Recommend returns advisory strings for a computed prediction. It never fails.
func Recommend(t Trace) []string {
	recs := make([]string, 0)
	if t.Confidence < 0.8 {
		recs = append(recs, RecommendMoreData)
	}
	if t.Market != nil && t.Market.Trend == TrendRising {
		recs = append(recs, RecommendPremium)
	}
	if t.Customer != nil && t.Customer.NegotiationRate > 0.7 {
		recs = append(recs, RecommendNegotiationBuffer)
	}
	if t.Price > t.BasePrice*1.5 {
		recs = append(recs, RecommendValueProposition)
	}
	if t.Market != nil && t.Price < t.Market.AveragePrice*0.9 {
		recs = append(recs, RecommendMarginImprovement)
	}
	return recs
}
