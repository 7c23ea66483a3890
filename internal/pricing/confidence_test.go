package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testEstimator() ConfidenceEstimator {
	return ConfidenceEstimator{MarketBonus: 0.05, CustomerBonus: 0.03, Cap: 0.98}
}

func TestConfidenceEstimator_Estimate(t *testing.T) {
	e := testEstimator()

	assert.InDelta(t, 0.80, e.Estimate(0.80, false, false), 1e-12)
	assert.InDelta(t, 0.85, e.Estimate(0.80, true, false), 1e-12)
	assert.InDelta(t, 0.88, e.Estimate(0.80, true, true), 1e-12)
	assert.InDelta(t, 0.98, e.Estimate(0.92, true, true), 1e-12)
	assert.Equal(t, 0.0, e.Estimate(math.NaN(), false, false))
	assert.InDelta(t, 0.05, e.Estimate(-1, true, false), 1e-12)
}

func TestConfidenceEstimator_BoundedAndMonotonic(t *testing.T) {
	e := testEstimator()

	for model := 0.0; model <= 1.0; model += 0.05 {
		none := e.Estimate(model, false, false)
		market := e.Estimate(model, true, false)
		both := e.Estimate(model, true, true)

		assert.GreaterOrEqual(t, none, 0.0)
		assert.LessOrEqual(t, both, e.Cap)
		assert.LessOrEqual(t, none, market)
		assert.LessOrEqual(t, market, both)
	}
}

func TestConfidenceEstimator_Range(t *testing.T) {
	e := testEstimator()

	r := e.Range(100, 0.8)
	assert.InDelta(t, 90.0, r.Min, 1e-9)
	assert.InDelta(t, 110.0, r.Max, 1e-9)

	for _, c := range []float64{0, 0.5, 0.92, 0.98} {
		r := e.Range(321.1, c)
		assert.LessOrEqual(t, r.Min, 321.1)
		assert.GreaterOrEqual(t, r.Max, 321.1)
		assert.InDelta(t, 321.1-r.Min, r.Max-321.1, 1e-9)
	}
}
