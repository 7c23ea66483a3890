package pricing

import (
	"encoding/json"
	"maps"
	"slices"
)

// Factor families with dedicated specification fields.
const (
	FactorSize       = "size"
	FactorGlazing    = "glazing"
	FactorFrame      = "frame"
	FactorComplexity = "complexity"
	FactorUrgency    = "urgency"
)

// sizeMultiplierKey is the entry of the size factor table holding its multiplier.
const sizeMultiplierKey = "multiplier"

// namedFactors is the evaluation order of the factor families. Extra factors follow in name order.
var namedFactors = []string{FactorSize, FactorGlazing, FactorFrame, FactorComplexity, FactorUrgency}

// Formula is a model's declared base price and its factor tables.
type Formula struct {
	Base    float64                `json:"base,omitempty"`
	Factors map[string]FactorTable `json:"factors,omitempty"`
}

// FactorTable maps an attribute value to a price multiplier. For the size factor the
// "multiplier" entry holds the per-square-metre multiplier.
type FactorTable map[string]float64

// UnmarshalJSON keeps numeric entries and drops everything else (e.g. "per": "sqm").
func (t *FactorTable) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	table := make(FactorTable, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			table[k] = f
		}
	}
	*t = table
	return nil
}

// FormulaEvaluator computes base prices from a model's formula.
type FormulaEvaluator struct{}

// UnitPrice returns the model base price multiplied by every factor present in both the
// formula and the specification.
func (FormulaEvaluator) UnitPrice(model Model, spec Specification) float64 {
	price := model.BasePrice
	for _, name := range factorOrder(model.Formula.Factors) {
		price *= applyFactor(name, spec, model.Formula.Factors[name])
	}
	return price
}

// Evaluate returns the unit base price and the pre-rule total for quantity units.
func (e FormulaEvaluator) Evaluate(model Model, spec Specification, quantity float64) (unit, total float64) {
	unit = e.UnitPrice(model, spec)
	return unit, unit * quantity
}

// applyFactor returns the multiplier a factor table contributes for spec. Missing or unknown
// values are neutral.
func applyFactor(name string, spec Specification, table FactorTable) float64 {
	if name == FactorSize {
		multiplier, ok := table[sizeMultiplierKey]
		if !ok || spec.Size == nil || !spec.Size.valid() {
			return 1.0
		}
		// Interpolates around 1 m²: smaller areas are discounted, larger ones surcharged.
		return 1 + (spec.Size.Area()-1)*(multiplier-1)
	}

	value := spec.Attribute(name)
	if value == "" {
		return 1.0
	}
	if multiplier, ok := table[value]; ok {
		return multiplier
	}
	return 1.0
}

func factorOrder(factors map[string]FactorTable) []string {
	order := make([]string, 0, len(factors))
	for _, name := range namedFactors {
		if _, ok := factors[name]; ok {
			order = append(order, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(factors)) {
		if !slices.Contains(namedFactors, name) {
			order = append(order, name)
		}
	}
	return order
}
