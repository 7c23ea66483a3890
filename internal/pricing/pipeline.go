package pricing

// Stage identifies the kind of step that produced an Adjustment.
type Stage string

// Pipeline stages, in evaluation order.
const (
	StageRule     Stage = "rule"
	StageMarket   Stage = "market"
	StageCustomer Stage = "customer"
)

// Adjustment is the trace entry of one pipeline step. Steps that leave the price untouched are
// still recorded with Applied set to false.
type Adjustment struct {
	Stage       Stage   `json:"stage"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	Description string  `json:"description"`
	Applied     bool    `json:"applied"`
	Before      float64 `json:"before"`
	After       float64 `json:"after"`
	Fraction    float64 `json:"fraction,omitempty"`
}

// Step transforms the running price and reports what it did.
type Step func(price float64) (float64, Adjustment)

// Fold runs steps left to right, each on the previous step's output.
func Fold(price float64, steps ...Step) (float64, []Adjustment) {
	trace := make([]Adjustment, 0, len(steps))
	for _, step := range steps {
		next, adj := step(price)
		adj.Before = price
		if !adj.Applied {
			next = price
		}
		adj.After = next
		trace = append(trace, adj)
		price = next
	}
	return price, trace
}

func appliedRules(trace []Adjustment) []AppliedRule {
	applied := make([]AppliedRule, 0)
	for _, adj := range trace {
		if adj.Stage == StageRule && adj.Applied {
			applied = append(applied, AppliedRule{Name: adj.Name, Type: adj.Type, Adjustment: adj.Description})
		}
	}
	return applied
}

func stageFraction(trace []Adjustment, stage Stage) float64 {
	for _, adj := range trace {
		if adj.Stage == stage && adj.Applied {
			return adj.Fraction
		}
	}
	return 0
}
