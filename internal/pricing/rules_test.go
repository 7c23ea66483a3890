package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() RuleEngine {
	return RuleEngine{DefaultMaxDiscount: 0.2}
}

func TestRuleEngine_EmergencyMarkup(t *testing.T) {
	rules := []Rule{{
		Name:       "Emergency Callout Premium",
		Type:       "CUSTOMER_SPECIFIC",
		Category:   "Maintenance",
		Conditions: Conditions{ServiceType("emergency")},
		Actions:    Actions{MarkupPercentage: 50, MinimumCharge: 200},
		Priority:   2,
		IsActive:   true,
	}}
	rc := RuleContext{BasePrice: 150, Quantity: 1, Spec: Specification{ServiceType: "emergency"}}

	price, applied := testEngine().Apply(rules, "Maintenance", 150, rc)

	assert.InDelta(t, 225.0, price, 1e-9)
	require.Len(t, applied, 1)
	assert.Equal(t, AppliedRule{
		Name:       "Emergency Callout Premium",
		Type:       "CUSTOMER_SPECIFIC",
		Adjustment: "50% markup applied",
	}, applied[0])
}

func TestRuleEngine_MinimumChargeAfterMarkup(t *testing.T) {
	rules := []Rule{{
		Name:       "Emergency Callout Premium",
		Category:   "Maintenance",
		Conditions: Conditions{ServiceType("emergency")},
		Actions:    Actions{MarkupPercentage: 50, MinimumCharge: 200},
		IsActive:   true,
	}}
	rc := RuleContext{BasePrice: 100, Quantity: 1, Spec: Specification{ServiceType: "emergency"}}

	price, applied := testEngine().Apply(rules, "Maintenance", 100, rc)

	assert.InDelta(t, 200.0, price, 1e-9)
	require.Len(t, applied, 1)
	assert.Equal(t, "50% markup applied; Minimum charge of £200 applied", applied[0].Adjustment)
}

func TestRuleEngine_VolumeDiscount(t *testing.T) {
	rules := []Rule{{
		Name:       "Volume Discount Rule",
		Type:       "VOLUME_PRICING",
		Category:   WildcardCategory,
		Conditions: Conditions{MinQuantity(10), MinValue(5000)},
		Actions:    Actions{DiscountPercentage: 8, MaxDiscount: 15},
		Priority:   1,
		IsActive:   true,
	}}

	tests := []struct {
		name     string
		quantity float64
		price    float64
		want     float64
		applied  int
	}{
		{name: "both thresholds met", quantity: 10, price: 6000, want: 5520, applied: 1},
		{name: "quantity too low", quantity: 9, price: 6000, want: 6000, applied: 0},
		{name: "value too low", quantity: 12, price: 4999, want: 4999, applied: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := RuleContext{BasePrice: tt.price, Quantity: tt.quantity}
			price, applied := testEngine().Apply(rules, "Windows", tt.price, rc)
			assert.InDelta(t, tt.want, price, 1e-9)
			assert.Len(t, applied, tt.applied)
		})
	}
}

func TestRuleEngine_DiscountCappedByDefaultLimit(t *testing.T) {
	rules := []Rule{{
		Name:     "Clearance",
		Category: "Windows",
		Actions:  Actions{DiscountPercentage: 30},
		IsActive: true,
	}}

	price, applied := testEngine().Apply(rules, "Windows", 100, RuleContext{BasePrice: 100, Quantity: 1})

	assert.InDelta(t, 80.0, price, 1e-9)
	require.Len(t, applied, 1)
	assert.Equal(t, "30% discount applied (capped at 20%)", applied[0].Adjustment)
}

func TestRuleEngine_PriorityOrderAndMarginProtection(t *testing.T) {
	rules := []Rule{
		{
			Name:       "Minimum Price Protection",
			Type:       "MINIMUM_PRICE",
			Category:   WildcardCategory,
			Conditions: Conditions{MarginThreshold(0.15)},
			Actions:    Actions{MinimumMargin: 0.25},
			Priority:   3,
			IsActive:   true,
		},
		{
			Name:     "Complex Install Markup",
			Category: "Windows",
			Actions:  Actions{MarkupPercentage: 20},
			Priority: 1,
			IsActive: true,
		},
	}

	price, applied := testEngine().Apply(rules, "Windows", 100, RuleContext{BasePrice: 100, Quantity: 1})

	assert.InDelta(t, 100/0.75, price, 1e-9)
	require.Len(t, applied, 2)
	assert.Equal(t, "Complex Install Markup", applied[0].Name)
	assert.Equal(t, "Minimum Price Protection", applied[1].Name)
	assert.Equal(t, "Minimum margin protection applied", applied[1].Adjustment)
}

func TestRuleEngine_MarginThresholdNotMetAtBasePrice(t *testing.T) {
	rules := []Rule{{
		Name:       "Minimum Price Protection",
		Category:   WildcardCategory,
		Conditions: Conditions{MarginThreshold(0.15)},
		Actions:    Actions{MinimumMargin: 0.2},
		IsActive:   true,
	}}
	engine := testEngine()

	final, trace := Fold(338, engine.Steps(rules, "Windows", RuleContext{BasePrice: 338, Quantity: 1})...)

	assert.InDelta(t, 338.0, final, 1e-9)
	require.Len(t, trace, 1)
	assert.False(t, trace[0].Applied)
	assert.Equal(t, "conditions not met", trace[0].Description)
}

func TestRuleEngine_Select(t *testing.T) {
	rules := []Rule{
		{Name: "b", Category: "Windows", Priority: 2, IsActive: true},
		{Name: "inactive", Category: "Windows", Priority: 0, IsActive: false},
		{Name: "other", Category: "Doors", Priority: 0, IsActive: true},
		{Name: "a", Category: WildcardCategory, Priority: 1, IsActive: true},
		{Name: "c", Category: "Windows", Priority: 2, IsActive: true},
	}

	selected := testEngine().Select(rules, "Windows")

	names := make([]string, 0, len(selected))
	for _, r := range selected {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRuleEngine_AttributeEquals(t *testing.T) {
	rules := []Rule{{
		Name:       "Security Hardware",
		Category:   "Windows",
		Conditions: Conditions{AttributeEquals("hardware", "security")},
		Actions:    Actions{MarkupPercentage: 10},
		IsActive:   true,
	}}

	with, _ := testEngine().Apply(rules, "Windows", 100, RuleContext{
		BasePrice: 100,
		Spec:      Specification{Attributes: map[string]string{"hardware": "security"}},
	})
	without, _ := testEngine().Apply(rules, "Windows", 100, RuleContext{BasePrice: 100})

	assert.InDelta(t, 110.0, with, 1e-9)
	assert.InDelta(t, 100.0, without, 1e-9)
}

func TestRuleEngine_ServiceTypeRequiresValue(t *testing.T) {
	assert.False(t, conditionHolds(ServiceType("emergency"), 100, RuleContext{}))
	assert.True(t, conditionHolds(ServiceType("emergency"), 100, RuleContext{Spec: Specification{ServiceType: "emergency"}}))
	assert.False(t, conditionHolds(MarginThreshold(0.1), 0, RuleContext{}))
}

func TestConditions_JSON(t *testing.T) {
	var conds Conditions
	err := json.Unmarshal([]byte(`{
		"min_quantity": 10,
		"min_value": "5000",
		"margin_threshold": 0,
		"service_type": "emergency",
		"time_constraint": "immediate"
	}`), &conds)
	require.NoError(t, err)

	assert.Equal(t, Conditions{
		MinQuantity(10),
		MinValue(5000),
		ServiceType("emergency"),
		AttributeEquals("time_constraint", "immediate"),
	}, conds)

	data, err := json.Marshal(conds)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"min_quantity": 10,
		"min_value": 5000,
		"service_type": "emergency",
		"time_constraint": "immediate"
	}`, string(data))
}

func TestConditions_RejectsMalformedNumbers(t *testing.T) {
	var conds Conditions
	err := json.Unmarshal([]byte(`{"min_quantity": "lots"}`), &conds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_quantity")
}

func TestRule_Validate(t *testing.T) {
	valid := Rule{Name: "Volume", Category: WildcardCategory, Actions: Actions{DiscountPercentage: 8, MaxDiscount: 15}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{name: "missing name", mutate: func(r *Rule) { r.Name = " " }},
		{name: "missing category", mutate: func(r *Rule) { r.Category = "" }},
		{name: "discount over 100", mutate: func(r *Rule) { r.Actions.DiscountPercentage = 120 }},
		{name: "negative max discount", mutate: func(r *Rule) { r.Actions.MaxDiscount = -1 }},
		{name: "negative markup", mutate: func(r *Rule) { r.Actions.MarkupPercentage = -5 }},
		{name: "negative minimum charge", mutate: func(r *Rule) { r.Actions.MinimumCharge = -5 }},
		{name: "margin of one", mutate: func(r *Rule) { r.Actions.MinimumMargin = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
