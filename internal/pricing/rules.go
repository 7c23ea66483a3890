package pricing

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ConditionKind identifies a rule condition.
type ConditionKind string

// Condition kinds. The typed kinds use their configuration key as value.
const (
	CondMinQuantity     ConditionKind = "min_quantity"
	CondMinValue        ConditionKind = "min_value"
	CondServiceType     ConditionKind = "service_type"
	CondMarginThreshold ConditionKind = "margin_threshold"
	// CondAttributeEquals requires a specification attribute to equal a fixed value.
	CondAttributeEquals ConditionKind = "attribute_equals"
)

// Condition is a single rule condition. Number is the payload of the numeric kinds, Text the
// payload of the string kinds and Attribute names the attribute of CondAttributeEquals.
type Condition struct {
	Kind      ConditionKind
	Number    float64
	Text      string
	Attribute string
}

// MinQuantity requires the request quantity to be at least n.
func MinQuantity(n float64) Condition { return Condition{Kind: CondMinQuantity, Number: n} }

// MinValue requires the running price to be at least v.
func MinValue(v float64) Condition { return Condition{Kind: CondMinValue, Number: v} }

// ServiceType requires the specification service type to equal s.
func ServiceType(s string) Condition { return Condition{Kind: CondServiceType, Text: s} }

// MarginThreshold requires the running margin over the base price to be at least m.
func MarginThreshold(m float64) Condition { return Condition{Kind: CondMarginThreshold, Number: m} }

// AttributeEquals requires specification attribute name to equal value.
func AttributeEquals(name, value string) Condition {
	return Condition{Kind: CondAttributeEquals, Attribute: name, Text: value}
}

// Conditions is a conjunction of rule conditions. It is stored as a flat JSON object such as
// {"min_quantity": 10, "service_type": "emergency"}.
type Conditions []Condition

// UnmarshalJSON implements json.Unmarshaler. Zero-valued and null entries are dropped; unknown
// keys become attribute-equality conditions.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode rule conditions: %w", err)
	}

	conds := make(Conditions, 0, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := raw[key]
		switch kind := ConditionKind(key); kind {
		case CondMinQuantity, CondMinValue, CondMarginThreshold:
			n, err := decodeNumber(value)
			if err != nil {
				return fmt.Errorf("decode rule condition %s: %w", key, err)
			}
			if n == 0 {
				continue
			}
			conds = append(conds, Condition{Kind: kind, Number: n})
		case CondServiceType:
			if text := decodeText(value); text != "" {
				conds = append(conds, ServiceType(text))
			}
		default:
			if text := decodeText(value); text != "" {
				conds = append(conds, AttributeEquals(key, text))
			}
		}
	}

	*c = conds
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Conditions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c))
	for _, cond := range c {
		switch cond.Kind {
		case CondMinQuantity, CondMinValue, CondMarginThreshold:
			out[string(cond.Kind)] = cond.Number
		case CondServiceType:
			out[string(cond.Kind)] = cond.Text
		case CondAttributeEquals:
			out[cond.Attribute] = cond.Text
		}
	}
	return json.Marshal(out)
}

func decodeNumber(raw json.RawMessage) (float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	n, ok := toFloat(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not a number")
	}
	return n, nil
}

// Actions are applied in field order: discount, markup, minimum charge, minimum margin.
// Percentages are in 0-100; MinimumMargin is a fraction in [0,1).
type Actions struct {
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	MaxDiscount        float64 `json:"max_discount,omitempty"`
	MarkupPercentage   float64 `json:"markup_percentage,omitempty"`
	MinimumCharge      float64 `json:"minimum_charge,omitempty"`
	MinimumMargin      float64 `json:"minimum_margin,omitempty"`
}

// Validate reports configuration errors in a rule.
func (r Rule) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(r.Category) == "":
		return errors.New("category is required")
	case r.Actions.DiscountPercentage < 0 || r.Actions.DiscountPercentage > 100:
		return errors.New("discount_percentage must be between 0 and 100")
	case r.Actions.MaxDiscount < 0 || r.Actions.MaxDiscount > 100:
		return errors.New("max_discount must be between 0 and 100")
	case r.Actions.MarkupPercentage < 0:
		return errors.New("markup_percentage must be >= 0")
	case r.Actions.MinimumCharge < 0:
		return errors.New("minimum_charge must be >= 0")
	case r.Actions.MinimumMargin < 0 || r.Actions.MinimumMargin >= 1:
		return errors.New("minimum_margin must be in [0, 1)")
	}
	return nil
}

// RuleContext is what rule conditions and actions see besides the running price.
// BasePrice is the unit price from the formula, before quantity and rules.
type RuleContext struct {
	BasePrice float64
	Quantity  float64
	Spec      Specification
	Customer  *CustomerProfile
}

// RuleEngine folds pricing rules over a running price.
type RuleEngine struct {
	// DefaultMaxDiscount caps discounts of rules without max_discount, as a fraction.
	DefaultMaxDiscount float64
}

// Select returns the active rules for category, ordered by ascending priority. Ties keep their
// input order.
func (e RuleEngine) Select(rules []Rule, category string) []Rule {
	selected := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.Category != category && rule.Category != WildcardCategory {
			continue
		}
		selected = append(selected, rule)
	}
	slices.SortStableFunc(selected, func(a, b Rule) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return selected
}

// Steps returns one pipeline step per selected rule.
func (e RuleEngine) Steps(rules []Rule, category string, rc RuleContext) []Step {
	selected := e.Select(rules, category)
	steps := make([]Step, 0, len(selected))
	for _, rule := range selected {
		steps = append(steps, func(price float64) (float64, Adjustment) {
			adj := Adjustment{Stage: StageRule, Name: rule.Name, Type: rule.Type}
			if !e.matches(rule.Conditions, price, rc) {
				adj.Description = "conditions not met"
				return price, adj
			}
			next, description := e.act(rule.Actions, price, rc)
			if next == price {
				adj.Description = "no price change"
				return price, adj
			}
			adj.Applied = true
			adj.Description = description
			if price != 0 {
				adj.Fraction = (next - price) / price
			}
			return next, adj
		})
	}
	return steps
}

// Apply folds the rules over price and returns the final price with the rules that changed it.
func (e RuleEngine) Apply(rules []Rule, category string, price float64, rc RuleContext) (float64, []AppliedRule) {
	final, trace := Fold(price, e.Steps(rules, category, rc)...)
	return final, appliedRules(trace)
}

func (e RuleEngine) matches(conds Conditions, price float64, rc RuleContext) bool {
	for _, cond := range conds {
		if !conditionHolds(cond, price, rc) {
			return false
		}
	}
	return true
}

func conditionHolds(cond Condition, price float64, rc RuleContext) bool {
	switch cond.Kind {
	case CondMinQuantity:
		return rc.Quantity >= cond.Number
	case CondMinValue:
		return price >= cond.Number
	case CondServiceType:
		return rc.Spec.ServiceType != "" && rc.Spec.ServiceType == cond.Text
	case CondMarginThreshold:
		if price <= 0 {
			return false
		}
		return (price-rc.BasePrice)/price >= cond.Number
	case CondAttributeEquals:
		value := rc.Spec.Attribute(cond.Attribute)
		return value != "" && value == cond.Text
	}
	return false
}

func (e RuleEngine) act(a Actions, price float64, rc RuleContext) (float64, string) {
	next := price
	var notes []string

	if a.DiscountPercentage > 0 {
		limit := e.DefaultMaxDiscount
		if a.MaxDiscount > 0 {
			limit = a.MaxDiscount / 100
		}
		rate := math.Min(a.DiscountPercentage/100, limit)
		next *= 1 - rate
		if rate < a.DiscountPercentage/100 {
			notes = append(notes, fmt.Sprintf("%s%% discount applied (capped at %s%%)", formatNumber(a.DiscountPercentage), formatNumber(rate*100)))
		} else {
			notes = append(notes, fmt.Sprintf("%s%% discount applied", formatNumber(a.DiscountPercentage)))
		}
	}

	if a.MarkupPercentage > 0 {
		next *= 1 + a.MarkupPercentage/100
		notes = append(notes, fmt.Sprintf("%s%% markup applied", formatNumber(a.MarkupPercentage)))
	}

	if a.MinimumCharge > 0 && next < a.MinimumCharge {
		next = a.MinimumCharge
		notes = append(notes, fmt.Sprintf("Minimum charge of £%s applied", formatNumber(a.MinimumCharge)))
	}

	if a.MinimumMargin > 0 && a.MinimumMargin < 1 {
		required := rc.BasePrice / (1 - a.MinimumMargin)
		if next < required {
			next = required
			notes = append(notes, "Minimum margin protection applied")
		}
	}

	return next, strings.Join(notes, "; ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
