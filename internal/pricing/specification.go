package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Size is a product size in millimetres.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the size in square metres.
func (s Size) Area() float64 {
	return (s.Width / 1000.0) * (s.Height / 1000.0)
}

func (s Size) valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Specification holds the product attributes of a request. Known attributes have their own
// fields; anything else lands in Attributes so formulas and rules can still reference it.
//
// Decoding is lenient: a malformed value is dropped rather than rejected, which leaves the
// corresponding factor neutral.
type Specification struct {
	Size        *Size
	Glazing     string
	Frame       string
	Complexity  string
	ServiceType string
	Urgency     string
	Attributes  map[string]string
}

// Attribute returns the value of a named specification attribute, or "" when absent.
func (s Specification) Attribute(name string) string {
	switch name {
	case FactorGlazing:
		return s.Glazing
	case FactorFrame:
		return s.Frame
	case FactorComplexity:
		return s.Complexity
	case FactorUrgency:
		return s.Urgency
	case "serviceType", "service_type":
		return s.ServiceType
	}
	return s.Attributes[name]
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Specification) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	spec := Specification{}
	for key, value := range raw {
		switch key {
		case FactorSize:
			spec.Size = decodeSize(value)
		case FactorGlazing:
			spec.Glazing = decodeText(value)
		case FactorFrame:
			spec.Frame = decodeText(value)
		case FactorComplexity:
			spec.Complexity = decodeText(value)
		case FactorUrgency:
			spec.Urgency = decodeText(value)
		case "serviceType", "service_type":
			spec.ServiceType = decodeText(value)
		default:
			text := decodeText(value)
			if text == "" {
				continue
			}
			if spec.Attributes == nil {
				spec.Attributes = make(map[string]string)
			}
			spec.Attributes[key] = text
		}
	}

	*s = spec
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Specification) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Attributes)+6)
	for k, v := range s.Attributes {
		out[k] = v
	}
	if s.Size != nil {
		out[FactorSize] = s.Size
	}
	for key, value := range map[string]string{
		FactorGlazing:    s.Glazing,
		FactorFrame:      s.Frame,
		FactorComplexity: s.Complexity,
		FactorUrgency:    s.Urgency,
		"serviceType":    s.ServiceType,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return json.Marshal(out)
}

func decodeText(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// decodeSize accepts {"width": 1200, "height": 1000}, numeric strings inside that object,
// or the "1200x1000mm" shorthand. Anything else yields nil.
func decodeSize(raw json.RawMessage) *Size {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var size Size
	switch t := v.(type) {
	case map[string]any:
		w, okW := toFloat(t["width"])
		h, okH := toFloat(t["height"])
		if !okW || !okH {
			return nil
		}
		size = Size{Width: w, Height: h}
	case string:
		dims := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(t)), "mm")
		w, h, ok := strings.Cut(dims, "x")
		if !ok {
			return nil
		}
		width, errW := strconv.ParseFloat(strings.TrimSpace(w), 64)
		height, errH := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if errW != nil || errH != nil {
			return nil
		}
		size = Size{Width: width, Height: height}
	default:
		return nil
	}

	if !size.valid() {
		return nil
	}
	return &size
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
