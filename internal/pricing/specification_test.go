package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecification_UnmarshalKnownAndExtraAttributes(t *testing.T) {
	var spec Specification
	err := json.Unmarshal([]byte(`{
		"size": {"width": 1200, "height": "1000"},
		"glazing": "double",
		"frame": "aluminium",
		"complexity": "medium",
		"serviceType": "emergency",
		"urgency": "urgent",
		"hardware": "security",
		"panes": 3,
		"ignored": null
	}`), &spec)
	require.NoError(t, err)

	require.NotNil(t, spec.Size)
	assert.Equal(t, Size{Width: 1200, Height: 1000}, *spec.Size)
	assert.Equal(t, "double", spec.Glazing)
	assert.Equal(t, "aluminium", spec.Frame)
	assert.Equal(t, "medium", spec.Complexity)
	assert.Equal(t, "emergency", spec.ServiceType)
	assert.Equal(t, "urgent", spec.Urgency)
	assert.Equal(t, map[string]string{"hardware": "security", "panes": "3"}, spec.Attributes)
}

func TestSpecification_MalformedSizeIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "non numeric width", json: `{"size": {"width": "wide", "height": 1000}}`},
		{name: "missing height", json: `{"size": {"width": 1200}}`},
		{name: "zero width", json: `{"size": {"width": 0, "height": 1000}}`},
		{name: "negative height", json: `{"size": {"width": 1200, "height": -5}}`},
		{name: "number instead of object", json: `{"size": 12}`},
		{name: "garbage string", json: `{"size": "big"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec Specification
			require.NoError(t, json.Unmarshal([]byte(tt.json), &spec))
			assert.Nil(t, spec.Size)
		})
	}
}

func TestSpecification_SizeShorthand(t *testing.T) {
	var spec Specification
	require.NoError(t, json.Unmarshal([]byte(`{"size": "1200x1000mm"}`), &spec))

	require.NotNil(t, spec.Size)
	assert.InDelta(t, 1.2, spec.Size.Area(), 1e-12)
}

func TestSpecification_RoundTrip(t *testing.T) {
	spec := Specification{
		Size:        &Size{Width: 900, Height: 600},
		Glazing:     "triple",
		ServiceType: "installation",
		Attributes:  map[string]string{"time_constraint": "immediate"},
	}

	data, err := json.Marshal(spec)
	require.NoError(t, err)

	var decoded Specification
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, spec, decoded)
}

func TestSpecification_Attribute(t *testing.T) {
	spec := Specification{
		Glazing:     "double",
		ServiceType: "emergency",
		Attributes:  map[string]string{"hardware": "standard"},
	}

	assert.Equal(t, "double", spec.Attribute(FactorGlazing))
	assert.Equal(t, "emergency", spec.Attribute("service_type"))
	assert.Equal(t, "emergency", spec.Attribute("serviceType"))
	assert.Equal(t, "standard", spec.Attribute("hardware"))
	assert.Empty(t, spec.Attribute("finish"))
}
