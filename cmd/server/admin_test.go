package main

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

type recordingInvalidator struct {
	mu         sync.Mutex
	categories []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, category)
	return nil
}

func TestAdminModels(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/admin/models", map[string]any{
		"name":       "Bifold Door Pricing",
		"category":   "Doors",
		"basePrice":  900,
		"confidence": 1.4,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/admin/models", map[string]any{
		"name":       "Bifold Door Pricing",
		"category":   "Doors",
		"basePrice":  900,
		"confidence": 0.8,
		"formula":    map[string]any{"factors": map[string]any{"frame": map[string]float64{"aluminium": 1.2}}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Model pricing.Model `json:"model"`
	}
	decodeBody(t, rr, &created)
	assert.NotZero(t, created.Model.ID)
	assert.True(t, created.Model.IsActive)

	result, err := env.srv.predictor.Predict(context.Background(), pricing.Request{
		Product:        "Bifold Door",
		Category:       "Doors",
		Specifications: pricing.Specification{Frame: "aluminium"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1080.0, result.PredictedPrice)

	rr = env.do(t, http.MethodPut, "/admin/models/9999", map[string]any{
		"name": "Ghost", "category": "Doors", "basePrice": 1, "confidence": 0.5,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, "/admin/models/abc", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/admin/models", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Models []pricing.Model `json:"models"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.Models, 4)
}

func TestAdminRules(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/admin/rules", map[string]any{
		"name":     "Broken Margin",
		"type":     "MARGIN_PROTECTION",
		"category": "All",
		"actions":  map[string]any{"minimum_margin": 1.5},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/admin/rules", map[string]any{
		"name":       "Trade Discount",
		"type":       "DISCOUNT",
		"category":   "Windows",
		"conditions": map[string]any{"min_quantity": 20},
		"actions":    map[string]any{"discount_percentage": 12},
		"priority":   5,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Rule pricing.Rule `json:"rule"`
	}
	decodeBody(t, rr, &created)
	assert.NotZero(t, created.Rule.ID)

	rules, err := env.store.ListActiveRules(context.Background(), "Windows")
	require.NoError(t, err)
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Trade Discount")

	rr = env.do(t, http.MethodPut, "/admin/rules/9999", map[string]any{"name": "Ghost", "category": "All"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminMarketDataInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	cache := &recordingInvalidator{}
	env.srv.cache = cache

	rr := env.do(t, http.MethodPost, "/admin/market-data", map[string]any{
		"category":     "Windows",
		"product":      "Double Glazed uPVC Window",
		"averagePrice": 310,
		"trend":        "SIDEWAYS",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, cache.categories)

	rr = env.do(t, http.MethodPost, "/admin/market-data", map[string]any{
		"dataType":     "PRICING",
		"source":       "Market Research Q2 2025",
		"category":     "Windows",
		"product":      "Double Glazed uPVC Window",
		"averagePrice": 310,
		"minPrice":     240,
		"maxPrice":     380,
		"trend":        "STABLE",
		"confidence":   0.8,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"Windows"}, cache.categories)

	rr = env.do(t, http.MethodGet, "/admin/market-data?category=Windows", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		MarketData []pricing.MarketDataPoint `json:"marketData"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.MarketData, 2)
}

func TestAdminCustomersUpsert(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"behaviorType":    "PRICE_SENSITIVE",
		"category":        "Windows",
		"averageValue":    12000,
		"priceAcceptance": 0.5,
		"negotiationRate": 0.7,
	}

	rr := env.do(t, http.MethodPut, "/admin/customers/Acme%20Glazing", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body["priceAcceptance"] = 0.75
	rr = env.do(t, http.MethodPut, "/admin/customers/Acme%20Glazing", body)
	require.Equal(t, http.StatusOK, rr.Code)

	profile, err := env.store.FindCustomerProfile(context.Background(), "Acme Glazing")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 0.75, profile.PriceAcceptance)

	body["negotiationRate"] = 2
	rr = env.do(t, http.MethodPut, "/admin/customers/Acme%20Glazing", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/admin/customers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Customers []pricing.CustomerProfile `json:"customers"`
	}
	decodeBody(t, rr, &list)
	assert.Len(t, list.Customers, 3)
}
