package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/db"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/migrations"
	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(ctx, database))
	return New(database, zaptest.NewLogger(t))
}

func TestFindBestModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateModel(ctx, pricing.Model{Name: "Windows v1", Category: "Windows", BasePrice: 200, Confidence: 0.8, IsActive: true})
	require.NoError(t, err)
	bestID, err := s.CreateModel(ctx, pricing.Model{
		Name:      "Windows v2",
		Category:  "Windows",
		BasePrice: 250,
		Formula: pricing.Formula{Factors: map[string]pricing.FactorTable{
			pricing.FactorGlazing: {"double": 1.0, "triple": 1.4},
		}},
		Confidence: 0.92,
		IsActive:   true,
	})
	require.NoError(t, err)
	_, err = s.CreateModel(ctx, pricing.Model{Name: "Windows draft", Category: "Windows", BasePrice: 999, Confidence: 0.99, IsActive: false})
	require.NoError(t, err)

	model, err := s.FindBestModel(ctx, "Windows")
	require.NoError(t, err)
	assert.Equal(t, bestID, model.ID)
	assert.Equal(t, "Windows v2", model.Name)
	assert.Equal(t, pricing.FactorTable{"double": 1.0, "triple": 1.4}, model.Formula.Factors[pricing.FactorGlazing])

	_, err = s.FindBestModel(ctx, "Doors")
	assert.ErrorIs(t, err, pricing.ErrModelNotFound)
}

func TestUpdateModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateModel(ctx, pricing.Model{Name: "Structural", Category: "Structural", BasePrice: 450, Confidence: 0.88, IsActive: true})
	require.NoError(t, err)

	err = s.UpdateModel(ctx, pricing.Model{ID: id, Name: "Structural", Category: "Structural", BasePrice: 475, Confidence: 0.9, IsActive: true})
	require.NoError(t, err)

	models, err := s.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, 475.0, models[0].BasePrice)

	err = s.UpdateModel(ctx, pricing.Model{ID: 999, Name: "Ghost", Category: "Structural"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	rules := []pricing.Rule{
		{Name: "Minimum Price Protection", Category: pricing.WildcardCategory, Conditions: pricing.Conditions{pricing.MarginThreshold(0.15)}, Actions: pricing.Actions{MinimumMargin: 0.2}, Priority: 3, IsActive: true},
		{Name: "Emergency Callout Premium", Category: "Maintenance", Conditions: pricing.Conditions{pricing.ServiceType("emergency")}, Actions: pricing.Actions{MarkupPercentage: 50, MinimumCharge: 200}, Priority: 2, IsActive: true},
		{Name: "Volume Discount Rule", Category: pricing.WildcardCategory, Conditions: pricing.Conditions{pricing.MinQuantity(10), pricing.MinValue(5000)}, Actions: pricing.Actions{DiscountPercentage: 8, MaxDiscount: 15}, Priority: 1, IsActive: true},
		{Name: "Retired", Category: "Windows", Priority: 0, IsActive: false},
	}
	for _, r := range rules {
		_, err := s.CreateRule(ctx, r)
		require.NoError(t, err)
	}
	_, err := s.DB().ExecContext(ctx, `
		INSERT INTO pricing_rules (name, rule_type, category, conditions_json, actions_json, priority, is_active)
		VALUES ('Broken', 'VOLUME_PRICING', 'Windows', '{"min_quantity": "lots"}', '{}', 0, TRUE)
	`)
	require.NoError(t, err)

	windows, err := s.ListActiveRules(ctx, "Windows")
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "Volume Discount Rule", windows[0].Name)
	assert.Equal(t, pricing.Conditions{pricing.MinQuantity(10), pricing.MinValue(5000)}, windows[0].Conditions)
	assert.Equal(t, pricing.Actions{DiscountPercentage: 8, MaxDiscount: 15}, windows[0].Actions)
	assert.Equal(t, "Minimum Price Protection", windows[1].Name)

	maintenance, err := s.ListActiveRules(ctx, "Maintenance")
	require.NoError(t, err)
	require.Len(t, maintenance, 3)
	assert.Equal(t, "Emergency Callout Premium", maintenance[1].Name)
}

func TestFindLatestMarketData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	older := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.CreateMarketData(ctx, pricing.MarketDataPoint{Category: "Windows", Product: "Double Glazed uPVC Window", AveragePrice: 260, Trend: pricing.TrendStable, RecordedAt: older})
	require.NoError(t, err)
	_, err = s.CreateMarketData(ctx, pricing.MarketDataPoint{Category: "Windows", Product: "Double Glazed uPVC Window", AveragePrice: 280, Trend: pricing.TrendRising, Source: "Market Research Q1 2025", RecordedAt: newer})
	require.NoError(t, err)
	_, err = s.CreateMarketData(ctx, pricing.MarketDataPoint{Category: "Doors", Product: "Double Glazed uPVC Window", AveragePrice: 999})
	require.NoError(t, err)

	point, err := s.FindLatestMarketData(ctx, "Windows", "uPVC Window")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Equal(t, 280.0, point.AveragePrice)
	assert.Equal(t, pricing.TrendRising, point.Trend)
	assert.Equal(t, newer, point.RecordedAt)

	missing, err := s.FindLatestMarketData(ctx, "Windows", "upvc window")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := s.ListMarketData(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCustomerProfiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	inserted, err := s.UpsertCustomerProfile(ctx, pricing.CustomerProfile{CustomerName: "Lodestone Projects", PriceAcceptance: 0.85, NegotiationRate: 0.65})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.UpsertCustomerProfile(ctx, pricing.CustomerProfile{CustomerName: "Lodestone Projects", PriceAcceptance: 0.6, NegotiationRate: 0.7})
	require.NoError(t, err)
	assert.False(t, inserted)

	profile, err := s.FindCustomerProfile(ctx, "Lodestone Projects")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 0.6, profile.PriceAcceptance)

	missing, err := s.FindCustomerProfile(ctx, "Nobody Ltd")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profiles, err := s.ListCustomerProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestPredictionsRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	first := pricing.Record{
		ID:             "0d6f5a52-3f0b-4f55-9c59-8d1f1c1a0001",
		PredictionType: pricing.PredictionTypeQuote,
		Target:         pricing.Target{ID: "manual", Type: "MANUAL"},
		ModelID:        1,
		Request: pricing.Request{
			Product:        "Double Glazed uPVC Window",
			Category:       "Windows",
			Quantity:       2,
			Specifications: pricing.Specification{Size: &pricing.Size{Width: 1200, Height: 1000}, Glazing: "double"},
			CustomerName:   "Lodestone Projects",
		},
		Result: pricing.Result{
			PredictedPrice:  642.2,
			Confidence:      0.98,
			PriceRange:      pricing.PriceRange{Min: 635.78, Max: 648.62},
			Factors:         pricing.Breakdown{BasePrice: 338, Quantity: 2, MarketAdjustment: -0.05, AppliedRules: []pricing.AppliedRule{}},
			Recommendations: []string{pricing.RecommendPremium},
			ModelUsed:       "AI Windows Pricing Model",
			MarketContext:   &pricing.MarketContext{AveragePrice: 280, Trend: pricing.TrendRising, Source: "Market Research Q1 2025"},
		},
		CreatedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	second := first
	second.ID = "0d6f5a52-3f0b-4f55-9c59-8d1f1c1a0002"
	second.Request.Product = "Emergency Glass Replacement"
	second.Request.Category = "Maintenance"
	second.Request.CustomerName = ""
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	require.NoError(t, s.SavePrediction(ctx, first))
	require.NoError(t, s.SavePrediction(ctx, second))

	got, err := s.GetPrediction(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	all, err := s.ListPredictions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	filtered, err := s.ListPredictions(ctx, "Lodestone")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)
	assert.Equal(t, 642.2, filtered[0].PredictedPrice)

	_, err = s.GetPrediction(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, product := range []string{"Window", "Door", "Curtain Wall"} {
		require.NoError(t, s.AppendActivity(ctx, pricing.Activity{
			Type:        pricing.ActivityTypePrediction,
			Description: "Pricing prediction generated for " + product,
			Actor:       pricing.ActivityActor,
			Product:     product,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	activities, err := s.ListActivities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "Curtain Wall", activities[0].Product)
	assert.Equal(t, "Door", activities[1].Product)
	assert.Equal(t, base.Add(2*time.Minute), activities[0].CreatedAt)
}

func TestStoreServesPredictor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateModel(ctx, pricing.Model{Name: "AI Maintenance Pricing Model", Category: "Maintenance", BasePrice: 150, Confidence: 0.85, IsActive: true})
	require.NoError(t, err)
	_, err = s.CreateRule(ctx, pricing.Rule{
		Name:       "Emergency Callout Premium",
		Type:       "CUSTOMER_SPECIFIC",
		Category:   "Maintenance",
		Conditions: pricing.Conditions{pricing.ServiceType("emergency")},
		Actions:    pricing.Actions{MarkupPercentage: 50, MinimumCharge: 200},
		Priority:   2,
		IsActive:   true,
	})
	require.NoError(t, err)

	p := pricing.New(pricing.Sources{Models: s, Rules: s, Market: s, Customers: s}, nil,
		pricing.WithPredictionSink(s), pricing.WithActivityLog(s))

	rec, err := p.PredictAndRecord(ctx, pricing.Request{
		Product:        "Emergency Glass Replacement",
		Category:       "Maintenance",
		Quantity:       1,
		Specifications: pricing.Specification{ServiceType: "emergency"},
	}, pricing.Target{})
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, 225.0, rec.Result.PredictedPrice)

	stored, err := s.GetPrediction(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Result.PredictedPrice, stored.Result.PredictedPrice)

	activities, err := s.ListActivities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Pricing prediction generated for Emergency Glass Replacement - £225.00 (85% confidence)", activities[0].Description)
}
