package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

var models = []pricing.Model{
	{
		Name:        "AI Windows Pricing Model",
		Description: "Machine learning model for window pricing based on specifications and market data",
		Category:    "Windows",
		BasePrice:   250,
		Formula: pricing.Formula{
			Base: 250,
			Factors: map[string]pricing.FactorTable{
				pricing.FactorSize:    {"multiplier": 1.2},
				pricing.FactorGlazing: {"double": 1.0, "triple": 1.4},
				pricing.FactorFrame:   {"upvc": 1.0, "aluminium": 1.3},
				"hardware":            {"standard": 1.0, "security": 1.2},
			},
		},
		Confidence: 0.92,
		IsActive:   true,
	},
	{
		Name:        "Curtain Wall Pricing Engine",
		Description: "Advanced pricing model for curtain walling systems",
		Category:    "Structural",
		BasePrice:   450,
		Formula: pricing.Formula{
			Base: 450,
			Factors: map[string]pricing.FactorTable{
				pricing.FactorComplexity: {"simple": 1.0, "medium": 1.3, "complex": 1.6},
				"glazing_type":           {"standard": 1.0, "performance": 1.4, "specialty": 1.8},
			},
		},
		Confidence: 0.88,
		IsActive:   true,
	},
	{
		Name:        "Emergency Repair Pricing",
		Description: "Dynamic pricing for emergency glazing repairs",
		Category:    "Maintenance",
		BasePrice:   150,
		Formula: pricing.Formula{
			Base: 150,
			Factors: map[string]pricing.FactorTable{
				pricing.FactorUrgency: {"standard": 1.0, "urgent": 1.5, "emergency": 2.0},
				"time_of_day":         {"business": 1.0, "evening": 1.3, "night": 1.8},
				"weekend":             {"weekday": 1.0, "weekend": 1.4},
			},
		},
		Confidence: 0.85,
		IsActive:   true,
	},
}

var marketData = []pricing.MarketDataPoint{
	{
		DataType:     "COMPETITOR_PRICING",
		Source:       "Market Research Q1 2025",
		Category:     "Windows",
		Product:      "Double Glazed uPVC Window",
		Region:       "UK Midlands",
		AveragePrice: 280,
		MinPrice:     220,
		MaxPrice:     350,
		Trend:        pricing.TrendRising,
		Confidence:   0.85,
		RecordedAt:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	},
	{
		DataType:     "MATERIAL_COSTS",
		Source:       "Supplier Price Index",
		Category:     "Glazing",
		Product:      "Low-E Glass",
		Region:       "UK",
		AveragePrice: 45.5,
		MinPrice:     42,
		MaxPrice:     52,
		Trend:        pricing.TrendStable,
		Confidence:   0.95,
		RecordedAt:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	},
	{
		DataType:     "LABOR_RATES",
		Source:       "Industry Survey 2025",
		Category:     "Installation",
		Product:      "Glazing Installation",
		Region:       "West Midlands",
		AveragePrice: 35,
		MinPrice:     28,
		MaxPrice:     45,
		Trend:        pricing.TrendRising,
		Confidence:   0.78,
		RecordedAt:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	},
}

var customers = []pricing.CustomerProfile{
	{
		CustomerName:    "Lodestone Projects",
		BehaviorType:    "PRICE_SENSITIVITY",
		Category:        "Commercial",
		AverageValue:    15000,
		PriceAcceptance: 0.85,
		NegotiationRate: 0.65,
	},
	{
		CustomerName:    "True Fix Solution",
		BehaviorType:    "BUYING_PATTERNS",
		Category:        "Emergency Services",
		AverageValue:    2500,
		PriceAcceptance: 0.95,
		NegotiationRate: 0.25,
	},
}

var rules = []pricing.Rule{
	{
		Name:        "Volume Discount Rule",
		Description: "Apply volume discounts for large orders",
		Type:        "VOLUME_PRICING",
		Category:    pricing.WildcardCategory,
		Conditions:  pricing.Conditions{pricing.MinQuantity(10), pricing.MinValue(5000)},
		Actions:     pricing.Actions{DiscountPercentage: 8, MaxDiscount: 15},
		Priority:    1,
		IsActive:    true,
	},
	{
		Name:        "Emergency Callout Premium",
		Description: "Apply premium pricing for emergency callouts",
		Type:        "CUSTOMER_SPECIFIC",
		Category:    "Maintenance",
		Conditions: pricing.Conditions{
			pricing.ServiceType("emergency"),
			pricing.AttributeEquals("time_constraint", "immediate"),
		},
		Actions:  pricing.Actions{MarkupPercentage: 50, MinimumCharge: 200},
		Priority: 2,
		IsActive: true,
	},
	{
		Name:        "Minimum Price Protection",
		Description: "Ensure minimum profit margins are maintained",
		Type:        "MINIMUM_PRICE",
		Category:    pricing.WildcardCategory,
		Conditions:  pricing.Conditions{pricing.MarginThreshold(0.15)},
		Actions:     pricing.Actions{MinimumMargin: 0.2},
		Priority:    3,
		IsActive:    true,
	},
}

// Run executes the startup seed in an idempotent way. Catalogue rows are matched by name and
// never overwritten once present.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	for _, m := range models {
		if err := ensureModel(ctx, tx, m, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, p := range marketData {
		if err := ensureMarketData(ctx, tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, c := range customers {
		if err := ensureCustomer(ctx, tx, c, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, r := range rules {
		if err := ensureRule(ctx, tx, r, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

// EnsureAdmin creates the admin user when it does not exist yet.
func EnsureAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admin seed transaction: %w", err)
	}
	if err := seedAdmin(ctx, tx, email, password, &Stats{}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admin seed transaction: %w", err)
	}
	return nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureModel(ctx context.Context, tx *sql.Tx, m pricing.Model, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pricing_models WHERE name = ? LIMIT 1)`, m.Name).Scan(&exists); err != nil {
		return fmt.Errorf("check pricing model %q existence: %w", m.Name, err)
	}
	if exists {
		return nil
	}

	formula, err := json.Marshal(m.Formula)
	if err != nil {
		return fmt.Errorf("encode formula of %q: %w", m.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pricing_models (name, description, category, base_price, formula_json, confidence, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Name, m.Description, m.Category, m.BasePrice, string(formula), m.Confidence, m.IsActive); err != nil {
		return fmt.Errorf("insert pricing model %q: %w", m.Name, err)
	}
	stats.Inserts++
	return nil
}

func ensureMarketData(ctx context.Context, tx *sql.Tx, p pricing.MarketDataPoint, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM market_data
			WHERE category = ? AND product = ? AND source = ?
			LIMIT 1
		)
	`, p.Category, p.Product, p.Source).Scan(&exists); err != nil {
		return fmt.Errorf("check market data existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO market_data (data_type, source, category, product, region, average_price, min_price, max_price, trend, confidence, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.DataType, p.Source, p.Category, p.Product, p.Region, p.AveragePrice, p.MinPrice, p.MaxPrice,
		string(p.Trend), p.Confidence, p.RecordedAt.UTC().Format("2006-01-02 15:04:05")); err != nil {
		return fmt.Errorf("insert market data for %q: %w", p.Product, err)
	}
	stats.Inserts++
	return nil
}

func ensureCustomer(ctx context.Context, tx *sql.Tx, c pricing.CustomerProfile, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM customer_behaviors WHERE customer_name = ? LIMIT 1)`, c.CustomerName).Scan(&exists); err != nil {
		return fmt.Errorf("check customer profile %q existence: %w", c.CustomerName, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO customer_behaviors (customer_name, behavior_type, category, average_value, price_acceptance, negotiation_rate)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.CustomerName, c.BehaviorType, c.Category, c.AverageValue, c.PriceAcceptance, c.NegotiationRate); err != nil {
		return fmt.Errorf("insert customer profile %q: %w", c.CustomerName, err)
	}
	stats.Inserts++
	return nil
}

func ensureRule(ctx context.Context, tx *sql.Tx, r pricing.Rule, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pricing_rules WHERE name = ? LIMIT 1)`, r.Name).Scan(&exists); err != nil {
		return fmt.Errorf("check pricing rule %q existence: %w", r.Name, err)
	}
	if exists {
		return nil
	}

	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions of %q: %w", r.Name, err)
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return fmt.Errorf("encode actions of %q: %w", r.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pricing_rules (name, description, rule_type, category, conditions_json, actions_json, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Name, r.Description, r.Type, r.Category, string(conditions), string(actions), r.Priority, r.IsActive); err != nil {
		return fmt.Errorf("insert pricing rule %q: %w", r.Name, err)
	}
	stats.Inserts++
	return nil
}
