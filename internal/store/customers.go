package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const customerColumns = `customer_name, behavior_type, category, average_value, price_acceptance, negotiation_rate`

// FindCustomerProfile returns the behaviour profile of customerName, or nil when there is none.
func (s *Store) FindCustomerProfile(ctx context.Context, customerName string) (*pricing.CustomerProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customer_behaviors
		WHERE customer_name = ?
	`, customerName)

	profile, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer profile: %w", err)
	}
	return &profile, nil
}

// ListCustomerProfiles returns every profile by customer name.
func (s *Store) ListCustomerProfiles(ctx context.Context) ([]pricing.CustomerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customer_behaviors
		ORDER BY customer_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query customer profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]pricing.CustomerProfile, 0)
	for rows.Next() {
		p, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer profiles: %w", err)
	}

	return profiles, nil
}

// UpsertCustomerProfile creates or replaces the profile of p.CustomerName. It reports whether a
// new row was inserted.
func (s *Store) UpsertCustomerProfile(ctx context.Context, p pricing.CustomerProfile) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customer_behaviors WHERE customer_name = ?)`, p.CustomerName,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer profile existence: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_behaviors (customer_name, behavior_type, category, average_value, price_acceptance, negotiation_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_name) DO UPDATE SET
			behavior_type = excluded.behavior_type,
			category = excluded.category,
			average_value = excluded.average_value,
			price_acceptance = excluded.price_acceptance,
			negotiation_rate = excluded.negotiation_rate,
			updated_at = CURRENT_TIMESTAMP
	`, p.CustomerName, p.BehaviorType, p.Category, p.AverageValue, p.PriceAcceptance, p.NegotiationRate); err != nil {
		return false, fmt.Errorf("upsert customer profile: %w", err)
	}
	return !exists, nil
}

func scanCustomer(row scanner) (pricing.CustomerProfile, error) {
	var p pricing.CustomerProfile
	err := row.Scan(&p.CustomerName, &p.BehaviorType, &p.Category, &p.AverageValue, &p.PriceAcceptance, &p.NegotiationRate)
	return p, err
}
