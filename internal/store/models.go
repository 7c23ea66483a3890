package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const modelColumns = `id, name, description, category, base_price, formula_json, confidence, is_active`

// FindBestModel returns the active model of category with the highest confidence.
func (s *Store) FindBestModel(ctx context.Context, category string) (pricing.Model, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+modelColumns+`
		FROM pricing_models
		WHERE category = ? AND is_active = TRUE
		ORDER BY confidence DESC, id ASC
		LIMIT 1
	`, category)

	model, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Model{}, fmt.Errorf("%w: no active model for category %q", pricing.ErrModelNotFound, category)
	}
	if err != nil {
		return pricing.Model{}, fmt.Errorf("query best pricing model: %w", err)
	}
	return model, nil
}

// ListModels returns every model, newest first.
func (s *Store) ListModels(ctx context.Context) ([]pricing.Model, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+modelColumns+`
		FROM pricing_models
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pricing models: %w", err)
	}
	defer rows.Close()

	models := make([]pricing.Model, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing model: %w", err)
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing models: %w", err)
	}

	return models, nil
}

// CreateModel inserts m and returns its id.
func (s *Store) CreateModel(ctx context.Context, m pricing.Model) (int64, error) {
	formula, err := json.Marshal(m.Formula)
	if err != nil {
		return 0, fmt.Errorf("encode model formula: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_models (name, description, category, base_price, formula_json, confidence, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Name, m.Description, m.Category, m.BasePrice, string(formula), m.Confidence, m.IsActive)
	if err != nil {
		return 0, fmt.Errorf("insert pricing model: %w", err)
	}
	return result.LastInsertId()
}

// UpdateModel overwrites the model with m.ID.
func (s *Store) UpdateModel(ctx context.Context, m pricing.Model) error {
	formula, err := json.Marshal(m.Formula)
	if err != nil {
		return fmt.Errorf("encode model formula: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE pricing_models
		SET
			name = ?,
			description = ?,
			category = ?,
			base_price = ?,
			formula_json = ?,
			confidence = ?,
			is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Name, m.Description, m.Category, m.BasePrice, string(formula), m.Confidence, m.IsActive, m.ID)
	if err != nil {
		return fmt.Errorf("update pricing model: %w", err)
	}
	return checkAffected(result, fmt.Sprintf("pricing model %d", m.ID))
}

func scanModel(row scanner) (pricing.Model, error) {
	var m pricing.Model
	var formula string
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.BasePrice, &formula, &m.Confidence, &m.IsActive); err != nil {
		return pricing.Model{}, err
	}
	if err := json.Unmarshal([]byte(formula), &m.Formula); err != nil {
		return pricing.Model{}, fmt.Errorf("decode formula of model %d: %w", m.ID, err)
	}
	return m, nil
}
