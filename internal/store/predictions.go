package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

// PredictionSummary is a recorded prediction as listed in search results.
type PredictionSummary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	Product        string    `json:"product"`
	Category       string    `json:"category"`
	CustomerName   string    `json:"customerName,omitempty"`
	Quantity       float64   `json:"quantity"`
	PredictedPrice float64   `json:"predictedPrice"`
	Confidence     float64   `json:"confidence"`
	ModelUsed      string    `json:"modelUsed"`
	TargetID       string    `json:"targetId"`
	TargetType     string    `json:"targetType"`
}

// SavePrediction stores rec.
func (s *Store) SavePrediction(ctx context.Context, rec pricing.Record) error {
	request, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("encode prediction request: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode prediction result: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_predictions (
			id,
			prediction_type,
			target_id,
			target_type,
			model_id,
			model_used,
			product,
			category,
			customer_name,
			quantity,
			predicted_price,
			confidence,
			request_json,
			result_json,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.PredictionType,
		rec.Target.ID,
		rec.Target.Type,
		rec.ModelID,
		rec.Result.ModelUsed,
		rec.Request.Product,
		rec.Request.Category,
		rec.Request.CustomerName,
		rec.Request.Quantity,
		rec.Result.PredictedPrice,
		rec.Result.Confidence,
		string(request),
		string(result),
		formatTime(createdAt),
	); err != nil {
		return fmt.Errorf("insert pricing prediction: %w", err)
	}
	return nil
}

// ListPredictions returns recorded predictions, newest first. A non-empty query filters on
// product, category or customer name.
func (s *Store) ListPredictions(ctx context.Context, query string) ([]PredictionSummary, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			created_at,
			product,
			category,
			customer_name,
			quantity,
			predicted_price,
			confidence,
			model_used,
			target_id,
			target_type
		FROM pricing_predictions
		WHERE (? = '' OR product LIKE ? OR category LIKE ? OR customer_name LIKE ?)
		ORDER BY datetime(created_at) DESC, rowid DESC
	`, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query pricing predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]PredictionSummary, 0)
	for rows.Next() {
		var p PredictionSummary
		var createdAt string
		if err := rows.Scan(&p.ID, &createdAt, &p.Product, &p.Category, &p.CustomerName, &p.Quantity,
			&p.PredictedPrice, &p.Confidence, &p.ModelUsed, &p.TargetID, &p.TargetType); err != nil {
			return nil, fmt.Errorf("scan pricing prediction: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing predictions: %w", err)
	}

	return predictions, nil
}

// GetPrediction returns the full record of prediction id.
func (s *Store) GetPrediction(ctx context.Context, id string) (pricing.Record, error) {
	var rec pricing.Record
	var request, result, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, prediction_type, target_id, target_type, model_id, request_json, result_json, created_at
		FROM pricing_predictions
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.PredictionType, &rec.Target.ID, &rec.Target.Type, &rec.ModelID, &request, &result, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Record{}, fmt.Errorf("pricing prediction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return pricing.Record{}, fmt.Errorf("query pricing prediction: %w", err)
	}

	if err := json.Unmarshal([]byte(request), &rec.Request); err != nil {
		return pricing.Record{}, fmt.Errorf("decode prediction request: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return pricing.Record{}, fmt.Errorf("decode prediction result: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return pricing.Record{}, err
	}
	return rec, nil
}
