package store

import (
	"context"
	"fmt"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const defaultActivityLimit = 50

// AppendActivity stores an audit log entry.
func (s *Store) AppendActivity(ctx context.Context, a pricing.Activity) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (type, description, actor, prediction_id, product, category, predicted_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Type, a.Description, a.Actor, a.PredictionID, a.Product, a.Category, a.PredictedPrice, formatTime(createdAt)); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivities returns the most recent activities, newest first.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]pricing.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, description, actor, prediction_id, product, category, predicted_price, created_at
		FROM activities
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]pricing.Activity, 0)
	for rows.Next() {
		var a pricing.Activity
		var createdAt string
		if err := rows.Scan(&a.Type, &a.Description, &a.Actor, &a.PredictionID, &a.Product, &a.Category, &a.PredictedPrice, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return activities, nil
}
