package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const marketColumns = `id, data_type, source, category, product, region, average_price, min_price, max_price, trend, confidence, recorded_at`

// FindLatestMarketData returns the most recent market data point of category whose product
// contains product, or nil when there is none.
func (s *Store) FindLatestMarketData(ctx context.Context, category, product string) (*pricing.MarketDataPoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+marketColumns+`
		FROM market_data
		WHERE category = ? AND instr(product, ?) > 0
		ORDER BY datetime(recorded_at) DESC, id DESC
		LIMIT 1
	`, category, product)

	point, err := scanMarketData(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest market data: %w", err)
	}
	return &point, nil
}

// ListMarketData returns market data points, newest first. An empty category lists all.
func (s *Store) ListMarketData(ctx context.Context, category string) ([]pricing.MarketDataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+marketColumns+`
		FROM market_data
		WHERE (? = '' OR category = ?)
		ORDER BY datetime(recorded_at) DESC, id DESC
	`, category, category)
	if err != nil {
		return nil, fmt.Errorf("query market data: %w", err)
	}
	defer rows.Close()

	points := make([]pricing.MarketDataPoint, 0)
	for rows.Next() {
		p, err := scanMarketData(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market data: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market data: %w", err)
	}

	return points, nil
}

// CreateMarketData inserts p and returns its id. A zero RecordedAt is stamped with the current time.
func (s *Store) CreateMarketData(ctx context.Context, p pricing.MarketDataPoint) (int64, error) {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = s.now()
	}
	if p.Trend == "" {
		p.Trend = pricing.TrendStable
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO market_data (data_type, source, category, product, region, average_price, min_price, max_price, trend, confidence, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.DataType, p.Source, p.Category, p.Product, p.Region, p.AveragePrice, p.MinPrice, p.MaxPrice, string(p.Trend), p.Confidence, formatTime(p.RecordedAt))
	if err != nil {
		return 0, fmt.Errorf("insert market data: %w", err)
	}
	return result.LastInsertId()
}

func scanMarketData(row scanner) (pricing.MarketDataPoint, error) {
	var p pricing.MarketDataPoint
	var trend, recordedAt string
	if err := row.Scan(&p.ID, &p.DataType, &p.Source, &p.Category, &p.Product, &p.Region,
		&p.AveragePrice, &p.MinPrice, &p.MaxPrice, &trend, &p.Confidence, &recordedAt); err != nil {
		return pricing.MarketDataPoint{}, err
	}
	p.Trend = pricing.Trend(trend)

	t, err := parseTime(recordedAt)
	if err != nil {
		return pricing.MarketDataPoint{}, err
	}
	p.RecordedAt = t
	return p, nil
}
