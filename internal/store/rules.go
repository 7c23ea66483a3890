package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/pricing"
)

const ruleColumns = `id, name, description, rule_type, category, conditions_json, actions_json, priority, is_active`

// ListActiveRules returns the active rules of category and of the wildcard category, by
// ascending priority. Rules whose stored conditions or actions cannot be decoded are skipped.
func (s *Store) ListActiveRules(ctx context.Context, category string) ([]pricing.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		WHERE is_active = TRUE AND (category = ? OR category = ?)
		ORDER BY priority ASC, id ASC
	`, category, pricing.WildcardCategory)
	if err != nil {
		return nil, fmt.Errorf("query active pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]pricing.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			if rule.ID != 0 {
				s.logger.Warn("skipping pricing rule with invalid configuration",
					zap.Int64("rule_id", rule.ID),
					zap.String("rule", rule.Name),
					zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules: %w", err)
	}

	return rules, nil
}

// ListRules returns every rule by ascending priority.
func (s *Store) ListRules(ctx context.Context) ([]pricing.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]pricing.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules: %w", err)
	}

	return rules, nil
}

// CreateRule inserts r and returns its id.
func (s *Store) CreateRule(ctx context.Context, r pricing.Rule) (int64, error) {
	conditions, actions, err := encodeRule(r)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pricing_rules (name, description, rule_type, category, conditions_json, actions_json, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Name, r.Description, r.Type, r.Category, conditions, actions, r.Priority, r.IsActive)
	if err != nil {
		return 0, fmt.Errorf("insert pricing rule: %w", err)
	}
	return result.LastInsertId()
}

// UpdateRule overwrites the rule with r.ID.
func (s *Store) UpdateRule(ctx context.Context, r pricing.Rule) error {
	conditions, actions, err := encodeRule(r)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE pricing_rules
		SET
			name = ?,
			description = ?,
			rule_type = ?,
			category = ?,
			conditions_json = ?,
			actions_json = ?,
			priority = ?,
			is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, r.Name, r.Description, r.Type, r.Category, conditions, actions, r.Priority, r.IsActive, r.ID)
	if err != nil {
		return fmt.Errorf("update pricing rule: %w", err)
	}
	return checkAffected(result, fmt.Sprintf("pricing rule %d", r.ID))
}

func encodeRule(r pricing.Rule) (string, string, error) {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("encode rule conditions: %w", err)
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return "", "", fmt.Errorf("encode rule actions: %w", err)
	}
	return string(conditions), string(actions), nil
}

// scanRule returns the partially filled rule alongside decode errors so callers can report it.
func scanRule(row scanner) (pricing.Rule, error) {
	var r pricing.Rule
	var conditions, actions string
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Type, &r.Category, &conditions, &actions, &r.Priority, &r.IsActive); err != nil {
		return pricing.Rule{}, err
	}
	if err := json.Unmarshal([]byte(conditions), &r.Conditions); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
		return r, fmt.Errorf("decode rule actions: %w", err)
	}
	return r, nil
}
