package storage

import (
	"context"
	"fmt"

	"routing_gateway/internal/models"
)

// RuleRepository stores routing rules in the routing_policies table
type RuleRepository struct {
	db *DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create inserts rule and fills in its ID and CreatedAt
func (r *RuleRepository) Create(ctx context.Context, rule *models.RoutingRule) error {
	query := `
		INSERT INTO routing_policies (model_name, regex_pattern, redirect_model)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.conn.QueryRowxContext(ctx, query, rule.OriginalModel, rule.Pattern, rule.RedirectModel).
		Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// List returns all rules in insertion order
func (r *RuleRepository) List(ctx context.Context) ([]models.RoutingRule, error) {
	query := `
		SELECT id, model_name, regex_pattern, redirect_model, created_at
		FROM routing_policies
		ORDER BY id
	`

	var rules []models.RoutingRule
	if err := r.db.conn.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return rules, nil
}

// Delete removes a rule by ID
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM routing_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrRuleNotFound
	}

	return nil
}
