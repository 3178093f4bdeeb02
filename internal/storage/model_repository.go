package storage

import (
	"context"
	"fmt"

	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
)

// ModelRepository stores the model catalog as "provider/model" names
type ModelRepository struct {
	db     *DB
	logger *logging.Logger
}

// NewModelRepository creates a new model repository
func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{db: db, logger: logging.NewLogger("model-repository")}
}

// List returns catalog entries in insertion order. Malformed names are skipped.
func (r *ModelRepository) List(ctx context.Context) ([]models.ModelDescriptor, error) {
	var names []string
	if err := r.db.conn.SelectContext(ctx, &names, `SELECT name FROM models ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return parseModelNames(names, r.logger), nil
}

// Add inserts a model; adding an existing model is a no-op
func (r *ModelRepository) Add(ctx context.Context, d models.ModelDescriptor) error {
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO models (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, d.Name())
	if err != nil {
		return fmt.Errorf("failed to add model: %w", err)
	}
	return nil
}

// Delete removes a model from the catalog
func (r *ModelRepository) Delete(ctx context.Context, d models.ModelDescriptor) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM models WHERE name = $1`, d.Name())
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrModelNotFound
	}
	return nil
}

func parseModelNames(names []string, logger *logging.Logger) []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(names))
	for _, name := range names {
		d, err := models.ParseModelName(name)
		if err != nil {
			logger.Warn("Skipping malformed catalog entry", "name", name, "error", err)
			continue
		}
		out = append(out, d)
	}
	return out
}
