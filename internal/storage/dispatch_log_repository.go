package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"routing_gateway/internal/models"
)

// DispatchLogRepository persists dispatch audit records
type DispatchLogRepository struct {
	db *DB
}

// NewDispatchLogRepository creates a new dispatch log repository
func NewDispatchLogRepository(db *DB) *DispatchLogRepository {
	return &DispatchLogRepository{db: db}
}

// WriteBatch inserts records in a single transaction
func (r *DispatchLogRepository) WriteBatch(ctx context.Context, records []*models.DispatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO dispatch_log (
			id, request_id, leg, provider, model, original_model, rule_id,
			latency_ms, error_kind, error_message, created_at
		) VALUES (
			:id, :request_id, :leg, :provider, :model, :original_model, :rule_id,
			:latency_ms, :error_kind, :error_message, :created_at
		)
		ON CONFLICT (id) DO NOTHING
	`

	for _, record := range records {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
			return fmt.Errorf("failed to insert dispatch record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByRequest returns the records of one request, oldest first
func (r *DispatchLogRepository) ListByRequest(ctx context.Context, requestID string) ([]models.DispatchRecord, error) {
	query := `
		SELECT id, request_id, leg, provider, model, original_model, rule_id,
		       latency_ms, error_kind, error_message, created_at
		FROM dispatch_log
		WHERE request_id = $1
		ORDER BY created_at
	`

	var records []models.DispatchRecord
	if err := r.db.conn.SelectContext(ctx, &records, query, requestID); err != nil {
		return nil, fmt.Errorf("failed to list dispatch records: %w", err)
	}
	return records, nil
}
