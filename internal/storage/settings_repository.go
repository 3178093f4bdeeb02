package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"routing_gateway/internal/models"
)

// SettingFileUploadRouting is the settings key holding the file-upload policy
const SettingFileUploadRouting = "file_upload_routing"

// SettingsRepository stores singleton values as JSON in the settings table
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetFileUploadPolicy returns the stored policy or ErrPolicyNotSet
func (r *SettingsRepository) GetFileUploadPolicy(ctx context.Context) (*models.FileUploadPolicy, error) {
	var raw []byte
	err := r.db.conn.GetContext(ctx, &raw, `SELECT value FROM settings WHERE key = $1`, SettingFileUploadRouting)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPolicyNotSet
		}
		return nil, fmt.Errorf("failed to get file upload policy: %w", err)
	}

	var policy models.FileUploadPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("failed to decode file upload policy: %w", err)
	}
	return &policy, nil
}

// SetFileUploadPolicy overwrites the stored policy
func (r *SettingsRepository) SetFileUploadPolicy(ctx context.Context, policy models.FileUploadPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode file upload policy: %w", err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.conn.ExecContext(ctx, query, SettingFileUploadRouting, string(raw)); err != nil {
		return fmt.Errorf("failed to set file upload policy: %w", err)
	}
	return nil
}
