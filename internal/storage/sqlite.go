package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
)

type ruleRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ModelName     string    `gorm:"not null;index"`
	RegexPattern  string    `gorm:"not null"`
	RedirectModel string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (ruleRow) TableName() string { return "routing_policies" }

type settingRow struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (settingRow) TableName() string { return "settings" }

type modelRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (modelRow) TableName() string { return "models" }

type dispatchRow struct {
	ID            string `gorm:"primaryKey"`
	RequestID     string `gorm:"not null;index"`
	Leg           string `gorm:"not null"`
	Provider      string `gorm:"not null"`
	Model         string `gorm:"not null"`
	OriginalModel string
	RuleID        int64
	LatencyMs     int64
	ErrorKind     string
	ErrorMessage  string
	CreatedAt     time.Time
}

func (dispatchRow) TableName() string { return "dispatch_log" }

// OpenSQLite opens (or creates) an embedded database and migrates the
// gateway tables. Use "file::memory:?cache=shared" for a throwaway store.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&ruleRow{}, &settingRow{}, &modelRow{}, &dispatchRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return db, nil
}

// SQLiteRuleRepository stores routing rules through gorm
type SQLiteRuleRepository struct {
	db *gorm.DB
}

// NewSQLiteRuleRepository creates a new rule repository
func NewSQLiteRuleRepository(db *gorm.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

// Create inserts rule and fills in its ID and CreatedAt
func (r *SQLiteRuleRepository) Create(ctx context.Context, rule *models.RoutingRule) error {
	row := ruleRow{
		ModelName:     rule.OriginalModel,
		RegexPattern:  rule.Pattern,
		RedirectModel: rule.RedirectModel,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	rule.ID = row.ID
	rule.CreatedAt = row.CreatedAt
	return nil
}

// List returns all rules in insertion order
func (r *SQLiteRuleRepository) List(ctx context.Context) ([]models.RoutingRule, error) {
	var rows []ruleRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]models.RoutingRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, models.RoutingRule{
			ID:            row.ID,
			OriginalModel: row.ModelName,
			Pattern:       row.RegexPattern,
			RedirectModel: row.RedirectModel,
			CreatedAt:     row.CreatedAt,
		})
	}
	return rules, nil
}

// Delete removes a rule by ID
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&ruleRow{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// SQLiteSettingsRepository stores the file-upload policy through gorm
type SQLiteSettingsRepository struct {
	db *gorm.DB
}

// NewSQLiteSettingsRepository creates a new settings repository
func NewSQLiteSettingsRepository(db *gorm.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

// GetFileUploadPolicy returns the stored policy or ErrPolicyNotSet
func (r *SQLiteSettingsRepository) GetFileUploadPolicy(ctx context.Context) (*models.FileUploadPolicy, error) {
	var row settingRow
	err := r.db.WithContext(ctx).Where("key = ?", SettingFileUploadRouting).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotSet
		}
		return nil, fmt.Errorf("failed to get file upload policy: %w", err)
	}

	var policy models.FileUploadPolicy
	if err := json.Unmarshal([]byte(row.Value), &policy); err != nil {
		return nil, fmt.Errorf("failed to decode file upload policy: %w", err)
	}
	return &policy, nil
}

// SetFileUploadPolicy overwrites the stored policy
func (r *SQLiteSettingsRepository) SetFileUploadPolicy(ctx context.Context, policy models.FileUploadPolicy) error {
	raw, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode file upload policy: %w", err)
	}

	row := settingRow{Key: SettingFileUploadRouting, Value: string(raw), UpdatedAt: time.Now().UTC()}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set file upload policy: %w", err)
	}
	return nil
}

// SQLiteModelRepository stores the model catalog through gorm
type SQLiteModelRepository struct {
	db     *gorm.DB
	logger *logging.Logger
}

// NewSQLiteModelRepository creates a new model repository
func NewSQLiteModelRepository(db *gorm.DB) *SQLiteModelRepository {
	return &SQLiteModelRepository{db: db, logger: logging.NewLogger("model-repository")}
}

// List returns catalog entries in insertion order
func (r *SQLiteModelRepository) List(ctx context.Context) ([]models.ModelDescriptor, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&modelRow{}).Order("id").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return parseModelNames(names, r.logger), nil
}

// Add inserts a model; adding an existing model is a no-op
func (r *SQLiteModelRepository) Add(ctx context.Context, d models.ModelDescriptor) error {
	row := modelRow{Name: d.Name(), CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to add model: %w", err)
	}
	return nil
}

// Delete removes a model from the catalog
func (r *SQLiteModelRepository) Delete(ctx context.Context, d models.ModelDescriptor) error {
	result := r.db.WithContext(ctx).Where("name = ?", d.Name()).Delete(&modelRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete model: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrModelNotFound
	}
	return nil
}

// SQLiteDispatchLogRepository persists dispatch audit records through gorm
type SQLiteDispatchLogRepository struct {
	db *gorm.DB
}

// NewSQLiteDispatchLogRepository creates a new dispatch log repository
func NewSQLiteDispatchLogRepository(db *gorm.DB) *SQLiteDispatchLogRepository {
	return &SQLiteDispatchLogRepository{db: db}
}

// WriteBatch inserts records in a single transaction
func (r *SQLiteDispatchLogRepository) WriteBatch(ctx context.Context, records []*models.DispatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]dispatchRow, 0, len(records))
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rows = append(rows, dispatchRow{
			ID:            rec.ID.String(),
			RequestID:     rec.RequestID,
			Leg:           rec.Leg,
			Provider:      rec.Provider,
			Model:         rec.Model,
			OriginalModel: rec.OriginalModel,
			RuleID:        rec.RuleID,
			LatencyMs:     rec.LatencyMs,
			ErrorKind:     rec.ErrorKind,
			ErrorMessage:  rec.ErrorMessage,
			CreatedAt:     rec.CreatedAt,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert dispatch records: %w", err)
	}
	return nil
}

// ListByRequest returns the records of one request, oldest first
func (r *SQLiteDispatchLogRepository) ListByRequest(ctx context.Context, requestID string) ([]models.DispatchRecord, error) {
	var rows []dispatchRow
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch records: %w", err)
	}

	records := make([]models.DispatchRecord, 0, len(rows))
	for _, row := range rows {
		id, _ := uuid.Parse(row.ID)
		records = append(records, models.DispatchRecord{
			ID:            id,
			RequestID:     row.RequestID,
			Leg:           row.Leg,
			Provider:      row.Provider,
			Model:         row.Model,
			OriginalModel: row.OriginalModel,
			RuleID:        row.RuleID,
			LatencyMs:     row.LatencyMs,
			ErrorKind:     row.ErrorKind,
			ErrorMessage:  row.ErrorMessage,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records, nil
}
