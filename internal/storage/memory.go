package storage

import (
	"context"
	"sync"
	"time"

	"routing_gateway/internal/models"
)

// MemoryRuleRepository keeps rules in process memory. Ids are never reused.
type MemoryRuleRepository struct {
	mu     sync.Mutex
	nextID int64
	rules  []models.RoutingRule
}

// NewMemoryRuleRepository creates an empty in-memory rule repository
func NewMemoryRuleRepository() *MemoryRuleRepository {
	return &MemoryRuleRepository{nextID: 1}
}

func (r *MemoryRuleRepository) Create(ctx context.Context, rule *models.RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule.ID = r.nextID
	rule.CreatedAt = time.Now().UTC()
	r.nextID++
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *MemoryRuleRepository) List(ctx context.Context) ([]models.RoutingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.RoutingRule, len(r.rules))
	copy(out, r.rules)
	return out, nil
}

func (r *MemoryRuleRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return ErrRuleNotFound
}

// MemorySettingsRepository keeps the file-upload policy in process memory
type MemorySettingsRepository struct {
	mu     sync.Mutex
	policy *models.FileUploadPolicy
}

// NewMemorySettingsRepository creates an empty in-memory settings repository
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{}
}

func (r *MemorySettingsRepository) GetFileUploadPolicy(ctx context.Context) (*models.FileUploadPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == nil {
		return nil, ErrPolicyNotSet
	}
	p := *r.policy
	return &p, nil
}

func (r *MemorySettingsRepository) SetFileUploadPolicy(ctx context.Context, policy models.FileUploadPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policy = &policy
	return nil
}
