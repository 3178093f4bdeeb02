package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/storage"
)

// PolicyRepository persists the file-upload policy.
type PolicyRepository interface {
	GetFileUploadPolicy(ctx context.Context) (*models.FileUploadPolicy, error)
	SetFileUploadPolicy(ctx context.Context, policy models.FileUploadPolicy) error
}

// ModelCatalog answers which providers serve a model.
type ModelCatalog interface {
	ProvidersFor(model string) []string
}

// PolicyOption configures a PolicyRegistry
type PolicyOption func(*PolicyRegistry)

// WithPolicyNotifier announces policy changes to other replicas
func WithPolicyNotifier(n Notifier) PolicyOption {
	return func(p *PolicyRegistry) { p.notifier = n }
}

// PolicyRegistry holds the single file-upload routing policy
type PolicyRegistry struct {
	repo     PolicyRepository
	catalog  ModelCatalog
	notifier Notifier

	mu      sync.Mutex
	current atomic.Pointer[models.FileUploadPolicy]
	logger  *logging.Logger
}

// NewPolicyRegistry creates a registry with no policy set
func NewPolicyRegistry(repo PolicyRepository, catalog ModelCatalog, opts ...PolicyOption) *PolicyRegistry {
	p := &PolicyRegistry{repo: repo, catalog: catalog, logger: logging.NewLogger("policy-registry")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads the persisted policy, if any
func (p *PolicyRegistry) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	policy, err := p.repo.GetFileUploadPolicy(ctx)
	if errors.Is(err, storage.ErrPolicyNotSet) {
		p.current.Store(nil)
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.Internal, err, "failed to load file upload policy")
	}
	p.current.Store(policy)
	return nil
}

// GetFileUploadModel returns the active policy, if one is configured
func (p *PolicyRegistry) GetFileUploadModel() (models.FileUploadPolicy, bool) {
	policy := p.current.Load()
	if policy == nil {
		return models.FileUploadPolicy{}, false
	}
	return *policy, true
}

// SetFileUploadModel makes model the file-upload target. The first catalog
// provider serving it is remembered with the policy.
func (p *PolicyRegistry) SetFileUploadModel(ctx context.Context, model string) (models.FileUploadPolicy, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return models.FileUploadPolicy{}, errs.New(errs.InvalidRequest, "model is required")
	}

	providers := p.catalog.ProvidersFor(model)
	if len(providers) == 0 {
		return models.FileUploadPolicy{}, errs.New(errs.InvalidModel, "model %q is not in the catalog", model)
	}

	policy := models.FileUploadPolicy{Model: model, Provider: providers[0], UpdatedAt: time.Now().UTC()}

	p.mu.Lock()
	if err := p.repo.SetFileUploadPolicy(ctx, policy); err != nil {
		p.mu.Unlock()
		return models.FileUploadPolicy{}, errs.Wrap(errs.Internal, err, "failed to store file upload policy")
	}
	p.current.Store(&policy)
	p.mu.Unlock()

	p.logger.Info("File upload model updated", "model", policy.Model, "provider", policy.Provider)
	if p.notifier != nil {
		if err := p.notifier.NotifyRulesChanged(ctx); err != nil {
			p.logger.Warn("Failed to announce policy change", "error", err)
		}
	}
	return policy, nil
}

// Run reloads the policy every interval until ctx is cancelled
func (p *PolicyRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Load(ctx); err != nil {
				p.logger.Warn("Policy reload failed, keeping previous policy", "error", err)
			}
		}
	}
}
