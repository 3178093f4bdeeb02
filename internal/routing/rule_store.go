// Package routing owns the administrator-maintained routing state: regex
// rewrite rules and the file-upload policy.
package routing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/storage"
)

// RuleRepository persists rules and assigns their ids.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.RoutingRule) error
	List(ctx context.Context) ([]models.RoutingRule, error)
	Delete(ctx context.Context, id int64) error
}

// Notifier tells other replicas the stored rule set changed.
type Notifier interface {
	NotifyRulesChanged(ctx context.Context) error
}

// RedirectValidator rejects redirect targets the gateway cannot serve.
type RedirectValidator func(model string) error

// RuleStoreOption configures a RuleStore
type RuleStoreOption func(*RuleStore)

// WithNotifier publishes a change event after every committed mutation
func WithNotifier(n Notifier) RuleStoreOption {
	return func(s *RuleStore) { s.notifier = n }
}

// WithRedirectValidator checks redirect models on Add
func WithRedirectValidator(v RedirectValidator) RuleStoreOption {
	return func(s *RuleStore) { s.validate = v }
}

// RuleStore is the authoritative ordered rule collection. Mutations are
// serialized; readers work on an immutable snapshot and never block.
type RuleStore struct {
	repo     RuleRepository
	notifier Notifier
	validate RedirectValidator

	mu      sync.Mutex
	current atomic.Pointer[RuleSet]
	logger  *logging.Logger
}

// NewRuleStore creates a store over repo. Call Reload to load persisted rules.
func NewRuleStore(repo RuleRepository, opts ...RuleStoreOption) *RuleStore {
	s := &RuleStore{repo: repo, logger: logging.NewLogger("rule-store")}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&RuleSet{})
	return s
}

// Snapshot returns the current immutable rule set
func (s *RuleStore) Snapshot() *RuleSet {
	return s.current.Load()
}

// List returns all live rules in insertion order
func (s *RuleStore) List() []models.RoutingRule {
	return s.Snapshot().Rules()
}

// Add validates and persists rule, returning its assigned id
func (s *RuleStore) Add(ctx context.Context, rule models.RoutingRule) (int64, error) {
	rule.OriginalModel = strings.TrimSpace(rule.OriginalModel)
	rule.RedirectModel = strings.TrimSpace(rule.RedirectModel)

	if rule.OriginalModel == "" {
		return 0, errs.New(errs.RuleValidation, "originalModel is required")
	}
	if rule.RedirectModel == "" {
		return 0, errs.New(errs.RuleValidation, "redirectModel is required")
	}
	if rule.Pattern == "" {
		return 0, errs.New(errs.RuleValidation, "pattern is required")
	}
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return 0, errs.Wrap(errs.RuleValidation, err, "invalid pattern %q", rule.Pattern)
	}
	if s.validate != nil {
		if err := s.validate(rule.RedirectModel); err != nil {
			return 0, errs.Wrap(errs.RuleValidation, err, "redirect model %q is not available", rule.RedirectModel)
		}
	}

	s.mu.Lock()
	rule.ID = 0
	if err := s.repo.Create(ctx, &rule); err != nil {
		s.mu.Unlock()
		return 0, errs.Wrap(errs.Internal, err, "failed to store rule")
	}
	s.current.Store(s.current.Load().with(compiledRule{rule: rule, re: re}))
	s.mu.Unlock()

	s.logger.Info("Rule added", "id", rule.ID, "original", rule.OriginalModel, "pattern", rule.Pattern, "redirect", rule.RedirectModel)
	s.notify(ctx)
	return rule.ID, nil
}

// Delete removes the rule with id
func (s *RuleStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, storage.ErrRuleNotFound) {
		s.mu.Unlock()
		return errs.New(errs.NotFound, "Rule not found")
	}
	if err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.Internal, err, "failed to delete rule %d", id)
	}
	s.current.Store(s.current.Load().without(id))
	s.mu.Unlock()

	s.logger.Info("Rule deleted", "id", id)
	s.notify(ctx)
	return nil
}

// Reload rebuilds the snapshot from the repository
func (s *RuleStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.repo.List(ctx)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "failed to load rules")
	}

	set := &RuleSet{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			s.logger.Warn("Stored rule has an invalid pattern and will never match", "id", rule.ID, "pattern", rule.Pattern, "error", err)
			re = nil
		}
		set.rules = append(set.rules, compiledRule{rule: rule, re: re})
	}
	s.current.Store(set)
	s.logger.Debug("Rules reloaded", "count", set.Len())
	return nil
}

// Run reloads the rules every interval until ctx is cancelled
func (s *RuleStore) Run(ctx context.Context, interval time.Duration) {
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
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn("Rule reload failed, keeping previous rules", "error", err)
			}
		}
	}
}

func (s *RuleStore) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRulesChanged(ctx); err != nil {
		s.logger.Warn("Failed to announce rule change", "error", err)
	}
}
