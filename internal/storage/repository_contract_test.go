package storage

import (
	"context"
	"errors"
	"testing"

	"routing_gateway/internal/models"
)

type ruleRepository interface {
	Create(ctx context.Context, rule *models.RoutingRule) error
	List(ctx context.Context) ([]models.RoutingRule, error)
	Delete(ctx context.Context, id int64) error
}

type settingsRepository interface {
	GetFileUploadPolicy(ctx context.Context) (*models.FileUploadPolicy, error)
	SetFileUploadPolicy(ctx context.Context, policy models.FileUploadPolicy) error
}

// testRuleRepository runs the behaviour every rule backend must share
func testRuleRepository(t *testing.T, repo ruleRepository) {
	t.Helper()
	ctx := context.Background()

	inputs := []models.RoutingRule{
		{OriginalModel: "gpt-a", Pattern: "^gpt-a$", RedirectModel: "gpt-a-v2"},
		{OriginalModel: "gpt-a", Pattern: "gpt", RedirectModel: "gpt-a-v3"},
		{OriginalModel: "claude", Pattern: ".*", RedirectModel: "claude-2"},
	}

	var ids []int64
	for i := range inputs {
		rule := inputs[i]
		if err := repo.Create(ctx, &rule); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if rule.ID == 0 {
			t.Fatal("Create() did not assign an id")
		}
		if len(ids) > 0 && rule.ID <= ids[len(ids)-1] {
			t.Errorf("ids not increasing: %d after %d", rule.ID, ids[len(ids)-1])
		}
		if rule.CreatedAt.IsZero() {
			t.Error("Create() did not set CreatedAt")
		}
		ids = append(ids, rule.ID)
	}

	rules, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("List() len = %d, want 3", len(rules))
	}
	for i, rule := range rules {
		if rule.ID != ids[i] {
			t.Errorf("List()[%d].ID = %d, want %d", i, rule.ID, ids[i])
		}
		if rule.RedirectModel != inputs[i].RedirectModel || rule.Pattern != inputs[i].Pattern || rule.OriginalModel != inputs[i].OriginalModel {
			t.Errorf("List()[%d] = %+v, want fields of %+v", i, rule, inputs[i])
		}
	}

	if err := repo.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, ids[1]); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("second Delete() error = %v, want ErrRuleNotFound", err)
	}
	if err := repo.Delete(ctx, 999999); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Delete(unknown) error = %v, want ErrRuleNotFound", err)
	}

	rules, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 2 || rules[0].ID != ids[0] || rules[1].ID != ids[2] {
		t.Errorf("List() after delete = %+v", rules)
	}

	// Deleting the newest rule must not let its id be handed out again.
	if err := repo.Delete(ctx, ids[2]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	next := models.RoutingRule{OriginalModel: "x", Pattern: "x", RedirectModel: "y"}
	if err := repo.Create(ctx, &next); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if next.ID <= ids[2] {
		t.Errorf("id %d reused after delete of %d", next.ID, ids[2])
	}
}

func testSettingsRepository(t *testing.T, repo settingsRepository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.GetFileUploadPolicy(ctx); !errors.Is(err, ErrPolicyNotSet) {
		t.Fatalf("GetFileUploadPolicy() on empty store error = %v, want ErrPolicyNotSet", err)
	}

	if err := repo.SetFileUploadPolicy(ctx, models.FileUploadPolicy{Model: "vision-1", Provider: "openai"}); err != nil {
		t.Fatalf("SetFileUploadPolicy() error = %v", err)
	}
	if err := repo.SetFileUploadPolicy(ctx, models.FileUploadPolicy{Model: "gemini-pro-vision", Provider: "gemini"}); err != nil {
		t.Fatalf("SetFileUploadPolicy() error = %v", err)
	}

	policy, err := repo.GetFileUploadPolicy(ctx)
	if err != nil {
		t.Fatalf("GetFileUploadPolicy() error = %v", err)
	}
	if policy.Model != "gemini-pro-vision" || policy.Provider != "gemini" {
		t.Errorf("GetFileUploadPolicy() = %+v, want last write", policy)
	}
}
