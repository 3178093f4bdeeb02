package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routing_gateway/internal/catalog"
	"routing_gateway/internal/dispatch"
	"routing_gateway/internal/errs"
	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
	"routing_gateway/internal/routing"
	"routing_gateway/internal/storage"
)

type call struct {
	model  string
	prompt string
}

// recordingProvider answers "<id>:<model>" and remembers every call
type recordingProvider struct {
	id       string
	failures map[string]error

	mu    sync.Mutex
	calls []call
}

func (p *recordingProvider) ID() string   { return p.id }
func (p *recordingProvider) Type() string { return "recording" }
func (p *recordingProvider) Close() error { return nil }

func (p *recordingProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, call{model: model, prompt: prompt})
	p.mu.Unlock()
	if err := p.failures[model]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", p.id, model), nil
}

func (p *recordingProvider) models() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.model
	}
	return out
}

type harness struct {
	rules    *routing.RuleStore
	policies *routing.PolicyRegistry
	openai   *recordingProvider
	gemini   *recordingProvider
	orch     *Orchestrator
}

func newHarness(t *testing.T, mode routing.MatchMode) *harness {
	t.Helper()
	cat := catalog.NewStatic(
		models.ModelDescriptor{Provider: "openai", Model: "gpt-a"},
		models.ModelDescriptor{Provider: "openai", Model: "gpt-a-v2"},
		models.ModelDescriptor{Provider: "openai", Model: "gpt-z"},
		models.ModelDescriptor{Provider: "openai", Model: "vision-1"},
		models.ModelDescriptor{Provider: "gemini", Model: "gemini-alpha"},
		models.ModelDescriptor{Provider: "gemini", Model: "vision-2"},
	)

	h := &harness{
		openai: &recordingProvider{id: "openai", failures: map[string]error{}},
		gemini: &recordingProvider{id: "gemini", failures: map[string]error{}},
	}
	reg := providers.NewRegistry(func(cfg providers.Config) (providers.Provider, error) {
		if cfg.ID == h.gemini.id {
			return h.gemini, nil
		}
		return h.openai, nil
	})
	reg.Sync(cat.ProviderConfigs())

	h.rules = routing.NewRuleStore(storage.NewMemoryRuleRepository())
	h.policies = routing.NewPolicyRegistry(storage.NewMemorySettingsRepository(), cat)
	d := dispatch.New(cat, reg, nil, time.Second)
	h.orch = NewOrchestrator(routing.NewResolver(h.rules, mode), d, h.policies, cat, NewExtractor(64))
	return h
}

func (h *harness) addRule(t *testing.T, original, pattern, redirect string) {
	t.Helper()
	_, err := h.rules.Add(context.Background(), models.RoutingRule{OriginalModel: original, Pattern: pattern, RedirectModel: redirect})
	require.NoError(t, err)
}

func TestHandle_RuleRedirectsTextLeg(t *testing.T) {
	h := newHarness(t, routing.MatchModel)
	h.addRule(t, "gpt-a", "^gpt-a$", "gpt-a-v2")

	resp, err := h.orch.Handle(context.Background(), Request{RequestID: "r1", Provider: "openai", Model: "gpt-a", Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"gpt-a-v2"}, h.openai.models(), "dispatches to gpt-a-v2, not gpt-a")
	assert.Equal(t, "openai:gpt-a-v2", resp.Text.Text)
	assert.Equal(t, "gpt-a", resp.Text.OriginalModel)
	assert.NotZero(t, resp.Text.RuleID)
	assert.Nil(t, resp.File)
	assert.False(t, resp.FileAttached)
	assert.Empty(t, resp.FileNotice)
}

func TestHandle_NoRulesPassesThrough(t *testing.T) {
	h := newHarness(t, routing.MatchModel)

	resp, err := h.orch.Handle(context.Background(), Request{Provider: "openai", Model: "gpt-z", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-z"}, h.openai.models())
	assert.Equal(t, "gpt-z", resp.Text.Model)
	assert.Zero(t, resp.Text.RuleID)
}

func TestHandle_FileLegUsesPolicy(t *testing.T) {
	h := newHarness(t, routing.MatchModel)
	h.addRule(t, "gpt-a", "^gpt-a$", "gpt-a-v2")
	_, err := h.policies.SetFileUploadModel(context.Background(), "vision-1")
	require.NoError(t, err)

	resp, err := h.orch.Handle(context.Background(), Request{
		Provider: "openai", Model: "gpt-a", Prompt: "describe",
		File: &Attachment{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("the quick brown fox")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"gpt-a-v2", "vision-1"}, h.openai.models())
	assert.Equal(t, "openai:gpt-a-v2", resp.Text.Text)
	require.NotNil(t, resp.File)
	assert.Equal(t, "vision-1", resp.File.Model)
	assert.Equal(t, "openai:vision-1", resp.File.Text)
	assert.NoError(t, resp.File.Err)
	assert.True(t, resp.FileAttached)

	filePrompt := h.openai.calls[1].prompt
	assert.True(t, strings.HasPrefix(filePrompt, "describe\n\n"))
	assert.Contains(t, filePrompt, "the quick brown fox")
	assert.Equal(t, "describe", h.openai.calls[0].prompt, "the text leg does not see the file")
}

func TestHandle_FileWithoutPolicy(t *testing.T) {
	h := newHarness(t, routing.MatchModel)

	resp, err := h.orch.Handle(context.Background(), Request{
		Provider: "openai", Model: "gpt-a", Prompt: "describe",
		File: &Attachment{Filename: "a.png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.File)
	assert.Equal(t, NoFileRoutingNotice, resp.FileNotice)
	assert.True(t, resp.FileAttached)
	assert.Equal(t, []string{"gpt-a"}, h.openai.models())
}

func TestHandle_FileLegFailureIsDegraded(t *testing.T) {
	h := newHarness(t, routing.MatchModel)
	_, err := h.policies.SetFileUploadModel(context.Background(), "vision-2")
	require.NoError(t, err)
	h.gemini.failures["vision-2"] = errors.New("overloaded")

	resp, err := h.orch.Handle(context.Background(), Request{
		Provider: "openai", Model: "gpt-a", Prompt: "describe",
		File: &Attachment{Filename: "a.txt", Data: []byte("x")},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-a", resp.Text.Text)
	require.NotNil(t, resp.File)
	assert.Equal(t, "gemini", resp.File.Provider)
	assert.Equal(t, errs.ProviderFailure, errs.KindOf(resp.File.Err))
	assert.Empty(t, resp.File.Text)
}

func TestHandle_TextLegFailureFailsRequest(t *testing.T) {
	h := newHarness(t, routing.MatchModel)
	_, err := h.policies.SetFileUploadModel(context.Background(), "vision-1")
	require.NoError(t, err)
	h.openai.failures["gpt-a"] = errors.New("boom")

	_, err = h.orch.Handle(context.Background(), Request{
		Provider: "openai", Model: "gpt-a", Prompt: "describe",
		File: &Attachment{Filename: "a.txt", Data: []byte("x")},
	})
	assert.Equal(t, errs.ProviderFailure, errs.KindOf(err))
	assert.Equal(t, []string{"gpt-a"}, h.openai.models(), "the file leg never runs")
}

func TestHandle_Validation(t *testing.T) {
	h := newHarness(t, routing.MatchModel)

	tests := []struct {
		name string
		req  Request
		want errs.Kind
	}{
		{name: "missing provider", req: Request{Model: "gpt-a", Prompt: "hi"}, want: errs.InvalidRequest},
		{name: "missing model", req: Request{Provider: "openai", Prompt: "hi"}, want: errs.InvalidRequest},
		{name: "blank prompt", req: Request{Provider: "openai", Model: "gpt-a", Prompt: "  "}, want: errs.InvalidRequest},
		{name: "unknown provider", req: Request{Provider: "mistral", Model: "gpt-a", Prompt: "hi"}, want: errs.InvalidProvider},
		{name: "unknown model", req: Request{Provider: "openai", Model: "gpt-404", Prompt: "hi"}, want: errs.InvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orch.Handle(context.Background(), tt.req)
			assert.Equal(t, tt.want, errs.KindOf(err))
		})
	}
	assert.Empty(t, h.openai.models())
}

func TestHandle_RedirectSwitchesProvider(t *testing.T) {
	h := newHarness(t, routing.MatchModel)
	h.addRule(t, "gpt-a", "gpt", "gemini-alpha")

	resp, err := h.orch.Handle(context.Background(), Request{Provider: "openai", Model: "gpt-a", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", resp.Text.Provider)
	assert.Equal(t, []string{"gemini-alpha"}, h.gemini.models())
	assert.Empty(t, h.openai.models())
}

func TestHandle_PromptMatchMode(t *testing.T) {
	h := newHarness(t, routing.MatchPrompt)
	h.addRule(t, "gpt-a", "(?i)summari[sz]e", "gpt-a-v2")

	_, err := h.orch.Handle(context.Background(), Request{Provider: "openai", Model: "gpt-a", Prompt: "Summarize this"})
	require.NoError(t, err)
	_, err = h.orch.Handle(context.Background(), Request{Provider: "openai", Model: "gpt-a", Prompt: "hello"})
	require.NoError(t, err)

	assert.Equal(t, []string{"gpt-a-v2", "gpt-a"}, h.openai.models())
}
