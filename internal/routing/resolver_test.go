package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routing_gateway/internal/storage"
)

func storeWith(t *testing.T, rules ...[3]string) *RuleStore {
	t.Helper()
	store := NewRuleStore(storage.NewMemoryRuleRepository())
	for _, r := range rules {
		_, err := store.Add(context.Background(), newRule(r[0], r[1], r[2]))
		require.NoError(t, err)
	}
	return store
}

func TestResolver_Resolve(t *testing.T) {
	store := storeWith(t,
		[3]string{"gpt-a", "^gpt-a$", "gpt-a-v2"},
		[3]string{"gpt-a", "gpt", "gpt-a-v3"},
		[3]string{"gpt-b", "^nomatch$", "gpt-b-v2"},
		[3]string{"claude", "laud", "claude-2"},
	)
	resolver := NewResolver(store, "")
	assert.Equal(t, MatchModel, resolver.Mode())

	tests := []struct {
		name  string
		model string
		want  string
	}{
		{name: "earliest rule wins", model: "gpt-a", want: "gpt-a-v2"},
		{name: "pattern must match", model: "gpt-b", want: "gpt-b"},
		{name: "partial match is enough", model: "claude", want: "claude-2"},
		{name: "no rule passes through", model: "gpt-z", want: "gpt-z"},
		{name: "original model must be equal, not matched", model: "gpt-a-mini", want: "gpt-a-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Resolve(tt.model))
			assert.Equal(t, tt.want, resolver.Resolve(tt.model), "resolution is deterministic")
		})
	}
}

func TestResolver_ResolveRequest(t *testing.T) {
	store := storeWith(t, [3]string{"gpt-a", "^gpt-a$", "gpt-a-v2"})
	resolver := NewResolver(store, MatchModel)

	res := resolver.ResolveRequest("gpt-a", "hi")
	assert.True(t, res.Matched)
	assert.Equal(t, "gpt-a", res.Original)
	assert.Equal(t, "gpt-a-v2", res.Target)
	assert.Equal(t, store.List()[0].ID, res.RuleID)

	res = resolver.ResolveRequest("gpt-z", "hi")
	assert.False(t, res.Matched)
	assert.Equal(t, "gpt-z", res.Target)
	assert.Zero(t, res.RuleID)
}

func TestResolver_MatchModes(t *testing.T) {
	store := storeWith(t, [3]string{"gpt-a", "(?i)image", "vision-1"})

	tests := []struct {
		mode   MatchMode
		prompt string
		want   string
	}{
		{mode: MatchModel, prompt: "describe this image", want: "gpt-a"},
		{mode: MatchPrompt, prompt: "describe this image", want: "vision-1"},
		{mode: MatchPrompt, prompt: "hello", want: "gpt-a"},
		{mode: MatchAny, prompt: "an IMAGE please", want: "vision-1"},
		{mode: MatchAny, prompt: "hello", want: "gpt-a"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.prompt, func(t *testing.T) {
			got := NewResolver(store, tt.mode).ResolveRequest("gpt-a", tt.prompt).Target
			assert.Equal(t, tt.want, got)
		})
	}

	// Any mode also matches on the model name.
	store = storeWith(t, [3]string{"gpt-a", "^gpt-a$", "gpt-a-v2"})
	assert.Equal(t, "gpt-a-v2", NewResolver(store, MatchAny).ResolveRequest("gpt-a", "hello").Target)
}

func TestResolver_ResolveMatchesModelNameInAnyMode(t *testing.T) {
	store := storeWith(t,
		[3]string{"gpt-a", "^gpt-a$", "gpt-a-v2"},
		[3]string{"gpt-b", "^$", "gpt-b-v2"},
	)

	for _, mode := range []MatchMode{MatchModel, MatchPrompt, MatchAny} {
		t.Run(string(mode), func(t *testing.T) {
			resolver := NewResolver(store, mode)
			assert.Equal(t, "gpt-a-v2", resolver.Resolve("gpt-a"))
			assert.Equal(t, "gpt-b", resolver.Resolve("gpt-b"), "an empty prompt never matches")
		})
	}
}

func TestResolver_DeleteAffectsLaterResolutions(t *testing.T) {
	ctx := context.Background()
	store := storeWith(t,
		[3]string{"gpt-a", "^gpt-a$", "gpt-a-v2"},
		[3]string{"gpt-a", ".*", "gpt-a-v3"},
	)
	resolver := NewResolver(store, MatchModel)
	require.Equal(t, "gpt-a-v2", resolver.Resolve("gpt-a"))

	require.NoError(t, store.Delete(ctx, store.List()[0].ID))
	assert.Equal(t, "gpt-a-v3", resolver.Resolve("gpt-a"))

	require.NoError(t, store.Delete(ctx, store.List()[0].ID))
	assert.Equal(t, "gpt-a", resolver.Resolve("gpt-a"))
}

func TestParseMatchMode(t *testing.T) {
	for in, want := range map[string]MatchMode{"": MatchModel, "model": MatchModel, " Prompt ": MatchPrompt, "ANY": MatchAny} {
		got, err := ParseMatchMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMatchMode("header")
	assert.Error(t, err)
}
