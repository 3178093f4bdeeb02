package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	*StubProvider
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestNew(t *testing.T) {
	p, err := New(Config{ID: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, TypeStub, p.Type())

	p, err = New(Config{ID: "openai", Type: TypeOpenAI, BaseURL: "http://localhost:1"})
	require.NoError(t, err)
	assert.Equal(t, TypeOpenAI, p.Type())

	_, err = New(Config{ID: "x", Type: "bedrock"})
	assert.Error(t, err)

	_, err = New(Config{Type: TypeStub})
	assert.Error(t, err)
}

func TestStubProvider_Complete(t *testing.T) {
	text, err := NewStubProvider("anthropic").Complete(context.Background(), "claude-3", "hi")
	require.NoError(t, err)
	assert.Contains(t, text, "Anthropic:")

	text, err = NewStubProvider("local").Complete(context.Background(), "tiny", "hello")
	require.NoError(t, err)
	assert.Equal(t, "local/tiny: received 5 characters", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStubProvider("openai").Complete(ctx, "m", "p")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_Sync(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Close()

	r.Sync([]Config{
		{ID: "openai", Type: TypeStub},
		{ID: "anthropic"},
		{ID: "broken", Type: "unknown"},
	})
	assert.Equal(t, []string{"anthropic", "openai"}, r.IDs())

	first, ok := r.Get("openai")
	require.True(t, ok)

	// Unchanged configs keep their instance.
	r.Sync([]Config{{ID: "openai", Type: TypeStub}})
	again, ok := r.Get("openai")
	require.True(t, ok)
	assert.Same(t, first, again)

	_, ok = r.Get("anthropic")
	assert.False(t, ok, "providers missing from the catalog are removed")
}

func TestRegistry_ChangedConfigRebuildsAndCloses(t *testing.T) {
	var built []*closeCounter
	r := NewRegistry(func(cfg Config) (Provider, error) {
		p := &closeCounter{StubProvider: NewStubProvider(cfg.ID)}
		built = append(built, p)
		return p, nil
	})

	r.Sync([]Config{{ID: "openai", Type: TypeStub}})
	r.Sync([]Config{{ID: "openai", Type: TypeStub, Timeout: time.Second}})
	require.Len(t, built, 2)
	assert.Equal(t, 1, built[0].closed)

	current, ok := r.Get("openai")
	require.True(t, ok)
	assert.Same(t, built[1], current)

	require.NoError(t, r.Close())
	assert.Equal(t, 1, built[1].closed)
	assert.Empty(t, r.IDs())
}
