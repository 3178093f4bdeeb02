package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider types understood by New.
const (
	TypeOpenAI = "openai"
	TypeStub   = "stub"
)

// Provider is implemented by each concrete completion backend.
type Provider interface {
	// ID returns the catalog identifier of this provider instance
	ID() string

	// Type returns the provider type (openai, stub)
	Type() string

	// Complete sends prompt to model and returns the generated text
	Complete(ctx context.Context, model, prompt string) (string, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// Config holds configuration for creating a provider instance. It is also
// the shape of a provider entry in the YAML catalog.
type Config struct {
	ID        string        `yaml:"id"`
	Type      string        `yaml:"type"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"` // environment variable holding the API key
	Timeout   time.Duration `yaml:"timeout"`
	Models    []string      `yaml:"models"`
}

// New creates a provider instance for cfg.Type. An empty type means stub.
func New(cfg Config) (Provider, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("provider id is required")
	}

	switch cfg.Type {
	case TypeOpenAI:
		return NewOpenAIProvider(cfg)
	case TypeStub, "":
		return NewStubProvider(cfg.ID), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q for %s (supported: %s)", cfg.Type, cfg.ID, strings.Join(SupportedTypes(), ", "))
	}
}

// SupportedTypes returns the provider types New can build
func SupportedTypes() []string {
	return []string{TypeOpenAI, TypeStub}
}
