package providers

import (
	"context"
	"fmt"
)

var cannedResponses = map[string]string{
	"openai":    "OpenAI: Processed your prompt with advanced language understanding. Response ID: openai_response_001",
	"anthropic": "Anthropic: Your prompt has been interpreted with ethical AI principles. Response ID: anthropic_response_002",
	"gemini":    "Gemini: Your prompt has been processed with cutting-edge AI capabilities. Response ID: gemini_response_003",
}

// StubProvider returns canned text without any network call. It lets the
// gateway run locally against a catalog with no credentials.
type StubProvider struct {
	id string
}

// NewStubProvider creates a stub provider for id
func NewStubProvider(id string) *StubProvider {
	return &StubProvider{id: id}
}

func (p *StubProvider) ID() string   { return p.id }
func (p *StubProvider) Type() string { return TypeStub }

// Complete returns the canned response for known provider ids and a
// generic acknowledgement otherwise.
func (p *StubProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if text, ok := cannedResponses[p.id]; ok {
		return text, nil
	}
	return fmt.Sprintf("%s/%s: received %d characters", p.id, model, len(prompt)), nil
}

func (p *StubProvider) Close() error { return nil }
