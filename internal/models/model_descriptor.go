package models

import (
	"fmt"
	"strings"
)

// ModelDescriptor identifies a servable (provider, model) pair.
type ModelDescriptor struct {
	Provider string `db:"provider" json:"provider" yaml:"provider"`
	Model    string `db:"model" json:"model" yaml:"model"`
}

// Name returns the canonical "provider/model" form stored in the models table.
func (d ModelDescriptor) Name() string {
	return d.Provider + "/" + d.Model
}

// ParseModelName splits a canonical "provider/model" name. The model part may
// itself contain slashes (e.g. "openrouter/meta-llama/llama-3").
func ParseModelName(name string) (ModelDescriptor, error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(name), "/")
	if !ok || provider == "" || model == "" {
		return ModelDescriptor{}, fmt.Errorf("invalid model name %q: expected provider/model", name)
	}
	return ModelDescriptor{Provider: provider, Model: model}, nil
}
