package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "classified", err: New(NotFound, "rule %d not found", 7), want: NotFound},
		{name: "wrapped by fmt", err: fmt.Errorf("outer: %w", New(Timeout, "slow")), want: Timeout},
		{name: "bare kind", err: InvalidModel, want: InvalidModel},
		{name: "plain error", err: errors.New("boom"), want: Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := Wrap(ProviderFailure, context.Canceled, "provider %s failed", "openai")

	if !errors.Is(err, ProviderFailure) {
		t.Error("expected errors.Is to match the kind")
	}
	if errors.Is(err, Timeout) {
		t.Error("did not expect a timeout match")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected the cause to stay reachable")
	}
	if got := err.Error(); got != "provider openai failed: context canceled" {
		t.Errorf("Error() = %q", got)
	}
	if got := Message(err); got != "provider openai failed" {
		t.Errorf("Message() = %q", got)
	}
}

func TestTemporary(t *testing.T) {
	temporary := map[Kind]bool{
		InvalidRequest:  false,
		InvalidModel:    false,
		InvalidProvider: false,
		RuleValidation:  false,
		NotFound:        false,
		ProviderFailure: true,
		Timeout:         true,
	}
	for kind, want := range temporary {
		if got := kind.Temporary(); got != want {
			t.Errorf("%s.Temporary() = %v, want %v", kind, got, want)
		}
	}
}
