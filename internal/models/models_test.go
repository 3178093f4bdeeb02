package models

import "testing"

func TestParseModelName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ModelDescriptor
		wantErr bool
	}{
		{name: "simple", input: "openai/gpt-4o", want: ModelDescriptor{Provider: "openai", Model: "gpt-4o"}},
		{name: "nested model", input: "openrouter/meta/llama-3", want: ModelDescriptor{Provider: "openrouter", Model: "meta/llama-3"}},
		{name: "surrounding space", input: " gemini/gemini-pro ", want: ModelDescriptor{Provider: "gemini", Model: "gemini-pro"}},
		{name: "no slash", input: "gpt-4o", wantErr: true},
		{name: "empty provider", input: "/gpt-4o", wantErr: true},
		{name: "empty model", input: "openai/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseModelName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseModelName() = %+v, want %+v", got, tt.want)
			}
			if !tt.wantErr {
				if round, _ := ParseModelName(got.Name()); round != got {
					t.Errorf("Name() round trip = %+v, want %+v", round, got)
				}
			}
		})
	}
}

func TestRoutingRuleTuple(t *testing.T) {
	rule := RoutingRule{ID: 3, OriginalModel: "gpt-a", Pattern: "^gpt-a$", RedirectModel: "gpt-a-v2"}
	tuple := rule.Tuple()
	if len(tuple) != 4 {
		t.Fatalf("Tuple() len = %d, want 4", len(tuple))
	}
	if tuple[0] != int64(3) || tuple[1] != "gpt-a" || tuple[2] != "^gpt-a$" || tuple[3] != "gpt-a-v2" {
		t.Errorf("Tuple() = %v", tuple)
	}
}
