package routing

import (
	"fmt"
	"regexp"
	"strings"

	"routing_gateway/internal/models"
)

// MatchMode selects what a rule's pattern is tested against.
type MatchMode string

const (
	// MatchModel tests the pattern against the requested model name.
	MatchModel MatchMode = "model"
	// MatchPrompt tests the pattern against the prompt text.
	MatchPrompt MatchMode = "prompt"
	// MatchAny applies the rule if either the model or the prompt matches.
	MatchAny MatchMode = "any"
)

// ParseMatchMode converts a config value into a MatchMode. Empty means MatchModel.
func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchModel, nil
	case MatchModel, MatchPrompt, MatchAny:
		return m, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

type compiledRule struct {
	rule models.RoutingRule
	re   *regexp.Regexp // nil if the stored pattern does not compile
}

// RuleSet is an immutable, ordered snapshot of the routing rules.
type RuleSet struct {
	rules []compiledRule
}

// Len returns the number of rules in the set
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rules returns a copy of the rules in insertion order
func (s *RuleSet) Rules() []models.RoutingRule {
	out := make([]models.RoutingRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.rule
	}
	return out
}

// Resolution is the outcome of resolving one request
type Resolution struct {
	Original string
	Target   string
	RuleID   int64 // 0 when no rule applied
	Matched  bool
}

// Resolve returns the redirect of the first rule that applies to model, or
// model itself when none does.
func (s *RuleSet) Resolve(model, prompt string, mode MatchMode) Resolution {
	for _, r := range s.rules {
		if r.rule.OriginalModel != model || r.re == nil {
			continue
		}
		if matches(r.re, mode, model, prompt) {
			return Resolution{Original: model, Target: r.rule.RedirectModel, RuleID: r.rule.ID, Matched: true}
		}
	}
	return Resolution{Original: model, Target: model}
}

func matches(re *regexp.Regexp, mode MatchMode, model, prompt string) bool {
	switch mode {
	case MatchPrompt:
		return re.MatchString(prompt)
	case MatchAny:
		return re.MatchString(model) || re.MatchString(prompt)
	default:
		return re.MatchString(model)
	}
}

// with returns a new set with r appended
func (s *RuleSet) with(r compiledRule) *RuleSet {
	rules := make([]compiledRule, len(s.rules), len(s.rules)+1)
	copy(rules, s.rules)
	return &RuleSet{rules: append(rules, r)}
}

// without returns a new set lacking the rule with id
func (s *RuleSet) without(id int64) *RuleSet {
	rules := make([]compiledRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.rule.ID != id {
			rules = append(rules, r)
		}
	}
	return &RuleSet{rules: rules}
}
