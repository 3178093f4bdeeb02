package models

import "time"

// RoutingRule rewrites a requested model to RedirectModel when the request
// targets OriginalModel and Pattern matches. Rules are never updated in place.
type RoutingRule struct {
	ID            int64     `db:"id" json:"id"`
	OriginalModel string    `db:"model_name" json:"originalModel"`
	Pattern       string    `db:"regex_pattern" json:"pattern"`
	RedirectModel string    `db:"redirect_model" json:"redirectModel"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Tuple returns the rule in the [id, originalModel, pattern, redirectModel]
// shape that existing clients consume.
func (r RoutingRule) Tuple() []any {
	return []any{r.ID, r.OriginalModel, r.Pattern, r.RedirectModel}
}
