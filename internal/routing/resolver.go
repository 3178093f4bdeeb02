package routing

// Resolver maps a requested model to the model that will serve it
type Resolver struct {
	store *RuleStore
	mode  MatchMode
}

// NewResolver creates a resolver reading store's snapshots
func NewResolver(store *RuleStore, mode MatchMode) *Resolver {
	if mode == "" {
		mode = MatchModel
	}
	return &Resolver{store: store, mode: mode}
}

// Mode returns the configured match mode
func (r *Resolver) Mode() MatchMode {
	return r.mode
}

// Resolve returns the target model for originalModel. With no prompt to
// look at, patterns are always matched against the model name.
func (r *Resolver) Resolve(originalModel string) string {
	return r.store.Snapshot().Resolve(originalModel, "", MatchModel).Target
}

// ResolveRequest resolves a full request. One snapshot is used for the whole
// lookup.
func (r *Resolver) ResolveRequest(model, prompt string) Resolution {
	return r.store.Snapshot().Resolve(model, prompt, r.mode)
}
