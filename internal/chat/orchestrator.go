// Package chat turns one client chat request into one or two provider calls
// and merges the results.
package chat

import (
	"context"
	"strings"

	"routing_gateway/internal/dispatch"
	"routing_gateway/internal/errs"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/routing"
)

// NoFileRoutingNotice is reported when a file arrives but no file-upload
// model is configured.
const NoFileRoutingNotice = "no file routing configured"

// State is a step of request handling
type State string

const (
	StateReceived       State = "received"
	StateTextResolved   State = "text_resolved"
	StateTextDispatched State = "text_dispatched"
	StateFileResolved   State = "file_resolved"
	StateFileDispatched State = "file_dispatched"
	StateMerged         State = "merged"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// Request is one client chat request
type Request struct {
	RequestID string
	Provider  string
	Model     string
	Prompt    string
	File      *Attachment
}

// LegResult is the outcome of one dispatch leg
type LegResult struct {
	Provider      string
	Model         string
	OriginalModel string
	RuleID        int64
	Text          string
	Err           error
}

// Response merges the text leg and the optional file leg
type Response struct {
	RequestID    string
	Text         LegResult
	File         *LegResult // nil unless a file was attached and routed
	FileAttached bool
	FileNotice   string
}

// Resolver resolves a requested model against the routing rules.
type Resolver interface {
	ResolveRequest(model, prompt string) routing.Resolution
}

// Dispatcher performs provider calls.
type Dispatcher interface {
	Dispatch(ctx context.Context, call dispatch.Call) (*dispatch.Completion, error)
}

// PolicySource provides the file-upload policy.
type PolicySource interface {
	GetFileUploadModel() (models.FileUploadPolicy, bool)
}

// ModelCatalog answers which providers serve a model.
type ModelCatalog interface {
	Has(provider, model string) bool
	ProvidersFor(model string) []string
}

// Orchestrator drives a request through resolution, dispatch and merge
type Orchestrator struct {
	resolver   Resolver
	dispatcher Dispatcher
	policies   PolicySource
	catalog    ModelCatalog
	extractor  *Extractor
	logger     *logging.Logger
}

// NewOrchestrator wires the request pipeline. A nil extractor uses defaults.
func NewOrchestrator(resolver Resolver, dispatcher Dispatcher, policies PolicySource, catalog ModelCatalog, extractor *Extractor) *Orchestrator {
	if extractor == nil {
		extractor = NewExtractor(0)
	}
	return &Orchestrator{
		resolver:   resolver,
		dispatcher: dispatcher,
		policies:   policies,
		catalog:    catalog,
		extractor:  extractor,
		logger:     logging.NewLogger("orchestrator"),
	}
}

// Handle processes req. Only a text-leg failure fails the request; a file-leg
// failure is reported in Response.File.Err.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	resp, err := o.handle(ctx, req)
	if err != nil {
		o.transition(req.RequestID, StateFailed, "kind", errs.KindOf(err), "error", err)
		return nil, err
	}
	o.transition(req.RequestID, StateCompleted)
	return resp, nil
}

func (o *Orchestrator) handle(ctx context.Context, req Request) (*Response, error) {
	req.Provider = strings.TrimSpace(req.Provider)
	req.Model = strings.TrimSpace(req.Model)
	if req.Provider == "" || req.Model == "" || strings.TrimSpace(req.Prompt) == "" {
		return nil, errs.New(errs.InvalidRequest, "Missing required parameters")
	}
	o.transition(req.RequestID, StateReceived, "provider", req.Provider, "model", req.Model, "file", req.File != nil)

	res := o.resolver.ResolveRequest(req.Model, req.Prompt)
	provider := o.providerFor(req.Provider, res)
	o.transition(req.RequestID, StateTextResolved,
		"original", res.Original, "target", res.Target, "provider", provider, "rule_id", res.RuleID)

	completion, err := o.dispatcher.Dispatch(ctx, dispatch.Call{
		RequestID:     req.RequestID,
		Leg:           models.LegText,
		Provider:      provider,
		Model:         res.Target,
		OriginalModel: res.Original,
		RuleID:        res.RuleID,
		Prompt:        req.Prompt,
	})
	if err != nil {
		return nil, err
	}
	o.transition(req.RequestID, StateTextDispatched)

	resp := &Response{
		RequestID: req.RequestID,
		Text: LegResult{
			Provider:      completion.Provider,
			Model:         completion.Model,
			OriginalModel: res.Original,
			RuleID:        res.RuleID,
			Text:          completion.Text,
		},
		FileAttached: req.File != nil,
	}

	if req.File != nil {
		o.handleFile(ctx, req, resp)
	}

	o.transition(req.RequestID, StateMerged, "file_leg", resp.File != nil)
	return resp, nil
}

func (o *Orchestrator) handleFile(ctx context.Context, req Request, resp *Response) {
	policy, ok := o.policies.GetFileUploadModel()
	if !ok {
		resp.FileNotice = NoFileRoutingNotice
		o.transition(req.RequestID, StateFileResolved, "skipped", NoFileRoutingNotice)
		return
	}
	o.transition(req.RequestID, StateFileResolved, "provider", policy.Provider, "model", policy.Model)

	prompt := req.Prompt + "\n\n" + o.extractor.Extract(req.File)
	leg := &LegResult{Provider: policy.Provider, Model: policy.Model, OriginalModel: policy.Model}

	completion, err := o.dispatcher.Dispatch(ctx, dispatch.Call{
		RequestID:     req.RequestID,
		Leg:           models.LegFile,
		Provider:      policy.Provider,
		Model:         policy.Model,
		OriginalModel: policy.Model,
		Prompt:        prompt,
	})
	if err != nil {
		leg.Err = err
	} else {
		leg.Text = completion.Text
	}
	resp.File = leg
	o.transition(req.RequestID, StateFileDispatched, "failed", err != nil)
}

// providerFor keeps the requested provider when it serves the target model,
// otherwise switches to the first catalog provider that does.
func (o *Orchestrator) providerFor(requested string, res routing.Resolution) string {
	if !res.Matched || o.catalog == nil || o.catalog.Has(requested, res.Target) {
		return requested
	}
	if alternatives := o.catalog.ProvidersFor(res.Target); len(alternatives) > 0 {
		return alternatives[0]
	}
	return requested
}

func (o *Orchestrator) transition(requestID string, state State, keyvals ...any) {
	if !o.logger.Enabled(logging.Debug) {
		return
	}
	o.logger.Debug("Request state", append([]any{"request_id", requestID, "state", state}, keyvals...)...)
}
