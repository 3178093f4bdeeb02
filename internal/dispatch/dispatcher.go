// Package dispatch sends resolved completion calls to providers.
package dispatch

import (
	"context"
	"errors"
	"time"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
	"routing_gateway/internal/utils"
)

// DefaultTimeout bounds a provider call when none is configured
const DefaultTimeout = 60 * time.Second

// Catalog is the subset of the model catalog the dispatcher validates against.
type Catalog interface {
	HasProvider(provider string) bool
	Has(provider, model string) bool
}

// ProviderLookup finds the live implementation of a provider.
type ProviderLookup interface {
	Get(id string) (providers.Provider, bool)
}

// Call describes one provider call
type Call struct {
	RequestID     string
	Leg           string // models.LegText or models.LegFile
	Provider      string
	Model         string
	OriginalModel string // the model the client asked for, before rewriting
	RuleID        int64
	Prompt        string
}

// Completion is a successful provider call
type Completion struct {
	Provider string
	Model    string
	Text     string
	Latency  time.Duration
}

// Dispatcher validates calls against the catalog and waits for the provider
// with a deadline. It never retries.
type Dispatcher struct {
	catalog   Catalog
	providers ProviderLookup
	sink      logging.Sink
	timeout   time.Duration
	logger    *logging.Logger
}

// New creates a dispatcher. A nil sink discards audit records.
func New(catalog Catalog, lookup ProviderLookup, sink logging.Sink, timeout time.Duration) *Dispatcher {
	if sink == nil {
		sink = logging.NewNoopSink()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		catalog:   catalog,
		providers: lookup,
		sink:      sink,
		timeout:   timeout,
		logger:    logging.NewLogger("dispatcher"),
	}
}

type result struct {
	text string
	err  error
}

// Dispatch runs call. Errors are classified as InvalidProvider, InvalidModel,
// ProviderFailure or Timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (*Completion, error) {
	start := time.Now()
	completion, err := d.dispatch(ctx, call)
	latency := time.Since(start)

	d.record(call, latency, err)
	if err != nil {
		kind := errs.KindOf(err)
		d.logger.Warn("Dispatch failed",
			"request_id", call.RequestID, "leg", call.Leg,
			"provider", call.Provider, "model", call.Model,
			"kind", kind, "temporary", kind.Temporary(),
			"error", utils.TruncateLog(err.Error(), utils.DefaultLogMaxLen))
		return nil, err
	}

	completion.Latency = latency
	d.logger.Debug("Dispatch completed",
		"request_id", call.RequestID, "leg", call.Leg,
		"provider", call.Provider, "model", call.Model, "latency", latency)
	return completion, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) (*Completion, error) {
	if !d.catalog.HasProvider(call.Provider) {
		return nil, errs.New(errs.InvalidProvider, "unknown provider %q", call.Provider)
	}
	// A catalog provider missing from the registry failed to build.
	provider, ok := d.providers.Get(call.Provider)
	if !ok {
		return nil, errs.New(errs.ProviderFailure, "provider %q is not available", call.Provider)
	}
	if !d.catalog.Has(call.Provider, call.Model) {
		return nil, errs.New(errs.InvalidModel, "Invalid provider/model combination: %s/%s", call.Provider, call.Model)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Buffered so a provider that ignores cancellation can still finish
	// after we stop waiting.
	done := make(chan result, 1)
	go func() {
		text, err := provider.Complete(callCtx, call.Model, call.Prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, d.classify(ctx, callCtx, call, r.err)
		}
		return &Completion{Provider: call.Provider, Model: call.Model, Text: r.text}, nil
	case <-callCtx.Done():
		return nil, d.classify(ctx, callCtx, call, callCtx.Err())
	}
}

func (d *Dispatcher) classify(parent, callCtx context.Context, call Call, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return errs.Wrap(errs.ProviderFailure, context.Canceled, "request to %s cancelled", call.Provider)
	}
	if callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errs.Wrap(errs.Timeout, err, "provider %s did not answer within %s", call.Provider, d.timeout)
	}
	return errs.Wrap(errs.ProviderFailure, err, "provider %s failed", call.Provider)
}

func (d *Dispatcher) record(call Call, latency time.Duration, err error) {
	rec := &models.DispatchRecord{
		RequestID:     call.RequestID,
		Leg:           call.Leg,
		Provider:      call.Provider,
		Model:         call.Model,
		OriginalModel: call.OriginalModel,
		RuleID:        call.RuleID,
		LatencyMs:     latency.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if err != nil {
		rec.ErrorKind = string(errs.KindOf(err))
		rec.ErrorMessage = err.Error()
	}
	if err := d.sink.Enqueue(rec); err != nil {
		d.logger.Debug("Audit record dropped", "request_id", call.RequestID, "error", err)
	}
}
