package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"routing_gateway/internal/catalog"
	"routing_gateway/internal/chat"
	"routing_gateway/internal/config"
	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
	"routing_gateway/internal/routing"
	"routing_gateway/internal/utils"
)

var logger = logging.NewLogger("httpapi")

// ModelStore edits the persisted model catalog.
type ModelStore interface {
	Add(ctx context.Context, d models.ModelDescriptor) error
	Delete(ctx context.Context, d models.ModelDescriptor) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Catalog      *catalog.Catalog
	Providers    *providers.Registry
	Rules        *routing.RuleStore
	Policies     *routing.PolicyRegistry
	Orchestrator *chat.Orchestrator
	Models       ModelStore // nil when the catalog is file-only
	AuditSink    logging.Sink
	Upload       config.UploadConfig

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closers []func() error
}

// goBackground runs fn until Shutdown
func (d *Dependencies) goBackground(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Shutdown stops background reloaders, flushes the audit sink and closes
// providers and connections.
func (d *Dependencies) Shutdown(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	var errList []error

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errList = append(errList, fmt.Errorf("background tasks did not stop: %w", ctx.Err()))
	}

	if d.AuditSink != nil {
		if err := d.AuditSink.Shutdown(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if d.Providers != nil {
		if err := d.Providers.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// NewHandler builds the chi router over deps
func NewHandler(deps *Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Models)
	r.Get("/models", catalogHandler.ListModels)
	r.Get("/providers", catalogHandler.ListProviders)
	if deps.Models != nil {
		r.Route("/admin/models", func(r chi.Router) {
			r.Post("/", catalogHandler.AddModel)
			r.Delete("/{provider}/*", catalogHandler.DeleteModel)
		})
	}

	chatHandler := NewChatHandler(deps.Orchestrator, deps.Upload)
	r.Post("/v1/chat/completions", chatHandler.Complete)

	rulesHandler := NewRulesHandler(deps.Rules)
	r.Route("/regex-rules", func(r chi.Router) {
		r.Get("/", rulesHandler.List)
		r.Post("/", rulesHandler.Create)
		r.Delete("/{id}", rulesHandler.Delete)
	})

	fileRoutingHandler := NewFileRoutingHandler(deps.Policies)
	r.Get("/file-upload-routing", fileRoutingHandler.Get)
	r.Post("/file-upload-routing", fileRoutingHandler.Set)

	return r
}
