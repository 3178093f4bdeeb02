package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"routing_gateway/internal/catalog"
	"routing_gateway/internal/errs"
	"routing_gateway/internal/models"
	"routing_gateway/internal/storage"
	"routing_gateway/internal/utils"
)

// CatalogHandler exposes the model catalog
type CatalogHandler struct {
	catalog *catalog.Catalog
	store   ModelStore
}

// NewCatalogHandler creates a new catalog handler. store may be nil.
func NewCatalogHandler(cat *catalog.Catalog, store ModelStore) *CatalogHandler {
	return &CatalogHandler{catalog: cat, store: store}
}

// ListModels handles GET /models
func (h *CatalogHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	list := h.catalog.List()
	if list == nil {
		list = []models.ModelDescriptor{}
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// ListProviders handles GET /providers
func (h *CatalogHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	ids := h.catalog.Providers()
	if ids == nil {
		ids = []string{}
	}
	utils.RespondWithJSON(w, http.StatusOK, ids)
}

// AddModel handles POST /admin/models
func (h *CatalogHandler) AddModel(w http.ResponseWriter, r *http.Request) {
	var d models.ModelDescriptor
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&d); err != nil {
		writeError(w, r, errs.Wrap(errs.InvalidRequest, err, "invalid JSON body"))
		return
	}
	d.Provider = strings.TrimSpace(d.Provider)
	d.Model = strings.TrimSpace(d.Model)
	if d.Provider == "" || d.Model == "" {
		writeError(w, r, errs.New(errs.InvalidRequest, "provider and model are required"))
		return
	}

	if err := h.store.Add(r.Context(), d); err != nil {
		writeError(w, r, errs.Wrap(errs.Internal, err, "failed to add model"))
		return
	}
	h.reload(r)

	utils.RespondWithJSON(w, http.StatusCreated, d)
}

// DeleteModel handles DELETE /admin/models/{provider}/{model...}
func (h *CatalogHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	d := models.ModelDescriptor{
		Provider: chi.URLParam(r, "provider"),
		Model:    chi.URLParam(r, "*"),
	}
	if d.Provider == "" || d.Model == "" {
		writeError(w, r, errs.New(errs.InvalidRequest, "provider and model are required"))
		return
	}

	err := h.store.Delete(r.Context(), d)
	if errors.Is(err, storage.ErrModelNotFound) {
		writeError(w, r, errs.New(errs.NotFound, "Model not found"))
		return
	}
	if err != nil {
		writeError(w, r, errs.Wrap(errs.Internal, err, "failed to delete model"))
		return
	}
	h.reload(r)

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) reload(r *http.Request) {
	if err := h.catalog.Reload(r.Context()); err != nil {
		logger.Warn("Catalog reload after edit failed", "error", err)
	}
}
