package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/models"
	"routing_gateway/internal/routing"
	"routing_gateway/internal/utils"
)

// RulesHandler administers regex routing rules
type RulesHandler struct {
	rules *routing.RuleStore
}

// NewRulesHandler creates a new rules handler
func NewRulesHandler(rules *routing.RuleStore) *RulesHandler {
	return &RulesHandler{rules: rules}
}

type createRuleRequest struct {
	Pattern       string `json:"pattern"`
	OriginalModel string `json:"originalModel"`
	RedirectModel string `json:"redirectModel"`
}

// List handles GET /regex-rules
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	rules := h.rules.List()
	out := make([][]any, 0, len(rules))
	for _, rule := range rules {
		out = append(out, rule.Tuple())
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// Create handles POST /regex-rules
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, errs.Wrap(errs.InvalidRequest, err, "invalid JSON body"))
		return
	}

	id, err := h.rules.Add(r.Context(), models.RoutingRule{
		OriginalModel: req.OriginalModel,
		Pattern:       req.Pattern,
		RedirectModel: req.RedirectModel,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Rule added successfully",
		"id":      id,
	})
}

// Delete handles DELETE /regex-rules/{id}
func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, errs.New(errs.InvalidRequest, "invalid rule id"))
		return
	}

	if err := h.rules.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted successfully"})
}
