package httpapi

import (
	"encoding/json"
	"net/http"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/routing"
	"routing_gateway/internal/utils"
)

// FileRoutingHandler reads and updates the file-upload policy
type FileRoutingHandler struct {
	policies *routing.PolicyRegistry
}

// NewFileRoutingHandler creates a new file routing handler
func NewFileRoutingHandler(policies *routing.PolicyRegistry) *FileRoutingHandler {
	return &FileRoutingHandler{policies: policies}
}

type fileRoutingResponse struct {
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`
}

// Get handles GET /file-upload-routing. An unset policy reports an empty model.
func (h *FileRoutingHandler) Get(w http.ResponseWriter, r *http.Request) {
	var out fileRoutingResponse
	if policy, ok := h.policies.GetFileUploadModel(); ok {
		out.Model = policy.Model
		out.Provider = policy.Provider
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// Set handles POST /file-upload-routing
func (h *FileRoutingHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, errs.Wrap(errs.InvalidRequest, err, "invalid JSON body"))
		return
	}

	if _, err := h.policies.SetFileUploadModel(r.Context(), req.Model); err != nil {
		writeError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "File upload model updated successfully!"})
}
