package httpapi

import (
	"net/http"

	"routing_gateway/internal/errs"
	"routing_gateway/internal/utils"
)

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.InvalidRequest, errs.InvalidModel, errs.InvalidProvider, errs.RuleValidation:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.ProviderFailure:
		return http.StatusBadGateway
	case errs.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is what a client gets to see for err
func errorMessage(err error) string {
	switch errs.KindOf(err) {
	case errs.Internal:
		return "Internal server error"
	case errs.ProviderFailure, errs.Timeout:
		return err.Error()
	default:
		return errs.Message(err)
	}
}

// writeError maps err to a status code and the {"error", "kind"} body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	if kind == errs.Internal {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	utils.RespondWithErrorKind(w, statusForKind(kind), string(kind), errorMessage(err))
}
