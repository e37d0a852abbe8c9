// internal/app/system/respond/respond.go
//
// Package respond writes JSON API responses and maps classified errors to
// HTTP status codes. It is the only place that translation happens.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Error writes err as JSON using its apperr kind. Unclassified errors are
// logged at error level and surfaced as a generic 500; classified errors are
// expected outcomes and logged at debug.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("kind", kind.String()), zap.Error(err))
	}
	JSON(w, apperr.HTTPStatus(kind), errorBody{
		Error: apperr.MessageOf(err),
		Kind:  kind.String(),
	})
}

// BadRequest writes a 400 with a plain message (malformed JSON, failed
// validation) without requiring a classified error.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: apperr.KindBadRequest.String()})
}

// Decode parses the request body into v. Returns false (and writes the 400)
// when the body is not valid JSON.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
