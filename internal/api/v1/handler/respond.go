package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jduhalde/consulting/internal/apperror"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps an error to its HTTP status using the error kind.
// Internal messages are not leaked; the client sees the kind and the
// sanitized message carried by the app error.
func respondError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	respondJSON(w, apperror.HTTPStatus(kind), errorResponse{
		Error:   string(kind),
		Message: apperror.Message(err),
	})
}
