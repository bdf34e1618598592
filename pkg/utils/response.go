package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"factory-backend/internal/apperrors"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// Message writes a plain error message with the given status
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// Error maps a service error onto its HTTP status. Store failures are
// reported without detail.
func Error(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.KindOf(err)
	switch kind {
	case apperrors.KindInternal:
		log.Printf("[HTTP] Internal error: %v", err)
		JSON(w, status, ErrorBody{Error: "Internal server error", Kind: string(kind)})
		return
	case apperrors.KindTransaction:
		JSON(w, status, ErrorBody{Error: "Transaction failed, please retry", Kind: string(kind)})
		return
	}
	JSON(w, status, ErrorBody{Error: err.Error(), Kind: string(kind)})
}
