package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"challan-backend/internal/apperr"
)

// ErrorBody is the JSON shape of every failed API call
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
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

// Error writes err as {"error": kind, "message": text} with the status of
// its kind. Untagged errors become 500s without leaking their text.
func Error(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	JSON(w, kind.HTTPStatus(), ErrorBody{Error: string(kind), Message: kind.Message()})
}

// BadRequest reports a malformed request that never reached the pipeline
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: "bad_request", Message: msg})
}
