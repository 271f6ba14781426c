package adminapi

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code, carried
// over from the teacher's internal/handler/response.go verbatim — this
// surface is read-only but still needs the same envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // write error intentionally ignored
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error envelope.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{Error: errorCode, Message: message})
}
