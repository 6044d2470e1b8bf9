package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mlassistant/db"
	"mlassistant/services"
	"mlassistant/services/assistant"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP codes. Anything unrecognised came from an
// upstream model, embedding or vector service.
func statusForError(err error) int {
	switch {
	case errors.Is(err, db.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, assistant.ErrEmptyConversation),
		errors.Is(err, assistant.ErrNoUserMessage):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrUnknownRoute):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
