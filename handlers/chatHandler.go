package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services"

	"github.com/gorilla/mux"
)

// ChatHandler runs a single turn over a caller-held conversation state.
type ChatHandler struct {
	assistant services.Invoker
	log       *logger.Logger
}

func NewChatHandler(assistant services.Invoker, log *logger.Logger) *ChatHandler {
	return &ChatHandler{assistant: assistant, log: log.With("handler", "ChatHandler")}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chat", h.Chat).Methods("POST")
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.log.Info("Received chat request")

	var state models.ConversationState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		h.log.Error("Failed to decode chat request JSON", "error", err)
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := validateHistory(state.Messages); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	next, err := h.assistant.Invoke(r.Context(), state)
	if err != nil {
		h.log.Error("Chat turn failed", "error", err)
		writeErrorResponse(w, statusForError(err), err.Error())
		return
	}

	h.log.Info("Chat turn completed", "route", next.Route, "chapter", next.Chapter)
	writeJSONResponse(w, http.StatusOK, next)
}

func validateHistory(messages []models.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	for i, msg := range messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
		if msg.Role == models.RoleSystem {
			return fmt.Errorf("message %d: system messages are not accepted", i)
		}
	}
	return nil
}
