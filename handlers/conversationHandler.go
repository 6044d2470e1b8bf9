package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services"

	"github.com/gorilla/mux"
)

type ConversationHandler struct {
	service *services.ConversationService
	log     *logger.Logger
}

func NewConversationHandler(service *services.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{service: service, log: log.With("handler", "ConversationHandler")}
}

func (h *ConversationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/conversations", h.CreateConversation).Methods("POST")
	router.HandleFunc("/conversations", h.ListConversations).Methods("GET")
	router.HandleFunc("/conversations/{id}", h.GetConversation).Methods("GET")
	router.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods("DELETE")
	router.HandleFunc("/conversations/{id}/messages", h.SendMessage).Methods("POST")
}

func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConversationRequest
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	conv, err := h.service.CreateConversation(r.Context(), &req)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	writeJSONResponse(w, http.StatusCreated, conv)
}

func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.service.ListConversations(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve conversations")
		return
	}

	writeJSONResponse(w, http.StatusOK, conversations)
}

func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conv, err := h.service.GetConversation(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to retrieve conversation")
		return
	}

	writeJSONResponse(w, http.StatusOK, conv)
}

func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteConversation(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "Failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.log.Info("Received message", "conversation_id", id)

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	conv, err := h.service.SendMessage(r.Context(), id, &req)
	if err != nil {
		h.log.Error("Message processing failed", "conversation_id", id, "error", err)
		writeErrorResponse(w, statusForError(err), err.Error())
		return
	}

	writeJSONResponse(w, http.StatusOK, conv)
}

func (h *ConversationHandler) writeStoreError(w http.ResponseWriter, err error, fallback string) {
	if status := statusForError(err); status == http.StatusNotFound {
		writeErrorResponse(w, status, err.Error())
		return
	}
	h.log.Error(fallback, "error", err)
	writeErrorResponse(w, http.StatusInternalServerError, fallback)
}
