package handlers

import (
	"net/http"

	"mlassistant/models"

	"github.com/gorilla/mux"
	"github.com/invopop/jsonschema"
)

// SchemaHandler publishes JSON Schemas for the request and response bodies.
type SchemaHandler struct {
	schemas map[string]*jsonschema.Schema
}

func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{schemas: map[string]*jsonschema.Schema{
		"chat":         generateSchema[models.ConversationState](),
		"conversation": generateSchema[models.Conversation](),
		"message":      generateSchema[models.SendMessageRequest](),
	}}
}

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func (h *SchemaHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/schema/{name}", h.GetSchema).Methods("GET")
}

func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	schema, ok := h.schemas[name]
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "unknown schema "+name)
		return
	}

	writeJSONResponse(w, http.StatusOK, schema)
}
