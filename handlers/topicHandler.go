package handlers

import (
	"net/http"
	"strings"

	"mlassistant/models"
	"mlassistant/services/quiz"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

type TopicHandler struct {
	catalog *quiz.Catalog
}

func NewTopicHandler(catalog *quiz.Catalog) *TopicHandler {
	return &TopicHandler{catalog: catalog}
}

func (h *TopicHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/topics", h.ListTopics).Methods("GET")
}

// ListTopics filters by chapter prefix first, then ranks the remainder by fuzzy match on q.
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	chapter := strings.TrimSpace(r.URL.Query().Get("chapter"))
	term := strings.TrimSpace(r.URL.Query().Get("q"))

	var topics []models.Topic
	switch {
	case term != "":
		topics = h.catalog.Search(term)
		if chapter != "" {
			topics = lo.Filter(topics, func(t models.Topic, _ int) bool {
				return strings.HasPrefix(t.ID, chapter)
			})
		}
	case chapter != "":
		topics = h.catalog.ByChapter(chapter)
	default:
		topics = h.catalog.Topics()
	}

	if topics == nil {
		topics = []models.Topic{}
	}
	writeJSONResponse(w, http.StatusOK, topics)
}
