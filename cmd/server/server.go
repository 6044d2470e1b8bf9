package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mlassistant/config"
	"mlassistant/db"
	"mlassistant/handlers"
	"mlassistant/logger"
	"mlassistant/services"
	"mlassistant/services/assistant"
	"mlassistant/services/llm"
	"mlassistant/services/pinecone"
	"mlassistant/services/quiz"
	"mlassistant/services/retrieval"
	"mlassistant/services/router"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.RequireServing(); err != nil {
		log.Fatal("Invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openConversationRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize conversation store", "error", err)
	}
	defer repo.Close()

	catalog, err := quiz.LoadCatalog(cfg.TopicsPath)
	if err != nil {
		log.Fatal("Failed to load topic catalog", "path", cfg.TopicsPath, "error", err)
	}
	log.Info("Loaded topic catalog", "topics", catalog.Len())

	generator, err := llm.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize generation service", "provider", cfg.LLMProvider, "error", err)
	}

	embedder, err := llm.NewEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal("Failed to initialize embedder", "error", err)
	}

	pc, err := pinecone.NewClient(cfg.PineconeAPIKey)
	if err != nil {
		log.Fatal("Failed to create Pinecone client", "error", err)
	}
	store, err := pinecone.Open(ctx, pc, cfg.PineconeIndexName, cfg.PineconeNamespace, log)
	if err != nil {
		log.Fatal("Failed to open vector index", "index", cfg.PineconeIndexName, "error", err)
	}
	defer store.Close()

	classifier := router.NewClassifier(generator, cfg.RouterTemperature, log)
	retriever := retrieval.NewService(embedder, store, cfg.RetrievalTopK, log)
	quizService := quiz.NewService(catalog, generator, cfg.QuizTemperature, log)
	assistantService := assistant.NewService(classifier, retriever, quizService, generator, assistant.Options{
		TeacherTemperature: cfg.TeacherTemperature,
		QuizQuestionCount:  cfg.QuizQuestionCount,
	}, log)
	conversationService := services.NewConversationService(repo, assistantService, log)

	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(jsonMiddleware)

	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	handlers.NewChatHandler(assistantService, log).RegisterRoutes(r)
	handlers.NewConversationHandler(conversationService, log).RegisterRoutes(r)
	handlers.NewTopicHandler(catalog).RegisterRoutes(r)
	handlers.NewSchemaHandler().RegisterRoutes(r)

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		}
	}()

	log.Info("Server starting", "port", cfg.Port, "provider", cfg.LLMProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed to start", "error", err)
	}
	log.Info("Server stopped")
}

func openConversationRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (db.ConversationRepository, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DB_URL not set, conversations are kept in memory")
		return db.NewMemoryConversationRepository(), nil
	}
	return db.NewPostgresConversationRepository(ctx, cfg.DatabaseURL)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
