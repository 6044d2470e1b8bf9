package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port        string
	DatabaseURL string
	LogMode     string

	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	EmbeddingModel  string
	AnthropicAPIKey string
	AnthropicModel  string

	PineconeAPIKey    string
	PineconeIndexName string
	PineconeNamespace string

	TopicsPath string

	RouterTemperature  float64
	TeacherTemperature float64
	QuizTemperature    float64
	QuizQuestionCount  int
	RetrievalTopK      int
}

// Load reads configuration from the environment, after merging a local .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DB_URL"),
		LogMode:     getEnv("LOG_MODE", "development"),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		PineconeAPIKey:    os.Getenv("PINECONE_API_KEY"),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "course-rag"),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "course-docs"),

		TopicsPath: getEnv("TOPICS_PATH", "course_materials/discussion_topics.json"),

		RouterTemperature:  env.number("ROUTER_TEMPERATURE", 0.0),
		TeacherTemperature: env.number("TEACHER_TEMPERATURE", 0.3),
		QuizTemperature:    env.number("QUIZ_TEMPERATURE", 0.4),
		QuizQuestionCount:  env.integer("QUIZ_QUESTION_COUNT", 5),
		RetrievalTopK:      env.integer("RETRIEVAL_TOP_K", 5),
	}

	if env.err != nil {
		return nil, env.err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.LLMProvider)
	}

	temps := map[string]float64{
		"ROUTER_TEMPERATURE":  c.RouterTemperature,
		"TEACHER_TEMPERATURE": c.TeacherTemperature,
		"QUIZ_TEMPERATURE":    c.QuizTemperature,
	}
	for name, t := range temps {
		if t < 0 || t > 2 {
			return fmt.Errorf("%s must be 0-2, got %f", name, t)
		}
	}

	if c.QuizQuestionCount <= 0 {
		return fmt.Errorf("QUIZ_QUESTION_COUNT must be positive, got %d", c.QuizQuestionCount)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	return nil
}

// RequireServing checks the credentials needed to answer chat turns.
func (c *Config) RequireServing() error {
	if c.PineconeAPIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY environment variable is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	if c.LLMProvider == ProviderAnthropic && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required when LLM_PROVIDER=%s", ProviderAnthropic)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envReader parses numeric variables and keeps the first parse failure.
type envReader struct {
	err error
}

func (e *envReader) integer(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("%s must be an integer, got %q", key, v))
		return defaultVal
	}
	return i
}

func (e *envReader) number(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(fmt.Errorf("%s must be a number, got %q", key, v))
		return defaultVal
	}
	return f
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
