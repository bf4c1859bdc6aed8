package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama"
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "qwen2.5", "llama3"
	RerankerURL       string // cross-encoder endpoint, empty falls back to lexical
	RerankerModel     string
}

type RagConfig struct {
	VectorBackend     string // "pgvector" or "chroma"
	ChromaURL         string
	CacheBackend      string // "memory" or "redis"
	KnowledgeBasePath string // root for raw files and dialogue history
	IngestTopic       string
	TopK              int
	ScoreFloor        float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5"),
			RerankerURL:       getEnv("RERANKER_URL", ""),
			RerankerModel:     getEnv("RERANKER_MODEL", "bge-reranker-base"),
		},
		Rag: RagConfig{
			VectorBackend:     getEnv("VECTOR_BACKEND", "pgvector"),
			ChromaURL:         getEnv("CHROMA_URL", "http://localhost:8000"),
			CacheBackend:      getEnv("CACHE_BACKEND", "memory"),
			KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", "knowledge_base"),
			IngestTopic:       getEnv("INGEST_KNOWLEDGE_TOPIC_NAME", "INGEST_KNOWLEDGE"),
			TopK:              getEnvAsInt("RETRIEVAL_TOP_K", 10),
			ScoreFloor:        getEnvAsFloat("RETRIEVAL_SCORE_FLOOR", 0.5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
