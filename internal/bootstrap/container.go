package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-teaching-be/internal/config"
	"ai-teaching-be/internal/controller"
	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/internal/repository/implementation"
	"ai-teaching-be/internal/repository/pgvectorstore"
	"ai-teaching-be/internal/service"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/embedding"
	"ai-teaching-be/pkg/events"
	"ai-teaching-be/pkg/extract"
	"ai-teaching-be/pkg/llm/factory"
	"ai-teaching-be/pkg/rag/contextmgr"
	"ai-teaching-be/pkg/rag/generate"
	"ai-teaching-be/pkg/rag/history"
	"ai-teaching-be/pkg/rag/retriever"
	"ai-teaching-be/pkg/rerank"
	"ai-teaching-be/pkg/vectorstore"
	"ai-teaching-be/pkg/vectorstore/chroma"

	pktNats "ai-teaching-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const sessionCleanupInterval = time.Hour

type Container struct {
	// Controllers
	KnowledgeController controller.IKnowledgeController
	AssistantController controller.IAssistantController
	SessionController   controller.ISessionController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	// Knowledge base mutations get their own audit trail.
	kbLogger := logger.NewIsolatedLogger("logs/knowledge.log")
	// Retrieval and generation are chatty; keep their trace out of the
	// main log.
	ragLogger := logger.NewIsolatedLogger("logs/llm_rag.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		log.Fatalf("[FATAL] Unknown embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
	// Query embeddings repeat heavily across sessions, cache them.
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, cache.NewMemoryEmbeddingCache())

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var reranker rerank.Reranker
	if cfg.Ai.RerankerURL != "" {
		reranker = rerank.NewCrossEncoderReranker(cfg.Ai.RerankerURL, cfg.Ai.RerankerModel)
		log.Printf("[INFO] Using Reranker: cross-encoder (%s)", cfg.Ai.RerankerModel)
	} else {
		reranker = rerank.NewLexicalReranker()
		log.Printf("[INFO] Using Reranker: lexical")
	}

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	var retrievalCache cache.RetrievalCache
	if cfg.Rag.CacheBackend == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		retrievalCache = cache.NewRedisRetrievalCache(rdb)
		log.Printf("[INFO] Using Retrieval Cache: REDIS")
	} else {
		retrievalCache = cache.NewMemoryRetrievalCache()
		log.Printf("[INFO] Using Retrieval Cache: MEMORY")
	}

	var store vectorstore.Store
	if cfg.Rag.VectorBackend == "chroma" {
		store = chroma.NewStore(cfg.Rag.ChromaURL)
		log.Printf("[INFO] Using Vector Store: CHROMA (%s)", cfg.Rag.ChromaURL)
	} else {
		kbChunkRepo := implementation.NewKbChunkRepository(db)
		store = pgvectorstore.NewStore(kbChunkRepo)
		log.Printf("[INFO] Using Vector Store: PGVECTOR")
	}

	// 5. RAG Pipeline
	ret := retriever.NewRetriever(
		embeddingProvider,
		store,
		reranker,
		retrievalCache,
		ragLogger,
		retriever.Config{
			TopK:        cfg.Rag.TopK,
			ScoreFloor:  cfg.Rag.ScoreFloor,
			KeywordTopK: 5,
		},
	)

	contexts := contextmgr.NewStore()
	contexts.StartCleanupLoop(sessionCleanupInterval, make(chan struct{}))

	orchestrator := generate.NewOrchestrator(llmProvider, ragLogger, generate.DefaultConfig())
	historyStore := history.NewStore(cfg.Rag.KnowledgeBasePath)

	// 6. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Rag.IngestTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Rag.IngestTopic,
		extract.NewFileExtractor(),
		embeddingProvider,
		store,
		retrievalCache,
		natsPub,
	)

	knowledgeService := service.NewKnowledgeService(
		cfg.Rag.KnowledgeBasePath,
		store,
		retrievalCache,
		publisherService,
		natsPub,
		kbLogger,
	)
	assistantService := service.NewAssistantService(
		cfg.Rag.KnowledgeBasePath,
		ret,
		contexts,
		orchestrator,
		historyStore,
		sysLogger,
	)
	sessionService := service.NewSessionService(historyStore, contexts)

	// Cross-instance cache invalidation: another node's ingest or delete
	// makes this node's cached retrievals stale.
	if natsSub != nil {
		for _, eventType := range []string{events.TypeKnowledgeUpdated, events.TypeKnowledgeDeleted} {
			subject := "events." + eventType
			durable := "rag-cache-" + eventType
			if err := natsSub.Subscribe(subject, durable, consumerService.HandleKnowledgeEvent); err != nil {
				log.Printf("[WARN] Failed to subscribe to %s: %v", subject, err)
			}
		}
	}

	// 7. Controllers
	return &Container{
		KnowledgeController: controller.NewKnowledgeController(knowledgeService),
		AssistantController: controller.NewAssistantController(assistantService),
		SessionController:   controller.NewSessionController(sessionService),

		ConsumerService: consumerService,
	}
}
