package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"ai-teaching-be/internal/dto"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/embedding"
	"ai-teaching-be/pkg/events"
	"ai-teaching-be/pkg/extract"
	pktNats "ai-teaching-be/pkg/nats"
	"ai-teaching-be/pkg/splitter"
	"ai-teaching-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const ingestChunkSize = 500

type IConsumerService interface {
	Consume(ctx context.Context) error
	HandleKnowledgeEvent(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	extractor         extract.Extractor
	splitter          *splitter.Splitter
	embeddingProvider embedding.Provider
	store             vectorstore.Store
	retrievalCache    cache.RetrievalCache
	eventPublisher    *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	extractor extract.Extractor,
	embeddingProvider embedding.Provider,
	store vectorstore.Store,
	retrievalCache cache.RetrievalCache,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		extractor:         extractor,
		splitter:          splitter.New(ingestChunkSize),
		embeddingProvider: embeddingProvider,
		store:             store,
		retrievalCache:    retrievalCache,
		eventPublisher:    eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestKnowledgeMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal ingest message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Ingesting %d file(s) into collection %s", len(payload.FilePaths), payload.CollectionId)

	var docs []vectorstore.Document
	var texts []string
	var files []string

	for _, path := range payload.FilePaths {
		text, err := cs.extractor.ExtractText(path)
		if err != nil {
			// A broken file will not fix itself on retry, skip it.
			log.Printf("[WARN] Skipping %s: %v", path, err)
			continue
		}

		source := filepath.Base(path)
		chunks := cs.splitter.Split(text)
		log.Printf("[INFO] %s split into %d chunks", source, len(chunks))

		for i, chunk := range chunks {
			docs = append(docs, vectorstore.Document{
				ID:      uuid.NewString(),
				Content: chunk,
				Metadata: map[string]string{
					"source":      source,
					"chunk_index": strconv.Itoa(i),
				},
			})
			texts = append(texts, chunk)
		}
		files = append(files, source)
	}

	if len(docs) == 0 {
		log.Printf("[WARN] Nothing extracted for collection %s, dropping message", payload.CollectionId)
		msg.Ack()
		return
	}

	// Downstream failures are logged and dropped, not redelivered; the
	// caller re-uploads if the collection never materializes.
	vectors, err := cs.embeddingProvider.EmbedBatch(ctx, texts, embedding.TaskDocument)
	if err != nil {
		log.Printf("[ERROR] Failed to embed %d chunks for %s: %v", len(texts), payload.CollectionId, err)
		msg.Ack()
		return
	}

	if err := cs.store.Upsert(ctx, payload.CollectionId, docs, vectors); err != nil {
		log.Printf("[ERROR] Failed to upsert into %s: %v", payload.CollectionId, err)
		msg.Ack()
		return
	}

	// Cached retrieval results for this collection are now stale.
	cs.retrievalCache.FlushCollection(payload.CollectionId)

	if cs.eventPublisher != nil {
		evt := events.NewKnowledgeUpdated(payload.CollectionId, payload.OwnerId, len(docs), files)
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish knowledge updated event: %v", err)
		}
	}

	log.Printf("[SUCCESS] Collection %s updated with %d chunks from %d file(s)", payload.CollectionId, len(docs), len(files))
	msg.Ack()
}

// HandleKnowledgeEvent invalidates the local retrieval cache when another
// instance reports a knowledge change. Registered as a NATS event handler.
func (cs *consumerService) HandleKnowledgeEvent(_ context.Context, event events.Event) error {
	data := event.Payload()
	collectionID, ok := data["collection_id"].(string)
	if !ok || collectionID == "" {
		return fmt.Errorf("knowledge event without collection_id")
	}
	cs.retrievalCache.FlushCollection(collectionID)
	return nil
}
