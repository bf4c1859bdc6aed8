package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-teaching-be/pkg/vectorstore"
)

const redisKeyPrefix = "rag:retrieval:"

// RedisRetrievalCache shares retrieval results across instances. Operations
// are best effort: a Redis outage degrades to cache misses, never to request
// failures.
type RedisRetrievalCache struct {
	client  *redis.Client
	timeout time.Duration
}

var _ RetrievalCache = &RedisRetrievalCache{}

func NewRedisRetrievalCache(client *redis.Client) *RedisRetrievalCache {
	return &RedisRetrievalCache{
		client:  client,
		timeout: 2 * time.Second,
	}
}

func (r *RedisRetrievalCache) Get(key RetrievalKey) ([]vectorstore.ScoredDocument, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, redisKeyPrefix+key.hash()).Result()
	if err != nil {
		return nil, false
	}

	var docs []vectorstore.ScoredDocument
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		return nil, false
	}
	return docs, true
}

func (r *RedisRetrievalCache) Set(key RetrievalKey, docs []vectorstore.ScoredDocument) {
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.client.Set(ctx, redisKeyPrefix+key.hash(), data, RetrievalTTL)
}

func (r *RedisRetrievalCache) FlushCollection(collectionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+collectionID+"|*", 100).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
}

func (r *RedisRetrievalCache) Flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
}
