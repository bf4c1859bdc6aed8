// Package cache holds the retrieval and embedding caches. Both are bounded
// TTL caches; retrieval entries die after 30 minutes, embeddings after an
// hour. A Redis backend exists for multi-instance deployments.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"ai-teaching-be/pkg/vectorstore"
)

const (
	RetrievalTTL     = 30 * time.Minute
	RetrievalMaxSize = 500

	EmbeddingTTL     = time.Hour
	EmbeddingMaxSize = 1000
)

// RetrievalKey identifies one retrieval result set. Everything that changes
// the result participates in the key.
type RetrievalKey struct {
	Query      string
	Collection string
	Mode       string
	TopK       int
}

// hash folds the key into a fixed-size string. The collection stays in clear
// text as a prefix so invalidation can match on it.
func (k RetrievalKey) hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", k.Query, k.Mode, k.TopK)))
	return k.Collection + "|" + hex.EncodeToString(sum[:])
}

// RetrievalCache memoizes full retrieval pipeline results.
type RetrievalCache interface {
	Get(key RetrievalKey) ([]vectorstore.ScoredDocument, bool)
	Set(key RetrievalKey, docs []vectorstore.ScoredDocument)

	// FlushCollection drops every entry for the collection. Called when its
	// knowledge base changes.
	FlushCollection(collectionID string)
	Flush()
}
