// Package retriever runs the hybrid retrieval pipeline: cache check, vector
// search, keyword supplement, merge, rerank, cache store.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/embedding"
	"ai-teaching-be/pkg/rerank"
	"ai-teaching-be/pkg/vectorstore"
)

// Mode selects which searches run.
type Mode string

const (
	ModeHybrid Mode = "hybrid"
	ModeVector Mode = "vector"
)

// Outcome tags a retrieval result. Callers must branch on it: NotFound means
// the knowledge base has nothing relevant (answer accordingly), Failure means
// a backing capability broke (degrade, don't fabricate an empty answer).
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailure  Outcome = "capability_failure"
)

// Result is the tagged outcome of one retrieval.
type Result struct {
	Outcome   Outcome
	Documents []vectorstore.ScoredDocument
	Err       error // set when Outcome is OutcomeFailure
}

func found(docs []vectorstore.ScoredDocument) Result {
	return Result{Outcome: OutcomeFound, Documents: docs}
}

func notFound() Result {
	return Result{Outcome: OutcomeNotFound}
}

func failure(err error) Result {
	return Result{Outcome: OutcomeFailure, Err: err}
}

// Config encapsulates retrieval parameters.
type Config struct {
	TopK        int     // vector candidates
	ScoreFloor  float64 // vector hits must score strictly above this
	KeywordTopK int     // keyword supplements
}

func DefaultConfig() Config {
	return Config{
		TopK:        10,
		ScoreFloor:  0.5,
		KeywordTopK: 5,
	}
}

type Retriever struct {
	embedder embedding.Provider
	store    vectorstore.Store
	reranker rerank.Reranker
	cache    cache.RetrievalCache
	log      logger.ILogger
	config   Config
}

func NewRetriever(
	embedder embedding.Provider,
	store vectorstore.Store,
	reranker rerank.Reranker,
	retrievalCache cache.RetrievalCache,
	log logger.ILogger,
	config Config,
) *Retriever {
	if config.TopK <= 0 {
		config = DefaultConfig()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		reranker: reranker,
		cache:    retrievalCache,
		log:      log,
		config:   config,
	}
}

// RetrieveTopK runs the pipeline with a per-call candidate count. A non
// positive topK falls back to the configured default.
func (r *Retriever) RetrieveTopK(ctx context.Context, collectionID, query string, mode Mode, topK int) Result {
	if topK <= 0 || topK == r.config.TopK {
		return r.Retrieve(ctx, collectionID, query, mode)
	}
	override := *r
	override.config.TopK = topK
	return override.Retrieve(ctx, collectionID, query, mode)
}

// Retrieve runs the full pipeline against one collection.
func (r *Retriever) Retrieve(ctx context.Context, collectionID, query string, mode Mode) Result {
	if mode == "" {
		mode = ModeHybrid
	}

	key := cache.RetrievalKey{
		Query:      query,
		Collection: collectionID,
		Mode:       string(mode),
		TopK:       r.config.TopK,
	}
	if docs, ok := r.cache.Get(key); ok {
		r.log.Debug("retriever", "cache hit", map[string]interface{}{
			"collection": collectionID,
			"documents":  len(docs),
		})
		return found(docs)
	}

	vectorHits, res := r.vectorSearch(ctx, collectionID, query)
	if res != nil {
		return *res
	}
	if len(vectorHits) == 0 {
		r.log.Info("retriever", "no vector hits above floor", map[string]interface{}{
			"collection": collectionID,
			"floor":      r.config.ScoreFloor,
		})
		return notFound()
	}

	merged := vectorHits
	if mode == ModeHybrid {
		// Keyword search only supplements an existing vector hit; it never
		// rescues a query the vector index knows nothing about.
		keywordHits := r.keywordSearch(ctx, collectionID, query)
		merged = mergeDocuments(vectorHits, keywordHits)
	}

	ranked := r.rerankDocuments(ctx, query, merged)
	if len(ranked) > r.config.TopK {
		ranked = ranked[:r.config.TopK]
	}

	r.cache.Set(key, ranked)
	r.log.Info("retriever", "retrieval complete", map[string]interface{}{
		"collection": collectionID,
		"vector":     len(vectorHits),
		"merged":     len(merged),
	})
	return found(ranked)
}

// vectorSearch returns hits above the score floor. The second return value is
// non-nil when the pipeline must stop with that result.
func (r *Retriever) vectorSearch(ctx context.Context, collectionID, query string) ([]vectorstore.ScoredDocument, *Result) {
	vector, err := r.embedder.Embed(ctx, query, embedding.TaskQuery)
	if err != nil {
		r.log.Error("retriever", "query embedding failed", map[string]interface{}{"error": err.Error()})
		res := failure(fmt.Errorf("embed query: %w", err))
		return nil, &res
	}

	hits, err := r.store.Search(ctx, collectionID, vector, r.config.TopK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			res := notFound()
			return nil, &res
		}
		r.log.Error("retriever", "vector search failed", map[string]interface{}{
			"collection": collectionID,
			"error":      err.Error(),
		})
		res := failure(fmt.Errorf("vector search: %w", err))
		return nil, &res
	}

	var kept []vectorstore.ScoredDocument
	for _, hit := range hits {
		if hit.Score > r.config.ScoreFloor {
			kept = append(kept, hit)
		}
	}
	return kept, nil
}

// keywordSearch scores every document in the collection by query-token
// coverage, |q ∩ d| / |q|, and returns the best KeywordTopK with a positive
// score. Failures degrade to no supplements.
func (r *Retriever) keywordSearch(ctx context.Context, collectionID, query string) []vectorstore.ScoredDocument {
	queryTokens := rerank.TokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}

	docs, err := r.store.GetAll(ctx, collectionID)
	if err != nil {
		r.log.Warn("retriever", "keyword scan failed", map[string]interface{}{
			"collection": collectionID,
			"error":      err.Error(),
		})
		return nil
	}

	var scored []vectorstore.ScoredDocument
	for _, doc := range docs {
		docTokens := rerank.TokenSet(doc.Content)
		overlap := 0
		for tok := range queryTokens {
			if _, ok := docTokens[tok]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		scored = append(scored, vectorstore.ScoredDocument{
			Document: doc,
			Score:    float64(overlap) / float64(len(queryTokens)),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > r.config.KeywordTopK {
		scored = scored[:r.config.KeywordTopK]
	}
	return scored
}

// mergeDocuments keeps vector hits first and appends keyword hits whose
// content is not already present. Dedup is exact content match.
func mergeDocuments(vectorHits, keywordHits []vectorstore.ScoredDocument) []vectorstore.ScoredDocument {
	seen := make(map[string]bool, len(vectorHits))
	merged := make([]vectorstore.ScoredDocument, 0, len(vectorHits)+len(keywordHits))

	for _, doc := range vectorHits {
		if seen[doc.Content] {
			continue
		}
		seen[doc.Content] = true
		merged = append(merged, doc)
	}
	for _, doc := range keywordHits {
		if seen[doc.Content] {
			continue
		}
		seen[doc.Content] = true
		merged = append(merged, doc)
	}
	return merged
}

// rerankDocuments reorders by reranker score, best first. A reranker failure
// keeps the merged order.
func (r *Retriever) rerankDocuments(ctx context.Context, query string, docs []vectorstore.ScoredDocument) []vectorstore.ScoredDocument {
	if len(docs) < 2 {
		return docs
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}

	scores, err := r.reranker.Score(ctx, query, contents)
	if err != nil || len(scores) != len(docs) {
		r.log.Warn("retriever", "rerank skipped", map[string]interface{}{
			"error": fmt.Sprintf("%v", err),
		})
		return docs
	}

	type rankedDoc struct {
		doc   vectorstore.ScoredDocument
		score float64
	}
	ranked := make([]rankedDoc, len(docs))
	for i, doc := range docs {
		ranked[i] = rankedDoc{doc: doc, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]vectorstore.ScoredDocument, len(ranked))
	for i, rd := range ranked {
		out[i] = rd.doc
	}
	return out
}

// SearchScored is the raw vector search without keyword merge or floor,
// used by the explicit search endpoint. A missing collection yields an empty
// result.
func (r *Retriever) SearchScored(ctx context.Context, collectionID, query string, topK int) ([]vectorstore.ScoredDocument, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}

	vector, err := r.embedder.Embed(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, collectionID, vector, topK)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

// GetLessonContent assembles the full text of a lesson's knowledge base for
// exercise and outline generation. When the collection has no documents the
// raw uploaded files are read directly.
func (r *Retriever) GetLessonContent(ctx context.Context, collectionID, rawFilesDir string) (string, error) {
	docs, err := r.store.GetAll(ctx, collectionID)
	if err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return "", fmt.Errorf("load collection: %w", err)
	}

	if len(docs) > 0 {
		parts := make([]string, 0, len(docs))
		for _, doc := range docs {
			if strings.TrimSpace(doc.Content) != "" {
				parts = append(parts, doc.Content)
			}
		}
		return strings.Join(parts, "\n\n"), nil
	}

	return readRawFiles(rawFilesDir)
}

// readRawFiles concatenates plain-text files in dir, sorted by name.
func readRawFiles(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read raw files dir: %w", err)
	}

	var parts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md", ".markdown":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
