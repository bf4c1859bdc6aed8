package retriever

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-teaching-be/internal/pkg/logger"
	"ai-teaching-be/pkg/cache"
	"ai-teaching-be/pkg/rerank"
	"ai-teaching-be/pkg/vectorstore"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t, taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type fakeStore struct {
	hits        map[string][]vectorstore.ScoredDocument
	all         map[string][]vectorstore.Document
	getAllCalls int
	searchErr   error
}

func (f *fakeStore) Upsert(context.Context, string, []vectorstore.Document, [][]float32) error {
	return nil
}

func (f *fakeStore) Search(_ context.Context, collectionID string, _ []float32, _ int) ([]vectorstore.ScoredDocument, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	hits, ok := f.hits[collectionID]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return hits, nil
}

func (f *fakeStore) GetAll(_ context.Context, collectionID string) ([]vectorstore.Document, error) {
	f.getAllCalls++
	docs, ok := f.all[collectionID]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return docs, nil
}

func (f *fakeStore) DeleteCollection(context.Context, string) error { return nil }

func (f *fakeStore) HasCollection(_ context.Context, collectionID string) (bool, error) {
	_, ok := f.hits[collectionID]
	return ok, nil
}

func (f *fakeStore) ListCollections(context.Context, string) ([]string, error) { return nil, nil }

func scoredDoc(id, content string, score float64) vectorstore.ScoredDocument {
	return vectorstore.ScoredDocument{
		Document: vectorstore.Document{ID: id, Content: content},
		Score:    score,
	}
}

func newTestRetriever(embedder *fakeEmbedder, store *fakeStore) *Retriever {
	return NewRetriever(
		embedder,
		store,
		rerank.NewLexicalReranker(),
		cache.NewMemoryRetrievalCache(),
		logger.NewNopLogger(),
		DefaultConfig(),
	)
}

const coll = "kb_t1_c1_default"

func TestRetrieveCachesResult(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {scoredDoc("a", "神经网络的反向传播算法", 0.9)},
		},
		all: map[string][]vectorstore.Document{coll: {}},
	}
	r := newTestRetriever(embedder, store)

	first := r.Retrieve(context.Background(), coll, "反向传播", ModeHybrid)
	require.Equal(t, OutcomeFound, first.Outcome)

	second := r.Retrieve(context.Background(), coll, "反向传播", ModeHybrid)
	require.Equal(t, OutcomeFound, second.Outcome)
	assert.Equal(t, first.Documents, second.Documents)
	assert.Equal(t, 1, embedder.calls, "second call must come from cache")
}

func TestRetrieveReSearchesAfterCacheExpiry(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {scoredDoc("a", "神经网络的反向传播算法", 0.9)},
		},
	}
	r := NewRetriever(
		embedder,
		store,
		rerank.NewLexicalReranker(),
		cache.NewMemoryRetrievalCacheWithTTL(20*time.Millisecond),
		logger.NewNopLogger(),
		DefaultConfig(),
	)

	require.Equal(t, OutcomeFound, r.Retrieve(context.Background(), coll, "反向传播", ModeVector).Outcome)
	require.Equal(t, OutcomeFound, r.Retrieve(context.Background(), coll, "反向传播", ModeVector).Outcome)
	assert.Equal(t, 1, embedder.calls, "within the TTL the cache must answer")

	time.Sleep(40 * time.Millisecond)

	require.Equal(t, OutcomeFound, r.Retrieve(context.Background(), coll, "反向传播", ModeVector).Outcome)
	assert.Equal(t, 2, embedder.calls, "after the TTL vector search must run again")
}

func TestRetrieveAppliesScoreFloor(t *testing.T) {
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {
				scoredDoc("a", "相关内容", 0.8),
				scoredDoc("b", "边界内容", 0.5), // not strictly above the floor
				scoredDoc("c", "无关内容", 0.2),
			},
		},
		all: map[string][]vectorstore.Document{coll: {}},
	}
	r := newTestRetriever(&fakeEmbedder{}, store)

	res := r.Retrieve(context.Background(), coll, "相关", ModeHybrid)
	require.Equal(t, OutcomeFound, res.Outcome)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "a", res.Documents[0].ID)
}

func TestRetrieveAllBelowFloorIsNotFound(t *testing.T) {
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {scoredDoc("a", "弱相关", 0.3)},
		},
	}
	r := newTestRetriever(&fakeEmbedder{}, store)

	res := r.Retrieve(context.Background(), coll, "问题", ModeHybrid)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Empty(t, res.Documents)
}

func TestRetrieveMissingCollectionIsNotFound(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeStore{})
	res := r.Retrieve(context.Background(), "kb_nobody_student_default", "问题", ModeHybrid)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{err: errors.New("model down")}, &fakeStore{})
	res := r.Retrieve(context.Background(), coll, "问题", ModeHybrid)
	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.Error(t, res.Err)
}

func TestRetrieveSearchFailure(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("db down")}
	r := newTestRetriever(&fakeEmbedder{}, store)
	res := r.Retrieve(context.Background(), coll, "问题", ModeHybrid)
	assert.Equal(t, OutcomeFailure, res.Outcome)
}

func TestRetrieveMergesKeywordHitsWithoutDuplicates(t *testing.T) {
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {scoredDoc("a", "卷积神经网络用于图像识别", 0.9)},
		},
		all: map[string][]vectorstore.Document{
			coll: {
				{ID: "a", Content: "卷积神经网络用于图像识别"}, // duplicate of vector hit
				{ID: "b", Content: "图像识别的预处理步骤"},
				{ID: "c", Content: "与查询毫无关系的文字"},
			},
		},
	}
	r := newTestRetriever(&fakeEmbedder{}, store)

	res := r.Retrieve(context.Background(), coll, "图像识别", ModeHybrid)
	require.Equal(t, OutcomeFound, res.Outcome)

	contents := make(map[string]int)
	for _, doc := range res.Documents {
		contents[doc.Content]++
	}
	assert.Equal(t, 1, contents["卷积神经网络用于图像识别"], "vector hit duplicated")
	assert.Equal(t, 1, contents["图像识别的预处理步骤"], "keyword supplement missing")
	assert.Zero(t, contents["与查询毫无关系的文字"])
}

func TestRetrieveTopKTruncatesResult(t *testing.T) {
	store := &fakeStore{hits: map[string][]vectorstore.ScoredDocument{
		coll: {
			scoredDoc("1", "文档一", 0.9),
			scoredDoc("2", "文档二", 0.8),
			scoredDoc("3", "文档三", 0.7),
		},
	}}
	r := newTestRetriever(&fakeEmbedder{}, store)

	res := r.RetrieveTopK(context.Background(), coll, "文档", ModeVector, 1)
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.Len(t, res.Documents, 1)
}

func TestVectorModeSkipsKeywordScan(t *testing.T) {
	store := &fakeStore{
		hits: map[string][]vectorstore.ScoredDocument{
			coll: {scoredDoc("a", "内容", 0.9)},
		},
		all: map[string][]vectorstore.Document{coll: {{ID: "a", Content: "内容"}}},
	}
	r := newTestRetriever(&fakeEmbedder{}, store)

	res := r.Retrieve(context.Background(), coll, "内容", ModeVector)
	require.Equal(t, OutcomeFound, res.Outcome)
	assert.Zero(t, store.getAllCalls)
}

func TestSearchScoredMissingCollectionIsEmpty(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeStore{})
	hits, err := r.SearchScored(context.Background(), "kb_missing_student_default", "问题", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGetLessonContentFallsBackToRawFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lesson.md"), []byte("# 第一课\n\n正文内容"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slides.pdf"), []byte("%PDF"), 0o644))

	r := newTestRetriever(&fakeEmbedder{}, &fakeStore{})

	content, err := r.GetLessonContent(context.Background(), "kb_missing_student_default", dir)
	require.NoError(t, err)
	assert.Contains(t, content, "第一课")
	assert.NotContains(t, content, "%PDF")
}

func TestGetLessonContentPrefersCollection(t *testing.T) {
	store := &fakeStore{
		all: map[string][]vectorstore.Document{
			coll: {{ID: "a", Content: "第一段"}, {ID: "b", Content: "第二段"}},
		},
	}
	r := newTestRetriever(&fakeEmbedder{}, store)

	content, err := r.GetLessonContent(context.Background(), coll, "")
	require.NoError(t, err)
	assert.Equal(t, "第一段\n\n第二段", content)
}
