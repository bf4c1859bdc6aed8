package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
}

func (c *countingProvider) Embed(_ context.Context, text string, _ string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := c.Embed(ctx, t, taskType)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

type mapCache struct {
	entries map[string][]float32
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]float32)}
}

func (m *mapCache) Get(text, taskType string) ([]float32, bool) {
	vec, ok := m.entries[taskType+"|"+text]
	return vec, ok
}

func (m *mapCache) Set(text, taskType string, vec []float32) {
	m.entries[taskType+"|"+text] = vec
}

func TestCachedProviderSkipsRepeatEmbeds(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, newMapCache())

	ctx := context.Background()
	first, err := p.Embed(ctx, "什么是机器学习", TaskQuery)
	require.NoError(t, err)
	second, err := p.Embed(ctx, "什么是机器学习", TaskQuery)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProviderPartitionsByTaskType(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, newMapCache())

	ctx := context.Background()
	_, err := p.Embed(ctx, "神经网络", TaskQuery)
	require.NoError(t, err)
	_, err = p.Embed(ctx, "神经网络", TaskDocument)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderBatchOnlyComputesMisses(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, newMapCache())

	ctx := context.Background()
	_, err := p.Embed(ctx, "b", TaskDocument)
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(ctx, []string{"a", "b", "c"}, TaskDocument)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.NotNil(t, v)
	}
	assert.Equal(t, 3, inner.calls) // 1 warmup + 2 misses
}

func TestNormalizeVectorUnitLength(t *testing.T) {
	vec := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
