package embedding

import "context"

// Cache stores previously computed vectors keyed by text and task type.
type Cache interface {
	Get(text string, taskType string) ([]float32, bool)
	Set(text string, taskType string, vector []float32)
}

// CachedProvider wraps a Provider with a read-through cache. Repeated
// embeddings of the same text (re-uploaded documents, repeated queries) skip
// the model call entirely.
type CachedProvider struct {
	inner Provider
	cache Cache
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(inner Provider, cache Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

func (p *CachedProvider) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if vec, ok := p.cache.Get(text, taskType); ok {
		return vec, nil
	}
	vec, err := p.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.cache.Set(text, taskType, vec)
	return vec, nil
}

func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	// Resolve hits first so a single model round covers only the misses.
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vec, ok := p.cache.Get(text, taskType); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		computed, err := p.inner.EmbedBatch(ctx, missTexts, taskType)
		if err != nil {
			return nil, err
		}
		for j, vec := range computed {
			vectors[missIdx[j]] = vec
			p.cache.Set(missTexts[j], taskType, vec)
		}
	}

	return vectors, nil
}
