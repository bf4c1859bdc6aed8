package embedding

import "context"

// Task types hint the model at the embedding's purpose. Some backends ignore
// them; they still partition the embedding cache so query and document
// vectors never collide.
const (
	TaskDocument = "retrieval_document"
	TaskQuery    = "retrieval_query"
)

// Provider defines the interface for generating text embeddings.
type Provider interface {
	// Embed returns a unit-length vector for a single text.
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)

	// EmbedBatch embeds texts in order. The result has one vector per input.
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
}
