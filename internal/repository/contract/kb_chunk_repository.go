package contract

import (
	"context"

	"ai-teaching-be/internal/entity"
)

// ScoredKbChunk wraps KbChunk with its cosine distance to the query vector
// (0 = identical direction, 2 = opposite).
type ScoredKbChunk struct {
	Chunk    *entity.KbChunk
	Distance float64
}

type KbChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.KbChunk) error
	DeleteByCollection(ctx context.Context, collectionId string) (int64, error)
	FindAllByCollection(ctx context.Context, collectionId string) ([]*entity.KbChunk, error)
	CountByCollection(ctx context.Context, collectionId string) (int64, error)
	ListCollections(ctx context.Context, prefix string) ([]string, error)
	// SearchNearest returns the limit nearest chunks by cosine distance,
	// closest first.
	SearchNearest(ctx context.Context, collectionId string, embedding []float32, limit int) ([]*ScoredKbChunk, error)
}
