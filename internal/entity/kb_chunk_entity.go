package entity

import (
	"time"

	"github.com/google/uuid"
)

// KbChunk is one embedded knowledge-base chunk inside a collection.
type KbChunk struct {
	Id           uuid.UUID
	CollectionId string
	Content      string
	Embedding    []float32
	ChunkIndex   int
	Source       string // original filename
	Metadata     map[string]string
	CreatedAt    time.Time
}
