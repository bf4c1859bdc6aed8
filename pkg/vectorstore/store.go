// Package vectorstore abstracts the vector database behind collection-scoped
// upsert and similarity search. Two backends exist: pgvector (the default,
// lives with the repository layer) and a standalone ChromaDB client.
package vectorstore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound reports a search or delete against a collection that
// was never ingested. Retrieval treats it as an empty result, not a failure.
var ErrCollectionNotFound = errors.New("collection not found")

// Document is one ingested chunk.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// ScoredDocument is a search hit. Score is cosine similarity mapped to [0, 1],
// where 1 means identical direction.
type ScoredDocument struct {
	Document
	Score float64
}

// Store is the vector database contract. Collection IDs come from
// scope.Resolve and are opaque strings here.
type Store interface {
	// Upsert writes documents with their vectors. len(docs) == len(vectors).
	// The collection is created on first write.
	Upsert(ctx context.Context, collectionID string, docs []Document, vectors [][]float32) error

	// Search returns the topK nearest documents by cosine similarity,
	// best first. A missing collection yields ErrCollectionNotFound.
	Search(ctx context.Context, collectionID string, vector []float32, topK int) ([]ScoredDocument, error)

	// GetAll returns every document in the collection, in insertion order.
	GetAll(ctx context.Context, collectionID string) ([]Document, error)

	// DeleteCollection removes the collection and all its documents.
	// Deleting a missing collection is not an error.
	DeleteCollection(ctx context.Context, collectionID string) error

	HasCollection(ctx context.Context, collectionID string) (bool, error)

	// ListCollections returns collection IDs starting with prefix.
	// An empty prefix lists everything.
	ListCollections(ctx context.Context, prefix string) ([]string, error)
}

// SimilarityFromCosineDistance maps a cosine distance (1 - cos, as reported
// by pgvector's <=> operator and Chroma's cosine space) back to cosine
// similarity, clamped to [0, 1] so negative-cosine hits score zero.
func SimilarityFromCosineDistance(distance float64) float64 {
	sim := 1 - distance
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
