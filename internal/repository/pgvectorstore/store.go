// Package pgvectorstore adapts the kb_chunks repository to the vectorstore
// contract. Collections are rows sharing a collection_id, so "missing
// collection" means zero rows.
package pgvectorstore

import (
	"context"
	"fmt"
	"strconv"

	"ai-teaching-be/internal/entity"
	"ai-teaching-be/internal/repository/contract"
	"ai-teaching-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type Store struct {
	repo contract.KbChunkRepository
}

func NewStore(repo contract.KbChunkRepository) *Store {
	return &Store{repo: repo}
}

var _ vectorstore.Store = &Store{}

func (s *Store) Upsert(ctx context.Context, collectionID string, docs []vectorstore.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents and vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}

	chunks := make([]*entity.KbChunk, len(docs))
	for i, doc := range docs {
		chunk := &entity.KbChunk{
			CollectionId: collectionID,
			Content:      doc.Content,
			Embedding:    vectors[i],
			ChunkIndex:   i,
			Metadata:     doc.Metadata,
		}
		if id, err := uuid.Parse(doc.ID); err == nil {
			chunk.Id = id
		}
		if doc.Metadata != nil {
			chunk.Source = doc.Metadata["source"]
			if idx, err := strconv.Atoi(doc.Metadata["chunk_index"]); err == nil {
				chunk.ChunkIndex = idx
			}
		}
		chunks[i] = chunk
	}

	return s.repo.CreateBulk(ctx, chunks)
}

func (s *Store) Search(ctx context.Context, collectionID string, vector []float32, topK int) ([]vectorstore.ScoredDocument, error) {
	scored, err := s.repo.SearchNearest(ctx, collectionID, vector, topK)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		count, err := s.repo.CountByCollection(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, vectorstore.ErrCollectionNotFound
		}
		return []vectorstore.ScoredDocument{}, nil
	}

	docs := make([]vectorstore.ScoredDocument, len(scored))
	for i, sc := range scored {
		docs[i] = vectorstore.ScoredDocument{
			Document: toDocument(sc.Chunk),
			Score:    vectorstore.SimilarityFromCosineDistance(sc.Distance),
		}
	}
	return docs, nil
}

func (s *Store) GetAll(ctx context.Context, collectionID string) ([]vectorstore.Document, error) {
	chunks, err := s.repo.FindAllByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = toDocument(chunk)
	}
	return docs, nil
}

func (s *Store) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := s.repo.DeleteByCollection(ctx, collectionID)
	return err
}

func (s *Store) HasCollection(ctx context.Context, collectionID string) (bool, error) {
	count, err := s.repo.CountByCollection(ctx, collectionID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	return s.repo.ListCollections(ctx, prefix)
}

func toDocument(chunk *entity.KbChunk) vectorstore.Document {
	meta := chunk.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	if chunk.Source != "" {
		meta["source"] = chunk.Source
	}
	return vectorstore.Document{
		ID:       chunk.Id.String(),
		Content:  chunk.Content,
		Metadata: meta,
	}
}
