// Package chroma implements vectorstore.Store against a ChromaDB server's
// REST API (v1). Collections are created with cosine distance so scores line
// up with the pgvector backend.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-teaching-be/pkg/vectorstore"
)

type Store struct {
	BaseURL string
	Client  *http.Client
}

var _ vectorstore.Store = &Store{}

func NewStore(baseURL string) *Store {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Store{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createCollectionRequest struct {
	Name        string            `json:"name"`
	GetOrCreate bool              `json:"get_or_create"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type upsertRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type queryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type queryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

type getRequest struct {
	Include []string `json:"include"`
}

type getResponse struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
}

func (s *Store) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return vectorstore.ErrCollectionNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("chroma error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("unmarshal chroma response: %w", err)
		}
	}
	return nil
}

// lookup resolves a collection name to its internal ID, optionally creating it.
func (s *Store) lookup(ctx context.Context, name string, create bool) (string, error) {
	if create {
		var info collectionInfo
		err := s.do(ctx, http.MethodPost, "/api/v1/collections", createCollectionRequest{
			Name:        name,
			GetOrCreate: true,
			Metadata:    map[string]string{"hnsw:space": "cosine"},
		}, &info)
		if err != nil {
			return "", err
		}
		return info.ID, nil
	}

	var info collectionInfo
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+name, nil, &info); err != nil {
		return "", err
	}
	return info.ID, nil
}

func (s *Store) Upsert(ctx context.Context, collectionID string, docs []vectorstore.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents and vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	id, err := s.lookup(ctx, collectionID, true)
	if err != nil {
		return err
	}

	req := upsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: vectors,
		Documents:  make([]string, len(docs)),
		Metadatas:  make([]map[string]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Documents[i] = doc.Content
		if doc.Metadata != nil {
			req.Metadatas[i] = doc.Metadata
		} else {
			req.Metadatas[i] = map[string]string{}
		}
	}

	return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/upsert", req, nil)
}

func (s *Store) Search(ctx context.Context, collectionID string, vector []float32, topK int) ([]vectorstore.ScoredDocument, error) {
	id, err := s.lookup(ctx, collectionID, false)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	err = s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", queryRequest{
		QueryEmbeddings: [][]float32{vector},
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]vectorstore.ScoredDocument, 0, len(resp.IDs[0]))
	for i, docID := range resp.IDs[0] {
		doc := vectorstore.ScoredDocument{
			Document: vectorstore.Document{ID: docID},
		}
		if i < len(resp.Documents[0]) {
			doc.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			doc.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			doc.Score = vectorstore.SimilarityFromCosineDistance(resp.Distances[0][i])
		}
		results = append(results, doc)
	}
	return results, nil
}

func (s *Store) GetAll(ctx context.Context, collectionID string) ([]vectorstore.Document, error) {
	id, err := s.lookup(ctx, collectionID, false)
	if err != nil {
		return nil, err
	}

	var resp getResponse
	err = s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/get", getRequest{
		Include: []string{"documents", "metadatas"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	docs := make([]vectorstore.Document, 0, len(resp.IDs))
	for i, docID := range resp.IDs {
		doc := vectorstore.Document{ID: docID}
		if i < len(resp.Documents) {
			doc.Content = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			doc.Metadata = resp.Metadatas[i]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) DeleteCollection(ctx context.Context, collectionID string) error {
	err := s.do(ctx, http.MethodDelete, "/api/v1/collections/"+collectionID, nil, nil)
	if err == vectorstore.ErrCollectionNotFound {
		return nil
	}
	return err
}

func (s *Store) HasCollection(ctx context.Context, collectionID string) (bool, error) {
	_, err := s.lookup(ctx, collectionID, false)
	if err == vectorstore.ErrCollectionNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	var infos []collectionInfo
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections", nil, &infos); err != nil {
		return nil, err
	}

	var names []string
	for _, info := range infos {
		if prefix == "" || strings.HasPrefix(info.Name, prefix) {
			names = append(names, info.Name)
		}
	}
	return names, nil
}
