package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CrossEncoderReranker calls an external reranking service (e.g. a TEI or
// bge-reranker deployment) over HTTP.
type CrossEncoderReranker struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

var _ Reranker = &CrossEncoderReranker{}

func NewCrossEncoderReranker(baseURL, model string) *CrossEncoderReranker {
	return &CrossEncoderReranker{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index float64 `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *CrossEncoderReranker) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     r.Model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/rerank", r.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed rerankResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal rerank response: %w", err)
	}

	scores := make([]float64, len(documents))
	for _, res := range parsed.Results {
		idx := int(res.Index)
		if idx >= 0 && idx < len(scores) {
			scores[idx] = res.Score
		}
	}
	return scores, nil
}
