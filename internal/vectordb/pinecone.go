package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Match is one scored nearest-neighbor result with its metadata payload.
// Metadata fields are decoded explicitly; anything the index does not set
// stays at its zero value and the caller applies documented defaults.
type Match struct {
	ID       string
	Score    float64
	Metadata MatchMetadata
}

// MatchMetadata is the typed view of the index's per-vector payload.
type MatchMetadata struct {
	Text        string   `json:"text"`
	PageContent string   `json:"pageContent"`
	DocType     string   `json:"doc_type"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	Source      string   `json:"source"`
}

// RetrievalError marks a failed vector database query.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("vector search failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// Searcher is the vector database collaborator surface.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// PineconeClient queries a Pinecone index over its data-plane REST API.
type PineconeClient struct {
	host   string
	apiKey string
	client *http.Client
}

func NewPineconeClient(host, apiKey string) (*PineconeClient, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}

	return &PineconeClient{
		host:   host,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryResponse struct {
	Matches []struct {
		ID       string        `json:"id"`
		Score    float64       `json:"score"`
		Metadata MatchMetadata `json:"metadata"`
	} `json:"matches"`
}

func (c *PineconeClient) Search(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	payload, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeValues:   false,
	})
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("marshal query: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &RetrievalError{Err: fmt.Errorf("pinecone status %d: %s", res.StatusCode, string(body))}
	}

	var parsed queryResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &RetrievalError{Err: fmt.Errorf("decode response: %w", err)}
	}

	matches := make([]Match, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}
