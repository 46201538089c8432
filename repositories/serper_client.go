package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/barrie-cork/thesis-swarm/domain"
)

const DefaultSerperURL = "https://google.serper.dev/search"

var ErrMissingAPIKey = errors.New("SERPER_API_KEY is not defined")

type SerperClient struct {
	client   *http.Client
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
}

func NewSerperClient(endpoint, apiKey string, minInterval time.Duration) *SerperClient {
	if endpoint == "" {
		endpoint = DefaultSerperURL
	}
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &SerperClient{
		client:   &http.Client{Timeout: 30 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []json.RawMessage `json:"organic"`
}

type serperHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search runs one query against the API. Failures are returned as they are;
// the caller decides whether to try again.
func (c *SerperClient) Search(ctx context.Context, query string, maxResults int) (*domain.SearchResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(serperRequest{Q: query, Num: maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed serperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(parsed.Organic))
	for _, raw := range parsed.Organic {
		var hit serperHit
		if err := json.Unmarshal(raw, &hit); err != nil {
			return nil, fmt.Errorf("failed to decode organic result: %w", err)
		}
		hits = append(hits, domain.SearchHit{
			Title:   hit.Title,
			Link:    hit.Link,
			Snippet: hit.Snippet,
			Raw:     raw,
		})
	}

	return &domain.SearchResponse{Hits: hits, Body: body}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
