// Package tavily implements the search.Engine interface against the Tavily
// search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/competeiq/tripartite/search"
)

const defaultEndpoint = "https://api.tavily.com/search"

// Engine calls the Tavily search API.
type Engine struct {
	apiKey   string
	client   *http.Client
	endpoint string
	// depth controls Tavily's depth parameter (basic or advanced).
	depth string
}

// New constructs a Tavily engine.
func New(apiKey string, depth string) *Engine {
	return NewWithClient(apiKey, depth, &http.Client{Timeout: 10 * time.Second})
}

// NewWithClient constructs a Tavily engine using the supplied HTTP client.
// This is useful for overriding the default timeout or for tests.
func NewWithClient(apiKey string, depth string, client *http.Client) *Engine {
	if depth == "" {
		depth = "basic"
	}
	return &Engine{apiKey: apiKey, depth: depth, client: client, endpoint: defaultEndpoint}
}

// Name implements search.Engine.
func (e *Engine) Name() string { return "tavily" }

// Search posts a query to Tavily. A single attempt; the pipeline treats search
// as best-effort and never retries it.
func (e *Engine) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	body := map[string]any{
		"query":       query,
		"api_key":     e.apiKey,
		"depth":       e.depth,
		"max_results": maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
