// Package duckduckgo implements the search.Engine interface by scraping the
// DuckDuckGo Lite HTML interface. No API key required, which makes it the
// zero-config fallback engine.
package duckduckgo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/competeiq/tripartite/search"
)

const endpoint = "https://lite.duckduckgo.com/lite/"

// rateGate enforces a global limit of 1 query per second across all Engine
// instances and goroutines; DuckDuckGo throttles aggressively above that.
var rateGate struct {
	mu   sync.Mutex
	last time.Time
}

// Engine scrapes DuckDuckGo Lite search results.
type Engine struct {
	client   *http.Client
	endpoint string
}

// New creates a DuckDuckGo engine with a modest timeout.
func New() *Engine {
	return NewWithClient(&http.Client{Timeout: 15 * time.Second})
}

// NewWithClient creates a DuckDuckGo engine using the supplied HTTP client.
func NewWithClient(client *http.Client) *Engine {
	return &Engine{client: client, endpoint: endpoint}
}

// Name implements search.Engine.
func (e *Engine) Name() string { return "duckduckgo" }

// Search posts the query to the lite interface and parses the result table.
func (e *Engine) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	if err := waitRateGate(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tripartite/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo parse failed: %w", err)
	}

	var results []search.Result
	snippets := doc.Find("td.result-snippet")
	doc.Find("a.result-link").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		result := search.Result{
			Title: strings.TrimSpace(sel.Text()),
			URL:   cleanURL(href),
		}
		if snippet := snippets.Eq(i); snippet != nil {
			result.Content = strings.TrimSpace(snippet.Text())
		}
		if result.Title == "" && result.Content == "" {
			return true
		}
		results = append(results, result)
		return len(results) < maxResults
	})

	return results, nil
}

func waitRateGate(ctx context.Context) error {
	rateGate.mu.Lock()
	if wait := time.Until(rateGate.last.Add(time.Second)); wait > 0 {
		rateGate.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		rateGate.mu.Lock()
	}
	rateGate.last = time.Now()
	rateGate.mu.Unlock()
	return nil
}

// cleanURL unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func cleanURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.Contains(u.Host, "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			if decoded, err := url.QueryUnescape(target); err == nil {
				return decoded
			}
			return target
		}
	}
	return href
}
