package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["query"] != "acme revenue" {
			t.Errorf("Expected query in body, got %v", body["query"])
		}
		if body["api_key"] != "test-key" {
			t.Errorf("Expected api key in body, got %v", body["api_key"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Earnings", "url": "https://bloomberg.com/e", "content": "Revenue up.", "score": 0.92},
				{"title": "Filing", "url": "https://sec.gov/f", "content": "10-K details.", "score": 0.55},
			},
		})
	}))
	defer srv.Close()

	engine := NewWithClient("test-key", "", srv.Client())
	engine.endpoint = srv.URL

	results, err := engine.Search(context.Background(), "acme revenue", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://bloomberg.com/e" {
		t.Errorf("Unexpected first URL: %s", results[0].URL)
	}
	if results[0].Score != 0.92 {
		t.Errorf("Expected score 0.92, got %v", results[0].Score)
	}
}

func TestSearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]any, 10)
		for i := range results {
			results[i] = map[string]any{"title": "t", "url": "https://example.com", "content": "c"}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer srv.Close()

	engine := NewWithClient("test-key", "", srv.Client())
	engine.endpoint = srv.URL

	results, err := engine.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
}

func TestSearchRequiresAPIKey(t *testing.T) {
	engine := New("", "")
	if _, err := engine.Search(context.Background(), "q", 5); err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	engine := NewWithClient("test-key", "", srv.Client())
	engine.endpoint = srv.URL

	if _, err := engine.Search(context.Background(), "q", 5); err == nil {
		t.Error("Expected error for HTTP 502")
	}
}
