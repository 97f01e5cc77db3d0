// Package search fetches live web evidence for the tripartite flow. A search
// is a single best-effort attempt: provider failures and empty result sets
// degrade to "no evidence" instead of failing the request, because downstream
// behaviour changes rather than stops when nothing current is available.
package search

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/pkg/logging"
	"github.com/competeiq/tripartite/pkg/telemetry"
)

// DefaultConfidence is used when a provider reports no quality metric of its
// own; deliberately conservative.
const DefaultConfidence = 40

// Result is one raw hit from a search engine.
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64 // provider relevance in [0,1]; 0 when not reported
}

// Engine is a single search provider.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Insight is a titled takeaway extracted from a result.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EvidenceBundle is the normalized product of one search call. It is
// request-scoped and never cached: freshness is the point of fetching it.
type EvidenceBundle struct {
	Content    string
	Sources    []string
	Insights   []Insight
	Confidence int // 0-100
	Engine     string
	Timestamp  time.Time
}

// Gateway queries an engine and normalizes its output.
type Gateway struct {
	engine     Engine
	maxResults int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewGateway wires a gateway around the given engine.
func NewGateway(engine Engine, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		engine:     engine,
		maxResults: 5,
		timeout:    timeout,
		logger:     logging.WithComponent("search_gateway"),
	}
}

// Search runs one best-effort query. Provider errors and empty result sets
// both return (nil, nil): the caller proceeds without evidence. The error
// return is reserved for context cancellation, which must abort the request.
func (g *Gateway) Search(ctx context.Context, topic string, agentType agent.Type, session agent.SessionContext) (*EvidenceBundle, error) {
	if g == nil || g.engine == nil {
		return nil, nil
	}

	query := BuildQuery(topic, agentType, session)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := telemetry.Tracer("search").Start(ctx, "gateway.search")
	results, err := g.engine.Search(ctx, query, g.maxResults)
	telemetry.End(span, err)

	if err != nil {
		// Caller cancellation aborts the request; provider failures degrade.
		if stderrors.Is(err, context.Canceled) {
			return nil, err
		}
		g.logger.Warn("search degraded to no-evidence path",
			"engine", g.engine.Name(),
			"query", query,
			"error", err,
		)
		return nil, nil
	}
	if len(results) == 0 {
		g.logger.Info("search returned no results", "engine", g.engine.Name(), "query", query)
		return nil, nil
	}

	return normalize(g.engine.Name(), results), nil
}

// BuildQuery shapes the provider query from the topic and session hints. Pure.
func BuildQuery(topic string, agentType agent.Type, session agent.SessionContext) string {
	parts := []string{strings.TrimSpace(topic)}
	if session.CompanyName != "" {
		parts = append(parts, session.CompanyName)
	}
	if session.Industry != "" {
		parts = append(parts, session.Industry)
	}
	switch agentType {
	case agent.CompetitorDiscovery:
		parts = append(parts, "competitors")
	case agent.CompetitiveRetriever, agent.CompetitiveAnalyst:
		parts = append(parts, "competitive analysis")
	}
	return strings.Join(parts, " ")
}

func normalize(engine string, results []Result) *EvidenceBundle {
	var content strings.Builder
	sources := make([]string, 0, len(results))
	insights := make([]Insight, 0, len(results))

	var scored int
	var scoreSum float64

	for _, r := range results {
		text := strings.TrimSpace(r.Content)
		if text == "" && r.Title == "" {
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		if r.Title != "" {
			content.WriteString(r.Title)
			content.WriteString(": ")
		}
		content.WriteString(text)

		if r.URL != "" {
			sources = append(sources, r.URL)
		}
		insights = append(insights, Insight{
			Title:       r.Title,
			Description: truncate(text, 280),
		})
		if r.Score > 0 {
			scored++
			scoreSum += r.Score
		}
	}

	confidence := DefaultConfidence
	if scored > 0 {
		confidence = int(scoreSum / float64(scored) * 100)
		if confidence > 100 {
			confidence = 100
		}
	}

	return &EvidenceBundle{
		Content:    content.String(),
		Sources:    sources,
		Insights:   insights,
		Confidence: confidence,
		Engine:     engine,
		Timestamp:  time.Now(),
	}
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
