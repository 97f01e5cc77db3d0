package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/competeiq/tripartite/message"
)

// Router dispatches invocations to the vendor adapter owning the requested
// model family. It implements Invoker itself so the orchestrator stays
// vendor-agnostic.
type Router struct {
	openai  Invoker
	claude  Invoker
	gemini  Invoker
	defined []string
}

// NewRouter builds a router over the configured adapters; nil entries are
// allowed and produce an error only if a model routes to them.
func NewRouter(openai, claude, gemini Invoker) *Router {
	r := &Router{openai: openai, claude: claude, gemini: gemini}
	if openai != nil {
		r.defined = append(r.defined, "openai")
	}
	if claude != nil {
		r.defined = append(r.defined, "claude")
	}
	if gemini != nil {
		r.defined = append(r.defined, "gemini")
	}
	return r
}

// Name implements Invoker.
func (r *Router) Name() string { return "router" }

// Invoke implements Invoker by prefix-matching the model identifier.
func (r *Router) Invoke(ctx context.Context, msgs []*message.Message, model string) (*Response, error) {
	target := r.route(model)
	if target == nil {
		return nil, fmt.Errorf("no provider configured for model %q (configured: %s)", model, strings.Join(r.defined, ", "))
	}
	return target.Invoke(ctx, msgs, model)
}

func (r *Router) route(model string) Invoker {
	switch {
	case strings.HasPrefix(model, "claude"):
		return r.claude
	case strings.HasPrefix(model, "gemini"):
		return r.gemini
	default:
		return r.openai
	}
}
