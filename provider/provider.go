// Package provider abstracts language-model invocation. Each adapter wraps one
// vendor SDK, normalizes its response shape, and classifies failures into the
// empty-completion and transport kinds the orchestrator handles differently.
package provider

import (
	"context"
	"time"

	"github.com/competeiq/tripartite/message"
)

// Response is the normalized result of one model invocation. Immutable once
// returned.
type Response struct {
	Text          string
	Model         string
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
	Latency       time.Duration
}

// TotalTokens returns the combined token count of the call.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Invoker sends a composed message set to one provider. Implementations do not
// retry: prompt-identical retries are pointless for empty completions and
// double-charge credits for transport failures; retries with a different
// prompt belong to the regeneration path.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, msgs []*message.Message, model string) (*Response, error)
}
