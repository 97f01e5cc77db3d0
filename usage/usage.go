// Package usage defines the accounting boundary the pipeline reports into
// after a request finalizes. Persistence lives behind the Recorder interface;
// the pipeline only calls it.
package usage

import (
	"context"
	"time"
)

// Record is one finalized request's accounting entry.
type Record struct {
	UserID          string    `json:"user_id"`
	FunctionName    string    `json:"function_name"`
	AgentType       string    `json:"agent_type"`
	Model           string    `json:"model"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	CreditsConsumed int       `json:"credits_consumed"`
	CostUSD         float64   `json:"cost_usd"`
	ValidationScore int       `json:"validation_score"`
	Regenerated     bool      `json:"regenerated"`
	HasWebData      bool      `json:"has_web_data"`
	CreatedAt       time.Time `json:"created_at"`
}

// Recorder persists usage records. Recording is best-effort from the
// pipeline's point of view: a failed write is logged, not surfaced.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Nop discards records; useful default for tests and local runs.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(ctx context.Context, rec Record) error { return nil }
