package provider

import (
	"context"
	"testing"
	"time"

	"github.com/competeiq/tripartite/message"
)

type stubInvoker struct {
	name  string
	calls int
	resp  *Response
	err   error
	delay time.Duration
}

func (s *stubInvoker) Name() string { return s.name }

func (s *stubInvoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*Response, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.resp, s.err
}

func TestRouterDispatchesByModelPrefix(t *testing.T) {
	openai := &stubInvoker{name: "openai", resp: &Response{Text: "from openai"}}
	claude := &stubInvoker{name: "claude", resp: &Response{Text: "from claude"}}
	gemini := &stubInvoker{name: "gemini", resp: &Response{Text: "from gemini"}}
	r := NewRouter(openai, claude, gemini)

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "from openai"},
		{"o3-mini", "from openai"},
		{"claude-sonnet-4-5", "from claude"},
		{"gemini-2.0-flash", "from gemini"},
		{"unknown-model", "from openai"},
	}

	for _, tt := range tests {
		resp, err := r.Invoke(context.Background(), nil, tt.model)
		if err != nil {
			t.Errorf("Invoke(%q) error: %v", tt.model, err)
			continue
		}
		if resp.Text != tt.want {
			t.Errorf("Invoke(%q) routed to %q, want %q", tt.model, resp.Text, tt.want)
		}
	}
}

func TestRouterUnconfiguredVendor(t *testing.T) {
	r := NewRouter(&stubInvoker{name: "openai", resp: &Response{}}, nil, nil)

	if _, err := r.Invoke(context.Background(), nil, "claude-sonnet-4-5"); err == nil {
		t.Error("Expected error for unconfigured claude adapter")
	}
}

func TestEstimateCostPrefixMatch(t *testing.T) {
	// gpt-4o-mini must match its own rate, not the shorter gpt-4o prefix.
	mini := EstimateCost("gpt-4o-mini", 1000, 1000)
	full := EstimateCost("gpt-4o", 1000, 1000)
	if mini >= full {
		t.Errorf("Expected mini cost (%v) below gpt-4o cost (%v)", mini, full)
	}

	if got := EstimateCost("mystery-model", 1000, 0); got <= 0 {
		t.Errorf("Expected fallback rate for unknown model, got %v", got)
	}
}

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	slow := &stubInvoker{name: "slow", resp: &Response{}, delay: 200 * time.Millisecond}
	inv := WithTimeout(slow, 10*time.Millisecond)

	_, err := inv.Invoke(context.Background(), nil, "gpt-4o-mini")
	if err == nil {
		t.Error("Expected timeout error")
	}
}

func TestTotalTokens(t *testing.T) {
	r := &Response{InputTokens: 120, OutputTokens: 80}
	if r.TotalTokens() != 200 {
		t.Errorf("Expected 200 total tokens, got %d", r.TotalTokens())
	}
}
