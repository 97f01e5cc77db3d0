package provider

import (
	"context"
	"time"

	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/pkg/logging"
	"github.com/competeiq/tripartite/pkg/telemetry"
)

// timeoutInvoker bounds every invocation with a deadline.
type timeoutInvoker struct {
	next    Invoker
	timeout time.Duration
}

// WithTimeout wraps an invoker so every call runs under a bounded deadline
// with cancellation propagated from the caller's context.
func WithTimeout(next Invoker, timeout time.Duration) Invoker {
	if timeout <= 0 {
		return next
	}
	return &timeoutInvoker{next: next, timeout: timeout}
}

func (t *timeoutInvoker) Name() string { return t.next.Name() }

func (t *timeoutInvoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Invoke(ctx, msgs, model)
}

// loggingInvoker records structured logs and a trace span per invocation.
type loggingInvoker struct {
	next Invoker
}

// WithLogging wraps an invoker with structured logging and tracing.
func WithLogging(next Invoker) Invoker {
	return &loggingInvoker{next: next}
}

func (l *loggingInvoker) Name() string { return l.next.Name() }

func (l *loggingInvoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*Response, error) {
	logger := logging.WithComponent("model_invoker").With("provider", l.next.Name(), "model", model)

	ctx, span := telemetry.Tracer("provider").Start(ctx, "invoke")
	resp, err := l.next.Invoke(ctx, msgs, model)
	telemetry.End(span, err)

	if err != nil {
		logger.Error("model invocation failed", "error", err)
		return nil, err
	}
	logger.Info("model invocation completed",
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"latency_ms", resp.Latency.Milliseconds(),
		"estimated_cost", resp.EstimatedCost,
	)
	return resp, nil
}
