package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type counter struct {
	trace []string
	n     int
}

func record(name string) StepFunc[*counter] {
	return func(ctx context.Context, c *counter) (*counter, error) {
		c.trace = append(c.trace, name)
		return c, nil
	}
}

func TestLinearRun(t *testing.T) {
	p, err := NewBuilder[*counter]().
		Step("a", record("a")).
		Step("b", record("b")).
		Step("c", record("c")).
		Edge("a", "b").
		Edge("b", "c").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	c, err := p.Run(context.Background(), &counter{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(c.trace, ","); got != "a,b,c" {
		t.Errorf("trace = %s, want a,b,c", got)
	}
}

func TestBranchRouting(t *testing.T) {
	p, err := NewBuilder[*counter]().
		Step("start", record("start")).
		Branch("gate", func(ctx context.Context, c *counter) (string, error) {
			if c.n > 0 {
				return "retry", nil
			}
			return "done", nil
		}, map[string]string{"retry": "work", "done": "finish"}).
		Step("work", func(ctx context.Context, c *counter) (*counter, error) {
			c.trace = append(c.trace, "work")
			c.n--
			return c, nil
		}).
		Step("finish", record("finish")).
		Edge("start", "gate").
		Edge("work", "gate").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	c, err := p.Run(context.Background(), &counter{n: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(c.trace, ","); got != "start,work,work,finish" {
		t.Errorf("trace = %s, want start,work,work,finish", got)
	}
}

func TestLoopGuard(t *testing.T) {
	p, err := NewBuilder[*counter]().
		Step("loop", record("loop")).
		Edge("loop", "loop").
		MaxVisits(3).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := p.Run(context.Background(), &counter{}); err == nil {
		t.Fatal("expected loop guard error")
	}
}

func TestStepErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	p, err := NewBuilder[*counter]().
		Step("a", record("a")).
		Step("b", func(ctx context.Context, c *counter) (*counter, error) {
			return c, boom
		}).
		Step("c", record("c")).
		Edge("a", "b").
		Edge("b", "c").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	c, err := p.Run(context.Background(), &counter{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if got := strings.Join(c.trace, ","); got != "a" {
		t.Errorf("trace = %s, want a", got)
	}
}

func TestBuildValidation(t *testing.T) {
	if _, err := NewBuilder[*counter]().Build(); err == nil {
		t.Error("expected error for empty pipeline")
	}

	_, err := NewBuilder[*counter]().
		Step("a", record("a")).
		Edge("a", "missing").
		Build()
	if err == nil {
		t.Error("expected error for dangling edge")
	}

	_, err = NewBuilder[*counter]().
		Branch("gate", func(ctx context.Context, c *counter) (string, error) {
			return "x", nil
		}, map[string]string{"x": "missing"}).
		Build()
	if err == nil {
		t.Error("expected error for dangling route")
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := NewBuilder[*counter]().
		Step("a", record("a")).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := p.Run(ctx, &counter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
