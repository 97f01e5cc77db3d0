// Package pipeline provides a small sequential state machine used to drive
// the response orchestration flow. Steps carry a typed state value forward;
// branch steps pick the next step from the current state.
package pipeline

import (
	"context"
	"fmt"
)

// StepFunc executes one step and returns the updated state.
type StepFunc[S any] func(context.Context, S) (S, error)

// BranchFunc inspects the state and returns a route label.
type BranchFunc[S any] func(context.Context, S) (string, error)

type step[S any] struct {
	name   string
	run    StepFunc[S]
	branch BranchFunc[S]
	next   string
	routes map[string]string
}

// Pipeline is an immutable, runnable step graph. Build one with Builder.
type Pipeline[S any] struct {
	steps     map[string]*step[S]
	start     string
	maxVisits int
}

// Run walks the pipeline from the start step until a step with no outgoing
// edge completes, and returns the final state. A step revisited more than
// maxVisits times aborts the run.
func (p *Pipeline[S]) Run(ctx context.Context, state S) (S, error) {
	visits := make(map[string]int)
	current := p.start

	for current != "" {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		st, ok := p.steps[current]
		if !ok {
			return state, fmt.Errorf("pipeline: step %s not found", current)
		}
		visits[current]++
		if visits[current] > p.maxVisits {
			return state, fmt.Errorf("pipeline: step %s exceeded %d visits", current, p.maxVisits)
		}

		if st.branch != nil {
			route, err := st.branch(ctx, state)
			if err != nil {
				return state, fmt.Errorf("pipeline: branch %s: %w", current, err)
			}
			next, ok := st.routes[route]
			if !ok {
				return state, fmt.Errorf("pipeline: branch %s has no route %q", current, route)
			}
			current = next
			continue
		}

		var err error
		state, err = st.run(ctx, state)
		if err != nil {
			return state, fmt.Errorf("pipeline: step %s: %w", current, err)
		}
		current = st.next
	}

	return state, nil
}

// Builder assembles a Pipeline fluently.
type Builder[S any] struct {
	pipeline *Pipeline[S]
	err      error
}

// NewBuilder creates an empty builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		pipeline: &Pipeline[S]{
			steps:     make(map[string]*step[S]),
			maxVisits: 5,
		},
	}
}

func (b *Builder[S]) add(s *step[S]) {
	if b.err != nil {
		return
	}
	if s.name == "" {
		b.err = fmt.Errorf("pipeline: step name cannot be empty")
		return
	}
	if _, exists := b.pipeline.steps[s.name]; exists {
		b.err = fmt.Errorf("pipeline: step %s already exists", s.name)
		return
	}
	b.pipeline.steps[s.name] = s
	if b.pipeline.start == "" {
		b.pipeline.start = s.name
	}
}

// Step adds a plain step. The first step added becomes the start step.
func (b *Builder[S]) Step(name string, fn StepFunc[S]) *Builder[S] {
	if fn == nil {
		b.fail(fmt.Errorf("pipeline: step %s has nil func", name))
		return b
	}
	b.add(&step[S]{name: name, run: fn})
	return b
}

// Branch adds a routing step. The route label returned by fn selects the
// next step from routes.
func (b *Builder[S]) Branch(name string, fn BranchFunc[S], routes map[string]string) *Builder[S] {
	if fn == nil {
		b.fail(fmt.Errorf("pipeline: branch %s has nil func", name))
		return b
	}
	if len(routes) == 0 {
		b.fail(fmt.Errorf("pipeline: branch %s has no routes", name))
		return b
	}
	b.add(&step[S]{name: name, branch: fn, routes: routes})
	return b
}

// Edge connects a plain step to its successor.
func (b *Builder[S]) Edge(from, to string) *Builder[S] {
	if b.err != nil {
		return b
	}
	st, ok := b.pipeline.steps[from]
	if !ok {
		b.fail(fmt.Errorf("pipeline: edge from unknown step %s", from))
		return b
	}
	if st.branch != nil {
		b.fail(fmt.Errorf("pipeline: step %s is a branch; routes define its edges", from))
		return b
	}
	st.next = to
	return b
}

// Start overrides the start step.
func (b *Builder[S]) Start(name string) *Builder[S] {
	if b.err != nil {
		return b
	}
	if _, ok := b.pipeline.steps[name]; !ok {
		b.fail(fmt.Errorf("pipeline: start step %s not found", name))
		return b
	}
	b.pipeline.start = name
	return b
}

// MaxVisits sets the per-step revisit limit.
func (b *Builder[S]) MaxVisits(n int) *Builder[S] {
	if n > 0 {
		b.pipeline.maxVisits = n
	}
	return b
}

func (b *Builder[S]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates the assembled pipeline and returns it. Every edge and
// route must point at a registered step.
func (b *Builder[S]) Build() (*Pipeline[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.pipeline.start == "" {
		return nil, fmt.Errorf("pipeline: no steps registered")
	}
	for name, st := range b.pipeline.steps {
		if st.next != "" {
			if _, ok := b.pipeline.steps[st.next]; !ok {
				return nil, fmt.Errorf("pipeline: step %s points at unknown step %s", name, st.next)
			}
		}
		for route, target := range st.routes {
			if _, ok := b.pipeline.steps[target]; !ok {
				return nil, fmt.Errorf("pipeline: branch %s route %q points at unknown step %s", name, route, target)
			}
		}
	}
	return b.pipeline, nil
}
