// Package orchestrator drives one AI response request end to end: credit
// reservation, the optional live-search branch, prompt composition, model
// invocation, groundedness validation, and the single forced regeneration.
// The flow is a state machine, so "at most one regeneration" and "at most two
// model calls" are structural properties rather than conventions.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/config"
	"github.com/competeiq/tripartite/credit"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/pipeline"
	"github.com/competeiq/tripartite/pkg/logging"
	"github.com/competeiq/tripartite/pkg/telemetry"
	"github.com/competeiq/tripartite/prompt"
	"github.com/competeiq/tripartite/provider"
	"github.com/competeiq/tripartite/search"
	"github.com/competeiq/tripartite/tokenizer"
	"github.com/competeiq/tripartite/usage"
	"github.com/competeiq/tripartite/validate"
)

// Deps are the injected collaborators. Search may be nil, which disables the
// search branch; requests that wanted it still get the explicit
// no-current-data prompt block.
type Deps struct {
	Config    *config.Config
	Governor  *credit.Governor
	Search    *search.Gateway
	Composer  *prompt.Composer
	Invoker   provider.Invoker
	Validator *validate.Validator
	Estimator tokenizer.Estimator
	Recorder  usage.Recorder
}

func (d *Deps) check() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("orchestrator: Config is required")
	case d.Governor == nil:
		return fmt.Errorf("orchestrator: Governor is required")
	case d.Composer == nil:
		return fmt.Errorf("orchestrator: Composer is required")
	case d.Invoker == nil:
		return fmt.Errorf("orchestrator: Invoker is required")
	case d.Validator == nil:
		return fmt.Errorf("orchestrator: Validator is required")
	case d.Estimator == nil:
		return fmt.Errorf("orchestrator: Estimator is required")
	}
	return nil
}

// run is the per-request state threaded through the pipeline steps.
type run struct {
	req       Request
	agentType agent.Type
	useSearch bool
	model     string

	reservation *credit.Reservation
	evidence    *search.EvidenceBundle
	msgs        []*message.Message

	answer       string
	answerModel  string
	inputTokens  int
	outputTokens int
	cost         float64

	score       validate.Score
	scored      bool
	regenerated bool

	result *Result
}

// Orchestrator executes requests. Safe for concurrent use; all mutable state
// is request-local except the credit ledger behind the governor.
type Orchestrator struct {
	deps   Deps
	regen  *RegenerationController
	flow   *pipeline.Pipeline[*run]
	logger *slog.Logger
	tracer trace.Tracer
}

// New wires an orchestrator and builds its flow.
func New(deps Deps) (*Orchestrator, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}
	if deps.Recorder == nil {
		deps.Recorder = usage.Nop{}
	}

	o := &Orchestrator{
		deps:   deps,
		regen:  NewRegenerationController(deps.Composer, deps.Invoker, deps.Validator),
		logger: logging.WithComponent("orchestrator"),
		tracer: telemetry.Tracer("orchestrator"),
	}

	flow, err := pipeline.NewBuilder[*run]().
		Step("budget", o.stepBudget).
		Branch("search_gate", o.gateSearch, map[string]string{
			"search": "search",
			"skip":   "compose",
		}).
		Step("search", o.stepSearch).
		Step("compose", o.stepCompose).
		Step("generate", o.stepGenerate).
		Branch("grounding_gate", o.gateGrounding, map[string]string{
			"validate": "validate",
			"finalize": "finalize",
		}).
		Step("validate", o.stepValidate).
		Branch("regen_gate", o.gateRegen, map[string]string{
			"regenerate": "regenerate",
			"finalize":   "finalize",
		}).
		Step("regenerate", o.stepRegenerate).
		Step("finalize", o.stepFinalize).
		Edge("budget", "search_gate").
		Edge("search", "compose").
		Edge("compose", "generate").
		Edge("generate", "grounding_gate").
		Edge("validate", "regen_gate").
		Edge("regenerate", "finalize").
		MaxVisits(2).
		Build()
	if err != nil {
		return nil, err
	}
	o.flow = flow
	return o, nil
}

// Generate runs one request through the flow and returns the finalized
// result. Caller-visible failures are budget denial, invalid input, transport
// failure, and empty generation; search trouble degrades internally.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (_ *Result, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.generate")
	defer func() { telemetry.End(span, err) }()

	agentType, err := req.validate()
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.deps.Config.DefaultModel
	}

	r := &run{
		req:       req,
		agentType: agentType,
		model:     model,
		// The tripartite predicate is evaluated exactly once, here.
		useSearch: agent.UseSearch(agentType, req.SearchEnabled, req.UseTripartite),
	}

	r, err = o.flow.Run(ctx, r)
	if err != nil {
		// A granted reservation with no delivered answer is refunded,
		// covering transport failures and cancellation mid-flight.
		if r != nil && r.reservation != nil && r.reservation.Granted {
			refundCtx := context.WithoutCancel(ctx)
			if rerr := o.deps.Governor.Refund(refundCtx, r.reservation); rerr != nil {
				o.logger.Error("refund after failure did not complete",
					"user_id", req.UserID, "error", rerr)
			}
		}
		return nil, err
	}
	return r.result, nil
}

func (o *Orchestrator) stepBudget(ctx context.Context, r *run) (*run, error) {
	inputTokens := o.deps.Estimator.Count(r.req.Message)
	credits := o.deps.Governor.EstimateCredits(inputTokens, o.deps.Config.MaxOutputTokens)

	res, err := o.deps.Governor.Reserve(ctx, r.req.UserID, credits, FunctionName)
	if err != nil {
		return r, err
	}
	r.reservation = res
	return r, nil
}

func (o *Orchestrator) gateSearch(ctx context.Context, r *run) (string, error) {
	if r.useSearch && o.deps.Search != nil {
		return "search", nil
	}
	return "skip", nil
}

func (o *Orchestrator) stepSearch(ctx context.Context, r *run) (_ *run, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.search")
	defer func() { telemetry.End(span, err) }()

	// Best effort: the gateway swallows provider failures and returns nil
	// evidence; only the caller's own cancellation comes back as an error.
	ev, err := o.deps.Search.Search(ctx, r.req.Message, r.agentType, r.req.Session)
	if err != nil {
		return r, err
	}
	r.evidence = ev
	return r, nil
}

func (o *Orchestrator) stepCompose(ctx context.Context, r *run) (*run, error) {
	msgs, err := o.deps.Composer.Build(prompt.ComposeRequest{
		AgentType:          r.agentType,
		Message:            r.req.Message,
		CurrentPage:        r.req.CurrentPage,
		Session:            r.req.Session,
		CustomSystemPrompt: r.req.SystemPrompt,
		SearchWanted:       r.useSearch,
		Evidence:           r.evidence,
	})
	if err != nil {
		return r, err
	}
	r.msgs = msgs
	return r, nil
}

func (o *Orchestrator) stepGenerate(ctx context.Context, r *run) (_ *run, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.invoke")
	defer func() { telemetry.End(span, err) }()

	resp, err := o.deps.Invoker.Invoke(ctx, r.msgs, r.model)
	if err != nil {
		return r, err
	}
	r.accumulate(resp)
	r.answer = resp.Text
	r.answerModel = respModel(resp, r.model)
	return r, nil
}

func (o *Orchestrator) gateGrounding(ctx context.Context, r *run) (string, error) {
	if r.evidence != nil {
		return "validate", nil
	}
	return "finalize", nil
}

func (o *Orchestrator) stepValidate(ctx context.Context, r *run) (*run, error) {
	_, span := o.tracer.Start(ctx, "orchestrator.validate")
	r.score = o.deps.Validator.Score(r.answer, r.evidence)
	r.scored = true
	telemetry.End(span, nil)

	if !r.score.Passed {
		o.logger.Info("groundedness check failed",
			"user_id", r.req.UserID,
			"agent_type", r.agentType.String(),
			"score", r.score.Score,
			"issues", r.score.Issues,
		)
	}
	return r, nil
}

func (o *Orchestrator) gateRegen(ctx context.Context, r *run) (string, error) {
	if !r.score.Passed {
		return "regenerate", nil
	}
	return "finalize", nil
}

func (o *Orchestrator) stepRegenerate(ctx context.Context, r *run) (_ *run, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.regenerate")
	defer func() { telemetry.End(span, err) }()

	resp, score, rerr := o.regen.ForceRegenerate(ctx, r.req.Message, r.evidence, r.model)
	if rerr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return r, cerr
		}
		// The first attempt was delivered and charged; a failed forced pass
		// falls back to it rather than failing the whole request.
		o.logger.Warn("forced regeneration failed, keeping original answer",
			"user_id", r.req.UserID, "error", rerr)
		return r, nil
	}

	r.regenerated = true
	r.accumulate(resp)
	r.answer = resp.Text
	r.answerModel = respModel(resp, r.model)
	r.score = score
	return r, nil
}

func (o *Orchestrator) stepFinalize(ctx context.Context, r *run) (*run, error) {
	quality := QualityStandard
	if r.evidence != nil && r.scored && r.score.Passed {
		quality = QualityElite
	}

	sources := []string{}
	engine := ""
	if r.evidence != nil {
		sources = r.evidence.Sources
		engine = r.evidence.Engine
	}

	r.result = &Result{
		Response:        r.answer,
		Model:           r.answerModel,
		TokensUsed:      r.inputTokens + r.outputTokens,
		Cost:            fmt.Sprintf("%.6f", r.cost),
		HasWebData:      r.evidence != nil,
		WebSources:      sources,
		ValidationScore: r.score.Score,
		SearchEngine:    engine,
		ContextQuality:  quality,
	}

	rec := usage.Record{
		UserID:          r.req.UserID,
		FunctionName:    FunctionName,
		AgentType:       r.agentType.String(),
		Model:           r.answerModel,
		InputTokens:     r.inputTokens,
		OutputTokens:    r.outputTokens,
		CreditsConsumed: r.reservation.Credits,
		CostUSD:         r.cost,
		ValidationScore: r.score.Score,
		Regenerated:     r.regenerated,
		HasWebData:      r.evidence != nil,
	}
	if err := o.deps.Recorder.Record(ctx, rec); err != nil {
		// Accounting writes never fail a delivered answer.
		o.logger.Error("usage record write failed", "user_id", r.req.UserID, "error", err)
	}

	o.logger.Info("request finalized",
		"user_id", r.req.UserID,
		"agent_type", r.agentType.String(),
		"model", r.answerModel,
		"tokens", r.result.TokensUsed,
		"has_web_data", r.result.HasWebData,
		"validation_score", r.score.Score,
		"regenerated", r.regenerated,
		"context_quality", quality,
	)
	return r, nil
}

func (r *run) accumulate(resp *provider.Response) {
	r.inputTokens += resp.InputTokens
	r.outputTokens += resp.OutputTokens
	cost := resp.EstimatedCost
	if cost == 0 {
		cost = provider.EstimateCost(respModel(resp, r.model), resp.InputTokens, resp.OutputTokens)
	}
	r.cost += cost
}

func respModel(resp *provider.Response, fallback string) string {
	if resp.Model != "" {
		return resp.Model
	}
	return fallback
}
