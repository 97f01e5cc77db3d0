package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/competeiq/tripartite/agent"
	"github.com/competeiq/tripartite/config"
	"github.com/competeiq/tripartite/credit"
	"github.com/competeiq/tripartite/errors"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/prompt"
	"github.com/competeiq/tripartite/provider"
	"github.com/competeiq/tripartite/search"
	"github.com/competeiq/tripartite/tokenizer"
	"github.com/competeiq/tripartite/usage/store"
	"github.com/competeiq/tripartite/validate"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// scriptedInvoker returns canned texts in order and records every prompt set.
type scriptedInvoker struct {
	mu      sync.Mutex
	scripts []string
	err     error
	calls   int
	prompts [][]*message.Message
}

func (s *scriptedInvoker) Name() string { return "stub" }

func (s *scriptedInvoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, msgs)
	idx := s.calls
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if idx >= len(s.scripts) {
		idx = len(s.scripts) - 1
	}
	return &provider.Response{
		Text:         s.scripts[idx],
		Model:        model,
		InputTokens:  100,
		OutputTokens: 50,
	}, nil
}

type stubEngine struct {
	results []search.Result
	calls   int
}

func (s *stubEngine) Name() string { return "stub-engine" }

func (s *stubEngine) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.calls++
	return s.results, nil
}

// Evidence whose content shares well over ten long words with groundedAnswer.
var marketResults = []search.Result{
	{
		Title: "Quarterly earnings roundup",
		URL:   "https://bloomberg.com/markets/earnings",
		Content: "Quarterly revenue growth accelerated while operating margin expanded. " +
			"Analysts raised their forecast after guidance improved across every segment, " +
			"with profit outlook and earnings momentum strengthening through the period.",
		Score: 0.9,
	},
}

const groundedAnswer = "According to bloomberg, quarterly revenue growth accelerated in 2025. " +
	"Operating margin expanded, analysts raised their forecast, guidance improved across " +
	"every segment, and the profit outlook strengthened alongside earnings momentum through the period."

const genericAnswer = "Great question! There are many factors to consider and it depends on the situation."

type fixture struct {
	orch    *Orchestrator
	invoker *scriptedInvoker
	engine  *stubEngine
	ledger  *credit.MemoryLedger
	records *store.InMemoryRecorder
}

func newFixture(t *testing.T, invoker *scriptedInvoker, engine *stubEngine) *fixture {
	t.Helper()

	cfg := &config.Config{
		CreditsPerKiloToken: 1,
		OutputTokenWeight:   2,
		ValidationThreshold: 100,
		MinOverlapWords:     10,
		DailyCreditLimit:    200,
		MaxOutputTokens:     1000,
		DefaultModel:        "gpt-4o-mini",
		SearchTimeout:       time.Second,
		ModelTimeout:        time.Second,
	}

	ledger := credit.NewMemoryLedger(cfg.DailyCreditLimit)
	records := store.NewInMemoryRecorder()

	var gateway *search.Gateway
	if engine != nil {
		gateway = search.NewGateway(engine, cfg.SearchTimeout)
	}

	orch, err := New(Deps{
		Config:    cfg,
		Governor:  credit.NewGovernor(ledger, cfg.CreditsPerKiloToken, cfg.OutputTokenWeight),
		Search:    gateway,
		Composer:  prompt.NewComposerWithClock(testClock),
		Invoker:   invoker,
		Validator: validate.NewWithClock(cfg.ValidationThreshold, cfg.MinOverlapWords, testClock),
		Estimator: tokenizer.Heuristic{},
		Recorder:  records,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{orch: orch, invoker: invoker, engine: engine, ledger: ledger, records: records}
}

func baseRequest() Request {
	return Request{
		UserID:        "u1",
		Message:       "How is the quarterly revenue trending?",
		AgentType:     "cir",
		SearchEnabled: true,
		Session:       agent.SessionContext{CompanyName: "Acme", Industry: "fintech"},
	}
}

func TestGroundedFirstAttempt(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{groundedAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	res, err := f.orch.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if invoker.calls != 1 {
		t.Errorf("invoker calls = %d, want 1", invoker.calls)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
	if res.ValidationScore != 100 {
		t.Errorf("validationScore = %d, want 100", res.ValidationScore)
	}
	if !res.HasWebData {
		t.Error("hasWebData = false, want true")
	}
	if res.ContextQuality != QualityElite {
		t.Errorf("contextQuality = %q, want %q", res.ContextQuality, QualityElite)
	}
	if res.SearchEngine != "stub-engine" {
		t.Errorf("searchEngine = %q", res.SearchEngine)
	}
	if len(res.WebSources) == 0 {
		t.Error("webSources empty")
	}
	if res.TokensUsed != 150 {
		t.Errorf("tokensUsed = %d, want 150", res.TokensUsed)
	}

	recs := f.records.ForUser("u1")
	if len(recs) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(recs))
	}
	if recs[0].Regenerated {
		t.Error("usage record marked regenerated for a clean first attempt")
	}
}

func TestUngroundedAnswerTriggersForcedPass(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer, groundedAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	res, err := f.orch.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if invoker.calls != 2 {
		t.Fatalf("invoker calls = %d, want 2", invoker.calls)
	}
	// The forced prompt must repeat the evidence content verbatim.
	forced := invoker.prompts[1]
	var forcedUser string
	for _, m := range forced {
		if m.Role == message.RoleUser {
			forcedUser = m.Text()
		}
	}
	if !strings.Contains(forcedUser, "Quarterly revenue growth accelerated") {
		t.Error("forced prompt does not carry the evidence content")
	}

	if res.ValidationScore != 100 {
		t.Errorf("validationScore = %d, want 100 after forced pass", res.ValidationScore)
	}
	if res.ContextQuality != QualityElite {
		t.Errorf("contextQuality = %q, want %q", res.ContextQuality, QualityElite)
	}

	recs := f.records.ForUser("u1")
	if len(recs) != 1 || !recs[0].Regenerated {
		t.Error("usage record should mark the request regenerated")
	}
}

func TestForcedPassFailureIsStillReturned(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer, genericAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	res, err := f.orch.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// At most two model calls, even when the forced answer is ungrounded.
	if invoker.calls != 2 {
		t.Errorf("invoker calls = %d, want 2", invoker.calls)
	}
	if res.Response != genericAnswer {
		t.Error("forced-pass answer not returned")
	}
	if res.ContextQuality != QualityStandard {
		t.Errorf("contextQuality = %q, want %q", res.ContextQuality, QualityStandard)
	}
	if res.ValidationScore == 100 {
		t.Error("validationScore should reflect the failed forced pass")
	}
}

func TestEmptySearchDegradesToNoCurrentData(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer}}
	engine := &stubEngine{} // no results
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	res, err := f.orch.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if invoker.calls != 1 {
		t.Fatalf("invoker calls = %d, want 1", invoker.calls)
	}
	var system string
	for _, m := range invoker.prompts[0] {
		if m.Role == message.RoleSystem {
			system = m.Text()
		}
	}
	if !strings.Contains(system, "No current web data is available") {
		t.Error("system prompt lacks the no-current-data block")
	}
	if res.HasWebData {
		t.Error("hasWebData = true without evidence")
	}
	if res.ValidationScore != 0 {
		t.Errorf("validationScore = %d, want 0 when validation is skipped", res.ValidationScore)
	}
	if res.ContextQuality != QualityStandard {
		t.Errorf("contextQuality = %q, want %q", res.ContextQuality, QualityStandard)
	}
	if len(res.WebSources) != 0 {
		t.Error("webSources should be empty without evidence")
	}
}

func TestBudgetDenialStopsEverything(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{groundedAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 2) // request estimates at 3 credits

	_, err := f.orch.Generate(context.Background(), baseRequest())
	if !errors.Is(err, errors.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}

	var berr *errors.BudgetError
	if !errors.As(err, &berr) {
		t.Fatalf("expected *BudgetError, got %T", err)
	}
	if berr.Reason != errors.ReasonInsufficientCredits {
		t.Errorf("reason = %q, want %q", berr.Reason, errors.ReasonInsufficientCredits)
	}
	if HTTPStatus(err) != 429 {
		t.Errorf("HTTPStatus = %d, want 429", HTTPStatus(err))
	}

	if engine.calls != 0 {
		t.Error("search ran despite budget denial")
	}
	if invoker.calls != 0 {
		t.Error("model ran despite budget denial")
	}
	bal, _ := f.ledger.Balance(context.Background(), "u1")
	if bal.PlanRemaining != 2 {
		t.Errorf("plan remaining = %d, want untouched 2", bal.PlanRemaining)
	}
	if len(f.records.Records()) != 0 {
		t.Error("usage recorded for a rejected request")
	}
}

func TestMentorSkipsSearchEntirely(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	req := baseRequest()
	req.AgentType = "clipogino"
	req.SearchEnabled = false
	req.UseTripartite = false

	res, err := f.orch.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0", engine.calls)
	}
	var system string
	for _, m := range invoker.prompts[0] {
		if m.Role == message.RoleSystem {
			system = m.Text()
		}
	}
	if strings.Contains(system, "No current web data is available") {
		t.Error("no-current-data block present when search was never wanted")
	}
	if res.HasWebData {
		t.Error("hasWebData = true for the mentor path")
	}
}

func TestForceTripartiteOverridesAgentDefaults(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{groundedAnswer}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	req := baseRequest()
	req.AgentType = "clipogino"
	req.SearchEnabled = false
	req.UseTripartite = true

	res, err := f.orch.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("engine calls = %d, want 1", engine.calls)
	}
	if !res.HasWebData {
		t.Error("hasWebData = false despite forced tripartite flow")
	}
}

func TestTransportFailureRefundsCredits(t *testing.T) {
	invoker := &scriptedInvoker{err: &errors.TransportError{Provider: "stub", Err: context.DeadlineExceeded}}
	engine := &stubEngine{results: marketResults}
	f := newFixture(t, invoker, engine)
	f.ledger.Grant("u1", 100)

	_, err := f.orch.Generate(context.Background(), baseRequest())
	if !errors.Is(err, errors.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if HTTPStatus(err) != 500 {
		t.Errorf("HTTPStatus = %d, want 500", HTTPStatus(err))
	}

	bal, _ := f.ledger.Balance(context.Background(), "u1")
	if bal.PlanRemaining != 100 {
		t.Errorf("plan remaining = %d, want refunded 100", bal.PlanRemaining)
	}
	if invoker.calls != 1 {
		t.Errorf("invoker calls = %d, want exactly 1 (no retry on transport failure)", invoker.calls)
	}
}

func TestRequestValidation(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer}}
	f := newFixture(t, invoker, nil)

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing user", func(r *Request) { r.UserID = "" }},
		{"empty message", func(r *Request) { r.Message = "  " }},
		{"unknown agent", func(r *Request) { r.AgentType = "oracle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			_, err := f.orch.Generate(context.Background(), req)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
			if HTTPStatus(err) != 400 {
				t.Errorf("HTTPStatus = %d, want 400", HTTPStatus(err))
			}
		})
	}
	if invoker.calls != 0 {
		t.Error("model ran for invalid requests")
	}
}

func TestNilSearchGatewayStillServes(t *testing.T) {
	invoker := &scriptedInvoker{scripts: []string{genericAnswer}}
	f := newFixture(t, invoker, nil)
	f.ledger.Grant("u1", 100)

	res, err := f.orch.Generate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.HasWebData {
		t.Error("hasWebData = true without a search gateway")
	}
	var system string
	for _, m := range invoker.prompts[0] {
		if m.Role == message.RoleSystem {
			system = m.Text()
		}
	}
	if !strings.Contains(system, "No current web data is available") {
		t.Error("search-wanting request should still get the no-current-data block")
	}
}
