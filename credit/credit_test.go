package credit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/competeiq/tripartite/errors"
)

func TestEstimateCreditsWeightsOutput(t *testing.T) {
	g := NewGovernor(NewMemoryLedger(1000), 1.0, 2)

	// 500 input + 2*250 output = 1000 weighted tokens = 1 credit.
	if got := g.EstimateCredits(500, 250); got != 1 {
		t.Errorf("Expected 1 credit, got %d", got)
	}

	// 1001 weighted tokens rounds up to 2 credits.
	if got := g.EstimateCredits(501, 250); got != 2 {
		t.Errorf("Expected 2 credits, got %d", got)
	}

	// Never less than 1 credit.
	if got := g.EstimateCredits(10, 0); got != 1 {
		t.Errorf("Expected minimum 1 credit, got %d", got)
	}
}

func TestReserveInsufficientCredits(t *testing.T) {
	ledger := NewMemoryLedger(100)
	ledger.Grant("user-1", 2)
	g := NewGovernor(ledger, 1.0, 2)

	res, err := g.Reserve(context.Background(), "user-1", 3, "orchestrate")
	if err == nil {
		t.Fatal("Expected budget error")
	}
	if res.Granted {
		t.Error("Expected ungranted reservation")
	}

	var budgetErr *errors.BudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("Expected BudgetError, got %T", err)
	}
	if budgetErr.Reason != errors.ReasonInsufficientCredits {
		t.Errorf("Expected reason %q, got %q", errors.ReasonInsufficientCredits, budgetErr.Reason)
	}

	// No cost incurred: balance untouched.
	bal, err := ledger.Balance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if bal.PlanRemaining != 2 {
		t.Errorf("Expected plan balance 2, got %d", bal.PlanRemaining)
	}
}

func TestReserveDailyLimitReason(t *testing.T) {
	ledger := NewMemoryLedger(5)
	ledger.Grant("user-1", 100)
	g := NewGovernor(ledger, 1.0, 2)

	if _, err := g.Reserve(context.Background(), "user-1", 5, "orchestrate"); err != nil {
		t.Fatalf("First reservation should be granted: %v", err)
	}

	_, err := g.Reserve(context.Background(), "user-1", 1, "orchestrate")
	var budgetErr *errors.BudgetError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("Expected BudgetError, got %v", err)
	}
	if budgetErr.Reason != errors.ReasonDailyLimit {
		t.Errorf("Expected reason %q, got %q", errors.ReasonDailyLimit, budgetErr.Reason)
	}
}

func TestDailyWindowResets(t *testing.T) {
	ledger := NewMemoryLedger(5)
	ledger.Grant("user-1", 100)

	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger.SetClock(func() time.Time { return day })

	if _, err := ledger.Debit(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if _, err := ledger.Debit(context.Background(), "user-1", 1); err == nil {
		t.Fatal("Expected daily limit denial")
	}

	ledger.SetClock(func() time.Time { return day.Add(24 * time.Hour) })
	if _, err := ledger.Debit(context.Background(), "user-1", 1); err != nil {
		t.Fatalf("Expected debit to succeed after window reset: %v", err)
	}
}

func TestRefundRestoresBalance(t *testing.T) {
	ledger := NewMemoryLedger(100)
	ledger.Grant("user-1", 10)
	g := NewGovernor(ledger, 1.0, 2)

	res, err := g.Reserve(context.Background(), "user-1", 4, "orchestrate")
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if err := g.Refund(context.Background(), res); err != nil {
		t.Fatalf("Refund error: %v", err)
	}

	bal, _ := ledger.Balance(context.Background(), "user-1")
	if bal.PlanRemaining != 10 {
		t.Errorf("Expected balance restored to 10, got %d", bal.PlanRemaining)
	}
	if bal.DailyUsed != 0 {
		t.Errorf("Expected daily usage restored to 0, got %d", bal.DailyUsed)
	}

	// Double refund is a no-op.
	if err := g.Refund(context.Background(), res); err != nil {
		t.Fatalf("Second refund error: %v", err)
	}
	bal, _ = ledger.Balance(context.Background(), "user-1")
	if bal.PlanRemaining != 10 {
		t.Errorf("Expected balance still 10, got %d", bal.PlanRemaining)
	}
}

func TestConcurrentReserveNoOverGrant(t *testing.T) {
	ledger := NewMemoryLedger(1000)
	ledger.Grant("user-1", 10)
	g := NewGovernor(ledger, 1.0, 2)

	const workers = 50
	const cost = 3 // budget 10 covers floor(10/3) = 3 grants

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := g.Reserve(context.Background(), "user-1", cost, "orchestrate")
			if err == nil && res.Granted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 3 {
		t.Errorf("Expected exactly 3 grants, got %d", granted)
	}

	bal, _ := ledger.Balance(context.Background(), "user-1")
	if bal.PlanRemaining != 1 {
		t.Errorf("Expected 1 credit remaining, got %d", bal.PlanRemaining)
	}
}

func TestDebitRespectsCancelledContext(t *testing.T) {
	ledger := NewMemoryLedger(100)
	ledger.Grant("user-1", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ledger.Debit(ctx, "user-1", 1); err == nil {
		t.Fatal("Expected error from cancelled context")
	}

	bal, _ := ledger.Balance(context.Background(), "user-1")
	if bal.PlanRemaining != 10 {
		t.Errorf("Expected no debit on cancelled context, got balance %d", bal.PlanRemaining)
	}
}
