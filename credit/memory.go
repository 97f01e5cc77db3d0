package credit

import (
	"context"
	"sync"
	"time"

	"github.com/competeiq/tripartite/errors"
)

type account struct {
	planRemaining int
	dailyUsed     int
	dailyDate     string // yyyy-mm-dd of the current usage window
}

// MemoryLedger is an in-process Ledger. The single mutex makes the
// check-and-decrement atomic across concurrent requests; contention is per
// pipeline instance and negligible next to provider latency.
type MemoryLedger struct {
	mu         sync.Mutex
	accounts   map[string]*account
	dailyLimit int
	now        func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger with the given per-user
// daily credit limit.
func NewMemoryLedger(dailyLimit int) *MemoryLedger {
	return &MemoryLedger{
		accounts:   make(map[string]*account),
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// SetClock overrides the ledger clock; mainly useful for tests exercising the
// daily window reset.
func (l *MemoryLedger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Grant sets a user's plan balance.
func (l *MemoryLedger) Grant(userID string, credits int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.account(userID)
	acc.planRemaining = credits
}

// Debit implements Ledger with a conditional decrement under the ledger lock.
func (l *MemoryLedger) Debit(ctx context.Context, userID string, credits int) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(userID)
	l.rollWindow(acc)

	if acc.dailyUsed+credits > l.dailyLimit {
		return l.balance(acc), &errors.BudgetError{
			UserID:    userID,
			Reason:    errors.ReasonDailyLimit,
			Required:  credits,
			Remaining: l.dailyLimit - acc.dailyUsed,
		}
	}
	if acc.planRemaining < credits {
		return l.balance(acc), &errors.BudgetError{
			UserID:    userID,
			Reason:    errors.ReasonInsufficientCredits,
			Required:  credits,
			Remaining: acc.planRemaining,
		}
	}

	acc.planRemaining -= credits
	acc.dailyUsed += credits
	return l.balance(acc), nil
}

// Credit implements Ledger, returning previously debited credits.
func (l *MemoryLedger) Credit(ctx context.Context, userID string, credits int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(userID)
	l.rollWindow(acc)
	acc.planRemaining += credits
	if acc.dailyUsed >= credits {
		acc.dailyUsed -= credits
	} else {
		acc.dailyUsed = 0
	}
	return nil
}

// Balance implements Ledger.
func (l *MemoryLedger) Balance(ctx context.Context, userID string) (Balance, error) {
	if err := ctx.Err(); err != nil {
		return Balance{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc := l.account(userID)
	l.rollWindow(acc)
	return l.balance(acc), nil
}

// account must be called with l.mu held.
func (l *MemoryLedger) account(userID string) *account {
	acc, ok := l.accounts[userID]
	if !ok {
		acc = &account{dailyDate: l.today()}
		l.accounts[userID] = acc
	}
	return acc
}

// rollWindow resets daily usage when the calendar day changes. Must be called
// with l.mu held.
func (l *MemoryLedger) rollWindow(acc *account) {
	today := l.today()
	if acc.dailyDate != today {
		acc.dailyDate = today
		acc.dailyUsed = 0
	}
}

func (l *MemoryLedger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

func (l *MemoryLedger) balance(acc *account) Balance {
	return Balance{
		PlanRemaining: acc.planRemaining,
		DailyUsed:     acc.dailyUsed,
		DailyLimit:    l.dailyLimit,
	}
}
