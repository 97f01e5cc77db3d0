// Package credit gates billable provider calls behind a per-user budget. The
// ledger is the only cross-request shared mutable state in the pipeline, so its
// check-and-decrement must be atomic: two concurrent requests from one user
// must never both pass a check their combined consumption would exceed.
package credit

import (
	"context"
	"log/slog"
	"math"

	"github.com/competeiq/tripartite/pkg/logging"
)

// Balance is a point-in-time view of a user's budget.
type Balance struct {
	PlanRemaining int
	DailyUsed     int
	DailyLimit    int
}

// Ledger is the transactional store behind the governor. Debit performs the
// atomic conditional decrement and returns *errors.BudgetError when denied.
type Ledger interface {
	Debit(ctx context.Context, userID string, credits int) (Balance, error)
	Credit(ctx context.Context, userID string, credits int) error
	Balance(ctx context.Context, userID string) (Balance, error)
}

// Reservation records a granted debit so it can be refunded if the paid
// attempt never happens (transport failure, cancellation).
type Reservation struct {
	UserID       string
	Credits      int
	FunctionName string
	Granted      bool
}

// Governor converts token estimates to credits and reserves them against the
// ledger before any provider call.
type Governor struct {
	ledger       Ledger
	ratio        float64 // credits per 1000 weighted tokens
	outputWeight int
	logger       *slog.Logger
}

// NewGovernor creates a credit governor. ratio is credits per 1000 weighted
// tokens; outputWeight multiplies output tokens (generation is costlier).
func NewGovernor(ledger Ledger, ratio float64, outputWeight int) *Governor {
	if ratio <= 0 {
		ratio = 1
	}
	if outputWeight <= 0 {
		outputWeight = 2
	}
	return &Governor{
		ledger:       ledger,
		ratio:        ratio,
		outputWeight: outputWeight,
		logger:       logging.WithComponent("credit_governor"),
	}
}

// EstimateCredits converts a token estimate to credits, rounding up so a
// request is never under-reserved.
func (g *Governor) EstimateCredits(inputTokens, outputTokens int) int {
	weighted := float64(inputTokens + g.outputWeight*outputTokens)
	credits := int(math.Ceil(weighted / 1000.0 * g.ratio))
	if credits < 1 {
		credits = 1
	}
	return credits
}

// Reserve atomically checks and decrements the user's budget. On denial it
// returns an ungranted reservation together with the *errors.BudgetError
// explaining whether the daily limit or the plan balance ran out.
func (g *Governor) Reserve(ctx context.Context, userID string, estimatedCredits int, functionName string) (*Reservation, error) {
	res := &Reservation{
		UserID:       userID,
		Credits:      estimatedCredits,
		FunctionName: functionName,
	}

	balance, err := g.ledger.Debit(ctx, userID, estimatedCredits)
	if err != nil {
		g.logger.Warn("credit reservation denied",
			"user_id", userID,
			"function", functionName,
			"credits", estimatedCredits,
			"error", err,
		)
		return res, err
	}

	res.Granted = true
	g.logger.Debug("credits reserved",
		"user_id", userID,
		"function", functionName,
		"credits", estimatedCredits,
		"plan_remaining", balance.PlanRemaining,
	)
	return res, nil
}

// Refund returns reserved credits to the ledger. Called when a reservation was
// granted but the paid attempt never completed. Safe to call with an ungranted
// reservation.
func (g *Governor) Refund(ctx context.Context, res *Reservation) error {
	if res == nil || !res.Granted {
		return nil
	}
	if err := g.ledger.Credit(ctx, res.UserID, res.Credits); err != nil {
		g.logger.Error("credit refund failed",
			"user_id", res.UserID,
			"credits", res.Credits,
			"error", err,
		)
		return err
	}
	res.Granted = false
	g.logger.Debug("credits refunded", "user_id", res.UserID, "credits", res.Credits)
	return nil
}
