// Package redis provides a Redis-backed credit ledger. The conditional
// check-and-decrement runs as a single Lua script so concurrent requests
// across processes cannot both be granted the same remaining budget.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/competeiq/tripartite/credit"
	"github.com/competeiq/tripartite/errors"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr       string // Redis server address (e.g., "localhost:6379")
	Password   string // Redis password (if any)
	DB         int    // Redis database number
	Prefix     string // Key prefix for namespacing
	DailyLimit int    // Per-user daily credit limit
}

// DefaultConfig returns the default Redis ledger configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:       "localhost:6379",
		Prefix:     "tripartite:credits:",
		DailyLimit: 200,
	}
}

// Ledger implements credit.Ledger on Redis.
type Ledger struct {
	client     *redis.Client
	prefix     string
	dailyLimit int
}

// Denial codes returned by the debit script.
const (
	debitDailyLimit   = 0
	debitInsufficient = 1
	debitGranted      = 2
)

// debitScript performs the conditional decrement atomically.
// KEYS[1] = plan balance key, KEYS[2] = daily usage key.
// ARGV[1] = credits to debit, ARGV[2] = daily limit, ARGV[3] = daily key TTL.
var debitScript = redis.NewScript(`
local plan = tonumber(redis.call('GET', KEYS[1]) or '0')
local daily = tonumber(redis.call('GET', KEYS[2]) or '0')
local cost = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if daily + cost > limit then
  return {0, plan, daily}
end
if plan < cost then
  return {1, plan, daily}
end
local newplan = redis.call('DECRBY', KEYS[1], cost)
local newdaily = redis.call('INCRBY', KEYS[2], cost)
if tonumber(redis.call('TTL', KEYS[2])) < 0 then
  redis.call('EXPIRE', KEYS[2], tonumber(ARGV[3]))
end
return {2, newplan, newdaily}
`)

// New creates a Redis-backed ledger.
func New(config *Config) *Ledger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Prefix == "" {
		config.Prefix = "tripartite:credits:"
	}
	if config.DailyLimit <= 0 {
		config.DailyLimit = 200
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &Ledger{
		client:     client,
		prefix:     config.Prefix,
		dailyLimit: config.DailyLimit,
	}
}

// NewWithClient wraps an existing client; useful for tests with miniredis.
func NewWithClient(client *redis.Client, prefix string, dailyLimit int) *Ledger {
	return &Ledger{client: client, prefix: prefix, dailyLimit: dailyLimit}
}

// Grant sets a user's plan balance.
func (l *Ledger) Grant(ctx context.Context, userID string, credits int) error {
	return l.client.Set(ctx, l.planKey(userID), credits, 0).Err()
}

// Debit implements credit.Ledger via the Lua conditional-decrement script.
func (l *Ledger) Debit(ctx context.Context, userID string, credits int) (credit.Balance, error) {
	res, err := debitScript.Run(ctx, l.client,
		[]string{l.planKey(userID), l.dailyKey(userID)},
		credits, l.dailyLimit, int((24 * time.Hour).Seconds()),
	).Int64Slice()
	if err != nil {
		return credit.Balance{}, fmt.Errorf("redis debit failed: %w", err)
	}
	if len(res) != 3 {
		return credit.Balance{}, fmt.Errorf("redis debit returned unexpected reply: %v", res)
	}

	balance := credit.Balance{
		PlanRemaining: int(res[1]),
		DailyUsed:     int(res[2]),
		DailyLimit:    l.dailyLimit,
	}

	switch res[0] {
	case debitGranted:
		return balance, nil
	case debitDailyLimit:
		return balance, &errors.BudgetError{
			UserID:    userID,
			Reason:    errors.ReasonDailyLimit,
			Required:  credits,
			Remaining: l.dailyLimit - balance.DailyUsed,
		}
	default:
		return balance, &errors.BudgetError{
			UserID:    userID,
			Reason:    errors.ReasonInsufficientCredits,
			Required:  credits,
			Remaining: balance.PlanRemaining,
		}
	}
}

// Credit implements credit.Ledger, returning previously debited credits.
func (l *Ledger) Credit(ctx context.Context, userID string, credits int) error {
	pipe := l.client.TxPipeline()
	pipe.IncrBy(ctx, l.planKey(userID), int64(credits))
	pipe.DecrBy(ctx, l.dailyKey(userID), int64(credits))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis credit failed: %w", err)
	}
	return nil
}

// Balance implements credit.Ledger.
func (l *Ledger) Balance(ctx context.Context, userID string) (credit.Balance, error) {
	plan, err := l.client.Get(ctx, l.planKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return credit.Balance{}, fmt.Errorf("redis balance read failed: %w", err)
	}
	daily, err := l.client.Get(ctx, l.dailyKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return credit.Balance{}, fmt.Errorf("redis daily usage read failed: %w", err)
	}
	return credit.Balance{
		PlanRemaining: plan,
		DailyUsed:     daily,
		DailyLimit:    l.dailyLimit,
	}, nil
}

// Close releases the underlying client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

func (l *Ledger) planKey(userID string) string {
	return l.prefix + "plan:" + userID
}

func (l *Ledger) dailyKey(userID string) string {
	return l.prefix + "daily:" + userID + ":" + time.Now().UTC().Format("2006-01-02")
}
