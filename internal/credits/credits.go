// Package credits decides whether a generation may be dispatched and keeps
// the balances that decision reads.
//
// The authoritative balance for signed-in guests lives in the credit store
// (see store.DynamoStore); clients only read it. The demo counter is the one
// balance mutated locally.
package credits

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultCost is the number of credits one generation costs.
const DefaultCost = 1

var (
	// ErrInsufficient is returned when a guest balance cannot cover a
	// generation.
	ErrInsufficient = errors.New("insufficient credits")
	// ErrDemoExhausted is returned when the free demo uses are spent.
	ErrDemoExhausted = errors.New("demo uses exhausted")
)

// BalanceReader reports a user's current balance.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// Ledger is a credit store with atomic reservations. Reserve must never let
// a balance go negative, even under concurrent calls.
type Ledger interface {
	BalanceReader
	// Reserve deducts amount and returns the new balance, or
	// ErrInsufficient leaving the balance unchanged.
	Reserve(ctx context.Context, userID string, amount int) (int, error)
	// Refund returns amount to the balance, e.g. after a failed generation.
	Refund(ctx context.Context, userID string, amount int) (int, error)
	// Grant adds purchased or starter credits.
	Grant(ctx context.Context, userID string, amount int) (int, error)
}

// MemoryLedger is an in-process Ledger for local runs and tests. Unknown
// users start with the starter balance.
type MemoryLedger struct {
	mu       sync.Mutex
	starter  int
	balances map[string]int
}

// NewMemoryLedger returns a ledger where new users begin with starter credits.
func NewMemoryLedger(starter int) *MemoryLedger {
	return &MemoryLedger{starter: starter, balances: make(map[string]int)}
}

func (l *MemoryLedger) balanceLocked(userID string) int {
	b, ok := l.balances[userID]
	if !ok {
		b = l.starter
		l.balances[userID] = b
	}
	return b
}

// Balance implements BalanceReader.
func (l *MemoryLedger) Balance(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID), nil
}

// Reserve implements Ledger.
func (l *MemoryLedger) Reserve(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invalid reserve amount %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balanceLocked(userID)
	if b < amount {
		return b, ErrInsufficient
	}
	l.balances[userID] = b - amount
	return b - amount, nil
}

// Refund implements Ledger.
func (l *MemoryLedger) Refund(ctx context.Context, userID string, amount int) (int, error) {
	return l.Grant(ctx, userID, amount)
}

// Grant implements Ledger.
func (l *MemoryLedger) Grant(_ context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invalid grant amount %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balanceLocked(userID) + amount
	l.balances[userID] = b
	return b, nil
}

// DemoCounter tracks the free uses of the server-configured demo key. It is
// safe for concurrent use.
type DemoCounter struct {
	mu        sync.Mutex
	remaining int
}

// DefaultDemoUses is the number of free demo generations.
const DefaultDemoUses = 3

// NewDemoCounter returns a counter with uses remaining.
func NewDemoCounter(uses int) *DemoCounter {
	return &DemoCounter{remaining: max(uses, 0)}
}

// Remaining returns the uses left.
func (d *DemoCounter) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

// Available reports whether at least one use is left.
func (d *DemoCounter) Available() bool { return d.Remaining() > 0 }

// Consume spends one use. It is called only after a successful generation.
func (d *DemoCounter) Consume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.remaining <= 0 {
		return ErrDemoExhausted
	}
	d.remaining--
	return nil
}
