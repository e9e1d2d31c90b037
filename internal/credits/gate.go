package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Gate is the pre-dispatch check. It never mutates a guest balance; the
// server deducts credits when the generation actually runs. Bring-your-own-
// key requests are not gated at all.
type Gate struct {
	demo     *DemoCounter
	balances BalanceReader
	cost     int
}

// NewGate builds a gate. Either collaborator may be nil, in which case the
// corresponding route is always refused.
func NewGate(demo *DemoCounter, balances BalanceReader, cost int) *Gate {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Gate{demo: demo, balances: balances, cost: cost}
}

// Cost returns the credits one generation costs.
func (g *Gate) Cost() int { return g.cost }

// Demo returns the demo counter the gate checks.
func (g *Gate) Demo() *DemoCounter { return g.demo }

// CheckDemo allows a demo generation while uses remain.
func (g *Gate) CheckDemo() error {
	if g.demo == nil || !g.demo.Available() {
		return ErrDemoExhausted
	}
	return nil
}

// CheckGuest reads the guest's balance and allows the request when it
// covers one generation. The balance read is returned for display.
func (g *Gate) CheckGuest(ctx context.Context, userID string) (int, error) {
	if g.balances == nil {
		return 0, errors.New("no credit balance source configured")
	}
	balance, err := g.balances.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read credit balance: %w", err)
	}
	if balance < g.cost {
		log.Debug().Str("user", userID).Int("balance", balance).Int("cost", g.cost).Msg("Guest balance too low")
		return balance, ErrInsufficient
	}
	return balance, nil
}
