package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryLedger_StarterBalance(t *testing.T) {
	l := NewMemoryLedger(3)
	b, err := l.Balance(context.Background(), "u1")
	if err != nil || b != 3 {
		t.Errorf("expected starter balance 3, got %d (%v)", b, err)
	}
}

func TestMemoryLedger_ReserveRefund(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(2)

	if b, err := l.Reserve(ctx, "u1", 1); err != nil || b != 1 {
		t.Fatalf("expected 1 after reserve, got %d (%v)", b, err)
	}
	if b, err := l.Reserve(ctx, "u1", 2); !errors.Is(err, ErrInsufficient) || b != 1 {
		t.Errorf("expected ErrInsufficient leaving 1, got %d (%v)", b, err)
	}
	if b, _ := l.Refund(ctx, "u1", 1); b != 2 {
		t.Errorf("expected 2 after refund, got %d", b)
	}
	if b, _ := l.Grant(ctx, "u1", 10); b != 12 {
		t.Errorf("expected 12 after grant, got %d", b)
	}
	if _, err := l.Reserve(ctx, "u1", 0); err == nil {
		t.Error("expected error for zero reserve")
	}
}

func TestMemoryLedger_ConcurrentReservesNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Reserve(ctx, "u1", 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("expected exactly 10 successful reserves, got %d", ok)
	}
	if b, _ := l.Balance(ctx, "u1"); b != 0 {
		t.Errorf("expected balance 0, got %d", b)
	}
}

func TestDemoCounter(t *testing.T) {
	d := NewDemoCounter(DefaultDemoUses)
	for i := 0; i < DefaultDemoUses; i++ {
		if err := d.Consume(); err != nil {
			t.Fatalf("use %d: unexpected error %v", i, err)
		}
	}
	if d.Available() {
		t.Error("expected counter to be exhausted")
	}
	if err := d.Consume(); !errors.Is(err, ErrDemoExhausted) {
		t.Errorf("expected ErrDemoExhausted, got %v", err)
	}
	if NewDemoCounter(-4).Remaining() != 0 {
		t.Error("negative uses should clamp to 0")
	}
}

type stubBalances struct {
	balance int
	err     error
}

func (s stubBalances) Balance(context.Context, string) (int, error) { return s.balance, s.err }

func TestGate_CheckGuest(t *testing.T) {
	ctx := context.Background()

	g := NewGate(nil, stubBalances{balance: 1}, 0)
	if g.Cost() != DefaultCost {
		t.Errorf("expected default cost, got %d", g.Cost())
	}
	if b, err := g.CheckGuest(ctx, "u"); err != nil || b != 1 {
		t.Errorf("expected pass with balance 1, got %d (%v)", b, err)
	}

	g = NewGate(nil, stubBalances{balance: 0}, 1)
	if _, err := g.CheckGuest(ctx, "u"); !errors.Is(err, ErrInsufficient) {
		t.Errorf("expected ErrInsufficient, got %v", err)
	}

	boom := errors.New("dynamo down")
	g = NewGate(nil, stubBalances{err: boom}, 1)
	if _, err := g.CheckGuest(ctx, "u"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped read error, got %v", err)
	}

	if _, err := NewGate(nil, nil, 1).CheckGuest(ctx, "u"); err == nil {
		t.Error("expected error without a balance source")
	}
}

func TestGate_CheckDemo(t *testing.T) {
	d := NewDemoCounter(1)
	g := NewGate(d, nil, 1)
	if err := g.CheckDemo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = d.Consume()
	if err := g.CheckDemo(); !errors.Is(err, ErrDemoExhausted) {
		t.Errorf("expected ErrDemoExhausted, got %v", err)
	}
	if err := NewGate(nil, nil, 1).CheckDemo(); !errors.Is(err, ErrDemoExhausted) {
		t.Errorf("expected ErrDemoExhausted without counter, got %v", err)
	}
}
