package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Property: price compatibility determines matching. A bid trades
// against a resting ask exactly when its limit reaches the ask price.
func TestProperty_PriceCompatibilityDeterminesMatching(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bidPrice := rapid.Int64Range(1, 10_000).Draw(t, "bidPrice")
		askPrice := rapid.Int64Range(1, 10_000).Draw(t, "askPrice")
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")

		m, b := newTestMatcher()
		if _, err := m.Apply(newLimit("ask", "seller", domain.SideSell, askPrice, qty), b, 0); err != nil {
			t.Fatalf("failed to place ask: %v", err)
		}
		trades, err := m.Apply(newLimit("bid", "buyer", domain.SideBuy, bidPrice, qty), b, 0)
		if err != nil {
			t.Fatalf("failed to place bid: %v", err)
		}

		shouldMatch := bidPrice >= askPrice
		if shouldMatch && len(trades) == 0 {
			t.Fatalf("expected trade when bid=%d >= ask=%d", bidPrice, askPrice)
		}
		if !shouldMatch && len(trades) != 0 {
			t.Fatalf("expected no trade when bid=%d < ask=%d", bidPrice, askPrice)
		}
		if shouldMatch && trades[0].Price != askPrice {
			t.Fatalf("expected execution at resting price %d, got %d", askPrice, trades[0].Price)
		}
	})
}

// Property: after any sequence of limit submissions the book is never
// crossed, and each taker's filled quantity equals the sum of its trade
// quantities.
func TestProperty_ContinuousMatchingNeverLeavesCrossedBook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, b := newTestMatcher()
		n := rapid.IntRange(1, 60).Draw(t, "n")

		for i := 0; i < n; i++ {
			side := domain.SideBuy
			if rapid.Bool().Draw(t, fmt.Sprintf("sell%d", i)) {
				side = domain.SideSell
			}
			id := fmt.Sprintf("o%d", i)
			participant := fmt.Sprintf("p%d", i) // distinct, so no self-trade path
			price := rapid.Int64Range(90, 110).Draw(t, fmt.Sprintf("price%d", i))
			qty := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("qty%d", i))

			o := newLimit(id, participant, side, price, qty)
			trades, err := m.Apply(o, b, domain.Nanos(i))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Crossed() {
				t.Fatalf("book crossed after order %d", i)
			}
			var taken int64
			for _, tr := range trades {
				if tr.Quantity <= 0 {
					t.Fatalf("non-positive trade quantity %d", tr.Quantity)
				}
				if tr.TakerOrderID != id {
					t.Fatalf("trade taker %s, want %s", tr.TakerOrderID, id)
				}
				taken += tr.Quantity
			}
			if taken != o.Filled {
				t.Fatalf("order %s: trades sum to %d, filled %d", id, taken, o.Filled)
			}
		}
	})
}

// Property: a fill-or-kill order that cannot fill in full leaves every
// resting order exactly as it was.
func TestProperty_FOKAtomicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, b := newTestMatcher()
		n := rapid.IntRange(0, 10).Draw(t, "n")
		var available int64
		for i := 0; i < n; i++ {
			qty := rapid.Int64Range(1, 20).Draw(t, fmt.Sprintf("qty%d", i))
			price := rapid.Int64Range(95, 105).Draw(t, fmt.Sprintf("price%d", i))
			if _, err := m.Apply(newLimit(fmt.Sprintf("a%d", i), "seller", domain.SideSell, price, qty), b, 0); err != nil {
				t.Fatalf("failed to place ask: %v", err)
			}
			available += qty
		}

		before := make(map[string]int64, b.Len())
		b.Walk(domain.SideSell, func(o *domain.Order) bool {
			before[o.OrderID] = o.Remaining
			return true
		})

		// Demand more than the whole book holds at any price.
		o := newLimit("fok", "buyer", domain.SideBuy, 200, available+1)
		o.TIF = domain.TIFFillOrKill
		trades, err := m.Apply(o, b, 0)
		if err != domain.ErrNotFillable {
			t.Fatalf("expected ErrNotFillable, got %v", err)
		}
		if len(trades) != 0 {
			t.Fatalf("expected no trades, got %d", len(trades))
		}

		after := make(map[string]int64, b.Len())
		b.Walk(domain.SideSell, func(ro *domain.Order) bool {
			after[ro.OrderID] = ro.Remaining
			return true
		})
		if len(before) != len(after) {
			t.Fatalf("resting order count changed: %d to %d", len(before), len(after))
		}
		for id, rem := range before {
			if after[id] != rem {
				t.Fatalf("order %s remaining changed: %d to %d", id, rem, after[id])
			}
		}
	})
}
