package clearing

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Property: settlement conserves cash and inventory. After any trade
// sequence the participants' cash sums to the initial total and signed
// positions per instrument sum to zero.
func TestProperty_SettlementConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		instruments := map[string]*domain.Instrument{
			"TEST": {ID: "TEST", TickSize: 1, LotSize: 1, ReferencePrice: 100},
		}
		h := NewHouse(instruments)
		parts := []string{"p0", "p1", "p2", "p3"}
		const startCash = int64(1_000_000)
		for _, p := range parts {
			h.AddParticipant(p, startCash)
		}

		n := rapid.IntRange(1, 50).Draw(t, "n")
		for i := 0; i < n; i++ {
			maker := rapid.IntRange(0, len(parts)-1).Draw(t, fmt.Sprintf("maker%d", i))
			taker := rapid.IntRange(0, len(parts)-1).Draw(t, fmt.Sprintf("taker%d", i))
			if taker == maker {
				taker = (taker + 1) % len(parts)
			}
			aggressor := domain.SideBuy
			if rapid.Bool().Draw(t, fmt.Sprintf("sell%d", i)) {
				aggressor = domain.SideSell
			}
			tr := &domain.Trade{
				TradeID:    fmt.Sprintf("t%d", i),
				Instrument: "TEST",
				Price:      rapid.Int64Range(50, 150).Draw(t, fmt.Sprintf("price%d", i)),
				Quantity:   rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("qty%d", i)),
				Aggressor:  aggressor,
				MakerID:    parts[maker],
				TakerID:    parts[taker],
			}
			if err := h.Settle(tr); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		var totalCash, totalQty int64
		for _, p := range parts {
			a, _ := h.Account(p)
			totalCash += a.Cash
			totalQty += h.Position(p, "TEST").Qty
		}
		if totalCash != startCash*int64(len(parts)) {
			t.Fatalf("cash not conserved: %d", totalCash)
		}
		if totalQty != 0 {
			t.Fatalf("positions do not sum to zero: %d", totalQty)
		}
	})
}
