package exchange

import (
	"log/slog"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/analytics"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/auction"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// checkTransitions advances the phase state machine at the start of a
// tick. Ticks 1..PreOpenTicks accumulate the opening auction; the
// opening uncross runs on the following tick, which is also the first
// continuous tick. The closing auction accumulates for ClosingTicks and
// uncrosses on the tick after its window ends.
func (x *Exchange) checkTransitions() error {
	preEnd := x.cfg.PreOpenTicks
	contEnd := preEnd + x.cfg.ContinuousTicks
	closeEnd := contEnd + x.cfg.ClosingTicks

	switch x.phase {
	case domain.PhasePreOpen:
		if x.tick > preEnd {
			x.transition(domain.PhaseOpeningAuction)
			if err := x.runAuctions(); err != nil {
				return err
			}
			x.transition(domain.PhaseContinuous)
			x.resetHaltWindow()
		}
	case domain.PhaseContinuous:
		if x.tick > contEnd {
			x.transition(domain.PhaseClosingAuction)
		} else if x.cfg.Halt.WindowTicks > 0 && x.tick-x.haltWindowStart >= x.cfg.Halt.WindowTicks {
			x.resetHaltWindow()
		}
	case domain.PhaseHalted:
		switch {
		case x.tick > contEnd:
			// The session outlives the halt; go straight to the close.
			x.transition(domain.PhaseClosingAuction)
		case x.tick >= x.haltUntil:
			x.transition(domain.PhaseContinuous)
			x.events.Append(analytics.Resumed{At: x.clock})
			x.resetHaltWindow()
		}
	case domain.PhaseClosingAuction:
		if x.tick > closeEnd {
			if err := x.runAuctions(); err != nil {
				return err
			}
			x.purgeDayOrders()
			x.transition(domain.PhaseClosed)
		}
	}
	return nil
}

func (x *Exchange) transition(to domain.Phase) {
	from := x.phase
	x.phase = to
	x.events.Append(analytics.PhaseChanged{From: from, To: to, At: x.clock})
	x.logger.Info("phase changed",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Int("tick", x.tick))
}

// runAuctions uncrosses every instrument's book at a single clearing
// price. Books may be crossed on entry; they must not be on exit.
func (x *Exchange) runAuctions() error {
	for _, id := range x.instrIDs {
		b := x.books[id]
		res, ok := auction.Uncross(b, x.lastPrice(id), x.ids, x.clock)
		if !ok {
			continue
		}
		if err := x.applyTrades(res.Trades); err != nil {
			return err
		}
		x.logger.Info("auction uncrossed",
			slog.String("instrument", id),
			slog.Int64("price", res.Price),
			slog.Int64("quantity", res.MatchedQty))
		if b.Crossed() {
			return domain.Invariantf("auction_uncross", "instrument %q still crossed after uncross", id)
		}
	}
	return nil
}

// checkCircuitBreaker halts continuous trading when the last price has
// moved beyond the configured band from the window reference.
func (x *Exchange) checkCircuitBreaker(instrument string) error {
	if x.phase != domain.PhaseContinuous || x.cfg.Halt.BandBP <= 0 {
		return nil
	}
	ref := x.haltRefs[instrument]
	if ref <= 0 {
		return nil
	}
	last := x.lastPrice(instrument)
	band := ref * x.cfg.Halt.BandBP / 10_000
	if last >= ref-band && last <= ref+band {
		return nil
	}
	x.haltUntil = x.tick + x.cfg.Halt.HaltTicks
	x.transition(domain.PhaseHalted)
	x.events.Append(analytics.Halted{
		Instrument: instrument,
		RefPrice:   ref,
		LastPrice:  last,
		At:         x.clock,
	})
	return nil
}

// resetHaltWindow re-anchors the circuit-breaker references at current
// prices.
func (x *Exchange) resetHaltWindow() {
	x.haltWindowStart = x.tick
	for _, id := range x.instrIDs {
		x.haltRefs[id] = x.lastPrice(id)
	}
}

// purgeDayOrders expires all remaining day orders at session close and
// returns their provisional margin.
func (x *Exchange) purgeDayOrders() {
	for _, id := range x.instrIDs {
		for _, o := range x.books[id].PurgeDay() {
			x.riskEng.Release(o.ParticipantID, o.OrderID)
			if owner, ok := x.owners[o.OrderID]; ok {
				x.members[owner].Agent.OnCancel(o.OrderID)
			}
			x.forgetOrder(o.OrderID)
			x.metrics.RecordCancel()
		}
	}
}
