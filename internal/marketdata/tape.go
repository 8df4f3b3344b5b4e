// Package marketdata aggregates book state and executions into the
// views broadcast to agents and external observers: the trade tape,
// L1/L2 snapshots (produced by the book itself) and OHLCV candles.
package marketdata

import (
	"github.com/shopspring/decimal"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Tape is the append-only, chronological record of executions per
// instrument.
type Tape struct {
	trades map[string][]*domain.Trade
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{trades: make(map[string][]*domain.Trade)}
}

// Append records a trade.
func (t *Tape) Append(tr *domain.Trade) {
	t.trades[tr.Instrument] = append(t.trades[tr.Instrument], tr)
}

// All returns a copy of the instrument's full tape in execution order.
func (t *Tape) All(instrument string) []*domain.Trade {
	src := t.trades[instrument]
	out := make([]*domain.Trade, len(src))
	copy(out, src)
	return out
}

// Since returns trades executed at or after the cutoff, visible to a
// reader whose market-data feed lags by the caller-applied delay.
func (t *Tape) Since(instrument string, cutoff, visibleBefore domain.Nanos) []*domain.Trade {
	var out []*domain.Trade
	for _, tr := range t.trades[instrument] {
		if tr.ExecutedAt >= cutoff && tr.ExecutedAt <= visibleBefore {
			out = append(out, tr)
		}
	}
	return out
}

// Last returns the most recent trade price, or false before any trade.
func (t *Tape) Last(instrument string) (int64, bool) {
	src := t.trades[instrument]
	if len(src) == 0 {
		return 0, false
	}
	return src[len(src)-1].Price, true
}

// VWAP returns the volume-weighted average price of trades executed at
// or after cutoff, or false when the window is empty.
func (t *Tape) VWAP(instrument string, cutoff domain.Nanos) (decimal.Decimal, bool) {
	var notional decimal.Decimal
	var volume int64
	for _, tr := range t.trades[instrument] {
		if tr.ExecutedAt < cutoff {
			continue
		}
		notional = notional.Add(decimal.NewFromInt(tr.Price).Mul(decimal.NewFromInt(tr.Quantity)))
		volume += tr.Quantity
	}
	if volume == 0 {
		return decimal.Zero, false
	}
	return notional.Div(decimal.NewFromInt(volume)), true
}
