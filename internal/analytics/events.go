// Package analytics collects session-level metrics and keeps the
// append-only event log the core emits to external observers.
package analytics

import (
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/marketdata"
)

// Event is the closed set of occurrences the core reports outward.
type Event interface {
	isEvent()
}

// OrderAccepted is emitted when an order passes the risk gate.
type OrderAccepted struct {
	OrderID       string
	Instrument    string
	ParticipantID string
	Side          domain.Side
	Price         int64
	Quantity      int64
	At            domain.Nanos
}

func (OrderAccepted) isEvent() {}

// OrderRejected is emitted when the risk gate or matching engine
// rejects an order. Reason is one of the domain sentinel error strings.
type OrderRejected struct {
	OrderID       string
	Instrument    string
	ParticipantID string
	Reason        string
	At            domain.Nanos
}

func (OrderRejected) isEvent() {}

// TradeExecuted is emitted for every match, continuous or auction.
type TradeExecuted struct {
	Trade *domain.Trade
}

func (TradeExecuted) isEvent() {}

// PhaseChanged is emitted on every market-phase transition.
type PhaseChanged struct {
	From domain.Phase
	To   domain.Phase
	At   domain.Nanos
}

func (PhaseChanged) isEvent() {}

// CandleClosed is emitted when a candle interval rolls over with data.
type CandleClosed struct {
	Candle *marketdata.Candle
}

func (CandleClosed) isEvent() {}

// Halted is emitted when the circuit breaker suspends continuous trading.
type Halted struct {
	Instrument string
	RefPrice   int64
	LastPrice  int64
	At         domain.Nanos
}

func (Halted) isEvent() {}

// Resumed is emitted when trading resumes after a halt.
type Resumed struct {
	At domain.Nanos
}

func (Resumed) isEvent() {}
