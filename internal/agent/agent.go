// Package agent defines the pluggable trading-strategy interface and
// the per-tick view the exchange hands to every strategy. The exchange
// holds a heterogeneous slice of Agents and treats them identically
// through this interface; strategies stay pluggable.
package agent

import (
	"math/rand"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// View is the immutable snapshot an agent observes each tick. It is
// built fresh every tick and never shared for mutation; open orders are
// copies, not the book's live structs.
type View struct {
	Now         domain.Nanos
	Phase       domain.Phase
	Instruments []string // sorted, for deterministic iteration
	Quotes      map[string]domain.L1
	Depths      map[string]domain.L2
	Positions   map[string]int64
	Cash        int64
	Available   int64
	OpenOrders  []domain.Order
	Trades      []*domain.Trade // recent tape, delayed per the latency model
	Sentiment   float64
}

// ActionKind discriminates agent actions.
type ActionKind string

const (
	ActionSubmit ActionKind = "submit"
	ActionCancel ActionKind = "cancel"
)

// Action is one order instruction emitted by an agent. The exchange
// stamps the participant ID and routes it through latency and risk.
type Action struct {
	Kind          ActionKind
	Order         *domain.Order // submit only
	CancelOrderID string        // cancel only
}

// Submit wraps an order in a submit action.
func Submit(o *domain.Order) Action {
	return Action{Kind: ActionSubmit, Order: o}
}

// Cancel builds a cancel action for an open order.
func Cancel(orderID string) Action {
	return Action{Kind: ActionCancel, CancelOrderID: orderID}
}

// Agent is a trading strategy. OnTick must derive all randomness from
// the supplied generator so a session replays identically from a seed.
type Agent interface {
	// Name identifies the agent instance in the roster.
	Name() string
	// ParticipantType is the latency/participant class (e.g. "hft").
	ParticipantType() string
	// OnTick observes the view and returns the actions to take.
	OnTick(v *View, rng *rand.Rand) []Action
	// OnFill notifies the agent of one of its executions.
	OnFill(t *domain.Trade)
	// OnCancel notifies the agent that one of its orders was cancelled
	// or expired.
	OnCancel(orderID string)
}

// refPrice picks a working price for an instrument: last trade if any,
// else the midpoint, else whichever side of the book exists.
func refPrice(q domain.L1) (int64, bool) {
	if q.LastPrice > 0 {
		return q.LastPrice, true
	}
	if mid, ok := q.Mid(); ok {
		return mid, true
	}
	if q.HasBid {
		return q.BidPrice, true
	}
	if q.HasAsk {
		return q.AskPrice, true
	}
	return 0, false
}
