// Package clearing settles trades into participant cash, positions and
// margin accounts. A trade that reaches clearing is already committed:
// settlement never rejects, and any inconsistency found here is a fatal
// invariant violation rather than a recoverable error.
package clearing

import (
	"sort"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// House owns all accounts and positions for a session.
type House struct {
	instruments map[string]*domain.Instrument
	accounts    map[string]*Account
	positions   map[string]map[string]*Position // participant → instrument
	marks       map[string]int64                // instrument → last trade price
}

// NewHouse creates a clearing house over the given instrument universe.
func NewHouse(instruments map[string]*domain.Instrument) *House {
	marks := make(map[string]int64, len(instruments))
	for id, ins := range instruments {
		marks[id] = ins.ReferencePrice
	}
	return &House{
		instruments: instruments,
		accounts:    make(map[string]*Account),
		positions:   make(map[string]map[string]*Position),
		marks:       marks,
	}
}

// AddParticipant registers a participant with starting cash.
func (h *House) AddParticipant(participantID string, cash int64) *Account {
	a := NewAccount(participantID, cash)
	h.accounts[participantID] = a
	h.positions[participantID] = make(map[string]*Position)
	return a
}

// Account returns a participant's margin account.
func (h *House) Account(participantID string) (*Account, bool) {
	a, ok := h.accounts[participantID]
	return a, ok
}

// Position returns (creating if needed) a participant's position in an
// instrument.
func (h *House) Position(participantID, instrument string) *Position {
	byIns, ok := h.positions[participantID]
	if !ok {
		byIns = make(map[string]*Position)
		h.positions[participantID] = byIns
	}
	p, ok := byIns[instrument]
	if !ok {
		p = &Position{Instrument: instrument}
		byIns[instrument] = p
	}
	return p
}

// Positions returns a participant's positions sorted by instrument.
func (h *House) Positions(participantID string) []*Position {
	byIns := h.positions[participantID]
	out := make([]*Position, 0, len(byIns))
	for _, p := range byIns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Mark returns the last settlement price for an instrument, falling back
// to the instrument's reference price before any trade.
func (h *House) Mark(instrument string) int64 {
	return h.marks[instrument]
}

// Settle applies one trade: moves cash by price×quantity, updates both
// signed positions with volume-weighted average cost, releases the risk
// engine's provisional margin and recomputes used margin at the new mark.
func (h *House) Settle(t *domain.Trade) error {
	if t.Quantity <= 0 {
		return domain.Invariantf("trade_quantity", "trade %s has quantity %d", t.TradeID, t.Quantity)
	}
	if t.Price <= 0 {
		return domain.Invariantf("trade_price", "trade %s has price %d", t.TradeID, t.Price)
	}
	ins, ok := h.instruments[t.Instrument]
	if !ok {
		return domain.Invariantf("trade_instrument", "trade %s references unknown instrument %q", t.TradeID, t.Instrument)
	}

	maker, ok := h.accounts[t.MakerID]
	if !ok {
		return domain.Invariantf("trade_party", "maker %q has no account", t.MakerID)
	}
	taker, ok := h.accounts[t.TakerID]
	if !ok {
		return domain.Invariantf("trade_party", "taker %q has no account", t.TakerID)
	}

	buyer, seller := maker, taker
	buyOrder, sellOrder := t.MakerOrderID, t.TakerOrderID
	if t.Aggressor == domain.SideBuy {
		buyer, seller = taker, maker
		buyOrder, sellOrder = t.TakerOrderID, t.MakerOrderID
	}

	notional := t.Price * t.Quantity
	buyer.Cash -= notional
	seller.Cash += notional

	h.Position(buyer.ParticipantID, t.Instrument).applyFill(domain.SideBuy, t.Price, t.Quantity)
	h.Position(seller.ParticipantID, t.Instrument).applyFill(domain.SideSell, t.Price, t.Quantity)

	buyer.ReleaseFill(buyOrder, t.Quantity)
	seller.ReleaseFill(sellOrder, t.Quantity)

	h.marks[t.Instrument] = t.Price
	h.remargin(buyer)
	h.remargin(seller)

	if ins.InitialMarginBP > 0 {
		if avail := h.Available(buyer.ParticipantID); avail < 0 {
			return domain.Invariantf("available_margin", "participant %q available margin %d after trade %s", buyer.ParticipantID, avail, t.TradeID)
		}
		if avail := h.Available(seller.ParticipantID); avail < 0 {
			return domain.Invariantf("available_margin", "participant %q available margin %d after trade %s", seller.ParticipantID, avail, t.TradeID)
		}
	}
	return nil
}

// Equity is cash plus the signed mark value of open positions. Buying
// converts cash into position value, so equity is unchanged by the cash
// leg of a trade and only moves with prices.
func (h *House) Equity(participantID string) int64 {
	a, ok := h.accounts[participantID]
	if !ok {
		return 0
	}
	equity := a.Cash
	for instrument, p := range h.positions[participantID] {
		equity += p.Qty * h.marks[instrument]
	}
	return equity
}

// Available returns the margin capacity left for new orders: equity
// minus margin reserved for open orders and held against positions.
func (h *House) Available(participantID string) int64 {
	a, ok := h.accounts[participantID]
	if !ok {
		return 0
	}
	return h.Equity(participantID) - a.Reserved - a.Used
}

// remargin recomputes used margin from open positions at current marks.
func (h *House) remargin(a *Account) {
	var used int64
	for instrument, p := range h.positions[a.ParticipantID] {
		if p.Qty == 0 {
			continue
		}
		ins, ok := h.instruments[instrument]
		if !ok {
			continue
		}
		used += abs64(p.Qty) * h.marks[instrument] * ins.InitialMarginBP / 10_000
	}
	a.Used = used
}
