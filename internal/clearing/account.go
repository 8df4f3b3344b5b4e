package clearing

// reservation is margin provisionally held for one open order.
type reservation struct {
	perUnit int64 // margin per lot, in ticks
	qty     int64 // unfilled quantity still covered
}

// Account is a participant's margin account: cash balance, margin held
// against open positions, and margin reserved for open orders. Mutated
// by the risk engine (reservations) and by clearing (settlement).
type Account struct {
	ParticipantID string
	Cash          int64 // may go negative: open positions are financed
	Reserved      int64 // provisional margin on open orders
	Used          int64 // margin held against open positions

	reservations map[string]*reservation // order_id → reservation
}

// NewAccount creates an account funded with the given cash balance.
func NewAccount(participantID string, cash int64) *Account {
	return &Account{
		ParticipantID: participantID,
		Cash:          cash,
		reservations:  make(map[string]*reservation),
	}
}

// Reserve provisionally holds perUnit×qty margin for an order.
func (a *Account) Reserve(orderID string, perUnit, qty int64) {
	a.reservations[orderID] = &reservation{perUnit: perUnit, qty: qty}
	a.Reserved += perUnit * qty
}

// ReleaseFill releases the reserved margin covering qty units of an
// order that just traded. Unknown orders are a no-op: market orders and
// auction fills may settle without a standing reservation.
func (a *Account) ReleaseFill(orderID string, qty int64) {
	r, ok := a.reservations[orderID]
	if !ok {
		return
	}
	if qty > r.qty {
		qty = r.qty
	}
	r.qty -= qty
	a.Reserved -= r.perUnit * qty
	if r.qty == 0 {
		delete(a.reservations, orderID)
	}
}

// ReleaseOrder releases whatever remains reserved for an order, on
// cancel, expiry or rejection of the unfilled remainder.
func (a *Account) ReleaseOrder(orderID string) {
	r, ok := a.reservations[orderID]
	if !ok {
		return
	}
	a.Reserved -= r.perUnit * r.qty
	delete(a.reservations, orderID)
}
