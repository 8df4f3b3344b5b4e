// Package engine implements continuous matching under price-time priority.
package engine

import (
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/book"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Matcher consumes order intents against a book and produces trades.
// Orders must pass the risk gate before reaching Apply.
type Matcher struct {
	ids *domain.IDSource
}

// NewMatcher creates a Matcher drawing trade IDs from ids.
func NewMatcher(ids *domain.IDSource) *Matcher {
	return &Matcher{ids: ids}
}

// Apply runs an accepted order through the match loop and rests, cancels
// or rejects the remainder according to order type and time-in-force.
//
// Every match executes at the resting order's price; price improvement
// goes to the aggressor. FOK orders either fill in full or leave book
// state untouched. Market orders never rest.
func (m *Matcher) Apply(o *domain.Order, b *book.Book, now domain.Nanos) ([]*domain.Trade, error) {
	if o.Quantity <= 0 {
		o.Status = domain.OrderStatusRejected
		return nil, domain.ErrBadQuantity
	}
	if o.DisplayQty <= 0 || o.DisplayQty > o.Quantity {
		o.DisplayQty = o.Quantity
	}
	o.Remaining = o.Quantity
	o.DisplayLeft = min64(o.DisplayQty, o.Remaining)
	o.Status = domain.OrderStatusPending
	o.SubmittedAt = now

	if o.TIF == domain.TIFFillOrKill {
		if m.fillableQty(o, b) < o.Quantity {
			o.Status = domain.OrderStatusRejected
			return nil, domain.ErrNotFillable
		}
	}

	var trades []*domain.Trade
	for o.Remaining > 0 {
		resting, ok := m.bestOpposite(o, b)
		if !ok {
			break
		}
		if !crosses(o, resting) {
			break
		}
		if resting.ParticipantID == o.ParticipantID {
			// Self-trade prevention: cancel the newer (incoming) order,
			// the resting order keeps its time priority.
			o.Status = domain.OrderStatusCancelled
			o.Remaining = 0
			return trades, nil
		}

		fill := min64(o.Remaining, resting.Remaining)
		price := resting.Price

		o.Remaining -= fill
		o.Filled += fill
		resting.Remaining -= fill
		resting.Filled += fill
		resting.DisplayLeft -= fill
		if resting.DisplayLeft < 0 {
			resting.DisplayLeft = 0
		}

		trades = append(trades, &domain.Trade{
			TradeID:      m.ids.Next(),
			Instrument:   o.Instrument,
			Price:        price,
			Quantity:     fill,
			Aggressor:    o.Side,
			MakerOrderID: resting.OrderID,
			TakerOrderID: o.OrderID,
			MakerID:      resting.ParticipantID,
			TakerID:      o.ParticipantID,
			ExecutedAt:   now,
		})

		if resting.Remaining == 0 {
			resting.Status = domain.OrderStatusFilled
			b.Remove(resting.OrderID)
		} else {
			resting.Status = domain.OrderStatusPartiallyFilled
			if resting.DisplayLeft == 0 {
				// Iceberg slice exhausted: replenish at the back of the level.
				b.RequeueDisplay(resting.OrderID)
			}
		}
	}

	switch {
	case o.Remaining == 0:
		o.Status = domain.OrderStatusFilled
	case o.Type == domain.OrderTypeMarket:
		// Market remainders are cancelled, never rested.
		o.Remaining = 0
		if len(trades) == 0 {
			o.Status = domain.OrderStatusRejected
			return nil, domain.ErrNoLiquidity
		}
		o.Status = domain.OrderStatusCancelled
	case o.TIF == domain.TIFImmediateOrCancel:
		o.Remaining = 0
		o.Status = domain.OrderStatusCancelled
	default:
		// GTC and Day rest; FOK never reaches here with a remainder.
		if len(trades) > 0 {
			o.Status = domain.OrderStatusPartiallyFilled
		}
		b.Insert(o)
	}
	return trades, nil
}

// fillableQty returns the opposite-side quantity (hidden included) that
// crosses the order's limit, for the FOK all-or-nothing precheck.
func (m *Matcher) fillableQty(o *domain.Order, b *book.Book) int64 {
	var total int64
	b.Walk(o.Side.Opposite(), func(r *domain.Order) bool {
		if !crosses(o, r) {
			return false
		}
		if r.ParticipantID == o.ParticipantID {
			return false
		}
		total += r.Remaining
		return total < o.Quantity
	})
	return total
}

func (m *Matcher) bestOpposite(o *domain.Order, b *book.Book) (*domain.Order, bool) {
	if o.Side == domain.SideBuy {
		return b.BestAsk()
	}
	return b.BestBid()
}

// crosses reports whether the incoming order's price reaches the resting
// order's price. Market orders cross any price.
func crosses(o, resting *domain.Order) bool {
	if o.Type == domain.OrderTypeMarket {
		return true
	}
	if o.Side == domain.SideBuy {
		return o.Price >= resting.Price
	}
	return o.Price <= resting.Price
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
