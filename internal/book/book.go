// Package book implements a per-instrument price-time-priority order book.
//
// Levels are kept in B-trees keyed by price (bids descending, asks
// ascending) and hold only order IDs in FIFO arrival order; the orders
// themselves live in a flat arena indexed by order ID. This keeps level
// iteration ordered and removal by ID cheap without pointer cycles
// between orders and levels.
package book

import (
	"sort"

	"github.com/google/btree"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// level is one price level: a price and the FIFO queue of resting order
// IDs at that price. A level never holds a zero-quantity order; empty
// levels are pruned immediately.
type level struct {
	price int64
	queue []string
}

func bidLess(a, b *level) bool { return a.price > b.price }
func askLess(a, b *level) bool { return a.price < b.price }

// Book holds the resting orders for a single instrument. Not safe for
// concurrent use: each book is exclusively owned by the matching and
// auction components for its instrument.
type Book struct {
	instrument string
	bids       *btree.BTreeG[*level]
	asks       *btree.BTreeG[*level]
	arena      map[string]*domain.Order
}

// New creates an empty book for the given instrument.
func New(instrument string) *Book {
	const degree = 16
	return &Book{
		instrument: instrument,
		bids:       btree.NewG[*level](degree, bidLess),
		asks:       btree.NewG[*level](degree, askLess),
		arena:      make(map[string]*domain.Order),
	}
}

// Instrument returns the instrument this book belongs to.
func (b *Book) Instrument() string { return b.instrument }

func (b *Book) tree(side domain.Side) *btree.BTreeG[*level] {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// Insert rests an order at the back of its price level. The order must
// have positive remaining quantity.
func (b *Book) Insert(o *domain.Order) {
	tree := b.tree(o.Side)
	lv, ok := tree.Get(&level{price: o.Price})
	if !ok {
		lv = &level{price: o.Price}
		tree.ReplaceOrInsert(lv)
	}
	lv.queue = append(lv.queue, o.OrderID)
	b.arena[o.OrderID] = o
}

// Get returns the resting order with the given ID.
func (b *Book) Get(orderID string) (*domain.Order, bool) {
	o, ok := b.arena[orderID]
	return o, ok
}

// Remove deletes an order from the book and prunes its level if empty.
// It returns the removed order, or false if the ID is not resting.
func (b *Book) Remove(orderID string) (*domain.Order, bool) {
	o, ok := b.arena[orderID]
	if !ok {
		return nil, false
	}
	delete(b.arena, orderID)

	tree := b.tree(o.Side)
	lv, ok := tree.Get(&level{price: o.Price})
	if !ok {
		return o, true
	}
	for i, id := range lv.queue {
		if id == orderID {
			lv.queue = append(lv.queue[:i], lv.queue[i+1:]...)
			break
		}
	}
	if len(lv.queue) == 0 {
		tree.Delete(lv)
	}
	return o, true
}

// Cancel removes an order and marks it cancelled.
func (b *Book) Cancel(orderID string) (*domain.Order, error) {
	o, ok := b.Remove(orderID)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Status = domain.OrderStatusCancelled
	return o, nil
}

// Modify changes an order's price and/or quantity. A pure quantity
// reduction at the same price keeps time priority; any price change or
// quantity increase re-queues the order at the back of its new level.
func (b *Book) Modify(orderID string, newPrice, newQty int64) (*domain.Order, error) {
	o, ok := b.arena[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if newQty <= 0 {
		return nil, domain.ErrBadQuantity
	}

	if newPrice == o.Price && newQty < o.Quantity {
		// Reduction in place: shrink remaining by the removed amount.
		delta := o.Quantity - newQty
		o.Quantity = newQty
		o.Remaining -= delta
		if o.Remaining <= 0 {
			b.Remove(orderID)
			o.Remaining = 0
			o.Status = domain.OrderStatusFilled
			return o, nil
		}
		if o.DisplayLeft > o.Remaining {
			o.DisplayLeft = o.Remaining
		}
		return o, nil
	}

	// Loses time priority: re-queue at the back of the new level.
	b.Remove(orderID)
	delta := newQty - o.Quantity
	o.Price = newPrice
	o.Quantity = newQty
	o.Remaining += delta
	if o.Remaining <= 0 {
		o.Remaining = 0
		o.Status = domain.OrderStatusFilled
		return o, nil
	}
	o.DisplayLeft = min64(o.DisplayQty, o.Remaining)
	b.Insert(o)
	return o, nil
}

// RequeueDisplay replenishes an iceberg order's visible slice and moves
// it to the back of its price level, losing time priority there.
func (b *Book) RequeueDisplay(orderID string) {
	o, ok := b.arena[orderID]
	if !ok {
		return
	}
	tree := b.tree(o.Side)
	lv, ok := tree.Get(&level{price: o.Price})
	if !ok {
		return
	}
	for i, id := range lv.queue {
		if id == orderID {
			lv.queue = append(lv.queue[:i], lv.queue[i+1:]...)
			break
		}
	}
	lv.queue = append(lv.queue, orderID)
	o.DisplayLeft = min64(o.DisplayQty, o.Remaining)
}

// BestBid returns the highest-priority resting bid.
func (b *Book) BestBid() (*domain.Order, bool) { return b.best(b.bids) }

// BestAsk returns the highest-priority resting ask.
func (b *Book) BestAsk() (*domain.Order, bool) { return b.best(b.asks) }

func (b *Book) best(tree *btree.BTreeG[*level]) (*domain.Order, bool) {
	lv, ok := tree.Min()
	if !ok || len(lv.queue) == 0 {
		return nil, false
	}
	return b.arena[lv.queue[0]], true
}

// Walk iterates resting orders on one side in price-time priority order.
// The callback returns false to stop.
func (b *Book) Walk(side domain.Side, fn func(o *domain.Order) bool) {
	b.tree(side).Ascend(func(lv *level) bool {
		// Copy the queue: fn may remove orders from the level.
		ids := make([]string, len(lv.queue))
		copy(ids, lv.queue)
		for _, id := range ids {
			o, ok := b.arena[id]
			if !ok {
				continue
			}
			if !fn(o) {
				return false
			}
		}
		return true
	})
}

// Crossed reports whether the best bid meets or exceeds the best ask.
// Outside auction uncrossing this is an invariant violation.
func (b *Book) Crossed() bool {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	return okB && okA && bid.Price >= ask.Price
}

// BestQuote returns an L1 snapshot built from displayed quantities only.
func (b *Book) BestQuote(last int64, at domain.Nanos) domain.L1 {
	q := domain.L1{Instrument: b.instrument, LastPrice: last, At: at}
	if lv, ok := b.bids.Min(); ok {
		q.HasBid = true
		q.BidPrice = lv.price
		q.BidQty = b.displayedAt(lv)
	}
	if lv, ok := b.asks.Min(); ok {
		q.HasAsk = true
		q.AskPrice = lv.price
		q.AskQty = b.displayedAt(lv)
	}
	return q
}

// Depth returns up to n aggregated displayed levels per side.
func (b *Book) Depth(n int, at domain.Nanos) domain.L2 {
	return domain.L2{
		Instrument: b.instrument,
		Bids:       b.topLevels(b.bids, n),
		Asks:       b.topLevels(b.asks, n),
		At:         at,
	}
}

func (b *Book) topLevels(tree *btree.BTreeG[*level], n int) []domain.PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]domain.PriceLevel, 0, n)
	tree.Ascend(func(lv *level) bool {
		if len(levels) >= n {
			return false
		}
		levels = append(levels, domain.PriceLevel{
			Price:    lv.price,
			Quantity: b.displayedAt(lv),
			Orders:   len(lv.queue),
		})
		return true
	})
	return levels
}

func (b *Book) displayedAt(lv *level) int64 {
	var total int64
	for _, id := range lv.queue {
		if o, ok := b.arena[id]; ok {
			total += o.DisplayLeft
		}
	}
	return total
}

// OrdersOf returns the participant's resting orders, both sides, in
// price-time priority order per side (bids first).
func (b *Book) OrdersOf(participantID string) []*domain.Order {
	var out []*domain.Order
	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		b.Walk(side, func(o *domain.Order) bool {
			if o.ParticipantID == participantID {
				out = append(out, o)
			}
			return true
		})
	}
	return out
}

// WouldSelfCross reports whether an incoming order would immediately
// trade against one of the same participant's own resting orders.
func (b *Book) WouldSelfCross(participantID string, side domain.Side, price int64, market bool) bool {
	found := false
	b.Walk(side.Opposite(), func(o *domain.Order) bool {
		if !market {
			if side == domain.SideBuy && o.Price > price {
				return false
			}
			if side == domain.SideSell && o.Price < price {
				return false
			}
		}
		if o.ParticipantID == participantID {
			found = true
			return false
		}
		return true
	})
	return found
}

// PurgeDay removes all remaining day orders and marks them expired.
func (b *Book) PurgeDay() []*domain.Order {
	var ids []string
	for id, o := range b.arena {
		if o.TIF == domain.TIFDay {
			ids = append(ids, id)
		}
	}
	// Map iteration order is random; sort for a reproducible purge order.
	sort.Strings(ids)
	purged := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := b.Remove(id); ok {
			o.Status = domain.OrderStatusExpired
			purged = append(purged, o)
		}
	}
	return purged
}

// Len returns the number of resting orders on both sides.
func (b *Book) Len() int { return len(b.arena) }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
