// Package auction implements call-auction uncrossing: batch matching of
// all resting orders at the single price maximizing executable volume,
// used at the open and close of a session.
package auction

import (
	"sort"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/book"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Result is the outcome of an uncrossing.
type Result struct {
	Price      int64
	MatchedQty int64
	Trades     []*domain.Trade
}

// Uncross computes the clearing price and executes all crossing orders
// at it. The clearing price maximizes executable volume; ties are broken
// by minimum absolute imbalance, then proximity to ref, then the lower
// price. Both sides receive any price improvement over their limits.
// Unmatched remainders stay resting at their original price and priority.
//
// Returns false when no price crosses any volume.
func Uncross(b *book.Book, ref int64, ids *domain.IDSource, now domain.Nanos) (*Result, bool) {
	var bids, asks []*domain.Order
	b.Walk(domain.SideBuy, func(o *domain.Order) bool {
		bids = append(bids, o)
		return true
	})
	b.Walk(domain.SideSell, func(o *domain.Order) bool {
		asks = append(asks, o)
		return true
	})
	if len(bids) == 0 || len(asks) == 0 {
		return nil, false
	}

	price, qty, ok := clearingPrice(bids, asks, ref)
	if !ok {
		return nil, false
	}

	trades := execute(b, bids, asks, price, qty, ids, now)
	return &Result{Price: price, MatchedQty: qty, Trades: trades}, true
}

// clearingPrice evaluates every resting limit price as a candidate and
// picks the volume-maximizing one.
func clearingPrice(bids, asks []*domain.Order, ref int64) (int64, int64, bool) {
	seen := make(map[int64]bool)
	var candidates []int64
	for _, o := range append(append([]*domain.Order{}, bids...), asks...) {
		if !seen[o.Price] {
			seen[o.Price] = true
			candidates = append(candidates, o.Price)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	var (
		bestPrice     int64
		bestQty       int64
		bestImbalance int64
		found         bool
	)
	for _, p := range candidates {
		var bidVol, askVol int64
		for _, o := range bids {
			if o.Price >= p {
				bidVol += o.Remaining
			}
		}
		for _, o := range asks {
			if o.Price <= p {
				askVol += o.Remaining
			}
		}
		exec := min64(bidVol, askVol)
		if exec == 0 {
			continue
		}
		imbalance := abs64(bidVol - askVol)
		better := false
		switch {
		case !found || exec > bestQty:
			better = true
		case exec == bestQty && imbalance < bestImbalance:
			better = true
		case exec == bestQty && imbalance == bestImbalance &&
			abs64(p-ref) < abs64(bestPrice-ref):
			better = true
		}
		if better {
			bestPrice, bestQty, bestImbalance, found = p, exec, imbalance, true
		}
	}
	return bestPrice, bestQty, found
}

// execute pairs eligible bids and asks in price-time priority and fills
// them at the clearing price.
func execute(b *book.Book, bids, asks []*domain.Order, price, qty int64, ids *domain.IDSource, now domain.Nanos) []*domain.Trade {
	var trades []*domain.Trade
	bi, ai := 0, 0
	left := qty
	for left > 0 && bi < len(bids) && ai < len(asks) {
		bid, ask := bids[bi], asks[ai]
		if bid.Price < price {
			bi++
			continue
		}
		if ask.Price > price {
			ai++
			continue
		}
		fill := min64(min64(bid.Remaining, ask.Remaining), left)
		if fill <= 0 {
			break
		}

		bid.Remaining -= fill
		bid.Filled += fill
		ask.Remaining -= fill
		ask.Filled += fill
		left -= fill

		// The later arrival is recorded as the aggressor.
		maker, taker := bid, ask
		aggressor := domain.SideSell
		if bid.SubmittedAt > ask.SubmittedAt {
			maker, taker = ask, bid
			aggressor = domain.SideBuy
		}
		trades = append(trades, &domain.Trade{
			TradeID:      ids.Next(),
			Instrument:   b.Instrument(),
			Price:        price,
			Quantity:     fill,
			Aggressor:    aggressor,
			MakerOrderID: maker.OrderID,
			TakerOrderID: taker.OrderID,
			MakerID:      maker.ParticipantID,
			TakerID:      taker.ParticipantID,
			ExecutedAt:   now,
		})

		for _, o := range []*domain.Order{bid, ask} {
			if o.Remaining == 0 {
				o.Status = domain.OrderStatusFilled
				b.Remove(o.OrderID)
			} else {
				o.Status = domain.OrderStatusPartiallyFilled
				// Remainders keep priority; refresh the visible slice only.
				if o.DisplayLeft > o.Remaining || o.DisplayLeft == 0 {
					o.DisplayLeft = min64(o.DisplayQty, o.Remaining)
				}
			}
		}
		if bid.Remaining == 0 {
			bi++
		}
		if ask.Remaining == 0 {
			ai++
		}
	}
	return trades
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
