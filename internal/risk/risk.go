// Package risk implements pre-trade admission control: tick/lot
// alignment, price collar, position limits, margin sufficiency and
// self-trade prevention. Rejections are terminal for the order and
// leave book and account state untouched.
package risk

import (
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/book"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/clearing"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// NoCollarHigh is the upper band when no collar is configured. It is a
// sentinel, never an input to price or margin arithmetic.
const NoCollarHigh = int64(1) << 62

// Engine gates order intents before they reach the matching engine.
type Engine struct {
	instruments     map[string]*domain.Instrument
	house           *clearing.House
	defaultCollarBP int64
}

// NewEngine creates a risk engine over the instrument universe and
// clearing house. defaultCollarBP applies to instruments that configure
// no collar of their own.
func NewEngine(instruments map[string]*domain.Instrument, house *clearing.House, defaultCollarBP int64) *Engine {
	return &Engine{
		instruments:     instruments,
		house:           house,
		defaultCollarBP: defaultCollarBP,
	}
}

// Check validates an order intent. On acceptance the worst-case margin
// for the order is provisionally reserved; clearing finalizes it on
// trade, and Release returns it on cancel or expiry.
func (r *Engine) Check(o *domain.Order, b *book.Book, lastPrice int64) error {
	ins, ok := r.instruments[o.Instrument]
	if !ok {
		return domain.ErrUnknownInstrument
	}
	acct, ok := r.house.Account(o.ParticipantID)
	if !ok {
		return domain.ErrUnknownParticipant
	}
	if o.Quantity <= 0 {
		return domain.ErrBadQuantity
	}
	if !ins.LotAligned(o.Quantity) {
		return domain.ErrBadLotSize
	}

	ref := lastPrice
	if ref <= 0 {
		ref = ins.ReferencePrice
	}
	low, high := r.collarBounds(ins, ref)

	if o.Type == domain.OrderTypeLimit {
		if !ins.TickAligned(o.Price) {
			return domain.ErrBadTickSize
		}
		if o.Price < low || o.Price > high {
			return domain.ErrPriceCollar
		}
	}

	if ins.PositionLimit > 0 {
		pos := r.house.Position(o.ParticipantID, o.Instrument).Qty
		worst := pos + o.Quantity
		if o.Side == domain.SideSell {
			worst = pos - o.Quantity
		}
		if abs64(worst) > ins.PositionLimit {
			return domain.ErrPositionLimit
		}
	}

	if b.WouldSelfCross(o.ParticipantID, o.Side, o.Price, o.Type == domain.OrderTypeMarket) {
		return domain.ErrSelfTrade
	}

	// Worst-case fill price: the limit price for limit orders, the high
	// collar bound for market orders (short exposure worsens with price).
	// With no collar the bound is a sentinel; fall back to twice the
	// reference so the margin math stays in range.
	worstPrice := o.Price
	if o.Type == domain.OrderTypeMarket {
		worstPrice = high
		if worstPrice >= NoCollarHigh {
			worstPrice = 2 * ref
		}
	}
	perUnit := worstPrice * ins.InitialMarginBP / 10_000
	if perUnit > 0 {
		if r.house.Available(o.ParticipantID) < perUnit*o.Quantity {
			return domain.ErrInsufficientMargin
		}
		acct.Reserve(o.OrderID, perUnit, o.Quantity)
	}
	return nil
}

// Release returns an order's remaining provisional margin, on cancel,
// expiry or cancellation of an unfilled remainder.
func (r *Engine) Release(participantID, orderID string) {
	if acct, ok := r.house.Account(participantID); ok {
		acct.ReleaseOrder(orderID)
	}
}

// Collar returns the admissible [low, high] price band for an
// instrument around the given reference price.
func (r *Engine) Collar(instrument string, ref int64) (int64, int64) {
	ins, ok := r.instruments[instrument]
	if !ok {
		return 1, NoCollarHigh
	}
	return r.collarBounds(ins, ref)
}

func (r *Engine) collarBounds(ins *domain.Instrument, ref int64) (int64, int64) {
	bp := ins.CollarBP
	if bp <= 0 {
		bp = r.defaultCollarBP
	}
	if bp <= 0 {
		// No collar configured anywhere: accept any positive price.
		return 1, NoCollarHigh
	}
	width := ref * bp / 10_000
	return ref - width, ref + width
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
