package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for order rejections. A rejection never alters book or
// account state; the submitting agent may resubmit.
var (
	ErrUnknownInstrument  = errors.New("unknown_instrument")
	ErrBadTickSize        = errors.New("price_not_tick_aligned")
	ErrBadLotSize         = errors.New("quantity_not_lot_aligned")
	ErrBadQuantity        = errors.New("quantity_not_positive")
	ErrInsufficientMargin = errors.New("insufficient_margin")
	ErrPositionLimit      = errors.New("position_limit_exceeded")
	ErrSelfTrade          = errors.New("self_trade_prevented")
	ErrPriceCollar        = errors.New("price_outside_collar")
	ErrNotFillable        = errors.New("fok_not_fillable")
	ErrNoLiquidity        = errors.New("no_liquidity")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrMarketClosed       = errors.New("market_closed")
	ErrUnknownParticipant = errors.New("unknown_participant")
)

// ValidationError represents a configuration failure detected at session
// construction, before the clock starts.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvariantError is a fatal internal inconsistency. The session must stop
// and surface diagnostic state; continuing would corrupt reproducibility.
type InvariantError struct {
	Check  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.Check, e.Detail)
}

// Invariantf builds an InvariantError with a formatted detail message.
func Invariantf(check, format string, args ...any) *InvariantError {
	return &InvariantError{Check: check, Detail: fmt.Sprintf(format, args...)}
}
