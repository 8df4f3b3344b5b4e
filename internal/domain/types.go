package domain

// Nanos is a point in simulated time, in nanoseconds since session start.
type Nanos int64

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// TimeInForce is the lifetime policy of an order.
type TimeInForce string

const (
	TIFGoodTillCancel    TimeInForce = "gtc"
	TIFImmediateOrCancel TimeInForce = "ioc"
	TIFFillOrKill        TimeInForce = "fok"
	TIFDay               TimeInForce = "day"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

// Phase is the market session phase. One active value per session,
// owned by the exchange orchestrator.
type Phase string

const (
	PhasePreOpen        Phase = "pre_open"
	PhaseOpeningAuction Phase = "opening_auction"
	PhaseContinuous     Phase = "continuous"
	PhaseClosingAuction Phase = "closing_auction"
	PhaseHalted         Phase = "halted"
	PhaseClosed         Phase = "closed"
)

// Order represents a buy or sell instruction submitted by a participant.
// Prices are in ticks, quantities in lots (int64, never floats).
// Once accepted the order is owned by the book; only the matching engine
// decrements its quantities.
type Order struct {
	OrderID       string
	Instrument    string
	ParticipantID string
	Side          Side
	Type          OrderType
	TIF           TimeInForce
	Price         int64 // 0 for market orders
	Quantity      int64 // total, including hidden iceberg size
	DisplayQty    int64 // visible slice size; == Quantity for plain orders
	Remaining     int64
	DisplayLeft   int64 // remaining quantity of the current visible slice
	Filled        int64
	Status        OrderStatus
	SubmittedAt   Nanos
}

// Hidden returns the non-displayed remainder of an iceberg order.
func (o *Order) Hidden() int64 {
	h := o.Remaining - o.DisplayLeft
	if h < 0 {
		return 0
	}
	return h
}

// Terminal reports whether the order can no longer trade or be cancelled.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// Trade represents a matched execution between a resting (maker) order
// and an aggressing (taker) order. Immutable once created.
type Trade struct {
	TradeID       string
	Instrument    string
	Price         int64
	Quantity      int64
	Aggressor     Side
	MakerOrderID  string
	TakerOrderID  string
	MakerID       string
	TakerID       string
	ExecutedAt    Nanos
}

// PriceLevel is an aggregated displayed price level.
type PriceLevel struct {
	Price    int64
	Quantity int64
	Orders   int
}

// L1 is a top-of-book quote. Zero-valued sides are reported via the
// HasBid/HasAsk flags rather than sentinel prices.
type L1 struct {
	Instrument string
	BidPrice   int64
	BidQty     int64
	AskPrice   int64
	AskQty     int64
	HasBid     bool
	HasAsk     bool
	LastPrice  int64
	At         Nanos
}

// Mid returns the midpoint price when both sides are present.
func (q L1) Mid() (int64, bool) {
	if !q.HasBid || !q.HasAsk {
		return 0, false
	}
	return (q.BidPrice + q.AskPrice) / 2, true
}

// L2 is a depth snapshot of aggregated displayed levels.
type L2 struct {
	Instrument string
	Bids       []PriceLevel
	Asks       []PriceLevel
	At         Nanos
}
