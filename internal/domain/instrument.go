package domain

// Instrument describes a tradable product. Immutable after session start.
// Prices are quoted in ticks of the session currency's smallest unit.
type Instrument struct {
	ID              string
	TickSize        int64
	LotSize         int64
	InitialMarginBP int64 // margin reserved per unit notional, basis points
	PositionLimit   int64 // max absolute signed position per participant
	CollarBP        int64 // admissible band around reference, basis points
	ReferencePrice  int64 // opening reference; updated from trades thereafter
}

// TickAligned reports whether price is a multiple of the tick size.
func (i *Instrument) TickAligned(price int64) bool {
	return i.TickSize > 0 && price%i.TickSize == 0
}

// LotAligned reports whether qty is a positive multiple of the lot size.
func (i *Instrument) LotAligned(qty int64) bool {
	return i.LotSize > 0 && qty > 0 && qty%i.LotSize == 0
}

// CollarBounds returns the [low, high] admissible price band around ref.
func (i *Instrument) CollarBounds(ref int64) (int64, int64) {
	width := ref * i.CollarBP / 10_000
	return ref - width, ref + width
}
