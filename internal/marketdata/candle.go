package marketdata

import "github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"

// Candle is one closed OHLCV bar.
type Candle struct {
	Instrument string
	Start      domain.Nanos
	End        domain.Nanos
	Open       int64
	High       int64
	Low        int64
	Close      int64
	Volume     int64
}

// CandleBuilder accumulates trades into fixed-interval candles for one
// instrument. Empty intervals produce no candle.
type CandleBuilder struct {
	instrument string
	interval   domain.Nanos
	start      domain.Nanos
	open       int64
	high       int64
	low        int64
	last       int64
	volume     int64
	hasData    bool
}

// NewCandleBuilder creates a builder with the given bar interval.
func NewCandleBuilder(instrument string, interval domain.Nanos) *CandleBuilder {
	return &CandleBuilder{instrument: instrument, interval: interval}
}

// AddTrade folds one execution into the current bar.
func (b *CandleBuilder) AddTrade(price, qty int64) {
	if !b.hasData {
		b.open, b.high, b.low = price, price, price
		b.hasData = true
	} else {
		if price > b.high {
			b.high = price
		}
		if price < b.low {
			b.low = price
		}
	}
	b.last = price
	b.volume += qty
}

// Roll closes the current bar if now has passed its end. It returns the
// closed candle, or nil when the bar is still open or saw no trades.
func (b *CandleBuilder) Roll(now domain.Nanos) *Candle {
	if b.interval <= 0 || now < b.start+b.interval {
		return nil
	}
	end := b.start + b.interval
	var closed *Candle
	if b.hasData {
		closed = &Candle{
			Instrument: b.instrument,
			Start:      b.start,
			End:        end,
			Open:       b.open,
			High:       b.high,
			Low:        b.low,
			Close:      b.last,
			Volume:     b.volume,
		}
	}
	// Advance to the bar containing now.
	b.start = end
	for now >= b.start+b.interval {
		b.start += b.interval
	}
	b.hasData = false
	b.volume = 0
	return closed
}
