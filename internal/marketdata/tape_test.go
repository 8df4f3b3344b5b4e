package marketdata

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

func exec(id string, price, qty int64, at domain.Nanos) *domain.Trade {
	return &domain.Trade{
		TradeID:    id,
		Instrument: "TEST",
		Price:      price,
		Quantity:   qty,
		ExecutedAt: at,
	}
}

func TestTape_AppendAndLast(t *testing.T) {
	tape := NewTape()
	if _, ok := tape.Last("TEST"); ok {
		t.Error("expected no last price on an empty tape")
	}

	tape.Append(exec("t1", 100, 5, 10))
	tape.Append(exec("t2", 102, 3, 20))

	last, ok := tape.Last("TEST")
	if !ok || last != 102 {
		t.Errorf("expected last 102, got %d (ok=%v)", last, ok)
	}
	if got := len(tape.All("TEST")); got != 2 {
		t.Errorf("expected 2 trades, got %d", got)
	}
	if got := len(tape.All("OTHER")); got != 0 {
		t.Errorf("expected empty tape for another instrument, got %d", got)
	}
}

func TestTape_Since_WindowAndVisibility(t *testing.T) {
	tape := NewTape()
	tape.Append(exec("t1", 100, 5, 10))
	tape.Append(exec("t2", 101, 5, 20))
	tape.Append(exec("t3", 102, 5, 30))

	// Cutoff excludes t1; the delayed feed has not seen t3 yet.
	got := tape.Since("TEST", 15, 25)
	if len(got) != 1 || got[0].TradeID != "t2" {
		t.Fatalf("expected only t2, got %v", got)
	}
}

func TestTape_VWAP(t *testing.T) {
	tape := NewTape()
	if _, ok := tape.VWAP("TEST", 0); ok {
		t.Error("expected no VWAP on an empty window")
	}

	tape.Append(exec("t1", 100, 10, 10))
	tape.Append(exec("t2", 110, 30, 20))

	vwap, ok := tape.VWAP("TEST", 0)
	if !ok {
		t.Fatal("expected a VWAP")
	}
	// (100×10 + 110×30) / 40 = 107.5
	want := decimal.NewFromFloat(107.5)
	if !vwap.Equal(want) {
		t.Errorf("expected VWAP 107.5, got %s", vwap)
	}

	// Cutoff past t1 leaves only t2.
	vwap, _ = tape.VWAP("TEST", 15)
	if !vwap.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected windowed VWAP 110, got %s", vwap)
	}
}

func TestCandleBuilder_RollsOHLCV(t *testing.T) {
	b := NewCandleBuilder("TEST", 100)
	b.AddTrade(100, 5)
	b.AddTrade(110, 3)
	b.AddTrade(95, 2)
	b.AddTrade(105, 1)

	if c := b.Roll(50); c != nil {
		t.Fatal("expected no candle before the interval ends")
	}
	c := b.Roll(100)
	if c == nil {
		t.Fatal("expected a closed candle")
	}
	if c.Open != 100 || c.High != 110 || c.Low != 95 || c.Close != 105 {
		t.Errorf("unexpected OHLC %d/%d/%d/%d", c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume != 11 {
		t.Errorf("expected volume 11, got %d", c.Volume)
	}
	if c.Start != 0 || c.End != 100 {
		t.Errorf("unexpected bounds [%d, %d]", c.Start, c.End)
	}
}

func TestCandleBuilder_EmptyIntervalProducesNoCandle(t *testing.T) {
	b := NewCandleBuilder("TEST", 100)
	if c := b.Roll(100); c != nil {
		t.Error("expected no candle for an empty interval")
	}

	// The builder skips ahead over empty intervals.
	b.AddTrade(100, 1)
	c := b.Roll(500)
	if c == nil {
		t.Fatal("expected a candle")
	}
	if c.Start != 100 || c.End != 200 {
		t.Errorf("unexpected bounds [%d, %d]", c.Start, c.End)
	}
	if b.Roll(500) != nil {
		t.Error("expected no second candle without new trades")
	}
}
