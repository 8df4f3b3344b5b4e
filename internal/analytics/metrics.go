package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// InstrumentStats aggregates per-instrument session activity.
type InstrumentStats struct {
	Instrument string
	Trades     int64
	Volume     int64
	Notional   decimal.Decimal
	High       int64
	Low        int64
	LastPrice  int64
}

// VWAP returns the session volume-weighted average price.
func (s *InstrumentStats) VWAP() (decimal.Decimal, bool) {
	if s.Volume == 0 {
		return decimal.Zero, false
	}
	return s.Notional.Div(decimal.NewFromInt(s.Volume)), true
}

// Metrics accumulates session-level totals. Updated synchronously from
// the tick pipeline, so no locking is needed.
type Metrics struct {
	Orders      int64
	Rejections  int64
	Cancels     int64
	TradeCount  int64
	byInstr     map[string]*InstrumentStats
	fillsByPart map[string]int64
}

// NewMetrics creates an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{
		byInstr:     make(map[string]*InstrumentStats),
		fillsByPart: make(map[string]int64),
	}
}

// RecordOrder counts an accepted order.
func (m *Metrics) RecordOrder() { m.Orders++ }

// RecordRejection counts a rejected order.
func (m *Metrics) RecordRejection() { m.Rejections++ }

// RecordCancel counts a cancellation.
func (m *Metrics) RecordCancel() { m.Cancels++ }

// RecordTrade folds one execution into the session totals.
func (m *Metrics) RecordTrade(t *domain.Trade) {
	m.TradeCount++
	s, ok := m.byInstr[t.Instrument]
	if !ok {
		s = &InstrumentStats{Instrument: t.Instrument, High: t.Price, Low: t.Price}
		m.byInstr[t.Instrument] = s
	}
	s.Trades++
	s.Volume += t.Quantity
	s.Notional = s.Notional.Add(decimal.NewFromInt(t.Price).Mul(decimal.NewFromInt(t.Quantity)))
	if t.Price > s.High {
		s.High = t.Price
	}
	if t.Price < s.Low {
		s.Low = t.Price
	}
	s.LastPrice = t.Price
	m.fillsByPart[t.MakerID]++
	m.fillsByPart[t.TakerID]++
}

// Instrument returns the stats for one instrument, or false when it
// never traded.
func (m *Metrics) Instrument(id string) (*InstrumentStats, bool) {
	s, ok := m.byInstr[id]
	return s, ok
}

// Instruments returns all traded instruments' stats, sorted by ID.
func (m *Metrics) Instruments() []*InstrumentStats {
	out := make([]*InstrumentStats, 0, len(m.byInstr))
	for _, s := range m.byInstr {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Fills returns the number of executions a participant took part in.
func (m *Metrics) Fills(participantID string) int64 {
	return m.fillsByPart[participantID]
}
