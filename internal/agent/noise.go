package agent

import (
	"math/rand"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// NoiseTrader submits small random orders around the working price. It
// supplies the uninformed order flow the other strategies trade against.
type NoiseTrader struct {
	AgentName   string
	Instrument  string
	TickSize    int64
	LotSize     int64
	ActProb     float64 // probability of acting on a given tick
	MarketProb  float64 // share of actions that go out as market orders
	MaxOffset   int64   // limit price offset from ref, in ticks
	MaxQuantity int64
}

func (a *NoiseTrader) Name() string            { return a.AgentName }
func (a *NoiseTrader) ParticipantType() string { return "retail" }

func (a *NoiseTrader) OnTick(v *View, rng *rand.Rand) []Action {
	if v.Phase != domain.PhaseContinuous && v.Phase != domain.PhasePreOpen &&
		v.Phase != domain.PhaseClosingAuction {
		return nil
	}
	if rng.Float64() >= a.ActProb {
		return nil
	}
	q, ok := v.Quotes[a.Instrument]
	if !ok {
		return nil
	}
	ref, ok := refPrice(q)
	if !ok {
		return nil
	}

	side := domain.SideBuy
	if rng.Intn(2) == 1 {
		side = domain.SideSell
	}
	qty := 1 + rng.Int63n(a.MaxQuantity)
	if a.LotSize > 1 {
		qty = qty * a.LotSize
	}

	if v.Phase == domain.PhaseContinuous && rng.Float64() < a.MarketProb {
		return []Action{Submit(&domain.Order{
			Instrument: a.Instrument,
			Side:       side,
			Type:       domain.OrderTypeMarket,
			TIF:        domain.TIFImmediateOrCancel,
			Quantity:   qty,
		})}
	}

	// Limit order inside a band around the working price. Buys are
	// shaded below, sells above, so most rest rather than cross.
	offset := rng.Int63n(a.MaxOffset+1) * a.TickSize
	price := ref - offset
	if side == domain.SideSell {
		price = ref + offset
	}
	price -= price % a.TickSize
	if price <= 0 {
		return nil
	}
	return []Action{Submit(&domain.Order{
		Instrument: a.Instrument,
		Side:       side,
		Type:       domain.OrderTypeLimit,
		TIF:        domain.TIFDay,
		Price:      price,
		Quantity:   qty,
	})}
}

func (a *NoiseTrader) OnFill(t *domain.Trade) {}
func (a *NoiseTrader) OnCancel(orderID string) {}
