package agent

import (
	"math/rand"

	"github.com/markcheno/go-talib"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// MomentumTrader trades SMA crossovers on the trade tape: it buys when
// the fast average crosses above the slow one and sells on the reverse
// cross. One position flip per cross.
type MomentumTrader struct {
	AgentName  string
	Instrument string
	Fast       int
	Slow       int
	Quantity   int64

	prices   []float64
	wasAbove bool
	primed   bool
}

func (a *MomentumTrader) Name() string            { return a.AgentName }
func (a *MomentumTrader) ParticipantType() string { return "algo" }

func (a *MomentumTrader) OnTick(v *View, rng *rand.Rand) []Action {
	q, ok := v.Quotes[a.Instrument]
	if !ok || q.LastPrice <= 0 {
		return nil
	}
	a.prices = append(a.prices, float64(q.LastPrice))
	if v.Phase != domain.PhaseContinuous || len(a.prices) < a.Slow+1 {
		return nil
	}

	fast := talib.Sma(a.prices, a.Fast)
	slow := talib.Sma(a.prices, a.Slow)
	above := fast[len(fast)-1] > slow[len(slow)-1]
	defer func() { a.wasAbove, a.primed = above, true }()
	if !a.primed || above == a.wasAbove {
		return nil
	}

	side := domain.SideSell
	if above {
		side = domain.SideBuy
	}
	return []Action{Submit(&domain.Order{
		Instrument: a.Instrument,
		Side:       side,
		Type:       domain.OrderTypeMarket,
		TIF:        domain.TIFImmediateOrCancel,
		Quantity:   a.Quantity,
	})}
}

func (a *MomentumTrader) OnFill(t *domain.Trade) {}
func (a *MomentumTrader) OnCancel(orderID string) {}
