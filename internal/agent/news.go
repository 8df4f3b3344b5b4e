package agent

import (
	"math/rand"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// NewsTrader reacts to the session sentiment scalar: strongly positive
// sentiment makes it lift the offer, strongly negative makes it hit the
// bid. A cooldown keeps it from stacking orders while sentiment holds.
type NewsTrader struct {
	AgentName  string
	Instrument string
	Threshold  float64 // absolute sentiment that triggers a trade
	Quantity   int64
	Cooldown   int // ticks between reactions

	wait int
}

func (a *NewsTrader) Name() string            { return a.AgentName }
func (a *NewsTrader) ParticipantType() string { return "algo" }

func (a *NewsTrader) OnTick(v *View, rng *rand.Rand) []Action {
	if a.wait > 0 {
		a.wait--
		return nil
	}
	if v.Phase != domain.PhaseContinuous {
		return nil
	}
	if v.Sentiment < a.Threshold && v.Sentiment > -a.Threshold {
		return nil
	}

	side := domain.SideBuy
	if v.Sentiment < 0 {
		side = domain.SideSell
	}
	a.wait = a.Cooldown
	return []Action{Submit(&domain.Order{
		Instrument: a.Instrument,
		Side:       side,
		Type:       domain.OrderTypeMarket,
		TIF:        domain.TIFImmediateOrCancel,
		Quantity:   a.Quantity,
	})}
}

func (a *NewsTrader) OnFill(t *domain.Trade) {}
func (a *NewsTrader) OnCancel(orderID string) {}
