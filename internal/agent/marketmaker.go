package agent

import (
	"math/rand"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// MarketMaker keeps a two-sided iceberg quote around the working price,
// re-pricing every tick and skewing away from its inventory.
type MarketMaker struct {
	AgentName  string
	Instrument string
	TickSize   int64
	HalfSpread int64 // ticks each side of the working price
	Quantity   int64
	Display    int64 // visible slice; 0 quotes the full size
	MaxPos     int64 // inventory at which skew saturates
}

func (a *MarketMaker) Name() string            { return a.AgentName }
func (a *MarketMaker) ParticipantType() string { return "hft" }

func (a *MarketMaker) OnTick(v *View, rng *rand.Rand) []Action {
	if v.Phase != domain.PhaseContinuous {
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

	var actions []Action
	for _, o := range v.OpenOrders {
		if o.Instrument == a.Instrument {
			actions = append(actions, Cancel(o.OrderID))
		}
	}

	// Skew the quote midpoint against inventory so fills mean-revert it.
	skew := int64(0)
	if a.MaxPos > 0 {
		pos := v.Positions[a.Instrument]
		if pos > a.MaxPos {
			pos = a.MaxPos
		}
		if pos < -a.MaxPos {
			pos = -a.MaxPos
		}
		skew = -pos * a.HalfSpread * a.TickSize / a.MaxPos
	}
	mid := ref + skew
	bid := mid - a.HalfSpread*a.TickSize
	ask := mid + a.HalfSpread*a.TickSize
	bid -= bid % a.TickSize
	ask -= ask % a.TickSize
	if bid <= 0 || ask <= bid {
		return actions
	}

	display := a.Display
	if display <= 0 || display > a.Quantity {
		display = a.Quantity
	}
	actions = append(actions,
		Submit(&domain.Order{
			Instrument: a.Instrument,
			Side:       domain.SideBuy,
			Type:       domain.OrderTypeLimit,
			TIF:        domain.TIFDay,
			Price:      bid,
			Quantity:   a.Quantity,
			DisplayQty: display,
		}),
		Submit(&domain.Order{
			Instrument: a.Instrument,
			Side:       domain.SideSell,
			Type:       domain.OrderTypeLimit,
			TIF:        domain.TIFDay,
			Price:      ask,
			Quantity:   a.Quantity,
			DisplayQty: display,
		}),
	)
	return actions
}

func (a *MarketMaker) OnFill(t *domain.Trade) {}
func (a *MarketMaker) OnCancel(orderID string) {}
