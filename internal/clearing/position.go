package clearing

import (
	"github.com/shopspring/decimal"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Position is a participant's signed holding in one instrument, with
// volume-weighted average cost and realized P&L. Owned and mutated
// exclusively by clearing.
type Position struct {
	Instrument string
	Qty        int64
	AvgCost    decimal.Decimal
	Realized   decimal.Decimal
}

// Unrealized returns the mark-to-market P&L at the given mark price.
func (p *Position) Unrealized(mark int64) decimal.Decimal {
	if p.Qty == 0 {
		return decimal.Zero
	}
	diff := decimal.NewFromInt(mark).Sub(p.AvgCost)
	return diff.Mul(decimal.NewFromInt(p.Qty))
}

// applyFill folds one fill into the position. Increasing fills reprice
// the average cost by volume weighting; reducing fills realize P&L
// against the average cost; crossing through zero does both.
func (p *Position) applyFill(side domain.Side, price, qty int64) {
	signed := qty
	if side == domain.SideSell {
		signed = -qty
	}
	px := decimal.NewFromInt(price)

	switch {
	case p.Qty == 0 || sameSign(p.Qty, signed):
		// Opening or increasing: volume-weighted average cost.
		oldAbs := decimal.NewFromInt(abs64(p.Qty))
		addAbs := decimal.NewFromInt(qty)
		total := oldAbs.Add(addAbs)
		p.AvgCost = p.AvgCost.Mul(oldAbs).Add(px.Mul(addAbs)).Div(total)
		p.Qty += signed
	case abs64(signed) <= abs64(p.Qty):
		// Reducing: realize against average cost, keep it for the rest.
		closed := decimal.NewFromInt(abs64(signed))
		p.Realized = p.Realized.Add(pnlPerUnit(p.Qty, p.AvgCost, px).Mul(closed))
		p.Qty += signed
		if p.Qty == 0 {
			p.AvgCost = decimal.Zero
		}
	default:
		// Crossing through zero: close out fully, then open the new side.
		closed := decimal.NewFromInt(abs64(p.Qty))
		p.Realized = p.Realized.Add(pnlPerUnit(p.Qty, p.AvgCost, px).Mul(closed))
		p.Qty += signed
		p.AvgCost = px
	}
}

// pnlPerUnit is the per-unit profit of closing a position with the given
// sign at price px against average cost avg.
func pnlPerUnit(qty int64, avg, px decimal.Decimal) decimal.Decimal {
	if qty > 0 {
		return px.Sub(avg)
	}
	return avg.Sub(px)
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
