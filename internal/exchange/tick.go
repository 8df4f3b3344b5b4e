package exchange

import (
	"log/slog"
	"sort"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/agent"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/analytics"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/latency"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/risk"
)

// Tick advances the session by one step of the tick pipeline. An error
// return is fatal: it is an invariant violation and the session must
// not continue.
func (x *Exchange) Tick() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.tick++
	x.clock += domain.Nanos(x.cfg.TickInterval.Nanoseconds())
	x.advanceSentiment()

	if err := x.checkTransitions(); err != nil {
		return err
	}
	if x.phase == domain.PhaseClosed {
		return nil
	}

	// Poll agents in stable roster order and put their actions in
	// flight behind the order-leg latency.
	for i := range x.members {
		m := &x.members[i]
		view := x.buildView(i)
		for _, act := range m.Agent.OnTick(view, x.agentRngs[i]) {
			delay := x.lat.Delay(latency.KindOrder, m.Agent.ParticipantType(), x.latRng)
			x.seq++
			x.pending.push(&delayedAction{
				at:     x.clock + delay,
				seq:    x.seq,
				member: i,
				action: act,
			})
		}
	}

	// Apply every action whose delay has elapsed, oldest first.
	for {
		da, ok := x.pending.popDue(x.clock)
		if !ok {
			break
		}
		if err := x.applyAction(da); err != nil {
			return err
		}
	}

	// Roll candles after the tick's executions.
	for _, id := range x.instrIDs {
		if c := x.candles[id].Roll(x.clock); c != nil {
			x.events.Append(analytics.CandleClosed{Candle: c})
		}
	}

	// A crossed book outside auction accumulation is fatal.
	if x.phase == domain.PhaseContinuous {
		for _, id := range x.instrIDs {
			if x.books[id].Crossed() {
				return domain.Invariantf("book_crossed", "instrument %q crossed in continuous phase", id)
			}
		}
	}
	return nil
}

// buildView assembles the immutable per-tick snapshot for one member.
// The tape it contains is delayed by the member's market-data leg.
func (x *Exchange) buildView(i int) *agent.View {
	m := &x.members[i]
	dataDelay := x.lat.Delay(latency.KindMarketData, m.Agent.ParticipantType(), x.latRng)
	visibleBefore := x.clock - dataDelay
	cutoff := x.clock - domain.Nanos(x.cfg.TickInterval.Nanoseconds())*recentTradeTicks

	v := &agent.View{
		Now:         x.clock,
		Phase:       x.phase,
		Instruments: x.instrIDs,
		Quotes:      make(map[string]domain.L1, len(x.instrIDs)),
		Depths:      make(map[string]domain.L2, len(x.instrIDs)),
		Positions:   make(map[string]int64, len(x.instrIDs)),
		Sentiment:   x.sentiment,
	}
	for _, id := range x.instrIDs {
		b := x.books[id]
		v.Quotes[id] = b.BestQuote(x.lastPrice(id), x.clock)
		v.Depths[id] = b.Depth(x.cfg.DepthLevels, x.clock)
		v.Positions[id] = x.house.Position(m.ID, id).Qty
		v.Trades = append(v.Trades, x.tape.Since(id, cutoff, visibleBefore)...)
	}
	if acct, ok := x.house.Account(m.ID); ok {
		v.Cash = acct.Cash
		v.Available = x.house.Available(m.ID)
	}
	for id, owner := range x.owners {
		if owner != i {
			continue
		}
		if o, ok := x.openOrders[id]; ok {
			v.OpenOrders = append(v.OpenOrders, *o)
		}
	}
	// Map iteration above is unordered; sort for a reproducible view.
	sortOrders(v.OpenOrders)
	return v
}

// applyAction routes one due action through risk and matching (or the
// auction book), settling any resulting trades.
func (x *Exchange) applyAction(da *delayedAction) error {
	switch da.action.Kind {
	case agent.ActionCancel:
		x.applyCancel(da.member, da.action.CancelOrderID)
		return nil
	case agent.ActionSubmit:
		return x.applySubmit(da.member, da.action.Order)
	default:
		return nil
	}
}

func (x *Exchange) applyCancel(member int, orderID string) {
	owner, ok := x.owners[orderID]
	if !ok || owner != member {
		return
	}
	o, ok := x.openOrders[orderID]
	if !ok {
		return
	}
	if _, err := x.books[o.Instrument].Cancel(orderID); err != nil {
		return
	}
	x.riskEng.Release(o.ParticipantID, orderID)
	x.forgetOrder(orderID)
	x.metrics.RecordCancel()
	x.members[member].Agent.OnCancel(orderID)
}

func (x *Exchange) applySubmit(member int, o *domain.Order) error {
	m := &x.members[member]
	o.OrderID = x.ids.Next()
	o.ParticipantID = m.ID
	o.SubmittedAt = x.clock

	switch x.phase {
	case domain.PhaseHalted, domain.PhaseClosed:
		x.reject(o, domain.ErrMarketClosed)
		return nil
	case domain.PhasePreOpen, domain.PhaseClosingAuction:
		return x.submitAuction(member, o)
	case domain.PhaseOpeningAuction:
		// Uncrossing is instantaneous; nothing accepts orders here.
		x.reject(o, domain.ErrMarketClosed)
		return nil
	}

	b := x.books[o.Instrument]
	if b == nil {
		x.reject(o, domain.ErrUnknownInstrument)
		return nil
	}
	if err := x.riskEng.Check(o, b, x.lastPrice(o.Instrument)); err != nil {
		x.reject(o, err)
		return nil
	}
	trades, err := x.matcher.Apply(o, b, x.clock)
	if err != nil && len(trades) == 0 {
		// Rejected by the matcher (FOK not fillable, no liquidity):
		// return the provisional margin and report the rejection. The
		// order was never accepted, so no acceptance is emitted.
		x.riskEng.Release(o.ParticipantID, o.OrderID)
		x.reject(o, err)
		return nil
	}
	x.accept(member, o)
	if err := x.applyTrades(trades); err != nil {
		return err
	}
	if o.Terminal() {
		x.riskEng.Release(o.ParticipantID, o.OrderID)
		x.forgetOrder(o.OrderID)
	}
	return x.checkCircuitBreaker(o.Instrument)
}

// submitAuction rests an accepted order in the (possibly crossed)
// auction book. Market orders are collared to the far band so they can
// rest with maximal priority; IOC and FOK cannot rest and are rejected.
func (x *Exchange) submitAuction(member int, o *domain.Order) error {
	if o.TIF == domain.TIFImmediateOrCancel || o.TIF == domain.TIFFillOrKill {
		x.reject(o, domain.ErrMarketClosed)
		return nil
	}
	b := x.books[o.Instrument]
	if b == nil {
		x.reject(o, domain.ErrUnknownInstrument)
		return nil
	}
	if o.Type == domain.OrderTypeMarket {
		last := x.lastPrice(o.Instrument)
		low, high := x.riskEng.Collar(o.Instrument, last)
		o.Type = domain.OrderTypeLimit
		if o.Side == domain.SideBuy {
			o.Price = high
			if o.Price >= risk.NoCollarHigh {
				o.Price = 2 * last
			}
		} else {
			o.Price = low
		}
		ins := x.instruments[o.Instrument]
		o.Price -= o.Price % ins.TickSize
		if o.Price <= 0 {
			o.Price = ins.TickSize
		}
	}
	if err := x.riskEng.Check(o, b, x.lastPrice(o.Instrument)); err != nil {
		x.reject(o, err)
		return nil
	}
	o.Remaining = o.Quantity
	if o.DisplayQty <= 0 || o.DisplayQty > o.Quantity {
		o.DisplayQty = o.Quantity
	}
	o.DisplayLeft = o.DisplayQty
	o.Status = domain.OrderStatusPending
	b.Insert(o)
	x.accept(member, o)
	return nil
}

// applyTrades settles a batch of executions and fans out market data,
// analytics and agent callbacks.
func (x *Exchange) applyTrades(trades []*domain.Trade) error {
	for _, t := range trades {
		if err := x.house.Settle(t); err != nil {
			return err
		}
		x.tape.Append(t)
		x.candles[t.Instrument].AddTrade(t.Price, t.Quantity)
		x.metrics.RecordTrade(t)
		x.events.Append(analytics.TradeExecuted{Trade: t})

		for _, orderID := range []string{t.MakerOrderID, t.TakerOrderID} {
			if i, ok := x.owners[orderID]; ok {
				x.members[i].Agent.OnFill(t)
			}
			if o, ok := x.openOrders[orderID]; ok && o.Terminal() {
				x.riskEng.Release(o.ParticipantID, o.OrderID)
				x.forgetOrder(o.OrderID)
			}
		}
	}
	return nil
}

func (x *Exchange) accept(member int, o *domain.Order) {
	x.owners[o.OrderID] = member
	x.openOrders[o.OrderID] = o
	x.metrics.RecordOrder()
	x.events.Append(analytics.OrderAccepted{
		OrderID:       o.OrderID,
		Instrument:    o.Instrument,
		ParticipantID: o.ParticipantID,
		Side:          o.Side,
		Price:         o.Price,
		Quantity:      o.Quantity,
		At:            x.clock,
	})
}

func (x *Exchange) reject(o *domain.Order, reason error) {
	o.Status = domain.OrderStatusRejected
	x.metrics.RecordRejection()
	x.events.Append(analytics.OrderRejected{
		OrderID:       o.OrderID,
		Instrument:    o.Instrument,
		ParticipantID: o.ParticipantID,
		Reason:        reason.Error(),
		At:            x.clock,
	})
	x.logger.Debug("order rejected",
		slog.String("order_id", o.OrderID),
		slog.String("participant", o.ParticipantID),
		slog.String("reason", reason.Error()))
}

func (x *Exchange) forgetOrder(orderID string) {
	delete(x.owners, orderID)
	delete(x.openOrders, orderID)
}

// advanceSentiment steps the mean-reverting sentiment process.
func (x *Exchange) advanceSentiment() {
	s := x.cfg.Sentiment
	x.sentiment = x.sentiment*(1-s.Revert) + x.rng.NormFloat64()*s.Vol
}

func sortOrders(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].SubmittedAt != orders[j].SubmittedAt {
			return orders[i].SubmittedAt < orders[j].SubmittedAt
		}
		return orders[i].OrderID < orders[j].OrderID
	})
}
