package exchange

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/agent"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/analytics"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/config"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// funcAgent drives a scripted strategy: the closure receives the count
// of OnTick calls seen so far, starting at 1.
type funcAgent struct {
	name      string
	fn        func(tick int, v *agent.View) []agent.Action
	tick      int
	fills     []*domain.Trade
	cancelled []string
}

func (a *funcAgent) Name() string            { return a.name }
func (a *funcAgent) ParticipantType() string { return "test" }

func (a *funcAgent) OnTick(v *agent.View, rng *rand.Rand) []agent.Action {
	a.tick++
	if a.fn == nil {
		return nil
	}
	return a.fn(a.tick, v)
}

func (a *funcAgent) OnFill(t *domain.Trade)  { a.fills = append(a.fills, t) }
func (a *funcAgent) OnCancel(orderID string) { a.cancelled = append(a.cancelled, orderID) }

func testSession(preOpen, continuous, closing int) *config.Session {
	return &config.Session{
		Seed:            7,
		TickInterval:    time.Millisecond,
		PreOpenTicks:    preOpen,
		ContinuousTicks: continuous,
		ClosingTicks:    closing,
		CandleInterval:  10 * time.Millisecond,
		DepthLevels:     5,
		EventBuffer:     4096,
		Instruments: []domain.Instrument{
			{ID: "TEST", TickSize: 1, LotSize: 1, ReferencePrice: 100},
		},
	}
}

func submitLimit(side domain.Side, price, qty int64, tif domain.TimeInForce) agent.Action {
	return agent.Submit(&domain.Order{
		Instrument: "TEST",
		Side:       side,
		Type:       domain.OrderTypeLimit,
		TIF:        tif,
		Price:      price,
		Quantity:   qty,
	})
}

// runSession runs a session to completion and returns the drained
// outbound event stream.
func runSession(t *testing.T, cfg *config.Session, roster []Member) (*Exchange, []analytics.Event) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	x, err := New(cfg, roster, logger)
	if err != nil {
		t.Fatalf("failed to construct session: %v", err)
	}
	if err := x.Run(context.Background()); err != nil {
		t.Fatalf("session failed: %v", err)
	}
	var events []analytics.Event
	for ev := range x.Events() {
		events = append(events, ev)
	}
	return x, events
}

func phaseChanges(events []analytics.Event) []analytics.PhaseChanged {
	var out []analytics.PhaseChanged
	for _, ev := range events {
		if pc, ok := ev.(analytics.PhaseChanged); ok {
			out = append(out, pc)
		}
	}
	return out
}

func TestSession_PhaseWalk(t *testing.T) {
	cfg := testSession(2, 3, 2)
	roster := []Member{{ID: "idle", Cash: 1000, Agent: &funcAgent{name: "idle"}}}

	x, events := runSession(t, cfg, roster)
	if x.Phase() != domain.PhaseClosed {
		t.Fatalf("expected closed session, got %s", x.Phase())
	}

	changes := phaseChanges(events)
	want := []domain.Phase{
		domain.PhaseOpeningAuction,
		domain.PhaseContinuous,
		domain.PhaseClosingAuction,
		domain.PhaseClosed,
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(changes))
	}
	for i, to := range want {
		if changes[i].To != to {
			t.Errorf("transition %d: expected %s, got %s", i, to, changes[i].To)
		}
	}
	if changes[0].From != domain.PhasePreOpen {
		t.Errorf("expected first transition out of pre_open, got %s", changes[0].From)
	}
}

func TestSession_ContinuousTrade(t *testing.T) {
	cfg := testSession(0, 10, 0)
	seller := &funcAgent{name: "seller", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{submitLimit(domain.SideSell, 100, 10, domain.TIFGoodTillCancel)}
		}
		return nil
	}}
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 2 {
			return []agent.Action{submitLimit(domain.SideBuy, 100, 10, domain.TIFGoodTillCancel)}
		}
		return nil
	}}
	roster := []Member{
		{ID: "seller", Cash: 1_000_000, Agent: seller},
		{ID: "buyer", Cash: 1_000_000, Agent: buyer},
	}

	x, _ := runSession(t, cfg, roster)

	tape := x.Tape("TEST")
	if len(tape) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(tape))
	}
	tr := tape[0]
	if tr.Price != 100 || tr.Quantity != 10 {
		t.Errorf("unexpected trade %d@%d", tr.Quantity, tr.Price)
	}
	if tr.MakerID != "seller" || tr.TakerID != "buyer" || tr.Aggressor != domain.SideBuy {
		t.Errorf("unexpected parties %s/%s aggressor %s", tr.MakerID, tr.TakerID, tr.Aggressor)
	}
	if len(seller.fills) != 1 || len(buyer.fills) != 1 {
		t.Errorf("expected both agents notified, got %d/%d", len(seller.fills), len(buyer.fills))
	}

	positions, cash, _, err := x.PositionSnapshot("buyer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 || positions[0].Qty != 10 {
		t.Fatalf("expected buyer long 10, got %+v", positions)
	}
	if cash != 1_000_000-1_000 {
		t.Errorf("expected buyer cash 999000, got %d", cash)
	}
}

func TestSession_OpeningAuction(t *testing.T) {
	cfg := testSession(2, 5, 0)
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		switch tick {
		case 1:
			return []agent.Action{submitLimit(domain.SideBuy, 101, 50, domain.TIFDay)}
		case 2:
			return []agent.Action{submitLimit(domain.SideBuy, 100, 30, domain.TIFDay)}
		}
		return nil
	}}
	seller := &funcAgent{name: "seller", fn: func(tick int, v *agent.View) []agent.Action {
		switch tick {
		case 1:
			return []agent.Action{submitLimit(domain.SideSell, 99, 40, domain.TIFDay)}
		case 2:
			return []agent.Action{submitLimit(domain.SideSell, 100, 20, domain.TIFDay)}
		}
		return nil
	}}
	roster := []Member{
		{ID: "buyer", Cash: 1_000_000, Agent: buyer},
		{ID: "seller", Cash: 1_000_000, Agent: seller},
	}

	x, _ := runSession(t, cfg, roster)

	tape := x.Tape("TEST")
	var qty int64
	for _, tr := range tape {
		if tr.Price != 100 {
			t.Errorf("expected every auction fill at 100, got %d", tr.Price)
		}
		qty += tr.Quantity
	}
	if qty != 60 {
		t.Errorf("expected 60 uncrossed, got %d", qty)
	}

	// The bid remainder keeps resting through continuous trading.
	positions, _, _, _ := x.PositionSnapshot("buyer")
	if len(positions) != 1 || positions[0].Qty != 60 {
		t.Errorf("expected buyer long 60, got %+v", positions)
	}
}

func TestSession_PreOpenRejectsImmediateOrders(t *testing.T) {
	cfg := testSession(2, 5, 0)
	a := &funcAgent{name: "a", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{submitLimit(domain.SideBuy, 100, 10, domain.TIFImmediateOrCancel)}
		}
		return nil
	}}
	roster := []Member{{ID: "a", Cash: 1_000_000, Agent: a}}

	_, events := runSession(t, cfg, roster)

	var rejected bool
	for _, ev := range events {
		if r, ok := ev.(analytics.OrderRejected); ok && r.Reason == domain.ErrMarketClosed.Error() {
			rejected = true
		}
	}
	if !rejected {
		t.Error("expected the pre-open IOC rejected as market_closed")
	}
}

func TestSession_MatcherRejectionEmitsNoAcceptance(t *testing.T) {
	// A FOK against an empty book dies in the matcher; observers must
	// see a single rejection and no acceptance for it.
	cfg := testSession(0, 5, 0)
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{submitLimit(domain.SideBuy, 100, 10, domain.TIFFillOrKill)}
		}
		return nil
	}}
	roster := []Member{{ID: "buyer", Cash: 1_000_000, Agent: buyer}}

	x, events := runSession(t, cfg, roster)

	var rejected int
	for _, ev := range events {
		switch e := ev.(type) {
		case analytics.OrderAccepted:
			t.Errorf("unexpected acceptance for order %s", e.OrderID)
		case analytics.OrderRejected:
			rejected++
			if e.Reason != domain.ErrNotFillable.Error() {
				t.Errorf("expected fok_not_fillable, got %s", e.Reason)
			}
		}
	}
	if rejected != 1 {
		t.Errorf("expected one rejection, got %d", rejected)
	}
	m := x.Metrics()
	if m.Orders != 0 || m.Rejections != 1 {
		t.Errorf("expected 0 orders and 1 rejection, got %d and %d", m.Orders, m.Rejections)
	}
}

func TestSession_PreOpenMarketOrderCollared(t *testing.T) {
	cfg := testSession(3, 5, 0)
	cfg.Instruments[0].CollarBP = 1_000 // 10% band around 100
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{agent.Submit(&domain.Order{
				Instrument: "TEST",
				Side:       domain.SideBuy,
				Type:       domain.OrderTypeMarket,
				TIF:        domain.TIFDay,
				Quantity:   10,
			})}
		}
		return nil
	}}
	roster := []Member{{ID: "buyer", Cash: 1_000_000, Agent: buyer}}

	x, events := runSession(t, cfg, roster)
	_ = x

	var acceptedAt int64
	for _, ev := range events {
		if a, ok := ev.(analytics.OrderAccepted); ok {
			acceptedAt = a.Price
		}
	}
	if acceptedAt != 110 {
		t.Errorf("expected the market order collared to 110, got %d", acceptedAt)
	}
}

func TestSession_PreOpenMarketOrderWithoutCollar(t *testing.T) {
	// With no collar configured the conversion must still produce a
	// finite price, pinned at twice the last price.
	cfg := testSession(3, 5, 0)
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{agent.Submit(&domain.Order{
				Instrument: "TEST",
				Side:       domain.SideBuy,
				Type:       domain.OrderTypeMarket,
				TIF:        domain.TIFDay,
				Quantity:   10,
			})}
		}
		return nil
	}}
	roster := []Member{{ID: "buyer", Cash: 1_000_000, Agent: buyer}}

	_, events := runSession(t, cfg, roster)

	var acceptedAt int64
	for _, ev := range events {
		if a, ok := ev.(analytics.OrderAccepted); ok {
			acceptedAt = a.Price
		}
	}
	if acceptedAt != 200 {
		t.Errorf("expected the market order pinned to 200, got %d", acceptedAt)
	}
}

func TestSession_CancelOpenOrder(t *testing.T) {
	cfg := testSession(0, 10, 0)
	a := &funcAgent{name: "a"}
	a.fn = func(tick int, v *agent.View) []agent.Action {
		switch {
		case tick == 1:
			return []agent.Action{submitLimit(domain.SideBuy, 90, 10, domain.TIFGoodTillCancel)}
		case tick == 2 && len(v.OpenOrders) == 1:
			return []agent.Action{agent.Cancel(v.OpenOrders[0].OrderID)}
		}
		return nil
	}
	roster := []Member{{ID: "a", Cash: 1_000_000, Agent: a}}

	x, _ := runSession(t, cfg, roster)

	if len(a.cancelled) != 1 {
		t.Fatalf("expected one cancel callback, got %d", len(a.cancelled))
	}
	if x.Metrics().Cancels != 1 {
		t.Errorf("expected 1 recorded cancel, got %d", x.Metrics().Cancels)
	}
	l1, _, err := x.BookSnapshot("TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l1.HasBid {
		t.Error("expected an empty book after the cancel")
	}
}

func TestSession_DayOrdersExpireAtClose(t *testing.T) {
	cfg := testSession(0, 5, 2)
	a := &funcAgent{name: "a", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 1 {
			return []agent.Action{
				submitLimit(domain.SideBuy, 90, 10, domain.TIFDay),
				submitLimit(domain.SideBuy, 89, 10, domain.TIFGoodTillCancel),
			}
		}
		return nil
	}}
	roster := []Member{{ID: "a", Cash: 1_000_000, Agent: a}}

	x, _ := runSession(t, cfg, roster)

	if len(a.cancelled) != 1 {
		t.Fatalf("expected only the day order expired, got %d callbacks", len(a.cancelled))
	}
	// The GTC bid survives to the end of the session.
	l1, _, _ := x.BookSnapshot("TEST")
	if !l1.HasBid || l1.BidPrice != 89 {
		t.Errorf("expected the gtc bid at 89 still resting, got %+v", l1)
	}
}

func TestSession_CircuitBreaker(t *testing.T) {
	cfg := testSession(1, 20, 1)
	cfg.Halt = config.Halt{BandBP: 500, WindowTicks: 10, HaltTicks: 2}

	seller := &funcAgent{name: "seller", fn: func(tick int, v *agent.View) []agent.Action {
		if tick == 2 {
			return []agent.Action{submitLimit(domain.SideSell, 120, 10, domain.TIFGoodTillCancel)}
		}
		return nil
	}}
	buyer := &funcAgent{name: "buyer", fn: func(tick int, v *agent.View) []agent.Action {
		switch tick {
		case 3:
			return []agent.Action{submitLimit(domain.SideBuy, 120, 10, domain.TIFGoodTillCancel)}
		case 4:
			// Submitted while halted; must bounce.
			return []agent.Action{submitLimit(domain.SideBuy, 100, 10, domain.TIFGoodTillCancel)}
		}
		return nil
	}}
	roster := []Member{
		{ID: "seller", Cash: 10_000_000, Agent: seller},
		{ID: "buyer", Cash: 10_000_000, Agent: buyer},
	}

	x, events := runSession(t, cfg, roster)

	var halted *analytics.Halted
	var resumed, rejectedWhileHalted bool
	for _, ev := range events {
		switch e := ev.(type) {
		case analytics.Halted:
			halted = &e
		case analytics.Resumed:
			resumed = true
		case analytics.OrderRejected:
			if halted != nil && !resumed && e.Reason == domain.ErrMarketClosed.Error() {
				rejectedWhileHalted = true
			}
		}
	}
	if halted == nil {
		t.Fatal("expected a halt")
	}
	if halted.RefPrice != 100 || halted.LastPrice != 120 {
		t.Errorf("unexpected halt prices ref=%d last=%d", halted.RefPrice, halted.LastPrice)
	}
	if !rejectedWhileHalted {
		t.Error("expected an order rejected during the halt")
	}
	if !resumed {
		t.Error("expected trading to resume")
	}
	if x.Phase() != domain.PhaseClosed {
		t.Errorf("expected the session to close, got %s", x.Phase())
	}
}

func TestSession_SameSeedSameTape(t *testing.T) {
	build := func() ([]Member, *config.Session) {
		cfg := testSession(2, 150, 2)
		roster := []Member{
			{ID: "mm", Cash: 10_000_000, Agent: &agent.MarketMaker{
				AgentName: "mm", Instrument: "TEST", TickSize: 1,
				HalfSpread: 2, Quantity: 20, Display: 5, MaxPos: 100,
			}},
			{ID: "noise-1", Cash: 5_000_000, Agent: &agent.NoiseTrader{
				AgentName: "noise-1", Instrument: "TEST", TickSize: 1, LotSize: 1,
				ActProb: 0.6, MarketProb: 0.3, MaxOffset: 5, MaxQuantity: 10,
			}},
			{ID: "noise-2", Cash: 5_000_000, Agent: &agent.NoiseTrader{
				AgentName: "noise-2", Instrument: "TEST", TickSize: 1, LotSize: 1,
				ActProb: 0.6, MarketProb: 0.3, MaxOffset: 5, MaxQuantity: 10,
			}},
		}
		return roster, cfg
	}

	rosterA, cfgA := build()
	xA, _ := runSession(t, cfgA, rosterA)
	rosterB, cfgB := build()
	xB, _ := runSession(t, cfgB, rosterB)

	tapeA, tapeB := xA.Tape("TEST"), xB.Tape("TEST")
	if len(tapeA) != len(tapeB) {
		t.Fatalf("tape lengths differ: %d vs %d", len(tapeA), len(tapeB))
	}
	for i := range tapeA {
		a, b := tapeA[i], tapeB[i]
		if a.TradeID != b.TradeID || a.Price != b.Price || a.Quantity != b.Quantity ||
			a.MakerID != b.MakerID || a.TakerID != b.TakerID || a.ExecutedAt != b.ExecutedAt {
			t.Fatalf("tapes diverge at %d: %+v vs %+v", i, a, b)
		}
	}

	mA, mB := xA.Metrics(), xB.Metrics()
	if mA.Orders != mB.Orders || mA.Rejections != mB.Rejections || mA.Cancels != mB.Cancels {
		t.Errorf("metrics differ: %d/%d/%d vs %d/%d/%d",
			mA.Orders, mA.Rejections, mA.Cancels, mB.Orders, mB.Rejections, mB.Cancels)
	}
	for _, id := range []string{"mm", "noise-1", "noise-2"} {
		_, cashA, _, _ := xA.PositionSnapshot(id)
		_, cashB, _, _ := xB.PositionSnapshot(id)
		if cashA != cashB {
			t.Errorf("participant %s cash differs: %d vs %d", id, cashA, cashB)
		}
	}
}

func TestNew_ValidatesRoster(t *testing.T) {
	cfg := testSession(1, 10, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := New(cfg, nil, logger); err == nil {
		t.Error("expected an empty roster rejected")
	}
	dup := []Member{
		{ID: "a", Agent: &funcAgent{name: "a"}},
		{ID: "a", Agent: &funcAgent{name: "a"}},
	}
	if _, err := New(cfg, dup, logger); err == nil {
		t.Error("expected duplicate roster ids rejected")
	}
	if _, err := New(cfg, []Member{{ID: "a"}}, logger); err == nil {
		t.Error("expected a nil agent rejected")
	}
}
