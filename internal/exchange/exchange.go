// Package exchange orchestrates a simulated trading session: it owns
// the logical clock and the market-phase state machine and drives the
// per-tick pipeline of latency, risk, matching or auction, clearing,
// market data and analytics.
//
// The whole core advances on a single goroutine; agents are called
// synchronously in roster order and every draw of randomness comes from
// generators derived from the session seed, so two sessions with the
// same configuration produce identical trade tapes. Snapshot accessors
// take a read lock so external observers never block or reorder the
// tick loop.
package exchange

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/agent"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/analytics"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/book"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/clearing"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/config"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/engine"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/latency"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/marketdata"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/risk"
)

// Member is one roster entry: an agent bound to a funded participant.
type Member struct {
	ID    string
	Agent agent.Agent
	Cash  int64
}

// recentTradeTicks bounds how far back the per-tick view's tape reaches.
const recentTradeTicks = 100

// Exchange runs one simulated session.
type Exchange struct {
	mu     sync.RWMutex
	cfg    *config.Session
	logger *slog.Logger

	ids       *domain.IDSource
	rng       *rand.Rand   // sentiment and other session-level draws
	latRng    *rand.Rand   // latency draws
	agentRngs []*rand.Rand // one per member, in roster order

	instruments map[string]*domain.Instrument
	instrIDs    []string
	books       map[string]*book.Book

	matcher *engine.Matcher
	riskEng *risk.Engine
	house   *clearing.House
	lat     *latency.Model

	members    []Member
	owners     map[string]int           // order_id → roster index
	openOrders map[string]*domain.Order // accepted, non-terminal

	tape    *marketdata.Tape
	candles map[string]*marketdata.CandleBuilder
	events  *analytics.Log
	metrics *analytics.Metrics

	clock     domain.Nanos
	tick      int
	phase     domain.Phase
	sentiment float64
	seq       int64
	pending   actionQueue

	haltRefs        map[string]int64 // circuit-breaker window references
	haltWindowStart int
	haltUntil       int
}

// New constructs a session from configuration and a roster. All
// configuration errors surface here, before the clock starts.
func New(cfg *config.Session, roster []Member, logger *slog.Logger) (*Exchange, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, &domain.ValidationError{Message: "roster is empty"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	instruments := make(map[string]*domain.Instrument, len(cfg.Instruments))
	instrIDs := make([]string, 0, len(cfg.Instruments))
	books := make(map[string]*book.Book, len(cfg.Instruments))
	candles := make(map[string]*marketdata.CandleBuilder, len(cfg.Instruments))
	haltRefs := make(map[string]int64, len(cfg.Instruments))
	for i := range cfg.Instruments {
		ins := cfg.Instruments[i]
		instruments[ins.ID] = &ins
		instrIDs = append(instrIDs, ins.ID)
		books[ins.ID] = book.New(ins.ID)
		candles[ins.ID] = marketdata.NewCandleBuilder(ins.ID, domain.Nanos(cfg.CandleInterval.Nanoseconds()))
		haltRefs[ins.ID] = ins.ReferencePrice
	}
	sort.Strings(instrIDs)

	house := clearing.NewHouse(instruments)
	seen := make(map[string]bool, len(roster))
	agentRngs := make([]*rand.Rand, len(roster))
	for i, m := range roster {
		if m.ID == "" || m.Agent == nil {
			return nil, &domain.ValidationError{Message: "roster entry with empty id or nil agent"}
		}
		if seen[m.ID] {
			return nil, &domain.ValidationError{Message: "duplicate roster id " + m.ID}
		}
		seen[m.ID] = true
		house.AddParticipant(m.ID, m.Cash)
		agentRngs[i] = rand.New(rand.NewSource(cfg.Seed + int64(i+1)*0x9E3779B9))
	}

	ids := domain.NewIDSource(cfg.Seed)
	return &Exchange{
		cfg:         cfg,
		logger:      logger,
		ids:         ids,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		latRng:      rand.New(rand.NewSource(cfg.Seed ^ 0x5DEECE66D)),
		agentRngs:   agentRngs,
		instruments: instruments,
		instrIDs:    instrIDs,
		books:       books,
		matcher:     engine.NewMatcher(ids),
		riskEng:     risk.NewEngine(instruments, house, cfg.DefaultCollarBP),
		house:       house,
		lat:         latency.NewModel(cfg.Latency, cfg.DefaultLatency),
		members:     roster,
		owners:      make(map[string]int),
		openOrders:  make(map[string]*domain.Order),
		tape:        marketdata.NewTape(),
		candles:     candles,
		events:      analytics.NewLog(cfg.EventBuffer),
		metrics:     analytics.NewMetrics(),
		phase:       domain.PhasePreOpen,
		haltRefs:    haltRefs,
	}, nil
}

// Run advances ticks until the session closes or ctx is cancelled.
// Cancellation stops the clock after the current tick completes. A
// non-nil error other than ctx.Err() is an invariant violation; the
// session state is left as-is for diagnosis.
func (x *Exchange) Run(ctx context.Context) error {
	defer x.events.Close()
	for x.Phase() != domain.PhaseClosed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := x.Tick(); err != nil {
			x.logger.Error("session stopped",
				slog.Int("tick", x.tick),
				slog.String("error", err.Error()))
			return err
		}
	}
	x.logger.Info("session closed",
		slog.Int("ticks", x.tick),
		slog.Int64("trades", x.metrics.TradeCount))
	return nil
}

// Phase returns the current market phase.
func (x *Exchange) Phase() domain.Phase {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.phase
}

// Clock returns the current simulated time.
func (x *Exchange) Clock() domain.Nanos {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.clock
}

// Events returns the one-way outbound event stream.
func (x *Exchange) Events() <-chan analytics.Event {
	return x.events.Outbound()
}

// Metrics returns the session metrics accumulator.
func (x *Exchange) Metrics() *analytics.Metrics {
	return x.metrics
}

// BookSnapshot returns the current L1 and L2 state of an instrument.
func (x *Exchange) BookSnapshot(instrument string) (domain.L1, domain.L2, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	b, ok := x.books[instrument]
	if !ok {
		return domain.L1{}, domain.L2{}, domain.ErrUnknownInstrument
	}
	last := x.lastPrice(instrument)
	return b.BestQuote(last, x.clock), b.Depth(x.cfg.DepthLevels, x.clock), nil
}

// PositionSnapshot returns copies of a participant's positions plus the
// cash and available margin of its account.
func (x *Exchange) PositionSnapshot(participantID string) ([]clearing.Position, int64, int64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	acct, ok := x.house.Account(participantID)
	if !ok {
		return nil, 0, 0, domain.ErrUnknownParticipant
	}
	src := x.house.Positions(participantID)
	out := make([]clearing.Position, len(src))
	for i, p := range src {
		out[i] = *p
	}
	return out, acct.Cash, x.house.Available(participantID), nil
}

// Tape returns the execution history for an instrument.
func (x *Exchange) Tape(instrument string) []*domain.Trade {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.tape.All(instrument)
}

func (x *Exchange) lastPrice(instrument string) int64 {
	if p, ok := x.tape.Last(instrument); ok {
		return p
	}
	return x.instruments[instrument].ReferencePrice
}
