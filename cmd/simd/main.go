package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/agent"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/config"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/exchange"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/latency"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	runner, err := config.LoadRunner()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch runner.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	session := defaultSession(runner)
	roster := defaultRoster()

	x, err := exchange.New(session, roster, logger)
	if err != nil {
		logger.Error("failed to construct session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge the core's outbound channel to websocket subscribers.
	events := newHub[eventEnvelope]()
	go func() {
		for ev := range x.Events() {
			events.Broadcast(envelope(ev))
		}
	}()

	simDone := make(chan error, 1)
	go func() {
		logger.Info("session starting", slog.Int64("seed", runner.Seed))
		simDone <- x.Run(ctx)
	}()

	addr := fmt.Sprintf(":%d", runner.Port)
	srv := &http.Server{Addr: addr, Handler: newRouter(x, events, logger)}
	go func() {
		logger.Info("observer api listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()
		<-simDone
	case err := <-simDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session failed", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), runner.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("stopped")
}

// defaultSession builds the demo session: one liquid and one thin
// instrument with a standard latency tiering.
func defaultSession(r *config.Runner) *config.Session {
	return &config.Session{
		Seed:            r.Seed,
		TickInterval:    r.TickInterval,
		PreOpenTicks:    r.PreOpenTicks,
		ContinuousTicks: r.ContinuousTicks,
		ClosingTicks:    r.ClosingTicks,
		CandleInterval:  time.Minute,
		DepthLevels:     10,
		DefaultCollarBP: 1_000,
		EventBuffer:     4096,
		Halt:            config.Halt{BandBP: 800, WindowTicks: 200, HaltTicks: 100},
		Sentiment:       config.Sentiment{Revert: 0.05, Vol: 0.12},
		Instruments: []domain.Instrument{
			{
				ID:              "FCT",
				TickSize:        1,
				LotSize:         1,
				InitialMarginBP: 2_000,
				PositionLimit:   5_000,
				CollarBP:        1_000,
				ReferencePrice:  10_000,
			},
			{
				ID:              "SIM",
				TickSize:        5,
				LotSize:         10,
				InitialMarginBP: 2_500,
				PositionLimit:   2_000,
				CollarBP:        1_500,
				ReferencePrice:  25_000,
			},
		},
		Latency: map[string]latency.Profile{
			"hft": {
				Order:      latency.Leg{Base: 50 * time.Microsecond, Jitter: 50 * time.Microsecond},
				MarketData: latency.Leg{Base: 30 * time.Microsecond, Jitter: 30 * time.Microsecond},
			},
			"algo": {
				Order:      latency.Leg{Base: 500 * time.Microsecond, Jitter: time.Millisecond},
				MarketData: latency.Leg{Base: 500 * time.Microsecond, Jitter: time.Millisecond},
			},
			"retail": {
				Order:      latency.Leg{Base: 20 * time.Millisecond, Jitter: 60 * time.Millisecond},
				MarketData: latency.Leg{Base: 20 * time.Millisecond, Jitter: 40 * time.Millisecond},
			},
		},
		DefaultLatency: latency.Profile{
			Order:      latency.Leg{Base: time.Millisecond, Jitter: 5 * time.Millisecond},
			MarketData: latency.Leg{Base: time.Millisecond, Jitter: 5 * time.Millisecond},
		},
	}
}

// defaultRoster funds and wires the demo agents.
func defaultRoster() []exchange.Member {
	members := []exchange.Member{
		{
			ID:   "mm-1",
			Cash: 50_000_000,
			Agent: &agent.MarketMaker{
				AgentName:  "mm-1",
				Instrument: "FCT",
				TickSize:   1,
				HalfSpread: 3,
				Quantity:   50,
				Display:    10,
				MaxPos:     500,
			},
		},
		{
			ID:   "mm-2",
			Cash: 50_000_000,
			Agent: &agent.MarketMaker{
				AgentName:  "mm-2",
				Instrument: "SIM",
				TickSize:   5,
				HalfSpread: 2,
				Quantity:   100,
				Display:    20,
				MaxPos:     400,
			},
		},
		{
			ID:   "momo-1",
			Cash: 20_000_000,
			Agent: &agent.MomentumTrader{
				AgentName:  "momo-1",
				Instrument: "FCT",
				Fast:       10,
				Slow:       40,
				Quantity:   20,
			},
		},
		{
			ID:   "news-1",
			Cash: 20_000_000,
			Agent: &agent.NewsTrader{
				AgentName:  "news-1",
				Instrument: "FCT",
				Threshold:  0.8,
				Quantity:   25,
				Cooldown:   20,
			},
		},
	}
	for n := 1; n <= 4; n++ {
		id := fmt.Sprintf("noise-%d", n)
		instrument := "FCT"
		tick, lot := int64(1), int64(1)
		if n%2 == 0 {
			instrument = "SIM"
			tick, lot = 5, 10
		}
		members = append(members, exchange.Member{
			ID:   id,
			Cash: 10_000_000,
			Agent: &agent.NoiseTrader{
				AgentName:   id,
				Instrument:  instrument,
				TickSize:    tick,
				LotSize:     lot,
				ActProb:     0.4,
				MarketProb:  0.15,
				MaxOffset:   8,
				MaxQuantity: 30,
			},
		})
	}
	return members
}
