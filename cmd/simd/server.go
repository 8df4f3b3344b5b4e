package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/analytics"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/exchange"
)

// eventEnvelope is the wire shape of one outbound event.
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func envelope(ev analytics.Event) eventEnvelope {
	switch ev.(type) {
	case analytics.OrderAccepted:
		return eventEnvelope{Type: "order_accepted", Data: ev}
	case analytics.OrderRejected:
		return eventEnvelope{Type: "order_rejected", Data: ev}
	case analytics.TradeExecuted:
		return eventEnvelope{Type: "trade", Data: ev}
	case analytics.PhaseChanged:
		return eventEnvelope{Type: "phase_changed", Data: ev}
	case analytics.CandleClosed:
		return eventEnvelope{Type: "candle_closed", Data: ev}
	case analytics.Halted:
		return eventEnvelope{Type: "halted", Data: ev}
	case analytics.Resumed:
		return eventEnvelope{Type: "resumed", Data: ev}
	default:
		return eventEnvelope{Type: fmt.Sprintf("%T", ev), Data: ev}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newRouter builds the observer API: pull-based snapshots over HTTP and
// the push event feed over a websocket.
func newRouter(x *exchange.Exchange, events *hub[eventEnvelope], logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"phase":  string(x.Phase()),
		})
	})

	r.Get("/instruments/{instrument}/book", func(w http.ResponseWriter, req *http.Request) {
		instrument := chi.URLParam(req, "instrument")
		l1, l2, err := x.BookSnapshot(instrument)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quote": l1, "depth": l2})
	})

	r.Get("/instruments/{instrument}/tape", func(w http.ResponseWriter, req *http.Request) {
		instrument := chi.URLParam(req, "instrument")
		writeJSON(w, http.StatusOK, x.Tape(instrument))
	})

	r.Get("/participants/{participant}/positions", func(w http.ResponseWriter, req *http.Request) {
		participant := chi.URLParam(req, "participant")
		positions, cash, available, err := x.PositionSnapshot(participant)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"positions": positions,
			"cash":      cash,
			"available": available,
		})
	})

	r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		sub := events.Subscribe(256)
		defer events.Unsubscribe(sub)

		for env := range sub.ch {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
