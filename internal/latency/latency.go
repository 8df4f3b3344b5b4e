// Package latency injects simulated network delay between an agent's
// decision and its effect on the book, and between a book event and its
// visibility to the agent. All randomness comes from the caller-supplied
// seeded generator, so identical seeds reproduce identical delay streams.
package latency

import (
	"math/rand"
	"time"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
)

// Kind distinguishes the two legs of the simulated round trip.
type Kind string

const (
	// KindOrder delays an agent action on its way to the book.
	KindOrder Kind = "order"
	// KindMarketData delays a book event on its way back to the agent.
	KindMarketData Kind = "market_data"
)

// Leg is one delay distribution: a fixed base plus uniform jitter in
// [0, Jitter).
type Leg struct {
	Base   time.Duration
	Jitter time.Duration
}

// Profile holds the two legs of a participant class's round trip.
type Profile struct {
	Order      Leg
	MarketData Leg
}

// Model draws delays per participant class.
type Model struct {
	profiles map[string]Profile
	fallback Profile
}

// NewModel creates a latency model. fallback applies to classes without
// a profile of their own.
func NewModel(profiles map[string]Profile, fallback Profile) *Model {
	if profiles == nil {
		profiles = make(map[string]Profile)
	}
	return &Model{profiles: profiles, fallback: fallback}
}

// Delay draws one delay for the given event kind and participant class.
func (m *Model) Delay(kind Kind, class string, rng *rand.Rand) domain.Nanos {
	p, ok := m.profiles[class]
	if !ok {
		p = m.fallback
	}
	leg := p.Order
	if kind == KindMarketData {
		leg = p.MarketData
	}
	d := leg.Base.Nanoseconds()
	if leg.Jitter > 0 {
		d += rng.Int63n(leg.Jitter.Nanoseconds())
	}
	return domain.Nanos(d)
}
