package latency

import (
	"math/rand"
	"testing"
	"time"
)

func newTestModel() *Model {
	profiles := map[string]Profile{
		"hft": {
			Order:      Leg{Base: 50 * time.Microsecond, Jitter: 10 * time.Microsecond},
			MarketData: Leg{Base: 30 * time.Microsecond, Jitter: 5 * time.Microsecond},
		},
	}
	fallback := Profile{
		Order:      Leg{Base: time.Millisecond, Jitter: time.Millisecond},
		MarketData: Leg{Base: time.Millisecond, Jitter: time.Millisecond},
	}
	return NewModel(profiles, fallback)
}

func TestDelay_WithinLegBounds(t *testing.T) {
	m := newTestModel()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d := m.Delay(KindOrder, "hft", rng)
		if d < 50_000 || d >= 60_000 {
			t.Fatalf("order delay %d outside [50000, 60000)", d)
		}
		d = m.Delay(KindMarketData, "hft", rng)
		if d < 30_000 || d >= 35_000 {
			t.Fatalf("market data delay %d outside [30000, 35000)", d)
		}
	}
}

func TestDelay_UnknownClassUsesFallback(t *testing.T) {
	m := newTestModel()
	rng := rand.New(rand.NewSource(1))
	d := m.Delay(KindOrder, "unknown", rng)
	if d < 1_000_000 || d >= 2_000_000 {
		t.Errorf("fallback delay %d outside [1ms, 2ms)", d)
	}
}

func TestDelay_ZeroJitterIsDeterministic(t *testing.T) {
	m := NewModel(nil, Profile{Order: Leg{Base: 100 * time.Nanosecond}})
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if d := m.Delay(KindOrder, "any", rng); d != 100 {
			t.Fatalf("expected constant delay 100, got %d", d)
		}
	}
}

func TestDelay_SameSeedSameStream(t *testing.T) {
	m := newTestModel()
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		da := m.Delay(KindOrder, "hft", a)
		db := m.Delay(KindOrder, "hft", b)
		if da != db {
			t.Fatalf("delay streams diverged at %d: %d vs %d", i, da, db)
		}
	}
}
