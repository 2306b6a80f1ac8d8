package marketdata

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

type profile struct {
	Base float64
	Vol  float64
	Prec int32
}

var instrumentProfiles = map[string]profile{
	"EURUSD": {Base: 1.0860, Vol: 0.0004, Prec: 5},
	"GBPUSD": {Base: 1.2750, Vol: 0.0005, Prec: 5},
	"USDJPY": {Base: 147.20, Vol: 0.05, Prec: 3},
	"XAUUSD": {Base: 2410.0, Vol: 1.2, Prec: 2},
}

// Simulator produces a jittered random walk around each instrument's base
// price. It stands in for a live price feed.
type Simulator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]float64
}

func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rng:  rand.New(rand.NewSource(seed)),
		last: make(map[string]float64),
	}
}

// Quote returns the current simulated mid price for the instrument.
func (s *Simulator) Quote(instrument string) (decimal.Decimal, error) {
	p, ok := instrumentProfiles[instrument]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no price profile for %s", instrument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.last[instrument]
	if !ok {
		price = p.Base
	}
	price += (s.rng.Float64()*2 - 1) * p.Vol
	// Keep the walk tethered so long runs cannot drift out of the profile.
	if price > p.Base*1.02 {
		price = p.Base * 1.02
	}
	if price < p.Base*0.98 {
		price = p.Base * 0.98
	}
	s.last[instrument] = price
	return decimal.NewFromFloat(price).Round(p.Prec), nil
}

// Spread returns half the simulated bid/ask spread for the instrument.
func (s *Simulator) Spread(instrument string) decimal.Decimal {
	p, ok := instrumentProfiles[instrument]
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(p.Vol * 0.8).Round(p.Prec)
}

// Known reports whether the simulator can price the instrument.
func (s *Simulator) Known(instrument string) bool {
	_, ok := instrumentProfiles[instrument]
	return ok
}

// Instruments lists every instrument the simulator can price.
func Instruments() []string {
	out := make([]string, 0, len(instrumentProfiles))
	for k := range instrumentProfiles {
		out = append(out, k)
	}
	return out
}
