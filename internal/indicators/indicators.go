// Package indicators provides candle-driven technical indicators used by
// the bundled strategies.
package indicators

import "wedge/internal/market"

// Indicator consumes candles and exposes a single value.
type Indicator interface {
	Update(c market.Candle)
	Value() float64
	// Period is the number of candles needed before Value is meaningful.
	Period() int
}

// Context aggregates indicators so a strategy can update them in one call
// and size its warm-up window.
type Context struct {
	indicators []Indicator
}

func (x *Context) Add(ind Indicator) Indicator {
	x.indicators = append(x.indicators, ind)
	return ind
}

func (x *Context) Update(c market.Candle) {
	for _, ind := range x.indicators {
		ind.Update(c)
	}
}

// MaxPeriod is the longest warm-up among registered indicators.
func (x *Context) MaxPeriod() int {
	max := 0
	for _, ind := range x.indicators {
		if p := ind.Period(); p > max {
			max = p
		}
	}
	return max
}
