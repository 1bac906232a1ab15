package indicators

import "wedge/internal/market"

// SMA is a simple moving average of close prices.
type SMA struct {
	period int
	sum    float64
	prices []float64
}

func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Update(c market.Candle) {
	s.prices = append(s.prices, c.Close)
	s.sum += c.Close
	if len(s.prices) > s.period {
		s.sum -= s.prices[0]
		s.prices = s.prices[1:]
	}
}

func (s *SMA) Value() float64 {
	if len(s.prices) == 0 {
		return 0
	}
	return s.sum / float64(s.period)
}

func (s *SMA) Period() int { return s.period }

// Ready reports whether the window is full.
func (s *SMA) Ready() bool { return len(s.prices) == s.period }

// EMA is an exponential moving average of close prices.
type EMA struct {
	period   int
	alpha    float64
	value    float64
	hasValue bool
}

func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2.0 / float64(period+1)}
}

func (e *EMA) Update(c market.Candle) {
	e.UpdateValue(c.Close)
}

// UpdateValue feeds a raw sample, for composite indicators that smooth
// something other than the close.
func (e *EMA) UpdateValue(v float64) {
	if !e.hasValue {
		e.hasValue = true
		e.value = v
		return
	}
	e.value = v*e.alpha + (1-e.alpha)*e.value
}

func (e *EMA) Value() float64 { return e.value }

func (e *EMA) Period() int { return e.period }
