package indicators

import "wedge/internal/market"

// Range tracks the high-low spread over a rolling window of candles.
type Range struct {
	count int
	highs []float64
	lows  []float64
}

func NewRange(period int) *Range {
	return &Range{
		highs: make([]float64, period),
		lows:  make([]float64, period),
	}
}

func (r *Range) Update(c market.Candle) {
	i := r.count % len(r.highs)
	r.highs[i] = c.High
	r.lows[i] = c.Low
	r.count++
}

func (r *Range) Value() float64 {
	n := len(r.highs)
	if r.count < n {
		n = r.count
	}
	if n == 0 {
		return 0
	}
	high := r.highs[0]
	low := r.lows[0]
	for i := 1; i < n; i++ {
		if r.highs[i] > high {
			high = r.highs[i]
		}
		if r.lows[i] < low {
			low = r.lows[i]
		}
	}
	return high - low
}

func (r *Range) Period() int { return len(r.highs) }

// Ready reports whether the window is full.
func (r *Range) Ready() bool { return r.count >= len(r.highs) }
