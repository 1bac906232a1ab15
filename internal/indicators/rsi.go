package indicators

import "wedge/internal/market"

// RSI is a Relative Strength Index over the candle body (close minus
// open), computed on a rolling window without smoothing.
type RSI struct {
	period  int
	sumGain float64
	sumLoss float64
	gains   []float64
	losses  []float64
}

func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Update(c market.Candle) {
	change := c.Close - c.Open
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.gains = append(r.gains, gain)
	r.losses = append(r.losses, loss)
	r.sumGain += gain
	r.sumLoss += loss

	if len(r.gains) > r.period {
		r.sumGain -= r.gains[0]
		r.sumLoss -= r.losses[0]
		r.gains = r.gains[1:]
		r.losses = r.losses[1:]
	}
}

// Ready reports whether a full window has been observed.
func (r *RSI) Ready() bool { return len(r.gains) == r.period }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.sumLoss == 0 {
		return 100
	}
	rs := r.sumGain / r.sumLoss
	return 100 - (100 / (1 + rs))
}

func (r *RSI) Period() int { return r.period }
