package indicators

import (
	"math"
	"testing"

	"wedge/internal/market"
)

func closeCandle(close float64) market.Candle {
	return market.Candle{Open: close, High: close, Low: close, Close: close}
}

func bodyCandle(open, close float64) market.Candle {
	high, low := open, close
	if close > high {
		high = close
	}
	if open < low {
		low = open
	}
	return market.Candle{Open: open, High: high, Low: low, Close: close}
}

func TestSMA(t *testing.T) {
	s := NewSMA(3)
	for _, v := range []float64{10, 20, 30} {
		s.Update(closeCandle(v))
	}
	if !s.Ready() {
		t.Fatalf("SMA not ready after %d samples", s.Period())
	}
	if got := s.Value(); got != 20 {
		t.Fatalf("Value=%v, expected 20", got)
	}

	// Window slides: 10 drops out.
	s.Update(closeCandle(40))
	if got := s.Value(); got != 30 {
		t.Fatalf("Value=%v after slide, expected 30", got)
	}
}

func TestEMA(t *testing.T) {
	e := NewEMA(9) // alpha = 0.2
	e.Update(closeCandle(100))
	if got := e.Value(); got != 100 {
		t.Fatalf("Value=%v after seed, expected 100", got)
	}

	e.Update(closeCandle(110))
	want := 110*0.2 + 100*0.8
	if got := e.Value(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Value=%v, expected %v", got, want)
	}
}

func TestRSI(t *testing.T) {
	r := NewRSI(4)
	if r.Ready() {
		t.Fatalf("RSI ready before any samples")
	}

	// Two winning bodies of 10, two losing bodies of 5: RS = 20/10.
	r.Update(bodyCandle(100, 110))
	r.Update(bodyCandle(110, 120))
	r.Update(bodyCandle(120, 115))
	r.Update(bodyCandle(115, 110))

	if !r.Ready() {
		t.Fatalf("RSI not ready after full window")
	}
	want := 100 - 100/(1+2.0)
	if got := r.Value(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Value=%v, expected %v", got, want)
	}
}

func TestRSIAllGainsIs100(t *testing.T) {
	r := NewRSI(3)
	for i := 0; i < 3; i++ {
		r.Update(bodyCandle(100, 105))
	}
	if got := r.Value(); got != 100 {
		t.Fatalf("Value=%v, expected 100 with zero losses", got)
	}
}

func TestRange(t *testing.T) {
	r := NewRange(3)
	r.Update(market.Candle{High: 105, Low: 95})
	if got := r.Value(); got != 10 {
		t.Fatalf("partial Value=%v, expected 10", got)
	}

	r.Update(market.Candle{High: 110, Low: 100})
	r.Update(market.Candle{High: 103, Low: 90})
	if !r.Ready() {
		t.Fatalf("Range not ready after full window")
	}
	if got := r.Value(); got != 20 {
		t.Fatalf("Value=%v, expected 20", got)
	}

	// Oldest candle (105/95) rotates out.
	r.Update(market.Candle{High: 104, Low: 101})
	if got := r.Value(); got != 20 {
		t.Fatalf("Value=%v after rotation, expected 20", got)
	}
	r.Update(market.Candle{High: 104, Low: 101})
	r.Update(market.Candle{High: 104, Low: 101})
	if got := r.Value(); got != 3 {
		t.Fatalf("Value=%v after window turnover, expected 3", got)
	}
}

func TestContextMaxPeriod(t *testing.T) {
	var ctx Context
	ctx.Add(NewSMA(5))
	rsi := ctx.Add(NewRSI(14))
	ctx.Add(NewRange(3))

	if got := ctx.MaxPeriod(); got != 14 {
		t.Fatalf("MaxPeriod=%v, expected 14", got)
	}

	for i := 0; i < 14; i++ {
		ctx.Update(bodyCandle(100, 101))
	}
	if got := rsi.(*RSI); !got.Ready() {
		t.Fatalf("RSI not updated through the context")
	}
}
