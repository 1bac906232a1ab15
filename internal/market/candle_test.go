package market

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCandleValidate(t *testing.T) {
	valid := Candle{OpenTime: 0, CloseTime: 60_000, Open: 100, High: 105, Low: 95, Close: 102}

	tests := []struct {
		name    string
		mutate  func(c *Candle)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Candle) {}},
		{
			name:    "close time before open time",
			mutate:  func(c *Candle) { c.CloseTime = -1 },
			wantErr: ErrCandleTimeOrder,
		},
		{
			name:    "negative price",
			mutate:  func(c *Candle) { c.Low = -1 },
			wantErr: ErrCandlePrice,
		},
		{
			name:    "nan price",
			mutate:  func(c *Candle) { c.Close = math.NaN() },
			wantErr: ErrCandlePrice,
		},
		{
			name:    "infinite price",
			mutate:  func(c *Candle) { c.High = math.Inf(1) },
			wantErr: ErrCandlePrice,
		},
		{
			name:    "low above high",
			mutate:  func(c *Candle) { c.Low, c.High = 106, 94 },
			wantErr: ErrCandlePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate returned error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v, expected %v", err, tt.wantErr)
			}
		})
	}
}

func TestCandleDuration(t *testing.T) {
	c := Candle{OpenTime: 0, CloseTime: 3_600_000}
	if got := c.Duration(); got != time.Hour {
		t.Fatalf("Duration=%v, expected 1h", got)
	}
}

func TestMerge(t *testing.T) {
	prev := Candle{
		OpenTime: 0, CloseTime: 60_000,
		Open: 100, High: 106, Low: 99, Close: 104,
		Volume: 10, QuoteVolume: 1000, Trades: 5, TakerBuyBase: 4, TakerBuyQuote: 400,
	}
	curr := Candle{
		OpenTime: 60_000, CloseTime: 120_000,
		Open: 104, High: 105, Low: 95, Close: 97,
		Volume: 20, QuoteVolume: 2000, Trades: 7, TakerBuyBase: 6, TakerBuyQuote: 600,
	}

	merged, err := Merge(prev, curr)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if merged.OpenTime != 0 || merged.CloseTime != 120_000 {
		t.Fatalf("merged span=%d..%d, expected 0..120000", merged.OpenTime, merged.CloseTime)
	}
	if merged.Open != 100 || merged.Close != 97 {
		t.Fatalf("merged open/close=%v/%v, expected 100/97", merged.Open, merged.Close)
	}
	if merged.High != 106 || merged.Low != 95 {
		t.Fatalf("merged high/low=%v/%v, expected 106/95", merged.High, merged.Low)
	}
	if merged.Volume != 30 || merged.Trades != 12 {
		t.Fatalf("merged volume/trades=%v/%d, expected 30/12", merged.Volume, merged.Trades)
	}
}

func TestMergeZeroVolumePassthrough(t *testing.T) {
	empty := Candle{OpenTime: 0, CloseTime: 60_000}
	full := Candle{OpenTime: 60_000, CloseTime: 120_000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 5}

	if got, err := Merge(empty, full); err != nil || got != full {
		t.Fatalf("Merge(empty, full)=%+v, %v; expected passthrough", got, err)
	}
	if got, err := Merge(full, empty); err != nil || got != full {
		t.Fatalf("Merge(full, empty)=%+v, %v; expected passthrough", got, err)
	}
}

func TestMergeRejectsGap(t *testing.T) {
	prev := Candle{OpenTime: 0, CloseTime: 60_000, Volume: 1}
	curr := Candle{OpenTime: 120_000, CloseTime: 180_000, Volume: 1}

	if _, err := Merge(prev, curr); err == nil {
		t.Fatalf("expected error for non-adjacent candles")
	}
}

func TestSliceSource(t *testing.T) {
	candles := []Candle{
		{OpenTime: 0, CloseTime: 60_000},
		{OpenTime: 60_000, CloseTime: 120_000},
	}
	src := NewSliceSource(candles)

	for i := range candles {
		c, ok := src.Next()
		if !ok {
			t.Fatalf("Next()=false at %d, expected candle", i)
		}
		if c.OpenTime != candles[i].OpenTime {
			t.Fatalf("candle %d OpenTime=%d, expected %d", i, c.OpenTime, candles[i].OpenTime)
		}
	}
	if _, ok := src.Next(); ok {
		t.Fatalf("Next()=true after exhaustion")
	}
	if err := src.Err(); err != nil {
		t.Fatalf("Err=%v, expected nil", err)
	}
}

func TestMockSourceIsDeterministic(t *testing.T) {
	gen := func() []Candle {
		src := NewMockSource(7, 0, 60_000, 100, 0.5, 50)
		var out []Candle
		for {
			c, ok := src.Next()
			if !ok {
				break
			}
			out = append(out, c)
		}
		return out
	}

	a, b := gen(), gen()
	if len(a) != 50 || len(b) != 50 {
		t.Fatalf("lengths=%d/%d, expected 50/50", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("candle %d diverged: %+v vs %+v", i, a[i], b[i])
		}
		if err := a[i].Validate(); err != nil {
			t.Fatalf("candle %d invalid: %v", i, err)
		}
	}
}
