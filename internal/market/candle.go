package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Candle is a single OHLCV bar. Times are unix milliseconds.
type Candle struct {
	OpenTime      int64
	CloseTime     int64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	QuoteVolume   float64
	Trades        int
	TakerBuyBase  float64
	TakerBuyQuote float64
}

var (
	ErrCandleTimeOrder = errors.New("candle close time before open time")
	ErrCandlePrice     = errors.New("candle price out of range")
)

// Validate rejects malformed candles before they reach the tick loop.
func (c Candle) Validate() error {
	if c.CloseTime < c.OpenTime {
		return fmt.Errorf("%w: open=%d close=%d", ErrCandleTimeOrder, c.OpenTime, c.CloseTime)
	}
	for _, p := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: %v", ErrCandlePrice, p)
		}
	}
	if c.Low > c.High {
		return fmt.Errorf("%w: low=%v high=%v", ErrCandlePrice, c.Low, c.High)
	}
	return nil
}

// Duration is the covered interval.
func (c Candle) Duration() time.Duration {
	return time.Duration(c.CloseTime-c.OpenTime) * time.Millisecond
}

// Merge combines two adjacent candles into one coarser bar. A zero-volume
// side is treated as empty and the other side is returned unchanged.
// current must start where previous ends.
func Merge(previous, current Candle) (Candle, error) {
	if previous.Volume == 0 {
		return current, nil
	}
	if current.Volume == 0 {
		return previous, nil
	}
	if previous.CloseTime != current.OpenTime {
		return Candle{}, fmt.Errorf("merge gap: previous closes at %d, current opens at %d",
			previous.CloseTime, current.OpenTime)
	}

	return Candle{
		OpenTime:      previous.OpenTime,
		CloseTime:     current.CloseTime,
		Open:          previous.Open,
		Close:         current.Close,
		High:          math.Max(previous.High, current.High),
		Low:           math.Min(previous.Low, current.Low),
		Volume:        previous.Volume + current.Volume,
		QuoteVolume:   previous.QuoteVolume + current.QuoteVolume,
		Trades:        previous.Trades + current.Trades,
		TakerBuyBase:  previous.TakerBuyBase + current.TakerBuyBase,
		TakerBuyQuote: previous.TakerBuyQuote + current.TakerBuyQuote,
	}, nil
}
