package data

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"wedge/internal/events"
	"wedge/internal/market"
	binance "wedge/pkg/market/binance"
)

const downloadPageSize = 1000

// Downloader backfills a dataset from the Binance klines endpoint,
// resuming from the newest stored candle. Requests are rate limited;
// failures retry a fixed number of times with a fixed backoff and then
// give up with an error (the caller aborts the process).
type Downloader struct {
	Client   *binance.Client
	Dataset  *Dataset
	Bus      *events.Bus
	Limiter  *rate.Limiter
	Retries  int
	Backoff  time.Duration
	Symbol   string
	Interval string
}

func (dl *Downloader) withDefaults() {
	if dl.Limiter == nil {
		// klines weight is 2; stay well under the 6000/min request cap
		dl.Limiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)
	}
	if dl.Retries == 0 {
		dl.Retries = 3
	}
	if dl.Backoff == 0 {
		dl.Backoff = 2 * time.Second
	}
}

// Run downloads until the dataset reaches the current time.
func (dl *Downloader) Run(ctx context.Context) error {
	dl.withDefaults()

	start, err := dl.Dataset.MaxOpenTime(ctx)
	if err != nil {
		return err
	}
	end := time.Now().UnixMilli()
	stored := 0

	for start < end {
		if err := dl.Limiter.Wait(ctx); err != nil {
			return err
		}

		klines, err := dl.fetch(ctx, start, end)
		if err != nil {
			return err
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			c := candleFromKline(k)
			if err := dl.Dataset.Insert(ctx, c); err != nil {
				return err
			}
			start = c.CloseTime
			stored++
		}

		if dl.Bus != nil {
			dl.Bus.Publish(events.EventDownloadProgress, events.DownloadProgress{
				Symbol:   dl.Symbol,
				Interval: dl.Interval,
				Stored:   stored,
				UpTo:     start,
			})
		}
		log.Printf("download %s %s: %d candles, up to %s",
			dl.Symbol, dl.Interval, stored, time.UnixMilli(start).UTC().Format(time.RFC3339))
	}
	return nil
}

// Follow tails the live kline stream after a backfill, storing each
// candle as its interval closes. It returns when ctx is canceled or the
// stream drops.
func (dl *Downloader) Follow(ctx context.Context, stream *binance.StreamClient) error {
	klines, stop, err := stream.SubscribeKlines(ctx, dl.Symbol, dl.Interval)
	if err != nil {
		return err
	}
	defer stop()

	log.Printf("download %s %s: following live klines", dl.Symbol, dl.Interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-klines:
			if !ok {
				return fmt.Errorf("download %s %s: stream closed", dl.Symbol, dl.Interval)
			}
			if !k.IsFinal {
				continue
			}
			if err := dl.Dataset.Insert(ctx, candleFromKline(k)); err != nil {
				return err
			}
			if dl.Bus != nil {
				dl.Bus.Publish(events.EventDownloadProgress, events.DownloadProgress{
					Symbol:   dl.Symbol,
					Interval: dl.Interval,
					Stored:   1,
					UpTo:     k.CloseTime,
				})
			}
		}
	}
}

// fetch retries a page a fixed number of times before giving up.
func (dl *Downloader) fetch(ctx context.Context, start, end int64) ([]binance.Kline, error) {
	var lastErr error
	for attempt := 0; attempt < dl.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(dl.Backoff):
			}
		}
		klines, err := dl.Client.GetKlines(ctx, dl.Symbol, dl.Interval, downloadPageSize, start, end)
		if err == nil {
			return klines, nil
		}
		lastErr = err
		log.Printf("download %s: attempt %d/%d failed: %v", dl.Symbol, attempt+1, dl.Retries, err)
	}
	return nil, fmt.Errorf("download %s %s: %w", dl.Symbol, dl.Interval, lastErr)
}

func candleFromKline(k binance.Kline) market.Candle {
	return market.Candle{
		OpenTime:      k.OpenTime,
		CloseTime:     k.CloseTime,
		Open:          k.Open,
		High:          k.High,
		Low:           k.Low,
		Close:         k.Close,
		Volume:        k.Volume,
		QuoteVolume:   k.QuoteVolume,
		Trades:        k.NumberOfTrades,
		TakerBuyBase:  k.TakerBuyBaseVolume,
		TakerBuyQuote: k.TakerBuyQuoteVolume,
	}
}
