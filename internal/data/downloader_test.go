package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"

	binance "wedge/pkg/market/binance"
)

// klineRow builds one raw kline in the wire format of the REST endpoint.
func klineRow(openTime int64, price float64) []any {
	return []any{
		openTime,
		fmt.Sprintf("%f", price),     // open
		fmt.Sprintf("%f", price+1),   // high
		fmt.Sprintf("%f", price-1),   // low
		fmt.Sprintf("%f", price),     // close
		"10",                         // volume
		openTime + 59_999,            // close time
		"1000",                       // quote volume
		5,                            // trades
		"4",                          // taker buy base
		"400",                        // taker buy quote
		"0",                          // ignore
	}
}

func klineServer(t *testing.T, rows [][]any, failures int) *httptest.Server {
	t.Helper()
	remaining := failures
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			http.NotFound(w, r)
			return
		}
		if remaining > 0 {
			remaining--
			http.Error(w, "simulated outage", http.StatusInternalServerError)
			return
		}
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		var page [][]any
		for _, row := range rows {
			if row[0].(int64) >= start {
				page = append(page, row)
			}
		}
		if page == nil {
			page = [][]any{}
		}
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}))
}

func testDownloader(t *testing.T, serverURL string) (*Downloader, *Dataset) {
	t.Helper()
	ds, err := Open(filepath.Join(t.TempDir(), "candles.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { ds.Close() })

	client := binance.NewClient(false)
	client.BaseURL = serverURL

	return &Downloader{
		Client:   client,
		Dataset:  ds,
		Limiter:  rate.NewLimiter(rate.Inf, 1),
		Backoff:  time.Millisecond,
		Symbol:   "BTCUSDT",
		Interval: "1m",
	}, ds
}

func TestDownloaderStoresAllCandles(t *testing.T) {
	rows := [][]any{
		klineRow(0, 100),
		klineRow(60_000, 101),
		klineRow(120_000, 102),
	}
	srv := klineServer(t, rows, 0)
	defer srv.Close()

	dl, ds := testDownloader(t, srv.URL)
	if err := dl.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	n, err := ds.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count=%d, expected 3", n)
	}
	max, _ := ds.MaxOpenTime(context.Background())
	if max != 120_000 {
		t.Fatalf("MaxOpenTime=%d, expected 120000", max)
	}
}

// A download resumes from the newest stored candle rather than refetching
// the whole history.
func TestDownloaderResumes(t *testing.T) {
	rows := [][]any{
		klineRow(0, 100),
		klineRow(60_000, 101),
		klineRow(120_000, 102),
	}
	srv := klineServer(t, rows, 0)
	defer srv.Close()

	dl, ds := testDownloader(t, srv.URL)
	ctx := context.Background()

	// Pre-seed the first candle as if a previous run stored it.
	if err := ds.Insert(ctx, candleFromKline(binance.Kline{
		OpenTime: 0, CloseTime: 59_999,
		Open: 100, High: 101, Low: 99, Close: 100, Volume: 10,
	})); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	if err := dl.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n, _ := ds.Count(ctx); n != 3 {
		t.Fatalf("Count=%d, expected 3", n)
	}
}

// Transient request failures are retried; the run still completes.
func TestDownloaderRetriesTransientFailures(t *testing.T) {
	rows := [][]any{klineRow(0, 100)}
	srv := klineServer(t, rows, 2)
	defer srv.Close()

	dl, ds := testDownloader(t, srv.URL)
	dl.Retries = 3
	if err := dl.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n, _ := ds.Count(context.Background()); n != 1 {
		t.Fatalf("Count=%d, expected 1", n)
	}
}

// Exhausting the retry budget surfaces an error so the caller can abort.
func TestDownloaderGivesUpAfterRetries(t *testing.T) {
	srv := klineServer(t, nil, 100)
	defer srv.Close()

	dl, _ := testDownloader(t, srv.URL)
	dl.Retries = 2
	if err := dl.Run(context.Background()); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}
