package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wedge/internal/data"
	"wedge/internal/events"
	"wedge/pkg/config"
	binance "wedge/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dataset, err := data.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open dataset: %v", err)
	}
	defer dataset.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("download: interrupted, stopping")
		cancel()
	}()

	dl := &data.Downloader{
		Client:   binance.NewClient(cfg.BinanceTestnet),
		Dataset:  dataset,
		Bus:      events.NewBus(),
		Retries:  cfg.Retries,
		Backoff:  cfg.Backoff,
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
	}

	log.Printf("download: symbol=%s interval=%s db=%s", cfg.Symbol, cfg.Interval, cfg.DBPath)
	if err := dl.Run(ctx); err != nil {
		log.Fatalf("download failed: %v", err)
	}

	count, err := dataset.Count(ctx)
	if err != nil {
		log.Fatalf("count candles: %v", err)
	}
	log.Printf("download: done: %d candles stored", count)

	if cfg.Follow {
		stream := binance.NewStreamClient(cfg.BinanceTestnet)
		if err := dl.Follow(ctx, stream); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("follow failed: %v", err)
		}
	}
}
