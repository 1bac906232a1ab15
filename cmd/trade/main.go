package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wedge/internal/api"
	"wedge/internal/broker"
	"wedge/internal/events"
	"wedge/internal/live"
	"wedge/internal/state"
	"wedge/internal/strategy"
	"wedge/pkg/config"
	"wedge/pkg/db"
	spot "wedge/pkg/exchange/binance"
	binance "wedge/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.BinanceAPIKey == "" || cfg.BinanceAPISecret == "" {
		log.Fatal("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}

	strat, err := activeStrategy(cfg.StrategyConfigPath)
	if err != nil {
		log.Fatalf("load strategy: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.EnsureSchema(database.DB); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resume strategy state from the previous run.
	stateMgr := state.NewManager(database)
	if saved, err := stateMgr.Load(ctx, strat.Name()); err != nil {
		log.Fatalf("load strategy state: %v", err)
	} else if saved != nil {
		if err := strat.SetState(saved); err != nil {
			log.Fatalf("restore strategy state: %v", err)
		}
		log.Printf("trade: restored state for %s", strat.Name())
	}

	trade := spot.New(spot.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.BinanceTestnet,
	})
	if srvTime, err := trade.ServerTime(ctx); err != nil {
		log.Fatalf("exchange unreachable: %v", err)
	} else if drift := time.Now().UnixMilli() - srvTime; drift > 1000 || drift < -1000 {
		log.Printf("trade: warning: clock drift %dms against exchange", drift)
	}

	bus := events.NewBus()
	engine := live.NewEngine(live.Config{
		Symbol:       cfg.Symbol,
		Interval:     cfg.Interval,
		BaseAsset:    cfg.BaseAsset,
		QuoteAsset:   cfg.QuoteAsset,
		PollInterval: cfg.PollInterval,
		Retries:      cfg.Retries,
		Backoff:      cfg.Backoff,
	}, trade, binance.NewClient(cfg.BinanceTestnet), bus)

	server := api.NewServer(engine, bus, api.Meta{
		Mode:     "live",
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Strategy: strat.Name(),
	})
	go func() {
		log.Printf("trade: report server on :%s", cfg.Port)
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("report server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("trade: interrupted, stopping")
		cancel()
	}()

	err = engine.Run(ctx, strat)

	// Persist strategy state for the next run.
	if st, stErr := strat.GetState(); stErr != nil {
		log.Printf("trade: serialize strategy state: %v", stErr)
	} else if saveErr := stateMgr.Save(context.Background(), strat.Name(), st); saveErr != nil {
		log.Printf("trade: save strategy state: %v", saveErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("trade: engine stopped: %v", err)
	}
	log.Println("trade: stopped")
}

// activeStrategy builds the first active entry in the strategy config.
func activeStrategy(path string) (broker.Strategy, error) {
	configs, err := strategy.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		if c.IsActive {
			return strategy.New(c)
		}
	}
	return nil, errors.New("no active strategy in config")
}
