package main

import (
	"context"
	"errors"
	"log"

	"wedge/internal/api"
	"wedge/internal/backtest"
	"wedge/internal/broker"
	"wedge/internal/data"
	"wedge/internal/events"
	"wedge/internal/market"
	"wedge/internal/strategy"
	"wedge/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	strat, err := activeStrategy(cfg.StrategyConfigPath)
	if err != nil {
		log.Fatalf("load strategy: %v", err)
	}

	var src market.Source
	if cfg.UseMockFeed {
		src = market.NewMockSource(1, cfg.StartTime, 60_000, 100, 0.5, 10_000)
	} else {
		dataset, err := data.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("open dataset: %v", err)
		}
		defer dataset.Close()

		it, err := dataset.Iterator(context.Background(), cfg.StartTime, cfg.EndTime)
		if err != nil {
			log.Fatalf("open iterator: %v", err)
		}
		defer it.Close()
		src = it
	}

	bus := events.NewBus()
	engine := backtest.NewEngine(cfg.InitialBase, cfg.InitialQuote,
		backtest.WithFee(cfg.FeeRate),
		backtest.WithBus(bus),
	)

	log.Printf("backtest: symbol=%s interval=%s strategy=%s fee=%g",
		cfg.Symbol, cfg.Interval, strat.Name(), cfg.FeeRate)

	if err := engine.Run(src, strat); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	base, quote := engine.Balances()
	log.Printf("backtest: done: base=%g quote=%g open_orders=%d",
		base, quote, len(engine.OpenOrders()))

	// Serve the report surface until interrupted so results can be
	// inspected over HTTP.
	server := api.NewServer(engine, bus, api.Meta{
		Mode:     "backtest",
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Strategy: strat.Name(),
	})
	log.Printf("backtest: report server on :%s", cfg.Port)
	if err := server.Start(":" + cfg.Port); err != nil {
		log.Fatalf("report server: %v", err)
	}
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
