package backtest

import (
	"fmt"

	"wedge/internal/broker"
	"wedge/internal/events"
	"wedge/internal/market"
)

// Run replays the source through the engine, driving the strategy once
// per candle: settle first, then snapshot, then execute the commands the
// strategy returned. Candles must arrive in non-decreasing open-time
// order; a malformed or out-of-order candle aborts the run.
func (e *Engine) Run(src market.Source, strat broker.Strategy) error {
	strat.SetBroker(e)

	var lastOpen int64 = -1
	for {
		c, ok := src.Next()
		if !ok {
			break
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("backtest: %w", err)
		}
		if c.OpenTime < lastOpen {
			return fmt.Errorf("backtest: candle out of order: %d after %d", c.OpenTime, lastOpen)
		}
		lastOpen = c.OpenTime

		e.Tick(c)

		for _, cmd := range strat.OnTick(e.Snapshot(c)) {
			e.Execute(cmd)
		}

		if e.bus != nil {
			e.bus.Publish(events.EventTick, events.Tick{
				OpenTime: c.OpenTime,
				Close:    c.Close,
				Base:     e.base,
				Quote:    e.quote,
			})
		}
	}
	return src.Err()
}

// Execute dispatches one strategy command.
func (e *Engine) Execute(cmd broker.Command) {
	switch cmd := cmd.(type) {
	case broker.CancelOrder:
		e.CancelOrder(cmd.OrderID)
	case broker.CancelOrderList:
		e.CancelOrderList(cmd.ListID)
	case broker.OrderSpec:
		e.NewOrder(cmd)
	case broker.OrderListSpec:
		e.NewOrderList(cmd)
	default:
		panic(fmt.Sprintf("backtest: unknown command %T", cmd))
	}
}
