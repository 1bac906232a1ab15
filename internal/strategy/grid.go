// Package strategy bundles the strategies shipped with the toolkit. A
// strategy only sees the broker command protocol and the per-tick
// snapshot; it detects its own fills by diffing the snapshot against the
// orders it placed.
package strategy

import (
	"encoding/json"

	"wedge/internal/broker"
	"wedge/internal/indicators"
)

// orderInfo remembers an order this strategy placed.
type orderInfo struct {
	ID    uint64  `json:"id"`
	Price float64 `json:"price"`
}

// GridStrategy keeps one resting buy and one resting sell around a
// baseline price. A fill replaces the pair one grid step around the
// filled price; leaving the grid band rebalances everything around the
// current price. An RSI below 20 flattens all resting orders.
type GridStrategy struct {
	broker broker.Broker

	gridCount   int
	gridSpacing float64
	rsi         *indicators.RSI

	baseline     float64
	orderVolume  float64
	orderBalance int
	buyOrder     *orderInfo
	sellOrder    *orderInfo
}

func NewGridStrategy(gridCount int, gridSpacing float64) *GridStrategy {
	return &GridStrategy{
		gridCount:   gridCount,
		gridSpacing: gridSpacing,
		rsi:         indicators.NewRSI(30),
	}
}

func (g *GridStrategy) Name() string { return "grid" }

func (g *GridStrategy) SetBroker(b broker.Broker) { g.broker = b }

func (g *GridStrategy) OnTick(snap broker.Snapshot) []broker.Command {
	g.rsi.Update(snap.Candle)
	if !g.rsi.Ready() {
		return nil
	}
	if g.rsi.Value() < 20 {
		g.cancelAll()
		return nil
	}

	g.detectFills(snap)

	if g.buyOrder == nil && g.sellOrder == nil {
		g.baseline = snap.Candle.Close
		g.placeInitialOrders(snap)
		return nil
	}

	price := snap.Candle.Close
	bound := g.baseline * g.gridSpacing * float64(g.gridCount)
	if price < g.baseline-bound || g.baseline+bound < price {
		g.baseline = price
		g.cancelAll()
		g.placeInitialOrders(snap)
	}
	return nil
}

// detectFills compares tracked orders against the snapshot. An order this
// strategy placed and did not cancel is filled once it leaves the open
// set.
func (g *GridStrategy) detectFills(snap broker.Snapshot) {
	open := make(map[uint64]bool, len(snap.OpenOrders))
	for _, o := range snap.OpenOrders {
		open[o.ID] = true
	}

	if g.buyOrder != nil && !open[g.buyOrder.ID] {
		filled := g.buyOrder.Price
		g.buyOrder = nil
		g.orderBalance++
		g.onFilled(filled)
		return
	}
	if g.sellOrder != nil && !open[g.sellOrder.ID] {
		filled := g.sellOrder.Price
		g.sellOrder = nil
		g.orderBalance--
		g.onFilled(filled)
	}
}

func (g *GridStrategy) onFilled(filledPrice float64) {
	g.cancelAll()
	spacing := g.gridSpacing * g.baseline
	g.placeSellOrder(filledPrice+spacing, g.orderVolume)
	g.placeBuyOrder(filledPrice-spacing, g.orderVolume)
}

func (g *GridStrategy) placeInitialOrders(snap broker.Snapshot) {
	price := snap.Candle.Close
	total := snap.Quote + snap.Base*price
	targetPosition := total / price / 2

	g.orderVolume = targetPosition / float64(g.gridCount)
	g.orderBalance = 0

	// exchange minimum notional: tiny rebalances start a fresh grid rung
	// instead
	diff := targetPosition - snap.Base
	if abs(diff)*price < 5 {
		g.placeBuyOrder(price, g.orderVolume)
		return
	}
	if diff < 0 {
		g.placeSellOrder(price, -diff)
	} else {
		g.placeBuyOrder(price, diff)
	}
}

func (g *GridStrategy) cancelAll() {
	if g.buyOrder != nil {
		g.broker.CancelOrder(g.buyOrder.ID)
		g.buyOrder = nil
	}
	if g.sellOrder != nil {
		g.broker.CancelOrder(g.sellOrder.ID)
		g.sellOrder = nil
	}
}

func (g *GridStrategy) placeBuyOrder(price, volume float64) {
	id := g.broker.NewOrder(broker.LimitOrderSpec{Side: broker.SideBuy, Price: price, Quantity: volume})
	g.buyOrder = &orderInfo{ID: id, Price: price}
}

func (g *GridStrategy) placeSellOrder(price, volume float64) {
	id := g.broker.NewOrder(broker.LimitOrderSpec{Side: broker.SideSell, Price: price, Quantity: volume})
	g.sellOrder = &orderInfo{ID: id, Price: price}
}

// GridState is the serializable state of GridStrategy.
type GridState struct {
	Baseline     float64    `json:"baseline"`
	OrderVolume  float64    `json:"order_volume"`
	OrderBalance int        `json:"order_balance"`
	BuyOrder     *orderInfo `json:"buy_order,omitempty"`
	SellOrder    *orderInfo `json:"sell_order,omitempty"`
}

func (g *GridStrategy) GetState() (json.RawMessage, error) {
	return json.Marshal(GridState{
		Baseline:     g.baseline,
		OrderVolume:  g.orderVolume,
		OrderBalance: g.orderBalance,
		BuyOrder:     g.buyOrder,
		SellOrder:    g.sellOrder,
	})
}

func (g *GridStrategy) SetState(data json.RawMessage) error {
	var state GridState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	g.baseline = state.Baseline
	g.orderVolume = state.OrderVolume
	g.orderBalance = state.OrderBalance
	g.buyOrder = state.BuyOrder
	g.sellOrder = state.SellOrder
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
