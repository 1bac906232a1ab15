// Package backtest implements the deterministic order-lifecycle matching
// engine. It replays candles through an order graph that encodes
// OCO/OTO/OTOCO linkage and settles balances from the resulting fills;
// two runs over the same candle sequence produce identical fills.
package backtest

import (
	"wedge/internal/broker"
	"wedge/internal/market"
)

// OrderType tags the fill condition of an order.
type OrderType int

const (
	TypeLimit OrderType = iota
	TypeMarket
	TypeStopLoss
)

func (t OrderType) String() string {
	switch t {
	case TypeLimit:
		return "LIMIT"
	case TypeMarket:
		return "MARKET"
	case TypeStopLoss:
		return "STOP_LOSS"
	default:
		return "UNKNOWN"
	}
}

// Order is one exchange-facing instruction in the graph. Orders are
// created by the engine, mutated only by its tick loop, and never
// destroyed: terminal orders stay in the arena for audit but leave the
// active set.
type Order struct {
	ID       uint64
	Type     OrderType
	Side     broker.Side
	Price    float64 // limit or stop price; zero for market orders
	Quantity float64
	Status   broker.Status

	// populated at group-creation time; symmetric for OCO pairs
	triggers []uint64
	cancels  []uint64
}

// Event is a side effect produced by evaluating an order against a
// candle. Events are applied by the engine in the order they were
// produced: fill, then trigger, then cancel.
type Event interface{ isEvent() }

// FillEvent settles balances for one executed order.
type FillEvent struct {
	OrderID uint64
	Side    broker.Side
	Base    float64 // base asset quantity
	Quote   float64 // quote amount at the execution price
	Price   float64
}

// TriggerEvent activates pending orders named by the filled order.
type TriggerEvent struct {
	OrderID uint64
	Orders  []uint64
}

// CancelEvent force-cancels orders named by the filled order.
type CancelEvent struct {
	OrderID uint64
	Orders  []uint64
}

func (FillEvent) isEvent()    {}
func (TriggerEvent) isEvent() {}
func (CancelEvent) isEvent()  {}

// Evaluate runs the type-specific fill test. It is pure: the order is not
// mutated and at most one fill is produced per call. A nil result means
// the candle does not fill the order.
//
// Limit orders use touch semantics: any wick crossing the limit price
// executes at the limit price. The stop-loss comparisons mirror the limit
// comparisons with sides swapped; this reproduces the reference behavior
// verbatim and is flagged for product-owner clarification.
func (o *Order) Evaluate(c market.Candle) []Event {
	var price float64
	filled := false

	switch o.Type {
	case TypeLimit:
		if o.Side == broker.SideBuy && c.Low <= o.Price {
			price, filled = o.Price, true
		}
		if o.Side == broker.SideSell && o.Price <= c.High {
			price, filled = o.Price, true
		}
	case TypeMarket:
		price, filled = c.Close, true
	case TypeStopLoss:
		if o.Side == broker.SideBuy && o.Price <= c.High {
			price, filled = o.Price, true
		}
		if o.Side == broker.SideSell && c.Low <= o.Price {
			price, filled = o.Price, true
		}
	}

	if !filled {
		return nil
	}

	events := []Event{FillEvent{
		OrderID: o.ID,
		Side:    o.Side,
		Base:    o.Quantity,
		Quote:   o.Quantity * price,
		Price:   price,
	}}
	if len(o.triggers) > 0 {
		events = append(events, TriggerEvent{OrderID: o.ID, Orders: o.triggers})
	}
	if len(o.cancels) > 0 {
		events = append(events, CancelEvent{OrderID: o.ID, Orders: o.cancels})
	}
	return events
}
