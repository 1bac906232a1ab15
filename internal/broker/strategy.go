package broker

import (
	"encoding/json"

	"wedge/internal/market"
)

// OrderView is the read-only state of one order as seen by a strategy.
type OrderView struct {
	ID     uint64
	ListID uint64
	InList bool
	Side   Side
	Status Status
}

// OrderListView is a group snapshot. Terminal members are included with
// their statuses so a strategy can detect fills by diffing.
type OrderListView struct {
	ID     uint64
	Orders []OrderView
}

// Snapshot is the per-tick event a strategy receives. It is the only
// channel through which a strategy learns about fills.
type Snapshot struct {
	Candle         market.Candle
	Base           float64
	Quote          float64
	OpenOrders     []OrderView
	OpenOrderLists []OrderListView
}

// Strategy reacts to ticks by issuing commands. Returned commands are
// executed after OnTick returns; a strategy that needs the identity of an
// order it creates calls the Broker handle directly instead.
type Strategy interface {
	Name() string
	// SetBroker hands the strategy its broker before the first tick.
	SetBroker(b Broker)
	OnTick(snap Snapshot) []Command

	// GetState returns the serializable state of the strategy.
	GetState() (json.RawMessage, error)
	// SetState restores the state of the strategy.
	SetState(data json.RawMessage) error
}
