// Package broker defines the command protocol between strategies and the
// execution side (backtest matching engine or live trading engine), and
// the per-tick snapshot strategies receive. Strategies see nothing of the
// execution side except this vocabulary.
package broker

// Side is the direction of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of an order. Filled and Canceled are
// terminal.
type Status int

const (
	StatusNew Status = iota
	StatusPendingNew
	StatusPartiallyFilled // reserved; the fill logic is all-or-nothing
	StatusFilled
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPendingNew:
		return "PENDING_NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFilled || s == StatusCanceled
}

// Open reports whether the order still awaits a fill or activation.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusPendingNew
}

// Command is the closed set of instructions a strategy may issue.
type Command interface{ isCommand() }

// OrderSpec describes a single new order: limit, market or stop-loss.
type OrderSpec interface {
	Command
	isOrderSpec()
}

// LimitOrderSpec rests at a price until touched.
type LimitOrderSpec struct {
	Side     Side
	Price    float64
	Quantity float64
}

// MarketOrderSpec executes at the next close.
type MarketOrderSpec struct {
	Side     Side
	Quantity float64
}

// StopLossOrderSpec fills once price reaches the stop level.
type StopLossOrderSpec struct {
	Side     Side
	Price    float64
	Quantity float64
}

func (LimitOrderSpec) isCommand()      {}
func (LimitOrderSpec) isOrderSpec()    {}
func (MarketOrderSpec) isCommand()     {}
func (MarketOrderSpec) isOrderSpec()   {}
func (StopLossOrderSpec) isCommand()   {}
func (StopLossOrderSpec) isOrderSpec() {}

// OrderListSpec describes a conditional order group.
type OrderListSpec interface {
	Command
	isOrderListSpec()
}

// OTOSpec submits Working immediately; Pending activates when Working
// fills.
type OTOSpec struct {
	Working OrderSpec
	Pending OrderSpec
}

// OCOSpec submits both orders immediately; whichever fills first cancels
// the other.
type OCOSpec struct {
	Above OrderSpec
	Below OrderSpec
}

// OTOCOSpec submits Working immediately; its fill activates a bracket of
// two mutually-cancelling pending orders.
type OTOCOSpec struct {
	Working      OrderSpec
	PendingAbove OrderSpec
	PendingBelow OrderSpec
}

func (OTOSpec) isCommand()         {}
func (OTOSpec) isOrderListSpec()   {}
func (OCOSpec) isCommand()         {}
func (OCOSpec) isOrderListSpec()   {}
func (OTOCOSpec) isCommand()       {}
func (OTOCOSpec) isOrderListSpec() {}

// CancelOrder forces a single order to Canceled. It never cascades to the
// order's trigger or cancel links; only a fill does.
type CancelOrder struct {
	OrderID uint64
}

// CancelOrderList forces every member of a group to Canceled.
type CancelOrderList struct {
	ListID uint64
}

func (CancelOrder) isCommand()     {}
func (CancelOrderList) isCommand() {}

// Broker executes commands. Identities returned by NewOrder and
// NewOrderList are stable and never reused.
type Broker interface {
	NewOrder(spec OrderSpec) uint64
	NewOrderList(spec OrderListSpec) uint64
	CancelOrder(orderID uint64)
	CancelOrderList(listID uint64)
}
