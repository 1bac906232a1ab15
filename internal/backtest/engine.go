package backtest

import (
	"fmt"

	"wedge/internal/broker"
	"wedge/internal/events"
	"wedge/internal/market"
)

// DefaultFeeRate is the fixed settlement fee applied to the received side
// of every fill.
const DefaultFeeRate = 1e-4

// Engine owns the order graph and the account balances. It is strictly
// single-threaded: one Tick consumes one candle and fully settles all
// cascades before returning. Engines share no state; parallel backtests
// use one Engine each.
type Engine struct {
	fee   float64
	base  float64
	quote float64

	orders      []*Order   // arena; index is the identity, never reused
	active      []uint64   // identities awaiting evaluation, in submit order
	activations []uint64   // triggered this tick, evaluable from the next
	lists       [][]uint64 // named groups; index is the list identity
	listOf      map[uint64]uint64

	bus *events.Bus
}

// Option configures an Engine.
type Option func(*Engine)

// WithFee overrides the settlement fee rate.
func WithFee(rate float64) Option {
	return func(e *Engine) { e.fee = rate }
}

// WithBus publishes fill/cancel/tick events to the given bus.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// NewEngine creates an isolated engine holding the given starting
// balances.
func NewEngine(base, quote float64, opts ...Option) *Engine {
	e := &Engine{
		base:   base,
		quote:  quote,
		fee:    DefaultFeeRate,
		listOf: make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Balances returns the current base and quote holdings.
func (e *Engine) Balances() (base, quote float64) {
	return e.base, e.quote
}

// order panics on an unknown identity: the graph was built by a buggy
// strategy and is no longer trustworthy.
func (e *Engine) order(id uint64) *Order {
	if id >= uint64(len(e.orders)) {
		panic(fmt.Sprintf("backtest: unknown order %d", id))
	}
	return e.orders[id]
}

// submit is the only way orders enter the graph.
func (e *Engine) submit(o *Order, status broker.Status) uint64 {
	id := uint64(len(e.orders))
	o.ID = id
	o.Status = status
	e.orders = append(e.orders, o)
	if status == broker.StatusNew {
		e.active = append(e.active, id)
	}
	return id
}

func orderFromSpec(spec broker.OrderSpec) *Order {
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		return &Order{Type: TypeLimit, Side: s.Side, Price: s.Price, Quantity: s.Quantity}
	case broker.MarketOrderSpec:
		return &Order{Type: TypeMarket, Side: s.Side, Quantity: s.Quantity}
	case broker.StopLossOrderSpec:
		return &Order{Type: TypeStopLoss, Side: s.Side, Price: s.Price, Quantity: s.Quantity}
	default:
		panic(fmt.Sprintf("backtest: unknown order spec %T", spec))
	}
}

func (e *Engine) addList(members ...uint64) uint64 {
	id := uint64(len(e.lists))
	e.lists = append(e.lists, members)
	for _, m := range members {
		e.listOf[m] = id
	}
	return id
}

// NewOrder submits a standalone working order.
func (e *Engine) NewOrder(spec broker.OrderSpec) uint64 {
	return e.submit(orderFromSpec(spec), broker.StatusNew)
}

// NewOrderList submits a conditional order group and returns its list
// identity.
func (e *Engine) NewOrderList(spec broker.OrderListSpec) uint64 {
	switch s := spec.(type) {
	case broker.OCOSpec:
		above := e.submit(orderFromSpec(s.Above), broker.StatusNew)
		below := e.submit(orderFromSpec(s.Below), broker.StatusNew)
		e.orders[above].cancels = append(e.orders[above].cancels, below)
		e.orders[below].cancels = append(e.orders[below].cancels, above)
		return e.addList(above, below)
	case broker.OTOSpec:
		working := e.submit(orderFromSpec(s.Working), broker.StatusNew)
		pending := e.submit(orderFromSpec(s.Pending), broker.StatusPendingNew)
		e.orders[working].triggers = append(e.orders[working].triggers, pending)
		return e.addList(working, pending)
	case broker.OTOCOSpec:
		working := e.submit(orderFromSpec(s.Working), broker.StatusNew)
		above := e.submit(orderFromSpec(s.PendingAbove), broker.StatusPendingNew)
		below := e.submit(orderFromSpec(s.PendingBelow), broker.StatusPendingNew)
		e.orders[working].triggers = append(e.orders[working].triggers, above, below)
		e.orders[above].cancels = append(e.orders[above].cancels, below)
		e.orders[below].cancels = append(e.orders[below].cancels, above)
		return e.addList(working, above, below)
	default:
		panic(fmt.Sprintf("backtest: unknown order list spec %T", spec))
	}
}

// CancelOrder force-cancels one order. Forced cancellation is terminal
// and silent: it never cascades through the order's trigger or cancel
// links.
func (e *Engine) CancelOrder(orderID uint64) {
	e.forceCancel(e.order(orderID))
}

// CancelOrderList force-cancels every member of a group.
func (e *Engine) CancelOrderList(listID uint64) {
	if listID >= uint64(len(e.lists)) {
		panic(fmt.Sprintf("backtest: unknown order list %d", listID))
	}
	for _, id := range e.lists[listID] {
		e.forceCancel(e.order(id))
	}
}

func (e *Engine) forceCancel(o *Order) {
	if o.Status.Terminal() {
		return
	}
	o.Status = broker.StatusCanceled
	if e.bus != nil {
		e.bus.Publish(events.EventOrderCanceled, o.ID)
	}
}

// Tick evaluates every active order against one candle and applies the
// resulting events. Orders activated by a trigger this tick are not
// evaluated until the next one; compaction of the active set preserves
// relative order.
func (e *Engine) Tick(c market.Candle) {
	for _, id := range e.active {
		o := e.orders[id]
		if o.Status != broker.StatusNew {
			continue // canceled earlier in this tick
		}
		evs := o.Evaluate(c)
		if len(evs) == 0 {
			continue
		}
		e.apply(o, evs, c)
	}

	keep := e.active[:0]
	for _, id := range e.active {
		if e.orders[id].Status == broker.StatusNew {
			keep = append(keep, id)
		}
	}
	e.active = append(keep, e.activations...)
	e.activations = e.activations[:0]
}

// apply settles a fill and runs its cascade. The fill comes first; if
// balances cannot cover it the whole event batch is discarded and the
// order stays active for the next tick.
func (e *Engine) apply(o *Order, evs []Event, c market.Candle) {
	fill, ok := evs[0].(FillEvent)
	if !ok {
		panic(fmt.Sprintf("backtest: order %d produced %T before fill", o.ID, evs[0]))
	}
	if !e.settle(fill) {
		return
	}
	o.Status = broker.StatusFilled
	if e.bus != nil {
		e.bus.Publish(events.EventOrderFilled, events.OrderFill{
			OrderID:  fill.OrderID,
			Side:     fill.Side.String(),
			Base:     fill.Base,
			Quote:    fill.Quote,
			Price:    fill.Price,
			OpenTime: c.OpenTime,
		})
	}

	for _, ev := range evs[1:] {
		switch ev := ev.(type) {
		case TriggerEvent:
			for _, id := range ev.Orders {
				t := e.order(id)
				if t.Status != broker.StatusPendingNew {
					panic(fmt.Sprintf("backtest: trigger of order %d in status %s", id, t.Status))
				}
				t.Status = broker.StatusNew
				e.activations = append(e.activations, id)
			}
		case CancelEvent:
			for _, id := range ev.Orders {
				e.forceCancel(e.order(id))
			}
		default:
			panic(fmt.Sprintf("backtest: unexpected event %T", ev))
		}
	}
}

// settle applies a fill to the balances. It reports false when holdings
// cannot cover the fill; the attempt is rejected, not fatal.
func (e *Engine) settle(ev FillEvent) bool {
	switch ev.Side {
	case broker.SideBuy:
		if e.quote < ev.Quote {
			return false
		}
		e.base += ev.Base * (1 - e.fee)
		e.quote -= ev.Quote
	case broker.SideSell:
		if e.base < ev.Base {
			return false
		}
		e.base -= ev.Base
		e.quote += ev.Quote * (1 - e.fee)
	}
	return true
}

// OpenOrders lists all non-terminal orders in identity order.
func (e *Engine) OpenOrders() []broker.OrderView {
	var out []broker.OrderView
	for _, o := range e.orders {
		if !o.Status.Open() {
			continue
		}
		out = append(out, e.view(o))
	}
	return out
}

// OpenOrderLists returns every group with at least one open member. All
// members are included, terminal ones with their statuses, so strategies
// can detect fills.
func (e *Engine) OpenOrderLists() []broker.OrderListView {
	var out []broker.OrderListView
	for listID, members := range e.lists {
		open := false
		views := make([]broker.OrderView, 0, len(members))
		for _, id := range members {
			o := e.orders[id]
			if o.Status.Open() {
				open = true
			}
			views = append(views, e.view(o))
		}
		if open {
			out = append(out, broker.OrderListView{ID: uint64(listID), Orders: views})
		}
	}
	return out
}

func (e *Engine) view(o *Order) broker.OrderView {
	v := broker.OrderView{ID: o.ID, Side: o.Side, Status: o.Status}
	if listID, ok := e.listOf[o.ID]; ok {
		v.ListID = listID
		v.InList = true
	}
	return v
}

// Snapshot builds the read-only per-tick event handed to a strategy.
func (e *Engine) Snapshot(c market.Candle) broker.Snapshot {
	return broker.Snapshot{
		Candle:         c,
		Base:           e.base,
		Quote:          e.quote,
		OpenOrders:     e.OpenOrders(),
		OpenOrderLists: e.OpenOrderLists(),
	}
}
