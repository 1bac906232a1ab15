package live

import (
	"context"
	"fmt"

	"wedge/internal/broker"
	spot "wedge/pkg/exchange/binance"
)

// NewOrder submits a single order on the exchange and returns its
// local identity.
func (e *Engine) NewOrder(spec broker.OrderSpec) uint64 {
	req := e.orderRequest(spec)

	var exg spot.Order
	e.withRetry("submit order", func() error {
		var err error
		exg, err = e.trade.NewOrder(context.Background(), req)
		return err
	})

	o := trackedFromSpec(spec)
	o.id = e.assignID()
	o.exgID = exg.OrderID
	o.status = mapStatus(exg.Status)
	e.orders[o.id] = o
	e.byExgID[o.exgID] = o.id
	return o.id
}

// NewOrderList submits a conditional group on the exchange and returns
// its local identity.
func (e *Engine) NewOrderList(spec broker.OrderListSpec) uint64 {
	var (
		exg         spot.OrderList
		specs       []broker.OrderSpec
		pendingFrom = 1 // legs after the working order start pending
	)
	switch s := spec.(type) {
	case broker.OCOSpec:
		specs = []broker.OrderSpec{s.Above, s.Below}
		pendingFrom = len(specs)
		above, below := e.legParams(s.Above), e.legParams(s.Below)
		e.withRetry("submit oco", func() error {
			var err error
			exg, err = e.trade.NewOCO(context.Background(), spot.OCORequest{
				Symbol:         e.cfg.Symbol,
				Side:           sideOf(s.Above).String(),
				Quantity:       qtyOf(s.Above),
				AboveType:      above.legType,
				AbovePrice:     above.price,
				AboveStopPrice: above.stopPrice,
				BelowType:      below.legType,
				BelowPrice:     below.price,
				BelowStopPrice: below.stopPrice,
			})
			return err
		})
	case broker.OTOSpec:
		specs = []broker.OrderSpec{s.Working, s.Pending}
		pending := e.legParams(s.Pending)
		e.withRetry("submit oto", func() error {
			var err error
			exg, err = e.trade.NewOTO(context.Background(), spot.OTORequest{
				Symbol:           e.cfg.Symbol,
				WorkingType:      "LIMIT",
				WorkingSide:      sideOf(s.Working).String(),
				WorkingPrice:     priceOf(s.Working),
				WorkingQuantity:  qtyOf(s.Working),
				PendingType:      pending.legType,
				PendingSide:      sideOf(s.Pending).String(),
				PendingQuantity:  qtyOf(s.Pending),
				PendingPrice:     pending.price,
				PendingStopPrice: pending.stopPrice,
			})
			return err
		})
	case broker.OTOCOSpec:
		specs = []broker.OrderSpec{s.Working, s.PendingAbove, s.PendingBelow}
		above, below := e.legParams(s.PendingAbove), e.legParams(s.PendingBelow)
		e.withRetry("submit otoco", func() error {
			var err error
			exg, err = e.trade.NewOTOCO(context.Background(), spot.OTOCORequest{
				Symbol:                e.cfg.Symbol,
				WorkingType:           "LIMIT",
				WorkingSide:           sideOf(s.Working).String(),
				WorkingPrice:          priceOf(s.Working),
				WorkingQuantity:       qtyOf(s.Working),
				PendingSide:           sideOf(s.PendingAbove).String(),
				PendingQuantity:       qtyOf(s.PendingAbove),
				PendingAboveType:      above.legType,
				PendingAbovePrice:     above.price,
				PendingAboveStopPrice: above.stopPrice,
				PendingBelowType:      below.legType,
				PendingBelowPrice:     below.price,
				PendingBelowStopPrice: below.stopPrice,
			})
			return err
		})
	default:
		panic(fmt.Sprintf("live: unknown order list spec %T", spec))
	}

	list := &trackedList{id: e.assignID(), exgID: exg.OrderListID}
	for i, os := range specs {
		o := trackedFromSpec(os)
		o.id = e.assignID()
		o.listID = list.id
		o.inList = true
		if i >= pendingFrom {
			o.status = broker.StatusPendingNew
		}
		if i < len(exg.Orders) {
			o.exgID = exg.Orders[i].OrderID
			e.byExgID[o.exgID] = o.id
		}
		e.orders[o.id] = o
		list.orderIDs = append(list.orderIDs, o.id)
	}
	e.lists[list.id] = list
	return list.id
}

// CancelOrder cancels a single order on the exchange.
func (e *Engine) CancelOrder(orderID uint64) {
	o, ok := e.orders[orderID]
	if !ok {
		panic(fmt.Sprintf("live: cancel of unknown order %d", orderID))
	}
	if o.status.Terminal() {
		return
	}
	e.withRetry("cancel order", func() error {
		return e.trade.CancelOrder(context.Background(), e.cfg.Symbol, o.exgID)
	})
	o.status = broker.StatusCanceled
}

// CancelOrderList cancels an entire group on the exchange.
func (e *Engine) CancelOrderList(listID uint64) {
	l, ok := e.lists[listID]
	if !ok {
		panic(fmt.Sprintf("live: cancel of unknown order list %d", listID))
	}
	e.withRetry("cancel order list", func() error {
		return e.trade.CancelOrderList(context.Background(), e.cfg.Symbol, l.exgID)
	})
	for _, oid := range l.orderIDs {
		if o := e.orders[oid]; !o.status.Terminal() {
			o.status = broker.StatusCanceled
		}
	}
}

func (e *Engine) assignID() uint64 {
	id := e.nextID
	e.nextID++
	return id
}

func (e *Engine) orderRequest(spec broker.OrderSpec) spot.OrderRequest {
	req := spot.OrderRequest{
		Symbol:   e.cfg.Symbol,
		Side:     sideOf(spec).String(),
		Qty:      qtyOf(spec),
		ClientID: clientID(),
	}
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		req.Type = "LIMIT"
		req.Price = s.Price
	case broker.MarketOrderSpec:
		req.Type = "MARKET"
	case broker.StopLossOrderSpec:
		req.Type = "STOP_LOSS"
		req.StopPrice = s.Price
	default:
		panic(fmt.Sprintf("live: unknown order spec %T", spec))
	}
	return req
}

type legRequest struct {
	legType   string
	price     float64
	stopPrice float64
}

func (e *Engine) legParams(spec broker.OrderSpec) legRequest {
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		return legRequest{legType: "LIMIT_MAKER", price: s.Price}
	case broker.StopLossOrderSpec:
		return legRequest{legType: "STOP_LOSS", stopPrice: s.Price}
	default:
		panic(fmt.Sprintf("live: order type %T not usable in an order list", spec))
	}
}

func trackedFromSpec(spec broker.OrderSpec) *trackedOrder {
	return &trackedOrder{
		side:   sideOf(spec),
		status: broker.StatusNew,
		price:  priceOf(spec),
		qty:    qtyOf(spec),
	}
}

func sideOf(spec broker.OrderSpec) broker.Side {
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		return s.Side
	case broker.MarketOrderSpec:
		return s.Side
	case broker.StopLossOrderSpec:
		return s.Side
	default:
		panic(fmt.Sprintf("live: unknown order spec %T", spec))
	}
}

func priceOf(spec broker.OrderSpec) float64 {
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		return s.Price
	case broker.StopLossOrderSpec:
		return s.Price
	default:
		return 0
	}
}

func qtyOf(spec broker.OrderSpec) float64 {
	switch s := spec.(type) {
	case broker.LimitOrderSpec:
		return s.Quantity
	case broker.MarketOrderSpec:
		return s.Quantity
	case broker.StopLossOrderSpec:
		return s.Quantity
	default:
		return 0
	}
}
