package live

import (
	"sort"

	"wedge/internal/broker"
)

// Balances returns the last synchronized free balances.
func (e *Engine) Balances() (base, quote float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.base, e.quote
}

// OpenOrders returns views of all open orders, list members included.
func (e *Engine) OpenOrders() []broker.OrderView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.openOrdersLocked()
}

// OpenOrderLists returns views of order lists with at least one open
// member. Terminal members are included for completeness.
func (e *Engine) OpenOrderLists() []broker.OrderListView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.openOrderListsLocked()
}

func (e *Engine) openOrdersLocked() []broker.OrderView {
	var views []broker.OrderView
	for _, o := range e.orders {
		if !o.status.Open() {
			continue
		}
		views = append(views, e.view(o))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func (e *Engine) openOrderListsLocked() []broker.OrderListView {
	var views []broker.OrderListView
	for _, l := range e.lists {
		open := false
		for _, oid := range l.orderIDs {
			if e.orders[oid].status.Open() {
				open = true
				break
			}
		}
		if !open {
			continue
		}
		lv := broker.OrderListView{ID: l.id}
		for _, oid := range l.orderIDs {
			lv.Orders = append(lv.Orders, e.view(e.orders[oid]))
		}
		views = append(views, lv)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}
