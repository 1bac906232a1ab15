package strategy

import (
	"encoding/json"

	"wedge/internal/broker"
	"wedge/internal/indicators"
)

// RangeBreakoutStrategy places one OTOCO bracket per tick: a buy limit
// below the open by a fraction of the recent high-low range, protected by
// a stop below and a take-profit limit above. Brackets whose working
// order did not fill are replaced on the next tick; brackets with a fill
// are left to run out.
type RangeBreakoutStrategy struct {
	broker broker.Broker

	rng      *indicators.Range
	k        float64
	quantity float64
}

func NewRangeBreakoutStrategy(period int, k, quantity float64) *RangeBreakoutStrategy {
	if period <= 0 {
		period = 24
	}
	if k == 0 {
		k = 0.1
	}
	if quantity == 0 {
		quantity = 1
	}
	return &RangeBreakoutStrategy{
		rng:      indicators.NewRange(period),
		k:        k,
		quantity: quantity,
	}
}

func (s *RangeBreakoutStrategy) Name() string { return "range_breakout" }

func (s *RangeBreakoutStrategy) SetBroker(b broker.Broker) { s.broker = b }

func (s *RangeBreakoutStrategy) OnTick(snap broker.Snapshot) []broker.Command {
	var cmds []broker.Command
	for _, list := range snap.OpenOrderLists {
		if noneFilled(list.Orders) {
			cmds = append(cmds, broker.CancelOrderList{ListID: list.ID})
		}
	}

	s.rng.Update(snap.Candle)

	limit := snap.Candle.Open - s.rng.Value()*s.k
	cmds = append(cmds, broker.OTOCOSpec{
		Working: broker.LimitOrderSpec{
			Side:     broker.SideBuy,
			Price:    limit,
			Quantity: s.quantity,
		},
		PendingAbove: broker.LimitOrderSpec{
			Side:     broker.SideSell,
			Price:    limit * (1 + 0.0005),
			Quantity: s.quantity,
		},
		PendingBelow: broker.StopLossOrderSpec{
			Side:     broker.SideSell,
			Price:    limit * (1 - 0.0005),
			Quantity: s.quantity,
		},
	})
	return cmds
}

func noneFilled(orders []broker.OrderView) bool {
	for _, o := range orders {
		if o.Status == broker.StatusFilled {
			return false
		}
	}
	return true
}

func (s *RangeBreakoutStrategy) GetState() (json.RawMessage, error) {
	return json.Marshal(struct{}{})
}

func (s *RangeBreakoutStrategy) SetState(json.RawMessage) error { return nil }
