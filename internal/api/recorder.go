package api

import (
	"sync"

	"wedge/internal/events"
)

// recorder keeps a bounded history of fills observed on the bus so the
// report endpoints can serve them without a database round trip.
type recorder struct {
	mu    sync.RWMutex
	fills []events.OrderFill
	limit int
}

func newRecorder(bus *events.Bus, limit int) *recorder {
	r := &recorder{limit: limit}
	if bus == nil {
		return r
	}
	stream, _ := bus.Subscribe(events.EventOrderFilled, limit)
	go func() {
		for msg := range stream {
			fill, ok := msg.(events.OrderFill)
			if !ok {
				continue
			}
			r.mu.Lock()
			r.fills = append(r.fills, fill)
			if len(r.fills) > r.limit {
				r.fills = r.fills[len(r.fills)-r.limit:]
			}
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *recorder) Fills() []events.OrderFill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]events.OrderFill, len(r.fills))
	copy(out, r.fills)
	return out
}
