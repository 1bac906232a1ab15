package events

import "testing"

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe(EventTick, 1)
	ch2, unsub2 := bus.Subscribe(EventTick, 1)
	defer unsub1()
	defer unsub2()

	bus.Publish(EventTick, Tick{Close: 100})

	for i, ch := range []<-chan any{ch1, ch2} {
		select {
		case msg := <-ch:
			tick, ok := msg.(Tick)
			if !ok || tick.Close != 100 {
				t.Fatalf("subscriber %d got %v, expected Tick{Close: 100}", i, msg)
			}
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestPublishIgnoresOtherEvents(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFilled, 1)
	defer unsub()

	bus.Publish(EventTick, Tick{})

	select {
	case msg := <-ch:
		t.Fatalf("received %v for an event not subscribed to", msg)
	default:
	}
}

// A full subscriber buffer drops the message instead of blocking the
// publisher.
func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventTick, 1)
	defer unsub()

	bus.Publish(EventTick, Tick{OpenTime: 1})
	bus.Publish(EventTick, Tick{OpenTime: 2}) // dropped

	first := (<-ch).(Tick)
	if first.OpenTime != 1 {
		t.Fatalf("OpenTime=%d, expected 1", first.OpenTime)
	}
	select {
	case msg := <-ch:
		t.Fatalf("expected second message dropped, got %v", msg)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventTick, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatalf("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(EventTick, Tick{})
}
