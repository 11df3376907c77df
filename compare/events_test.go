package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DispatchInOrder(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(PointerMove, func(ev Event) { got = append(got, "a") })
	bus.Subscribe(PointerMove, func(ev Event) { got = append(got, "b") })
	bus.Subscribe(PointerUp, func(ev Event) { got = append(got, "up") })

	bus.Dispatch(Event{Kind: PointerMove, X: 1})
	bus.Dispatch(Event{Kind: PointerUp})
	bus.Dispatch(Event{Kind: TouchMove})

	assert.Equal(t, []string{"a", "b", "up"}, got)
	assert.Equal(t, 3, bus.Len())
}

func TestSubscription_UnsubscribeOnce(t *testing.T) {
	bus := NewBus()

	calls := 0
	first := bus.Subscribe(PointerMove, func(Event) { calls++ })
	second := bus.Subscribe(PointerMove, func(Event) { calls += 10 })

	first.Unsubscribe()
	first.Unsubscribe()
	assert.Equal(t, 1, bus.Len())

	bus.Dispatch(Event{Kind: PointerMove})
	assert.Equal(t, 10, calls)

	second.Unsubscribe()
	assert.Equal(t, 0, bus.Len())

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	bus := NewBus()

	var sub *Subscription
	calls := 0
	sub = bus.Subscribe(TouchEnd, func(Event) {
		calls++
		sub.Unsubscribe()
	})

	bus.Dispatch(Event{Kind: TouchEnd})
	bus.Dispatch(Event{Kind: TouchEnd})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len())
}
