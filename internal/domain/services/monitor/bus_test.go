package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, cancel1 := bus.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := bus.Subscribe(1)
	defer cancel2()

	bus.Publish(entities.MonitorEvent{Type: entities.EventConnected})

	assert.Equal(t, entities.EventConnected, (<-ch1).Type)
	assert.Equal(t, entities.EventConnected, (<-ch2).Type)
	assert.Equal(t, 2, bus.Len())
}

func TestBus_PublishBlocksUntilReceived(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)
	defer cancel()

	published := make(chan struct{})
	go func() {
		bus.Publish(entities.MonitorEvent{Type: entities.EventTransaction})
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish returned before the subscriber received")
	case <-time.After(50 * time.Millisecond):
	}

	ev := <-ch
	assert.Equal(t, entities.EventTransaction, ev.Type)
	<-published
}

func TestBus_CancelUnblocksPublisher(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)

	published := make(chan struct{})
	go func() {
		bus.Publish(entities.MonitorEvent{Type: entities.EventError})
		close(published)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish still blocked after cancel")
	}

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Len())

	// cancel is idempotent
	require.NotPanics(t, cancel)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	require.NotPanics(t, func() {
		bus.Publish(entities.MonitorEvent{Type: entities.EventConnected})
	})
}
