package pubsub

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker[string]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(CreatedEvent, "hello")

	select {
	case event := <-ch:
		require.Equal(t, CreatedEvent, event.Type)
		require.Equal(t, "hello", event.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroker_ContextCancelClosesChannel(t *testing.T) {
	t.Parallel()

	broker := NewBroker[int]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBroker_ShutdownClosesSubscribers(t *testing.T) {
	t.Parallel()

	broker := NewBroker[int]()
	ch := broker.Subscribe(context.Background())

	broker.Shutdown()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing after shutdown must not panic.
	broker.Publish(CreatedEvent, 1)

	// Subscribing after shutdown returns a closed channel.
	_, ok = <-broker.Subscribe(context.Background())
	require.False(t, ok)
}

func TestBroker_ShutdownReleasesSubscriberGoroutines(t *testing.T) {
	// Not parallel: goroutine counting needs a quiet process.

	before := runtime.NumGoroutine()

	broker := NewBroker[int]()
	for range 8 {
		// Long-lived contexts: only Shutdown can release these watchers.
		broker.Subscribe(context.Background())
	}
	broker.Shutdown()

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond, "subscriber goroutines survived shutdown")
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	broker := NewBroker[int]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := range bufferSize * 2 {
			broker.Publish(CreatedEvent, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
