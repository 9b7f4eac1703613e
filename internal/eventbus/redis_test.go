package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bus, err := NewRedisBus(client, "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus, mr
}

func waitForChannelSubscribers(t *testing.T, mr *miniredis.Miniredis, channel string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisBus_RequiresClient(t *testing.T) {
	_, err := NewRedisBus(nil, "x:")
	require.Error(t, err)
}

func TestRedisBus_PublishSubscribe(t *testing.T) {
	bus, mr := newTestRedisBus(t)

	got := make(chan Event, 1)
	_, err := bus.Subscribe("assigned-waiter-to-dining-area", func(e Event) { got <- e })
	require.NoError(t, err)
	waitForChannelSubscribers(t, mr, "test:assigned-waiter-to-dining-area", 1)

	event := NewEvent("assigned-waiter-to-dining-area", json.RawMessage(`42`))
	require.NoError(t, bus.Publish(context.Background(), "assigned-waiter-to-dining-area", event))

	select {
	case e := <-got:
		require.Equal(t, event.ID, e.ID)
		require.Equal(t, "assigned-waiter-to-dining-area", e.Topic)
		require.JSONEq(t, `42`, string(e.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisBus_ChannelFollowsLocalHandlers(t *testing.T) {
	bus, mr := newTestRedisBus(t)
	const channel = "test:order-created"

	h1, err := bus.Subscribe("order-created", func(Event) {})
	require.NoError(t, err)
	h2, err := bus.Subscribe("order-created", func(Event) {})
	require.NoError(t, err)
	waitForChannelSubscribers(t, mr, channel, 1)

	require.NoError(t, bus.Unsubscribe(h1))
	waitForChannelSubscribers(t, mr, channel, 1)

	require.NoError(t, bus.Unsubscribe(h2))
	waitForChannelSubscribers(t, mr, channel, 0)

	require.ErrorIs(t, bus.Unsubscribe(h2), ErrUnknownSubscription)
}

func TestRedisBus_DiscardsUndecodableMessages(t *testing.T) {
	bus, mr := newTestRedisBus(t)

	got := make(chan Event, 2)
	_, err := bus.Subscribe("order-completed", func(e Event) { got <- e })
	require.NoError(t, err)
	waitForChannelSubscribers(t, mr, "test:order-completed", 1)

	mr.Publish("test:order-completed", "not json")
	require.NoError(t, bus.Publish(context.Background(), "order-completed", NewEvent("order-completed", json.RawMessage(`5`))))

	select {
	case e := <-got:
		require.JSONEq(t, `5`, string(e.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisBus_Close(t *testing.T) {
	bus, _ := newTestRedisBus(t)
	_, err := bus.Subscribe("order-created", func(Event) {})
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.True(t, errors.Is(bus.Publish(context.Background(), "order-created", NewEvent("order-created", nil)), ErrClosed))
	_, err = bus.Subscribe("order-created", func(Event) {})
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, bus.Close())
}
