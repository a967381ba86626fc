package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisPubSub(t *testing.T) *RedisPubSub {
	t.Helper()
	srv := miniredis.RunT(t)
	bus, err := NewRedisPubSub(context.Background(), RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func relayText(t *testing.T, ev *Event) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, ev.UnmarshalPayload(&payload))
	return payload["text"]
}

func TestRedisPatternKeepsOrderAndSkipsUndecodable(t *testing.T) {
	bus := newTestRedisPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.SubscribePattern(ctx, RoomChannelPattern)
	require.NoError(t, err)

	publish := func(text string) {
		ev, err := NewEvent(EventRelay, "room-a", map[string]string{"text": text})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, RoomChannel("room-a"), ev))
	}

	publish("one")
	require.NoError(t, bus.client.Publish(ctx, RoomChannel("room-a"), "not json").Err())
	publish("two")
	require.NoError(t, bus.client.Publish(ctx, "unrelated", `{"type":"relay"}`).Err())
	publish("three")

	for _, want := range []string{"one", "two", "three"} {
		ev := receive(t, events)
		assert.Equal(t, want, relayText(t, ev))
		assert.Equal(t, "room-a", ev.RoomID)
	}
}

func TestRedisSlowReaderLosesNothing(t *testing.T) {
	bus := newTestRedisPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, RoomChannel("room-a"))
	require.NoError(t, err)

	const total = 150
	for i := 0; i < total; i++ {
		ev, err := NewEvent(EventRelay, "room-a", map[string]string{"text": fmt.Sprint(i)})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, RoomChannel("room-a"), ev))
	}

	for i := 0; i < total; i++ {
		assert.Equal(t, fmt.Sprint(i), relayText(t, receive(t, events)))
	}
}

func TestRedisSubscriptionClosesWithContext(t *testing.T) {
	bus := newTestRedisPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, RoomChannel("room-a"))
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}
}

func TestNewRedisPubSubFailsWithoutServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewRedisPubSub(context.Background(), RedisConfig{Address: addr})
	assert.Error(t, err)
}
