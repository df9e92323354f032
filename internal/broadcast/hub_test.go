package broadcast

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe("user-visits-a")
	defer cancelA()
	b, cancelB := hub.Subscribe("user-visits-b")
	defer cancelB()

	require.NoError(t, hub.Broadcast(context.Background(), "user-visits-a", map[string]int{"visitId": 7}))

	msg := <-a
	assert.Equal(t, "user-visits-a", msg.Topic)
	var payload map[string]int
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, 7, payload["visitId"])

	select {
	case m := <-b:
		t.Fatalf("unexpected message on other topic: %+v", m)
	default:
	}
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("t")
	defer cancel()

	ctx := context.Background()
	require.NoError(t, hub.Broadcast(ctx, "t", 1))
	require.NoError(t, hub.Broadcast(ctx, "t", 2))

	msg := <-ch
	assert.JSONEq(t, "1", string(msg.Payload))
	assert.Len(t, ch, 0)
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	hub := NewHub(0)
	ch, cancel := hub.Subscribe("t")
	assert.Equal(t, 1, hub.Subscribers("t"))

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("t"))
	assert.NoError(t, hub.Broadcast(context.Background(), "t", "nobody listening"))
}

func TestHub_BroadcastErrors(t *testing.T) {
	hub := NewHub(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, hub.Broadcast(ctx, "t", 1))

	assert.Error(t, hub.Broadcast(context.Background(), "t", make(chan int)))
}
