package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "games:12", Topic("games", 12))
}

func TestBroadcastReachesTopicSubscribers(t *testing.T) {
	h := NewHub()
	mine := make(Client, 1)
	other := make(Client, 1)
	h.Subscribe("games:1", mine)
	h.Subscribe("games:2", other)

	h.Broadcast("games:1", Event{Type: "ping", Payload: map[string]int{"n": 1}})

	require.Len(t, mine, 1)
	var got Event
	require.NoError(t, json.Unmarshal(<-mine, &got))
	assert.Equal(t, "ping", got.Type)
	assert.Empty(t, other)
}

func TestBroadcastDoesNotBlockOnFullClient(t *testing.T) {
	h := NewHub()
	slow := make(Client)
	h.Subscribe("games:1", slow)

	h.Broadcast("games:1", Event{Type: "ping"})
	assert.Equal(t, 1, h.Subscribers("games:1"))
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	h := NewHub()
	assert.NotPanics(t, func() { h.Broadcast("games:9", Event{Type: "ping"}) })
}

func TestBroadcastDropsUnencodableEvent(t *testing.T) {
	h := NewHub()
	c := make(Client, 1)
	h.Subscribe("games:1", c)

	h.Broadcast("games:1", Event{Type: "bad", Payload: make(chan int)})
	assert.Empty(t, c)
}

func TestUnsubscribeClosesClient(t *testing.T) {
	h := NewHub()
	c := make(Client, 1)
	h.Subscribe("games:1", c)
	h.Unsubscribe("games:1", c)

	_, open := <-c
	assert.False(t, open)
	assert.Zero(t, h.Subscribers("games:1"))

	// A second unsubscribe must not close the channel again.
	assert.NotPanics(t, func() { h.Unsubscribe("games:1", c) })
}
