package chat

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/store"
)

// newTestClient builds a session with no live connection. The pumps are never
// started; tests read frames straight off the send queue.
func newTestClient(h *Hub) *Client {
	return NewClient(h, nil, nil, nil)
}

// drainFrames pulls every queued frame off the session's send queue.
func drainFrames(t *testing.T, c *Client) []Event {
	t.Helper()

	var events []Event
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return events
			}
			var event Event
			require.NoError(t, json.Unmarshal(frame, &event))
			events = append(events, event)
		default:
			return events
		}
	}
}

func mustEvent(t *testing.T, eventType EventType, payload any) Event {
	t.Helper()
	event, err := NewEvent(eventType, payload)
	require.NoError(t, err)
	return event
}

func TestBroadcastRoomReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()

	member := newTestClient(hub)
	outsider := newTestClient(hub)
	hub.Register(member)
	hub.Register(outsider)

	hub.JoinRoom(member, "room-a")

	hub.BroadcastRoom("room-a", mustEvent(t, TypeNewChannelMessage, MessageView{Content: "hello"}))

	require.Len(t, drainFrames(t, member), 1)
	require.Empty(t, drainFrames(t, outsider))
}

func TestBroadcastRoomPreservesOrder(t *testing.T) {
	hub := NewHub()

	c := newTestClient(hub)
	hub.Register(c)
	hub.JoinRoom(c, "room-a")

	const count = 50
	for i := 0; i < count; i++ {
		hub.BroadcastRoom("room-a", mustEvent(t, TypeNewChannelMessage, MessageView{
			Content: fmt.Sprintf("msg-%d", i),
		}))
	}

	events := drainFrames(t, c)
	require.Len(t, events, count)
	for i, event := range events {
		var view MessageView
		require.NoError(t, json.Unmarshal(event.Payload, &view))
		require.Equal(t, fmt.Sprintf("msg-%d", i), view.Content)
	}
}

func TestBroadcastRoomExceptSkipsSender(t *testing.T) {
	hub := NewHub()

	sender := newTestClient(hub)
	other := newTestClient(hub)
	hub.Register(sender)
	hub.Register(other)
	hub.JoinRoom(sender, "room-a")
	hub.JoinRoom(other, "room-a")

	hub.BroadcastRoomExcept("room-a", sender, mustEvent(t, TypeMemberJoined, MemberJoinedPayload{
		ChannelID: "room-a",
		Username:  "bob",
	}))

	require.Empty(t, drainFrames(t, sender))
	require.Len(t, drainFrames(t, other), 1)
}

func TestBroadcastAllIgnoresRoomMembership(t *testing.T) {
	hub := NewHub()

	joined := newTestClient(hub)
	lurker := newTestClient(hub)
	hub.Register(joined)
	hub.Register(lurker)
	hub.JoinRoom(joined, store.PublicChannelID)

	hub.ChannelCreated(store.Channel{
		ID:        "ch-1",
		Name:      "gophers",
		Creator:   "alice",
		Members:   []string{"alice"},
		CreatedAt: time.Now(),
	})

	for _, c := range []*Client{joined, lurker} {
		events := drainFrames(t, c)
		require.Len(t, events, 1)
		require.Equal(t, TypeChannelCreated, events[0].Type)

		var view ChannelView
		require.NoError(t, json.Unmarshal(events[0].Payload, &view))
		require.Equal(t, "ch-1", view.ID)
		require.False(t, view.HasPassword)
	}
}

func TestChannelViewHidesPassword(t *testing.T) {
	hub := NewHub()

	c := newTestClient(hub)
	hub.Register(c)

	hub.ChannelUpdated(store.Channel{
		ID:       "ch-1",
		Name:     "gophers",
		Creator:  "alice",
		Password: "hunter2",
		Members:  []string{"alice"},
	})

	events := drainFrames(t, c)
	require.Len(t, events, 1)

	require.NotContains(t, string(events[0].Payload), "hunter2")

	var view ChannelView
	require.NoError(t, json.Unmarshal(events[0].Payload, &view))
	require.True(t, view.HasPassword)
}

func TestUnregisterRemovesFromEveryRoom(t *testing.T) {
	hub := NewHub()

	c := newTestClient(hub)
	hub.Register(c)
	hub.JoinRoom(c, store.PublicChannelID)
	hub.JoinRoom(c, "room-a")

	hub.Unregister(c)

	require.False(t, hub.InRoom(c, store.PublicChannelID))
	require.False(t, hub.InRoom(c, "room-a"))

	// The send queue is closed; nothing further can be delivered.
	_, open := <-c.send
	require.False(t, open)

	// A second unregister is harmless.
	hub.Unregister(c)
}

func TestChannelDissolvedDropsRecipientSet(t *testing.T) {
	hub := NewHub()

	c := newTestClient(hub)
	hub.Register(c)
	hub.JoinRoom(c, "ch-1")

	hub.ChannelDissolved("ch-1")

	events := drainFrames(t, c)
	require.Len(t, events, 1)
	require.Equal(t, TypeChannelDissolved, events[0].Type)

	var payload ChannelDissolvedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.Equal(t, "ch-1", payload.ChannelID)

	require.False(t, hub.InRoom(c, "ch-1"))

	// A broadcast to the dissolved room reaches nobody.
	hub.BroadcastRoom("ch-1", mustEvent(t, TypeNewChannelMessage, MessageView{Content: "late"}))
	require.Empty(t, drainFrames(t, c))
}

func TestSlowConsumerFramesAreDropped(t *testing.T) {
	hub := NewHub()

	c := newTestClient(hub)
	hub.Register(c)
	hub.JoinRoom(c, "room-a")

	queueCap := cap(c.send)
	for i := 0; i < queueCap+10; i++ {
		hub.BroadcastRoom("room-a", mustEvent(t, TypeNewPublicMessage, MessageView{
			Content: fmt.Sprintf("msg-%d", i),
		}))
	}

	events := drainFrames(t, c)
	require.Len(t, events, queueCap)

	// The oldest frames survive; the overflow is dropped, not the backlog.
	var first MessageView
	require.NoError(t, json.Unmarshal(events[0].Payload, &first))
	require.Equal(t, "msg-0", first.Content)
}

func TestShutdownClosesAllSessions(t *testing.T) {
	hub := NewHub()

	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.Register(a)
	hub.Register(b)

	hub.Shutdown()

	for _, c := range []*Client{a, b} {
		_, open := <-c.send
		require.False(t, open)
	}
}
