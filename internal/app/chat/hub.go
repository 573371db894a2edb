/*
Package chat contains the connection session manager and the broadcast fan-out
layer of the service.

This file defines the Hub struct, which tracks every live session and the
recipient set of every room (the public room plus any number of channels).
The Hub is also the registry's Notifier: channel lifecycle events are fanned
out to all connected sessions through it.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/logx"
)

// Hub tracks live sessions and routes broadcasts to room recipient sets.
//
// Sessions hold only ephemeral routing state; the persistence gateway stays
// authoritative for channel membership. A session being absent from a room's
// recipient set says nothing about membership, only about delivery.
type Hub struct {
	// mu guards sessions and rooms. Broadcasts take the write lock so that
	// fan-out for a room is serialized: the order in which events are
	// enqueued per client equals the order in which the hub processed them.
	mu sync.Mutex

	// sessions is the set of all connected clients.
	sessions map[*Client]struct{}

	// rooms maps a room id (public room or channel id) to its recipient set.
	rooms map[string]map[*Client]struct{}

	logger zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		logger:   logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Register adds a freshly connected session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.sessions[c] = struct{}{}
	total := len(h.sessions)
	h.mu.Unlock()

	h.logger.Info().Int("total_sessions", total).Msg("Session connected.")
}

// Unregister removes the session from every recipient set it belonged to and
// closes its send queue. Other room members are not notified of the departure.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()

	if _, ok := h.sessions[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, c)

	for roomID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}

	total := len(h.sessions)
	h.mu.Unlock()

	c.closeSend()

	h.logger.Info().Int("total_sessions", total).Msg("Session disconnected.")
}

// JoinRoom adds the session to a room's recipient set. Joining a room the
// session already receives is a no-op.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[c] = struct{}{}
}

// InRoom reports whether the session is in the room's recipient set.
func (h *Hub) InRoom(c *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[c]
	return ok
}

// BroadcastRoom delivers the event to every session in the room's recipient
// set, including the sender.
func (h *Hub) BroadcastRoom(roomID string, event Event) {
	h.broadcastRoom(roomID, event, nil)
}

// BroadcastRoomExcept delivers the event to every session in the room's
// recipient set except the given one.
func (h *Hub) BroadcastRoomExcept(roomID string, except *Client, event Event) {
	h.broadcastRoom(roomID, event, except)
}

func (h *Hub) broadcastRoom(roomID string, event Event, except *Client) {
	frame, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to marshal event for broadcast.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[roomID] {
		if c == except {
			continue
		}
		c.enqueue(frame)
	}
}

// BroadcastAll delivers the event to every connected session, joined or not.
// Channel lifecycle notifications use this path so every client's channel
// list stays fresh.
func (h *Hub) BroadcastAll(event Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal event for global broadcast.")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.sessions {
		c.enqueue(frame)
	}
}

// ChannelCreated implements channel.Notifier.
func (h *Hub) ChannelCreated(ch store.Channel) {
	event, err := NewEvent(TypeChannelCreated, NewChannelView(ch))
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to build channel-created event.")
		return
	}
	h.BroadcastAll(event)
}

// ChannelUpdated implements channel.Notifier.
func (h *Hub) ChannelUpdated(ch store.Channel) {
	event, err := NewEvent(TypeChannelUpdated, NewChannelView(ch))
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to build channel-updated event.")
		return
	}
	h.BroadcastAll(event)
}

// ChannelDissolved implements channel.Notifier. The room's recipient set is
// dropped; the channel id is terminal and never reused.
func (h *Hub) ChannelDissolved(channelID string) {
	event, err := NewEvent(TypeChannelDissolved, ChannelDissolvedPayload{ChannelID: channelID})
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", channelID).Msg("Failed to build channel-dissolved event.")
		return
	}

	h.BroadcastAll(event)

	h.mu.Lock()
	delete(h.rooms, channelID)
	h.mu.Unlock()
}

// Shutdown closes the send queue of every connected session. Connection
// goroutines observe the closed queue and terminate.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.sessions))
	for c := range h.sessions {
		clients = append(clients, c)
	}
	h.sessions = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}

	h.logger.Info().Int("sessions_closed", len(clients)).Msg("Hub shutdown complete.")
}
