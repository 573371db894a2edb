/*
Package chat contains the connection session manager and the broadcast fan-out
layer of the service.

This file defines the Client struct, representing one active WebSocket session.
It manages the session lifecycle, the message communication loops (ReadPump and
WritePump), and dispatches inbound intents to the channel registry and the hub.
*/
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/channel"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// MaxContentBytes is the maximum allowed size (in bytes) for message content.
	MaxContentBytes = 5000

	// opTimeout bounds every registry or store call made on behalf of an
	// inbound intent. No intent may hang its session.
	opTimeout = 5 * time.Second
)

// Client represents one active WebSocket session: the connection, the username
// bound to it, and its send queue. Room subscriptions live in the Hub.
type Client struct {
	hub      *Hub
	registry *channel.Registry
	store    store.Store

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// username bound by join-public or implicitly by a channel intent.
	// Only the ReadPump goroutine touches it.
	username string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient constructs a Client around an established WebSocket connection.
func NewClient(hub *Hub, registry *channel.Registry, st store.Store, conn *websocket.Conn) *Client {
	return &Client{
		hub:      hub,
		registry: registry,
		store:    st,
		conn:     conn,
		send:     make(chan []byte, 256),
		logger:   logx.Logger().With().Str("component", "Client").Logger(),
	}
}

// enqueue places a marshaled frame on the session's send queue. Slow consumers
// have frames dropped rather than blocking the fan-out path. It runs on the
// broadcasting goroutine, so it must not touch session state owned by ReadPump.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Msg("Send queue full, dropping frame.")
	}
}

// closeSend closes the send queue exactly once; WritePump terminates on it.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), intent dispatch, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.dispatch(frame)
	}
}

// cleanupOnDisconnect removes the session from every recipient set and closes
// the connection. No departure broadcast is emitted.
func (c *Client) cleanupOnDisconnect() {
	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Connection close error")
	}
}

// dispatch routes one inbound frame to its intent handler.
func (c *Client) dispatch(frame []byte) {
	var event Event
	if err := json.Unmarshal(frame, &event); err != nil {
		c.logger.Warn().Err(err).Bytes("frame", frame).Msg("Client sent invalid JSON")
		return
	}

	switch event.Type {
	case TypeJoinPublic:
		c.handleJoinPublic(event.Payload)

	case TypePublicMessage:
		c.handlePublicMessage(event.Payload)

	case TypeCreateChannel:
		c.handleCreateChannel(event.Payload)

	case TypeJoinChannel:
		c.handleJoinChannel(event.Payload)

	case TypeChannelMessage:
		c.handleChannelMessage(event.Payload)

	default:
		c.logger.Warn().Str("event_type", string(event.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoinPublic binds the username to the session and subscribes it to the
// public room. A later join-public re-binds the session to the new username.
func (c *Client) handleJoinPublic(payload json.RawMessage) {
	var p JoinPublicPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Username == "" {
		c.sendError(TypeError, errs.NewError(errs.ErrInvalidParams))
		return
	}

	c.username = p.Username
	c.hub.JoinRoom(c, store.PublicChannelID)

	c.sendEvent(TypeJoinSuccess, JoinPublicResult{
		Room:     store.PublicChannelID,
		Username: p.Username,
	})
}

// handlePublicMessage broadcasts to the public room and then persists the
// message. The public room has no membership or moderation gate.
func (c *Client) handlePublicMessage(payload json.RawMessage) {
	var p PublicMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(TypeError, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if p.Username == "" {
		p.Username = c.username
	}

	if len(p.Content) > MaxContentBytes {
		c.sendError(TypeError, errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	msg := store.Message{
		ID:        randx.MessageID(),
		ChannelID: store.PublicChannelID,
		Username:  p.Username,
		Content:   p.Content,
		Timestamp: time.Now().UTC(),
	}

	event, err := NewEvent(TypeNewPublicMessage, NewMessageView(msg))
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build new-public-message event")
		return
	}

	// Broadcast before waiting for persistence to confirm. A failed write is
	// logged and the already delivered broadcast stands.
	c.hub.BroadcastRoom(store.PublicChannelID, event)

	c.persistMessage(msg)
}

// handleCreateChannel creates a channel via the registry and subscribes the
// creator's session to the new room. The registry broadcasts channel-created
// to all sessions.
func (c *Client) handleCreateChannel(payload json.RawMessage) {
	var p CreateChannelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(TypeCreateFail, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if p.Creator == "" {
		p.Creator = c.username
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ch, createErr := c.registry.Create(ctx, p.Name, p.Password, p.Creator)
	if createErr != nil {
		c.sendError(TypeCreateFail, createErr)
		return
	}

	if c.username == "" {
		c.username = p.Creator
	}

	c.hub.JoinRoom(c, ch.ID)
	c.sendEvent(TypeCreateSuccess, CreateChannelResult{Channel: NewChannelView(ch)})
}

// handleJoinChannel admits the session into a channel through the moderation
// engine and returns the channel plus its history. Other channel members are
// notified with member-joined.
func (c *Client) handleJoinChannel(payload json.RawMessage) {
	var p JoinChannelPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ChannelID == "" || p.Username == "" {
		c.sendError(TypeJoinFail, errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ch, history, joinErr := c.registry.Join(ctx, p.ChannelID, p.Username, p.Password)
	if joinErr != nil {
		c.sendError(TypeJoinFail, joinErr)
		return
	}

	if c.username == "" {
		c.username = p.Username
	}

	c.hub.JoinRoom(c, ch.ID)

	messages := make([]MessageView, 0, len(history))
	for _, msg := range history {
		messages = append(messages, NewMessageView(msg))
	}

	c.sendEvent(TypeJoinSuccess, JoinChannelResult{
		Channel:  NewChannelView(ch),
		Messages: messages,
	})

	joined, err := NewEvent(TypeMemberJoined, MemberJoinedPayload{
		ChannelID: ch.ID,
		Username:  p.Username,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to build member-joined event")
		return
	}
	c.hub.BroadcastRoomExcept(ch.ID, c, joined)
}

// handleChannelMessage posts a message to a channel after the moderation
// check. A muted sender receives a private message-fail and nothing is
// broadcast or persisted.
func (c *Client) handleChannelMessage(payload json.RawMessage) {
	var p ChannelMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(TypeMessageFail, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if p.Username == "" {
		p.Username = c.username
	}

	if len(p.Content) > MaxContentBytes {
		c.sendError(TypeMessageFail, errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	if len(p.Attachments) > 0 {
		if validationErr := validateAttachments(p.ChannelID, p.Attachments); validationErr != nil {
			c.sendError(TypeMessageFail, validationErr)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if speakErr := c.registry.CheckSpeaker(ctx, p.ChannelID, p.Username); speakErr != nil {
		c.sendError(TypeMessageFail, speakErr)
		return
	}

	msg := store.Message{
		ID:        randx.MessageID(),
		ChannelID: p.ChannelID,
		Username:  p.Username,
		Content:   p.Content,
		Timestamp: time.Now().UTC(),
	}

	view := NewMessageView(msg)
	view.Attachments = p.Attachments

	event, err := NewEvent(TypeNewChannelMessage, view)
	if err != nil {
		c.logger.Error().Err(err).Str("channel_id", p.ChannelID).Msg("Failed to build new-channel-message event")
		return
	}

	c.hub.BroadcastRoom(p.ChannelID, event)

	c.persistMessage(msg)
}

// persistMessage writes the message record with a bounded context. Failure is
// logged and the interaction still resolves; the broadcast is not rolled back.
func (c *Client) persistMessage(msg store.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.store.InsertMessage(ctx, msg); err != nil {
		c.logger.Error().Err(err).
			Str("message_id", msg.ID).
			Str("channel_id", msg.ChannelID).
			Msg("Failed to persist message after broadcast.")
	}
}

// validateAttachments checks count, file type, and that every key sits under
// the channel's storage prefix.
func validateAttachments(channelID string, attachments []Attachment) *errs.CustomError {
	if len(attachments) > MaxAttachmentsCount {
		return errs.NewError(errs.ErrAttachmentCountInvalid)
	}

	expectedPrefix := channelID + "/"
	for i := range attachments {
		a := &attachments[i]

		if !strings.HasPrefix(a.Key, expectedPrefix) {
			return errs.NewError(errs.ErrAttachmentKeyInvalid)
		}

		if err := ValidateFileType(a.Name, a.MimeType); err != nil {
			return err
		}
	}

	return nil
}

// WritePump handles writing frames from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send channel.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePing sends a periodic WebSocket Ping to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendEvent builds and queues an outbound event for this session only.
func (c *Client) sendEvent(eventType EventType, payload any) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to build event")
		return
	}

	frame, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal event")
		return
	}

	c.enqueue(frame)
}

// sendError queues a business error for this session only, under the given
// failure event type.
func (c *Client) sendError(eventType EventType, customErr *errs.CustomError) {
	c.sendEvent(eventType, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
