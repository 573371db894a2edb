/*
Package chat contains the connection session manager and the broadcast fan-out
layer of the service.

This file defines the event envelope exchanged with clients over the WebSocket
connection, the payload structures for every inbound intent and outbound
notification, and the JSON view of a channel record that rides lifecycle
broadcasts and HTTP listings.
*/
package chat

import (
	"encoding/json"
	"time"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/randx"
)

// EventType identifies an inbound client intent or an outbound notification.
type EventType string

// Inbound intents.
const (
	TypeJoinPublic     EventType = "join-public"
	TypePublicMessage  EventType = "public-message"
	TypeCreateChannel  EventType = "create-channel"
	TypeJoinChannel    EventType = "join-channel"
	TypeChannelMessage EventType = "channel-message"
)

// Outbound notifications.
const (
	TypeJoinSuccess       EventType = "join-success"
	TypeJoinFail          EventType = "join-fail"
	TypeCreateSuccess     EventType = "create-success"
	TypeCreateFail        EventType = "create-fail"
	TypeNewPublicMessage  EventType = "new-public-message"
	TypeNewChannelMessage EventType = "new-channel-message"
	TypeChannelCreated    EventType = "channel-created"
	TypeChannelUpdated    EventType = "channel-updated"
	TypeChannelDissolved  EventType = "channel-dissolved"
	TypeMemberJoined      EventType = "member-joined"
	TypeMessageFail       EventType = "message-fail"
	TypeError             EventType = "error"
)

// Event is the envelope for every frame exchanged over a session.
type Event struct {
	// ID is a server-assigned unique identifier for outbound events.
	ID string `json:"id,omitempty"`

	// Type names the intent or notification.
	Type EventType `json:"type"`

	// Timestamp is the server wall clock in Unix milliseconds, set on outbound events.
	Timestamp int64 `json:"timestamp,omitempty"`

	// Payload carries the type-specific body.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an outbound event envelope around the given payload.
func NewEvent(eventType EventType, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        randx.MessageID(),
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Payload:   body,
	}, nil
}

// JoinPublicPayload binds a username to the session and subscribes it to the public room.
type JoinPublicPayload struct {
	Username string `json:"username"`
}

// PublicMessagePayload posts a message to the public room.
type PublicMessagePayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// CreateChannelPayload creates a new channel owned by the sender.
type CreateChannelPayload struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Creator  string `json:"creator"`
}

// JoinChannelPayload requests membership in an existing channel.
type JoinChannelPayload struct {
	ChannelID string `json:"channelId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// ChannelMessagePayload posts a message to a channel the sender has joined.
type ChannelMessagePayload struct {
	ChannelID   string       `json:"channelId"`
	Username    string       `json:"username"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// MessageView is the outbound representation of one chat message.
type MessageView struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channelId"`
	Username    string       `json:"username"`
	Content     string       `json:"content"`
	Timestamp   string       `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// NewMessageView converts a persisted message record for delivery to clients.
func NewMessageView(msg store.Message) MessageView {
	return MessageView{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		Username:  msg.Username,
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
	}
}

// ChannelView is the outbound representation of a channel record. Lifecycle
// broadcasts carry the full post-mutation record so every client refreshes its
// local channel cache from the broadcast.
type ChannelView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Creator     string   `json:"creator"`
	HasPassword bool     `json:"hasPassword"`
	Members     []string `json:"members"`
	MutedUsers  []string `json:"mutedUsers"`
	BannedUsers []string `json:"bannedUsers"`
	CreatedAt   string   `json:"createdAt"`
}

// NewChannelView converts a channel record for delivery to clients. The
// password itself never leaves the server; only its presence is exposed.
func NewChannelView(ch store.Channel) ChannelView {
	return ChannelView{
		ID:          ch.ID,
		Name:        ch.Name,
		Creator:     ch.Creator,
		HasPassword: ch.Password != "",
		Members:     ch.Members,
		MutedUsers:  ch.MutedUsers,
		BannedUsers: ch.BannedUsers,
		CreatedAt:   ch.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// JoinPublicResult is the join-success payload for the public room.
type JoinPublicResult struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// JoinChannelResult is the join-success payload: the channel plus its full
// chronological message history.
type JoinChannelResult struct {
	Channel  ChannelView   `json:"channel"`
	Messages []MessageView `json:"messages"`
}

// CreateChannelResult is the create-success payload.
type CreateChannelResult struct {
	Channel ChannelView `json:"channel"`
}

// MemberJoinedPayload notifies existing channel members about a new member.
type MemberJoinedPayload struct {
	ChannelID string `json:"channelId"`
	Username  string `json:"username"`
}

// ChannelDissolvedPayload notifies all sessions that a channel is gone.
type ChannelDissolvedPayload struct {
	ChannelID string `json:"channelId"`
}

// ErrorPayload carries a business error back to the requesting session only.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
