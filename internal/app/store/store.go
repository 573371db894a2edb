/*
Package store defines the persistence gateway for the chat service.

It declares the record types for the three collections (Users, Channels, Messages)
and the Store interface implemented by the Postgres gateway and the in-memory
gateway used in tests. The store holds no business logic: membership and
moderation rules live in the channel package, which treats the store as the
single source of truth for channel state.
*/
package store

import (
	"context"
	"errors"
	"time"
)

// PublicChannelID is the sentinel channel id under which public-room messages
// are persisted. No Channel record exists for it; the public room has no
// membership or moderation state.
const PublicChannelID = "public-chat"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint,
	// e.g. registering a username that is already taken.
	ErrDuplicate = errors.New("store: duplicate record")
)

// User is an account record owned by the authentication gateway.
// Created on register, read on login, never mutated afterward.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Channel is a named, optionally password-protected room with persistent
// membership and moderation state.
type Channel struct {
	// ID is generated at creation and immutable. Dissolving a channel
	// retires the id permanently.
	ID string

	// Name is mutable via the rename action.
	Name string

	// Creator is the username of the sole owner; immutable.
	Creator string

	// Password gates joining when non-empty. Stored as supplied; channel
	// passwords are a soft gate, not hardened secrets.
	Password string

	// Members grows on join and shrinks on ban. The creator is always a member.
	Members []string

	// MutedUsers may post nothing while listed. Not required to be a subset of Members.
	MutedUsers []string

	// BannedUsers may not join. Disjoint from Members after any moderation action.
	BannedUsers []string

	CreatedAt time.Time
}

// IsMember reports whether username is currently in the channel's member set.
func (c *Channel) IsMember(username string) bool {
	return containsUser(c.Members, username)
}

// IsMuted reports whether username is currently muted in the channel.
func (c *Channel) IsMuted(username string) bool {
	return containsUser(c.MutedUsers, username)
}

// IsBanned reports whether username is currently banned from the channel.
func (c *Channel) IsBanned(username string) bool {
	return containsUser(c.BannedUsers, username)
}

func containsUser(list []string, username string) bool {
	for _, u := range list {
		if u == username {
			return true
		}
	}
	return false
}

// Message is an immutable chat message record. Messages are only ever deleted
// in bulk, by clear-history or dissolve.
type Message struct {
	ID        string
	ChannelID string
	Username  string
	Content   string
	Timestamp time.Time
}

// Store is the opaque persistence gateway over the three collections.
// All operations are bounded by the supplied context; failures surface as
// ordinary errors (wrapped driver errors or the sentinel errors above) and
// must never be swallowed by callers.
type Store interface {
	// Users
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// Channels
	InsertChannel(ctx context.Context, ch Channel) error
	GetChannel(ctx context.Context, id string) (Channel, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	ListChannelsByMember(ctx context.Context, username string) ([]Channel, error)
	UpdateChannel(ctx context.Context, ch Channel) error
	DeleteChannel(ctx context.Context, id string) error

	// Messages
	InsertMessage(ctx context.Context, msg Message) error
	ListMessages(ctx context.Context, channelID string) ([]Message, error)
	DeleteMessages(ctx context.Context, channelID string) error
}
