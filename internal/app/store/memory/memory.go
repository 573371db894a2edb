/*
Package memory provides an in-memory implementation of the persistence gateway.

It is concurrent-safe and keeps the same ordering contract as the Postgres
gateway (channels newest first, messages chronological). It backs the test
suites and can serve as a throwaway store for local experiments; nothing
survives a process restart.
*/
package memory

import (
	"context"
	"sync"

	"relaychat/internal/app/store"
)

// Gateway is the in-memory store.Store implementation.
type Gateway struct {
	mu sync.RWMutex

	users map[string]store.User

	// channelOrder preserves insertion order; listings walk it backwards
	// so newer channels come first, matching the Postgres gateway.
	channels     map[string]store.Channel
	channelOrder []string

	messages map[string][]store.Message
}

// New returns an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		users:    make(map[string]store.User),
		channels: make(map[string]store.Channel),
		messages: make(map[string][]store.Message),
	}
}

// CreateUser inserts a new account record.
func (g *Gateway) CreateUser(ctx context.Context, username, passwordHash string) (store.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.users[username]; ok {
		return store.User{}, store.ErrDuplicate
	}

	u := store.User{Username: username, PasswordHash: passwordHash}
	g.users[username] = u
	return u, nil
}

// GetUserByUsername fetches an account record by its username.
func (g *Gateway) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	u, ok := g.users[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

// InsertChannel persists a newly created channel record.
func (g *Gateway) InsertChannel(ctx context.Context, ch store.Channel) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.channels[ch.ID]; ok {
		return store.ErrDuplicate
	}

	g.channels[ch.ID] = cloneChannel(ch)
	g.channelOrder = append(g.channelOrder, ch.ID)
	return nil
}

// GetChannel fetches a channel record by id.
func (g *Gateway) GetChannel(ctx context.Context, id string) (store.Channel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ch, ok := g.channels[id]
	if !ok {
		return store.Channel{}, store.ErrNotFound
	}
	return cloneChannel(ch), nil
}

// ListChannels returns every channel, newest first.
func (g *Gateway) ListChannels(ctx context.Context) ([]store.Channel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	channels := make([]store.Channel, 0, len(g.channelOrder))
	for i := len(g.channelOrder) - 1; i >= 0; i-- {
		if ch, ok := g.channels[g.channelOrder[i]]; ok {
			channels = append(channels, cloneChannel(ch))
		}
	}
	return channels, nil
}

// ListChannelsByMember returns every channel whose member set contains username, newest first.
func (g *Gateway) ListChannelsByMember(ctx context.Context, username string) ([]store.Channel, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var channels []store.Channel
	for i := len(g.channelOrder) - 1; i >= 0; i-- {
		if ch, ok := g.channels[g.channelOrder[i]]; ok && ch.IsMember(username) {
			channels = append(channels, cloneChannel(ch))
		}
	}
	return channels, nil
}

// UpdateChannel overwrites the full channel record.
func (g *Gateway) UpdateChannel(ctx context.Context, ch store.Channel) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.channels[ch.ID]; !ok {
		return store.ErrNotFound
	}
	g.channels[ch.ID] = cloneChannel(ch)
	return nil
}

// DeleteChannel removes a channel record permanently.
func (g *Gateway) DeleteChannel(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.channels[id]; !ok {
		return store.ErrNotFound
	}
	delete(g.channels, id)
	return nil
}

// InsertMessage persists a chat message.
func (g *Gateway) InsertMessage(ctx context.Context, msg store.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.messages[msg.ChannelID] = append(g.messages[msg.ChannelID], msg)
	return nil
}

// ListMessages returns the channel's messages in chronological order.
func (g *Gateway) ListMessages(ctx context.Context, channelID string) ([]store.Message, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	msgs := g.messages[channelID]
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// DeleteMessages removes every message persisted under channelID.
func (g *Gateway) DeleteMessages(ctx context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.messages, channelID)
	return nil
}

// cloneChannel copies the record so callers never share the internal slices.
func cloneChannel(ch store.Channel) store.Channel {
	out := ch
	out.Members = append([]string(nil), ch.Members...)
	out.MutedUsers = append([]string(nil), ch.MutedUsers...)
	out.BannedUsers = append([]string(nil), ch.BannedUsers...)
	return out
}
