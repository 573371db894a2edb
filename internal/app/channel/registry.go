/*
Package channel implements the channel registry and the membership and
moderation engine of the chat service.

This file defines the Registry struct, the single authority for channel state.
Every mutation of a channel record (create, manage actions, join) goes through
the Registry, which serializes read-modify-write cycles per channel id so that
concurrent moderation calls on the same channel never lose updates. The
persistence gateway remains the source of truth; the Registry holds no channel
cache of its own.
*/
package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

// Notifier receives global channel-lifecycle notifications. Implementations
// fan the events out to every connected session, not only channel members:
// clients keep their channel lists fresh from these broadcasts instead of
// computing deltas.
type Notifier interface {
	ChannelCreated(ch store.Channel)
	ChannelUpdated(ch store.Channel)
	ChannelDissolved(channelID string)
}

// Registry coordinates all channel state mutations and enforces the
// membership and moderation rules.
type Registry struct {
	store    store.Store
	notifier Notifier

	// locks serializes operations per channel id. Distinct channels are
	// mutated concurrently; the same channel is not.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	logger zerolog.Logger
}

// NewRegistry constructs a Registry over the given persistence gateway.
func NewRegistry(st store.Store, notifier Notifier) *Registry {
	return &Registry{
		store:    st,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
		logger:   logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// lockChannel acquires the per-channel mutex and returns its unlock function.
// Mutex entries are retired when a channel dissolves.
func (r *Registry) lockChannel(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (r *Registry) retireLock(id string) {
	r.mu.Lock()
	delete(r.locks, id)
	r.mu.Unlock()
}

// Create registers a new channel owned by creator, persists it, and notifies
// all connected sessions. An empty password leaves the channel open.
func (r *Registry) Create(ctx context.Context, name, password, creator string) (store.Channel, *errs.CustomError) {
	if name == "" || creator == "" {
		return store.Channel{}, errs.NewError(errs.ErrInvalidParams)
	}

	ch := store.Channel{
		ID:          randx.ChannelID(),
		Name:        name,
		Creator:     creator,
		Password:    password,
		Members:     []string{creator},
		MutedUsers:  []string{},
		BannedUsers: []string{},
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.store.InsertChannel(ctx, ch); err != nil {
		r.logger.Error().Err(err).Str("channel_name", name).Msg("Failed to persist new channel.")
		return store.Channel{}, errs.NewError(errs.ErrStoreFailed)
	}

	r.logger.Info().
		Str("channel_id", ch.ID).
		Str("creator", creator).
		Msg("Channel created.")

	r.notifier.ChannelCreated(ch)
	return ch, nil
}

// Manage executes one administrative action under the channel's lock.
// Only the channel creator is authorized. The returned channel reflects the
// post-mutation state; it is nil after a dissolve.
func (r *Registry) Manage(ctx context.Context, req ManageRequest) (*store.Channel, *errs.CustomError) {
	if req.Action.targetsUser() && req.TargetUser == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	unlock := r.lockChannel(req.ChannelID)
	defer unlock()

	ch, err := r.store.GetChannel(ctx, req.ChannelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NewError(errs.ErrChannelNotFound)
		}
		r.logger.Error().Err(err).Str("channel_id", req.ChannelID).Msg("Channel fetch failed.")
		return nil, errs.NewError(errs.ErrStoreFailed)
	}

	if req.ActingUser != ch.Creator {
		return nil, errs.NewError(errs.ErrNotChannelOwner)
	}

	switch req.Action {
	case ActionRename:
		if req.NewName == "" {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		ch.Name = req.NewName

	case ActionChangePassword:
		ch.Password = req.NewPassword

	case ActionMute:
		ch.MutedUsers = addUser(ch.MutedUsers, req.TargetUser)

	case ActionUnmute:
		ch.MutedUsers = removeUser(ch.MutedUsers, req.TargetUser)

	case ActionBan:
		// Banning the creator would break the invariant that the creator is
		// always a member.
		if req.TargetUser == ch.Creator {
			return nil, errs.NewError(errs.ErrCreatorImmune)
		}
		ch.BannedUsers = addUser(ch.BannedUsers, req.TargetUser)
		ch.Members = removeUser(ch.Members, req.TargetUser)

	case ActionUnban:
		// Membership is not restored; the user has to join again.
		ch.BannedUsers = removeUser(ch.BannedUsers, req.TargetUser)

	case ActionClearChat:
		if err := r.store.DeleteMessages(ctx, ch.ID); err != nil {
			r.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to clear channel history.")
			return nil, errs.NewError(errs.ErrStoreFailed)
		}
		r.logger.Info().Str("channel_id", ch.ID).Msg("Channel history cleared.")
		return &ch, nil

	case ActionDissolve:
		return r.dissolve(ctx, ch)
	}

	if err := r.store.UpdateChannel(ctx, ch); err != nil {
		r.logger.Error().Err(err).
			Str("channel_id", ch.ID).
			Str("action", req.Action.String()).
			Msg("Failed to persist channel mutation.")
		return nil, errs.NewError(errs.ErrStoreFailed)
	}

	r.logger.Info().
		Str("channel_id", ch.ID).
		Str("action", req.Action.String()).
		Str("target", req.TargetUser).
		Msg("Channel action applied.")

	r.notifier.ChannelUpdated(ch)
	return &ch, nil
}

// dissolve deletes the channel's messages, then the channel record, then
// notifies all sessions. The two deletes span collections without a
// transaction; message deletion failure is logged and the dissolve proceeds.
func (r *Registry) dissolve(ctx context.Context, ch store.Channel) (*store.Channel, *errs.CustomError) {
	if err := r.store.DeleteMessages(ctx, ch.ID); err != nil {
		r.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to delete messages during dissolve. Continuing.")
	}

	if err := r.store.DeleteChannel(ctx, ch.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NewError(errs.ErrChannelNotFound)
		}
		r.logger.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to delete channel record.")
		return nil, errs.NewError(errs.ErrStoreFailed)
	}

	r.retireLock(ch.ID)

	r.logger.Info().Str("channel_id", ch.ID).Msg("Channel dissolved.")

	r.notifier.ChannelDissolved(ch.ID)
	return nil, nil
}

// Join admits username into the channel, enforcing the ban list and the
// password gate, and returns the channel together with its full chronological
// message history. Joining a channel the user already belongs to succeeds
// without mutating state.
func (r *Registry) Join(ctx context.Context, channelID, username, password string) (store.Channel, []store.Message, *errs.CustomError) {
	if username == "" {
		return store.Channel{}, nil, errs.NewError(errs.ErrInvalidParams)
	}

	unlock := r.lockChannel(channelID)
	defer unlock()

	ch, err := r.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Channel{}, nil, errs.NewError(errs.ErrChannelNotFound)
		}
		r.logger.Error().Err(err).Str("channel_id", channelID).Msg("Channel fetch failed.")
		return store.Channel{}, nil, errs.NewError(errs.ErrStoreFailed)
	}

	if ch.IsBanned(username) {
		return store.Channel{}, nil, errs.NewError(errs.ErrChannelBanned)
	}

	if ch.Password != "" && ch.Password != password {
		return store.Channel{}, nil, errs.NewError(errs.ErrChannelPasswordWrong)
	}

	if !ch.IsMember(username) {
		ch.Members = addUser(ch.Members, username)
		if err := r.store.UpdateChannel(ctx, ch); err != nil {
			r.logger.Error().Err(err).
				Str("channel_id", channelID).
				Str("username", username).
				Msg("Failed to persist membership.")
			return store.Channel{}, nil, errs.NewError(errs.ErrStoreFailed)
		}

		r.logger.Info().
			Str("channel_id", channelID).
			Str("username", username).
			Msg("User joined channel.")
	}

	history, err := r.store.ListMessages(ctx, channelID)
	if err != nil {
		r.logger.Error().Err(err).Str("channel_id", channelID).Msg("Failed to load channel history.")
		return store.Channel{}, nil, errs.NewError(errs.ErrStoreFailed)
	}

	return ch, history, nil
}

// CheckSpeaker reports whether username may post to the channel right now.
// The public room is unmoderated and always allows posting. A muted user gets
// ErrChannelMuted; the rejection is private, produces no broadcast and no
// persisted message.
func (r *Registry) CheckSpeaker(ctx context.Context, channelID, username string) *errs.CustomError {
	if channelID == store.PublicChannelID {
		return nil
	}

	ch, err := r.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.NewError(errs.ErrChannelNotFound)
		}
		r.logger.Error().Err(err).Str("channel_id", channelID).Msg("Channel fetch failed.")
		return errs.NewError(errs.ErrStoreFailed)
	}

	if ch.IsMuted(username) {
		return errs.NewError(errs.ErrChannelMuted)
	}

	return nil
}

// addUser appends username if absent, keeping the set free of duplicates.
func addUser(list []string, username string) []string {
	for _, u := range list {
		if u == username {
			return list
		}
	}
	return append(list, username)
}

// removeUser drops every occurrence of username, preserving order of the rest.
func removeUser(list []string, username string) []string {
	out := list[:0]
	for _, u := range list {
		if u != username {
			out = append(out, u)
		}
	}
	return out
}
