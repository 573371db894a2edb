package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/store"
	"relaychat/internal/app/store/memory"
)

func TestCreateUserRejectsDuplicates(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	u, err := g.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	_, err = g.CreateUser(ctx, "alice", "other")
	require.ErrorIs(t, err, store.ErrDuplicate)

	fetched, err := g.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "hash", fetched.PasswordHash)

	_, err = g.GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChannelListingsNewestFirst(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.InsertChannel(ctx, store.Channel{
			ID:      id,
			Name:    id,
			Creator: "alice",
			Members: []string{"alice"},
		}))
	}

	channels, err := g.ListChannels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 3)
	require.Equal(t, "c", channels[0].ID)
	require.Equal(t, "a", channels[2].ID)
}

func TestListChannelsByMember(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	require.NoError(t, g.InsertChannel(ctx, store.Channel{
		ID: "a", Creator: "alice", Members: []string{"alice"},
	}))
	require.NoError(t, g.InsertChannel(ctx, store.Channel{
		ID: "b", Creator: "bob", Members: []string{"bob", "alice"},
	}))
	require.NoError(t, g.InsertChannel(ctx, store.Channel{
		ID: "c", Creator: "carol", Members: []string{"carol"},
	}))

	channels, err := g.ListChannelsByMember(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, "b", channels[0].ID)
	require.Equal(t, "a", channels[1].ID)
}

func TestUpdateChannelUnknownID(t *testing.T) {
	g := memory.New()

	err := g.UpdateChannel(context.Background(), store.Channel{ID: "missing"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReturnedChannelIsACopy(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	require.NoError(t, g.InsertChannel(ctx, store.Channel{
		ID: "a", Creator: "alice", Members: []string{"alice"},
	}))

	ch, err := g.GetChannel(ctx, "a")
	require.NoError(t, err)
	ch.Members[0] = "mallory"

	fresh, err := g.GetChannel(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, fresh.Members)
}

func TestMessageLifecycle(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, content := range []string{"one", "two"} {
		require.NoError(t, g.InsertMessage(ctx, store.Message{
			ID:        content,
			ChannelID: "a",
			Username:  "alice",
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := g.ListMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "one", msgs[0].Content)

	require.NoError(t, g.DeleteMessages(ctx, "a"))

	msgs, err = g.ListMessages(ctx, "a")
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestDeleteChannel(t *testing.T) {
	g := memory.New()
	ctx := context.Background()

	require.NoError(t, g.InsertChannel(ctx, store.Channel{ID: "a", Creator: "alice"}))
	require.NoError(t, g.DeleteChannel(ctx, "a"))
	require.ErrorIs(t, g.DeleteChannel(ctx, "a"), store.ErrNotFound)

	_, err := g.GetChannel(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
}
