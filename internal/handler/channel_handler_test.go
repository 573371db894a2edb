package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/store"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/resp"
)

type channelListData struct {
	Channels []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Creator     string   `json:"creator"`
		HasPassword bool     `json:"hasPassword"`
		Members     []string `json:"members"`
	} `json:"channels"`
}

func decodeChannels(t *testing.T, decoded resp.JSONResponse) channelListData {
	t.Helper()

	raw, err := json.Marshal(decoded.Data)
	require.NoError(t, err)

	var data channelListData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}

func TestListChannelsNewestFirstWithoutPasswords(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	_, customErr := deps.Registry.Create(ctx, "first", "", "alice")
	require.Nil(t, customErr)
	second, customErr := deps.Registry.Create(ctx, "second", "hunter2", "bob")
	require.Nil(t, customErr)

	r := httptest.NewRequest(http.MethodGet, "/api/channels/", nil)
	w := httptest.NewRecorder()
	handler.HandleListChannels(deps)(w, r)

	var decoded resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	require.Equal(t, 0, decoded.Code)

	data := decodeChannels(t, decoded)
	require.Len(t, data.Channels, 2)
	require.Equal(t, second.ID, data.Channels[0].ID)
	require.True(t, data.Channels[0].HasPassword)
	require.Equal(t, "first", data.Channels[1].Name)

	require.NotContains(t, w.Body.String(), "hunter2")
}

func TestListUserChannels(t *testing.T) {
	deps := newTestDeps()
	ctx := context.Background()

	mine, customErr := deps.Registry.Create(ctx, "mine", "", "alice")
	require.Nil(t, customErr)
	_, customErr = deps.Registry.Create(ctx, "other", "", "bob")
	require.Nil(t, customErr)

	_, decoded := postJSON(t, handler.HandleListUserChannels(deps), "/api/channels/mine", handler.UserChannelsInput{
		Username: "alice",
	}, nil)
	require.Equal(t, 0, decoded.Code)

	data := decodeChannels(t, decoded)
	require.Len(t, data.Channels, 1)
	require.Equal(t, mine.ID, data.Channels[0].ID)
}

func TestManageChannelRename(t *testing.T) {
	deps := newTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)

	_, decoded := postJSON(t, handler.HandleManageChannel(deps), "/api/channels/manage", handler.ManageChannelInput{
		ChannelID:  ch.ID,
		ActingUser: "alice",
		Action:     "rename",
		NewName:    "rustaceans",
	}, nil)
	require.Equal(t, 0, decoded.Code)

	stored, err := deps.Store.GetChannel(context.Background(), ch.ID)
	require.NoError(t, err)
	require.Equal(t, "rustaceans", stored.Name)
}

func TestManageChannelUnknownAction(t *testing.T) {
	deps := newTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)

	_, decoded := postJSON(t, handler.HandleManageChannel(deps), "/api/channels/manage", handler.ManageChannelInput{
		ChannelID:  ch.ID,
		ActingUser: "alice",
		Action:     "promote",
		TargetUser: "bob",
	}, nil)
	require.Equal(t, errs.ErrInvalidChannelAction, decoded.Code)
}

func TestManageChannelNonCreatorForbidden(t *testing.T) {
	deps := newTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)

	w, decoded := postJSON(t, handler.HandleManageChannel(deps), "/api/channels/manage", handler.ManageChannelInput{
		ChannelID:  ch.ID,
		ActingUser: "bob",
		Action:     "mute",
		TargetUser: "alice",
	}, nil)
	require.Equal(t, errs.ErrNotChannelOwner, decoded.Code)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestManageChannelNotFoundStatus(t *testing.T) {
	deps := newTestDeps()

	w, decoded := postJSON(t, handler.HandleManageChannel(deps), "/api/channels/manage", handler.ManageChannelInput{
		ChannelID:  "no-such-channel",
		ActingUser: "alice",
		Action:     "dissolve",
	}, nil)
	require.Equal(t, errs.ErrChannelNotFound, decoded.Code)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestManageChannelDissolve(t *testing.T) {
	deps := newTestDeps()

	ch, customErr := deps.Registry.Create(context.Background(), "gophers", "", "alice")
	require.Nil(t, customErr)

	_, decoded := postJSON(t, handler.HandleManageChannel(deps), "/api/channels/manage", handler.ManageChannelInput{
		ChannelID:  ch.ID,
		ActingUser: "alice",
		Action:     "dissolve",
	}, nil)
	require.Equal(t, 0, decoded.Code)

	_, err := deps.Store.GetChannel(context.Background(), ch.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
