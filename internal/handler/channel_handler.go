/*
Package handler provides HTTP handler functions for channel listings and
channel administration.

Channel listings are global: every client sees every channel, newest first,
and refreshes its local view from the lifecycle broadcasts the registry emits
after each mutation.
*/
package handler

import (
	"net/http"

	"relaychat/internal/app/channel"
	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

// channelViews converts store records for the HTTP response.
func channelViews(channels []store.Channel) []chat.ChannelView {
	views := make([]chat.ChannelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, chat.NewChannelView(ch))
	}
	return views
}

// HandleListChannels returns every channel, newest first.
func HandleListChannels(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels, err := deps.Store.ListChannels(r.Context())
		if err != nil {
			logx.Error(err, "failed to list channels")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"channels": channelViews(channels),
		})
	}
}

type UserChannelsInput struct {
	Username string `json:"username"`
}

// HandleListUserChannels returns the channels the given user is a member of, newest first.
func HandleListUserChannels(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input UserChannelsInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		channels, err := deps.Store.ListChannelsByMember(r.Context(), input.Username)
		if err != nil {
			logx.Error(err, "failed to list user channels", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"channels": channelViews(channels),
		})
	}
}

type ManageChannelInput struct {
	ChannelID   string `json:"channelId"`
	ActingUser  string `json:"actingUser"`
	Action      string `json:"action"`
	NewName     string `json:"newName,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
	TargetUser  string `json:"targetUser,omitempty"`
}

// HandleManageChannel executes one administrative action on a channel.
// An authenticated identity overrides the acting user supplied in the body.
func HandleManageChannel(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ManageChannelInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		actingUser := input.ActingUser
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			actingUser = identity.Username
		}

		if input.ChannelID == "" || actingUser == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		action, ok := channel.ParseAction(input.Action)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidChannelAction))
			return
		}

		ch, manageErr := deps.Registry.Manage(r.Context(), channel.ManageRequest{
			ChannelID:   input.ChannelID,
			ActingUser:  actingUser,
			Action:      action,
			NewName:     input.NewName,
			NewPassword: input.NewPassword,
			TargetUser:  input.TargetUser,
		})
		if manageErr != nil {
			resp.RespondError(w, r, manageErr)
			return
		}

		data := map[string]any{}
		if ch != nil {
			data["channel"] = chat.NewChannelView(*ch)
		}
		resp.RespondSuccess(w, r, data)
	}
}
