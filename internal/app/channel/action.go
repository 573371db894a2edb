/*
Package channel implements the channel registry and the membership and
moderation engine of the chat service.

This file defines the closed set of administrative actions a channel creator
may perform. The wire-level action names are parsed into the Action enum once,
at the transport boundary, so the registry handles an exhaustive set of cases
and an unrecognized action can never reach it.
*/
package channel

// Action enumerates the administrative operations on a channel.
type Action int

const (
	// ActionRename changes the channel's display name.
	ActionRename Action = iota

	// ActionChangePassword sets or clears the channel password.
	ActionChangePassword

	// ActionMute prevents the target user from posting without removing membership.
	ActionMute

	// ActionUnmute lifts a mute. Unmuting a user who is not muted is a no-op.
	ActionUnmute

	// ActionBan revokes the target's membership and prevents rejoining.
	ActionBan

	// ActionUnban lifts a ban. It does not restore membership.
	ActionUnban

	// ActionClearChat deletes every message in the channel, leaving channel state untouched.
	ActionClearChat

	// ActionDissolve deletes the channel's messages and then the channel itself, permanently.
	ActionDissolve
)

// actionNames maps the wire-level action names of the manage-channel request
// onto the enum.
var actionNames = map[string]Action{
	"rename":         ActionRename,
	"changePassword": ActionChangePassword,
	"mute":           ActionMute,
	"unmute":         ActionUnmute,
	"ban":            ActionBan,
	"unban":          ActionUnban,
	"clearChat":      ActionClearChat,
	"dissolve":       ActionDissolve,
}

// ParseAction resolves a wire-level action name. The second return value is
// false for unknown names.
func ParseAction(name string) (Action, bool) {
	a, ok := actionNames[name]
	return a, ok
}

// String returns the wire-level name of the action.
func (a Action) String() string {
	for name, action := range actionNames {
		if action == a {
			return name
		}
	}
	return "unknown"
}

// targetsUser reports whether the action carries a target username parameter.
func (a Action) targetsUser() bool {
	switch a {
	case ActionMute, ActionUnmute, ActionBan, ActionUnban:
		return true
	default:
		return false
	}
}

// ManageRequest carries one administrative action and its parameters.
type ManageRequest struct {
	ChannelID  string
	ActingUser string
	Action     Action

	// NewName applies to ActionRename.
	NewName string

	// NewPassword applies to ActionChangePassword. Empty clears the password,
	// making the channel open.
	NewPassword string

	// TargetUser applies to the mute/unmute/ban/unban actions.
	TargetUser string
}
