// Package platform describes the chat platform operations the bot needs,
// independent of any particular client library.
package platform

import (
	"context"
	"errors"
)

// ErrNotFound reports a role, member or message that no longer exists.
var ErrNotFound = errors.New("platform: not found")

// ErrTimeout is returned by collectors when nothing arrived in time.
var ErrTimeout = errors.New("platform: wait timed out")

// Platform is the set of guild operations used by the clan lifecycle.
type Platform interface {
	CreateRole(ctx context.Context, guildID string, spec RoleSpec) (Role, error)
	EditRole(ctx context.Context, guildID, roleID string, spec RoleSpec) error
	DeleteRole(ctx context.Context, guildID, roleID string) error

	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
	// FetchMember returns ErrNotFound when the user is not in the guild.
	FetchMember(ctx context.Context, guildID, userID string) (Member, error)
	SetNickname(ctx context.Context, guildID, userID, nickname string) error
	GuildOwner(ctx context.Context, guildID string) (string, error)

	SendMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// Collector waits for follow-up user activity. Both methods block until a
// match arrives or ctx is done, and stop listening on return.
type Collector interface {
	// AwaitAttachment waits for a message with an image attachment from
	// userID in channelID.
	AwaitAttachment(ctx context.Context, channelID, userID string) (Attachment, error)
	// AwaitButton waits for userID to press the button with customID.
	AwaitButton(ctx context.Context, customID, userID string) error
}

// Responder answers one interaction.
type Responder interface {
	// Reply sends a new response message.
	Reply(ctx context.Context, msg Message, ephemeral bool) error
	// Update replaces the message the component lives on.
	Update(ctx context.Context, msg Message) error
	// ShowForm opens a modal form. Only valid as the first response.
	ShowForm(ctx context.Context, form Form) error
	// Defer acknowledges now and lets FollowUp deliver the answer later.
	Defer(ctx context.Context, ephemeral bool) error
	// FollowUp sends a message after Defer or Reply.
	FollowUp(ctx context.Context, msg Message, ephemeral bool) error
}

// IsNotFound reports whether err means the target no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
