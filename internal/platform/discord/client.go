// Package discord implements the platform interfaces on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/zjrosen/clanbot/internal/platform"
)

// Client is a platform.Platform backed by a discordgo session.
type Client struct {
	s *discordgo.Session
}

var _ platform.Platform = (*Client)(nil)

// NewClient wraps an opened or unopened session.
func NewClient(s *discordgo.Session) *Client {
	return &Client{s: s}
}

// mapErr turns a 404 REST response into platform.ErrNotFound and wraps
// everything else with op.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, platform.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func roleParams(spec platform.RoleSpec) *discordgo.RoleParams {
	color := spec.Color
	hoist := spec.Hoist
	mentionable := spec.Mentionable
	return &discordgo.RoleParams{
		Name:        spec.Name,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	}
}

func (c *Client) CreateRole(ctx context.Context, guildID string, spec platform.RoleSpec) (platform.Role, error) {
	r, err := c.s.GuildRoleCreate(guildID, roleParams(spec), discordgo.WithContext(ctx))
	if err != nil {
		return platform.Role{}, mapErr("create role", err)
	}
	return platform.Role{ID: r.ID, Name: r.Name, Color: r.Color}, nil
}

func (c *Client) EditRole(ctx context.Context, guildID, roleID string, spec platform.RoleSpec) error {
	_, err := c.s.GuildRoleEdit(guildID, roleID, roleParams(spec), discordgo.WithContext(ctx))
	return mapErr("edit role", err)
}

func (c *Client) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return mapErr("delete role", c.s.GuildRoleDelete(guildID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return mapErr("add member role", c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return mapErr("remove member role", c.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (c *Client) FetchMember(ctx context.Context, guildID, userID string) (platform.Member, error) {
	m, err := c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Member{}, mapErr("fetch member", err)
	}
	return memberFrom(m), nil
}

func (c *Client) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	return mapErr("set nickname", c.s.GuildMemberNickname(guildID, userID, nickname, discordgo.WithContext(ctx)))
}

func (c *Client) GuildOwner(ctx context.Context, guildID string) (string, error) {
	if c.s.State != nil {
		if g, err := c.s.State.Guild(guildID); err == nil && g.OwnerID != "" {
			return g.OwnerID, nil
		}
	}
	g, err := c.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr("fetch guild", err)
	}
	return g.OwnerID, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.Message) (platform.MessageRef, error) {
	m, err := c.s.ChannelMessageSendComplex(channelID, messageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return platform.MessageRef{}, mapErr("send message", err)
	}
	return platform.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}, nil
}

func (c *Client) EditMessage(ctx context.Context, ref platform.MessageRef, msg platform.Message) error {
	_, err := c.s.ChannelMessageEditComplex(messageEdit(ref, msg), discordgo.WithContext(ctx))
	return mapErr("edit message", err)
}

func (c *Client) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	return mapErr("delete message", c.s.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)))
}
