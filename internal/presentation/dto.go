// Package presentation converts clans into CLI output: JSON for scripts
// and a styled table for people.
package presentation

import (
	"time"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// IdentityDTO is a member identity.
type IdentityDTO struct {
	Nickname string `json:"nickname"`
	GameID   string `json:"game_id"`
	ChatID   string `json:"chat_id"`
}

// ClanDTO represents a clan for presentation.
type ClanDTO struct {
	ID          string        `json:"id"`
	GuildID     string        `json:"guild_id"`
	Tag         string        `json:"tag"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Color       string        `json:"color"`
	Server      string        `json:"server"`
	Leader      IdentityDTO   `json:"leader"`
	Members     int           `json:"members"` // leader included
	Roster      []IdentityDTO `json:"roster"`
	RoleID      string        `json:"role_id,omitempty"`
	EmblemURL   string        `json:"emblem_url,omitempty"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func fromIdentity(i domain.Identity) IdentityDTO {
	return IdentityDTO{Nickname: i.Nickname, GameID: i.GameID, ChatID: i.ChatID}
}

// FromDomainClan converts a clan to a DTO.
func FromDomainClan(c *domain.Clan) ClanDTO {
	roster := make([]IdentityDTO, 0, len(c.Roster()))
	for _, m := range c.Roster() {
		roster = append(roster, fromIdentity(m))
	}
	info := c.Info()
	return ClanDTO{
		ID:          c.ID(),
		GuildID:     c.GuildID(),
		Tag:         info.Tag,
		Name:        info.Name,
		Description: info.Description,
		Color:       info.Color,
		Server:      info.Server,
		Leader:      fromIdentity(c.Leader()),
		Members:     c.MemberCount(),
		Roster:      roster,
		RoleID:      c.RoleID(),
		EmblemURL:   c.EmblemURL(),
		Status:      string(c.Status()),
		CreatedAt:   c.CreatedAt(),
		UpdatedAt:   c.UpdatedAt(),
	}
}

// FromDomainClans converts a list of clans.
func FromDomainClans(clans []*domain.Clan) []ClanDTO {
	out := make([]ClanDTO, 0, len(clans))
	for _, c := range clans {
		out = append(out, FromDomainClan(c))
	}
	return out
}
