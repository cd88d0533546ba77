// Package domain holds the clan entity, its roster and identity types, the
// error taxonomy shared by the lifecycle packages, and the Repository
// interface the stores implement. It has no infrastructure dependencies.
package domain

import (
	"strings"
	"time"
)

// Status is the approval state of a clan. Only auto-approval exists, so
// every stored clan is approved.
type Status string

const StatusApproved Status = "approved"

// Info is the user-editable descriptive part of a clan.
type Info struct {
	Tag         string
	Name        string
	Description string
	Color       string // "#RRGGBB"
	Server      string
}

// Clan is a registered clan. Fields are unexported; stores rebuild it
// through Reconstitute.
type Clan struct {
	id      string
	guildID string
	info    Info

	leader Identity
	roster Roster

	roleID            string
	registryMessageID string
	logMessageID      string
	emblemURL         string

	status    Status
	createdBy string
	createdAt time.Time
	updatedAt time.Time
}

// NewClan creates an approved clan with the given id.
func NewClan(id, guildID string, info Info, leader Identity, roster Roster, emblemURL, createdBy string) *Clan {
	now := time.Now()
	return &Clan{
		id:        id,
		guildID:   guildID,
		info:      info,
		leader:    leader,
		roster:    append(Roster(nil), roster...),
		emblemURL: emblemURL,
		status:    StatusApproved,
		createdBy: createdBy,
		createdAt: now,
		updatedAt: now,
	}
}

// Snapshot is the flat, exported form of a Clan used by stores.
type Snapshot struct {
	ID                string
	GuildID           string
	Info              Info
	Leader            Identity
	Roster            Roster
	RoleID            string
	RegistryMessageID string
	LogMessageID      string
	EmblemURL         string
	Status            Status
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Reconstitute rebuilds a Clan from persisted state.
func Reconstitute(s Snapshot) *Clan {
	return &Clan{
		id:                s.ID,
		guildID:           s.GuildID,
		info:              s.Info,
		leader:            s.Leader,
		roster:            append(Roster(nil), s.Roster...),
		roleID:            s.RoleID,
		registryMessageID: s.RegistryMessageID,
		logMessageID:      s.LogMessageID,
		emblemURL:         s.EmblemURL,
		status:            s.Status,
		createdBy:         s.CreatedBy,
		createdAt:         s.CreatedAt,
		updatedAt:         s.UpdatedAt,
	}
}

// Snapshot returns a copy of the clan's state.
func (c *Clan) Snapshot() Snapshot {
	return Snapshot{
		ID:                c.id,
		GuildID:           c.guildID,
		Info:              c.info,
		Leader:            c.leader,
		Roster:            append(Roster(nil), c.roster...),
		RoleID:            c.roleID,
		RegistryMessageID: c.registryMessageID,
		LogMessageID:      c.logMessageID,
		EmblemURL:         c.emblemURL,
		Status:            c.status,
		CreatedBy:         c.createdBy,
		CreatedAt:         c.createdAt,
		UpdatedAt:         c.updatedAt,
	}
}

func (c *Clan) ID() string                { return c.id }
func (c *Clan) GuildID() string           { return c.guildID }
func (c *Clan) Info() Info                { return c.info }
func (c *Clan) Tag() string               { return c.info.Tag }
func (c *Clan) Name() string              { return c.info.Name }
func (c *Clan) Description() string       { return c.info.Description }
func (c *Clan) Color() string             { return c.info.Color }
func (c *Clan) Server() string            { return c.info.Server }
func (c *Clan) Leader() Identity          { return c.leader }
func (c *Clan) Roster() Roster            { return append(Roster(nil), c.roster...) }
func (c *Clan) RoleID() string            { return c.roleID }
func (c *Clan) RegistryMessageID() string { return c.registryMessageID }
func (c *Clan) LogMessageID() string      { return c.logMessageID }
func (c *Clan) EmblemURL() string         { return c.emblemURL }
func (c *Clan) Status() Status            { return c.status }
func (c *Clan) CreatedBy() string         { return c.createdBy }
func (c *Clan) CreatedAt() time.Time      { return c.createdAt }
func (c *Clan) UpdatedAt() time.Time      { return c.updatedAt }

// MemberCount counts the leader plus the roster.
func (c *Clan) MemberCount() int {
	return 1 + len(c.roster)
}

// Members returns the leader followed by the roster.
func (c *Clan) Members() []Identity {
	out := make([]Identity, 0, c.MemberCount())
	out = append(out, c.leader)
	return append(out, c.roster...)
}

// HasMember reports whether the leader or a roster entry carries either id.
func (c *Clan) HasMember(chatID, gameID string) bool {
	if c.leader.Matches(chatID, gameID) {
		return true
	}
	for _, id := range c.roster {
		if id.Matches(chatID, gameID) {
			return true
		}
	}
	return false
}

// IsLeader reports whether chatID is the clan leader.
func (c *Clan) IsLeader(chatID string) bool {
	return chatID != "" && c.leader.ChatID == chatID
}

// SameTag compares tags case-insensitively.
func (c *Clan) SameTag(tag string) bool {
	return strings.EqualFold(c.info.Tag, tag)
}

// SameName compares names case-insensitively.
func (c *Clan) SameName(name string) bool {
	return strings.EqualFold(c.info.Name, name)
}

// Apply applies p in memory. Stores call it after a successful write so the
// caller's copy matches what was persisted.
func (c *Clan) Apply(p Patch) {
	if p.Info != nil {
		c.info = *p.Info
	}
	if p.Leader != nil {
		c.leader = *p.Leader
	}
	if p.Roster != nil {
		c.roster = append(Roster(nil), (*p.Roster)...)
	}
	if p.RoleID != nil {
		c.roleID = *p.RoleID
	}
	if p.RegistryMessageID != nil {
		c.registryMessageID = *p.RegistryMessageID
	}
	if p.LogMessageID != nil {
		c.logMessageID = *p.LogMessageID
	}
	if p.EmblemURL != nil {
		c.emblemURL = *p.EmblemURL
	}
	c.updatedAt = time.Now()
}

// SetRoleID records the platform role created for the clan.
func (c *Clan) SetRoleID(roleID string) {
	c.roleID = roleID
}
