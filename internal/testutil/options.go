package testutil

import (
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// Person returns a deterministic, well-formed identity for index n.
func Person(n int) domain.Identity {
	return domain.Identity{
		Nickname: fmt.Sprintf("player%d", n),
		GameID:   fmt.Sprintf("7656119%010d", n),
		ChatID:   fmt.Sprintf("1%017d", n),
	}
}

// People returns identities for indexes from..from+count-1.
func People(from, count int) domain.Roster {
	r := make(domain.Roster, count)
	for i := range r {
		r[i] = Person(from + i)
	}
	return r
}

// clanData holds everything needed to build a clan.
type clanData struct {
	guildID   string
	info      domain.Info
	leader    domain.Identity
	roster    domain.Roster
	roleID    string
	registry  string
	logMsg    string
	emblemURL string
	createdBy string
}

// ClanOption configures a clan under construction.
type ClanOption func(*clanData)

func Guild(id string) ClanOption          { return func(c *clanData) { c.guildID = id } }
func Tag(tag string) ClanOption           { return func(c *clanData) { c.info.Tag = tag } }
func Name(name string) ClanOption         { return func(c *clanData) { c.info.Name = name } }
func Color(hex string) ClanOption         { return func(c *clanData) { c.info.Color = hex } }
func Server(s string) ClanOption          { return func(c *clanData) { c.info.Server = s } }
func Description(d string) ClanOption     { return func(c *clanData) { c.info.Description = d } }
func Leader(id domain.Identity) ClanOption { return func(c *clanData) { c.leader = id; c.createdBy = id.ChatID } }
func Roster(r domain.Roster) ClanOption   { return func(c *clanData) { c.roster = r } }
func RoleID(id string) ClanOption         { return func(c *clanData) { c.roleID = id } }
func Emblem(url string) ClanOption        { return func(c *clanData) { c.emblemURL = url } }

// Messages sets the registry and log message refs.
func Messages(registry, logMsg string) ClanOption {
	return func(c *clanData) { c.registry = registry; c.logMsg = logMsg }
}

func defaultClan(id string) clanData {
	leader := Person(9000)
	return clanData{
		guildID: "guild-1",
		info: domain.Info{
			Tag:         "TST",
			Name:        "Test Clan " + id,
			Description: "a test clan",
			Color:       "#336699",
			Server:      "1",
		},
		leader:    leader,
		roster:    People(9001, 4),
		roleID:    "role-" + id,
		createdBy: leader.ChatID,
	}
}

// NewClan builds a clan without storing it.
func NewClan(id string, opts ...ClanOption) *domain.Clan {
	d := defaultClan(id)
	for _, opt := range opts {
		opt(&d)
	}
	c := domain.NewClan(id, d.guildID, d.info, d.leader, d.roster, d.emblemURL, d.createdBy)
	c.Apply(domain.Patch{
		RoleID:            &d.roleID,
		RegistryMessageID: &d.registry,
		LogMessageID:      &d.logMsg,
	})
	return c
}
