// Package lifecycle owns every mutation of a committed clan: creation,
// joins, leaves with leader succession, edits and dissolution. Each
// operation runs its checks and its single authoritative store write under
// a per-guild commit lock, and surrounds that write with best-effort
// platform steps.
package lifecycle

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
)

const defaultGrantConcurrency = 5

// Artifacts re-renders the published views of a clan.
type Artifacts interface {
	SyncAfterMutation(ctx context.Context, c *domain.Clan) error
	RefreshJoinPanel(ctx context.Context, guildID string) bool
	DeleteRegistry(ctx context.Context, c *domain.Clan)
	DeleteLog(ctx context.Context, c *domain.Clan)
}

// Nicknames applies and strips clan tags on member nicknames.
type Nicknames interface {
	Apply(ctx context.Context, guildID, userID, tag string) error
	Strip(ctx context.Context, guildID, userID, tag string) error
	Retag(ctx context.Context, guildID, userID, oldTag, newTag string) error
}

// Event is the payload of lifecycle events.
type Event struct {
	GuildID  string
	ClanID   string
	Tag      string
	ActorID  string
	MemberID string
}

// Deps are the collaborators of a Manager. Nicknames, Events and Tracer
// are optional.
type Deps struct {
	Repo      domain.Repository
	Platform  platform.Platform
	Artifacts Artifacts
	Nicknames Nicknames
	Flags     *flags.Registry
	Events    *pubsub.Broker[Event]
	Tracer    trace.Tracer

	Rules          validation.Rules
	ColorThreshold float64
	// LeaderRoleID is the guild-wide privilege role held by clan leaders.
	LeaderRoleID string
	// GrantConcurrency bounds parallel role grants on create. Zero means 5.
	GrantConcurrency int
}

// Manager runs clan lifecycle operations.
type Manager struct {
	repo       domain.Repository
	platform   platform.Platform
	artifacts  Artifacts
	nicknames  Nicknames
	flags      *flags.Registry
	events     *pubsub.Broker[Event]
	tracer     trace.Tracer
	uniqueness *validation.Uniqueness
	membership *validation.Membership
	rules      validation.Rules

	leaderRoleID     string
	grantConcurrency int
	locks            guildLocks
	newID            func() string
}

// New creates a Manager.
func New(d Deps) *Manager {
	gc := d.GrantConcurrency
	if gc <= 0 {
		gc = defaultGrantConcurrency
	}
	return &Manager{
		repo:             d.Repo,
		platform:         d.Platform,
		artifacts:        d.Artifacts,
		nicknames:        d.Nicknames,
		flags:            d.Flags,
		events:           d.Events,
		tracer:           d.Tracer,
		uniqueness:       validation.NewUniqueness(d.Repo, d.ColorThreshold),
		membership:       validation.NewMembership(d.Repo),
		rules:            d.Rules,
		leaderRoleID:     d.LeaderRoleID,
		grantConcurrency: gc,
		locks:            guildLocks{m: map[string]*sync.Mutex{}},
		newID:            uuid.NewString,
	}
}

// Rules returns the input rules the manager validates against.
func (m *Manager) Rules() validation.Rules {
	return m.rules
}

// Uniqueness exposes the uniqueness engine for step-wise validation.
func (m *Manager) Uniqueness() *validation.Uniqueness {
	return m.uniqueness
}

// Membership exposes the membership index for step-wise validation.
func (m *Manager) Membership() *validation.Membership {
	return m.membership
}

// LeaderClan returns the clan led by chatID in the guild, or
// domain.ErrNotLeader.
func (m *Manager) LeaderClan(ctx context.Context, guildID, chatID string) (*domain.Clan, error) {
	clans, err := m.repo.Find(ctx, domain.Filter{GuildID: guildID, LeaderChatID: chatID})
	if err != nil {
		return nil, err
	}
	if len(clans) == 0 {
		return nil, domain.ErrNotLeader
	}
	return clans[0], nil
}

type guildLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock serializes commits within one guild and returns the unlock func.
func (g *guildLocks) lock(guildID string) func() {
	g.mu.Lock()
	l, ok := g.m[guildID]
	if !ok {
		l = &sync.Mutex{}
		g.m[guildID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Manager) publish(t pubsub.EventType, e Event) {
	if m.events == nil {
		return
	}
	m.events.Publish(t, e)
}

func (m *Manager) leaderPrivilege() bool {
	return m.leaderRoleID != "" && m.flags.Enabled(flags.FlagLeaderPrivilege)
}

// grantLeaderPrivilege and revokeLeaderPrivilege are best-effort.
func (m *Manager) grantLeaderPrivilege(ctx context.Context, guildID, userID string) {
	if !m.leaderPrivilege() {
		return
	}
	if err := m.platform.AddMemberRole(ctx, guildID, userID, m.leaderRoleID); err != nil {
		log.Warn(log.CatClan, "Failed to grant leader role", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

func (m *Manager) revokeLeaderPrivilege(ctx context.Context, guildID, userID string) {
	if !m.leaderPrivilege() {
		return
	}
	if err := m.platform.RemoveMemberRole(ctx, guildID, userID, m.leaderRoleID); err != nil && !platform.IsNotFound(err) {
		log.Warn(log.CatClan, "Failed to revoke leader role", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

func (m *Manager) applyTag(ctx context.Context, guildID, userID, tag string) {
	if m.nicknames == nil {
		return
	}
	if err := m.nicknames.Apply(ctx, guildID, userID, tag); err != nil {
		log.Warn(log.CatClan, "Failed to tag nickname", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

func (m *Manager) retag(ctx context.Context, guildID, userID, oldTag, newTag string) {
	if m.nicknames == nil {
		return
	}
	if err := m.nicknames.Retag(ctx, guildID, userID, oldTag, newTag); err != nil {
		log.Warn(log.CatClan, "Failed to retag nickname", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

func (m *Manager) stripTag(ctx context.Context, guildID, userID, tag string) {
	if m.nicknames == nil {
		return
	}
	if err := m.nicknames.Strip(ctx, guildID, userID, tag); err != nil {
		log.Warn(log.CatClan, "Failed to strip nickname tag", "guild_id", guildID, "user_id", userID, "error", err)
	}
}

// afterMutation re-renders summaries and, when panel is set, the join
// panel. Failures are logged only.
func (m *Manager) afterMutation(ctx context.Context, c *domain.Clan, panel bool) {
	if m.artifacts == nil {
		return
	}
	if err := m.artifacts.SyncAfterMutation(ctx, c); err != nil {
		log.ErrorErr(log.CatSync, "Summary sync failed", err, "clan_id", c.ID())
	}
	if panel {
		m.artifacts.RefreshJoinPanel(ctx, c.GuildID())
	}
}
