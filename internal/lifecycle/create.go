package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// CreateRequest is a complete, auto-approved registration.
type CreateRequest struct {
	GuildID   string
	ActorID   string
	Info      domain.Info
	Leader    domain.Identity
	Roster    domain.Roster
	EmblemURL string
}

// CreateResult describes how far creation got. It is returned together
// with any error raised after the role was created.
type CreateResult struct {
	Clan          *domain.Clan
	RoleCreated   bool
	GrantFailures int
}

// Create validates req again under the guild commit lock, creates the
// clan role, grants it, stores the record and publishes the summaries.
// A failed role creation aborts with nothing stored. A failed insert
// deletes the role again.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	res := &CreateResult{}
	attrs := tracing.ClanAttrs(req.GuildID, "", req.Info.Tag, req.ActorID)
	err := tracing.Run(ctx, m.tracer, tracing.SpanCreate, attrs, func(ctx context.Context) error {
		return m.create(ctx, req, res)
	})
	if err != nil {
		log.Info(log.CatClan, "Clan creation failed", "guild_id", req.GuildID, "tag", req.Info.Tag,
			"actor_id", req.ActorID, "role_created", res.RoleCreated, "error", err)
		return res, err
	}
	return res, nil
}

func (m *Manager) create(ctx context.Context, req CreateRequest, res *CreateResult) error {
	info, err := m.rules.NormalizeInfo(req.Info)
	if err != nil {
		return err
	}
	if err := m.rules.CheckRosterShape(req.Leader, req.Roster, true); err != nil {
		return err
	}

	unlock := m.locks.lock(req.GuildID)
	c, err := m.commitCreate(ctx, req, info, res)
	unlock()
	if err != nil {
		return err
	}

	m.afterMutation(ctx, c, true)
	m.applyTag(ctx, req.GuildID, c.Leader().ChatID, c.Tag())
	for _, id := range c.Roster() {
		m.applyTag(ctx, req.GuildID, id.ChatID, c.Tag())
	}

	m.publish(pubsub.ClanCreated, Event{GuildID: c.GuildID(), ClanID: c.ID(), Tag: c.Tag(), ActorID: req.ActorID})
	log.Info(log.CatClan, "Clan created", "guild_id", c.GuildID(), "clan_id", c.ID(), "tag", c.Tag(),
		"members", c.MemberCount(), "grant_failures", res.GrantFailures)
	return nil
}

// commitCreate runs under the guild lock.
func (m *Manager) commitCreate(ctx context.Context, req CreateRequest, info domain.Info, res *CreateResult) (*domain.Clan, error) {
	rej, err := m.uniqueness.Check(ctx, req.GuildID, candidate(info), "")
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return nil, rej
	}
	members := append(domain.Roster{req.Leader}, req.Roster...)
	if err := m.membership.CheckFree(ctx, req.GuildID, members, ""); err != nil {
		return nil, err
	}

	rgb, _ := domain.ParseHex(info.Color)
	role, err := m.platform.CreateRole(ctx, req.GuildID, platform.RoleSpec{
		Name:        info.Tag,
		Color:       rgb.Int(),
		Hoist:       true,
		Mentionable: true,
	})
	if err != nil {
		return nil, &domain.ExternalCallError{Op: "create role", Err: err}
	}
	res.RoleCreated = true
	tracing.Event(ctx, tracing.EventRoleCreated, attribute.String("role_id", role.ID))

	res.GrantFailures = m.grantAll(ctx, req.GuildID, role.ID, members)
	m.grantLeaderPrivilege(ctx, req.GuildID, req.Leader.ChatID)

	c := domain.NewClan(m.newID(), req.GuildID, info, req.Leader, req.Roster, req.EmblemURL, req.ActorID)
	c.SetRoleID(role.ID)
	if err := m.repo.Insert(ctx, c); err != nil {
		m.compensateRole(ctx, req.GuildID, role.ID, req.Leader.ChatID)
		var integrity *domain.IntegrityError
		if errors.As(err, &integrity) {
			return nil, err
		}
		return nil, fmt.Errorf("storing clan %s: %w", info.Tag, err)
	}
	tracing.Event(ctx, tracing.EventRecordCommitted, attribute.String(tracing.AttrClanID, c.ID()))
	res.Clan = c
	return c, nil
}

// grantAll gives roleID to every member in parallel and returns how many
// grants failed.
func (m *Manager) grantAll(ctx context.Context, guildID, roleID string, members domain.Roster) int {
	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.grantConcurrency)
	for _, id := range members {
		g.Go(func() error {
			if err := m.platform.AddMemberRole(gctx, guildID, id.ChatID, roleID); err != nil {
				failures.Add(1)
				log.Warn(log.CatClan, "Failed to grant clan role", "guild_id", guildID, "user_id", id.ChatID, "role_id", roleID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	n := int(failures.Load())
	if n > 0 {
		tracing.Event(ctx, tracing.EventStepFailed, attribute.String(tracing.AttrStep, "grant"), attribute.Int(tracing.AttrFailures, n))
	}
	return n
}

func (m *Manager) compensateRole(ctx context.Context, guildID, roleID, leaderID string) {
	if err := m.platform.DeleteRole(ctx, guildID, roleID); err != nil {
		log.ErrorErr(log.CatClan, "Failed to delete role after aborted creation", err, "guild_id", guildID, "role_id", roleID)
	}
	m.revokeLeaderPrivilege(ctx, guildID, leaderID)
	tracing.Event(ctx, tracing.EventCompensated, attribute.String("role_id", roleID))
}
