package lifecycle

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// JoinRequest adds Member to the clan holding RoleID.
type JoinRequest struct {
	GuildID string
	RoleID  string
	Member  domain.Identity
}

// Join appends the member to the clan's roster. The role grant is part
// of the commit: if it fails nothing is stored.
func (m *Manager) Join(ctx context.Context, req JoinRequest) (*domain.Clan, error) {
	var joined *domain.Clan
	attrs := append(tracing.ClanAttrs(req.GuildID, "", "", req.Member.ChatID), attribute.String(tracing.AttrMemberID, req.Member.ChatID))
	err := tracing.Run(ctx, m.tracer, tracing.SpanJoin, attrs, func(ctx context.Context) error {
		id, err := validation.NormalizeIdentity(req.Member)
		if err != nil {
			return err
		}

		unlock := m.locks.lock(req.GuildID)
		c, err := m.commitJoin(ctx, req.GuildID, req.RoleID, id)
		unlock()
		if err != nil {
			return err
		}

		m.applyTag(ctx, req.GuildID, id.ChatID, c.Tag())
		m.afterMutation(ctx, c, true)
		m.publish(pubsub.MemberJoined, Event{GuildID: req.GuildID, ClanID: c.ID(), Tag: c.Tag(), ActorID: id.ChatID, MemberID: id.ChatID})
		log.Info(log.CatClan, "Member joined clan", "guild_id", req.GuildID, "clan_id", c.ID(), "user_id", id.ChatID)
		joined = c
		return nil
	})
	return joined, err
}

func (m *Manager) commitJoin(ctx context.Context, guildID, roleID string, id domain.Identity) (*domain.Clan, error) {
	if roleID == "" {
		return nil, &domain.ClanNotFoundError{Key: "role"}
	}
	c, err := m.repo.FindOne(ctx, domain.Filter{GuildID: guildID, RoleID: roleID})
	if err != nil {
		return nil, err
	}
	other, err := m.membership.FindClanOf(ctx, guildID, validation.Lookup{ChatID: id.ChatID, GameID: id.GameID}, "")
	if err != nil {
		return nil, err
	}
	if other != nil {
		return nil, &domain.AlreadyInClanError{ChatID: id.ChatID, GameID: id.GameID, ClanTag: other.Tag(), Name: other.Name()}
	}

	if err := m.platform.AddMemberRole(ctx, guildID, id.ChatID, c.RoleID()); err != nil {
		return nil, &domain.ExternalCallError{Op: "grant clan role", Err: err}
	}

	roster := append(c.Roster(), id)
	if err := m.repo.Update(ctx, c.ID(), domain.Patch{Roster: &roster}); err != nil {
		if rerr := m.platform.RemoveMemberRole(ctx, guildID, id.ChatID, c.RoleID()); rerr != nil {
			log.Warn(log.CatClan, "Failed to revoke role after aborted join", "user_id", id.ChatID, "error", rerr)
		}
		return nil, fmt.Errorf("storing roster of clan %s: %w", c.ID(), err)
	}
	c.Apply(domain.Patch{Roster: &roster})
	return c, nil
}

// LeaveOutcome says what a leave did to the clan.
type LeaveOutcome int

const (
	// LeftRoster: a roster member left.
	LeftRoster LeaveOutcome = iota + 1
	// LeaderReplaced: the leader left and a roster member took over.
	LeaderReplaced
	// Dissolved: the leader left and nobody could take over.
	Dissolved
)

// LeaveResult reports a completed leave.
type LeaveResult struct {
	Clan      *domain.Clan
	Outcome   LeaveOutcome
	NewLeader domain.Identity
}

// Leave removes chatID from its clan. A leaving leader is replaced by the
// first roster member still present in the guild; with none the clan is
// dissolved.
func (m *Manager) Leave(ctx context.Context, guildID, chatID string) (*LeaveResult, error) {
	var res *LeaveResult
	attrs := append(tracing.ClanAttrs(guildID, "", "", chatID), attribute.String(tracing.AttrMemberID, chatID))
	err := tracing.Run(ctx, m.tracer, tracing.SpanLeave, attrs, func(ctx context.Context) error {
		unlock := m.locks.lock(guildID)
		r, err := m.commitLeave(ctx, guildID, chatID)
		unlock()
		if err != nil {
			return err
		}
		res = r
		c := r.Clan

		switch r.Outcome {
		case LeftRoster:
			m.afterMutation(ctx, c, true)
			m.publish(pubsub.MemberLeft, Event{GuildID: guildID, ClanID: c.ID(), Tag: c.Tag(), ActorID: chatID, MemberID: chatID})
			log.Info(log.CatClan, "Member left clan", "guild_id", guildID, "clan_id", c.ID(), "user_id", chatID)
		case LeaderReplaced:
			m.afterMutation(ctx, c, true)
			m.publish(pubsub.LeaderChanged, Event{GuildID: guildID, ClanID: c.ID(), Tag: c.Tag(), ActorID: chatID, MemberID: r.NewLeader.ChatID})
			log.Info(log.CatClan, "Clan leader replaced", "guild_id", guildID, "clan_id", c.ID(), "old_leader", chatID, "new_leader", r.NewLeader.ChatID)
		case Dissolved:
			log.Info(log.CatClan, "Clan dissolved after leader left", "guild_id", guildID, "clan_id", c.ID())
		}
		return nil
	})
	return res, err
}

func (m *Manager) commitLeave(ctx context.Context, guildID, chatID string) (*LeaveResult, error) {
	c, err := m.membership.FindClanOf(ctx, guildID, validation.Lookup{ChatID: chatID}, "")
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotMember
	}

	if c.IsLeader(chatID) {
		return m.succeed(ctx, c, chatID)
	}

	i := c.Roster().IndexOfChat(chatID)
	if i < 0 {
		return nil, domain.ErrNotMember
	}
	roster := c.Roster().Without(i)
	if err := m.repo.Update(ctx, c.ID(), domain.Patch{Roster: &roster}); err != nil {
		return nil, fmt.Errorf("storing roster of clan %s: %w", c.ID(), err)
	}
	c.Apply(domain.Patch{Roster: &roster})

	if err := m.platform.RemoveMemberRole(ctx, guildID, chatID, c.RoleID()); err != nil && !platform.IsNotFound(err) {
		log.Warn(log.CatClan, "Failed to revoke clan role", "guild_id", guildID, "user_id", chatID, "error", err)
	}
	m.stripTag(ctx, guildID, chatID, c.Tag())
	return &LeaveResult{Clan: c, Outcome: LeftRoster}, nil
}

// succeed hands the clan to the first present roster member, or
// dissolves it.
func (m *Manager) succeed(ctx context.Context, c *domain.Clan, outgoing string) (*LeaveResult, error) {
	roster := c.Roster()
	for i, cand := range roster {
		if _, err := m.platform.FetchMember(ctx, c.GuildID(), cand.ChatID); err != nil {
			if !platform.IsNotFound(err) {
				log.Warn(log.CatClan, "Could not resolve succession candidate", "clan_id", c.ID(), "user_id", cand.ChatID, "error", err)
			}
			continue
		}

		rest := roster.Without(i)
		patch := domain.Patch{Leader: &cand, Roster: &rest}
		if err := m.repo.Update(ctx, c.ID(), patch); err != nil {
			return nil, fmt.Errorf("storing new leader of clan %s: %w", c.ID(), err)
		}
		c.Apply(patch)
		tracing.Event(ctx, tracing.EventLeaderPromoted, attribute.String(tracing.AttrMemberID, cand.ChatID))

		m.grantLeaderPrivilege(ctx, c.GuildID(), cand.ChatID)
		m.revokeLeaderPrivilege(ctx, c.GuildID(), outgoing)
		if err := m.platform.RemoveMemberRole(ctx, c.GuildID(), outgoing, c.RoleID()); err != nil && !platform.IsNotFound(err) {
			log.Warn(log.CatClan, "Failed to revoke clan role from old leader", "clan_id", c.ID(), "user_id", outgoing, "error", err)
		}
		m.stripTag(ctx, c.GuildID(), outgoing, c.Tag())
		return &LeaveResult{Clan: c, Outcome: LeaderReplaced, NewLeader: cand}, nil
	}

	if err := m.dissolve(ctx, c, outgoing); err != nil {
		return nil, err
	}
	return &LeaveResult{Clan: c, Outcome: Dissolved}, nil
}
