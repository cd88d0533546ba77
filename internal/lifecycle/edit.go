package lifecycle

import (
	"context"
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/tracing"
)

func candidate(info domain.Info) validation.Candidate {
	return validation.Candidate{Tag: info.Tag, Name: info.Name, Color: info.Color}
}

// EditInfo replaces the tag, name, description, color and server of the
// clan led by actorID.
func (m *Manager) EditInfo(ctx context.Context, guildID, actorID string, info domain.Info) (*domain.Clan, error) {
	var edited *domain.Clan
	attrs := tracing.ClanAttrs(guildID, "", info.Tag, actorID)
	err := tracing.Run(ctx, m.tracer, tracing.SpanEditInfo, attrs, func(ctx context.Context) error {
		info, err := m.rules.NormalizeInfo(info)
		if err != nil {
			return err
		}

		unlock := m.locks.lock(guildID)
		c, oldTag, err := m.commitEditInfo(ctx, guildID, actorID, info)
		unlock()
		if err != nil {
			return err
		}

		if oldTag != c.Tag() {
			for _, id := range c.Members() {
				m.retag(ctx, guildID, id.ChatID, oldTag, c.Tag())
			}
		}
		m.afterMutation(ctx, c, true)
		m.publish(pubsub.ClanEdited, Event{GuildID: guildID, ClanID: c.ID(), Tag: c.Tag(), ActorID: actorID})
		log.Info(log.CatClan, "Clan info edited", "guild_id", guildID, "clan_id", c.ID(), "tag", c.Tag(), "old_tag", oldTag)
		edited = c
		return nil
	})
	return edited, err
}

func (m *Manager) commitEditInfo(ctx context.Context, guildID, actorID string, info domain.Info) (*domain.Clan, string, error) {
	c, err := m.LeaderClan(ctx, guildID, actorID)
	if err != nil {
		return nil, "", err
	}
	rej, err := m.uniqueness.Check(ctx, guildID, candidate(info), c.ID())
	if err != nil {
		return nil, "", err
	}
	if rej != nil {
		return nil, "", rej
	}

	oldTag := c.Tag()
	restyle := info.Tag != c.Tag() || info.Color != c.Color()

	patch := domain.Patch{Info: &info}
	if err := m.repo.Update(ctx, c.ID(), patch); err != nil {
		return nil, "", fmt.Errorf("storing info of clan %s: %w", c.ID(), err)
	}
	c.Apply(patch)

	// The role follows the stored record, never the other way round.
	if restyle {
		rgb, _ := domain.ParseHex(info.Color)
		spec := platform.RoleSpec{Name: info.Tag, Color: rgb.Int(), Hoist: true, Mentionable: true}
		if err := m.platform.EditRole(ctx, guildID, c.RoleID(), spec); err != nil {
			log.Warn(log.CatClan, "Failed to update clan role", "clan_id", c.ID(), "role_id", c.RoleID(), "error", err)
		}
	}
	return c, oldTag, nil
}

// RosterEdit is the outcome of EditRoster.
type RosterEdit struct {
	Clan          *domain.Clan
	Before        domain.Roster
	Added         domain.Roster
	Removed       domain.Roster
	GrantFailures int
}

// EditRoster replaces the roster of the clan led by actorID with the
// members listed in text. Only the difference is granted or revoked.
func (m *Manager) EditRoster(ctx context.Context, guildID, actorID, text string) (*RosterEdit, error) {
	var res *RosterEdit
	err := tracing.Run(ctx, m.tracer, tracing.SpanEditRoster, tracing.ClanAttrs(guildID, "", "", actorID), func(ctx context.Context) error {
		next, err := domain.ParseRoster(text)
		if err != nil {
			return err
		}

		unlock := m.locks.lock(guildID)
		r, err := m.commitEditRoster(ctx, guildID, actorID, next)
		unlock()
		if err != nil {
			return err
		}

		c := r.Clan
		r.GrantFailures = m.grantAll(ctx, guildID, c.RoleID(), r.Added)
		for _, id := range r.Removed {
			if err := m.platform.RemoveMemberRole(ctx, guildID, id.ChatID, c.RoleID()); err != nil && !platform.IsNotFound(err) {
				log.Warn(log.CatClan, "Failed to revoke clan role", "clan_id", c.ID(), "user_id", id.ChatID, "error", err)
			}
			m.stripTag(ctx, guildID, id.ChatID, c.Tag())
		}
		for _, id := range r.Added {
			m.applyTag(ctx, guildID, id.ChatID, c.Tag())
		}

		m.afterMutation(ctx, c, true)
		m.publish(pubsub.ClanEdited, Event{GuildID: guildID, ClanID: c.ID(), Tag: c.Tag(), ActorID: actorID})
		log.Info(log.CatClan, "Clan roster edited", "guild_id", guildID, "clan_id", c.ID(),
			"added", len(r.Added), "removed", len(r.Removed), "grant_failures", r.GrantFailures)
		res = r
		return nil
	})
	return res, err
}

func (m *Manager) commitEditRoster(ctx context.Context, guildID, actorID string, next domain.Roster) (*RosterEdit, error) {
	c, err := m.LeaderClan(ctx, guildID, actorID)
	if err != nil {
		return nil, err
	}
	if err := m.rules.CheckRosterShape(c.Leader(), next, false); err != nil {
		return nil, err
	}
	if err := m.membership.CheckFree(ctx, guildID, next, c.ID()); err != nil {
		return nil, err
	}

	before := c.Roster()
	added, removed := before.Diff(next)
	patch := domain.Patch{Roster: &next}
	if err := m.repo.Update(ctx, c.ID(), patch); err != nil {
		return nil, fmt.Errorf("storing roster of clan %s: %w", c.ID(), err)
	}
	c.Apply(patch)
	return &RosterEdit{Clan: c, Before: before, Added: added, Removed: removed}, nil
}
