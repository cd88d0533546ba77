package lifecycle

import (
	"context"
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// DissolutionRequest is a pending dissolve awaiting the leader's
// confirmation.
type DissolutionRequest struct {
	Clan      *domain.Clan
	ConfirmID string
	CancelID  string
}

// RequestDissolution checks that actorID leads a clan and returns the
// custom IDs of the confirm and cancel buttons for it.
func (m *Manager) RequestDissolution(ctx context.Context, guildID, actorID string) (*DissolutionRequest, error) {
	c, err := m.LeaderClan(ctx, guildID, actorID)
	if err != nil {
		return nil, err
	}
	return &DissolutionRequest{
		Clan:      c,
		ConfirmID: render.IDManageDeleteConfirmPrefix + c.ID(),
		CancelID:  render.IDManageDeleteCancelPrefix + c.ID(),
	}, nil
}

// ConfirmDissolution dissolves clanID if actorID still leads it.
func (m *Manager) ConfirmDissolution(ctx context.Context, guildID, actorID, clanID string) (*domain.Clan, error) {
	var dissolved *domain.Clan
	err := tracing.Run(ctx, m.tracer, tracing.SpanDissolve, tracing.ClanAttrs(guildID, clanID, "", actorID), func(ctx context.Context) error {
		unlock := m.locks.lock(guildID)
		defer unlock()

		c, err := m.repo.FindOne(ctx, domain.Filter{ID: clanID, GuildID: guildID})
		if err != nil {
			return err
		}
		if !c.IsLeader(actorID) {
			return domain.ErrNotLeader
		}
		if err := m.dissolve(ctx, c, actorID); err != nil {
			return err
		}
		dissolved = c
		return nil
	})
	return dissolved, err
}

// dissolve tears the clan down in a fixed order: role, registry summary,
// log summary, leader privilege, record, join panel. Only the record
// delete can fail the operation. Callers hold the guild lock.
func (m *Manager) dissolve(ctx context.Context, c *domain.Clan, actorID string) error {
	if c.RoleID() != "" {
		if err := m.platform.DeleteRole(ctx, c.GuildID(), c.RoleID()); err != nil && !platform.IsNotFound(err) {
			log.Warn(log.CatClan, "Failed to delete clan role", "clan_id", c.ID(), "role_id", c.RoleID(), "error", err)
		}
	}
	if m.artifacts != nil {
		m.artifacts.DeleteRegistry(ctx, c)
		m.artifacts.DeleteLog(ctx, c)
	}
	m.revokeLeaderPrivilege(ctx, c.GuildID(), c.Leader().ChatID)

	if err := m.repo.Delete(ctx, c.ID()); err != nil {
		return fmt.Errorf("deleting clan %s: %w", c.ID(), err)
	}

	if m.artifacts != nil {
		m.artifacts.RefreshJoinPanel(ctx, c.GuildID())
	}
	for _, id := range c.Members() {
		m.stripTag(ctx, c.GuildID(), id.ChatID, c.Tag())
	}

	m.publish(pubsub.ClanDissolved, Event{GuildID: c.GuildID(), ClanID: c.ID(), Tag: c.Tag(), ActorID: actorID})
	log.Info(log.CatClan, "Clan dissolved", "guild_id", c.GuildID(), "clan_id", c.ID(), "tag", c.Tag(), "actor_id", actorID)
	return nil
}
