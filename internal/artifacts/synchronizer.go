// Package artifacts keeps the externally published views of a clan in
// line with its record: the registry and log summaries and the guild's
// join panel.
package artifacts

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// StateStore is the small key-value store holding the join panel ref.
type StateStore interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// JoinPanelKey returns the state key of a guild's join panel ref.
func JoinPanelKey(guildID string) string {
	return "join_panel:" + guildID
}

// Synchronizer re-renders clan artifacts after mutations. All message
// operations are best-effort: failures are logged and never fail the
// mutation that triggered them.
type Synchronizer struct {
	platform platform.Platform
	repo     domain.Repository
	state    StateStore
	render   *render.Renderer
	channels config.ChannelsConfig
	tracer   trace.Tracer
}

// New creates a Synchronizer. tracer may be nil.
func New(p platform.Platform, repo domain.Repository, state StateStore, r *render.Renderer, channels config.ChannelsConfig, tracer trace.Tracer) *Synchronizer {
	return &Synchronizer{
		platform: p,
		repo:     repo,
		state:    state,
		render:   r,
		channels: channels,
		tracer:   tracer,
	}
}

// SyncAfterMutation edits both summaries of c in place, or sends them when
// c has no ref yet and stores the new refs on the record and on c. A
// summary whose message was deleted externally is logged and skipped. The
// error return is reserved for failing to persist new refs.
func (s *Synchronizer) SyncAfterMutation(ctx context.Context, c *domain.Clan) error {
	attrs := tracing.ClanAttrs(c.GuildID(), c.ID(), c.Tag(), "")
	return tracing.Run(ctx, s.tracer, tracing.SpanSync, attrs, func(ctx context.Context) error {
		var patch domain.Patch
		failures := 0

		if id, ok := s.syncOne(ctx, c, "registry", s.channels.Registry, c.RegistryMessageID(), s.render.RegistrySummary(c), &failures); ok {
			patch.RegistryMessageID = &id
		}
		if id, ok := s.syncOne(ctx, c, "log", s.channels.Log, c.LogMessageID(), s.render.LogSummary(c), &failures); ok {
			patch.LogMessageID = &id
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int(tracing.AttrFailures, failures))

		if patch.IsEmpty() {
			return nil
		}
		if err := s.repo.Update(ctx, c.ID(), patch); err != nil {
			return fmt.Errorf("storing summary refs for clan %s: %w", c.ID(), err)
		}
		c.Apply(patch)
		return nil
	})
}

// syncOne edits or sends one summary. It returns the new message id when a
// fresh message was sent.
func (s *Synchronizer) syncOne(ctx context.Context, c *domain.Clan, kind, channelID, messageID string, msg platform.Message, failures *int) (string, bool) {
	if channelID == "" {
		log.Debug(log.CatSync, "No channel configured for summary", "kind", kind, "clan_id", c.ID())
		return "", false
	}

	if messageID != "" {
		ref := platform.MessageRef{ChannelID: channelID, MessageID: messageID}
		if err := s.platform.EditMessage(ctx, ref, msg); err != nil {
			*failures++
			if platform.IsNotFound(err) {
				log.Warn(log.CatSync, "Summary message no longer exists, skipping", "kind", kind, "clan_id", c.ID(), "message_id", messageID)
			} else {
				log.ErrorErr(log.CatSync, "Failed to edit summary", err, "kind", kind, "clan_id", c.ID(), "message_id", messageID)
			}
		}
		return "", false
	}

	ref, err := s.platform.SendMessage(ctx, channelID, msg)
	if err != nil {
		*failures++
		log.ErrorErr(log.CatSync, "Failed to send summary", err, "kind", kind, "clan_id", c.ID(), "channel_id", channelID)
		return "", false
	}
	log.Debug(log.CatSync, "Summary sent", "kind", kind, "clan_id", c.ID(), "message_id", ref.MessageID)
	return ref.MessageID, true
}

// DeleteRegistry deletes the registry summary of c, if any.
func (s *Synchronizer) DeleteRegistry(ctx context.Context, c *domain.Clan) {
	s.deleteOne(ctx, c, "registry", s.channels.Registry, c.RegistryMessageID())
}

// DeleteLog deletes the log summary of c, if any.
func (s *Synchronizer) DeleteLog(ctx context.Context, c *domain.Clan) {
	s.deleteOne(ctx, c, "log", s.channels.Log, c.LogMessageID())
}

// DeleteSummaries deletes both summaries, registry first.
func (s *Synchronizer) DeleteSummaries(ctx context.Context, c *domain.Clan) {
	s.DeleteRegistry(ctx, c)
	s.DeleteLog(ctx, c)
}

func (s *Synchronizer) deleteOne(ctx context.Context, c *domain.Clan, kind, channelID, messageID string) {
	if channelID == "" || messageID == "" {
		return
	}
	err := s.platform.DeleteMessage(ctx, platform.MessageRef{ChannelID: channelID, MessageID: messageID})
	switch {
	case err == nil:
		log.Debug(log.CatSync, "Summary deleted", "kind", kind, "clan_id", c.ID())
	case platform.IsNotFound(err):
		log.Debug(log.CatSync, "Summary already gone", "kind", kind, "clan_id", c.ID())
	default:
		log.Warn(log.CatSync, "Failed to delete summary", "kind", kind, "clan_id", c.ID(), "error", err)
	}
}

// RefreshJoinPanel re-renders the guild's join panel with every approved
// clan. A missing or stale panel ref is logged and ignored. It reports
// whether the panel was updated.
func (s *Synchronizer) RefreshJoinPanel(ctx context.Context, guildID string) bool {
	var ref platform.MessageRef
	found, err := s.state.Get(JoinPanelKey(guildID), &ref)
	if err != nil {
		log.Warn(log.CatSync, "Join panel ref unreadable", "guild_id", guildID, "error", err)
		return false
	}
	if !found || ref.IsZero() {
		log.Warn(log.CatSync, "Join panel not set up, skipping refresh", "guild_id", guildID)
		return false
	}

	var updated bool
	_ = tracing.Run(ctx, s.tracer, tracing.SpanJoinPanel, tracing.ClanAttrs(guildID, "", "", ""), func(ctx context.Context) error {
		clans, err := s.repo.Find(ctx, domain.Filter{GuildID: guildID, Status: domain.StatusApproved})
		if err != nil {
			log.ErrorErr(log.CatSync, "Loading clans for join panel failed", err, "guild_id", guildID)
			return err
		}
		if err := s.platform.EditMessage(ctx, ref, s.render.JoinPanel(clans)); err != nil {
			if platform.IsNotFound(err) {
				log.Warn(log.CatSync, "Join panel message is stale, skipping refresh", "guild_id", guildID, "message_id", ref.MessageID)
			} else {
				log.ErrorErr(log.CatSync, "Failed to refresh join panel", err, "guild_id", guildID)
			}
			return err
		}
		updated = true
		return nil
	})
	return updated
}

// PostJoinPanel sends a new join panel to channelID and remembers it for
// the guild. A previous panel, if any, is deleted best-effort.
func (s *Synchronizer) PostJoinPanel(ctx context.Context, guildID, channelID string) (platform.MessageRef, error) {
	clans, err := s.repo.Find(ctx, domain.Filter{GuildID: guildID, Status: domain.StatusApproved})
	if err != nil {
		return platform.MessageRef{}, fmt.Errorf("loading clans for join panel: %w", err)
	}

	ref, err := s.platform.SendMessage(ctx, channelID, s.render.JoinPanel(clans))
	if err != nil {
		return platform.MessageRef{}, &domain.ExternalCallError{Op: "send join panel", Err: err}
	}

	var old platform.MessageRef
	if found, _ := s.state.Get(JoinPanelKey(guildID), &old); found && !old.IsZero() && old != ref {
		if err := s.platform.DeleteMessage(ctx, old); err != nil && !platform.IsNotFound(err) {
			log.Warn(log.CatSync, "Failed to delete previous join panel", "guild_id", guildID, "error", err)
		}
	}

	if err := s.state.Set(JoinPanelKey(guildID), ref); err != nil {
		return ref, fmt.Errorf("storing join panel ref: %w", err)
	}
	log.Info(log.CatSync, "Join panel posted", "guild_id", guildID, "channel_id", channelID, "message_id", ref.MessageID)
	return ref, nil
}
