// Package bot routes platform events to the registration wizard and the
// lifecycle manager and turns their results into replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/clanbot/internal/artifacts"
	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/registration"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// genericFailure is the reply for anything that is not a user error.
const genericFailure = "❌ Something went wrong. Please try again in a moment."

// Deps are the collaborators of a Bot.
type Deps struct {
	Wizard    *registration.Wizard
	Manager   *lifecycle.Manager
	Artifacts *artifacts.Synchronizer
	Renderer  *render.Renderer
	Events    *pubsub.Broker[lifecycle.Event]
	Flags     *flags.Registry
	Tracer    trace.Tracer
	Config    config.Config
}

// Bot handles interactions and text commands.
type Bot struct {
	wizard    *registration.Wizard
	manager   *lifecycle.Manager
	artifacts *artifacts.Synchronizer
	render    *render.Renderer
	events    *pubsub.Broker[lifecycle.Event]
	flags     *flags.Registry
	tracer    trace.Tracer
	cfg       config.Config
	now       func() time.Time

	exact    map[string]handler
	prefixed []prefixRoute
}

// New creates a Bot and builds its routing table.
func New(d Deps) *Bot {
	b := &Bot{
		wizard:    d.Wizard,
		manager:   d.Manager,
		artifacts: d.Artifacts,
		render:    d.Renderer,
		events:    d.Events,
		flags:     d.Flags,
		tracer:    d.Tracer,
		cfg:       d.Config,
		now:       time.Now,
	}
	b.routes()
	return b
}

// HandleInteraction answers one button, select or form event. It never
// returns an error: failures are logged and answered here.
func (b *Bot) HandleInteraction(ctx context.Context, in platform.Interaction, r platform.Responder) {
	attrs := append(tracing.ClanAttrs(in.GuildID, "", "", in.User.ID), attribute.String(tracing.AttrCustomID, in.CustomID))
	_ = tracing.Run(ctx, b.tracer, tracing.SpanInteraction, attrs, func(ctx context.Context) error {
		b.guard(ctx, r, "interaction", in.User.ID, in.CustomID, func() error {
			h, ok := b.route(in.CustomID)
			if !ok {
				log.Debug(log.CatBot, "No route for interaction", "custom_id", in.CustomID)
				return nil
			}
			return h(ctx, in, r)
		})
		return nil
	})
}

// HandleCommand answers a prefixed text command.
func (b *Bot) HandleCommand(ctx context.Context, cmd platform.TextCommand, r platform.Responder) {
	b.guard(ctx, r, "command", cmd.Author.ID, cmd.Name, func() error {
		switch cmd.Name {
		case "create-clan":
			return b.postRegistrationPanel(ctx, cmd, r)
		case "insignia-setup":
			return b.postJoinPanel(ctx, cmd, r)
		}
		return nil
	})
}

// guard is the error boundary around every handler. User errors are
// replied verbatim; anything else, panics included, is logged and gets
// the generic reply.
func (b *Bot) guard(ctx context.Context, r platform.Responder, action, actorID, customID string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
				log.Error(log.CatBot, "Handler panicked", "action", action, "actor_id", actorID,
					"custom_id", customID, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	if msg, ok := domain.UserMessage(err); ok {
		log.Info(log.CatBot, "User error", "action", action, "actor_id", actorID, "custom_id", customID, "error", err)
		b.answer(ctx, r, "❌ "+msg)
		return
	}
	log.ErrorErr(log.CatBot, "Handler failed", err, "action", action, "actor_id", actorID,
		"custom_id", customID, "trace_id", tracing.TraceID(ctx))
	b.answer(ctx, r, genericFailure)
}

// answer replies with a danger notice, falling back to a follow-up when
// the interaction was already answered.
func (b *Bot) answer(ctx context.Context, r platform.Responder, text string) {
	msg := b.render.Notice(config.ColorDanger, text)
	if err := r.Reply(ctx, msg, true); err != nil {
		if ferr := r.FollowUp(ctx, msg, true); ferr != nil {
			log.Warn(log.CatBot, "Could not deliver error reply", "error", errors.Join(err, ferr))
		}
	}
}

func (b *Bot) notice(color, text string) platform.Message {
	return b.render.Notice(color, text)
}

func (b *Bot) postRegistrationPanel(ctx context.Context, cmd platform.TextCommand, r platform.Responder) error {
	if !cmd.IsAdmin {
		return &domain.UserError{Msg: "Only administrators can post the registration panel."}
	}
	log.Info(log.CatBot, "Posting registration panel", "guild_id", cmd.GuildID, "channel_id", cmd.ChannelID)
	return r.Reply(ctx, b.render.RegistrationPanel(), false)
}

func (b *Bot) postJoinPanel(ctx context.Context, cmd platform.TextCommand, r platform.Responder) error {
	if !cmd.IsAdmin {
		return &domain.UserError{Msg: "Only administrators can set up the join panel."}
	}
	channel := cmd.ChannelID
	if b.cfg.Channels.JoinPanel != "" {
		channel = b.cfg.Channels.JoinPanel
	}
	ref, err := b.artifacts.PostJoinPanel(ctx, cmd.GuildID, channel)
	if err != nil {
		return err
	}
	log.Info(log.CatBot, "Join panel posted", "guild_id", cmd.GuildID, "channel_id", ref.ChannelID, "message_id", ref.MessageID)
	if ref.ChannelID == cmd.ChannelID {
		return nil
	}
	return r.Reply(ctx, b.notice(config.ColorSuccess, "✅ Join panel posted in <#"+ref.ChannelID+">."), false)
}

// ParseCommand splits content into a command when it starts with prefix.
func ParseCommand(prefix, content string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	if len(fields) > 1 {
		args = fields[1:]
	}
	return strings.ToLower(fields[0]), args, true
}
