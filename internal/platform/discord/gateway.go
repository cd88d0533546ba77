package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
)

// Handler receives routed gateway events.
type Handler interface {
	HandleInteraction(ctx context.Context, in platform.Interaction, r platform.Responder)
	HandleCommand(ctx context.Context, cmd platform.TextCommand, r platform.Responder)
}

// CommandParser splits message content into a command name and args.
type CommandParser func(content string) (name string, args []string, ok bool)

// Intents the bot needs: component events, message content for text
// commands and emblem uploads, and member lookups.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsMessageContent

// Gateway connects a session to a Handler. Collector waiters see events
// before the handler does.
type Gateway struct {
	session   *discordgo.Session
	handler   Handler
	collector *Collector
	parse     CommandParser
	guildID   string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGuild drops events from every guild but guildID. Empty serves all.
func WithGuild(guildID string) GatewayOption {
	return func(g *Gateway) { g.guildID = guildID }
}

// NewGateway creates a gateway for s.
func NewGateway(s *discordgo.Session, h Handler, c *Collector, parse CommandParser, opts ...GatewayOption) *Gateway {
	s.Identify.Intents = Intents
	g := &Gateway{session: s, handler: h, collector: c, parse: parse}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) serves(guildID string) bool {
	return guildID != "" && (g.guildID == "" || g.guildID == guildID)
}

// Run opens the session and serves events until ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	removers := []func(){
		g.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			log.Info(log.CatPlatform, "Connected to gateway", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
		g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			g.onInteraction(ctx, i)
		}),
		g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			g.onMessage(ctx, m)
		}),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	log.Info(log.CatPlatform, "Gateway open")

	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		log.Warn(log.CatPlatform, "Gateway close failed", "error", err)
	}
	log.Info(log.CatPlatform, "Gateway closed")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (g *Gateway) onInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	in, ok := interactionFrom(i)
	if !ok || !g.serves(in.GuildID) {
		return
	}
	r := newResponder(g.session, i.Interaction)
	if i.Type == discordgo.InteractionMessageComponent && g.collector.OfferButton(in.CustomID, in.User.ID) {
		if err := r.ack(ctx); err != nil {
			log.Warn(log.CatPlatform, "Ack failed", "custom_id", in.CustomID, "error", err)
		}
		return
	}
	g.handler.HandleInteraction(ctx, in, r)
}

func (g *Gateway) onMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || !g.serves(m.GuildID) {
		return
	}
	if a, ok := attachmentFrom(m); ok && g.collector.OfferAttachment(m.ChannelID, m.Author.ID, a) {
		log.Debug(log.CatPlatform, "Attachment collected", "user_id", m.Author.ID, "channel_id", m.ChannelID)
		return
	}
	if g.parse == nil {
		return
	}
	name, args, ok := g.parse(m.Content)
	if !ok {
		return
	}
	cmd := commandFrom(m, name, args)
	perms, err := g.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Warn(log.CatPlatform, "Permission lookup failed", "user_id", m.Author.ID, "error", err)
	}
	cmd.IsAdmin = perms&discordgo.PermissionAdministrator != 0
	g.handler.HandleCommand(ctx, cmd, &channelResponder{session: g.session, channelID: m.ChannelID, messageID: m.ID})
}

func commandFrom(m *discordgo.MessageCreate, name string, args []string) platform.TextCommand {
	author := platform.Member{ID: m.Author.ID, Username: userName(m.Author), Bot: m.Author.Bot}
	if m.Member != nil {
		author.Nickname = m.Member.Nick
		author.Roles = m.Member.Roles
	}
	return platform.TextCommand{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Author:    author,
		Name:      name,
		Args:      args,
	}
}

// channelResponder answers a text command with channel messages. Forms
// are not available outside interactions.
type channelResponder struct {
	session   *discordgo.Session
	channelID string
	messageID string
}

var errNoForms = errors.New("forms need an interaction")

func (r *channelResponder) send(ctx context.Context, msg platform.Message) error {
	data := messageSend(msg)
	data.Reference = &discordgo.MessageReference{MessageID: r.messageID, ChannelID: r.channelID}
	_, err := r.session.ChannelMessageSendComplex(r.channelID, data, discordgo.WithContext(ctx))
	return mapErr("send reply", err)
}

func (r *channelResponder) Reply(ctx context.Context, msg platform.Message, _ bool) error {
	return r.send(ctx, msg)
}

func (r *channelResponder) Update(ctx context.Context, msg platform.Message) error {
	return r.send(ctx, msg)
}

func (r *channelResponder) ShowForm(context.Context, platform.Form) error { return errNoForms }

func (r *channelResponder) Defer(context.Context, bool) error { return nil }

func (r *channelResponder) FollowUp(ctx context.Context, msg platform.Message, _ bool) error {
	return r.send(ctx, msg)
}
