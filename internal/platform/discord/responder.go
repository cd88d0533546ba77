package discord

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/zjrosen/clanbot/internal/platform"
)

// errAnswered is returned by initial responses after the first one.
var errAnswered = errors.New("interaction already answered")

// interactionAPI is the part of discordgo.Session a Responder uses.
type interactionAPI interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Responder answers one interaction. Only the first of Reply, Update,
// ShowForm and Defer is sent as the interaction response.
type Responder struct {
	api interactionAPI
	in  *discordgo.Interaction

	mu       sync.Mutex
	answered bool
}

var _ platform.Responder = (*Responder)(nil)

func newResponder(api interactionAPI, in *discordgo.Interaction) *Responder {
	return &Responder{api: api, in: in}
}

func (r *Responder) respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.answered {
		return errAnswered
	}
	if err := r.api.InteractionRespond(r.in, resp, discordgo.WithContext(ctx)); err != nil {
		return mapErr("respond", err)
	}
	r.answered = true
	return nil
}

func (r *Responder) Reply(ctx context.Context, msg platform.Message, ephemeral bool) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(msg, ephemeral),
	})
}

func (r *Responder) Update(ctx context.Context, msg platform.Message) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: responseData(msg, false),
	})
}

func (r *Responder) ShowForm(ctx context.Context, form platform.Form) error {
	return r.respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: modalData(form),
	})
}

func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.respond(ctx, resp)
}

// ack silently acknowledges a component press that a collector consumed.
func (r *Responder) ack(ctx context.Context) error {
	return r.respond(ctx, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
}

func (r *Responder) FollowUp(ctx context.Context, msg platform.Message, ephemeral bool) error {
	params := &discordgo.WebhookParams{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Components),
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.api.FollowupMessageCreate(r.in, true, params, discordgo.WithContext(ctx))
	return mapErr("follow up", err)
}
