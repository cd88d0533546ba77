package bot

import (
	"context"
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/render"
)

func (b *Bot) openEditInfo(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	c, err := b.manager.LeaderClan(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	return r.ShowForm(ctx, b.render.EditInfoForm(c))
}

func (b *Bot) submitEditInfo(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	c, err := b.manager.EditInfo(ctx, in.GuildID, in.User.ID, infoFromForm(in))
	if err != nil {
		return err
	}
	return r.Reply(ctx, b.notice(config.ColorSuccess, fmt.Sprintf("✅ Clan info updated: **%s %s**.", c.Tag(), c.Name())), true)
}

func (b *Bot) openEditRoster(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	c, err := b.manager.LeaderClan(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	return r.ShowForm(ctx, b.render.RosterForm(render.FormManageRoster, c.Roster(), false))
}

func (b *Bot) submitEditRoster(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	res, err := b.manager.EditRoster(ctx, in.GuildID, in.User.ID, in.Field(render.FieldRoster))
	if err != nil {
		return err
	}
	changes := render.RosterChanges(res.Before, res.Clan.Roster())
	return r.Reply(ctx, b.render.RosterUpdated(len(res.Added), len(res.Removed), changes), true)
}

func (b *Bot) requestDissolution(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	req, err := b.manager.RequestDissolution(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	return r.Reply(ctx, b.render.DeleteConfirmation(req.Clan, req.ConfirmID, req.CancelID), true)
}

func (b *Bot) confirmDissolution(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	clanID, ok := render.Suffix(in.CustomID, render.IDManageDeleteConfirmPrefix)
	if !ok {
		return &domain.ClanNotFoundError{Key: in.CustomID}
	}
	if err := r.Defer(ctx, true); err != nil {
		return err
	}
	c, err := b.manager.ConfirmDissolution(ctx, in.GuildID, in.User.ID, clanID)
	if err != nil {
		return err
	}
	return r.FollowUp(ctx, b.notice(config.ColorSuccess, fmt.Sprintf("✅ Clan **%s %s** has been dissolved.", c.Tag(), c.Name())), true)
}

func (b *Bot) cancelDissolution(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	return r.Update(ctx, b.notice(config.ColorPrimary, "Dissolution cancelled. Your clan is unchanged."))
}

func (b *Bot) openJoinForm(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	if len(in.Values) == 0 || in.Values[0] == "" {
		return &domain.UserError{Msg: "Pick a clan from the list."}
	}
	return r.ShowForm(ctx, b.render.JoinForm(in.Values[0]))
}

func (b *Bot) submitJoin(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	roleID, ok := render.Suffix(in.CustomID, render.FormJoinPrefix)
	if !ok {
		return &domain.ClanNotFoundError{Key: in.CustomID}
	}
	c, err := b.manager.Join(ctx, lifecycle.JoinRequest{
		GuildID: in.GuildID,
		RoleID:  roleID,
		Member: domain.Identity{
			Nickname: in.Field(render.FieldJoinNick),
			GameID:   in.Field(render.FieldJoinGame),
			ChatID:   in.User.ID,
		},
	})
	if err != nil {
		return err
	}
	return r.Reply(ctx, b.notice(config.ColorSuccess, fmt.Sprintf("✅ You joined **%s %s**.", c.Tag(), c.Name())), true)
}

func (b *Bot) leave(ctx context.Context, in platform.Interaction, r platform.Responder) error {
	res, err := b.manager.Leave(ctx, in.GuildID, in.User.ID)
	if err != nil {
		return err
	}
	c := res.Clan
	var text string
	switch res.Outcome {
	case lifecycle.LeaderReplaced:
		text = fmt.Sprintf("✅ You left **%s %s**. %s is the new leader.", c.Tag(), c.Name(), res.NewLeader.Nickname)
	case lifecycle.Dissolved:
		text = fmt.Sprintf("✅ You left **%s %s**. No member could take over, so the clan was dissolved.", c.Tag(), c.Name())
	default:
		text = fmt.Sprintf("✅ You left **%s %s**.", c.Tag(), c.Name())
	}
	return r.Reply(ctx, b.notice(config.ColorSuccess, text), true)
}
