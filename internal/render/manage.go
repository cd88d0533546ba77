package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/platform"
)

// ManageButtons is the row of leader controls.
func (r *Renderer) ManageButtons() platform.ActionRow {
	return platform.ActionRow{Buttons: []platform.Button{
		{CustomID: IDManageEditInfo, Label: "Edit info", Emoji: r.emoji(config.EmojiPencil), Style: platform.ButtonSecondary},
		{CustomID: IDManageEditRoster, Label: "Edit roster", Emoji: r.emoji(config.EmojiUsers), Style: platform.ButtonSecondary},
		{CustomID: IDManageDelete, Label: "Dissolve clan", Style: platform.ButtonDanger},
	}}
}

// EditInfoForm is the leader's info form, prefilled from the clan.
func (r *Renderer) EditInfoForm(c *domain.Clan) platform.Form {
	f := r.BasicInfoForm(FormManageInfo, c.Info())
	f.Title = "Manage clan: info"
	return f
}

// DeleteConfirmation asks the leader to confirm dissolving the clan.
func (r *Renderer) DeleteConfirmation(c *domain.Clan, confirmID, cancelID string) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title: "Are you sure you want to dissolve the clan?",
			Description: fmt.Sprintf("**Clan:** `%s` %s\n\nThis cannot be undone:\n"+
				"• Role %s will be deleted.\n"+
				"• The clan record will be removed.\n"+
				"• The registry and log messages will be deleted.",
				c.Tag(), c.Name(), roleMention(c.RoleID())),
			Color: r.color(config.ColorDanger),
		}},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: confirmID, Label: "Yes, dissolve", Style: platform.ButtonDanger},
			{CustomID: cancelID, Label: "Cancel", Style: platform.ButtonSecondary},
		}}},
	}
}

// JoinPanel lists the clans members can join, sorted by tag and capped
// at the platform's select limit, plus a leave button.
func (r *Renderer) JoinPanel(clans []*domain.Clan) platform.Message {
	sorted := append([]*domain.Clan(nil), clans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Tag()) < strings.ToLower(sorted[j].Tag())
	})
	if len(sorted) > platform.MaxSelectOptions {
		sorted = sorted[:platform.MaxSelectOptions]
	}

	embed := platform.Embed{
		Title: r.emoji(config.EmojiShield) + " CLAN INSIGNIA",
		Description: "Join an existing clan to receive its role.\n\n" +
			"Pick your clan from the menu below. You will be asked for your **in-game nickname** and **game id**.",
		Color: r.color(config.ColorPrimary),
		Fields: []platform.Field{{
			Name:  "⚠️ Important",
			Value: "> • You can only be in one clan at a time.\n> • Use the leave button to leave your current clan.",
		}},
		Footer: "Pick your clan from the list",
	}

	rows := make([]platform.ActionRow, 0, 2)
	if len(sorted) > 0 {
		options := make([]platform.SelectOption, 0, len(sorted))
		for _, c := range sorted {
			options = append(options, platform.SelectOption{
				Label:       Truncate(c.Tag()+" | "+c.Name(), maxOptionText),
				Value:       c.RoleID(),
				Description: Truncate("Leader: "+c.Leader().Nickname, maxOptionText),
			})
		}
		rows = append(rows, platform.ActionRow{Select: &platform.Select{
			CustomID:    IDJoinSelect,
			Placeholder: "Choose a clan to join...",
			Options:     options,
		}})
	} else {
		embed.Description += "\n\n_No clans are registered yet._"
	}
	rows = append(rows, platform.ActionRow{Buttons: []platform.Button{
		{CustomID: IDLeave, Label: "Leave my clan", Style: platform.ButtonDanger},
	}})

	return platform.Message{Embeds: []platform.Embed{embed}, Components: rows}
}

// JoinForm asks a joining member for nickname and game id.
func (r *Renderer) JoinForm(roleID string) platform.Form {
	return platform.Form{
		CustomID: FormJoinPrefix + roleID,
		Title:    "Join clan",
		Inputs: []platform.TextInput{
			{CustomID: FieldJoinNick, Label: r.emoji(config.EmojiPencil) + " Your in-game nickname", Required: true, MaxLength: 32},
			{CustomID: FieldJoinGame, Label: r.emoji(config.EmojiRocket) + " Your game id (17 digits)", Placeholder: "76561198000000001",
				Required: true, MinLength: 17, MaxLength: 17},
		},
	}
}
