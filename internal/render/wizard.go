package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/platform"
)

// wizardSteps counts the steps shown in the progress bar: three forms and
// the emblem upload.
const wizardSteps = 4

// ClanPreview is the clan data collected so far by the wizard.
type ClanPreview struct {
	Info      domain.Info
	Leader    domain.Identity
	Roster    domain.Roster
	EmblemURL string
	Started   time.Time
}

// RegistrationPanel is the public message that starts registrations and
// gives leaders their management controls.
func (r *Renderer) RegistrationPanel() platform.Message {
	desc := fmt.Sprintf("%s **Register your clan with the server.**\n\n"+
		"%s **Requirements:**\n"+
		"› At least **%d members** including the leader\n"+
		"› A unique clan tag of **%d-%d characters**\n"+
		"› A role color clearly different from existing clans\n\n"+
		"%s Press the button below to start.",
		r.emoji(config.EmojiSparkles), r.emoji(config.EmojiShield),
		r.minMembers, r.tagMin, r.tagMax, r.emoji(config.EmojiRocket))

	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       fmt.Sprintf("%s CLAN REGISTRATION %s", r.emoji(config.EmojiClan), r.emoji(config.EmojiSparkles)),
			Description: desc,
			Color:       r.color(config.ColorPremium),
		}},
		Components: []platform.ActionRow{
			{Buttons: []platform.Button{
				{CustomID: IDCreateStart, Label: "Create a clan", Emoji: r.emoji(config.EmojiRocket), Style: platform.ButtonPrimary},
			}},
			r.ManageButtons(),
		},
	}
}

type stepScreen struct {
	title    string
	emoji    string
	color    string
	intro    string
	buttonID string
	label    string
	style    platform.ButtonStyle
}

func (r *Renderer) stepScreens(p ClanPreview) map[int]stepScreen {
	clan := fmt.Sprintf("**%s %s**", p.Info.Tag, p.Info.Name)
	return map[int]stepScreen{
		1: {
			title: "STEP 1/4: CLAN BASICS", emoji: config.EmojiSparkles, color: config.ColorPremium,
			intro:    "Set your clan's tag, name, description, role color and server.",
			buttonID: IDCreateStep1, label: "Fill in basic info", style: platform.ButtonPrimary,
		},
		2: {
			title: "STEP 2/4: LEADERSHIP", emoji: config.EmojiCrown, color: config.ColorGold,
			intro:    fmt.Sprintf("Clan %s needs a leader. Enter your in-game nickname and game id.", clan),
			buttonID: IDCreateStep2, label: "Enter leader info", style: platform.ButtonSuccess,
		},
		3: {
			title: "STEP 3/4: ROSTER", emoji: config.EmojiShield, color: config.ColorWarning,
			intro: fmt.Sprintf("Time to assemble the team for %s. List every member except yourself, one per line as `%s`. "+
				"Together with you the clan needs at least %d members.", clan, domain.RosterLineShape, r.minMembers),
			buttonID: IDCreateStep3, label: "Submit roster", style: platform.ButtonSecondary,
		},
	}
}

// WizardStep renders the screen for one of the three form steps.
func (r *Renderer) WizardStep(step int, p ClanPreview, actor string) platform.Message {
	s, ok := r.stepScreens(p)[step]
	if !ok {
		return platform.Message{Content: "Unknown registration step."}
	}
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       r.emoji(s.emoji) + " " + s.title,
			Description: r.ProgressBar(step, wizardSteps) + "\n\n" + s.intro,
			Color:       r.color(s.color),
			Footer:      "Registering a clan for " + actor,
		}},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: s.buttonID, Label: s.label, Style: s.style},
			{CustomID: IDCreateCancel, Label: "Cancel", Style: platform.ButtonDanger},
		}}},
	}
}

// EmblemPrompt asks for an optional emblem upload.
func (r *Renderer) EmblemPrompt(p ClanPreview, timeout time.Duration) platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title: r.emoji(config.EmojiStar) + " STEP 4/4: EMBLEM",
			Description: fmt.Sprintf("%s\n\nUpload an image in this channel within **%d seconds** to use it as the emblem of **%s %s**, or skip this step.",
				r.ProgressBar(4, wizardSteps), int(timeout.Seconds()), p.Info.Tag, p.Info.Name),
			Color: r.color(config.ColorPremium),
		}},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: IDEmblemSkip, Label: "Skip", Style: platform.ButtonSecondary},
		}}},
	}
}

// Confirmation previews the collected clan with confirm, edit and cancel
// buttons.
func (r *Renderer) Confirmation(p ClanPreview, now time.Time) platform.Message {
	desc := orDash(p.Info.Description)
	if !p.Started.IsZero() {
		desc += fmt.Sprintf("\n\n*Filled in ~%d min.*", int(now.Sub(p.Started).Round(time.Minute).Minutes()))
	}
	embed := platform.Embed{
		Title:       fmt.Sprintf("%s **%s %s** | PREVIEW", r.emoji(config.EmojiClan), p.Info.Tag, p.Info.Name),
		Description: Truncate(desc, maxDescription),
		Color:       r.clanColor(p.Info.Color),
		Fields: []platform.Field{
			{Name: "Leader", Value: leaderLine(p.Leader), Inline: true},
			{Name: "Members", Value: strconv.Itoa(len(p.Roster) + 1), Inline: true},
			{Name: "Server", Value: orDash(p.Info.Server), Inline: true},
			{Name: "Color", Value: orDash(p.Info.Color), Inline: true},
			{Name: r.emoji(config.EmojiUsers) + " Roster", Value: rosterBlock(p.Roster)},
		},
		ThumbnailURL: p.EmblemURL,
		Footer:       "Check everything before submitting.",
	}
	return platform.Message{
		Content: "**Your registration is almost ready!**",
		Embeds:  []platform.Embed{embed},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: IDCreateConfirm, Label: "Confirm and submit", Emoji: r.emoji(config.EmojiRocket), Style: platform.ButtonSuccess},
			{CustomID: IDCreateEdit, Label: "Edit", Style: platform.ButtonSecondary},
			{CustomID: IDCreateCancel, Label: "Cancel", Style: platform.ButtonDanger},
		}}},
	}
}

// EditChooser lets the user pick which step to revisit.
func (r *Renderer) EditChooser() platform.Message {
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       r.emoji(config.EmojiPencil) + " EDIT MODE",
			Description: "Choose what to change. Your other answers are kept and you return to the preview afterwards.",
			Color:       r.color(config.ColorWarning),
		}},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: IDEditStepPrefix + "1", Label: "Basic info", Style: platform.ButtonPrimary},
			{CustomID: IDEditStepPrefix + "2", Label: "Leader", Style: platform.ButtonPrimary},
			{CustomID: IDEditStepPrefix + "3", Label: "Roster", Style: platform.ButtonPrimary},
		}}},
	}
}

// Created announces a registered clan to its leader.
func (r *Renderer) Created(c *domain.Clan, grantFailures int) platform.Message {
	desc := fmt.Sprintf("Your clan **%s %s** has been registered.\n\n✅ Role %s was created for your clan.",
		c.Tag(), c.Name(), roleMention(c.RoleID()))
	if grantFailures > 0 {
		desc += fmt.Sprintf("\n⚠️ %d member(s) could not be given the role. They can join through the join panel.", grantFailures)
	}
	return platform.Message{Embeds: []platform.Embed{{
		Title:       r.emoji(config.EmojiSparkles) + " CLAN CREATED!",
		Description: desc,
		Color:       r.color(config.ColorSuccess),
		Timestamp:   c.CreatedAt(),
	}}}
}

// Notice is a plain status message in the given palette color.
func (r *Renderer) Notice(color, text string) platform.Message {
	return platform.Message{Embeds: []platform.Embed{{Description: text, Color: r.color(color)}}}
}

// Loading is shown while a long operation runs.
func (r *Renderer) Loading(text string) platform.Message {
	return platform.Message{Content: r.emoji(config.EmojiLoading) + " " + text}
}

// BasicInfoForm asks for tag, name, description, color and server,
// prefilled from info.
func (r *Renderer) BasicInfoForm(customID string, info domain.Info) platform.Form {
	return platform.Form{
		CustomID: customID,
		Title:    "Step 1/3: Basic info",
		Inputs: []platform.TextInput{
			{CustomID: FieldTag, Label: r.emoji(config.EmojiSword) + " Clan tag", Placeholder: "e.g. 1ID or B-W",
				Value: info.Tag, Required: true, MinLength: r.tagMin, MaxLength: r.tagMax},
			{CustomID: FieldName, Label: r.emoji(config.EmojiShield) + " Full clan name", Placeholder: "e.g. 1st Infantry Division",
				Value: info.Name, Required: true, MaxLength: 100},
			{CustomID: FieldDescription, Label: r.emoji(config.EmojiPencil) + " Description", Paragraph: true,
				Value: info.Description, MaxLength: 1000},
			{CustomID: FieldColor, Label: r.emoji(config.EmojiSparkles) + " Role color (hex)", Placeholder: "e.g. FF5733",
				Value: strings.TrimPrefix(info.Color, "#"), Required: true, MinLength: 6, MaxLength: 7},
			{CustomID: FieldServer, Label: "Server (" + strings.Join(r.servers, ", ") + ")",
				Value: info.Server, Required: true, MaxLength: 10},
		},
	}
}

// LeaderInfoForm asks for the leader's nickname and game id.
func (r *Renderer) LeaderInfoForm(leader domain.Identity) platform.Form {
	return platform.Form{
		CustomID: FormLeaderInfo,
		Title:    "Step 2/3: Leader",
		Inputs: []platform.TextInput{
			{CustomID: FieldLeaderNick, Label: r.emoji(config.EmojiCrown) + " Your in-game nickname",
				Value: leader.Nickname, Required: true, MaxLength: 32},
			{CustomID: FieldLeaderGame, Label: r.emoji(config.EmojiRocket) + " Your game id (17 digits)", Placeholder: "76561198000000001",
				Value: leader.GameID, Required: true, MinLength: 17, MaxLength: 17},
		},
	}
}

// RosterForm asks for the member list.
func (r *Renderer) RosterForm(customID string, roster domain.Roster, required bool) platform.Form {
	title := "Step 3/3: Roster"
	if customID == FormManageRoster {
		title = "Manage clan: roster"
	}
	return platform.Form{
		CustomID: customID,
		Title:    title,
		Inputs: []platform.TextInput{
			{CustomID: FieldRoster, Label: r.emoji(config.EmojiUsers) + " Members, one per line", Placeholder: domain.RosterLineShape,
				Value: roster.String(), Paragraph: true, Required: required, MaxLength: 4000},
		},
	}
}
