package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/zjrosen/clanbot/internal/platform"
)

func memberFrom(m *discordgo.Member) platform.Member {
	if m == nil {
		return platform.Member{}
	}
	out := platform.Member{Nickname: m.Nick, Roles: m.Roles}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = userName(m.User)
		out.Bot = m.User.Bot
	}
	return out
}

func userName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func embeds(in []platform.Embed) []*discordgo.MessageEmbed {
	if len(in) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Author != "" {
			me.Author = &discordgo.MessageEmbedAuthor{Name: e.Author}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.ThumbnailURL != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
		}
		if e.ImageURL != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, me)
	}
	return out
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonSuccess:   discordgo.SuccessButton,
	platform.ButtonDanger:    discordgo.DangerButton,
}

// withEmoji prefixes label with emoji. Custom emoji ids are not used, so
// unicode in the label renders the same as a component emoji.
func withEmoji(emoji, label string) string {
	if emoji == "" {
		return label
	}
	if label == "" {
		return emoji
	}
	return emoji + " " + label
}

func components(rows []platform.ActionRow) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var items []discordgo.MessageComponent
		if row.Select != nil {
			menu := discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    row.Select.CustomID,
				Placeholder: row.Select.Placeholder,
			}
			for _, o := range row.Select.Options {
				menu.Options = append(menu.Options, discordgo.SelectMenuOption{
					Label:       withEmoji(o.Emoji, o.Label),
					Value:       o.Value,
					Description: o.Description,
				})
			}
			items = append(items, menu)
		}
		for _, b := range row.Buttons {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			items = append(items, discordgo.Button{
				CustomID: b.CustomID,
				Label:    withEmoji(b.Emoji, b.Label),
				Style:    style,
				Disabled: b.Disabled,
			})
		}
		if len(items) > 0 {
			out = append(out, discordgo.ActionsRow{Components: items})
		}
	}
	return out
}

func messageSend(msg platform.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Components),
	}
}

func messageEdit(ref platform.MessageRef, msg platform.Message) *discordgo.MessageEdit {
	content := msg.Content
	em := embeds(msg.Embeds)
	if em == nil {
		em = []*discordgo.MessageEmbed{}
	}
	comps := components(msg.Components)
	if comps == nil {
		comps = []discordgo.MessageComponent{}
	}
	return &discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Content:    &content,
		Embeds:     &em,
		Components: &comps,
	}
}

func responseData(msg platform.Message, ephemeral bool) *discordgo.InteractionResponseData {
	d := &discordgo.InteractionResponseData{
		Content:    msg.Content,
		Embeds:     embeds(msg.Embeds),
		Components: components(msg.Components),
	}
	if ephemeral {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return d
}

func modalData(form platform.Form) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(form.Inputs))
	for _, in := range form.Inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    in.CustomID,
				Label:       in.Label,
				Style:       style,
				Placeholder: in.Placeholder,
				Value:       in.Value,
				Required:    in.Required,
				MinLength:   in.MinLength,
				MaxLength:   in.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   form.CustomID,
		Title:      form.Title,
		Components: rows,
	}
}

// formFields flattens submitted modal rows into input id to value.
// Decoded payloads hold pointers; hand-built ones may hold values.
func formFields(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, c := range rows {
		var inner []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, x := range inner {
			switch in := x.(type) {
			case *discordgo.TextInput:
				out[in.CustomID] = in.Value
			case discordgo.TextInput:
				out[in.CustomID] = in.Value
			}
		}
	}
	return out
}

// interactionFrom converts component and modal events. Other interaction
// types report false.
func interactionFrom(i *discordgo.InteractionCreate) (platform.Interaction, bool) {
	if i == nil || i.Interaction == nil {
		return platform.Interaction{}, false
	}
	out := platform.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if i.Message != nil {
		out.MessageID = i.Message.ID
	}
	switch {
	case i.Member != nil:
		out.User = memberFrom(i.Member)
	case i.User != nil:
		out.User = platform.Member{ID: i.User.ID, Username: userName(i.User), Bot: i.User.Bot}
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		out.CustomID = data.CustomID
		out.Values = data.Values
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		out.CustomID = data.CustomID
		out.Fields = formFields(data.Components)
	default:
		return platform.Interaction{}, false
	}
	return out, true
}

// attachmentFrom returns the first image attachment of m.
func attachmentFrom(m *discordgo.MessageCreate) (platform.Attachment, bool) {
	if m == nil || m.Message == nil {
		return platform.Attachment{}, false
	}
	for _, a := range m.Attachments {
		att := platform.Attachment{URL: a.URL, Filename: a.Filename, ContentType: a.ContentType}
		if att.IsImage() {
			return att, true
		}
	}
	return platform.Attachment{}, false
}
