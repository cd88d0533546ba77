package platform

import (
	"path"
	"strings"
	"time"
)

// Role is a created guild role.
type Role struct {
	ID    string
	Name  string
	Color int
}

// RoleSpec describes a role to create or edit.
type RoleSpec struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
}

// Member is a guild member.
type Member struct {
	ID       string
	Username string
	Nickname string
	Roles    []string
	Bot      bool
}

// DisplayName is the guild nickname, falling back to the username.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Username
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// MessageRef locates a sent message.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the ref points nowhere.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" || r.MessageID == ""
}

// Message is platform-neutral message content.
type Message struct {
	Content    string
	Embeds     []Embed
	Components []ActionRow
}

// Embed is a rich card.
type Embed struct {
	Title        string
	Description  string
	Color        int
	Author       string
	Fields       []Field
	ThumbnailURL string
	ImageURL     string
	Footer       string
	Timestamp    time.Time
}

// Field is one embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle selects a button color.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is a clickable component.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	Disabled bool
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// MaxSelectOptions is the platform limit on select menu entries.
const MaxSelectOptions = 25

// Select is a string select menu.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// ActionRow holds either buttons or a single select menu.
type ActionRow struct {
	Buttons []Button
	Select  *Select
}

// Form is a modal dialog.
type Form struct {
	CustomID string
	Title    string
	Inputs   []TextInput
}

// TextInput is one modal field.
type TextInput struct {
	CustomID    string
	Label       string
	Placeholder string
	Value       string
	Paragraph   bool
	Required    bool
	MinLength   int
	MaxLength   int
}

// Attachment is an uploaded file.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
}

// IsImage reports whether the attachment looks like an image.
func (a Attachment) IsImage() bool {
	if strings.HasPrefix(a.ContentType, "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(a.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// Interaction is an inbound component, form or command event.
type Interaction struct {
	ID        string
	GuildID   string
	ChannelID string
	MessageID string
	User      Member
	CustomID  string
	// Values holds select menu choices.
	Values []string
	// Fields holds submitted form values by input custom id.
	Fields map[string]string
}

// Field returns a submitted form value.
func (i Interaction) Field(id string) string {
	return i.Fields[id]
}

// TextCommand is a prefixed chat command.
type TextCommand struct {
	GuildID   string
	ChannelID string
	MessageID string
	Author    Member
	Name      string
	Args      []string
	// IsAdmin reports the author's administrator permission.
	IsAdmin bool
}
