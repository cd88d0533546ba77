package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/platform"
)

// RegistrySummary is the public registry card of a clan.
func (r *Renderer) RegistrySummary(c *domain.Clan) platform.Message {
	return platform.Message{Embeds: []platform.Embed{{
		Title:       fmt.Sprintf("%s [%s] %s", r.emoji(config.EmojiClan), c.Tag(), c.Name()),
		Description: Truncate(orDash(c.Description()), maxDescription),
		Color:       r.clanColor(c.Color()),
		Fields: []platform.Field{
			{Name: r.emoji(config.EmojiCrown) + " Leader", Value: leaderLine(c.Leader()), Inline: true},
			{Name: r.emoji(config.EmojiUsers) + " Members", Value: strconv.Itoa(c.MemberCount()), Inline: true},
			{Name: r.emoji(config.EmojiSword) + " Server", Value: orDash(c.Server()), Inline: true},
			{Name: "Role", Value: roleMention(c.RoleID()), Inline: true},
		},
		ThumbnailURL: c.EmblemURL(),
		Footer:       "Clan ID: " + c.ID(),
		Timestamp:    c.UpdatedAt(),
	}}}
}

// LogSummary is the audit card of a clan in the log channel.
func (r *Renderer) LogSummary(c *domain.Clan) platform.Message {
	return platform.Message{Embeds: []platform.Embed{{
		Author: "Leader: " + c.Leader().Nickname,
		Title:  "✅ Clan registered",
		Description: fmt.Sprintf("**Tag:** %s\n**Name:** %s\n**Role:** %s\n**Color:** %s",
			c.Tag(), c.Name(), roleMention(c.RoleID()), c.Color()),
		Color: r.color(config.ColorSuccess),
		Fields: []platform.Field{
			{Name: r.emoji(config.EmojiPencil) + " Description", Value: Truncate(">>> "+orDash(c.Description()), maxFieldValue)},
			{Name: r.emoji(config.EmojiCrown) + " Leader", Value: fmt.Sprintf("%s\n`%s`", leaderLine(c.Leader()), c.Leader().GameID), Inline: true},
			{Name: r.emoji(config.EmojiShield) + " Members", Value: fmt.Sprintf("**Total:** %d", c.MemberCount()), Inline: true},
			{Name: r.emoji(config.EmojiSword) + " Server", Value: orDash(c.Server()), Inline: true},
			{Name: r.emoji(config.EmojiUsers) + " Roster", Value: rosterBlock(c.Roster())},
		},
		ThumbnailURL: c.EmblemURL(),
		Footer:       "Applicant ID: " + c.CreatedBy(),
		Timestamp:    c.UpdatedAt(),
	}}}
}

// RosterChanges renders a line diff between two rosters, one "+" or "-"
// line per changed member. Empty when nothing changed.
func RosterChanges(before, after domain.Roster) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before.String()+"\n", after.String()+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var sign string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sign = "+ "
		case diffmatchpatch.DiffDelete:
			sign = "- "
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out.WriteString(sign + line + "\n")
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// RosterUpdated reports a roster edit to the leader.
func (r *Renderer) RosterUpdated(added, removed int, changes string) platform.Message {
	desc := fmt.Sprintf("✅ Roster updated. Added: %d, removed: %d.", added, removed)
	if changes != "" {
		desc += "\n```diff\n" + Truncate(changes, maxDescription-len(desc)-16) + "\n```"
	}
	return r.Notice(config.ColorSuccess, desc)
}
