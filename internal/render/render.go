// Package render builds the platform messages, forms and components the
// bot shows: the registration wizard, clan summaries, the join panel and
// the leader management controls.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/config"
)

// Platform text limits.
const (
	maxFieldValue  = 1024
	maxDescription = 4096
	maxOptionText  = 100
)

// Renderer holds the configured palette and emoji set.
type Renderer struct {
	palette    map[string]int
	emojis     map[string]string
	minMembers int
	tagMin     int
	tagMax     int
	servers    []string
}

// New creates a Renderer from cfg.
func New(cfg config.Config) *Renderer {
	return &Renderer{
		palette:    cfg.Theme.Palette(),
		emojis:     cfg.EmojiSet(),
		minMembers: cfg.Clans.MinMembers,
		tagMin:     cfg.Clans.TagMin,
		tagMax:     cfg.Clans.TagMax,
		servers:    cfg.Clans.SortedServers(),
	}
}

func (r *Renderer) color(name string) int {
	return r.palette[name]
}

func (r *Renderer) emoji(name string) string {
	return r.emojis[name]
}

// ProgressBar renders step out of total as ten blocks and a percentage.
func (r *Renderer) ProgressBar(step, total int) string {
	if total <= 0 {
		total = 1
	}
	step = max(0, min(step, total))
	filled := int(math.Round(float64(step) / float64(total) * 10))
	pct := int(math.Round(float64(step) / float64(total) * 100))
	return strings.Repeat(r.emoji(config.EmojiFilled), filled) +
		strings.Repeat(r.emoji(config.EmojiEmpty), 10-filled) +
		fmt.Sprintf(" **%d%%**", pct)
}

// clanColor returns the clan's color as an int, or the primary palette
// color when it does not parse.
func (r *Renderer) clanColor(hex string) int {
	rgb, err := domain.ParseHex(hex)
	if err != nil {
		return r.color(config.ColorPrimary)
	}
	return rgb.Int()
}

// Truncate shortens s to at most n grapheme clusters, marking the cut
// with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if uniseg.GraphemeClusterCount(s) <= n {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < n-1 && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	b.WriteString("…")
	return b.String()
}

func mention(userID string) string {
	if userID == "" {
		return "-"
	}
	return "<@" + userID + ">"
}

func roleMention(roleID string) string {
	if roleID == "" {
		return "-"
	}
	return "<@&" + roleID + ">"
}

// leaderLine renders a leader identity with a mention.
func leaderLine(id domain.Identity) string {
	return fmt.Sprintf("%s (%s)", id.Nickname, mention(id.ChatID))
}

// rosterBlock renders the roster as a code block that fits a field value.
func rosterBlock(roster domain.Roster) string {
	if len(roster) == 0 {
		return "_empty_"
	}
	body := roster.String()
	// code fence and newlines take 8 characters
	if len(body) > maxFieldValue-8 {
		body = Truncate(body, maxFieldValue-8)
	}
	return "```\n" + body + "\n```"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
