// Package nickname prefixes clan tags onto member nicknames.
package nickname

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rivo/uniseg"

	"github.com/zjrosen/clanbot/internal/cachemanager"
	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
)

// MaxLength is the platform's nickname limit in characters.
const MaxLength = 32

const ownerTTL = time.Hour

var leadingToken = regexp.MustCompile(`^(\S+)\s+`)

// Tagged returns current with tag as its first word. An existing leading
// copy of tag is replaced rather than repeated, and the rest is cut so the
// result fits MaxLength.
func Tagged(tag, current string) string {
	clean := Untagged(tag, current)
	room := MaxLength - uniseg.GraphemeClusterCount(tag) - 1
	if room <= 0 {
		return truncate(tag, MaxLength)
	}
	clean = truncate(clean, room)
	return strings.TrimSpace(tag + " " + clean)
}

// Untagged removes a leading tag word from current. Nicknames that do not
// start with tag are returned unchanged.
func Untagged(tag, current string) string {
	m := leadingToken.FindStringSubmatch(current)
	if m == nil || !strings.EqualFold(m[1], tag) {
		return current
	}
	return strings.TrimSpace(current[len(m[0]):])
}

func truncate(s string, n int) string {
	if uniseg.GraphemeClusterCount(s) <= n {
		return s
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for i := 0; i < n && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return strings.TrimSpace(b.String())
}

// Tagger applies and strips clan tags when the nickname-tags flag is on.
// The guild owner is never renamed.
type Tagger struct {
	platform platform.Platform
	flags    *flags.Registry
	owners   *cachemanager.ReadThroughCache[string, string, string]
}

// New creates a Tagger. Guild owners are cached for an hour.
func New(p platform.Platform, fl *flags.Registry) *Tagger {
	cache := cachemanager.NewInMemoryCacheManager[string]("guild-owner", ownerTTL, 2*ownerTTL)
	return &Tagger{
		platform: p,
		flags:    fl,
		owners: cachemanager.NewReadThroughCache[string, string, string](cache, func(ctx context.Context, guildID string) (string, error) {
			return p.GuildOwner(ctx, guildID)
		}, false),
	}
}

// Enabled reports whether tags are managed at all.
func (t *Tagger) Enabled() bool {
	return t != nil && t.flags.Enabled(flags.FlagNicknameTags)
}

func (t *Tagger) isOwner(ctx context.Context, guildID, userID string) bool {
	owner, err := t.owners.Get(ctx, guildID, guildID, ownerTTL)
	if err != nil {
		log.Warn(log.CatPlatform, "Could not resolve guild owner", "guild_id", guildID, "error", err)
		return false
	}
	return owner == userID
}

// Apply prefixes tag onto the member's display name.
func (t *Tagger) Apply(ctx context.Context, guildID, userID, tag string) error {
	if !t.Enabled() || tag == "" {
		return nil
	}
	return t.rename(ctx, guildID, userID, func(m platform.Member) string {
		return Tagged(tag, m.DisplayName())
	})
}

// Retag swaps a leading oldTag for newTag.
func (t *Tagger) Retag(ctx context.Context, guildID, userID, oldTag, newTag string) error {
	if !t.Enabled() || newTag == "" {
		return nil
	}
	return t.rename(ctx, guildID, userID, func(m platform.Member) string {
		return Tagged(newTag, Untagged(oldTag, m.DisplayName()))
	})
}

// Strip removes tag from the member's nickname, resetting it when nothing
// is left.
func (t *Tagger) Strip(ctx context.Context, guildID, userID, tag string) error {
	if !t.Enabled() || tag == "" {
		return nil
	}
	return t.rename(ctx, guildID, userID, func(m platform.Member) string {
		if m.Nickname == "" {
			return ""
		}
		return Untagged(tag, m.Nickname)
	})
}

func (t *Tagger) rename(ctx context.Context, guildID, userID string, next func(platform.Member) string) error {
	if t.isOwner(ctx, guildID, userID) {
		log.Warn(log.CatPlatform, "Cannot rename the guild owner", "guild_id", guildID, "user_id", userID)
		return nil
	}

	m, err := t.platform.FetchMember(ctx, guildID, userID)
	if err != nil {
		return &domain.ExternalCallError{Op: "fetch member for nickname", Err: err}
	}
	nick := next(m)
	if nick == m.Nickname {
		return nil
	}
	if err := t.platform.SetNickname(ctx, guildID, userID, nick); err != nil {
		return &domain.ExternalCallError{Op: "set nickname", Err: err}
	}
	log.Info(log.CatPlatform, "Nickname updated", "guild_id", guildID, "user_id", userID, "nickname", nick)
	return nil
}
