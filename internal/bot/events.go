package bot

import (
	"context"

	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/log"
)

// RunEventLog logs lifecycle events while the event-log flag is on. It
// returns when ctx is done or the broker closes.
func (b *Bot) RunEventLog(ctx context.Context) {
	if b.events == nil {
		return
	}
	for e := range b.events.Subscribe(ctx) {
		if !b.flags.Enabled(flags.FlagEventLog) {
			continue
		}
		p := e.Payload
		log.Info(log.CatBot, "Lifecycle event", "event", string(e.Type), "guild_id", p.GuildID,
			"clan_id", p.ClanID, "tag", p.Tag, "actor_id", p.ActorID, "member_id", p.MemberID)
	}
}
