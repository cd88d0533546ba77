package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

type identityDocument struct {
	Nickname string `bson:"nickname"`
	GameID   string `bson:"game_id"`
	ChatID   string `bson:"chat_id"`
}

// clanDocument is the stored shape of a clan.
type clanDocument struct {
	ID                string             `bson:"_id"`
	GuildID           string             `bson:"guild_id"`
	Tag               string             `bson:"tag"`
	Name              string             `bson:"name"`
	Description       string             `bson:"description,omitempty"`
	Color             string             `bson:"color"`
	Server            string             `bson:"server"`
	Leader            identityDocument   `bson:"leader"`
	Roster            []identityDocument `bson:"roster"`
	RoleID            string             `bson:"role_id,omitempty"`
	RegistryMessageID string             `bson:"registry_message_id,omitempty"`
	LogMessageID      string             `bson:"log_message_id,omitempty"`
	EmblemURL         string             `bson:"emblem_url,omitempty"`
	Status            string             `bson:"status"`
	CreatedBy         string             `bson:"created_by"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

func toIdentityDocument(id domain.Identity) identityDocument {
	return identityDocument{Nickname: id.Nickname, GameID: id.GameID, ChatID: id.ChatID}
}

func (d identityDocument) toDomain() domain.Identity {
	return domain.Identity{Nickname: d.Nickname, GameID: d.GameID, ChatID: d.ChatID}
}

func toRosterDocuments(r domain.Roster) []identityDocument {
	out := make([]identityDocument, len(r))
	for i, id := range r {
		out[i] = toIdentityDocument(id)
	}
	return out
}

func toClanDocument(c *domain.Clan) clanDocument {
	s := c.Snapshot()
	return clanDocument{
		ID:                s.ID,
		GuildID:           s.GuildID,
		Tag:               s.Info.Tag,
		Name:              s.Info.Name,
		Description:       s.Info.Description,
		Color:             s.Info.Color,
		Server:            s.Info.Server,
		Leader:            toIdentityDocument(s.Leader),
		Roster:            toRosterDocuments(s.Roster),
		RoleID:            s.RoleID,
		RegistryMessageID: s.RegistryMessageID,
		LogMessageID:      s.LogMessageID,
		EmblemURL:         s.EmblemURL,
		Status:            string(s.Status),
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt.UTC(),
		UpdatedAt:         s.UpdatedAt.UTC(),
	}
}

func (d clanDocument) toDomain() *domain.Clan {
	roster := make(domain.Roster, len(d.Roster))
	for i, id := range d.Roster {
		roster[i] = id.toDomain()
	}
	return domain.Reconstitute(domain.Snapshot{
		ID:      d.ID,
		GuildID: d.GuildID,
		Info: domain.Info{
			Tag:         d.Tag,
			Name:        d.Name,
			Description: d.Description,
			Color:       d.Color,
			Server:      d.Server,
		},
		Leader:            d.Leader.toDomain(),
		Roster:            roster,
		RoleID:            d.RoleID,
		RegistryMessageID: d.RegistryMessageID,
		LogMessageID:      d.LogMessageID,
		EmblemURL:         d.EmblemURL,
		Status:            domain.Status(d.Status),
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	})
}

// filterDocument translates a domain filter into a query document.
func filterDocument(f domain.Filter) bson.D {
	q := bson.D{}
	switch {
	case f.ID != "" && f.ExcludeID != "":
		q = append(q, bson.E{Key: "_id", Value: bson.D{{Key: "$eq", Value: f.ID}, {Key: "$ne", Value: f.ExcludeID}}})
	case f.ID != "":
		q = append(q, bson.E{Key: "_id", Value: f.ID})
	case f.ExcludeID != "":
		q = append(q, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: f.ExcludeID}}})
	}
	if f.GuildID != "" {
		q = append(q, bson.E{Key: "guild_id", Value: f.GuildID})
	}
	if f.LeaderChatID != "" {
		q = append(q, bson.E{Key: "leader.chat_id", Value: f.LeaderChatID})
	}
	if f.RoleID != "" {
		q = append(q, bson.E{Key: "role_id", Value: f.RoleID})
	}
	if f.Status != "" {
		q = append(q, bson.E{Key: "status", Value: string(f.Status)})
	}
	return q
}

// setDocument translates a patch into the $set document.
func setDocument(p domain.Patch, now time.Time) bson.D {
	set := bson.D{}
	if p.Info != nil {
		set = append(set,
			bson.E{Key: "tag", Value: p.Info.Tag},
			bson.E{Key: "name", Value: p.Info.Name},
			bson.E{Key: "description", Value: p.Info.Description},
			bson.E{Key: "color", Value: p.Info.Color},
			bson.E{Key: "server", Value: p.Info.Server},
		)
	}
	if p.Leader != nil {
		set = append(set, bson.E{Key: "leader", Value: toIdentityDocument(*p.Leader)})
	}
	if p.Roster != nil {
		set = append(set, bson.E{Key: "roster", Value: toRosterDocuments(*p.Roster)})
	}
	if p.RoleID != nil {
		set = append(set, bson.E{Key: "role_id", Value: *p.RoleID})
	}
	if p.RegistryMessageID != nil {
		set = append(set, bson.E{Key: "registry_message_id", Value: *p.RegistryMessageID})
	}
	if p.LogMessageID != nil {
		set = append(set, bson.E{Key: "log_message_id", Value: *p.LogMessageID})
	}
	if p.EmblemURL != nil {
		set = append(set, bson.E{Key: "emblem_url", Value: *p.EmblemURL})
	}
	return append(set, bson.E{Key: "updated_at", Value: now.UTC()})
}
