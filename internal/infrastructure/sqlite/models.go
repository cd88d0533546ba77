package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// ClanModel is the database row for the clans table. Timestamps are Unix
// seconds; the roster is a JSON array.
type ClanModel struct {
	ID                string
	GuildID           string
	Tag               string
	Name              string
	Description       string
	Color             string
	Server            string
	LeaderNickname    string
	LeaderGameID      string
	LeaderChatID      string
	Roster            string
	RoleID            *string // nullable
	RegistryMessageID *string // nullable
	LogMessageID      *string // nullable
	EmblemURL         *string // nullable
	Status            string
	CreatedBy         string
	CreatedAt         int64
	UpdatedAt         int64
}

type rosterEntry struct {
	Nickname string `json:"nickname"`
	GameID   string `json:"game_id"`
	ChatID   string `json:"chat_id"`
}

func encodeRoster(r domain.Roster) (string, error) {
	entries := make([]rosterEntry, len(r))
	for i, id := range r {
		entries[i] = rosterEntry{Nickname: id.Nickname, GameID: id.GameID, ChatID: id.ChatID}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encoding roster: %w", err)
	}
	return string(b), nil
}

func decodeRoster(s string) (domain.Roster, error) {
	if s == "" {
		return nil, nil
	}
	var entries []rosterEntry
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, fmt.Errorf("decoding roster: %w", err)
	}
	r := make(domain.Roster, len(entries))
	for i, e := range entries {
		r[i] = domain.Identity{Nickname: e.Nickname, GameID: e.GameID, ChatID: e.ChatID}
	}
	return r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toClanModel converts a domain Clan to a row.
func toClanModel(c *domain.Clan) (*ClanModel, error) {
	s := c.Snapshot()
	roster, err := encodeRoster(s.Roster)
	if err != nil {
		return nil, err
	}
	return &ClanModel{
		ID:                s.ID,
		GuildID:           s.GuildID,
		Tag:               s.Info.Tag,
		Name:              s.Info.Name,
		Description:       s.Info.Description,
		Color:             s.Info.Color,
		Server:            s.Info.Server,
		LeaderNickname:    s.Leader.Nickname,
		LeaderGameID:      s.Leader.GameID,
		LeaderChatID:      s.Leader.ChatID,
		Roster:            roster,
		RoleID:            nullable(s.RoleID),
		RegistryMessageID: nullable(s.RegistryMessageID),
		LogMessageID:      nullable(s.LogMessageID),
		EmblemURL:         nullable(s.EmblemURL),
		Status:            string(s.Status),
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt.Unix(),
		UpdatedAt:         s.UpdatedAt.Unix(),
	}, nil
}

// toDomain converts a row back to a domain Clan.
func (m *ClanModel) toDomain() (*domain.Clan, error) {
	roster, err := decodeRoster(m.Roster)
	if err != nil {
		return nil, fmt.Errorf("clan %s: %w", m.ID, err)
	}
	return domain.Reconstitute(domain.Snapshot{
		ID:      m.ID,
		GuildID: m.GuildID,
		Info: domain.Info{
			Tag:         m.Tag,
			Name:        m.Name,
			Description: m.Description,
			Color:       m.Color,
			Server:      m.Server,
		},
		Leader:            domain.Identity{Nickname: m.LeaderNickname, GameID: m.LeaderGameID, ChatID: m.LeaderChatID},
		Roster:            roster,
		RoleID:            deref(m.RoleID),
		RegistryMessageID: deref(m.RegistryMessageID),
		LogMessageID:      deref(m.LogMessageID),
		EmblemURL:         deref(m.EmblemURL),
		Status:            domain.Status(m.Status),
		CreatedBy:         m.CreatedBy,
		CreatedAt:         time.Unix(m.CreatedAt, 0),
		UpdatedAt:         time.Unix(m.UpdatedAt, 0),
	}), nil
}
