package validation

import (
	"context"
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// Lookup identifies a person by either id. Empty ids are ignored.
type Lookup struct {
	ChatID string
	GameID string
}

// Membership answers which clan, if any, claims an identity.
type Membership struct {
	repo domain.Repository
}

func NewMembership(repo domain.Repository) *Membership {
	return &Membership{repo: repo}
}

// FindClanOf returns the first clan in the guild whose leader or roster
// carries either id, skipping excludeID. Ids match by whole-value
// equality. Returns nil, nil when no clan claims the identity.
func (m *Membership) FindClanOf(ctx context.Context, guildID string, l Lookup, excludeID string) (*domain.Clan, error) {
	if l.ChatID == "" && l.GameID == "" {
		return nil, nil
	}
	clans, err := m.repo.Find(ctx, domain.Filter{GuildID: guildID, ExcludeID: excludeID})
	if err != nil {
		return nil, fmt.Errorf("loading clans for membership lookup: %w", err)
	}
	for _, c := range clans {
		if c.HasMember(l.ChatID, l.GameID) {
			return c, nil
		}
	}
	return nil, nil
}

// CheckFree returns *domain.AlreadyInClanError for the first identity
// already claimed by a clan other than excludeID.
func (m *Membership) CheckFree(ctx context.Context, guildID string, ids []domain.Identity, excludeID string) error {
	if len(ids) == 0 {
		return nil
	}
	clans, err := m.repo.Find(ctx, domain.Filter{GuildID: guildID, ExcludeID: excludeID})
	if err != nil {
		return fmt.Errorf("loading clans for membership check: %w", err)
	}
	for _, id := range ids {
		for _, c := range clans {
			if c.HasMember(id.ChatID, id.GameID) {
				return &domain.AlreadyInClanError{ChatID: id.ChatID, GameID: id.GameID, ClanTag: c.Tag(), Name: c.Name()}
			}
		}
	}
	return nil
}
