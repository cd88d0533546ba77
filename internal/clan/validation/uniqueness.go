// Package validation checks candidate clan data against the clans already
// stored in a guild: tag, name and color uniqueness, and the rule that an
// identity belongs to at most one clan.
package validation

import (
	"context"
	"fmt"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/log"
)

// Candidate is the identifying part of a clan under validation.
type Candidate struct {
	Tag   string
	Name  string
	Color string
}

// Uniqueness rejects candidates whose tag or name collides
// case-insensitively with another clan, or whose color is perceptually too
// close to another clan's color.
type Uniqueness struct {
	repo      domain.Repository
	threshold float64
}

// NewUniqueness creates a Uniqueness engine. A non-positive threshold falls
// back to domain.DefaultColorThreshold.
func NewUniqueness(repo domain.Repository, threshold float64) *Uniqueness {
	if threshold <= 0 {
		threshold = domain.DefaultColorThreshold
	}
	return &Uniqueness{repo: repo, threshold: threshold}
}

// Check compares c against every other clan in the guild, skipping
// excludeID. Tag is checked first, then name, then color; the first
// collision is returned as a rejection. The error return is reserved for
// store failures and an unparseable candidate color.
func (u *Uniqueness) Check(ctx context.Context, guildID string, c Candidate, excludeID string) (*domain.Rejection, error) {
	others, err := u.repo.Find(ctx, domain.Filter{GuildID: guildID, ExcludeID: excludeID})
	if err != nil {
		return nil, fmt.Errorf("loading clans for uniqueness check: %w", err)
	}

	for _, o := range others {
		if o.SameTag(c.Tag) {
			log.Debug(log.CatClan, "Tag collision", "tag", c.Tag, "clan_id", o.ID())
			return &domain.Rejection{Field: "tag", Value: c.Tag, ClanID: o.ID(), ClanTag: o.Tag()}, nil
		}
	}
	for _, o := range others {
		if o.SameName(c.Name) {
			log.Debug(log.CatClan, "Name collision", "name", c.Name, "clan_id", o.ID())
			return &domain.Rejection{Field: "name", Value: c.Name, ClanID: o.ID(), ClanTag: o.Tag()}, nil
		}
	}

	rgb, err := domain.ParseHex(c.Color)
	if err != nil {
		return nil, &domain.InvalidInputError{Field: "color", Value: c.Color, Reason: "use a 6-digit hex code like #FF8800"}
	}
	for _, o := range others {
		other, err := domain.ParseHex(o.Color())
		if err != nil {
			continue
		}
		if d := domain.Distance(rgb, other); d < u.threshold {
			log.Debug(log.CatClan, "Color collision", "color", c.Color, "clan_id", o.ID(), "distance", d)
			return &domain.Rejection{Field: "color", Value: rgb.Hex(), ClanID: o.ID(), ClanTag: o.Tag(), Distance: d}, nil
		}
	}
	return nil, nil
}
