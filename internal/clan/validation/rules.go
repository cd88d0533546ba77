package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// Rules are the configured format limits for clan input.
type Rules struct {
	TagMin     int
	TagMax     int
	Servers    []string
	MinMembers int
}

// NormalizeInfo trims info, canonicalizes its color and checks the
// format rules. It returns *domain.InvalidInputError on the first
// violation, in the order color, server, tag, name.
func (r Rules) NormalizeInfo(info domain.Info) (domain.Info, error) {
	info.Tag = strings.TrimSpace(info.Tag)
	info.Name = strings.TrimSpace(info.Name)
	info.Description = strings.TrimSpace(info.Description)
	info.Server = strings.TrimSpace(info.Server)

	color, err := domain.NormalizeHex(info.Color)
	if err != nil {
		return info, &domain.InvalidInputError{Field: "color", Value: info.Color, Reason: "use a 6-digit hex code like FF8800"}
	}
	info.Color = color

	if !slices.Contains(r.Servers, info.Server) {
		return info, &domain.InvalidInputError{Field: "server", Value: info.Server,
			Reason: "choose one of " + strings.Join(r.Servers, ", ")}
	}

	n := uniseg.GraphemeClusterCount(info.Tag)
	if n < r.TagMin || n > r.TagMax {
		return info, &domain.InvalidInputError{Field: "tag", Value: info.Tag,
			Reason: fmt.Sprintf("must be %d to %d characters", r.TagMin, r.TagMax)}
	}
	if strings.ContainsAny(info.Tag, " \t\n") {
		return info, &domain.InvalidInputError{Field: "tag", Value: info.Tag, Reason: "must not contain spaces"}
	}
	if info.Name == "" {
		return info, &domain.InvalidInputError{Field: "name", Value: info.Name, Reason: "must not be empty"}
	}
	return info, nil
}

// NormalizeIdentity trims id and checks its nickname and both ids.
func NormalizeIdentity(id domain.Identity) (domain.Identity, error) {
	id.Nickname = strings.TrimSpace(id.Nickname)
	id.GameID = strings.TrimSpace(id.GameID)
	id.ChatID = strings.TrimSpace(id.ChatID)

	if id.Nickname == "" {
		return id, &domain.InvalidInputError{Field: "nickname", Value: id.Nickname, Reason: "must not be empty"}
	}
	if strings.Contains(id.Nickname, ",") {
		return id, &domain.InvalidInputError{Field: "nickname", Value: id.Nickname, Reason: "must not contain commas"}
	}
	if !domain.ValidGameID(id.GameID) {
		return id, &domain.InvalidInputError{Field: "game id", Value: id.GameID, Reason: "must be exactly 17 digits"}
	}
	if !domain.ValidChatID(id.ChatID) {
		return id, &domain.InvalidInputError{Field: "chat id", Value: id.ChatID, Reason: "must be 17 to 19 digits"}
	}
	return id, nil
}

// CheckRosterShape rejects a roster that repeats the leader. With
// enforceFloor set it also requires leader plus roster to reach
// MinMembers.
func (r Rules) CheckRosterShape(leader domain.Identity, roster domain.Roster, enforceFloor bool) error {
	for _, m := range roster {
		if m.Matches(leader.ChatID, leader.GameID) {
			return &domain.InvalidInputError{Field: "roster", Value: m.Line(),
				Reason: "the leader is counted automatically and must not be listed"}
		}
	}
	if enforceFloor && len(roster)+1 < r.MinMembers {
		return &domain.BelowMinimumError{Have: len(roster) + 1, Min: r.MinMembers}
	}
	return nil
}
