package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/testutil"
)

var rules = Rules{TagMin: 2, TagMax: 7, Servers: []string{"1", "2", "3", "4"}, MinMembers: 5}

func TestRules_NormalizeInfo(t *testing.T) {
	valid := domain.Info{Tag: " WOLF ", Name: " Wolf Pack ", Color: "aabbcc", Server: "2"}

	got, err := rules.NormalizeInfo(valid)
	require.NoError(t, err)
	require.Equal(t, domain.Info{Tag: "WOLF", Name: "Wolf Pack", Color: "#AABBCC", Server: "2"}, got)

	tests := []struct {
		name  string
		info  domain.Info
		field string
	}{
		{"bad color", domain.Info{Tag: "WOLF", Name: "n", Color: "red", Server: "1"}, "color"},
		{"unknown server", domain.Info{Tag: "WOLF", Name: "n", Color: "#000000", Server: "9"}, "server"},
		{"tag too short", domain.Info{Tag: "W", Name: "n", Color: "#000000", Server: "1"}, "tag"},
		{"tag too long", domain.Info{Tag: "WOLFPACK", Name: "n", Color: "#000000", Server: "1"}, "tag"},
		{"tag with space", domain.Info{Tag: "W F", Name: "n", Color: "#000000", Server: "1"}, "tag"},
		{"empty name", domain.Info{Tag: "WOLF", Name: "  ", Color: "#000000", Server: "1"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.NormalizeInfo(tt.info)
			var ie *domain.InvalidInputError
			require.True(t, errors.As(err, &ie))
			require.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	p := testutil.Person(1)
	got, err := NormalizeIdentity(domain.Identity{Nickname: " " + p.Nickname, GameID: p.GameID + " ", ChatID: p.ChatID})
	require.NoError(t, err)
	require.Equal(t, p, got)

	_, err = NormalizeIdentity(domain.Identity{Nickname: "a", GameID: "123", ChatID: p.ChatID})
	require.ErrorContains(t, err, "game id")
	_, err = NormalizeIdentity(domain.Identity{Nickname: "a,b", GameID: p.GameID, ChatID: p.ChatID})
	require.ErrorContains(t, err, "nickname")
	_, err = NormalizeIdentity(domain.Identity{Nickname: "a", GameID: p.GameID, ChatID: "12"})
	require.ErrorContains(t, err, "chat id")
}

func TestRules_CheckRosterShape(t *testing.T) {
	leader := testutil.Person(1)

	err := rules.CheckRosterShape(leader, testutil.People(2, 3), true)
	var below *domain.BelowMinimumError
	require.True(t, errors.As(err, &below))
	require.Equal(t, 4, below.Have)
	require.Contains(t, below.UserMessage(), "Add 1 more")

	require.NoError(t, rules.CheckRosterShape(leader, testutil.People(2, 4), true))
	require.NoError(t, rules.CheckRosterShape(leader, testutil.People(2, 1), false))

	err = rules.CheckRosterShape(leader, append(testutil.People(2, 4), leader), true)
	require.ErrorContains(t, err, "roster")
}
