package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/testutil"
)

func seeded(t *testing.T) *testutil.MemoryRepository {
	t.Helper()
	repo := testutil.NewMemoryRepository()
	testutil.NewBuilder(t, repo).WithStandardClans().Build()
	return repo
}

func TestUniqueness_Check(t *testing.T) {
	u := NewUniqueness(seeded(t), domain.DefaultColorThreshold)
	ctx := context.Background()

	tests := []struct {
		name      string
		cand      Candidate
		excludeID string
		wantField string
	}{
		{"free", Candidate{Tag: "NEW", Name: "Newcomers", Color: "#808080"}, "", ""},
		{"tag case-insensitive", Candidate{Tag: "alp", Name: "Other", Color: "#808080"}, "", "tag"},
		{"name case-insensitive", Candidate{Tag: "NEW", Name: "bravo COMPANY", Color: "#808080"}, "", "name"},
		{"tag checked before name", Candidate{Tag: "CHR", Name: "Alpha Squad", Color: "#808080"}, "", "tag"},
		{"color too close", Candidate{Tag: "NEW", Name: "Newcomers", Color: "#F50505"}, "", "color"},
		{"self excluded", Candidate{Tag: "ALP", Name: "Alpha Squad", Color: "#FF0000"}, "alpha", ""},
		{"excluded self still checks others", Candidate{Tag: "BRV", Name: "Alpha Squad", Color: "#FF0000"}, "alpha", "tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej, err := u.Check(ctx, "guild-1", tt.cand, tt.excludeID)
			require.NoError(t, err)
			if tt.wantField == "" {
				require.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			require.Equal(t, tt.wantField, rej.Field)
			require.NotEmpty(t, rej.UserMessage())
		})
	}
}

func TestUniqueness_OtherGuildIgnored(t *testing.T) {
	u := NewUniqueness(seeded(t), 0)
	rej, err := u.Check(context.Background(), "guild-2", Candidate{Tag: "ALP", Name: "Alpha Squad", Color: "#FF0000"}, "")
	require.NoError(t, err)
	require.Nil(t, rej)
}

func TestUniqueness_InvalidColor(t *testing.T) {
	u := NewUniqueness(seeded(t), 0)
	_, err := u.Check(context.Background(), "guild-1", Candidate{Tag: "NEW", Name: "N", Color: "red"}, "")
	var ie *domain.InvalidInputError
	require.True(t, errors.As(err, &ie))
}

// No two stored clans in a guild ever violate the uniqueness rules when
// every insert is gated by Check.
func TestUniqueness_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		repo := testutil.NewMemoryRepository()
		u := NewUniqueness(repo, domain.DefaultColorThreshold)
		ctx := context.Background()

		n := rapid.IntRange(1, 25).Draw(t, "n")
		for i := 0; i < n; i++ {
			cand := Candidate{
				Tag:   rapid.StringMatching(`[A-Ca-c]{2,3}`).Draw(t, "tag"),
				Name:  rapid.StringMatching(`[A-Ba-b]{1,3}`).Draw(t, "name"),
				Color: domain.RGB{R: rapid.Uint8().Draw(t, "r"), G: rapid.Uint8().Draw(t, "g"), B: rapid.Uint8().Draw(t, "b")}.Hex(),
			}
			rej, err := u.Check(ctx, "g", cand, "")
			require.NoError(t, err)
			if rej != nil {
				continue
			}
			c := testutil.NewClan(domain.RGB{R: uint8(i)}.Hex()+cand.Tag, testutil.Guild("g"),
				testutil.Tag(cand.Tag), testutil.Name(cand.Name), testutil.Color(cand.Color))
			require.NoError(t, repo.Insert(ctx, c))
		}

		clans, err := repo.Find(ctx, domain.Filter{GuildID: "g"})
		require.NoError(t, err)
		for i := range clans {
			for j := i + 1; j < len(clans); j++ {
				a, b := clans[i], clans[j]
				require.False(t, a.SameTag(b.Tag()))
				require.False(t, a.SameName(b.Name()))
				ca, _ := domain.ParseHex(a.Color())
				cb, _ := domain.ParseHex(b.Color())
				require.GreaterOrEqual(t, domain.Distance(ca, cb), domain.DefaultColorThreshold)
			}
		}
	})
}

func TestMembership_FindClanOf(t *testing.T) {
	m := NewMembership(seeded(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		lookup  Lookup
		exclude string
		want    string
	}{
		{"leader by chat id", Lookup{ChatID: testutil.Person(100).ChatID}, "", "alpha"},
		{"roster by game id", Lookup{GameID: testutil.Person(203).GameID}, "", "bravo"},
		{"either id", Lookup{ChatID: "nobody", GameID: testutil.Person(301).GameID}, "", "charlie"},
		{"free", Lookup{ChatID: testutil.Person(999).ChatID, GameID: testutil.Person(999).GameID}, "", ""},
		{"empty lookup", Lookup{}, "", ""},
		{"excluded", Lookup{ChatID: testutil.Person(100).ChatID}, "alpha", ""},
		{"prefix is not a match", Lookup{ChatID: testutil.Person(100).ChatID[:17]}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := m.FindClanOf(ctx, "guild-1", tt.lookup, tt.exclude)
			require.NoError(t, err)
			if tt.want == "" {
				require.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			require.Equal(t, tt.want, c.ID())
		})
	}
}

func TestMembership_CheckFree(t *testing.T) {
	m := NewMembership(seeded(t))
	ctx := context.Background()

	require.NoError(t, m.CheckFree(ctx, "guild-1", testutil.People(500, 5), ""))

	ids := append(testutil.People(500, 2), testutil.Person(202))
	err := m.CheckFree(ctx, "guild-1", ids, "")
	var already *domain.AlreadyInClanError
	require.True(t, errors.As(err, &already))
	require.Equal(t, "BRV", already.ClanTag)
	require.Equal(t, testutil.Person(202).ChatID, already.ChatID)

	// the clan being edited may keep its own members
	require.NoError(t, m.CheckFree(ctx, "guild-1", ids, "bravo"))
}
