package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleClan() *Clan {
	leader := Identity{Nickname: "Boss", GameID: "76561198000000010", ChatID: "200000000000000010"}
	roster := Roster{
		{Nickname: "A", GameID: game1, ChatID: chat1},
		{Nickname: "B", GameID: game2, ChatID: chat2},
	}
	info := Info{Tag: "WOLF", Name: "Wolves", Color: "#112233", Server: "1"}
	return NewClan("clan-1", "guild-1", info, leader, roster, "", "200000000000000010")
}

func TestNewClan(t *testing.T) {
	c := sampleClan()
	require.Equal(t, "clan-1", c.ID())
	require.Equal(t, StatusApproved, c.Status())
	require.Equal(t, 3, c.MemberCount())
	require.False(t, c.CreatedAt().IsZero())
	require.Equal(t, c.CreatedAt(), c.UpdatedAt())
	require.Len(t, c.Members(), 3)
	require.Equal(t, "Boss", c.Members()[0].Nickname)
}

func TestClan_HasMember(t *testing.T) {
	c := sampleClan()
	require.True(t, c.HasMember("200000000000000010", ""))
	require.True(t, c.HasMember("", game2))
	require.True(t, c.HasMember(chat1, ""))
	require.False(t, c.HasMember("", ""))
	// whole-id equality only
	require.False(t, c.HasMember("00000000000000001", ""))
	require.False(t, c.HasMember("1000000000000000011", ""))
}

func TestClan_RosterIsCopied(t *testing.T) {
	c := sampleClan()
	r := c.Roster()
	r[0].Nickname = "mutated"
	require.Equal(t, "A", c.Roster()[0].Nickname)
}

func TestClan_Apply(t *testing.T) {
	c := sampleClan()
	before := c.UpdatedAt()

	newLeader := c.Roster()[0]
	c.Apply(Patch{
		Leader:       &newLeader,
		Roster:       Ptr(c.Roster().Without(0)),
		LogMessageID: Ptr("msg-9"),
	})

	require.Equal(t, "A", c.Leader().Nickname)
	require.Len(t, c.Roster(), 1)
	require.Equal(t, "msg-9", c.LogMessageID())
	require.Equal(t, "WOLF", c.Tag())
	require.False(t, c.UpdatedAt().Before(before))
}

func TestClan_SnapshotRoundTrip(t *testing.T) {
	c := sampleClan()
	c.SetRoleID("role-1")
	again := Reconstitute(c.Snapshot())
	require.Equal(t, c.Snapshot(), again.Snapshot())
}

func TestClan_SameTagAndName(t *testing.T) {
	c := sampleClan()
	require.True(t, c.SameTag("wolf"))
	require.True(t, c.SameName("WOLVES"))
	require.False(t, c.SameTag("wol"))
}

func TestPatch_IsEmpty(t *testing.T) {
	require.True(t, Patch{}.IsEmpty())
	require.False(t, Patch{RoleID: Ptr("")}.IsEmpty())
}

func TestUserMessage(t *testing.T) {
	msg, ok := UserMessage(ErrSessionExpired)
	require.True(t, ok)
	require.Contains(t, msg, "expired")

	wrapped := errors.Join(errors.New("ctx"), &BelowMinimumError{Have: 4, Min: 5})
	msg, ok = UserMessage(wrapped)
	require.True(t, ok)
	require.Contains(t, msg, "at least 5")
	require.Contains(t, msg, "Add 1 more")

	_, ok = UserMessage(&ExternalCallError{Op: "create role", Err: errors.New("forbidden")})
	require.False(t, ok)

	integrity := &IntegrityError{Field: "tag", Err: errors.New("UNIQUE constraint failed")}
	_, ok = UserMessage(integrity)
	require.True(t, ok)
}
