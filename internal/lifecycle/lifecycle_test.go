package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/clanbot/internal/artifacts"
	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/config"
	"github.com/zjrosen/clanbot/internal/flags"
	"github.com/zjrosen/clanbot/internal/nickname"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/platform/mock"
	"github.com/zjrosen/clanbot/internal/pubsub"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/statefile"
	"github.com/zjrosen/clanbot/internal/testutil"
)

const (
	guildID      = "guild-1"
	leaderRoleID = "leader-role"
	panelChan    = "chan-panel"
)

var rules = validation.Rules{TagMin: 2, TagMax: 7, Servers: []string{"1", "2", "3", "4"}, MinMembers: 5}

type fixture struct {
	mgr      *Manager
	platform *mock.Platform
	repo     *testutil.MemoryRepository
	sync     *artifacts.Synchronizer
	events   *pubsub.Broker[Event]
}

func newManager(repo domain.Repository, p platform.Platform, art Artifacts, nicks Nicknames, events *pubsub.Broker[Event]) *Manager {
	fl := flags.New(flags.Defaults())
	return New(Deps{
		Repo:         repo,
		Platform:     p,
		Artifacts:    art,
		Nicknames:    nicks,
		Flags:        fl,
		Events:       events,
		Rules:        rules,
		LeaderRoleID: leaderRoleID,
	})
}

func setup(t *testing.T) *fixture {
	t.Helper()
	state, err := statefile.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	t.Cleanup(state.Close)

	repo := testutil.NewMemoryRepository()
	p := mock.NewPlatform("owner")
	channels := config.ChannelsConfig{Registry: "chan-registry", Log: "chan-log", JoinPanel: panelChan}
	syncer := artifacts.New(p, repo, state, render.New(config.Defaults()), channels, nil)
	events := pubsub.NewBroker[Event]()
	t.Cleanup(events.Close)

	fl := flags.New(flags.Defaults())
	return &fixture{
		mgr:      newManager(repo, p, syncer, nickname.New(p, fl), events),
		platform: p,
		repo:     repo,
		sync:     syncer,
		events:   events,
	}
}

// addPeople puts the identities in the guild so role grants succeed.
func (f *fixture) addPeople(ids ...domain.Identity) {
	for _, id := range ids {
		f.platform.AddMember(platform.Member{ID: id.ChatID, Username: id.Nickname})
	}
}

func request(tag, color string, leader int, roster domain.Roster) CreateRequest {
	return CreateRequest{
		GuildID: guildID,
		ActorID: testutil.Person(leader).ChatID,
		Info:    domain.Info{Tag: tag, Name: tag + " clan", Color: color, Server: "1"},
		Leader:  testutil.Person(leader),
		Roster:  roster,
	}
}

func TestCreate_CommitsAndPublishes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	roster := testutil.People(501, 4)
	f.addPeople(append(domain.Roster{testutil.Person(500)}, roster...)...)
	sub := f.events.Subscribe(ctx)

	res, err := f.mgr.Create(ctx, request("wolf", "ff8800", 500, roster))
	require.NoError(t, err)
	require.True(t, res.RoleCreated)
	require.Zero(t, res.GrantFailures)

	c := res.Clan
	require.Equal(t, "#FF8800", c.Color())
	require.NotEmpty(t, c.RoleID())
	require.NotEmpty(t, c.RegistryMessageID())
	require.NotEmpty(t, c.LogMessageID())

	for _, id := range c.Members() {
		m, ok := f.platform.Member(id.ChatID)
		require.True(t, ok)
		require.True(t, m.HasRole(c.RoleID()), id.ChatID)
		require.Equal(t, "wolf "+id.Nickname, m.Nickname)
	}
	leader, _ := f.platform.Member(testutil.Person(500).ChatID)
	require.True(t, leader.HasRole(leaderRoleID))

	stored, err := f.repo.FindOne(ctx, domain.Filter{ID: c.ID()})
	require.NoError(t, err)
	require.Equal(t, c.RegistryMessageID(), stored.RegistryMessageID())

	select {
	case e := <-sub:
		require.Equal(t, pubsub.ClanCreated, e.Type)
		require.Equal(t, c.ID(), e.Payload.ClanID)
	case <-time.After(time.Second):
		require.Fail(t, "no ClanCreated event")
	}
}

func TestCreate_MemberFloor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.mgr.Create(ctx, request("FOUR", "#123456", 600, testutil.People(601, 3)))
	var below *domain.BelowMinimumError
	require.ErrorAs(t, err, &below)
	require.Equal(t, 4, below.Have)
	require.Zero(t, f.repo.Len())
	require.Zero(t, f.platform.RoleCount())

	_, err = f.mgr.Create(ctx, request("FIVE", "#123456", 600, testutil.People(601, 4)))
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.Len())
}

func TestCreate_Uniqueness(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		clanName  string
		color     string
		wantField string
	}{
		{name: "tag differs only in case", tag: "alp", clanName: "Fresh", color: "#808080", wantField: "tag"},
		{name: "name differs only in case", tag: "NEW", clanName: "ALPHA SQUAD", color: "#808080", wantField: "name"},
		{name: "color too close", tag: "NEW", clanName: "Fresh", color: "#F50000", wantField: "color"},
		{name: "distinct", tag: "NEW", clanName: "Fresh", color: "#808080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
			req := request(tt.tag, tt.color, 700, testutil.People(701, 4))
			req.Info.Name = tt.clanName

			_, err := f.mgr.Create(context.Background(), req)
			if tt.wantField == "" {
				require.NoError(t, err)
				require.Equal(t, 4, f.repo.Len())
				return
			}
			var rej *domain.Rejection
			require.ErrorAs(t, err, &rej)
			require.Equal(t, tt.wantField, rej.Field)
			require.Equal(t, 3, f.repo.Len())
			require.Empty(t, f.platform.CallsTo(mock.OpCreateRole))
		})
	}
}

func TestCreate_RejectsClaimedMember(t *testing.T) {
	f := setup(t)
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()

	roster := append(testutil.People(801, 3), testutil.Person(102))
	_, err := f.mgr.Create(context.Background(), request("NEW", "#808080", 800, roster))

	var taken *domain.AlreadyInClanError
	require.ErrorAs(t, err, &taken)
	require.Equal(t, "ALP", taken.ClanTag)
}

func TestCreate_ConcurrentSameTag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reqs := []CreateRequest{
		request("WOLF", "#FF0000", 100, testutil.People(101, 4)),
		request("wolf", "#0000FF", 200, testutil.People(201, 4)),
	}
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.mgr.Create(ctx, req)
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			var rej *domain.Rejection
			require.ErrorAs(t, err, &rej)
			require.Equal(t, "tag", rej.Field)
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 1, f.repo.Len())
	require.Equal(t, 1, f.platform.RoleCount())
}

func TestCreate_RoleFailurePersistsNothing(t *testing.T) {
	f := setup(t)
	f.platform.Fail(mock.OpCreateRole, errors.New("missing permissions"))

	res, err := f.mgr.Create(context.Background(), request("WOLF", "#123456", 500, testutil.People(501, 4)))

	var ext *domain.ExternalCallError
	require.ErrorAs(t, err, &ext)
	require.Equal(t, "create role", ext.Op)
	require.False(t, res.RoleCreated)
	require.Zero(t, f.repo.Len())
	require.Empty(t, f.platform.CallsTo(mock.OpAddMemberRole))
	require.Zero(t, f.platform.MessageCount())
}

func TestCreate_InsertFailureDeletesRole(t *testing.T) {
	f := setup(t)
	f.addPeople(testutil.Person(500))
	f.repo.FailNext = errors.New("disk full")

	res, err := f.mgr.Create(context.Background(), request("WOLF", "#123456", 500, testutil.People(501, 4)))

	require.Error(t, err)
	require.True(t, res.RoleCreated)
	require.Nil(t, res.Clan)
	require.Zero(t, f.repo.Len())
	require.Zero(t, f.platform.RoleCount())
	require.Len(t, f.platform.CallsTo(mock.OpDeleteRole), 1)

	leader, _ := f.platform.Member(testutil.Person(500).ChatID)
	require.False(t, leader.HasRole(leaderRoleID))
}

func TestCreate_GrantFailuresAreCounted(t *testing.T) {
	f := setup(t)
	roster := testutil.People(501, 4)
	// Only the leader and two roster members are in the guild.
	f.addPeople(testutil.Person(500), roster[0], roster[1])

	res, err := f.mgr.Create(context.Background(), request("WOLF", "#123456", 500, roster))
	require.NoError(t, err)
	require.Equal(t, 2, res.GrantFailures)
	require.Equal(t, 1, f.repo.Len())
}

func TestJoin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	newcomer := testutil.Person(900)
	f.addPeople(newcomer)

	c, err := f.mgr.Join(ctx, JoinRequest{GuildID: guildID, RoleID: "role-alpha", Member: newcomer})
	require.NoError(t, err)
	require.Equal(t, 6, c.MemberCount())

	m, _ := f.platform.Member(newcomer.ChatID)
	require.True(t, m.HasRole("role-alpha"))

	_, err = f.mgr.Join(ctx, JoinRequest{GuildID: guildID, RoleID: "role-bravo", Member: newcomer})
	var taken *domain.AlreadyInClanError
	require.ErrorAs(t, err, &taken)
	require.Equal(t, "ALP", taken.ClanTag)
}

func TestJoin_GrantFailureIsFatal(t *testing.T) {
	f := setup(t)
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	f.platform.Fail(mock.OpAddMemberRole, errors.New("hierarchy"))

	_, err := f.mgr.Join(context.Background(), JoinRequest{GuildID: guildID, RoleID: "role-alpha", Member: testutil.Person(900)})

	var ext *domain.ExternalCallError
	require.ErrorAs(t, err, &ext)
	require.Zero(t, f.repo.Updates)
	alpha, _ := f.repo.FindOne(context.Background(), domain.Filter{ID: "alpha"})
	require.Equal(t, 5, alpha.MemberCount())
}

func TestJoin_StoreFailureRevokesRole(t *testing.T) {
	f := setup(t)
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	newcomer := testutil.Person(900)
	f.addPeople(newcomer)
	f.repo.FailNext = errors.New("disk full")

	_, err := f.mgr.Join(context.Background(), JoinRequest{GuildID: guildID, RoleID: "role-alpha", Member: newcomer})
	require.Error(t, err)

	m, _ := f.platform.Member(newcomer.ChatID)
	require.False(t, m.HasRole("role-alpha"))
}

func TestJoin_UnknownRoleAndBadInput(t *testing.T) {
	f := setup(t)
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	ctx := context.Background()

	_, err := f.mgr.Join(ctx, JoinRequest{GuildID: guildID, RoleID: "role-missing", Member: testutil.Person(900)})
	var nf *domain.ClanNotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = f.mgr.Join(ctx, JoinRequest{GuildID: guildID, Member: testutil.Person(900)})
	require.ErrorAs(t, err, &nf)

	bad := testutil.Person(900)
	bad.GameID = "123"
	_, err = f.mgr.Join(ctx, JoinRequest{GuildID: guildID, RoleID: "role-alpha", Member: bad})
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "game id", invalid.Field)
}

func TestLeave_RosterMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	member := testutil.Person(102)
	f.platform.AddMember(platform.Member{ID: member.ChatID, Nickname: "ALP player102", Roles: []string{"role-alpha"}})

	res, err := f.mgr.Leave(ctx, guildID, member.ChatID)
	require.NoError(t, err)
	require.Equal(t, LeftRoster, res.Outcome)
	require.Equal(t, 4, res.Clan.MemberCount())

	m, _ := f.platform.Member(member.ChatID)
	require.False(t, m.HasRole("role-alpha"))
	require.Equal(t, "player102", m.Nickname)

	_, err = f.mgr.Leave(ctx, guildID, member.ChatID)
	require.ErrorIs(t, err, domain.ErrNotMember)
}

func TestLeave_LeaderSuccession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, b, c := testutil.Person(11), testutil.Person(12), testutil.Person(13)
	leader := testutil.Person(10)
	testutil.NewBuilder(t, f.repo).
		WithClan("wolf", testutil.Tag("WOLF"), testutil.Leader(leader), testutil.Roster(domain.Roster{a, b, c}), testutil.RoleID("role-wolf")).
		Build()
	// a has left the guild.
	f.addPeople(leader, b, c)
	sub := f.events.Subscribe(ctx)

	res, err := f.mgr.Leave(ctx, guildID, leader.ChatID)
	require.NoError(t, err)
	require.Equal(t, LeaderReplaced, res.Outcome)
	require.Equal(t, b, res.NewLeader)

	stored, err := f.repo.FindOne(ctx, domain.Filter{ID: "wolf"})
	require.NoError(t, err)
	require.Equal(t, b, stored.Leader())
	require.Equal(t, domain.Roster{a, c}, stored.Roster())

	nb, _ := f.platform.Member(b.ChatID)
	require.True(t, nb.HasRole(leaderRoleID))
	require.Len(t, f.platform.CallsTo(mock.OpRemoveMemberRole), 2, "leader role and clan role of the old leader")

	select {
	case e := <-sub:
		require.Equal(t, pubsub.LeaderChanged, e.Type)
		require.Equal(t, b.ChatID, e.Payload.MemberID)
	case <-time.After(time.Second):
		require.Fail(t, "no LeaderChanged event")
	}
}

func TestLeave_LeaderWithNoSuccessorDissolves(t *testing.T) {
	tests := []struct {
		name   string
		roster domain.Roster
	}{
		{name: "empty roster"},
		// Nobody on the roster is still in the guild.
		{name: "roster all absent", roster: testutil.People(21, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			leader := testutil.Person(20)
			testutil.NewBuilder(t, f.repo).
				WithClan("lone", testutil.Tag("LONE"), testutil.Leader(leader), testutil.Roster(tt.roster), testutil.RoleID("role-lone")).
				Build()
			f.addPeople(leader)

			res, err := f.mgr.Leave(ctx, guildID, leader.ChatID)
			require.NoError(t, err)
			require.Equal(t, Dissolved, res.Outcome)
			require.Zero(t, f.repo.Len())

			deleted := f.platform.CallsTo(mock.OpDeleteRole)
			require.Len(t, deleted, 1)
			require.Equal(t, []string{guildID, "role-lone"}, deleted[0].Args)

			for _, id := range append(domain.Roster{leader}, tt.roster...) {
				clan, err := f.mgr.Membership().FindClanOf(ctx, guildID, validation.Lookup{ChatID: id.ChatID, GameID: id.GameID}, "")
				require.NoError(t, err)
				require.Nil(t, clan, "%s still resolves to a clan", id.Nickname)
			}
		})
	}
}

func TestEditInfo_StoreFailureLeavesRoleAlone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	leader := testutil.Person(100)

	f.repo.FailNext = errors.New("disk full")
	_, err := f.mgr.EditInfo(ctx, guildID, leader.ChatID, domain.Info{Tag: "APX", Name: "Alpha", Color: "#00FF00", Server: "1"})
	require.Error(t, err)
	require.Empty(t, f.platform.CallsTo(mock.OpEditRole))

	stored, err := f.repo.FindOne(ctx, domain.Filter{ID: "alpha"})
	require.NoError(t, err)
	require.Equal(t, "ALP", stored.Tag())
}

func TestEditInfo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	leader := testutil.Person(100)
	f.platform.AddMember(platform.Member{ID: leader.ChatID, Nickname: "ALP player100"})

	_, err := f.mgr.EditInfo(ctx, guildID, testutil.Person(101).ChatID, domain.Info{Tag: "X1", Name: "x", Color: "#808080", Server: "1"})
	require.ErrorIs(t, err, domain.ErrNotLeader)

	_, err = f.mgr.EditInfo(ctx, guildID, leader.ChatID, domain.Info{Tag: "BRV", Name: "x", Color: "#808080", Server: "1"})
	var rej *domain.Rejection
	require.ErrorAs(t, err, &rej)

	// Keeping its own tag, name and color is not a collision.
	c, err := f.mgr.EditInfo(ctx, guildID, leader.ChatID, domain.Info{Tag: "ALP", Name: "Alpha Squad", Color: "#FF0000", Server: "2"})
	require.NoError(t, err)
	require.Equal(t, "2", c.Server())
	require.Empty(t, f.platform.CallsTo(mock.OpEditRole))

	c, err = f.mgr.EditInfo(ctx, guildID, leader.ChatID, domain.Info{Tag: "APX", Name: "Alpha Squad", Color: "#FF0000", Server: "2"})
	require.NoError(t, err)
	require.Equal(t, "APX", c.Tag())
	require.Len(t, f.platform.CallsTo(mock.OpEditRole), 1)
	m, _ := f.platform.Member(leader.ChatID)
	require.Equal(t, "APX player100", m.Nickname)
}

func TestEditRoster_GrantsOnlyTheDelta(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	keep := testutil.People(101, 2)
	dropped := testutil.People(103, 2)
	added := testutil.People(105, 2)
	f.addPeople(append(append(slices.Clone(keep), dropped...), added...)...)
	f.platform.ResetCalls()

	next := append(slices.Clone(keep), added...)
	res, err := f.mgr.EditRoster(ctx, guildID, testutil.Person(100).ChatID, next.String())
	require.NoError(t, err)
	require.Equal(t, added, res.Added)
	require.Equal(t, dropped, res.Removed)

	var granted, revoked []string
	for _, call := range f.platform.CallsTo(mock.OpAddMemberRole) {
		granted = append(granted, call.Args[1])
	}
	for _, call := range f.platform.CallsTo(mock.OpRemoveMemberRole) {
		revoked = append(revoked, call.Args[1])
	}
	require.ElementsMatch(t, []string{added[0].ChatID, added[1].ChatID}, granted)
	require.ElementsMatch(t, []string{dropped[0].ChatID, dropped[1].ChatID}, revoked)

	stored, _ := f.repo.FindOne(ctx, domain.Filter{ID: "alpha"})
	require.Equal(t, next, stored.Roster())
}

func TestEditRoster_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	actor := testutil.Person(100).ChatID

	_, err := f.mgr.EditRoster(ctx, guildID, actor, "not a roster line")
	var format *domain.FormatError
	require.ErrorAs(t, err, &format)

	_, err = f.mgr.EditRoster(ctx, guildID, actor, domain.Roster{testutil.Person(201)}.String())
	var taken *domain.AlreadyInClanError
	require.ErrorAs(t, err, &taken)
	require.Equal(t, "BRV", taken.ClanTag)

	_, err = f.mgr.EditRoster(ctx, guildID, actor, domain.Roster{testutil.Person(100)}.String())
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)

	// The floor applies at registration only.
	res, err := f.mgr.EditRoster(ctx, guildID, actor, domain.Roster{testutil.Person(101)}.String())
	require.NoError(t, err)
	require.Equal(t, 2, res.Clan.MemberCount())
}

func TestDissolve_Order(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	_, err := f.sync.PostJoinPanel(ctx, guildID, panelChan)
	require.NoError(t, err)
	leader := testutil.Person(100).ChatID

	req, err := f.mgr.RequestDissolution(ctx, guildID, leader)
	require.NoError(t, err)
	require.Equal(t, render.IDManageDeleteConfirmPrefix+"alpha", req.ConfirmID)

	f.platform.ResetCalls()
	c, err := f.mgr.ConfirmDissolution(ctx, guildID, leader, req.Clan.ID())
	require.NoError(t, err)
	require.Equal(t, "ALP", c.Tag())

	var ops []string
	for _, op := range f.platform.Ops() {
		switch op {
		case mock.OpFetchMember, mock.OpSetNickname, mock.OpGuildOwner:
			continue
		}
		ops = append(ops, op)
	}
	require.Equal(t, []string{
		mock.OpDeleteRole,
		mock.OpDeleteMessage,
		mock.OpDeleteMessage,
		mock.OpRemoveMemberRole,
		mock.OpEditMessage,
	}, ops)

	require.Equal(t, 2, f.repo.Len())
	for _, id := range c.Members() {
		clan, err := f.mgr.Membership().FindClanOf(ctx, guildID, validation.Lookup{ChatID: id.ChatID}, "")
		require.NoError(t, err)
		require.Nil(t, clan)
	}
}

func TestConfirmDissolution_RequiresLeader(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()

	_, err := f.mgr.RequestDissolution(ctx, guildID, testutil.Person(101).ChatID)
	require.ErrorIs(t, err, domain.ErrNotLeader)

	_, err = f.mgr.ConfirmDissolution(ctx, guildID, testutil.Person(200).ChatID, "alpha")
	require.ErrorIs(t, err, domain.ErrNotLeader)
	require.Equal(t, 3, f.repo.Len())
}

func TestDissolve_StoreFailureFails(t *testing.T) {
	f := setup(t)
	testutil.NewBuilder(t, f.repo).WithStandardClans().Build()
	f.repo.FailNext = errors.New("disk full")

	_, err := f.mgr.ConfirmDissolution(context.Background(), guildID, testutil.Person(100).ChatID, "alpha")
	require.Error(t, err)
	require.Equal(t, 3, f.repo.Len())
}

// Whatever sequence of joins and leaves runs, no identity ends up in two
// clans.
func TestMembershipExclusivity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		repo := testutil.NewMemoryRepository()
		p := mock.NewPlatform("owner")
		roles := []string{"role-a", "role-b"}
		for i, role := range roles {
			c := testutil.NewClan(fmt.Sprintf("c%d", i),
				testutil.Tag(fmt.Sprintf("T%d", i)),
				testutil.Leader(testutil.Person(1000+i)),
				testutil.Roster(nil),
				testutil.RoleID(role))
			if err := repo.Insert(ctx, c); err != nil {
				rt.Fatal(err)
			}
		}
		pool := testutil.People(1, 6)
		for _, id := range pool {
			p.AddMembers(id.ChatID)
		}
		mgr := newManager(repo, p, nil, nil, nil)

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for range steps {
			who := pool[rapid.IntRange(0, len(pool)-1).Draw(rt, "who")]
			if rapid.Bool().Draw(rt, "join") {
				role := rapid.SampledFrom(roles).Draw(rt, "role")
				_, _ = mgr.Join(ctx, JoinRequest{GuildID: guildID, RoleID: role, Member: who})
			} else {
				_, _ = mgr.Leave(ctx, guildID, who.ChatID)
			}
		}

		clans, err := repo.Find(ctx, domain.Filter{GuildID: guildID})
		if err != nil {
			rt.Fatal(err)
		}
		for _, id := range pool {
			n := 0
			for _, c := range clans {
				if c.HasMember(id.ChatID, id.GameID) {
					n++
				}
			}
			if n > 1 {
				rt.Fatalf("%s is in %d clans", id.ChatID, n)
			}
		}
	})
}
