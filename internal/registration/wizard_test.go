package registration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/platform/mock"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/testutil"
)

const (
	guildID = "guild-1"
	channel = "chan-1"
)

var user = testutil.Person(700)

type fixture struct {
	wizard    *Wizard
	collector *mock.Collector
	platform  *mock.Platform
	repo      *testutil.MemoryRepository
	mgr       *lifecycle.Manager
}

func setup(t *testing.T, emblemTimeout time.Duration) *fixture {
	t.Helper()
	repo := testutil.NewMemoryRepository()
	testutil.NewBuilder(t, repo).WithStandardClans().Build()
	p := mock.NewPlatform("owner")
	mgr := lifecycle.New(lifecycle.Deps{
		Repo:     repo,
		Platform: p,
		Rules:    validation.Rules{TagMin: 2, TagMax: 7, Servers: []string{"1", "2", "3", "4"}, MinMembers: 5},
	})
	collector := mock.NewCollector()
	return &fixture{
		wizard:    NewWizard(NewStore(time.Minute, nil), mgr, collector, emblemTimeout, nil),
		collector: collector,
		platform:  p,
		repo:      repo,
		mgr:       mgr,
	}
}

func basicInfo() domain.Info {
	return domain.Info{Tag: "WOLF", Name: "Wolf Pack", Color: "808080", Server: "2"}
}

// toEmblemStep runs steps 1 to 3 with valid input.
func (f *fixture) toEmblemStep(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.wizard.Start(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	_, err = f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, basicInfo())
	require.NoError(t, err)
	_, err = f.wizard.SubmitLeaderInfo(ctx, guildID, user.ChatID, user.Nickname, user.GameID)
	require.NoError(t, err)
	sess, err := f.wizard.SubmitRoster(ctx, guildID, user.ChatID, testutil.People(701, 4).String())
	require.NoError(t, err)
	require.Equal(t, StepEmblemWait, sess.Step)
}

type emblemOutcome struct {
	sess   Session
	result EmblemResult
	err    error
}

func (f *fixture) awaitEmblem(ctx context.Context) <-chan emblemOutcome {
	out := make(chan emblemOutcome, 1)
	go func() {
		sess, res, err := f.wizard.AwaitEmblem(ctx, guildID, user.ChatID, channel)
		out <- emblemOutcome{sess: sess, result: res, err: err}
	}()
	return out
}

func receive(t *testing.T, ch <-chan emblemOutcome) emblemOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		require.FailNow(t, "emblem wait did not return")
	}
	return emblemOutcome{}
}

func TestWizard_HappyPath(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()
	f.toEmblemStep(t)

	done := f.awaitEmblem(ctx)
	require.NoError(t, f.collector.WaitForListeners(ctx, 1, 1))
	require.True(t, f.collector.SendAttachment(channel, user.ChatID, platform.Attachment{URL: "https://cdn/e.png", Filename: "e.png"}))

	o := receive(t, done)
	require.NoError(t, o.err)
	require.Equal(t, EmblemAttached, o.result)
	require.Equal(t, StepConfirm, o.sess.Step)
	require.Equal(t, "https://cdn/e.png", o.sess.Draft.EmblemURL)

	res, err := f.wizard.Confirm(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	require.Equal(t, "WOLF", res.Clan.Tag())
	require.Equal(t, "#808080", res.Clan.Color())
	require.Equal(t, user, res.Clan.Leader())
	require.Equal(t, 5, res.Clan.MemberCount())
	require.Equal(t, 4, f.repo.Len())

	_, err = f.wizard.Session(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestWizard_EmblemSkipCancelsAttachmentListener(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor())
	f := setup(t, time.Second)
	ctx := context.Background()
	f.toEmblemStep(t)

	done := f.awaitEmblem(ctx)
	require.NoError(t, f.collector.WaitForListeners(ctx, 1, 1))
	require.True(t, f.collector.PressButton(render.IDEmblemSkip, user.ChatID))

	o := receive(t, done)
	require.NoError(t, o.err)
	require.Equal(t, EmblemSkipped, o.result)
	require.Empty(t, o.sess.Draft.EmblemURL)

	a, b := f.collector.Waiting()
	require.Zero(t, a, "attachment listener must be gone")
	require.Zero(t, b)
	require.False(t, f.collector.SendAttachment(channel, user.ChatID, platform.Attachment{URL: "late"}))
}

func TestWizard_EmblemTimeoutIsASkip(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor())
	f := setup(t, 20*time.Millisecond)
	f.toEmblemStep(t)

	o := receive(t, f.awaitEmblem(context.Background()))
	require.NoError(t, o.err)
	require.Equal(t, EmblemTimedOut, o.result)
	require.Equal(t, StepConfirm, o.sess.Step)
}

func TestWizard_OtherUsersAndChannelsDoNotCount(t *testing.T) {
	f := setup(t, 50*time.Millisecond)
	ctx := context.Background()
	f.toEmblemStep(t)

	done := f.awaitEmblem(ctx)
	require.NoError(t, f.collector.WaitForListeners(ctx, 1, 1))
	require.False(t, f.collector.SendAttachment(channel, "someone-else", platform.Attachment{URL: "x"}))
	require.False(t, f.collector.SendAttachment("other-channel", user.ChatID, platform.Attachment{URL: "x"}))
	require.False(t, f.collector.PressButton(render.IDEmblemSkip, "someone-else"))

	o := receive(t, done)
	require.Equal(t, EmblemTimedOut, o.result)
}

func TestWizard_CancelDuringEmblemWait(t *testing.T) {
	f := setup(t, time.Minute)
	ctx := context.Background()
	f.toEmblemStep(t)

	done := f.awaitEmblem(ctx)
	require.NoError(t, f.collector.WaitForListeners(ctx, 1, 1))
	require.NoError(t, f.wizard.Cancel(ctx, guildID, user.ChatID))

	o := receive(t, done)
	require.ErrorIs(t, o.err, domain.ErrSessionExpired)
}

// heldCommitter parks Create until release is closed.
type heldCommitter struct {
	*lifecycle.Manager
	entered chan struct{}
	release chan struct{}
}

func (c *heldCommitter) Create(ctx context.Context, req lifecycle.CreateRequest) (*lifecycle.CreateResult, error) {
	close(c.entered)
	<-c.release
	return c.Manager.Create(ctx, req)
}

func TestWizard_CancelRefusedWhileCommitting(t *testing.T) {
	f := setup(t, 10*time.Millisecond)
	held := &heldCommitter{Manager: f.mgr, entered: make(chan struct{}), release: make(chan struct{})}
	f.wizard = NewWizard(NewStore(time.Minute, nil), held, f.collector, 10*time.Millisecond, nil)
	ctx := context.Background()
	f.toEmblemStep(t)
	receive(t, f.awaitEmblem(ctx))

	type outcome struct {
		res *lifecycle.CreateResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.wizard.Confirm(ctx, guildID, user.ChatID)
		done <- outcome{res: res, err: err}
	}()
	select {
	case <-held.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "confirm never reached the committer")
	}

	err := f.wizard.Cancel(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrCommitting)
	_, err = f.wizard.Edit(ctx, guildID, user.ChatID, StepBasicInfo)
	require.ErrorIs(t, err, domain.ErrWrongStep)

	close(held.release)
	var o outcome
	select {
	case o = <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "confirm did not return")
	}
	require.NoError(t, o.err)
	require.Equal(t, "WOLF", o.res.Clan.Tag())
	require.Equal(t, 4, f.repo.Len())

	_, err = f.wizard.Session(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

// gatedRepo parks the first Find after arming until release is closed.
type gatedRepo struct {
	*testutil.MemoryRepository
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepo) Find(ctx context.Context, f domain.Filter) ([]*domain.Clan, error) {
	if r.armed.CompareAndSwap(true, false) {
		close(r.entered)
		<-r.release
	}
	return r.MemoryRepository.Find(ctx, f)
}

func TestWizard_StoreChecksDoNotBlockOtherSessions(t *testing.T) {
	mem := testutil.NewMemoryRepository()
	testutil.NewBuilder(t, mem).WithStandardClans().Build()
	repo := &gatedRepo{MemoryRepository: mem, entered: make(chan struct{}), release: make(chan struct{})}
	mgr := lifecycle.New(lifecycle.Deps{
		Repo:     repo,
		Platform: mock.NewPlatform("owner"),
		Rules:    validation.Rules{TagMin: 2, TagMax: 7, Servers: []string{"1", "2", "3", "4"}, MinMembers: 5},
	})
	w := NewWizard(NewStore(time.Minute, nil), mgr, mock.NewCollector(), time.Second, nil)
	ctx := context.Background()
	other := testutil.Person(800).ChatID

	_, err := w.Start(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	_, err = w.Start(ctx, guildID, other)
	require.NoError(t, err)

	repo.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := w.SubmitBasicInfo(ctx, guildID, user.ChatID, basicInfo())
		done <- err
	}()
	select {
	case <-repo.entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "uniqueness check never ran")
	}

	sess, err := w.Session(ctx, guildID, other)
	require.NoError(t, err)
	require.Equal(t, StepBasicInfo, sess.Step)

	// The session goes away while its check is still running.
	require.NoError(t, w.Cancel(ctx, guildID, user.ChatID))
	close(repo.release)

	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "submit did not return")
	}
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestWizard_Start(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	_, err := f.wizard.Start(ctx, guildID, testutil.Person(102).ChatID)
	var taken *domain.AlreadyInClanError
	require.ErrorAs(t, err, &taken)
	require.Equal(t, "ALP", taken.ClanTag)

	sess, err := f.wizard.Start(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	require.Equal(t, StepBasicInfo, sess.Step)

	_, err = f.wizard.Start(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrSessionExists)

	_, err = f.wizard.Start(ctx, "guild-2", user.ChatID)
	require.NoError(t, err, "sessions are per guild")
}

func TestWizard_StepValidation(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()
	_, err := f.wizard.Start(ctx, guildID, user.ChatID)
	require.NoError(t, err)

	_, err = f.wizard.SubmitRoster(ctx, guildID, user.ChatID, "")
	require.ErrorIs(t, err, domain.ErrWrongStep)

	bad := basicInfo()
	bad.Color = "nothex"
	sess, err := f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, bad)
	var invalid *domain.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "color", invalid.Field)
	require.Equal(t, StepBasicInfo, sess.Step)

	taken := basicInfo()
	taken.Tag = "alp"
	_, err = f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, taken)
	var rej *domain.Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, "tag", rej.Field)

	_, err = f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, basicInfo())
	require.NoError(t, err)

	_, err = f.wizard.SubmitLeaderInfo(ctx, guildID, user.ChatID, user.Nickname, "123")
	require.ErrorAs(t, err, &invalid)

	// Game id already on bravo's roster.
	_, err = f.wizard.SubmitLeaderInfo(ctx, guildID, user.ChatID, user.Nickname, testutil.Person(203).GameID)
	var claimed *domain.AlreadyInClanError
	require.ErrorAs(t, err, &claimed)
	require.Equal(t, "BRV", claimed.ClanTag)

	_, err = f.wizard.SubmitLeaderInfo(ctx, guildID, user.ChatID, user.Nickname, user.GameID)
	require.NoError(t, err)

	_, err = f.wizard.SubmitRoster(ctx, guildID, user.ChatID, testutil.People(701, 3).String())
	var below *domain.BelowMinimumError
	require.ErrorAs(t, err, &below)
	require.Equal(t, 4, below.Have)

	_, err = f.wizard.SubmitRoster(ctx, guildID, user.ChatID, domain.Roster{user}.String())
	require.ErrorAs(t, err, &invalid)

	withTaken := append(testutil.People(701, 3), testutil.Person(301))
	_, err = f.wizard.SubmitRoster(ctx, guildID, user.ChatID, withTaken.String())
	require.ErrorAs(t, err, &claimed)
	require.Equal(t, "CHR", claimed.ClanTag)

	sess, err = f.wizard.SubmitRoster(ctx, guildID, user.ChatID, testutil.People(701, 4).String())
	require.NoError(t, err)
	require.Equal(t, StepEmblemWait, sess.Step)
}

func TestWizard_EditReturnsToConfirm(t *testing.T) {
	f := setup(t, 10*time.Millisecond)
	ctx := context.Background()
	f.toEmblemStep(t)

	_, err := f.wizard.Edit(ctx, guildID, user.ChatID, StepBasicInfo)
	require.ErrorIs(t, err, domain.ErrWrongStep, "edit is only offered from the confirmation")

	receive(t, f.awaitEmblem(ctx))

	sess, err := f.wizard.Edit(ctx, guildID, user.ChatID, StepBasicInfo)
	require.NoError(t, err)
	require.True(t, sess.Editing)

	info := basicInfo()
	info.Name = "Renamed Pack"
	sess, err = f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, info)
	require.NoError(t, err)
	require.Equal(t, StepConfirm, sess.Step)
	require.False(t, sess.Editing)
	require.Equal(t, "Renamed Pack", sess.Draft.Info.Name)
	require.Len(t, sess.Draft.Roster, 4, "other steps are kept")

	_, err = f.wizard.Edit(ctx, guildID, user.ChatID, StepEmblemWait)
	require.ErrorIs(t, err, domain.ErrWrongStep)
}

func TestWizard_ConfirmKeepsSessionWhenRoleCreationFails(t *testing.T) {
	f := setup(t, 10*time.Millisecond)
	ctx := context.Background()
	f.toEmblemStep(t)
	receive(t, f.awaitEmblem(ctx))

	f.platform.Fail(mock.OpCreateRole, errors.New("missing permissions"))
	res, err := f.wizard.Confirm(ctx, guildID, user.ChatID)
	require.Error(t, err)
	require.False(t, res.RoleCreated)

	sess, err := f.wizard.Session(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	require.Equal(t, StepConfirm, sess.Step)

	f.platform.ClearFailures()
	res, err = f.wizard.Confirm(ctx, guildID, user.ChatID)
	require.NoError(t, err)
	require.NotNil(t, res.Clan)
}

func TestWizard_ConfirmDropsSessionAfterLateFailure(t *testing.T) {
	f := setup(t, 10*time.Millisecond)
	ctx := context.Background()
	f.toEmblemStep(t)
	receive(t, f.awaitEmblem(ctx))

	f.repo.FailNext = errors.New("disk full")
	res, err := f.wizard.Confirm(ctx, guildID, user.ChatID)
	require.Error(t, err)
	require.True(t, res.RoleCreated)

	_, err = f.wizard.Session(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestWizard_NoSession(t *testing.T) {
	f := setup(t, time.Second)
	ctx := context.Background()

	_, err := f.wizard.SubmitBasicInfo(ctx, guildID, user.ChatID, basicInfo())
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	_, err = f.wizard.Confirm(ctx, guildID, user.ChatID)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	require.ErrorIs(t, f.wizard.Cancel(ctx, guildID, user.ChatID), domain.ErrSessionExpired)

	msg, ok := domain.UserMessage(domain.ErrSessionExpired)
	require.True(t, ok)
	require.NotEmpty(t, msg)
}
