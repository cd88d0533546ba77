package registration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/clan/validation"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/platform"
	"github.com/zjrosen/clanbot/internal/render"
	"github.com/zjrosen/clanbot/internal/tracing"
)

// Committer creates clans and exposes the checks used step by step.
// *lifecycle.Manager implements it.
type Committer interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (*lifecycle.CreateResult, error)
	Rules() validation.Rules
	Uniqueness() *validation.Uniqueness
	Membership() *validation.Membership
}

// EmblemResult says how the emblem step ended.
type EmblemResult int

const (
	EmblemAttached EmblemResult = iota + 1
	EmblemSkipped
	EmblemTimedOut
)

// Wizard drives registration sessions.
type Wizard struct {
	store     *Store
	committer Committer
	collector platform.Collector
	tracer    trace.Tracer

	emblemTimeout time.Duration
	now           func() time.Time

	// mu guards every session's fields. Store reads run without it.
	mu sync.Mutex
}

// NewWizard creates a Wizard. emblemTimeout bounds the emblem step.
func NewWizard(store *Store, c Committer, collector platform.Collector, emblemTimeout time.Duration, tracer trace.Tracer) *Wizard {
	return &Wizard{
		store:         store,
		committer:     c,
		collector:     collector,
		tracer:        tracer,
		emblemTimeout: emblemTimeout,
		now:           time.Now,
	}
}

// EmblemTimeout is the length of the emblem window.
func (w *Wizard) EmblemTimeout() time.Duration {
	return w.emblemTimeout
}

// Session returns a copy of the user's open session.
func (w *Wizard) Session(ctx context.Context, guildID, userID string) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sess, ok := w.store.Get(ctx, guildID, userID)
	if !ok {
		return Session{}, domain.ErrSessionExpired
	}
	return *sess, nil
}

// Start opens a session. Users already in a clan, and users with a
// session in progress, are turned away.
func (w *Wizard) Start(ctx context.Context, guildID, userID string) (Session, error) {
	clan, err := w.committer.Membership().FindClanOf(ctx, guildID, validation.Lookup{ChatID: userID}, "")
	if err != nil {
		return Session{}, err
	}
	if clan != nil {
		return Session{}, &domain.AlreadyInClanError{ChatID: userID, ClanTag: clan.Tag(), Name: clan.Name()}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.store.Get(ctx, guildID, userID); ok {
		return Session{}, domain.ErrSessionExists
	}
	sess := &Session{
		GuildID: guildID,
		UserID:  userID,
		Step:    StepBasicInfo,
		Draft:   Draft{Leader: domain.Identity{ChatID: userID}},
		Started: w.now(),
		closed:  &atomic.Bool{},
	}
	w.store.Put(ctx, sess)
	log.Info(log.CatSession, "Registration started", "guild_id", guildID, "user_id", userID)
	return *sess, nil
}

// current returns the session if it is at step and idle. Callers hold mu.
func (w *Wizard) current(ctx context.Context, guildID, userID string, step Step) (*Session, error) {
	sess, ok := w.store.Get(ctx, guildID, userID)
	if !ok {
		return nil, domain.ErrSessionExpired
	}
	if sess.Step != step || sess.busy {
		return nil, domain.ErrWrongStep
	}
	return sess, nil
}

// snapshot returns the session at step together with a copy taken under mu.
func (w *Wizard) snapshot(ctx context.Context, guildID, userID string, step Step) (*Session, Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sess, err := w.current(ctx, guildID, userID, step)
	if err != nil {
		return nil, Session{}, err
	}
	return sess, *sess, nil
}

// apply runs fn on sess if it is still the user's session and still idle
// at step. Another submit may have moved it on while checks ran.
func (w *Wizard) apply(ctx context.Context, sess *Session, step Step, fn func(*Session)) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cur, err := w.current(ctx, sess.GuildID, sess.UserID, step)
	if err != nil {
		return Session{}, err
	}
	if cur != sess {
		return *cur, domain.ErrWrongStep
	}
	fn(cur)
	return *cur, nil
}

// advance moves past a completed step, back to the confirmation when the
// step was being edited.
func advance(sess *Session, next Step) {
	if sess.Editing {
		sess.Editing = false
		sess.Step = StepConfirm
		return
	}
	sess.Step = next
}

// SubmitBasicInfo validates the format of info and its uniqueness in the
// guild. A rejection keeps the session on this step.
func (w *Wizard) SubmitBasicInfo(ctx context.Context, guildID, userID string, info domain.Info) (Session, error) {
	sess, snap, err := w.snapshot(ctx, guildID, userID, StepBasicInfo)
	if err != nil {
		return Session{}, err
	}

	info, err = w.committer.Rules().NormalizeInfo(info)
	if err != nil {
		return snap, err
	}
	rej, err := w.committer.Uniqueness().Check(ctx, guildID, validation.Candidate{Tag: info.Tag, Name: info.Name, Color: info.Color}, "")
	if err != nil {
		return snap, err
	}
	if rej != nil {
		log.Info(log.CatSession, "Basic info rejected", "user_id", userID, "field", rej.Field, "value", rej.Value)
		return snap, rej
	}

	return w.apply(ctx, sess, StepBasicInfo, func(sess *Session) {
		sess.Draft.Info = info
		advance(sess, StepLeaderInfo)
	})
}

// SubmitLeaderInfo records the leader's nickname and game id. The leader's
// chat id is always the registering user.
func (w *Wizard) SubmitLeaderInfo(ctx context.Context, guildID, userID, nickname, gameID string) (Session, error) {
	sess, snap, err := w.snapshot(ctx, guildID, userID, StepLeaderInfo)
	if err != nil {
		return Session{}, err
	}

	leader, err := validation.NormalizeIdentity(domain.Identity{Nickname: nickname, GameID: gameID, ChatID: userID})
	if err != nil {
		return snap, err
	}
	clan, err := w.committer.Membership().FindClanOf(ctx, guildID, validation.Lookup{ChatID: leader.ChatID, GameID: leader.GameID}, "")
	if err != nil {
		return snap, err
	}
	if clan != nil {
		return snap, &domain.AlreadyInClanError{ChatID: leader.ChatID, GameID: leader.GameID, ClanTag: clan.Tag(), Name: clan.Name()}
	}
	if err := w.committer.Rules().CheckRosterShape(leader, snap.Draft.Roster, false); err != nil {
		return snap, err
	}

	return w.apply(ctx, sess, StepLeaderInfo, func(sess *Session) {
		sess.Draft.Leader = leader
		advance(sess, StepRoster)
	})
}

// SubmitRoster parses and checks the roster, including the member floor.
func (w *Wizard) SubmitRoster(ctx context.Context, guildID, userID, text string) (Session, error) {
	sess, snap, err := w.snapshot(ctx, guildID, userID, StepRoster)
	if err != nil {
		return Session{}, err
	}

	roster, err := domain.ParseRoster(text)
	if err != nil {
		return snap, err
	}
	if err := w.committer.Rules().CheckRosterShape(snap.Draft.Leader, roster, true); err != nil {
		return snap, err
	}
	if err := w.committer.Membership().CheckFree(ctx, guildID, roster, ""); err != nil {
		return snap, err
	}

	return w.apply(ctx, sess, StepRoster, func(sess *Session) {
		sess.Draft.Roster = roster
		advance(sess, StepEmblemWait)
	})
}

// AwaitEmblem waits for the user to upload an image in channelID or press
// skip, whichever comes first. Running out of time counts as a skip. The
// session then moves to the confirmation.
func (w *Wizard) AwaitEmblem(ctx context.Context, guildID, userID, channelID string) (Session, EmblemResult, error) {
	w.mu.Lock()
	sess, err := w.current(ctx, guildID, userID, StepEmblemWait)
	if err != nil {
		w.mu.Unlock()
		return Session{}, 0, err
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	sess.busy = true
	sess.stop = stop
	w.mu.Unlock()

	var result EmblemResult
	var url string
	attrs := tracing.ClanAttrs(guildID, "", sess.Draft.Info.Tag, userID)
	err = tracing.Run(ctx, w.tracer, tracing.SpanEmblemWait, attrs, func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, w.emblemTimeout)
		defer cancel()

		which, a, err := firstOf(waitCtx,
			func(ctx context.Context) (platform.Attachment, error) {
				return w.collector.AwaitAttachment(ctx, channelID, userID)
			},
			func(ctx context.Context) (platform.Attachment, error) {
				return platform.Attachment{}, w.collector.AwaitButton(ctx, render.IDEmblemSkip, userID)
			},
		)
		switch {
		case err == nil && which == 0:
			result, url = EmblemAttached, a.URL
		case err == nil:
			result = EmblemSkipped
		case ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, platform.ErrTimeout)):
			result = EmblemTimedOut
		default:
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("emblem.result", int(result)))
		return nil
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	sess.busy = false
	sess.stop = nil
	if sess.closed.Load() {
		return Session{}, 0, domain.ErrSessionExpired
	}
	if err != nil {
		return *sess, 0, err
	}
	sess.Draft.EmblemURL = url
	sess.Step = StepConfirm
	log.Debug(log.CatSession, "Emblem step finished", "user_id", userID, "result", int(result))
	return *sess, result, nil
}

// Edit re-opens step 1 to 3 from the confirmation, or switches to another
// of them while already editing. Submitting it returns to the
// confirmation.
func (w *Wizard) Edit(ctx context.Context, guildID, userID string, step Step) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sess, ok := w.store.Get(ctx, guildID, userID)
	if !ok {
		return Session{}, domain.ErrSessionExpired
	}
	if sess.busy || (sess.Step != StepConfirm && !sess.Editing) {
		return *sess, domain.ErrWrongStep
	}
	if step < StepBasicInfo || step > StepRoster {
		return *sess, domain.ErrWrongStep
	}
	sess.Editing = true
	sess.Step = step
	return *sess, nil
}

// Cancel discards the session without side effects. A session whose
// draft is being committed can no longer be cancelled.
func (w *Wizard) Cancel(ctx context.Context, guildID, userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sess, ok := w.store.Get(ctx, guildID, userID)
	if !ok {
		return domain.ErrSessionExpired
	}
	if sess.busy && sess.Step == StepConfirm {
		return domain.ErrCommitting
	}
	if sess.stop != nil {
		sess.stop()
	}
	w.store.Discard(ctx, sess)
	log.Info(log.CatSession, "Registration cancelled", "guild_id", guildID, "user_id", userID, "step", sess.Step.String())
	return nil
}

// Confirm commits the draft. The session is dropped once the clan role
// was created, whether or not the rest of creation succeeded. Failures
// before that keep the session so the user can fix the draft or retry.
func (w *Wizard) Confirm(ctx context.Context, guildID, userID string) (*lifecycle.CreateResult, error) {
	w.mu.Lock()
	sess, err := w.current(ctx, guildID, userID, StepConfirm)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	sess.busy = true
	draft := sess.Draft
	w.mu.Unlock()

	var res *lifecycle.CreateResult
	attrs := tracing.ClanAttrs(guildID, "", draft.Info.Tag, userID)
	err = tracing.Run(ctx, w.tracer, tracing.SpanConfirmDraft, attrs, func(ctx context.Context) error {
		var err error
		res, err = w.committer.Create(ctx, lifecycle.CreateRequest{
			GuildID:   guildID,
			ActorID:   userID,
			Info:      draft.Info,
			Leader:    draft.Leader,
			Roster:    draft.Roster,
			EmblemURL: draft.EmblemURL,
		})
		return err
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	sess.busy = false
	if res != nil && res.RoleCreated {
		w.store.Discard(ctx, sess)
	}
	return res, err
}
