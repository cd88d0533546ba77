// Package registration runs the guided clan registration: a per-user
// session that walks basic info, leader, roster and emblem steps before
// handing a complete draft to the lifecycle manager.
package registration

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zjrosen/clanbot/internal/cachemanager"
	"github.com/zjrosen/clanbot/internal/clan/domain"
	"github.com/zjrosen/clanbot/internal/lifecycle"
	"github.com/zjrosen/clanbot/internal/log"
	"github.com/zjrosen/clanbot/internal/pubsub"
)

// Step is a registration step.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepLeaderInfo
	StepRoster
	StepEmblemWait
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic_info"
	case StepLeaderInfo:
		return "leader_info"
	case StepRoster:
		return "roster"
	case StepEmblemWait:
		return "emblem_wait"
	case StepConfirm:
		return "confirm"
	}
	return "unknown"
}

// Draft is the clan being assembled.
type Draft struct {
	Info      domain.Info
	Leader    domain.Identity
	Roster    domain.Roster
	EmblemURL string
}

// Session is one user's registration in one guild.
type Session struct {
	GuildID string
	UserID  string
	Step    Step
	// Editing is set while a step is revisited from the confirmation.
	Editing bool
	Draft   Draft
	Started time.Time

	// busy marks a step that is waiting on the emblem or committing.
	busy bool
	// stop ends a running emblem wait.
	stop context.CancelFunc
	// closed distinguishes an explicit discard from an expiry.
	closed *atomic.Bool
}

func sessionKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// Store holds open sessions. Sessions expire after ttl without activity.
type Store struct {
	cache  *cachemanager.InMemoryCacheManager[*Session]
	ttl    time.Duration
	events *pubsub.Broker[lifecycle.Event]
}

// NewStore creates a session store. Expired sessions are reported on
// events as pubsub.SessionExpired when events is non-nil.
func NewStore(ttl time.Duration, events *pubsub.Broker[lifecycle.Event]) *Store {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	s := &Store{
		cache:  cachemanager.NewInMemoryCacheManager[*Session]("registration-session", ttl, cleanup),
		ttl:    ttl,
		events: events,
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

func (s *Store) evicted(key string, sess *Session) {
	if sess.closed.Load() {
		return
	}
	log.Info(log.CatSession, "Registration session expired", "guild_id", sess.GuildID, "user_id", sess.UserID, "step", sess.Step.String())
	if s.events != nil {
		s.events.Publish(pubsub.SessionExpired, lifecycle.Event{GuildID: sess.GuildID, ActorID: sess.UserID})
	}
}

// Get returns the open session and refreshes its expiry.
func (s *Store) Get(ctx context.Context, guildID, userID string) (*Session, bool) {
	sess, ok := s.cache.GetWithRefresh(ctx, sessionKey(guildID, userID), s.ttl)
	if !ok || sess.closed.Load() {
		return nil, false
	}
	return sess, true
}

// Put stores sess, replacing any session of the same user.
func (s *Store) Put(ctx context.Context, sess *Session) {
	if sess.closed == nil {
		sess.closed = &atomic.Bool{}
	}
	s.cache.Set(ctx, sessionKey(sess.GuildID, sess.UserID), sess, s.ttl)
}

// Discard closes and removes a session.
func (s *Store) Discard(ctx context.Context, sess *Session) {
	sess.closed.Store(true)
	_ = s.cache.Delete(ctx, sessionKey(sess.GuildID, sess.UserID))
}

// Len returns the number of stored sessions, including expired ones not
// yet swept.
func (s *Store) Len() int {
	return s.cache.Count()
}
