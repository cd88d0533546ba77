// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

// Clan lifecycle events.
const (
	ClanCreated       EventType = "clan.created"
	ClanEdited        EventType = "clan.edited"
	MemberJoined      EventType = "clan.member_joined"
	MemberLeft        EventType = "clan.member_left"
	LeaderChanged     EventType = "clan.leader_changed"
	ClanDissolved     EventType = "clan.dissolved"
	SessionExpired    EventType = "session.expired"
	StateFileReloaded EventType = "state.reloaded"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
