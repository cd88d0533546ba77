package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// Builder accumulates clans and inserts them into a repository.
type Builder struct {
	t     *testing.T
	repo  domain.Repository
	clans []*domain.Clan
}

// NewBuilder creates a builder for the given repository.
func NewBuilder(t *testing.T, repo domain.Repository) *Builder {
	t.Helper()
	return &Builder{t: t, repo: repo}
}

// WithClan adds a clan with optional configuration.
func (b *Builder) WithClan(id string, opts ...ClanOption) *Builder {
	b.clans = append(b.clans, NewClan(id, opts...))
	return b
}

// Build inserts all accumulated clans and returns them in insertion order.
func (b *Builder) Build() []*domain.Clan {
	b.t.Helper()
	for _, c := range b.clans {
		require.NoError(b.t, b.repo.Insert(context.Background(), c), "inserting clan %s", c.ID())
	}
	return b.clans
}
