package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// MemoryRepository is an in-memory domain.Repository with the same
// uniqueness guarantees as the real stores.
type MemoryRepository struct {
	mu    sync.Mutex
	order []string
	clans map[string]domain.Snapshot

	// FailNext, when set, is returned by the next mutating call.
	FailNext error

	Inserts int
	Updates int
	Deletes int
}

var _ domain.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{clans: make(map[string]domain.Snapshot)}
}

func matches(s domain.Snapshot, f domain.Filter) bool {
	switch {
	case f.ID != "" && s.ID != f.ID:
		return false
	case f.GuildID != "" && s.GuildID != f.GuildID:
		return false
	case f.LeaderChatID != "" && s.Leader.ChatID != f.LeaderChatID:
		return false
	case f.RoleID != "" && s.RoleID != f.RoleID:
		return false
	case f.Status != "" && s.Status != f.Status:
		return false
	case f.ExcludeID != "" && s.ID == f.ExcludeID:
		return false
	}
	return true
}

func (r *MemoryRepository) Find(_ context.Context, f domain.Filter) ([]*domain.Clan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Clan
	for _, id := range r.order {
		if s := r.clans[id]; matches(s, f) {
			out = append(out, domain.Reconstitute(s))
		}
	}
	return out, nil
}

func (r *MemoryRepository) FindOne(ctx context.Context, f domain.Filter) (*domain.Clan, error) {
	clans, _ := r.Find(ctx, f)
	if len(clans) == 0 {
		return nil, &domain.ClanNotFoundError{Key: f.ID + f.RoleID + f.LeaderChatID}
	}
	return clans[0], nil
}

func (r *MemoryRepository) takeFailure() error {
	err := r.FailNext
	r.FailNext = nil
	return err
}

func (r *MemoryRepository) conflict(s domain.Snapshot) error {
	for _, id := range r.order {
		o := r.clans[id]
		if o.ID == s.ID || o.GuildID != s.GuildID {
			continue
		}
		if domain.Reconstitute(o).SameTag(s.Info.Tag) {
			return &domain.IntegrityError{Field: "tag", Err: errors.New("duplicate tag")}
		}
		if domain.Reconstitute(o).SameName(s.Info.Name) {
			return &domain.IntegrityError{Field: "name", Err: errors.New("duplicate name")}
		}
	}
	return nil
}

func (r *MemoryRepository) Insert(_ context.Context, c *domain.Clan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	s := c.Snapshot()
	if _, ok := r.clans[s.ID]; ok {
		return &domain.IntegrityError{Field: "id", Err: errors.New("duplicate id")}
	}
	if err := r.conflict(s); err != nil {
		return err
	}
	r.clans[s.ID] = s
	r.order = append(r.order, s.ID)
	r.Inserts++
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, id string, p domain.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	s, ok := r.clans[id]
	if !ok {
		return &domain.ClanNotFoundError{Key: id}
	}
	c := domain.Reconstitute(s)
	c.Apply(p)
	next := c.Snapshot()
	if err := r.conflict(next); err != nil {
		return err
	}
	r.clans[id] = next
	r.Updates++
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	if _, ok := r.clans[id]; !ok {
		return &domain.ClanNotFoundError{Key: id}
	}
	delete(r.clans, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.Deletes++
	return nil
}

func (r *MemoryRepository) Close() error { return nil }

// Len returns the number of stored clans.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clans)
}
