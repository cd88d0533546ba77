package domain

import "context"

// Filter selects clans. Zero-valued fields are ignored.
type Filter struct {
	ID           string
	GuildID      string
	LeaderChatID string
	RoleID       string
	Status       Status

	// ExcludeID drops one clan from the result, used when re-validating
	// a clan against everyone else.
	ExcludeID string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Info              *Info
	Leader            *Identity
	Roster            *Roster
	RoleID            *string
	RegistryMessageID *string
	LogMessageID      *string
	EmblemURL         *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Info == nil && p.Leader == nil && p.Roster == nil && p.RoleID == nil &&
		p.RegistryMessageID == nil && p.LogMessageID == nil && p.EmblemURL == nil
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Repository persists clans. Implementations enforce case-insensitive
// uniqueness of tag and name per guild and report violations as
// *IntegrityError.
type Repository interface {
	// Find returns every clan matching f, ordered by creation time.
	Find(ctx context.Context, f Filter) ([]*Clan, error)

	// FindOne returns the first match or *ClanNotFoundError.
	FindOne(ctx context.Context, f Filter) (*Clan, error)

	// Insert stores a new clan.
	Insert(ctx context.Context, c *Clan) error

	// Update applies p to the clan with the given id. Returns
	// *ClanNotFoundError when it does not exist.
	Update(ctx context.Context, id string, p Patch) error

	// Delete removes the clan. Returns *ClanNotFoundError when it does
	// not exist.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the repository.
	Close() error
}
