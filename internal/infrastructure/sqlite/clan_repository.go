package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ncruces/go-sqlite3"

	"github.com/zjrosen/clanbot/internal/clan/domain"
)

// clanRepository implements domain.Repository on SQLite.
type clanRepository struct {
	db *sql.DB
}

func newClanRepository(db *sql.DB) *clanRepository {
	return &clanRepository{db: db}
}

// Ensure clanRepository implements domain.Repository.
var _ domain.Repository = (*clanRepository)(nil)

const clanColumns = `id, guild_id, tag, name, description, color, server,
	leader_nickname, leader_game_id, leader_chat_id, roster,
	role_id, registry_message_id, log_message_id, emblem_url,
	status, created_by, created_at, updated_at`

func scanClan(scanner interface{ Scan(...any) error }) (*ClanModel, error) {
	var m ClanModel
	err := scanner.Scan(
		&m.ID, &m.GuildID, &m.Tag, &m.Name, &m.Description, &m.Color, &m.Server,
		&m.LeaderNickname, &m.LeaderGameID, &m.LeaderChatID, &m.Roster,
		&m.RoleID, &m.RegistryMessageID, &m.LogMessageID, &m.EmblemURL,
		&m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	return &m, err
}

func whereClause(f domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v string) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.ID != "" {
		add("id = ?", f.ID)
	}
	if f.GuildID != "" {
		add("guild_id = ?", f.GuildID)
	}
	if f.LeaderChatID != "" {
		add("leader_chat_id = ?", f.LeaderChatID)
	}
	if f.RoleID != "" {
		add("role_id = ?", f.RoleID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.ExcludeID != "" {
		add("id <> ?", f.ExcludeID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Find returns every clan matching f, oldest first.
func (r *clanRepository) Find(ctx context.Context, f domain.Filter) ([]*domain.Clan, error) {
	where, args := whereClause(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+clanColumns+` FROM clans`+where+` ORDER BY created_at ASC, rowid ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clans []*domain.Clan
	for rows.Next() {
		m, err := scanClan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clan row: %w", err)
		}
		c, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		clans = append(clans, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clan rows: %w", err)
	}
	return clans, nil
}

// FindOne returns the oldest match or *domain.ClanNotFoundError.
func (r *clanRepository) FindOne(ctx context.Context, f domain.Filter) (*domain.Clan, error) {
	where, args := whereClause(f)
	row := r.db.QueryRowContext(ctx, `SELECT `+clanColumns+` FROM clans`+where+` ORDER BY created_at ASC, rowid ASC LIMIT 1`, args...)
	m, err := scanClan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ClanNotFoundError{Key: filterKey(f)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find clan: %w", err)
	}
	return m.toDomain()
}

// Insert stores a new clan. Tag or name collisions within the guild are
// reported as *domain.IntegrityError.
func (r *clanRepository) Insert(ctx context.Context, c *domain.Clan) error {
	m, err := toClanModel(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO clans (`+clanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.GuildID, m.Tag, m.Name, m.Description, m.Color, m.Server,
		m.LeaderNickname, m.LeaderGameID, m.LeaderChatID, m.Roster,
		m.RoleID, m.RegistryMessageID, m.LogMessageID, m.EmblemURL,
		m.Status, m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if ie := asIntegrityError(err); ie != nil {
			return ie
		}
		return fmt.Errorf("failed to insert clan: %w", err)
	}
	return nil
}

// Update applies p to the clan with the given id.
func (r *clanRepository) Update(ctx context.Context, id string, p domain.Patch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Info != nil {
		set("tag", p.Info.Tag)
		set("name", p.Info.Name)
		set("description", p.Info.Description)
		set("color", p.Info.Color)
		set("server", p.Info.Server)
	}
	if p.Leader != nil {
		set("leader_nickname", p.Leader.Nickname)
		set("leader_game_id", p.Leader.GameID)
		set("leader_chat_id", p.Leader.ChatID)
	}
	if p.Roster != nil {
		roster, err := encodeRoster(*p.Roster)
		if err != nil {
			return err
		}
		set("roster", roster)
	}
	if p.RoleID != nil {
		set("role_id", nullable(*p.RoleID))
	}
	if p.RegistryMessageID != nil {
		set("registry_message_id", nullable(*p.RegistryMessageID))
	}
	if p.LogMessageID != nil {
		set("log_message_id", nullable(*p.LogMessageID))
	}
	if p.EmblemURL != nil {
		set("emblem_url", nullable(*p.EmblemURL))
	}
	set("updated_at", time.Now().Unix())
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, `UPDATE clans SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if ie := asIntegrityError(err); ie != nil {
			return ie
		}
		return fmt.Errorf("failed to update clan: %w", err)
	}
	return requireAffected(result, id)
}

// Delete removes the clan row.
func (r *clanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clan: %w", err)
	}
	return requireAffected(result, id)
}

// Close is a no-op; the connection is owned by DB.
func (r *clanRepository) Close() error {
	return nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return &domain.ClanNotFoundError{Key: id}
	}
	return nil
}

func filterKey(f domain.Filter) string {
	switch {
	case f.ID != "":
		return f.ID
	case f.RoleID != "":
		return "role " + f.RoleID
	case f.LeaderChatID != "":
		return "leader " + f.LeaderChatID
	default:
		return "guild " + f.GuildID
	}
}

// asIntegrityError maps a UNIQUE constraint failure onto the field whose
// index was hit.
func asIntegrityError(err error) *domain.IntegrityError {
	if !errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) && !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil
	}
	msg := err.Error()
	field := ""
	switch {
	case strings.Contains(msg, "clans.tag"), strings.Contains(msg, "idx_clans_guild_tag"):
		field = "tag"
	case strings.Contains(msg, "clans.name"), strings.Contains(msg, "idx_clans_guild_name"):
		field = "name"
	}
	return &domain.IntegrityError{Field: field, Err: err}
}
