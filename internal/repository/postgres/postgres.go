package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.TeamRepository    = (*Repository)(nil)
	_ repository.ProjectRepository = (*Repository)(nil)
	_ repository.TaskRepository    = (*Repository)(nil)
	_ repository.PartRepository    = (*Repository)(nil)
	_ repository.Store             = (*Repository)(nil)
)

// UpsertUser records the latest identity-provider profile.
func (r *Repository) UpsertUser(ctx context.Context, user *domain.User) error {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO users (id, name, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, updated_at = EXCLUDED.updated_at`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.AvatarURL, nilTime(user.UpdatedAt))
	return mapError(err)
}

// ListUsersByID returns known profiles for the given ids.
func (r *Repository) ListUsersByID(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	const query = `SELECT id, name, avatar_url, updated_at FROM users WHERE id = ANY($1::text[])`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, len(ids))
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.AvatarURL, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateTeam inserts a team and its owner membership in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team, owner *domain.TeamMember) error {
	if team == nil || owner == nil {
		return repository.ErrInvalidArgument
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		const teamInsert = `INSERT INTO teams (id, name, leader_id, created_at) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, teamInsert, team.ID, team.Name, team.LeaderID, team.CreatedAt); err != nil {
			return mapError(err)
		}
		const memberInsert = `INSERT INTO team_members (team_id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, memberInsert, owner.TeamID, owner.UserID, owner.Role, owner.CreatedAt); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	const query = `SELECT id, name, leader_id, created_at FROM teams WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, teamID)
	var team domain.Team
	if err := row.Scan(&team.ID, &team.Name, &team.LeaderID, &team.CreatedAt); err != nil {
		return nil, lookupError(err)
	}
	return &team, nil
}

// ListTeamsByUser returns teams the user belongs to.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	const query = `SELECT t.id, t.name, t.leader_id, t.created_at
		FROM teams t
		INNER JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.LeaderID, &team.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// GetMember returns the membership of a user in a team.
func (r *Repository) GetMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	const query = `SELECT team_id, user_id, role, created_at FROM team_members WHERE team_id = $1 AND user_id = $2`
	row := r.pool.QueryRow(ctx, query, teamID, userID)
	var m domain.TeamMember
	if err := row.Scan(&m.TeamID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return nil, lookupError(err)
	}
	return &m, nil
}

// ListMembers returns team memberships ordered by join time.
func (r *Repository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	const query = `SELECT team_id, user_id, role, created_at FROM team_members
		WHERE team_id = $1 ORDER BY created_at ASC, user_id ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, lookupError(err)
	}
	defer rows.Close()

	members := make([]domain.TeamMember, 0)
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpsertMember adds a member to a team or updates their role.
func (r *Repository) UpsertMember(ctx context.Context, member *domain.TeamMember) error {
	if member == nil {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO team_members (team_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, query, member.TeamID, member.UserID, member.Role, member.CreatedAt)
	return mapError(err)
}

// DeleteMember removes a membership, reporting whether one existed.
func (r *Repository) DeleteMember(ctx context.Context, teamID, userID string) (bool, error) {
	const query = `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, teamID, userID)
	if err != nil {
		return false, lookupError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mapError converts constraint violations into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return repository.ErrNotFound
		case "23514", "22P02", "23505":
			return repository.ErrInvalidArgument
		}
	}
	return err
}

// lookupError treats a malformed identifier as a missing row.
func lookupError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return repository.ErrNotFound
	}
	return mapError(err)
}

func nilTime(t time.Time) any {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func timePtrToNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped. Empty input stays empty.
func likePattern(search string) string {
	search = strings.TrimSpace(search)
	if search == "" {
		return ""
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}

// keysetClause returns the comparison operator and sort direction for a
// (created_at, id) keyset scan.
func keysetClause(descending bool) (string, string) {
	if descending {
		return "<", "DESC"
	}
	return ">", "ASC"
}

func afterArgs(after *domain.SortKey) (any, any) {
	if after == nil {
		return nil, nil
	}
	return after.CreatedAt.UTC(), after.ID
}

func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
