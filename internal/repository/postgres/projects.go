package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

const projectColumns = `id, team_id, name, description, created_at, updated_at`

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return repository.ErrInvalidArgument
	}
	const query = `INSERT INTO projects (id, team_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, project.ID, project.TeamID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)
	return mapError(err)
}

// GetProjectByID fetches a project.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	project, err := scanProject(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		return nil, lookupError(err)
	}
	return project, nil
}

// ListProjectsByTeams returns projects owned by any of the teams, newest first.
func (r *Repository) ListProjectsByTeams(ctx context.Context, teamIDs []string) ([]domain.Project, error) {
	if len(teamIDs) == 0 {
		return []domain.Project{}, nil
	}
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE team_id = ANY($1::text[]::uuid[])
		ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, teamIDs)
	if err != nil {
		return nil, lookupError(err)
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// UpdateProject overwrites project metadata.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return repository.ErrInvalidArgument
	}
	const query = `UPDATE projects SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.Description, project.UpdatedAt)
	if err != nil {
		return lookupError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProject locks the project row, removes its tasks and then the
// project in a single transaction. Task writes hold a share lock on the same
// row, so they either commit before the cascade or observe the project gone.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) (int, error) {
	removed := 0
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&id); err != nil {
			return lookupError(err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
		if err != nil {
			return err
		}
		removed = int(tag.RowsAffected())
		if _, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// lockProject takes a share lock on the parent project for the rest of tx.
func lockProject(ctx context.Context, tx pgx.Tx, projectID string) error {
	var id string
	if err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR SHARE`, projectID).Scan(&id); err != nil {
		return lookupError(err)
	}
	return nil
}
