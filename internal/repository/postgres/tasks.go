package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

const taskColumns = `id, project_id, name, description, status, due_at, created_by, created_at, updated_at`

// CreateTask inserts a task while holding a share lock on its project.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return repository.ErrInvalidArgument
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockProject(ctx, tx, task.ProjectID); err != nil {
			return err
		}
		query := `INSERT INTO tasks (` + taskColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err := tx.Exec(ctx, query,
			task.ID,
			task.ProjectID,
			task.Name,
			task.Description,
			string(task.Status),
			timePtrToNil(task.DueAt),
			task.CreatedBy,
			task.CreatedAt,
			task.UpdatedAt,
		)
		return mapError(err)
	})
}

// GetTaskByID fetches a task.
func (r *Repository) GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		return nil, lookupError(err)
	}
	return task, nil
}

// UpdateTask overwrites a task's mutable fields. The parent project is share
// locked so the write cannot interleave with a cascade delete.
func (r *Repository) UpdateTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return repository.ErrInvalidArgument
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var projectID string
		if err := tx.QueryRow(ctx, `SELECT project_id FROM tasks WHERE id = $1`, task.ID).Scan(&projectID); err != nil {
			return lookupError(err)
		}
		if err := lockProject(ctx, tx, projectID); err != nil {
			return err
		}
		const query = `UPDATE tasks
			SET name = $3, description = $4, status = $5, due_at = $6, updated_at = $7
			WHERE id = $1 AND project_id = $2`
		tag, err := tx.Exec(ctx, query,
			task.ID,
			projectID,
			task.Name,
			task.Description,
			string(task.Status),
			timePtrToNil(task.DueAt),
			task.UpdatedAt,
		)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

// DeleteTask removes a task, reporting whether a row was deleted.
func (r *Repository) DeleteTask(ctx context.Context, taskID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		if lookupError(err) == repository.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListTasks runs a keyset scan over a project's tasks.
func (r *Repository) ListTasks(ctx context.Context, q domain.ListQuery) ([]domain.Task, error) {
	cmp, dir := keysetClause(q.Descending)
	query := fmt.Sprintf(`SELECT %s FROM tasks
		WHERE project_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR name ILIKE $3 ESCAPE '\' OR description ILIKE $3 ESCAPE '\')
		  AND ($4::timestamptz IS NULL OR (created_at, id) %s ($4::timestamptz, $5::uuid))
		ORDER BY created_at %s, id %s
		LIMIT $6`, taskColumns, cmp, dir, dir)

	afterAt, afterID := afterArgs(q.After)
	rows, err := r.pool.Query(ctx, query, q.Scope, q.Status, likePattern(q.Search), afterAt, afterID, limitArg(q.Limit))
	if err != nil {
		return nil, lookupError(err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// CountTasksByStatus groups a project's tasks by status in one aggregate read.
func (r *Repository) CountTasksByStatus(ctx context.Context, projectID string) (map[domain.TaskStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks WHERE project_id = $1 GROUP BY status`, projectID)
	if err != nil {
		return nil, lookupError(err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.TaskStatus(status)] = int(n)
	}
	return counts, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &status, &t.DueAt, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}
