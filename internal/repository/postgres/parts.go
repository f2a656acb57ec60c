package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

const partColumns = `id, team_id, name, part_number, category, quantity, low_stock_threshold, created_at, updated_at`

// CreatePart inserts a part.
func (r *Repository) CreatePart(ctx context.Context, part *domain.Part) error {
	if part == nil {
		return repository.ErrInvalidArgument
	}
	query := `INSERT INTO parts (` + partColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		part.ID,
		part.TeamID,
		part.Name,
		part.PartNumber,
		part.Category,
		part.Quantity,
		part.LowStockThreshold,
		part.CreatedAt,
		part.UpdatedAt,
	)
	return mapError(err)
}

// GetPartByID fetches a part.
func (r *Repository) GetPartByID(ctx context.Context, partID string) (*domain.Part, error) {
	query := `SELECT ` + partColumns + ` FROM parts WHERE id = $1`
	part, err := scanPart(r.pool.QueryRow(ctx, query, partID))
	if err != nil {
		return nil, lookupError(err)
	}
	return part, nil
}

// UpdatePart overwrites the mutable fields of a part.
func (r *Repository) UpdatePart(ctx context.Context, part *domain.Part) error {
	if part == nil {
		return repository.ErrInvalidArgument
	}
	const query = `UPDATE parts
		SET name = $2, part_number = $3, category = $4, quantity = $5, low_stock_threshold = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		part.ID,
		part.Name,
		part.PartNumber,
		part.Category,
		part.Quantity,
		part.LowStockThreshold,
		part.UpdatedAt,
	)
	if err != nil {
		return lookupError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeletePart removes a part, reporting whether a row was deleted.
func (r *Repository) DeletePart(ctx context.Context, partID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM parts WHERE id = $1`, partID)
	if err != nil {
		if lookupError(err) == repository.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListParts runs a keyset scan over a team's parts.
func (r *Repository) ListParts(ctx context.Context, q domain.ListQuery) ([]domain.Part, error) {
	cmp, dir := keysetClause(q.Descending)
	query := fmt.Sprintf(`SELECT %s FROM parts
		WHERE team_id = $1
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR name ILIKE $3 ESCAPE '\' OR part_number ILIKE $3 ESCAPE '\')
		  AND ($4::timestamptz IS NULL OR (created_at, id) %s ($4::timestamptz, $5::uuid))
		ORDER BY created_at %s, id %s
		LIMIT $6`, partColumns, cmp, dir, dir)

	afterAt, afterID := afterArgs(q.After)
	rows, err := r.pool.Query(ctx, query, q.Scope, q.Category, likePattern(q.Search), afterAt, afterID, limitArg(q.Limit))
	if err != nil {
		return nil, lookupError(err)
	}
	defer rows.Close()

	parts := make([]domain.Part, 0)
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, *part)
	}
	return parts, rows.Err()
}

// ListAllParts returns every part of a team in creation order.
func (r *Repository) ListAllParts(ctx context.Context, teamID string) ([]domain.Part, error) {
	return r.ListParts(ctx, domain.ListQuery{Scope: teamID})
}

func scanPart(row pgx.Row) (*domain.Part, error) {
	var p domain.Part
	if err := row.Scan(&p.ID, &p.TeamID, &p.Name, &p.PartNumber, &p.Category, &p.Quantity, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
