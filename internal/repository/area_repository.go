package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/area-service/internal/domain"
)

// AreaRepository defines persistence access for areas. Every lookup is scoped
// to the owner so one user can never reach another user's areas.
type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) error
	Update(ctx context.Context, area *domain.Area) error
	Delete(ctx context.Context, id, ownerID string) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Area, error)
	// ListByOwner returns one page, newest first, and the owner's total count.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Area, int64, error)
}

type areaRepository struct {
	pool *pgxpool.Pool
}

// NewAreaRepository returns a Postgres-backed implementation.
func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

func (r *areaRepository) Create(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (id, owner_id, name, category, location, location_point, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		area.ID,
		area.OwnerID,
		area.Name,
		int16(area.Category),
		area.Location,
		locationPoint(area),
		area.CreatedAt,
		area.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *areaRepository) Update(ctx context.Context, area *domain.Area) error {
	const query = `
        UPDATE areas SET name=$1, category=$2, location=$3, location_point=$4, updated_at=$5
        WHERE id=$6 AND owner_id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		area.Name,
		int16(area.Category),
		area.Location,
		locationPoint(area),
		area.UpdatedAt,
		area.ID,
		area.OwnerID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *areaRepository) Delete(ctx context.Context, id, ownerID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM areas WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *areaRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Area, error) {
	const query = `
        SELECT id, owner_id, name, category, location, location_point, created_at, updated_at
        FROM areas WHERE id=$1 AND owner_id=$2`

	var (
		area     domain.Area
		category int16
	)
	if err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&area.ID,
		&area.OwnerID,
		&area.Name,
		&category,
		&area.Location,
		&area.LocationPoint,
		&area.CreatedAt,
		&area.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	area.Category = domain.AreaCategory(category)
	return &area, nil
}

func (r *areaRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Area, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM areas WHERE owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, mapPgError(err)
	}

	const query = `
        SELECT id, owner_id, name, category, location, location_point, created_at, updated_at
        FROM areas WHERE owner_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	areas := make([]domain.Area, 0, limit)
	for rows.Next() {
		var (
			area     domain.Area
			category int16
		)
		if err := rows.Scan(
			&area.ID,
			&area.OwnerID,
			&area.Name,
			&category,
			&area.Location,
			&area.LocationPoint,
			&area.CreatedAt,
			&area.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		area.Category = domain.AreaCategory(category)
		areas = append(areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return areas, total, nil
}

func locationPoint(area *domain.Area) []float64 {
	if area.LocationPoint == nil {
		return []float64{}
	}
	return area.LocationPoint
}
