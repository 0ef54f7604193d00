package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

const assignmentColumns = `user_id, role, assigned_cities, assigned_talukas, assigned_by, version, updated_at`

// PostgresStore keeps assignments in the region_assignments table. Each
// method is a single statement, so every write is atomic per key.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Assignment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM region_assignments WHERE user_id = $1 AND role = $2`,
		userID, string(role),
	)
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rbac.ErrNotFound
	}
	if err != nil {
		return nil, rbac.WrapStore("get", fmt.Errorf("get assignment: %w", err))
	}
	return a, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, a models.Assignment, expectedVersion *int64) (*models.Assignment, error) {
	cities := nonNilSlice(a.AssignedCities)
	talukas := nonNilSlice(a.AssignedTalukas)

	var row pgx.Row
	switch {
	case expectedVersion == nil:
		row = s.db.QueryRow(ctx,
			`INSERT INTO region_assignments (user_id, role, assigned_cities, assigned_talukas, assigned_by, version, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 1, now())
			 ON CONFLICT (user_id, role) DO UPDATE SET
			     assigned_cities = EXCLUDED.assigned_cities,
			     assigned_talukas = EXCLUDED.assigned_talukas,
			     assigned_by = EXCLUDED.assigned_by,
			     version = region_assignments.version + 1,
			     updated_at = now()
			 RETURNING `+assignmentColumns,
			a.UserID, string(a.Role), cities, talukas, a.AssignedBy,
		)
	case *expectedVersion == 0:
		row = s.db.QueryRow(ctx,
			`INSERT INTO region_assignments (user_id, role, assigned_cities, assigned_talukas, assigned_by, version, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 1, now())
			 ON CONFLICT (user_id, role) DO NOTHING
			 RETURNING `+assignmentColumns,
			a.UserID, string(a.Role), cities, talukas, a.AssignedBy,
		)
	default:
		row = s.db.QueryRow(ctx,
			`UPDATE region_assignments SET
			     assigned_cities = $3,
			     assigned_talukas = $4,
			     assigned_by = $5,
			     version = version + 1,
			     updated_at = now()
			 WHERE user_id = $1 AND role = $2 AND version = $6
			 RETURNING `+assignmentColumns,
			a.UserID, string(a.Role), cities, talukas, a.AssignedBy, *expectedVersion,
		)
	}

	out, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rbac.ErrConflict
	}
	if err != nil {
		return nil, rbac.WrapStore("upsert", fmt.Errorf("upsert assignment: %w", err))
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID uuid.UUID, role models.Role) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM region_assignments WHERE user_id = $1 AND role = $2`,
		userID, string(role),
	)
	if err != nil {
		return rbac.WrapStore("delete", fmt.Errorf("delete assignment: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByRole(ctx context.Context, role models.Role) ([]models.Assignment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+assignmentColumns+` FROM region_assignments WHERE role = $1 ORDER BY user_id`,
		string(role),
	)
	if err != nil {
		return nil, rbac.WrapStore("list", fmt.Errorf("list assignments: %w", err))
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, rbac.WrapStore("list", fmt.Errorf("scan assignment: %w", err))
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, rbac.WrapStore("list", err)
	}
	return out, nil
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	var role string
	if err := row.Scan(&a.UserID, &role, &a.AssignedCities, &a.AssignedTalukas, &a.AssignedBy, &a.Version, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	a.AssignedCities = nonNilSlice(a.AssignedCities)
	a.AssignedTalukas = nonNilSlice(a.AssignedTalukas)
	return &a, nil
}

func nonNilSlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
