// Package profile reads user profiles from the platform's profiles table.
package profile

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

// Attribute is a profile column that ListByAttribute may filter on.
type Attribute string

const (
	AttrRole   Attribute = "role"
	AttrCity   Attribute = "city"
	AttrTaluka Attribute = "taluka"
)

func (a Attribute) Valid() bool {
	switch a {
	case AttrRole, AttrCity, AttrTaluka:
		return true
	}
	return false
}

const profileColumns = `id, email, COALESCE(full_name, ''), role, COALESCE(city, ''), COALESCE(taluka, ''), created_at`

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rbac.ErrNotFound
	}
	if err != nil {
		return nil, rbac.WrapStore("get profile", fmt.Errorf("get profile: %w", err))
	}
	return p, nil
}

// ListByAttribute returns profiles whose attribute column equals value.
func (s *Service) ListByAttribute(ctx context.Context, attr Attribute, value string) ([]models.Profile, error) {
	if !attr.Valid() {
		return nil, fmt.Errorf("unsupported profile attribute %q", attr)
	}

	// attr is one of the constants above, never caller text.
	rows, err := s.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE `+string(attr)+` = $1 ORDER BY full_name, email`,
		value,
	)
	if err != nil {
		return nil, rbac.WrapStore("list profiles", fmt.Errorf("list profiles: %w", err))
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, rbac.WrapStore("list profiles", fmt.Errorf("scan profile: %w", err))
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, rbac.WrapStore("list profiles", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var role string
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &p.City, &p.Taluka, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	return &p, nil
}
