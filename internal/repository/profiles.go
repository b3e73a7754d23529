package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/easyshop/internal/domain"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Load(ctx context.Context, userID int64) (*domain.Profile, error) {
	query := `SELECT user_id, first_name, last_name, phone, email, address, city, state, zip
	          FROM profiles WHERE user_id = $1`

	var p domain.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.City,
		&p.State,
		&p.Zip,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("profiles.load", "user", userID, domain.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (user_id, first_name, last_name, phone, email, address, city, state, zip)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (user_id) DO UPDATE SET
	              first_name = EXCLUDED.first_name,
	              last_name  = EXCLUDED.last_name,
	              phone      = EXCLUDED.phone,
	              email      = EXCLUDED.email,
	              address    = EXCLUDED.address,
	              city       = EXCLUDED.city,
	              state      = EXCLUDED.state,
	              zip        = EXCLUDED.zip`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID,
		p.FirstName,
		p.LastName,
		p.Phone,
		p.Email,
		p.Address,
		p.City,
		p.State,
		p.Zip)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
