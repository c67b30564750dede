package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/smmshop/internal/domain/model"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	if r.pool == nil {
		return model.Profile{}, ErrNoPool
	}

	profile, err := scanProfileRow(r.pool.QueryRow(ctx, `
SELECT id, full_name, email, phone, updated_at
FROM profiles
WHERE id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// Upsert writes the editable profile fields. A missing profile row is
// recreated from the users table.
func (r *ProfileRepo) Upsert(ctx context.Context, userID uuid.UUID, fullName, phone string, now time.Time) (model.Profile, error) {
	if r.pool == nil {
		return model.Profile{}, ErrNoPool
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	profile, err := scanProfileRow(r.pool.QueryRow(ctx, `
INSERT INTO profiles (id, full_name, email, phone, updated_at)
SELECT u.id, $2, u.email, $3, $4
FROM users u
WHERE u.id = $1
ON CONFLICT (id) DO UPDATE
SET full_name = EXCLUDED.full_name,
	phone = EXCLUDED.phone,
	updated_at = EXCLUDED.updated_at
RETURNING id, full_name, email, phone, updated_at
`, userID, strings.TrimSpace(fullName), strings.TrimSpace(phone), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrUserNotFound
		}
		return model.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

func scanProfileRow(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.UpdatedAt); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}
