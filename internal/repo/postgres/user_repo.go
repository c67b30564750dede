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

type UserRepo struct {
	pool *pgxpool.Pool
}

type NewAccount struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CreateAccount inserts the user, the profile and a zero wallet in one transaction.
func (r *UserRepo) CreateAccount(ctx context.Context, in NewAccount) (model.User, error) {
	if r.pool == nil {
		return model.User{}, ErrNoPool
	}

	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.PasswordHash) == "" {
		return model.User{}, fmt.Errorf("invalid account payload")
	}

	userID := uuid.New()
	var user model.User
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(txCtx, `
INSERT INTO users (id, email, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, email, password_hash, created_at, updated_at
`, userID, email, in.PasswordHash)
		created, err := scanUserRow(row)
		if err != nil {
			if pgErrorCode(err) == pgUniqueViolation {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO profiles (id, full_name, email, phone, updated_at)
VALUES ($1, $2, $3, $4, NOW())
`, userID, strings.TrimSpace(in.FullName), email, strings.TrimSpace(in.Phone)); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO wallets (user_id, balance, created_at)
VALUES ($1, 0, NOW())
`, userID); err != nil {
			return fmt.Errorf("insert wallet: %w", err)
		}

		user = created
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, ErrNoPool
	}

	user, err := scanUserRow(r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE email = $1
`, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (model.User, error) {
	if r.pool == nil {
		return model.User{}, ErrNoPool
	}

	user, err := scanUserRow(r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE id = $1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string, now time.Time) error {
	if r.pool == nil {
		return ErrNoPool
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET password_hash = $2, updated_at = $3
WHERE id = $1
`, userID, hash, now.UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUserRow(row pgx.Row) (model.User, error) {
	var user model.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
