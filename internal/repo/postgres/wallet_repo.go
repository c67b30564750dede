package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/smmshop/internal/domain/model"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func (r *WalletRepo) GetByUser(ctx context.Context, userID uuid.UUID) (model.Wallet, error) {
	if r.pool == nil {
		return model.Wallet{}, ErrNoPool
	}

	var (
		w          model.Wallet
		balanceRaw string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, balance::text, created_at
FROM wallets
WHERE user_id = $1
`, userID).Scan(&w.ID, &w.UserID, &balanceRaw, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Wallet{}, ErrWalletNotFound
		}
		return model.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}

	w.Balance, err = parseNumeric(balanceRaw)
	if err != nil {
		return model.Wallet{}, fmt.Errorf("parse wallet balance: %w", err)
	}
	return w, nil
}
