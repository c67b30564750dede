package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Delete removes every row owned by the user in dependency order inside one
// transaction and returns the receipt object keys that referenced them.
func (r *AccountRepo) Delete(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}

	var receiptKeys []string
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(txCtx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user: %w", err)
		}

		rows, err := tx.Query(txCtx, `
SELECT receipt_key
FROM transactions
WHERE user_id = $1
  AND receipt_key IS NOT NULL
`, userID)
		if err != nil {
			return fmt.Errorf("list receipt keys: %w", err)
		}
		keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect receipt keys: %w", err)
		}

		steps := []struct {
			name string
			sql  string
		}{
			{name: "transactions", sql: `DELETE FROM transactions WHERE user_id = $1`},
			{name: "orders", sql: `DELETE FROM orders WHERE user_id = $1`},
			{name: "wallet", sql: `DELETE FROM wallets WHERE user_id = $1`},
			{name: "profile", sql: `DELETE FROM profiles WHERE id = $1`},
			{name: "user", sql: `DELETE FROM users WHERE id = $1`},
		}
		for _, step := range steps {
			if _, err := tx.Exec(txCtx, step.sql, userID); err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
		}

		receiptKeys = keys
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receiptKeys, nil
}
