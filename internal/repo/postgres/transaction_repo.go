package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

const transactionColumns = `
	id,
	user_id,
	order_id,
	amount::text,
	type,
	COALESCE(reference, ''),
	status,
	COALESCE(receipt_key, ''),
	created_at,
	resolved_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// ListByUser returns the newest transactions first; limit <= 0 returns all.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+transactionColumns+`
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	defer rows.Close()

	out := make([]model.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransactionRow(row pgx.Row) (model.Transaction, error) {
	var (
		txn       model.Transaction
		amountRaw string
		txnType   string
		status    string
	)
	if err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.OrderID,
		&amountRaw,
		&txnType,
		&txn.Reference,
		&status,
		&txn.ReceiptKey,
		&txn.CreatedAt,
		&txn.ResolvedAt,
	); err != nil {
		return model.Transaction{}, err
	}
	amount, err := parseNumeric(amountRaw)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.Amount = amount
	txn.Type = enums.TransactionType(txnType)
	txn.Status = enums.TransactionStatus(status)
	return txn, nil
}
