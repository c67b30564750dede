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
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

type DepositRepo struct {
	pool *pgxpool.Pool
}

type DepositConfirmation struct {
	Transaction      model.Transaction
	Balance          decimal.Decimal
	// AlreadyCompleted is set when the deposit had been confirmed before.
	AlreadyCompleted bool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// CreatePending records a deposit request. A taken reference yields
// ErrReferenceConflict so the caller can draw a new one.
func (r *DepositRepo) CreatePending(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, ErrNoPool
	}
	reference = strings.TrimSpace(reference)
	if reference == "" || !amount.IsPositive() {
		return model.Transaction{}, fmt.Errorf("invalid deposit payload")
	}

	txn, err := scanTransactionRow(r.pool.QueryRow(ctx, `
INSERT INTO transactions (user_id, amount, type, reference, status, created_at)
VALUES ($1, $2::numeric, $3, $4, $5, NOW())
RETURNING`+transactionColumns,
		userID,
		amount.StringFixed(2),
		string(enums.TransactionTypeDeposit),
		reference,
		string(enums.TransactionStatusPending),
	))
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return model.Transaction{}, ErrReferenceConflict
		case pgNumericOverflow:
			return model.Transaction{}, ErrAmountOverflow
		}
		return model.Transaction{}, fmt.Errorf("insert deposit: %w", err)
	}
	return txn, nil
}

func (r *DepositRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	if r.pool == nil {
		return false, ErrNoPool
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM transactions WHERE reference = $1)
`, strings.TrimSpace(reference)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check deposit reference: %w", err)
	}
	return exists, nil
}

func (r *DepositRepo) GetByReference(ctx context.Context, reference string) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, ErrNoPool
	}

	txn, err := scanTransactionRow(r.pool.QueryRow(ctx, `
SELECT`+transactionColumns+`
FROM transactions
WHERE reference = $1
  AND type = 'deposit'
`, strings.TrimSpace(reference)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, ErrDepositNotFound
		}
		return model.Transaction{}, fmt.Errorf("get deposit: %w", err)
	}
	return txn, nil
}

// AttachReceipt stores the receipt object key on the user's own pending deposit.
func (r *DepositRepo) AttachReceipt(ctx context.Context, userID uuid.UUID, reference, key string) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, ErrNoPool
	}

	txn, err := scanTransactionRow(r.pool.QueryRow(ctx, `
UPDATE transactions
SET receipt_key = $3
WHERE reference = $2
  AND user_id = $1
  AND type = 'deposit'
  AND status = 'pending'
RETURNING`+transactionColumns, userID, strings.TrimSpace(reference), key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, ErrDepositNotFound
		}
		return model.Transaction{}, fmt.Errorf("attach receipt: %w", err)
	}
	return txn, nil
}

// Confirm marks a pending deposit completed and credits the wallet in the
// same transaction. Confirming twice credits once.
func (r *DepositRepo) Confirm(ctx context.Context, reference string, now time.Time) (DepositConfirmation, error) {
	if r.pool == nil {
		return DepositConfirmation{}, ErrNoPool
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out DepositConfirmation
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		txn, err := r.lockByReferenceTx(txCtx, tx, reference)
		if err != nil {
			return err
		}

		switch txn.Status {
		case enums.TransactionStatusCompleted:
			balance, err := walletBalanceTx(txCtx, tx, txn.UserID)
			if err != nil {
				return err
			}
			out = DepositConfirmation{Transaction: txn, Balance: balance, AlreadyCompleted: true}
			return nil
		case enums.TransactionStatusPending:
		default:
			return ErrDepositNotPending
		}

		var balanceRaw string
		if err := tx.QueryRow(txCtx, `
INSERT INTO wallets (user_id, balance, created_at)
VALUES ($1, $2::numeric, NOW())
ON CONFLICT (user_id) DO UPDATE
SET balance = wallets.balance + EXCLUDED.balance
RETURNING balance::text
`, txn.UserID, txn.Amount.StringFixed(2)).Scan(&balanceRaw); err != nil {
			if pgErrorCode(err) == pgNumericOverflow {
				return ErrAmountOverflow
			}
			return fmt.Errorf("credit wallet: %w", err)
		}
		balance, err := parseNumeric(balanceRaw)
		if err != nil {
			return fmt.Errorf("parse wallet balance: %w", err)
		}

		updated, err := r.resolveTx(txCtx, tx, txn.ID, enums.TransactionStatusCompleted, now)
		if err != nil {
			return err
		}

		out = DepositConfirmation{Transaction: updated, Balance: balance}
		return nil
	})
	if err != nil {
		return DepositConfirmation{}, err
	}
	return out, nil
}

// Reject marks a pending deposit failed without touching the wallet.
func (r *DepositRepo) Reject(ctx context.Context, reference string, now time.Time) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, ErrNoPool
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out model.Transaction
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		txn, err := r.lockByReferenceTx(txCtx, tx, reference)
		if err != nil {
			return err
		}
		if txn.Status == enums.TransactionStatusFailed {
			out = txn
			return nil
		}
		if txn.Status != enums.TransactionStatusPending {
			return ErrDepositNotPending
		}
		out, err = r.resolveTx(txCtx, tx, txn.ID, enums.TransactionStatusFailed, now)
		return err
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return out, nil
}

func (r *DepositRepo) ListPending(ctx context.Context, limit int) ([]model.Transaction, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+transactionColumns+`
FROM transactions
WHERE type = 'deposit'
  AND status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	return collectTransactions(rows)
}

// ExpirePending fails every pending deposit created before cutoff.
func (r *DepositRepo) ExpirePending(ctx context.Context, cutoff, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, ErrNoPool
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE transactions
SET status = 'failed', resolved_at = $2
WHERE type = 'deposit'
  AND status = 'pending'
  AND created_at < $1
`, cutoff.UTC(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire pending deposits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *DepositRepo) lockByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (model.Transaction, error) {
	txn, err := scanTransactionRow(tx.QueryRow(ctx, `
SELECT`+transactionColumns+`
FROM transactions
WHERE reference = $1
  AND type = 'deposit'
FOR UPDATE
`, strings.TrimSpace(reference)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, ErrDepositNotFound
		}
		return model.Transaction{}, fmt.Errorf("lock deposit: %w", err)
	}
	return txn, nil
}

func (r *DepositRepo) resolveTx(ctx context.Context, tx pgx.Tx, id int64, status enums.TransactionStatus, now time.Time) (model.Transaction, error) {
	txn, err := scanTransactionRow(tx.QueryRow(ctx, `
UPDATE transactions
SET status = $2, resolved_at = $3
WHERE id = $1
RETURNING`+transactionColumns, id, string(status), now.UTC()))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("resolve deposit: %w", err)
	}
	return txn, nil
}

func walletBalanceTx(ctx context.Context, q querier, userID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	if err := q.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE user_id = $1`, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("load wallet balance: %w", err)
	}
	return parseNumeric(raw)
}
