package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

const idempotencyConstraint = "orders_user_idempotency_key"

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

type PurchaseParams struct {
	UserID         uuid.UUID
	ServiceID      int64
	Link           string
	Quantity       int
	IdempotencyKey string
	// Cost turns the service price read inside the transaction into the total.
	Cost           func(price decimal.Decimal) decimal.Decimal
}

type PurchaseRecord struct {
	Order       model.Order
	Transaction model.Transaction
	Total       decimal.Decimal
	Balance     decimal.Decimal
	Replayed    bool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// Purchase debits the wallet, creates the pending order and its purchase
// transaction atomically. The debit is conditional so the balance can never
// go negative under concurrent purchases.
func (r *PurchaseRepo) Purchase(ctx context.Context, p PurchaseParams) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, ErrNoPool
	}
	if p.Cost == nil || p.Quantity <= 0 || strings.TrimSpace(p.Link) == "" {
		return PurchaseRecord{}, fmt.Errorf("invalid purchase payload")
	}
	p.IdempotencyKey = strings.TrimSpace(p.IdempotencyKey)

	var out PurchaseRecord
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if p.IdempotencyKey != "" {
			existing, found, err := r.findReplayTx(txCtx, tx, p.UserID, p.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				out = existing
				return nil
			}
		}

		var priceRaw string
		if err := tx.QueryRow(txCtx, `SELECT price::text FROM services WHERE id = $1`, p.ServiceID).Scan(&priceRaw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrServiceNotFound
			}
			return fmt.Errorf("load service price: %w", err)
		}
		price, err := parseNumeric(priceRaw)
		if err != nil {
			return fmt.Errorf("parse service price: %w", err)
		}

		total := p.Cost(price)
		if !total.IsPositive() {
			return ErrTotalNotPositive
		}

		var balanceRaw string
		err = tx.QueryRow(txCtx, `
UPDATE wallets
SET balance = balance - $2::numeric
WHERE user_id = $1
  AND balance >= $2::numeric
RETURNING balance::text
`, p.UserID, total.StringFixed(2)).Scan(&balanceRaw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == pgCheckViolation {
				return ErrInsufficientFunds
			}
			return fmt.Errorf("debit wallet: %w", err)
		}
		balance, err := parseNumeric(balanceRaw)
		if err != nil {
			return fmt.Errorf("parse wallet balance: %w", err)
		}

		var keyArg any
		if p.IdempotencyKey != "" {
			keyArg = p.IdempotencyKey
		}
		order, err := scanOrderRow(tx.QueryRow(txCtx, `
INSERT INTO orders (user_id, service_id, link, quantity, status, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, user_id, service_id, link, quantity, status, created_at
`, p.UserID, p.ServiceID, strings.TrimSpace(p.Link), p.Quantity, string(enums.OrderStatusPending), keyArg))
		if err != nil {
			if pgErrorCode(err) == pgUniqueViolation && constraintName(err) == idempotencyConstraint {
				return ErrIdempotencyConflict
			}
			return fmt.Errorf("insert order: %w", err)
		}

		txn, err := scanTransactionRow(tx.QueryRow(txCtx, `
INSERT INTO transactions (user_id, order_id, amount, type, status, created_at, resolved_at)
VALUES ($1, $2, $3::numeric, $4, $5, NOW(), NOW())
RETURNING`+transactionColumns, p.UserID, order.ID, total.StringFixed(2),
			string(enums.TransactionTypePurchase), string(enums.TransactionStatusCompleted)))
		if err != nil {
			return fmt.Errorf("insert purchase transaction: %w", err)
		}

		out = PurchaseRecord{
			Order:       order,
			Transaction: txn,
			Total:       total,
			Balance:     balance,
		}
		return nil
	})
	if errors.Is(err, ErrIdempotencyConflict) {
		// A concurrent request with the same key committed first.
		return r.replay(ctx, p.UserID, p.IdempotencyKey)
	}
	if err != nil {
		return PurchaseRecord{}, err
	}
	return out, nil
}

func (r *PurchaseRepo) replay(ctx context.Context, userID uuid.UUID, key string) (PurchaseRecord, error) {
	var out PurchaseRecord
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		rec, found, err := r.findReplayTx(txCtx, tx, userID, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrIdempotencyConflict
		}
		out = rec
		return nil
	})
	if err != nil {
		return PurchaseRecord{}, err
	}
	return out, nil
}

func (r *PurchaseRepo) findReplayTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, key string) (PurchaseRecord, bool, error) {
	order, err := scanOrderRow(tx.QueryRow(ctx, `
SELECT id, user_id, service_id, link, quantity, status, created_at
FROM orders
WHERE user_id = $1
  AND idempotency_key = $2
`, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, false, nil
		}
		return PurchaseRecord{}, false, fmt.Errorf("lookup idempotent order: %w", err)
	}

	txn, err := scanTransactionRow(tx.QueryRow(ctx, `
SELECT`+transactionColumns+`
FROM transactions
WHERE order_id = $1
  AND type = 'purchase'
ORDER BY id ASC
LIMIT 1
`, order.ID))
	if err != nil {
		return PurchaseRecord{}, false, fmt.Errorf("lookup idempotent transaction: %w", err)
	}

	var balanceRaw string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE user_id = $1`, userID).Scan(&balanceRaw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, false, ErrWalletNotFound
		}
		return PurchaseRecord{}, false, fmt.Errorf("load wallet balance: %w", err)
	}
	balance, err := parseNumeric(balanceRaw)
	if err != nil {
		return PurchaseRecord{}, false, fmt.Errorf("parse wallet balance: %w", err)
	}

	return PurchaseRecord{
		Order:       order,
		Transaction: txn,
		Total:       txn.Amount,
		Balance:     balance,
		Replayed:    true,
	}, true, nil
}
