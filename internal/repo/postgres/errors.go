package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrNoPool              = errors.New("postgres pool is nil")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrReferenceConflict   = errors.New("deposit reference already exists")
	ErrDepositNotFound     = errors.New("deposit not found")
	ErrDepositNotPending   = errors.New("deposit is not pending")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrTotalNotPositive    = errors.New("computed total is not positive")
	ErrAmountOverflow      = errors.New("amount exceeds numeric precision")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgNumericOverflow = "22003"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// parseNumeric reads a NUMERIC selected as ::text.
func parseNumeric(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
