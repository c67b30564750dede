package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	require.NoError(t, Migrate(dsn))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedAccount(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	user, err := NewUserRepo(pool).CreateAccount(context.Background(), NewAccount{
		Email:        fmt.Sprintf("it-%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Integration User",
	})
	require.NoError(t, err)
	return user.ID
}

func seedService(t *testing.T, pool *pgxpool.Pool, price string) int64 {
	t.Helper()
	slug := "it-" + uuid.NewString()
	_, err := NewCatalogRepo(pool).Upsert(context.Background(), []CatalogItem{{
		Slug:     slug,
		Name:     "Integration Likes",
		Platform: enums.PlatformInstagram,
		Price:    decimal.RequireFromString(price),
	}})
	require.NoError(t, err)

	var id int64
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT id FROM services WHERE slug = $1`, slug).Scan(&id))
	return id
}

func credit(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, amount string) {
	t.Helper()
	deposits := NewDepositRepo(pool)
	ref := "IT" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err := deposits.CreatePending(context.Background(), userID, decimal.RequireFromString(amount), ref)
	require.NoError(t, err)
	_, err = deposits.Confirm(context.Background(), ref, time.Now())
	require.NoError(t, err)
}

func TestIntegrationCreateAccountCreatesZeroWallet(t *testing.T) {
	pool := integrationPool(t)
	userID := seedAccount(t, pool)

	wallet, err := NewWalletRepo(pool).GetByUser(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, wallet.Balance.IsZero())

	profile, err := NewProfileRepo(pool).Get(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, "Integration User", profile.FullName)
}

func TestIntegrationConcurrentPurchasesNeverOverdraw(t *testing.T) {
	pool := integrationPool(t)
	userID := seedAccount(t, pool)
	serviceID := seedService(t, pool, "10.00")
	credit(t, pool, userID, "25.00")

	repo := NewPurchaseRepo(pool)
	cost := func(price decimal.Decimal) decimal.Decimal { return price }

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Purchase(context.Background(), PurchaseParams{
				UserID:    userID,
				ServiceID: serviceID,
				Link:      "https://instagram.com/p/abc",
				Quantity:  100,
				Cost:      cost,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected purchase error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 2, succeeded)

	wallet, err := NewWalletRepo(pool).GetByUser(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, wallet.Balance.Equal(decimal.RequireFromString("5.00")), "balance %s", wallet.Balance)

	count, err := NewOrderRepo(pool).CountByUser(context.Background(), userID, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestIntegrationPurchaseIdempotencyKeyReplays(t *testing.T) {
	pool := integrationPool(t)
	userID := seedAccount(t, pool)
	serviceID := seedService(t, pool, "3.00")
	credit(t, pool, userID, "10.00")

	repo := NewPurchaseRepo(pool)
	params := PurchaseParams{
		UserID:         userID,
		ServiceID:      serviceID,
		Link:           "https://tiktok.com/@me",
		Quantity:       100,
		IdempotencyKey: uuid.NewString(),
		Cost:           func(price decimal.Decimal) decimal.Decimal { return price },
	}

	first, err := repo.Purchase(context.Background(), params)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := repo.Purchase(context.Background(), params)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.True(t, second.Balance.Equal(decimal.RequireFromString("7.00")))
}

func TestIntegrationDepositConfirmIsIdempotent(t *testing.T) {
	pool := integrationPool(t)
	userID := seedAccount(t, pool)
	deposits := NewDepositRepo(pool)

	ref := "IT" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err := deposits.CreatePending(context.Background(), userID, decimal.RequireFromString("1000"), ref)
	require.NoError(t, err)

	_, err = deposits.CreatePending(context.Background(), userID, decimal.RequireFromString("5"), ref)
	require.ErrorIs(t, err, ErrReferenceConflict)

	first, err := deposits.Confirm(context.Background(), ref, time.Now())
	require.NoError(t, err)
	require.False(t, first.AlreadyCompleted)

	second, err := deposits.Confirm(context.Background(), ref, time.Now())
	require.NoError(t, err)
	require.True(t, second.AlreadyCompleted)
	require.True(t, second.Balance.Equal(decimal.RequireFromString("1000")))

	_, err = deposits.Reject(context.Background(), ref, time.Now())
	require.ErrorIs(t, err, ErrDepositNotPending)
}

func TestIntegrationDeleteAccountRemovesEverything(t *testing.T) {
	pool := integrationPool(t)
	userID := seedAccount(t, pool)
	serviceID := seedService(t, pool, "1.00")
	credit(t, pool, userID, "5.00")

	_, err := NewPurchaseRepo(pool).Purchase(context.Background(), PurchaseParams{
		UserID:    userID,
		ServiceID: serviceID,
		Link:      "https://x.com/me",
		Quantity:  100,
		Cost:      func(price decimal.Decimal) decimal.Decimal { return price },
	})
	require.NoError(t, err)

	_, err = NewAccountRepo(pool).Delete(context.Background(), userID)
	require.NoError(t, err)

	_, err = NewUserRepo(pool).GetByID(context.Background(), userID)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = NewWalletRepo(pool).GetByUser(context.Background(), userID)
	require.ErrorIs(t, err, ErrWalletNotFound)

	txns, err := NewTransactionRepo(pool).ListByUser(context.Background(), userID, 0)
	require.NoError(t, err)
	require.Empty(t, txns)
}
