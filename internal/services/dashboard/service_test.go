package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

type walletStub struct {
	wallet *model.Wallet
	err    error
}

func (s walletStub) GetByUser(context.Context, uuid.UUID) (model.Wallet, error) {
	if s.err != nil {
		return model.Wallet{}, s.err
	}
	if s.wallet == nil {
		return model.Wallet{}, pgrepo.ErrWalletNotFound
	}
	return *s.wallet, nil
}

type counterStub struct {
	active, total int64
}

func (s counterStub) CountByUser(_ context.Context, _ uuid.UUID, statuses []enums.OrderStatus) (int64, error) {
	if len(statuses) == 0 {
		return s.total, nil
	}
	return s.active, nil
}

type txStub struct {
	items     []model.Transaction
	lastLimit int
}

func (s *txStub) ListByUser(_ context.Context, _ uuid.UUID, limit int) ([]model.Transaction, error) {
	s.lastLimit = limit
	return s.items, nil
}

func TestSummaryZeroStateForNewAccount(t *testing.T) {
	svc := NewService(walletStub{}, counterStub{}, &txStub{})

	summary, err := svc.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.Balance.IsZero() || summary.ActiveOrders != 0 || summary.TotalOrders != 0 {
		t.Fatalf("expected zero state, got %+v", summary)
	}
	if summary.RecentTransactions == nil {
		t.Fatalf("recent transactions should be an empty list, not nil")
	}
}

func TestSummaryAggregates(t *testing.T) {
	txs := &txStub{items: []model.Transaction{{ID: 9}, {ID: 8}}}
	svc := NewService(
		walletStub{wallet: &model.Wallet{Balance: decimal.RequireFromString("42.10")}},
		counterStub{active: 2, total: 7},
		txs,
	)

	summary, err := svc.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Balance.StringFixed(2) != "42.10" || summary.ActiveOrders != 2 || summary.TotalOrders != 7 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if txs.lastLimit != 5 || len(summary.RecentTransactions) != 2 {
		t.Fatalf("expected last 5 transactions, limit=%d got=%d", txs.lastLimit, len(summary.RecentTransactions))
	}
}

func TestSummaryPropagatesStoreErrors(t *testing.T) {
	svc := NewService(walletStub{err: errors.New("db down")}, counterStub{}, &txStub{})
	if _, err := svc.Summary(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected error")
	}
}
