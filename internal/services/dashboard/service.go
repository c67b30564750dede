package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const recentTransactions = 5

type WalletStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (model.Wallet, error)
}

type OrderCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) (int64, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error)
}

type Service struct {
	wallets      WalletStore
	orders       OrderCounter
	transactions TransactionStore
}

type Summary struct {
	Balance            decimal.Decimal     `json:"balance"`
	ActiveOrders       int64               `json:"active_orders"`
	TotalOrders        int64               `json:"total_orders"`
	RecentTransactions []model.Transaction `json:"recent_transactions"`
}

func NewService(wallets WalletStore, orders OrderCounter, transactions TransactionStore) *Service {
	return &Service{wallets: wallets, orders: orders, transactions: transactions}
}

// Summary renders a zero state for accounts that have no wallet or orders yet.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	out := Summary{Balance: decimal.Zero, RecentTransactions: []model.Transaction{}}

	w, err := s.wallets.GetByUser(ctx, userID)
	switch {
	case err == nil:
		out.Balance = w.Balance
	case errors.Is(err, pgrepo.ErrWalletNotFound):
	default:
		return Summary{}, fmt.Errorf("get wallet: %w", err)
	}

	if out.ActiveOrders, err = s.orders.CountByUser(ctx, userID, enums.ActiveOrderStatuses); err != nil {
		return Summary{}, fmt.Errorf("count active orders: %w", err)
	}
	if out.TotalOrders, err = s.orders.CountByUser(ctx, userID, nil); err != nil {
		return Summary{}, fmt.Errorf("count orders: %w", err)
	}

	recent, err := s.transactions.ListByUser(ctx, userID, recentTransactions)
	if err != nil {
		return Summary{}, fmt.Errorf("list recent transactions: %w", err)
	}
	if len(recent) > 0 {
		out.RecentTransactions = recent
	}
	return out, nil
}
