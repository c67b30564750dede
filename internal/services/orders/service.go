package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const TabAll = "all"

var (
	ErrUnknownTab    = errors.New("unknown order tab")
	ErrUnknownStatus = errors.New("unknown order status")
	ErrNotFound      = errors.New("order not found")
)

type Store interface {
	ListByUser(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) ([]model.OrderWithService, error)
	UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (model.Order, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent)
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// Item is an order ready to render: joined catalog fields plus its badge.
type Item struct {
	model.OrderWithService
	Presentation rules.StatusPresentation `json:"presentation"`
}

func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Tabs lists the filters offered on the orders page, "all" first.
func Tabs() []string {
	out := []string{TabAll}
	for _, status := range enums.OrderStatuses {
		out = append(out, string(status))
	}
	return out
}

// List returns the user's orders newest first. An empty tab means all.
func (s *Service) List(ctx context.Context, userID uuid.UUID, tab string) ([]Item, error) {
	tab = strings.ToLower(strings.TrimSpace(tab))
	var statuses []enums.OrderStatus
	if tab != "" && tab != TabAll {
		status, ok := enums.ParseOrderStatus(tab)
		if !ok {
			return nil, ErrUnknownTab
		}
		statuses = []enums.OrderStatus{status}
	}

	rows, err := s.store.ListByUser(ctx, userID, statuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			OrderWithService: row,
			Presentation:     rules.PresentStatus(row.Status),
		})
	}
	return items, nil
}

// SetStatus moves an order through fulfillment on behalf of an operator.
func (s *Service) SetStatus(ctx context.Context, orderID int64, rawStatus string) (model.Order, error) {
	status, ok := enums.ParseOrderStatus(rawStatus)
	if !ok {
		return model.Order{}, ErrUnknownStatus
	}
	if orderID <= 0 {
		return model.Order{}, ErrNotFound
	}

	order, err := s.store.UpdateStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, pgrepo.ErrOrderNotFound) {
			return model.Order{}, ErrNotFound
		}
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.logger.Info("order status changed", zap.Int64("order_id", order.ID), zap.String("status", string(order.Status)))
	if s.notifier != nil {
		s.notifier.Notify(ctx, order.UserID, enums.AuthEventUserUpdated)
	}
	return order, nil
}
