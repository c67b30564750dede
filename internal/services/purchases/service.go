package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	"github.com/ivankudzin/smmshop/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const maxIdempotencyKeyLength = 128

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrLinkRequired           = errors.New("link required")
	ErrInvalidIdempotencyKey  = errors.New("invalid idempotency key")
	ErrServiceNotFound        = errors.New("service not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrTotalTooSmall          = errors.New("order total rounds to zero")
)

type Store interface {
	Purchase(ctx context.Context, p pgrepo.PurchaseParams) (pgrepo.PurchaseRecord, error)
}

type Observer interface {
	ObservePurchase(result string)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent)
}

type Dependencies struct {
	Store    Store
	Metrics  Observer
	Notifier Notifier
	Logger   *zap.Logger
}

type Config struct {
	Pricing rules.Pricing
}

type Service struct {
	store    Store
	metrics  Observer
	notifier Notifier
	logger   *zap.Logger
	pricing  rules.Pricing
}

type Input struct {
	ServiceID      int64
	Link           string
	Quantity       int
	IdempotencyKey string
}

type Result struct {
	Order    model.Order     `json:"order"`
	Total    decimal.Decimal `json:"total"`
	Balance  decimal.Decimal `json:"balance"`
	Replayed bool            `json:"replayed"`
}

func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    deps.Store,
		metrics:  deps.Metrics,
		notifier: deps.Notifier,
		logger:   logger,
		pricing:  cfg.Pricing,
	}
}

func (s *Service) Pricing() rules.Pricing {
	return s.pricing
}

// Quote is the total the buyer will be charged for quantity units at price.
func (s *Service) Quote(price decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if err := s.pricing.ValidateQuantity(quantity); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	return s.pricing.TotalCost(price, quantity), nil
}

// Purchase places an order and debits the wallet in one step. Nothing is
// written unless every check passes and the balance covers the total.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, in Input) (Result, error) {
	if userID == uuid.Nil {
		s.observe("unauthenticated")
		return Result{}, ErrAuthenticationRequired
	}
	if err := s.pricing.ValidateQuantity(in.Quantity); err != nil {
		s.observe("invalid")
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	if !validate.Required(in.Link) {
		s.observe("invalid")
		return Result{}, ErrLinkRequired
	}
	link := strings.TrimSpace(in.Link)
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLength {
		s.observe("invalid")
		return Result{}, ErrInvalidIdempotencyKey
	}
	if in.ServiceID <= 0 {
		s.observe("invalid")
		return Result{}, ErrServiceNotFound
	}

	quantity := in.Quantity
	rec, err := s.store.Purchase(ctx, pgrepo.PurchaseParams{
		UserID:         userID,
		ServiceID:      in.ServiceID,
		Link:           link,
		Quantity:       quantity,
		IdempotencyKey: key,
		Cost: func(price decimal.Decimal) decimal.Decimal {
			return s.pricing.TotalCost(price, quantity)
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrInsufficientFunds):
			s.observe("insufficient_funds")
			return Result{}, ErrInsufficientFunds
		case errors.Is(err, pgrepo.ErrServiceNotFound):
			s.observe("invalid")
			return Result{}, ErrServiceNotFound
		case errors.Is(err, pgrepo.ErrTotalNotPositive):
			s.observe("invalid")
			return Result{}, ErrTotalTooSmall
		default:
			s.observe("error")
			return Result{}, fmt.Errorf("purchase: %w", err)
		}
	}

	if rec.Replayed {
		s.observe("replayed")
	} else {
		s.observe("success")
		if s.notifier != nil {
			s.notifier.Notify(ctx, userID, enums.AuthEventWalletUpdated)
		}
		s.logger.Info("order placed",
			zap.Int64("order_id", rec.Order.ID),
			zap.Int64("service_id", rec.Order.ServiceID),
			zap.Int("quantity", rec.Order.Quantity),
			zap.String("total", rec.Total.StringFixed(2)),
		)
	}

	return Result{
		Order:    rec.Order,
		Total:    rec.Total,
		Balance:  rec.Balance,
		Replayed: rec.Replayed,
	}, nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObservePurchase(result)
	}
}
