package purchases

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

// walletStoreStub mimics the conditional debit of the postgres repo.
type walletStoreStub struct {
	mu      sync.Mutex
	prices  map[int64]decimal.Decimal
	balance decimal.Decimal
	orders  []model.Order
	byKey   map[string]pgrepo.PurchaseRecord
	calls   int
	failErr error
}

func newWalletStoreStub(balance string) *walletStoreStub {
	return &walletStoreStub{
		prices:  map[int64]decimal.Decimal{7: decimal.RequireFromString("5.00")},
		balance: decimal.RequireFromString(balance),
		byKey:   map[string]pgrepo.PurchaseRecord{},
	}
}

func (s *walletStoreStub) Purchase(_ context.Context, p pgrepo.PurchaseParams) (pgrepo.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failErr != nil {
		return pgrepo.PurchaseRecord{}, s.failErr
	}
	if rec, ok := s.byKey[p.IdempotencyKey]; ok && p.IdempotencyKey != "" {
		rec.Replayed = true
		return rec, nil
	}
	price, ok := s.prices[p.ServiceID]
	if !ok {
		return pgrepo.PurchaseRecord{}, pgrepo.ErrServiceNotFound
	}
	total := p.Cost(price)
	if !total.IsPositive() {
		return pgrepo.PurchaseRecord{}, pgrepo.ErrTotalNotPositive
	}
	if s.balance.LessThan(total) {
		return pgrepo.PurchaseRecord{}, pgrepo.ErrInsufficientFunds
	}
	s.balance = s.balance.Sub(total)
	order := model.Order{
		ID:        int64(len(s.orders) + 1),
		UserID:    p.UserID,
		ServiceID: p.ServiceID,
		Link:      p.Link,
		Quantity:  p.Quantity,
		Status:    enums.OrderStatusPending,
	}
	s.orders = append(s.orders, order)
	rec := pgrepo.PurchaseRecord{Order: order, Total: total, Balance: s.balance}
	if p.IdempotencyKey != "" {
		s.byKey[p.IdempotencyKey] = rec
	}
	return rec, nil
}

type observerStub struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *observerStub) ObservePurchase(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string]int{}
	}
	o.results[result]++
}

type notifierStub struct {
	mu     sync.Mutex
	events []enums.AuthEvent
}

func (n *notifierStub) Notify(_ context.Context, _ uuid.UUID, event enums.AuthEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

var perThousand = rules.Pricing{UnitScale: 1000, MinQuantity: 100, QuantityStep: 100}

func newTestService(store *walletStoreStub) (*Service, *observerStub, *notifierStub) {
	obs := &observerStub{}
	notifier := &notifierStub{}
	svc := NewService(Dependencies{Store: store, Metrics: obs, Notifier: notifier}, Config{Pricing: perThousand})
	return svc, obs, notifier
}

func TestPurchaseDebitsComputedTotal(t *testing.T) {
	store := newWalletStoreStub("20.00")
	svc, obs, notifier := newTestService(store)

	res, err := svc.Purchase(context.Background(), uuid.New(), Input{ServiceID: 7, Link: " https://instagram.com/acme ", Quantity: 1500})
	require.NoError(t, err)
	require.Equal(t, "7.50", res.Total.StringFixed(2))
	require.Equal(t, "12.50", res.Balance.StringFixed(2))
	require.Equal(t, "https://instagram.com/acme", res.Order.Link)
	require.Equal(t, enums.OrderStatusPending, res.Order.Status)
	require.Equal(t, 1, obs.results["success"])
	require.Equal(t, []enums.AuthEvent{enums.AuthEventWalletUpdated}, notifier.events)
}

func TestPurchaseValidationOrderAndNoWrites(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name   string
		userID uuid.UUID
		in     Input
		want   error
	}{
		{name: "anonymous", userID: uuid.Nil, in: Input{ServiceID: 7, Link: "x", Quantity: 100}, want: ErrAuthenticationRequired},
		{name: "quantity before link", userID: userID, in: Input{ServiceID: 7, Link: "", Quantity: 50}, want: ErrInvalidQuantity},
		{name: "quantity step", userID: userID, in: Input{ServiceID: 7, Link: "x", Quantity: 150}, want: ErrInvalidQuantity},
		{name: "blank link", userID: userID, in: Input{ServiceID: 7, Link: "   ", Quantity: 100}, want: ErrLinkRequired},
		{name: "bad service id", userID: userID, in: Input{ServiceID: 0, Link: "x", Quantity: 100}, want: ErrServiceNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newWalletStoreStub("100")
			svc, _, _ := newTestService(store)

			_, err := svc.Purchase(context.Background(), tc.userID, tc.in)
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, store.calls)
		})
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	store := newWalletStoreStub("0.49")
	svc, obs, notifier := newTestService(store)

	_, err := svc.Purchase(context.Background(), uuid.New(), Input{ServiceID: 7, Link: "x", Quantity: 100})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Empty(t, store.orders)
	require.Equal(t, 1, obs.results["insufficient_funds"])
	require.Empty(t, notifier.events)
}

func TestPurchaseUnknownServiceAndBackendFailure(t *testing.T) {
	store := newWalletStoreStub("10")
	svc, _, _ := newTestService(store)

	_, err := svc.Purchase(context.Background(), uuid.New(), Input{ServiceID: 99, Link: "x", Quantity: 100})
	require.ErrorIs(t, err, ErrServiceNotFound)

	store.failErr = errors.New("connection reset")
	_, err = svc.Purchase(context.Background(), uuid.New(), Input{ServiceID: 7, Link: "x", Quantity: 100})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInsufficientFunds)
}

func TestPurchaseTotalRoundingToZeroIsValidationError(t *testing.T) {
	store := newWalletStoreStub("10")
	store.prices[8] = decimal.RequireFromString("0.01")
	svc, obs, notifier := newTestService(store)

	_, err := svc.Purchase(context.Background(), uuid.New(), Input{ServiceID: 8, Link: "x", Quantity: 100})
	require.ErrorIs(t, err, ErrTotalTooSmall)
	require.Empty(t, store.orders)
	require.Equal(t, "10.00", store.balance.StringFixed(2))
	require.Equal(t, 1, obs.results["invalid"])
	require.Empty(t, notifier.events)
}

func TestPurchaseReplaysIdempotencyKey(t *testing.T) {
	store := newWalletStoreStub("10")
	svc, obs, notifier := newTestService(store)
	userID := uuid.New()
	in := Input{ServiceID: 7, Link: "x", Quantity: 200, IdempotencyKey: "k-1"}

	first, err := svc.Purchase(context.Background(), userID, in)
	require.NoError(t, err)
	second, err := svc.Purchase(context.Background(), userID, in)
	require.NoError(t, err)

	require.True(t, second.Replayed)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.Len(t, store.orders, 1)
	require.Equal(t, "9.00", store.balance.StringFixed(2))
	require.Equal(t, 1, obs.results["replayed"])
	require.Len(t, notifier.events, 1)
}

func TestConcurrentPurchasesNeverOverdraw(t *testing.T) {
	store := newWalletStoreStub("2.00")
	svc, _, _ := newTestService(store)
	userID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(context.Background(), userID, Input{ServiceID: 7, Link: "x", Quantity: 100})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 4, succeeded)
	require.False(t, store.balance.IsNegative())
	require.Equal(t, "0.00", store.balance.StringFixed(2))
}

func TestQuote(t *testing.T) {
	svc := NewService(Dependencies{}, Config{Pricing: perThousand})

	total, err := svc.Quote(decimal.RequireFromString("3.33"), 300)
	require.NoError(t, err)
	require.Equal(t, "1.00", total.StringFixed(2))

	_, err = svc.Quote(decimal.RequireFromString("3.33"), 10)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
