package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	"github.com/ivankudzin/smmshop/internal/infra/mailer"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const (
	maxReferenceAttempts = 5
	MaxReceiptBytes      = 5 << 20
	receiptURLTTL        = 15 * time.Minute
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidReference   = errors.New("invalid deposit reference")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrDepositNotPending  = errors.New("deposit is not pending")
	ErrInvalidReceipt     = errors.New("invalid receipt")
	ErrReceiptsDisabled   = errors.New("receipt storage is not configured")
	ErrReferenceExhausted = errors.New("could not allocate a unique deposit reference")
	ErrBalanceOverflow    = errors.New("wallet balance would exceed its limit")
)

var allowedReceiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type WalletStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (model.Wallet, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error)
}

type DepositStore interface {
	CreatePending(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (model.Transaction, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	GetByReference(ctx context.Context, reference string) (model.Transaction, error)
	AttachReceipt(ctx context.Context, userID uuid.UUID, reference, key string) (model.Transaction, error)
	Confirm(ctx context.Context, reference string, now time.Time) (pgrepo.DepositConfirmation, error)
	Reject(ctx context.Context, reference string, now time.Time) (model.Transaction, error)
	ListPending(ctx context.Context, limit int) ([]model.Transaction, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Profile, error)
}

type ReceiptStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type OperatorAlerts interface {
	DepositRequested(ctx context.Context, reference, amount, email string) error
}

type Observer interface {
	ObserveDeposit(result string)
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent)
}

type Dependencies struct {
	Wallets      WalletStore
	Transactions TransactionStore
	Deposits     DepositStore
	Profiles     ProfileStore
	Receipts     ReceiptStorage
	Operators    OperatorAlerts
	Mailer       mailer.Sender
	Metrics      Observer
	Notifier     Notifier
	Logger       *zap.Logger
}

type BankDetails struct {
	Bank          string `json:"bank"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

type Config struct {
	BankDetails
	PredefinedAmounts []int64
	// Random feeds reference generation; nil means crypto/rand.
	Random            io.Reader
}

type Service struct {
	wallets      WalletStore
	transactions TransactionStore
	deposits     DepositStore
	profiles     ProfileStore
	receipts     ReceiptStorage
	operators    OperatorAlerts
	mail         mailer.Sender
	metrics      Observer
	notifier     Notifier
	logger       *zap.Logger
	bank         BankDetails
	amounts      []decimal.Decimal
	random       io.Reader
	now          func() time.Time
}

type Overview struct {
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []model.Transaction `json:"transactions"`
}

type AddFundsInfo struct {
	BankDetails
	PredefinedAmounts []decimal.Decimal `json:"predefined_amounts"`
	Reference         string            `json:"reference"`
}

type ConfirmResult struct {
	Transaction      model.Transaction `json:"transaction"`
	Balance          decimal.Decimal   `json:"balance"`
	AlreadyCompleted bool              `json:"already_completed"`
}

type Receipt struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mail := deps.Mailer
	if mail == nil {
		mail = mailer.Noop{}
	}

	amounts := make([]decimal.Decimal, 0, len(cfg.PredefinedAmounts))
	for _, a := range cfg.PredefinedAmounts {
		if a > 0 {
			amounts = append(amounts, decimal.NewFromInt(a))
		}
	}

	return &Service{
		wallets:      deps.Wallets,
		transactions: deps.Transactions,
		deposits:     deps.Deposits,
		profiles:     deps.Profiles,
		receipts:     deps.Receipts,
		operators:    deps.Operators,
		mail:         mail,
		metrics:      deps.Metrics,
		notifier:     deps.Notifier,
		logger:       logger,
		bank:         cfg.BankDetails,
		amounts:      amounts,
		random:       cfg.Random,
		now:          time.Now,
	}
}

// Balance returns zero for a user whose wallet row does not exist yet.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrWalletNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get wallet: %w", err)
	}
	return w.Balance, nil
}

func (s *Service) Overview(ctx context.Context, userID uuid.UUID) (Overview, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	txns, err := s.transactions.ListByUser(ctx, userID, 0)
	if err != nil {
		return Overview{}, fmt.Errorf("list transactions: %w", err)
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	return Overview{Balance: balance, Transactions: txns}, nil
}

// AddFundsInfo returns the transfer instructions with a preview reference.
// The reference is only reserved once the deposit is created.
func (s *Service) AddFundsInfo(ctx context.Context, _ uuid.UUID) (AddFundsInfo, error) {
	ref, err := s.previewReference(ctx)
	if err != nil {
		return AddFundsInfo{}, err
	}
	return AddFundsInfo{
		BankDetails:       s.bank,
		PredefinedAmounts: s.amounts,
		Reference:         ref,
	}, nil
}

// previewReference draws a reference no stored transaction uses yet. A failed
// lookup falls back to the draw; CreateDeposit still resolves collisions.
func (s *Service) previewReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref, err := rules.NewDepositReference(s.random)
		if err != nil {
			return "", err
		}
		if s.deposits == nil {
			return ref, nil
		}
		taken, err := s.deposits.ReferenceExists(ctx, ref)
		if err != nil {
			s.logger.Warn("deposit reference lookup failed", zap.Error(err))
			return ref, nil
		}
		if !taken {
			return ref, nil
		}
	}
	return "", ErrReferenceExhausted
}

// CreateDeposit records a pending deposit. A preferred reference is used when
// it is well-formed and free; any collision draws a fresh one.
func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, rawAmount, preferredRef string) (model.Transaction, error) {
	amount, err := rules.ParseAmount(rawAmount)
	if err != nil {
		s.observe("invalid")
		return model.Transaction{}, ErrInvalidAmount
	}

	ref := strings.ToUpper(strings.TrimSpace(preferredRef))
	if ref != "" && !rules.IsDepositReference(ref) {
		ref = ""
	}

	var txn model.Transaction
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		if ref == "" {
			ref, err = rules.NewDepositReference(s.random)
			if err != nil {
				return model.Transaction{}, err
			}
		}
		txn, err = s.deposits.CreatePending(ctx, userID, amount, ref)
		if err == nil {
			break
		}
		if !errors.Is(err, pgrepo.ErrReferenceConflict) {
			s.observe("error")
			return model.Transaction{}, fmt.Errorf("create deposit: %w", err)
		}
		s.logger.Info("deposit reference collision, regenerating", zap.String("reference", ref))
		ref = ""
	}
	if err != nil {
		s.observe("error")
		return model.Transaction{}, ErrReferenceExhausted
	}

	s.observe("requested")
	if s.operators != nil {
		email := s.contactEmail(ctx, userID)
		if err := s.operators.DepositRequested(ctx, txn.Reference, txn.Amount.StringFixed(2), email); err != nil {
			s.logger.Warn("notify operators failed", zap.Error(err), zap.String("reference", txn.Reference))
		}
	}
	return txn, nil
}

// AttachReceipt uploads proof of transfer for one of the user's pending deposits.
func (s *Service) AttachReceipt(ctx context.Context, userID uuid.UUID, reference string, receipt Receipt) (model.Transaction, error) {
	if s.receipts == nil {
		return model.Transaction{}, ErrReceiptsDisabled
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !rules.IsDepositReference(reference) {
		return model.Transaction{}, ErrInvalidReference
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(receipt.ContentType, ";")[0]))
	ext, ok := allowedReceiptTypes[contentType]
	if !ok || receipt.Body == nil || receipt.Size <= 0 || receipt.Size > MaxReceiptBytes {
		return model.Transaction{}, ErrInvalidReceipt
	}

	existing, err := s.deposits.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDepositNotFound) {
			return model.Transaction{}, ErrDepositNotFound
		}
		return model.Transaction{}, fmt.Errorf("get deposit: %w", err)
	}
	if existing.UserID != userID {
		return model.Transaction{}, ErrDepositNotFound
	}
	if existing.Status != enums.TransactionStatusPending {
		return model.Transaction{}, ErrDepositNotPending
	}

	key := fmt.Sprintf("receipts/%s/%s%s", userID, reference, ext)
	if err := s.receipts.Put(ctx, key, io.LimitReader(receipt.Body, MaxReceiptBytes), receipt.Size, contentType); err != nil {
		return model.Transaction{}, fmt.Errorf("upload receipt: %w", err)
	}

	txn, err := s.deposits.AttachReceipt(ctx, userID, reference, key)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDepositNotFound) {
			return model.Transaction{}, ErrDepositNotPending
		}
		return model.Transaction{}, fmt.Errorf("attach receipt: %w", err)
	}
	return txn, nil
}

// ReceiptURL is a short-lived download link for operators.
func (s *Service) ReceiptURL(ctx context.Context, txn model.Transaction) (string, error) {
	if s.receipts == nil || txn.ReceiptKey == "" {
		return "", nil
	}
	return s.receipts.PresignGet(ctx, txn.ReceiptKey, receiptURLTTL)
}

// ConfirmDeposit credits the wallet once. Confirming an already completed
// deposit reports AlreadyCompleted and changes nothing.
func (s *Service) ConfirmDeposit(ctx context.Context, reference string) (ConfirmResult, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !rules.IsDepositReference(reference) {
		return ConfirmResult{}, ErrInvalidReference
	}

	res, err := s.deposits.Confirm(ctx, reference, s.now().UTC())
	if err != nil {
		s.observe("confirm_failed")
		return ConfirmResult{}, mapDepositErr(err, "confirm deposit")
	}
	out := ConfirmResult{Transaction: res.Transaction, Balance: res.Balance, AlreadyCompleted: res.AlreadyCompleted}
	if res.AlreadyCompleted {
		return out, nil
	}

	s.observe("confirmed")
	userID := res.Transaction.UserID
	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, enums.AuthEventWalletUpdated)
	}

	msg := mailer.DepositCredited{
		Reference: reference,
		Amount:    res.Transaction.Amount.StringFixed(2),
		Balance:   res.Balance.StringFixed(2),
	}
	if s.profiles != nil {
		if p, err := s.profiles.Get(ctx, userID); err == nil {
			msg.To = p.Email
			msg.FullName = p.FullName
		}
	}
	if err := s.mail.SendDepositCredited(ctx, msg); err != nil {
		s.logger.Warn("deposit credited email failed", zap.Error(err), zap.String("reference", reference))
	}
	return out, nil
}

func (s *Service) RejectDeposit(ctx context.Context, reference string) (model.Transaction, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !rules.IsDepositReference(reference) {
		return model.Transaction{}, ErrInvalidReference
	}

	txn, err := s.deposits.Reject(ctx, reference, s.now().UTC())
	if err != nil {
		return model.Transaction{}, mapDepositErr(err, "reject deposit")
	}
	s.observe("rejected")
	if s.notifier != nil {
		s.notifier.Notify(ctx, txn.UserID, enums.AuthEventWalletUpdated)
	}
	return txn, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.Transaction, error) {
	items, err := s.deposits.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	return items, nil
}

func (s *Service) contactEmail(ctx context.Context, userID uuid.UUID) string {
	if s.profiles == nil {
		return userID.String()
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil || p.Email == "" {
		return userID.String()
	}
	return p.Email
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveDeposit(result)
	}
}

func mapDepositErr(err error, op string) error {
	switch {
	case errors.Is(err, pgrepo.ErrDepositNotFound):
		return ErrDepositNotFound
	case errors.Is(err, pgrepo.ErrDepositNotPending):
		return ErrDepositNotPending
	case errors.Is(err, pgrepo.ErrAmountOverflow):
		return ErrBalanceOverflow
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
