package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
)

// ConfirmationPhrase must be typed verbatim to delete an account.
const ConfirmationPhrase = "DELETE"

var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrNotFound             = errors.New("account not found")
)

type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error
}

type AccountStore interface {
	Delete(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
	Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent)
}

type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type Dependencies struct {
	Passwords PasswordVerifier
	Accounts  AccountStore
	Sessions  SessionRevoker
	Receipts  ObjectDeleter
	Logger    *zap.Logger
}

type Service struct {
	passwords PasswordVerifier
	accounts  AccountStore
	sessions  SessionRevoker
	receipts  ObjectDeleter
	logger    *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		passwords: deps.Passwords,
		accounts:  deps.Accounts,
		sessions:  deps.Sessions,
		receipts:  deps.Receipts,
		logger:    logger,
	}
}

// DeleteAccount re-authenticates the user, removes every row they own in one
// database transaction, then drops their sessions and stored receipts.
// A positive wallet balance does not block deletion.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, password, confirmation string) error {
	if strings.TrimSpace(confirmation) != ConfirmationPhrase {
		return ErrConfirmationRequired
	}
	if err := s.passwords.VerifyPassword(ctx, userID, password); err != nil {
		switch {
		case errors.Is(err, authsvc.ErrIncorrectPassword):
			return ErrIncorrectPassword
		case errors.Is(err, authsvc.ErrUnauthorized):
			return ErrNotFound
		default:
			return fmt.Errorf("verify password: %w", err)
		}
	}

	receiptKeys, err := s.accounts.Delete(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.sessions.Notify(ctx, userID, enums.AuthEventUserDeleted)
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions after account deletion failed", zap.Error(err), zap.String("user_id", userID.String()))
	}

	if s.receipts != nil {
		for _, key := range receiptKeys {
			if err := s.receipts.Delete(ctx, key); err != nil {
				s.logger.Warn("delete receipt object failed", zap.Error(err), zap.String("key", key))
			}
		}
	}

	s.logger.Info("account deleted", zap.String("user_id", userID.String()))
	return nil
}
