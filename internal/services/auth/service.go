package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck keeps sign-in timing the same for unknown emails.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	_ = CheckPassword(dummyHash, password)
}

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID, keepSID string) error
}

type UserStore interface {
	CreateAccount(ctx context.Context, in pgrepo.NewAccount) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string, now time.Time) error
}

type SignInLimiter interface {
	AllowSignIn(ctx context.Context, key string) (retryAfterSec int64, allowed bool, err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type Dependencies struct {
	JWT      *JWTManager
	Sessions SessionStore
	Users    UserStore
	Limiter  SignInLimiter
	Events   EventPublisher
	Logger   *zap.Logger
}

type Config struct {
	RefreshTTL time.Duration
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	users      UserStore
	limiter    SignInLimiter
	events     EventPublisher
	logger     *zap.Logger
	refreshTTL time.Duration
	now        func() time.Time
	hash       func(string) (string, error)
}

func NewService(deps Dependencies, cfg Config) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		jwt:        deps.JWT,
		sessions:   deps.Sessions,
		users:      deps.Users,
		limiter:    deps.Limiter,
		events:     deps.Events,
		logger:     logger,
		refreshTTL: refreshTTL,
		now:        time.Now,
		hash:       HashPassword,
	}
}

// SignUp creates the account, its profile and an empty wallet, then opens a session.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if len(in.Password) < MinPasswordLength {
		return AuthResult{}, ErrWeakPassword
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateAccount(ctx, pgrepo.NewAccount{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	res, err := s.issueForUser(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	s.publish(ctx, user.ID, enums.AuthEventSignedIn)
	return res, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowSignIn(ctx, normalized)
		if err != nil {
			return AuthResult{}, fmt.Errorf("check sign-in rate: %w", err)
		}
		if !allowed {
			return AuthResult{}, &RateLimitedError{RetryAfterSec: retryAfter}
		}
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			burnPasswordCheck(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("get user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	res, err := s.issueForUser(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	s.publish(ctx, user.ID, enums.AuthEventSignedIn)
	return res, nil
}

func (s *Service) SignOut(ctx context.Context, identity Identity) error {
	if strings.TrimSpace(identity.SID) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, identity.SID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, identity.UserID, enums.AuthEventSignedOut)
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			_ = s.sessions.DeleteSession(ctx, session.SID)
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get user: %w", err)
	}

	rotated, err := newRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, rotated, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	s.publish(ctx, user.ID, enums.AuthEventTokenRefreshed)
	return AuthResult{
		AccessToken:    accessToken,
		RefreshToken:   rotated,
		AccessExpires:  accessExpires,
		SessionExpires: newExpiresAt,
		User:           user,
	}, nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

// CurrentUser resolves the user behind a validated identity.
func (s *Service) CurrentUser(ctx context.Context, identity Identity) (model.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// VerifyPassword checks the stored hash and never opens a session.
func (s *Service) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	if password == "" {
		return ErrIncorrectPassword
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("get user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return ErrIncorrectPassword
	}
	return nil
}

// ChangePassword keeps the calling session and revokes every other one.
func (s *Service) ChangePassword(ctx context.Context, identity Identity, current, next, confirm string) error {
	if next != confirm {
		return ErrPasswordMismatch
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	if err := s.VerifyPassword(ctx, identity.UserID, current); err != nil {
		return err
	}

	hash, err := s.hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, identity.UserID, hash, s.now().UTC()); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessions.DeleteAllForUser(ctx, identity.UserID, identity.SID); err != nil {
		return fmt.Errorf("revoke other sessions: %w", err)
	}
	s.publish(ctx, identity.UserID, enums.AuthEventPasswordChanged)
	return nil
}

func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID, ""); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

// Notify publishes an auth state change on behalf of other services.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent) {
	s.publish(ctx, userID, event)
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, event enums.AuthEvent) {
	if s.events == nil || userID == uuid.Nil {
		return
	}
	err := s.events.Publish(ctx, Event{Type: event, UserID: userID, At: s.now().UTC()})
	if err != nil {
		s.logger.Warn("publish auth event failed", zap.Error(err), zap.String("event", string(event)))
	}
}

func (s *Service) issueForUser(ctx context.Context, user model.User) (AuthResult, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := newRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionExpiresAt := s.now().Add(s.refreshTTL)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    user.ID,
		ExpiresAt: sessionExpiresAt,
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID, sessionID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		AccessExpires:  accessExpires,
		SessionExpires: sessionExpiresAt,
		User:           user,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidInput
	}
	return email, nil
}
