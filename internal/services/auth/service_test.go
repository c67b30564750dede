package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	redrepo "github.com/ivankudzin/smmshop/internal/repo/redis"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	"github.com/ivankudzin/smmshop/internal/services/rate"
)

func TestSignUpThenSignIn(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	res, err := env.svc.SignUp(ctx, authsvc.SignUpInput{Email: " Buyer@Example.com ", Password: "secret1", FullName: "Ada Buyer"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if res.User.Email != "buyer@example.com" {
		t.Fatalf("email should be normalized, got %q", res.User.Email)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("sign up should open a session")
	}

	if _, err := env.svc.SignUp(ctx, authsvc.SignUpInput{Email: "buyer@example.com", Password: "secret1"}); !errors.Is(err, authsvc.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	signIn, err := env.svc.SignIn(ctx, "buyer@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	claims, err := env.svc.ValidateAccessToken(ctx, signIn.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != res.User.ID {
		t.Fatalf("unexpected user in claims: %s", claims.UserID)
	}
	if got := env.events.count(enums.AuthEventSignedIn); got != 2 {
		t.Fatalf("expected 2 SIGNED_IN events, got %d", got)
	}
}

func TestSignUpValidation(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	if _, err := env.svc.SignUp(ctx, authsvc.SignUpInput{Email: "not-an-email", Password: "secret1"}); !errors.Is(err, authsvc.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad email, got %v", err)
	}
	if _, err := env.svc.SignUp(ctx, authsvc.SignUpInput{Email: "a@example.com", Password: "12345"}); !errors.Is(err, authsvc.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSignInWrongPasswordAndUnknownEmail(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.mustSignUp(t, "a@example.com", "secret1")

	if _, err := env.svc.SignIn(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := env.svc.SignIn(ctx, "ghost@example.com", "secret1"); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSignInRateLimited(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.mustSignUp(t, "a@example.com", "secret1")

	for i := 0; i < 3; i++ {
		_, _ = env.svc.SignIn(ctx, "a@example.com", "wrong-pass")
	}

	_, err := env.svc.SignIn(ctx, "a@example.com", "secret1")
	var limited *authsvc.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfterSec <= 0 {
		t.Fatalf("expected positive retry after, got %d", limited.RetryAfterSec)
	}

	env.mini.FastForward(11 * time.Second)
	if _, err := env.svc.SignIn(ctx, "a@example.com", "secret1"); err != nil {
		t.Fatalf("sign in after window: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	first := env.mustSignUp(t, "a@example.com", "secret1")

	refreshed, err := env.svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if _, err := env.svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token should be unauthorized, got err=%v", err)
	}
	if _, err := env.svc.ValidateAccessToken(ctx, refreshed.AccessToken); err != nil {
		t.Fatalf("new access token validation failed: %v", err)
	}
	if got := env.events.count(enums.AuthEventTokenRefreshed); got != 1 {
		t.Fatalf("expected one TOKEN_REFRESHED event, got %d", got)
	}
}

func TestSignOutInvalidatesSession(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.mustSignUp(t, "a@example.com", "secret1")

	claims, err := env.svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate before sign out: %v", err)
	}
	if err := env.svc.SignOut(ctx, authsvc.Identity{UserID: claims.UserID, SID: claims.SID}); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := env.svc.ValidateAccessToken(ctx, res.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after sign out, got err=%v", err)
	}
	if _, err := env.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("refresh token should be unauthorized after sign out, got err=%v", err)
	}
	if got := env.events.count(enums.AuthEventSignedOut); got != 1 {
		t.Fatalf("expected one SIGNED_OUT event, got %d", got)
	}
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	current := env.mustSignUp(t, "a@example.com", "secret1")
	other, err := env.svc.SignIn(ctx, "a@example.com", "secret1")
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}

	claims, err := env.svc.ValidateAccessToken(ctx, current.AccessToken)
	if err != nil {
		t.Fatalf("validate current: %v", err)
	}
	identity := authsvc.Identity{UserID: claims.UserID, SID: claims.SID}

	if err := env.svc.ChangePassword(ctx, identity, "secret1", "secret2", "secret2"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := env.svc.ValidateAccessToken(ctx, current.AccessToken); err != nil {
		t.Fatalf("current session should survive: %v", err)
	}
	if _, err := env.svc.ValidateAccessToken(ctx, other.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("other session should be revoked, got %v", err)
	}
	if _, err := env.svc.SignIn(ctx, "a@example.com", "secret2"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
	if got := env.events.count(enums.AuthEventPasswordChanged); got != 1 {
		t.Fatalf("expected one PASSWORD_CHANGED event, got %d", got)
	}
}

func TestChangePasswordValidation(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.mustSignUp(t, "a@example.com", "secret1")
	identity := authsvc.Identity{UserID: res.User.ID, SID: "unused"}

	cases := []struct {
		name    string
		current string
		next    string
		confirm string
		want    error
	}{
		{name: "mismatch", current: "secret1", next: "secret2", confirm: "secret3", want: authsvc.ErrPasswordMismatch},
		{name: "too short", current: "secret1", next: "abc", confirm: "abc", want: authsvc.ErrWeakPassword},
		{name: "wrong current", current: "nope-nope", next: "secret2", confirm: "secret2", want: authsvc.ErrIncorrectPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.ChangePassword(ctx, identity, tc.current, tc.next, tc.confirm)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRevokeAllDropsEverySession(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	res := env.mustSignUp(t, "a@example.com", "secret1")

	if err := env.svc.RevokeAll(ctx, res.User.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := env.svc.ValidateAccessToken(ctx, res.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after revoke, got %v", err)
	}
}

type authEnv struct {
	svc    *authsvc.Service
	mini   *miniredis.Miniredis
	events *recordingPublisher
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	events := &recordingPublisher{}
	svc := authsvc.NewService(authsvc.Dependencies{
		JWT:      authsvc.NewJWTManager("test-secret", 15*time.Minute),
		Sessions: redrepo.NewSessionRepo(client),
		Users:    newMemoryUsers(),
		Limiter:  rate.NewLimiter(redrepo.NewRateRepo(client), 100, 3),
		Events:   events,
	}, authsvc.Config{RefreshTTL: 45 * 24 * time.Hour})

	return &authEnv{svc: svc, mini: mini, events: events}
}

func (e *authEnv) mustSignUp(t *testing.T, email, password string) authsvc.AuthResult {
	t.Helper()
	res, err := e.svc.SignUp(context.Background(), authsvc.SignUpInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return res
}

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[uuid.UUID]model.User{}, byEmail: map[string]uuid.UUID{}}
}

func (m *memoryUsers) CreateAccount(_ context.Context, in pgrepo.NewAccount) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[in.Email]; ok {
		return model.User{}, pgrepo.ErrEmailTaken
	}
	now := time.Now().UTC()
	user := model.User{ID: uuid.New(), Email: in.Email, PasswordHash: in.PasswordHash, CreatedAt: now, UpdatedAt: now}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return user, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *memoryUsers) GetByID(_ context.Context, userID uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	m.byID[userID] = user
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []authsvc.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event authsvc.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(kind enums.AuthEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, event := range p.events {
		if event.Type == kind {
			n++
		}
	}
	return n
}
