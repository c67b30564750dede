package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	redrepo "github.com/ivankudzin/smmshop/internal/repo/redis"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	"github.com/ivankudzin/smmshop/internal/services/rate"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
)

func TestAuthHandlerSignUpSetsCookieAndSession(t *testing.T) {
	h, svc := newTestAuthHandler(t)

	rr := doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"buyer@example.com","password":"secret1","full_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp dto.AuthTokensResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "buyer@example.com", resp.User.Email)
	require.Equal(t, "/dashboard", resp.Redirect)

	cookie := findCookie(rr, "smm_access")
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, resp.AccessToken, cookie.Value)

	claims, err := svc.ValidateAccessToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID:    claims.UserID,
		SID:       claims.SID,
		ExpiresAt: claims.ExpiresAt,
	}))
	rr = httptest.NewRecorder()
	h.Session(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var state dto.SessionStateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.NotNil(t, state.User)
	require.Equal(t, "buyer@example.com", state.User.Email)
	require.NotNil(t, state.Session)
}

func TestAuthHandlerSessionWithoutIdentityIsAnonymous(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	rr := httptest.NewRecorder()
	h.Session(rr, httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"user":null,"session":null}`, rr.Body.String())

	// An identity whose user no longer exists degrades the same way.
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: uuid.New(), SID: "gone"}))
	rr = httptest.NewRecorder()
	h.Session(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"user":null,"session":null}`, rr.Body.String())
}

func TestAuthHandlerSignInErrors(t *testing.T) {
	h, _ := newTestAuthHandler(t)
	rr := doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, h.SignIn, http.MethodPost, "/v1/auth/signin", `{"email":"a@example.com","password":"wrong-pass"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	requireErrorCode(t, rr, "UNAUTHORIZED")
	require.Contains(t, rr.Body.String(), "Invalid login credentials")

	rr = doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	requireErrorCode(t, rr, "EMAIL_TAKEN")

	rr = doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"b@example.com","password":"123"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	requireErrorCode(t, rr, "VALIDATION_ERROR")

	rr = doJSON(t, h.SignIn, http.MethodPost, "/v1/auth/signin", `{"email":"a@example.com","password":"x","extra":1}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	requireErrorCode(t, rr, "INVALID_REQUEST")
}

func TestAuthHandlerSignInRateLimited(t *testing.T) {
	h, _ := newTestAuthHandler(t)
	doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"a@example.com","password":"secret1"}`)

	var rr *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		rr = doJSON(t, h.SignIn, http.MethodPost, "/v1/auth/signin", `{"email":"a@example.com","password":"wrong-pass"}`)
	}
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	requireErrorCode(t, rr, "RATE_LIMITED")
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestAuthHandlerSignOutClearsCookie(t *testing.T) {
	h, svc := newTestAuthHandler(t)
	rr := doJSON(t, h.SignUp, http.MethodPost, "/v1/auth/signup", `{"email":"a@example.com","password":"secret1"}`)
	var resp dto.AuthTokensResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	claims, err := svc.ValidateAccessToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/signout", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: claims.UserID, SID: claims.SID}))
	rr = httptest.NewRecorder()
	h.SignOut(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	cookie := findCookie(rr, "smm_access")
	require.NotNil(t, cookie)
	require.Less(t, cookie.MaxAge, 0)

	_, err = svc.ValidateAccessToken(context.Background(), resp.AccessToken)
	require.ErrorIs(t, err, authsvc.ErrUnauthorized)
}

func TestAuthHandlerEventsStreamsPublishedEvent(t *testing.T) {
	h, svc := newTestAuthHandler(t)
	userID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/events", nil).WithContext(
		authsvc.WithIdentity(ctx, authsvc.Identity{UserID: userID, SID: "sid"}),
	)
	rr := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		h.Events(rr, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rr.body(), ": connected")
	}, 2*time.Second, 10*time.Millisecond)

	svc.Notify(context.Background(), userID, enums.AuthEventUserUpdated)

	require.Eventually(t, func() bool {
		return strings.Contains(rr.body(), "event: USER_UPDATED")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events handler did not stop after the request context ended")
	}
}

func newTestAuthHandler(t *testing.T) (*AuthHandler, *authsvc.Service) {
	t.Helper()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	events := redrepo.NewAuthEventRepo(client)
	svc := authsvc.NewService(authsvc.Dependencies{
		JWT:      authsvc.NewJWTManager("test-secret", 15*time.Minute),
		Sessions: redrepo.NewSessionRepo(client),
		Users:    newStubUsers(),
		Limiter:  rate.NewLimiter(redrepo.NewRateRepo(client), 100, 3),
		Events:   events,
	}, authsvc.Config{RefreshTTL: 30 * 24 * time.Hour})

	return NewAuthHandler(svc, events, CookieConfig{Name: "smm_access"}, nil), svc
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, code string) {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, code, body["code"])
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// syncRecorder lets a test read a streaming response while the handler is
// still writing to it.
type syncRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    strings.Builder
	status int
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{header: http.Header{}}
}

func (r *syncRecorder) Header() http.Header { return r.header }

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *syncRecorder) WriteHeader(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *syncRecorder) Flush() {}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

type stubUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[uuid.UUID]model.User{}, byEmail: map[string]uuid.UUID{}}
}

func (s *stubUsers) CreateAccount(_ context.Context, in pgrepo.NewAccount) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[in.Email]; ok {
		return model.User{}, pgrepo.ErrEmailTaken
	}
	now := time.Now().UTC()
	user := model.User{ID: uuid.New(), Email: in.Email, PasswordHash: in.PasswordHash, CreatedAt: now, UpdatedAt: now}
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *stubUsers) GetByID(_ context.Context, userID uuid.UUID) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUsers) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	s.byID[userID] = user
	return nil
}
