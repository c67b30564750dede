package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/model"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

const defaultHeartbeat = 25 * time.Second

// CookieConfig describes the HttpOnly cookie that carries the access token
// for page requests.
type CookieConfig struct {
	Name   string
	Secure bool
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan authsvc.Event, func() error, error)
}

type AuthHandler struct {
	service   *authsvc.Service
	events    EventSubscriber
	cookie    CookieConfig
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewAuthHandler(service *authsvc.Service, events EventSubscriber, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookie.Name == "" {
		cookie.Name = "smm_access"
	}
	return &AuthHandler{
		service:   service,
		events:    events,
		cookie:    cookie,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	var req dto.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.SignUp(r.Context(), authsvc.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.setAccessCookie(w, res.AccessToken, res.AccessExpires)
	httperrors.Write(w, http.StatusCreated, tokensResponse(res, "Account created", "/dashboard"))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	var req dto.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.setAccessCookie(w, res.AccessToken, res.AccessExpires)
	httperrors.Write(w, http.StatusOK, tokensResponse(res, "Welcome back!", "/dashboard"))
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.service.SignOut(r.Context(), identity); err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.clearAccessCookie(w)
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true, Title: "Signed out", Redirect: "/login"})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.setAccessCookie(w, res.AccessToken, res.AccessExpires)
	httperrors.Write(w, http.StatusOK, tokensResponse(res, "", ""))
}

// Session reports the signed-in user. Lookup failures degrade to an
// anonymous answer instead of an error.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	anonymous := dto.SessionStateResponse{}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok || h.service == nil {
		httperrors.Write(w, http.StatusOK, anonymous)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), identity)
	if err != nil {
		if !errors.Is(err, authsvc.ErrUnauthorized) {
			h.logger.Warn("session lookup failed", zap.Error(err))
		}
		httperrors.Write(w, http.StatusOK, anonymous)
		return
	}

	userResp := userResponse(user)
	httperrors.Write(w, http.StatusOK, dto.SessionStateResponse{
		User:    &userResp,
		Session: &dto.SessionInfo{ExpiresAt: identity.ExpiresAt},
	})
}

// Events streams auth state changes for the signed-in user as server-sent
// events until the client goes away.
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeNotConfigured(w)
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, "INTERNAL_ERROR", "streaming is not supported")
		return
	}

	ctx := r.Context()
	events, closeSub, err := h.events.Subscribe(ctx, identity.UserID)
	if err != nil {
		h.logger.Warn("auth events subscribe failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			h.logger.Debug("auth events close failed", zap.Error(err))
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("encode auth event failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *AuthHandler) setAccessCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAccessCookie(w http.ResponseWriter) {
	clearCookie(w, h.cookie)
}

func clearCookie(w http.ResponseWriter, cookie CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error) {
	var limited *authsvc.RateLimitedError
	switch {
	case errors.As(err, &limited):
		httperrors.WriteRateLimited(w, httperrors.RateLimitError{
			Code:          "RATE_LIMITED",
			Message:       "Too many sign-in attempts. Please try again later.",
			Title:         "Slow down",
			RetryAfterSec: limited.RetryAfterSec,
		})
	default:
		writeAuthError(w, h.logger, err)
	}
}

func writeAuthError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "VALIDATION_ERROR", "Please enter a valid email address")
	case errors.Is(err, authsvc.ErrWeakPassword):
		writeBadRequest(w, "VALIDATION_ERROR", fmt.Sprintf("Password must be at least %d characters", authsvc.MinPasswordLength))
	case errors.Is(err, authsvc.ErrPasswordMismatch):
		writeBadRequest(w, "PASSWORD_MISMATCH", "New passwords do not match")
	case errors.Is(err, authsvc.ErrIncorrectPassword):
		writeBadRequest(w, "INCORRECT_PASSWORD", "Current password is incorrect")
	case errors.Is(err, authsvc.ErrEmailTaken):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "EMAIL_TAKEN",
			Message: "An account with this email already exists",
		})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		writeUnauthorized(w, "UNAUTHORIZED", "Invalid login credentials")
	case errors.Is(err, authsvc.ErrUnauthorized),
		errors.Is(err, authsvc.ErrRefreshNotFound),
		errors.Is(err, authsvc.ErrSessionNotFound):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication failed")
	default:
		if logger != nil {
			logger.Error("auth request failed", zap.Error(err))
		}
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func tokensResponse(res authsvc.AuthResult, title, redirect string) dto.AuthTokensResponse {
	return dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: max(0, int64(time.Until(res.AccessExpires).Seconds())),
		User:         userResponse(res.User),
		Title:        title,
		Redirect:     redirect,
	}
}

func userResponse(user model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: "NOT_FOUND", Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func writeNotConfigured(w http.ResponseWriter) {
	httperrors.Write(w, http.StatusServiceUnavailable, NotConfiguredError())
}

// NotConfiguredError is the body every data route answers with while the
// backend runs without a database.
func NotConfiguredError() httperrors.APIError {
	return httperrors.APIError{
		Code:    "NOT_CONFIGURED",
		Title:   "Backend Not Configured",
		Message: "The data backend is not configured. Please try again later.",
	}
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}
