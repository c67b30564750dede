package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	accountsvc "github.com/ivankudzin/smmshop/internal/services/accounts"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type SettingsHandler struct {
	auth     *authsvc.Service
	accounts *accountsvc.Service
	cookie   CookieConfig
	logger   *zap.Logger
}

func NewSettingsHandler(auth *authsvc.Service, accounts *accountsvc.Service, cookie CookieConfig, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookie.Name == "" {
		cookie.Name = "smm_access"
	}
	return &SettingsHandler{auth: auth, accounts: accounts, cookie: cookie, logger: logger}
}

func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), identity, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeAuthError(w, h.logger, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{
		OK:      true,
		Title:   "Password Updated",
		Message: "Your password has been changed. Other devices have been signed out.",
	})
}

func (h *SettingsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if h.accounts == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.DeleteAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), identity.UserID, req.Password, req.Confirmation); err != nil {
		switch {
		case errors.Is(err, accountsvc.ErrConfirmationRequired):
			writeBadRequest(w, "CONFIRMATION_REQUIRED", "Type "+accountsvc.ConfirmationPhrase+" to confirm account deletion")
		case errors.Is(err, accountsvc.ErrIncorrectPassword):
			writeBadRequest(w, "INCORRECT_PASSWORD", "Password is incorrect")
		case errors.Is(err, accountsvc.ErrNotFound):
			writeNotFound(w, "account not found")
		default:
			h.logger.Error("delete account failed", zap.Error(err))
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	clearCookie(w, h.cookie)
	httperrors.Write(w, http.StatusOK, dto.OKResponse{
		OK:       true,
		Title:    "Account Deleted",
		Message:  "Your account and all of its data have been removed.",
		Redirect: "/",
	})
}
