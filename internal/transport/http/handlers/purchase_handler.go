package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	purchasesvc "github.com/ivankudzin/smmshop/internal/services/purchases"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type PurchaseHandler struct {
	service *purchasesvc.Service
	logger  *zap.Logger
}

func NewPurchaseHandler(service *purchasesvc.Service, logger *zap.Logger) *PurchaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseHandler{service: service, logger: logger}
}

// Create is mounted behind the optional auth middleware so that an anonymous
// buyer gets AUTHENTICATION_REQUIRED with a redirect rather than a bare 401.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	var userID uuid.UUID
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
		userID = identity.UserID
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Purchase(r.Context(), userID, purchasesvc.Input{
		ServiceID:      req.ServiceID,
		Link:           req.Link,
		Quantity:       req.Quantity,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httperrors.Write(w, status, dto.PurchaseResponse{
		Order:    orderItem(res.Order),
		Total:    money(res.Total),
		Balance:  money(res.Balance),
		Replayed: res.Replayed,
		Title:    "Purchase Successful",
		Message:  "Your order has been placed.",
		Redirect: "/orders",
	})
}

func (h *PurchaseHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchasesvc.ErrAuthenticationRequired):
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:     "AUTHENTICATION_REQUIRED",
			Title:    "Authentication Required",
			Message:  "Please log in to purchase services.",
			Redirect: "/login",
		})
	case errors.Is(err, purchasesvc.ErrInvalidQuantity):
		p := h.service.Pricing()
		writeBadRequest(w, "VALIDATION_ERROR",
			fmt.Sprintf("Quantity must be at least %d and a multiple of %d", p.MinQuantity, p.QuantityStep))
	case errors.Is(err, purchasesvc.ErrTotalTooSmall):
		writeBadRequest(w, "VALIDATION_ERROR", "Order total is below the smallest chargeable amount, increase the quantity")
	case errors.Is(err, purchasesvc.ErrLinkRequired):
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "LINK_REQUIRED",
			Title:   "Link Required",
			Message: "Please enter the link to your post or profile.",
		})
	case errors.Is(err, purchasesvc.ErrInvalidIdempotencyKey):
		writeBadRequest(w, "VALIDATION_ERROR", "Idempotency-Key is too long")
	case errors.Is(err, purchasesvc.ErrServiceNotFound):
		writeNotFound(w, "service not found")
	case errors.Is(err, purchasesvc.ErrInsufficientFunds):
		httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
			Code:     "INSUFFICIENT_FUNDS",
			Title:    "Insufficient Balance",
			Message:  "Your wallet balance is too low for this order. Please add funds.",
			Redirect: "/wallet/add-funds",
		})
	default:
		h.logger.Error("purchase failed", zap.Error(err))
		httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
			Code:    "PURCHASE_FAILED",
			Title:   "Purchase Failed",
			Message: "We could not place your order. Please try again.",
		})
	}
}
