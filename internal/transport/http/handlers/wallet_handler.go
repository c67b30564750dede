package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	walletsvc "github.com/ivankudzin/smmshop/internal/services/wallet"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type WalletHandler struct {
	service *walletsvc.Service
	logger  *zap.Logger
}

func NewWalletHandler(service *walletsvc.Service, logger *zap.Logger) *WalletHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletHandler{service: service, logger: logger}
}

func (h *WalletHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	overview, err := h.service.Overview(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WalletResponse{
		Balance:      money(overview.Balance),
		Transactions: transactionItems(overview.Transactions),
	})
}

func (h *WalletHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	info, err := h.service.AddFundsInfo(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	amounts := make([]string, 0, len(info.PredefinedAmounts))
	for _, a := range info.PredefinedAmounts {
		amounts = append(amounts, money(a))
	}
	httperrors.Write(w, http.StatusOK, dto.AddFundsResponse{
		BankDetails: dto.BankDetailsResponse{
			Bank:          info.Bank,
			AccountName:   info.AccountName,
			AccountNumber: info.AccountNumber,
		},
		PredefinedAmounts: amounts,
		Reference:         info.Reference,
	})
}

func (h *WalletHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.CreateDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	txn, err := h.service.CreateDeposit(r.Context(), identity.UserID, req.Amount, req.Reference)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.DepositResponse{
		Transaction: transactionItem(txn),
		Title:       "Deposit Request Submitted",
		Message:     "Your wallet will be credited once the transfer is confirmed.",
		Redirect:    "/wallet",
	})
}

// UploadReceipt takes the raw file as the request body; Content-Type names
// the file type.
func (h *WalletHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	txn, err := h.service.AttachReceipt(r.Context(), identity.UserID, chi.URLParam(r, "reference"), walletsvc.Receipt{
		Body:        http.MaxBytesReader(w, r.Body, walletsvc.MaxReceiptBytes),
		Size:        r.ContentLength,
		ContentType: r.Header.Get("Content-Type"),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DepositResponse{
		Transaction: transactionItem(txn),
		Title:       "Receipt Uploaded",
	})
}

func (h *WalletHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walletsvc.ErrInvalidAmount):
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "INVALID_AMOUNT",
			Title:   "Invalid Amount",
			Message: "Please enter a valid amount greater than zero with at most two decimals.",
		})
	case errors.Is(err, walletsvc.ErrInvalidReference):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid deposit reference")
	case errors.Is(err, walletsvc.ErrInvalidReceipt):
		writeBadRequest(w, "VALIDATION_ERROR", "receipt must be a JPEG, PNG, WebP or PDF file up to 5 MB")
	case errors.Is(err, walletsvc.ErrDepositNotFound):
		writeNotFound(w, "deposit not found")
	case errors.Is(err, walletsvc.ErrDepositNotPending):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "DEPOSIT_NOT_PENDING",
			Message: "this deposit has already been processed",
		})
	case errors.Is(err, walletsvc.ErrReceiptsDisabled):
		writeNotConfigured(w)
	case errors.Is(err, walletsvc.ErrReferenceExhausted):
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "REFERENCE_UNAVAILABLE",
			Message: "could not allocate a deposit reference, please retry",
		})
	default:
		h.logger.Error("wallet request failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
