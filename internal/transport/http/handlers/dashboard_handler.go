package handlers

import (
	"net/http"

	"go.uber.org/zap"

	dashboardsvc "github.com/ivankudzin/smmshop/internal/services/dashboard"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type DashboardHandler struct {
	service *dashboardsvc.Service
	logger  *zap.Logger
}

func NewDashboardHandler(service *dashboardsvc.Service, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{service: service, logger: logger}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("dashboard summary failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.DashboardResponse{
		Balance:            money(summary.Balance),
		ActiveOrders:       summary.ActiveOrders,
		TotalOrders:        summary.TotalOrders,
		RecentTransactions: transactionItems(summary.RecentTransactions),
	})
}
