package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type OrdersHandler struct {
	service *ordersvc.Service
	logger  *zap.Logger
}

func NewOrdersHandler(service *ordersvc.Service, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{service: service, logger: logger}
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	tab := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	if tab == "" {
		tab = ordersvc.TabAll
	}

	items, err := h.service.List(r.Context(), identity.UserID, tab)
	if err != nil {
		if errors.Is(err, ordersvc.ErrUnknownTab) {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown order status filter")
			return
		}
		h.logger.Error("list orders failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	resp := dto.OrdersResponse{Tab: tab, Tabs: ordersvc.Tabs(), Items: make([]dto.OrderItem, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, listedOrderItem(item))
	}
	httperrors.Write(w, http.StatusOK, resp)
}
