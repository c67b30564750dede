package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/rules"
	catalogsvc "github.com/ivankudzin/smmshop/internal/services/catalog"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type CatalogHandler struct {
	service *catalogsvc.Service
	pricing rules.Pricing
	logger  *zap.Logger
}

func NewCatalogHandler(service *catalogsvc.Service, pricing rules.Pricing, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{service: service, pricing: pricing, logger: logger}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	platform := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("platform")))
	items, err := h.service.List(r.Context(), platform)
	if err != nil {
		h.handleError(w, err)
		return
	}

	if platform == "" {
		platform = "all"
	}
	resp := dto.ServicesResponse{Platform: platform, Items: make([]dto.ServiceItem, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, serviceItem(item))
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeNotConfigured(w)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "service id must be a positive integer")
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ServiceDetailResponse{
		Service: serviceItem(item),
		Pricing: pricingResponse(h.pricing),
	})
}

func (h *CatalogHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalogsvc.ErrUnknownPlatform):
		writeBadRequest(w, "VALIDATION_ERROR", "unknown platform")
	case errors.Is(err, catalogsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, catalogsvc.ErrNotFound):
		writeNotFound(w, "service not found")
	default:
		h.logger.Error("catalog request failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
