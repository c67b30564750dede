package handlers

import (
	"net/http"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

type ConfigHandler struct {
	configured func() bool
	pricing    rules.Pricing
}

func NewConfigHandler(configured func() bool, pricing rules.Pricing) *ConfigHandler {
	return &ConfigHandler{configured: configured, pricing: pricing}
}

func (h *ConfigHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	platforms := make([]string, 0, len(enums.Platforms))
	for _, p := range enums.Platforms {
		platforms = append(platforms, string(p))
	}

	httperrors.Write(w, http.StatusOK, dto.ConfigResponse{
		Configured: h.configured != nil && h.configured(),
		Pricing:    pricingResponse(h.pricing),
		Platforms:  platforms,
		OrderTabs:  ordersvc.Tabs(),
	})
}
