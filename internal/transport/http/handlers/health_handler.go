package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/smmshop/internal/transport/http/errors"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a backing store answers. A nil check means the
// store was never configured.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	postgres HealthCheck
	redis    HealthCheck
}

func NewHealthHandler(postgres, redis HealthCheck) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Get always answers 200 so load balancers keep routing to a degraded
// instance; the body says which stores are down.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "ok",
		Postgres: probe(ctx, h.postgres),
		Redis:    probe(ctx, h.redis),
	}
	if resp.Postgres != "up" || resp.Redis != "up" {
		resp.Status = "degraded"
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func probe(ctx context.Context, check HealthCheck) string {
	if check == nil {
		return "not_configured"
	}
	if err := check(ctx); err != nil {
		return "down"
	}
	return "up"
}
