package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
)

type Order struct {
	ID        int64             `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	ServiceID int64             `json:"service_id"`
	Link      string            `json:"link"`
	Quantity  int               `json:"quantity"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

type OrderService struct {
	Name     string          `json:"name"`
	Platform enums.Platform  `json:"platform"`
	Price    decimal.Decimal `json:"price"`
}

// OrderWithService is an order joined with the catalog fields shown in lists.
type OrderWithService struct {
	Order
	Service OrderService `json:"service"`
}
