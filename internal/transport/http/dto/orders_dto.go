package dto

import (
	"time"

	"github.com/ivankudzin/smmshop/internal/domain/rules"
)

type OrderServiceInfo struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Price    string `json:"price"`
}

type OrderItem struct {
	ID           int64                     `json:"id"`
	ServiceID    int64                     `json:"service_id"`
	Link         string                    `json:"link"`
	Quantity     int                       `json:"quantity"`
	Status       string                    `json:"status"`
	CreatedAt    time.Time                 `json:"created_at"`
	Service      *OrderServiceInfo         `json:"service,omitempty"`
	Presentation *rules.StatusPresentation `json:"presentation,omitempty"`
}

type OrdersResponse struct {
	Tab   string      `json:"tab"`
	Tabs  []string    `json:"tabs"`
	Items []OrderItem `json:"items"`
}
