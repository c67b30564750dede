package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
)

type Transaction struct {
	ID         int64                   `json:"id"`
	UserID     uuid.UUID               `json:"user_id"`
	OrderID    *int64                  `json:"order_id,omitempty"`
	Amount     decimal.Decimal         `json:"amount"`
	Type       enums.TransactionType   `json:"type"`
	Reference  string                  `json:"reference,omitempty"`
	Status     enums.TransactionStatus `json:"status"`
	ReceiptKey string                  `json:"-"`
	CreatedAt  time.Time               `json:"created_at"`
	ResolvedAt *time.Time              `json:"resolved_at,omitempty"`
}
