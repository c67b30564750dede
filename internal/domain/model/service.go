package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
)

// Service is a catalog entry: one kind of engagement sold for a platform.
type Service struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Platform    enums.Platform  `json:"platform"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
