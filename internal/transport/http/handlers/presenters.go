package handlers

import (
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/model"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	"github.com/ivankudzin/smmshop/internal/transport/http/dto"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pricingResponse(p rules.Pricing) dto.PricingResponse {
	return dto.PricingResponse{
		UnitScale:    p.UnitScale,
		MinQuantity:  p.MinQuantity,
		QuantityStep: p.QuantityStep,
	}
}

func serviceItem(s model.Service) dto.ServiceItem {
	return dto.ServiceItem{
		ID:          s.ID,
		Slug:        s.Slug,
		Name:        s.Name,
		Platform:    string(s.Platform),
		Price:       money(s.Price),
		Description: s.Description,
		CreatedAt:   s.CreatedAt,
	}
}

func orderItem(o model.Order) dto.OrderItem {
	return dto.OrderItem{
		ID:        o.ID,
		ServiceID: o.ServiceID,
		Link:      o.Link,
		Quantity:  o.Quantity,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

func listedOrderItem(item ordersvc.Item) dto.OrderItem {
	out := orderItem(item.Order)
	out.Service = &dto.OrderServiceInfo{
		Name:     item.Service.Name,
		Platform: string(item.Service.Platform),
		Price:    money(item.Service.Price),
	}
	presentation := item.Presentation
	out.Presentation = &presentation
	return out
}

func transactionItem(t model.Transaction) dto.TransactionItem {
	return dto.TransactionItem{
		ID:         t.ID,
		OrderID:    t.OrderID,
		Amount:     money(t.Amount),
		Type:       string(t.Type),
		Reference:  t.Reference,
		Status:     string(t.Status),
		HasReceipt: t.ReceiptKey != "",
		CreatedAt:  t.CreatedAt,
		ResolvedAt: t.ResolvedAt,
	}
}

func transactionItems(items []model.Transaction) []dto.TransactionItem {
	out := make([]dto.TransactionItem, 0, len(items))
	for _, t := range items {
		out = append(out, transactionItem(t))
	}
	return out
}
