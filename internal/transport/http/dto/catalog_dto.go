package dto

import "time"

type ServiceItem struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Platform    string    `json:"platform"`
	Price       string    `json:"price"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ServicesResponse struct {
	Platform string        `json:"platform"`
	Items    []ServiceItem `json:"items"`
}

type ServiceDetailResponse struct {
	Service ServiceItem     `json:"service"`
	Pricing PricingResponse `json:"pricing"`
}
