package dto

type PricingResponse struct {
	UnitScale    int `json:"unit_scale"`
	MinQuantity  int `json:"min_quantity"`
	QuantityStep int `json:"quantity_step"`
}

type ConfigResponse struct {
	Configured bool            `json:"configured"`
	Pricing    PricingResponse `json:"pricing"`
	Platforms  []string        `json:"platforms"`
	OrderTabs  []string        `json:"order_tabs"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}
