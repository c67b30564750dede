package dto

type PurchaseRequest struct {
	ServiceID int64  `json:"service_id"`
	Link      string `json:"link"`
	Quantity  int    `json:"quantity"`
}

type PurchaseResponse struct {
	Order    OrderItem `json:"order"`
	Total    string    `json:"total"`
	Balance  string    `json:"balance"`
	Replayed bool      `json:"replayed"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Redirect string    `json:"redirect"`
}
