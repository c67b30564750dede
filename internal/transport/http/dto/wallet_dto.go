package dto

import "time"

type TransactionItem struct {
	ID         int64      `json:"id"`
	OrderID    *int64     `json:"order_id,omitempty"`
	Amount     string     `json:"amount"`
	Type       string     `json:"type"`
	Reference  string     `json:"reference,omitempty"`
	Status     string     `json:"status"`
	HasReceipt bool       `json:"has_receipt"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type WalletResponse struct {
	Balance      string            `json:"balance"`
	Transactions []TransactionItem `json:"transactions"`
}

type BankDetailsResponse struct {
	Bank          string `json:"bank"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

type AddFundsResponse struct {
	BankDetails       BankDetailsResponse `json:"bank_details"`
	PredefinedAmounts []string            `json:"predefined_amounts"`
	Reference         string              `json:"reference"`
}

type CreateDepositRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

type DepositResponse struct {
	Transaction TransactionItem `json:"transaction"`
	Title       string          `json:"title,omitempty"`
	Message     string          `json:"message,omitempty"`
	Redirect    string          `json:"redirect,omitempty"`
}

type DashboardResponse struct {
	Balance            string            `json:"balance"`
	ActiveOrders       int64             `json:"active_orders"`
	TotalOrders        int64             `json:"total_orders"`
	RecentTransactions []TransactionItem `json:"recent_transactions"`
}
