package rules

import "github.com/ivankudzin/smmshop/internal/domain/enums"

// StatusPresentation is what a client needs to draw an order status badge.
type StatusPresentation struct {
	State       string `json:"state"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

const UnknownStatusState = "unknown"

var statusPresentations = map[enums.OrderStatus]StatusPresentation{
	enums.OrderStatusPending: {
		State:       string(enums.OrderStatusPending),
		Icon:        "clock",
		Color:       "yellow",
		Description: "Your order is being reviewed.",
	},
	enums.OrderStatusProcessing: {
		State:       string(enums.OrderStatusProcessing),
		Icon:        "rotate-cw",
		Color:       "blue",
		Description: "Your order is being processed.",
	},
	enums.OrderStatusCompleted: {
		State:       string(enums.OrderStatusCompleted),
		Icon:        "check-circle",
		Color:       "green",
		Description: "Your order has been completed.",
	},
	enums.OrderStatusCancelled: {
		State:       string(enums.OrderStatusCancelled),
		Icon:        "alert-triangle",
		Color:       "red",
		Description: "Your order has been cancelled.",
	},
}

// PresentStatus never returns an empty presentation; unrecognized statuses
// map to an explicit unknown state.
func PresentStatus(status enums.OrderStatus) StatusPresentation {
	if p, ok := statusPresentations[status]; ok {
		return p
	}
	return StatusPresentation{
		State:       UnknownStatusState,
		Icon:        "help-circle",
		Color:       "gray",
		Description: "Status unknown.",
	}
}
