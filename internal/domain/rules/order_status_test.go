package rules

import (
	"testing"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
)

func TestPresentStatusKnown(t *testing.T) {
	tests := map[enums.OrderStatus]string{
		enums.OrderStatusPending:    "clock",
		enums.OrderStatusProcessing: "rotate-cw",
		enums.OrderStatusCompleted:  "check-circle",
		enums.OrderStatusCancelled:  "alert-triangle",
	}
	for status, icon := range tests {
		p := PresentStatus(status)
		if p.State != string(status) || p.Icon != icon || p.Description == "" {
			t.Fatalf("%s: unexpected presentation %+v", status, p)
		}
	}
}

func TestPresentStatusUnknownIsExplicit(t *testing.T) {
	p := PresentStatus("refunded")
	if p.State != UnknownStatusState {
		t.Fatalf("expected unknown state, got %q", p.State)
	}
	if p.Icon == "" || p.Description == "" {
		t.Fatalf("unknown state must still render: %+v", p)
	}
}
