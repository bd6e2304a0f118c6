package service

import (
	"testing"

	"github.com/comanda-next/internal/constants"
)

func TestCanAdvance(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{constants.OrderStatusNew, constants.OrderStatusConfirmed, true},
		{constants.OrderStatusNew, constants.OrderStatusReady, true},
		{constants.OrderStatusReady, constants.OrderStatusPreparing, false},
		{constants.OrderStatusPreparing, constants.OrderStatusPreparing, false},
		{constants.OrderStatusOutForDelivery, constants.OrderStatusCancelled, true},
		{constants.OrderStatusDelivered, constants.OrderStatusCancelled, false},
		{constants.OrderStatusCancelled, constants.OrderStatusNew, false},
		{constants.OrderStatusCancelled, constants.OrderStatusCancelled, false},
		{constants.OrderStatusNew, "unknown", false},
	}
	for _, tc := range cases {
		if got := CanAdvance(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanAdvance(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsKnownOrderStatus(t *testing.T) {
	if !IsKnownOrderStatus(constants.OrderStatusCancelled) {
		t.Fatalf("cancelled should be known")
	}
	if IsKnownOrderStatus("paid") {
		t.Fatalf("paid should be unknown")
	}
}
