package validation

import (
	"testing"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "plain", email: "anna@shop.io", valid: true},
		{name: "mixed case", email: "Anna.S@Shop.IO", valid: true},
		{name: "no domain dot", email: "anna@localhost", valid: false},
		{name: "display name", email: "Anna <anna@shop.io>", valid: false},
		{name: "spaces", email: " anna@shop.io", valid: false},
		{name: "missing at", email: "anna.shop.io", valid: false},
		{name: "empty string", email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{phone: "+7 (987) 123-45-67", valid: true},
		{phone: "98765", valid: true},
		{phone: "1234", valid: false},
		{phone: "12+345678", valid: false},
		{phone: "call me", valid: false},
		{phone: "1234567890123456", valid: false},
		{phone: "", valid: false},
	}

	for _, tt := range tests {
		if got := IsValidPhone(tt.phone); got != tt.valid {
			t.Fatalf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.valid)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.OrderStatus
		ok       bool
	}{
		{model.OrderStatusPlaced, model.OrderStatusPacked, true},
		{model.OrderStatusPacked, model.OrderStatusShipped, true},
		{model.OrderStatusShipped, model.OrderStatusDelivered, true},
		{model.OrderStatusPlaced, model.OrderStatusShipped, false},
		{model.OrderStatusDelivered, model.OrderStatusPlaced, false},
		{model.OrderStatusShipped, model.OrderStatusCancelled, true},
		{model.OrderStatusDelivered, model.OrderStatusCancelled, false},
		{model.OrderStatusCancelled, model.OrderStatusCancelled, false},
		{model.OrderStatusCancelled, model.OrderStatusPlaced, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestIsCustomerCancellable(t *testing.T) {
	if !IsCustomerCancellable(model.OrderStatusPacked) {
		t.Fatalf("packed order must be cancellable")
	}
	if IsCustomerCancellable(model.OrderStatusShipped) {
		t.Fatalf("shipped order must not be cancellable")
	}
}

func TestIsValidPaymentMethod(t *testing.T) {
	if !IsValidPaymentMethod(model.PaymentGateway) {
		t.Fatalf("gateway must be valid")
	}
	if IsValidPaymentMethod("crypto") {
		t.Fatalf("crypto must be invalid")
	}
}

func TestIsKnownOrderStatus(t *testing.T) {
	if !IsKnownOrderStatus(model.OrderStatusShipped) {
		t.Fatalf("shipped must be known")
	}
	if IsKnownOrderStatus("Shipped") || IsKnownOrderStatus("completed") {
		t.Fatalf("only lower-case lifecycle statuses are known")
	}
}

func TestCanTransitionEmail(t *testing.T) {
	tests := []struct {
		from, to model.EmailStatus
		want     bool
	}{
		{model.EmailQueued, model.EmailSent, true},
		{model.EmailQueued, model.EmailFailed, true},
		{model.EmailFailed, model.EmailQueued, true},
		{model.EmailFailed, model.EmailSent, false},
		{model.EmailSent, model.EmailQueued, false},
		{model.EmailQueued, model.EmailQueued, false},
	}

	for _, tt := range tests {
		if got := CanTransitionEmail(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransitionEmail(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsKnownEmailStatus(t *testing.T) {
	if !IsKnownEmailStatus(model.EmailFailed) {
		t.Fatalf("failed must be known")
	}
	if IsKnownEmailStatus("bounced") {
		t.Fatalf("bounced must be unknown")
	}
}
