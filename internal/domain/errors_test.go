package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		invalid   bool
		integrity bool
	}{
		{name: "cart not found", err: ErrCartNotFound, notFound: true},
		{name: "order not found", err: ErrOrderNotFound, notFound: true},
		{name: "wrapped order not found", err: fmt.Errorf("load order: %w", ErrOrderNotFound), notFound: true},
		{name: "empty cart", err: ErrEmptyCart, invalid: true},
		{name: "invalid line items", err: ErrInvalidLineItems, invalid: true},
		{name: "status required", err: ErrStatusRequired, invalid: true},
		{name: "invalid cart state", err: ErrInvalidCartState, integrity: true},
		{name: "order user missing", err: errors.Join(ErrOrderUserMissing, errors.New("extra")), integrity: true},
		{name: "order product missing", err: ErrOrderProductMissing, integrity: true},
		{name: "plain error", err: errors.New("boom")},
		{name: "nil error", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := IsInvalidState(tt.err); got != tt.invalid {
				t.Errorf("IsInvalidState() = %v, want %v", got, tt.invalid)
			}
			if got := IsIntegrityViolation(tt.err); got != tt.integrity {
				t.Errorf("IsIntegrityViolation() = %v, want %v", got, tt.integrity)
			}
		})
	}
}

func TestClassifiedErrorKeepsOwnMessage(t *testing.T) {
	if ErrEmptyCart.Error() != "cart is empty" {
		t.Fatalf("unexpected message: %q", ErrEmptyCart.Error())
	}
	if errors.Is(ErrEmptyCart, ErrCartNotFound) {
		t.Fatal("empty cart must not match cart not found")
	}
}
