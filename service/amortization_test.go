package service

import (
	"errors"
	"testing"

	"reward-advisor/domain"
)

func TestPaymentToClear_WithInterest(t *testing.T) {
	payment, err := PaymentToClear(10000, 0.12, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Standard annuity: 10000 at 1%/month over 24 months.
	if payment != 470.73 {
		t.Errorf("expected 470.73, got %.2f", payment)
	}
}

func TestPaymentToClear_ZeroInterest(t *testing.T) {
	payment, err := PaymentToClear(1200, 0, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment != 100 {
		t.Errorf("expected 100.00, got %.2f", payment)
	}
}

func TestPaymentToClear_InvalidBalance(t *testing.T) {
	_, err := PaymentToClear(0, 0.10, 12)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for invalid balance, got %v", err)
	}
}

func TestPaymentToClear_InvalidTerm(t *testing.T) {
	_, err := PaymentToClear(1000, 0.10, 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for invalid term, got %v", err)
	}
}
