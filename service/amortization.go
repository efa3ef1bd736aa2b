package service

import (
	"fmt"
	"math"

	"reward-advisor/domain"
)

// PaymentToClear returns the fixed monthly payment that retires balance at
// annualRate (fraction) in exactly months payments.
func PaymentToClear(balance, annualRate float64, months int) (float64, error) {
	if !finite(balance) || balance <= 0 {
		return 0, fmt.Errorf("%w: balance must be positive", domain.ErrValidation)
	}
	if !finite(annualRate) || annualRate < 0 {
		return 0, fmt.Errorf("%w: interest rate must be non-negative", domain.ErrValidation)
	}
	if months <= 0 || months > MaxDebtPayoffMonths {
		return 0, fmt.Errorf("%w: term must be between 1 and %d months", domain.ErrValidation, MaxDebtPayoffMonths)
	}

	if annualRate == 0 {
		return roundTo2Decimals(balance / float64(months)), nil
	}

	monthlyRate := annualRate / 12
	n := float64(months)
	payment := balance * (monthlyRate / (1 - math.Pow(1+monthlyRate, -n)))
	return roundTo2Decimals(payment), nil
}
