package domain

import "errors"

// Hard failures. Engines wrap these with context via fmt.Errorf("%w: ...").
var (
	ErrValidation          = errors.New("invalid input")
	ErrNoEligibleCards     = errors.New("no eligible cards")
	ErrCategoryRequired    = errors.New("transaction category required")
	ErrPlanDoesNotConverge = errors.New("payoff plan does not converge")
	ErrNoStructuredPayload = errors.New("oracle: no structured payload")
	ErrSchemaViolation     = errors.New("oracle: schema violation")
)
