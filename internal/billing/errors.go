package billing

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrPlanNotConfigured    = errors.New("plan is not configured for payments")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMissingEmail         = errors.New("organization has no billing email")
	ErrReferenceMismatch    = errors.New("transaction does not belong to this organization")
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrGateway              = errors.New("payment gateway error")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrNoActiveSubscription = errors.New("organization has no active subscription")
)

// PaymentStatusError carries the status the gateway reported for a
// transaction that did not succeed.
type PaymentStatusError struct {
	Status string
}

func (e *PaymentStatusError) Error() string {
	return fmt.Sprintf("payment not successful: %s", e.Status)
}

func (e *PaymentStatusError) Unwrap() error { return ErrPaymentNotSuccessful }

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrGateway, op, err)
}
