package orchestrator

import "errors"

var (
	// ErrInvalidInput is returned for malformed thresholds or prices,
	// before any chain call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeliveryNotFound is returned when the delivery identifier has no
	// local record.
	ErrDeliveryNotFound = errors.New("delivery not found")

	// ErrReconciliationGap is returned when a settlement transaction
	// confirmed but neither a payment-released nor a payment-refunded
	// event was found for the delivery. The local status stays unresolved;
	// it is never silently defaulted to accepted or rejected.
	ErrReconciliationGap = errors.New("settlement confirmed but no payment event found")

	// ErrStorageFailure wraps local persistence failures.
	ErrStorageFailure = errors.New("storage failure")
)
