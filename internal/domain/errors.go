package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the actor is authenticated but is not a party allowed to act on the resource.
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrInvalidTransition is returned by the job and transaction state machines for edges that are not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConcurrentUpdate signals a lost compare-and-set race on a versioned row.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrOperationInProgress is returned while another process holds the money-movement lock for the same job.
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBlacklisted         = errors.New("phone number is blacklisted")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	// ErrGatewayRejected is a definitive refusal by the payment gateway; retrying the same request will not help.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
	// ErrGatewayUnavailable covers transport failures and 5xx/429 responses that are safe to retry.
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrUnsupportedEventType = errors.New("unsupported event type")
)
