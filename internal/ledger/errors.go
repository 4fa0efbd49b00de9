package ledger

import "errors"

// Typed, distinguishable failures. Every operation aborts on the first
// failed check; nothing is retried and no partial state survives.
var (
	// ErrEventNotFound — referenced event id is outside [0, EventCount).
	ErrEventNotFound = errors.New("event not found")

	// ErrUnauthorized — caller lacks the owner or creator role required.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyOpen / ErrAlreadyClosed — invalid window transition.
	ErrAlreadyOpen   = errors.New("registration already open")
	ErrAlreadyClosed = errors.New("registration already closed")

	// ErrRegistrationClosed — registration attempted while the window is closed.
	ErrRegistrationClosed = errors.New("registration is closed")

	// ErrCapacityExceeded — participant list already at max_participants.
	ErrCapacityExceeded = errors.New("event capacity reached")

	// ErrInsufficientPayment — paid amount below the registration fee.
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrDeadlineExceeded — current time past the event deadline.
	ErrDeadlineExceeded = errors.New("registration deadline exceeded")

	// ErrAlreadyRegistered — caller already in the participant set.
	ErrAlreadyRegistered = errors.New("already registered for this event")

	// ErrNothingToWithdraw — owner withdrawal attempted at zero balance.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrValidation — malformed creation input. Wrapped with detail via %w.
	ErrValidation = errors.New("validation failed")

	// ErrReentrantCall — nested call into a fund-moving operation while one
	// is already executing. Hard rejection, never queued.
	ErrReentrantCall = errors.New("reentrant call rejected")
)
