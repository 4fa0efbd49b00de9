// Package treasury isolates every outbound value transfer behind a single
// Gateway interface. The ledger never talks to the payment provider
// directly — refunds and withdrawals are the only calls that move money
// out, and both go through here.
package treasury

import "context"

type Gateway interface {
	// CreateOrder bootstraps an inbound payment for the given amount
	// (smallest currency unit) and returns the provider order id.
	CreateOrder(ctx context.Context, amount int64, notes map[string]interface{}) (string, error)

	// Refund returns part of a captured payment to the payer. Used for
	// overpayment excess during registration.
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error)

	// Payout transfers custodied funds to an external account. Used for
	// owner withdrawals.
	Payout(ctx context.Context, account string, amount int64, reference string) (string, error)

	// VerifySignature checks the provider checkout signature for an
	// order/payment pair.
	VerifySignature(orderID, paymentID, signature string) bool
}
