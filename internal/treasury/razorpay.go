package treasury

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/sharath018/event-escrow-backend/config"
)

type razorpayGateway struct {
	client *razorpay.Client
	cfg    *config.Config
}

// NewRazorpayGateway builds the production Gateway on top of the Razorpay
// client.
func NewRazorpayGateway(cfg *config.Config) Gateway {
	return &razorpayGateway{
		client: razorpay.NewClient(cfg.RazorpayKey, cfg.RazorpaySecret),
		cfg:    cfg,
	}
}

// ==============================
// 💳 Create Order
func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":          amount,
		"currency":        "INR",
		"payment_capture": 1,
		"notes":           notes,
	}

	order, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order creation failed: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		return "", errors.New("unable to extract order_id from Razorpay response")
	}
	return orderID, nil
}

// ==============================
// 💸 Refund — overpayment excess back to the payer
func (g *razorpayGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"notes": notes,
	}

	refund, err := g.client.Payment.Refund(paymentID, int(amount), data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund failed: %w", err)
	}

	refundID, ok := refund["id"].(string)
	if !ok {
		return "", errors.New("unable to extract refund id from Razorpay response")
	}
	return refundID, nil
}

// ==============================
// 🏦 Payout — owner withdrawal to the configured account
func (g *razorpayGateway) Payout(ctx context.Context, account string, amount int64, reference string) (string, error) {
	data := map[string]interface{}{
		"account":  account,
		"amount":   amount,
		"currency": "INR",
		"notes": map[string]interface{}{
			"reference": reference,
		},
	}

	transfer, err := g.client.Transfer.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay transfer failed: %w", err)
	}

	transferID, ok := transfer["id"].(string)
	if !ok {
		return "", errors.New("unable to extract transfer id from Razorpay response")
	}
	return transferID, nil
}

// ==============================
// 🔐 Verify HMAC Signature (checkout callback)
func (g *razorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, g.cfg.RazorpaySecret)
}

// VerifySignature computes the expected Razorpay checkout signature
// (HMAC-SHA256 over "orderID|paymentID") and compares in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
