package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeVerifier verifies card payments by reading the PaymentIntent named
// by the external transaction id
type StripeVerifier struct {
	getIntent func(id string) (*stripe.PaymentIntent, error)
}

// StripeVerifierConfig holds configuration for the Stripe verifier
type StripeVerifierConfig struct {
	SecretKey string
}

// NewStripeVerifier creates a Stripe verifier
func NewStripeVerifier(config *StripeVerifierConfig) (*StripeVerifier, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeVerifier{
		getIntent: func(id string) (*stripe.PaymentIntent, error) {
			return paymentintent.Get(id, nil)
		},
	}, nil
}

func (v *StripeVerifier) Name() string {
	return "stripe"
}

// Verify approves a succeeded intent whose amount and currency match the session
func (v *StripeVerifier) Verify(ctx context.Context, req *VerifyRequest) (*Verdict, error) {
	if req == nil || req.ExternalTransactionID == "" {
		return nil, domain.NewValidationError("external_transaction_id", "is required")
	}
	if !strings.HasPrefix(req.ExternalTransactionID, "pi_") {
		return nil, domain.NewValidationError("external_transaction_id", "must be a Stripe PaymentIntent id")
	}

	pi, err := v.getIntent(req.ExternalTransactionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return Declined("payment intent not found", ""), nil
		}
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	status := string(pi.Status)
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		// checked below
	case stripe.PaymentIntentStatusCanceled:
		return Declined("payment canceled", status), nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return Declined(fmt.Sprintf("payment declined: %s", pi.LastPaymentError.Msg), status), nil
		}
		return nil, domain.NewValidationError("external_transaction_id", "payment has not been attempted yet")
	default:
		return nil, domain.NewValidationError("external_transaction_id", fmt.Sprintf("payment is not settled yet (status %s)", status))
	}

	if want := toMinorUnits(req.Amount); pi.Amount != want {
		return Declined(fmt.Sprintf("amount mismatch: charged %d, expected %d", pi.Amount, want), status), nil
	}
	if !strings.EqualFold(string(pi.Currency), req.Currency) {
		return Declined(fmt.Sprintf("currency mismatch: charged %s, expected %s", pi.Currency, req.Currency), status), nil
	}
	return Approved(status), nil
}

// toMinorUnits converts to the smallest currency unit
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
