package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// VerifyRequest describes an external transaction claimed to settle a session
type VerifyRequest struct {
	SessionID             string
	BookingID             string
	ExternalTransactionID string
	Amount                float64
	Currency              string
	Method                domain.PaymentMethod
}

// Verdict is the payment rail's answer for a transaction
type Verdict struct {
	Approved bool
	// Reason explains a definitive decline
	Reason string
	// RailStatus is the raw status reported by the rail, if any
	RailStatus string
}

// Approved returns an approving verdict
func Approved(railStatus string) *Verdict {
	return &Verdict{Approved: true, RailStatus: railStatus}
}

// Declined returns a definitive failure verdict
func Declined(reason, railStatus string) *Verdict {
	return &Verdict{Approved: false, Reason: reason, RailStatus: railStatus}
}

// TransactionVerifier checks an external transaction against a payment rail.
// A returned error means the rail could not give an answer; a declined
// verdict means the transaction definitively failed.
type TransactionVerifier interface {
	Name() string
	Verify(ctx context.Context, req *VerifyRequest) (*Verdict, error)
}

// ManualVerifier approves transactions attested by staff, such as cash or
// a UPI credit seen on the merchant statement
type ManualVerifier struct{}

func NewManualVerifier() *ManualVerifier {
	return &ManualVerifier{}
}

func (v *ManualVerifier) Name() string {
	return "manual"
}

func (v *ManualVerifier) Verify(ctx context.Context, req *VerifyRequest) (*Verdict, error) {
	if req == nil || req.ExternalTransactionID == "" {
		return nil, domain.NewValidationError("external_transaction_id", "is required")
	}
	return Approved("attested"), nil
}

// Registry picks a verifier per payment method, falling back to a default
type Registry struct {
	mu        sync.RWMutex
	verifiers map[domain.PaymentMethod]TransactionVerifier
	fallback  TransactionVerifier
}

// NewRegistry creates a registry that uses fallback for unregistered methods
func NewRegistry(fallback TransactionVerifier) *Registry {
	if fallback == nil {
		fallback = NewManualVerifier()
	}
	return &Registry{
		verifiers: make(map[domain.PaymentMethod]TransactionVerifier),
		fallback:  fallback,
	}
}

// Register routes method to v
func (r *Registry) Register(method domain.PaymentMethod, v TransactionVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[method] = v
}

// For returns the verifier for method
func (r *Registry) For(method domain.PaymentMethod) TransactionVerifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.verifiers[method]; ok {
		return v
	}
	return r.fallback
}

// Verify dispatches req to the verifier registered for its method
func (r *Registry) Verify(ctx context.Context, req *VerifyRequest) (*Verdict, error) {
	v := r.For(req.Method)
	verdict, err := v.Verify(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s verifier: %w", v.Name(), err)
	}
	return verdict, nil
}
