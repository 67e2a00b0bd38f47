package dto

import (
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// CreatePaymentSessionRequest optionally states the amount; omitted means
// the booking total
type CreatePaymentSessionRequest struct {
	Amount float64 `json:"amount,omitempty"`
}

// VerifyPaymentRequest is a staff attestation that an external transaction
// settled the session
type VerifyPaymentRequest struct {
	ExternalTransactionID string `json:"external_transaction_id" binding:"required"`
	Method                string `json:"method" binding:"required"`
}

// PaymentSessionResponse represents a payment session in API response
type PaymentSessionResponse struct {
	ID               string     `json:"id"`
	BookingID        string     `json:"booking_id"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	QRPayload        string     `json:"qr_payload"`
	Status           string     `json:"status"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RemainingSeconds int        `json:"remaining_seconds"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	ExpiredAt        *time.Time `json:"expired_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SessionFromDomain converts a session; remaining is computed by the caller's clock
func SessionFromDomain(s *domain.PaymentSession, remaining int) *PaymentSessionResponse {
	return &PaymentSessionResponse{
		ID:               s.ID,
		BookingID:        s.BookingID,
		Amount:           s.Amount,
		Currency:         s.Currency,
		QRPayload:        s.QRPayload,
		Status:           string(s.Status),
		ExpiresAt:        s.ExpiresAt,
		RemainingSeconds: remaining,
		PaidAt:           s.PaidAt,
		ExpiredAt:        s.ExpiredAt,
		FailedAt:         s.FailedAt,
		FailureReason:    s.FailureReason,
		CreatedAt:        s.CreatedAt,
	}
}

// VerifyPaymentResponse is the committed result of a verification
type VerifyPaymentResponse struct {
	Session *PaymentSessionResponse `json:"session"`
	Payment *domain.Payment         `json:"payment"`
	Booking *BookingResponse        `json:"booking"`
}

// SweepResponse reports how many sessions a sweep expired
type SweepResponse struct {
	Expired int `json:"expired"`
}
