package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a guest settled a session
type PaymentMethod string

const (
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodCash, PaymentMethodBankTransfer:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return PaymentMethodUPI, nil
	}
	if !m.IsValid() {
		return "", NewValidationError("method", "must be one of upi, card, cash, bank_transfer")
	}
	return m, nil
}

// Payment is the append-only settlement record for a verified session
type Payment struct {
	ID                    string        `json:"id"`
	SessionID             string        `json:"session_id"`
	BookingID             string        `json:"booking_id"`
	Amount                float64       `json:"amount"`
	Currency              string        `json:"currency"`
	Method                PaymentMethod `json:"method"`
	ExternalTransactionID string        `json:"external_transaction_id"`
	VerifiedBy            string        `json:"verified_by"`
	CreatedAt             time.Time     `json:"created_at"`
}

// NewPayment settles session in full
func NewPayment(session *PaymentSession, externalTxnID string, method PaymentMethod, actor string, now time.Time) (*Payment, error) {
	if strings.TrimSpace(externalTxnID) == "" {
		return nil, NewValidationError("external_transaction_id", "is required")
	}
	if !method.IsValid() {
		return nil, NewValidationError("method", "is not supported")
	}
	return &Payment{
		ID:                    uuid.New().String(),
		SessionID:             session.ID,
		BookingID:             session.BookingID,
		Amount:                session.Amount,
		Currency:              session.Currency,
		Method:                method,
		ExternalTransactionID: externalTxnID,
		VerifiedBy:            actor,
		CreatedAt:             now.UTC(),
	}, nil
}
