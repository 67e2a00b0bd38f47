package domain

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is a state of a payment session
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "PENDING"
	SessionStatusPaid    SessionStatus = "PAID"
	SessionStatusExpired SessionStatus = "EXPIRED"
	SessionStatusFailed  SessionStatus = "FAILED"
)

// FailureBookingCancelled is the failure reason of sessions closed by a cancellation
const FailureBookingCancelled = "booking cancelled"

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusPaid || s == SessionStatusExpired || s == SessionStatusFailed
}

func (s SessionStatus) String() string {
	return string(s)
}

// PaymentSession is a time-boxed intent to pay for one booking
type PaymentSession struct {
	ID            string        `json:"id"`
	BookingID     string        `json:"booking_id"`
	Token         string        `json:"token"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	QRPayload     string        `json:"qr_payload"`
	Status        SessionStatus `json:"status"`
	ExpiresAt     time.Time     `json:"expires_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	ExpiredAt     *time.Time    `json:"expired_at,omitempty"`
	FailedAt      *time.Time    `json:"failed_at,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Merchant identifies the payee encoded into payment instructions
type Merchant struct {
	ID   string
	Name string
}

// NewPaymentSession mints a PENDING session expiring after window
func NewPaymentSession(bookingID string, amount float64, currency string, merchant Merchant, window time.Duration, now time.Time) (*PaymentSession, error) {
	if bookingID == "" {
		return nil, NewValidationError("booking_id", "is required")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount", "must be positive")
	}
	if window <= 0 {
		return nil, NewValidationError("window", "must be positive")
	}

	now = now.UTC()
	token := uuid.New().String()
	return &PaymentSession{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		Token:     token,
		Amount:    Round2(amount),
		Currency:  currency,
		QRPayload: BuildUPIPayload(merchant, amount, currency, ReferenceFromToken(token)),
		Status:    SessionStatusPending,
		ExpiresAt: now.Add(window),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsExpiredAt reports a PENDING session whose deadline has passed
func (s *PaymentSession) IsExpiredAt(now time.Time) bool {
	return s.Status == SessionStatusPending && now.After(s.ExpiresAt)
}

// IsOpenAt reports a PENDING session that can still be paid
func (s *PaymentSession) IsOpenAt(now time.Time) bool {
	return s.Status == SessionStatusPending && !now.After(s.ExpiresAt)
}

// RemainingSeconds is for client countdowns only; expiry is decided by IsExpiredAt
func (s *PaymentSession) RemainingSeconds(now time.Time) int {
	if s.Status != SessionStatusPending {
		return 0
	}
	return RemainingSeconds(s.ExpiresAt, now)
}

// RemainingSeconds is whole seconds until expiresAt, floored at zero
func RemainingSeconds(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Seconds()))
}

func (s *PaymentSession) requirePending(action string) error {
	if s.Status != SessionStatusPending {
		return NewInvalidStateError("payment session", s.ID, string(s.Status), action)
	}
	return nil
}

// Expire moves a PENDING session to EXPIRED
func (s *PaymentSession) Expire(now time.Time) error {
	if err := s.requirePending("expire"); err != nil {
		return err
	}
	t := now.UTC()
	s.Status = SessionStatusExpired
	s.ExpiredAt = &t
	s.UpdatedAt = t
	return nil
}

// MarkPaid moves an open session to PAID
func (s *PaymentSession) MarkPaid(now time.Time) error {
	switch {
	case s.Status == SessionStatusPaid:
		return ErrAlreadyVerified
	case s.Status == SessionStatusExpired, s.IsExpiredAt(now):
		return ErrSessionExpired
	}
	if err := s.requirePending("verify"); err != nil {
		return err
	}
	t := now.UTC()
	s.Status = SessionStatusPaid
	s.PaidAt = &t
	s.UpdatedAt = t
	return nil
}

// Fail moves a PENDING session to FAILED
func (s *PaymentSession) Fail(reason string, now time.Time) error {
	if err := s.requirePending("fail"); err != nil {
		return err
	}
	t := now.UTC()
	s.Status = SessionStatusFailed
	s.FailedAt = &t
	s.FailureReason = reason
	s.UpdatedAt = t
	return nil
}

// Clone returns a deep copy
func (s *PaymentSession) Clone() *PaymentSession {
	if s == nil {
		return nil
	}
	c := *s
	c.PaidAt = cloneTime(s.PaidAt)
	c.ExpiredAt = cloneTime(s.ExpiredAt)
	c.FailedAt = cloneTime(s.FailedAt)
	return &c
}

// ReferenceFromToken derives the short transaction reference shown to payers
func ReferenceFromToken(token string) string {
	ref := strings.ToUpper(strings.ReplaceAll(token, "-", ""))
	if len(ref) > 12 {
		ref = ref[:12]
	}
	return "HBP" + ref
}

// BuildUPIPayload renders a UPI deep link for QR rendering
func BuildUPIPayload(m Merchant, amount float64, currency, reference string) string {
	if currency == "" {
		currency = "INR"
	}
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%.2f&cu=%s&tr=%s",
		upiEscape(m.ID),
		upiEscape(m.Name),
		Round2(amount),
		upiEscape(currency),
		upiEscape(reference),
	)
}

// upiEscape query-escapes a UPI parameter, keeping VPA separators readable
func upiEscape(s string) string {
	s = strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return strings.ReplaceAll(s, "%40", "@")
}
