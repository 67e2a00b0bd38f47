package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testMerchant = Merchant{ID: "hotel@upi", Name: "Hotel Booking"}

func TestNewPaymentSession(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewPaymentSession("b1", 7080, "INR", testMerchant, 5*time.Minute, now)
	if err != nil {
		t.Fatalf("NewPaymentSession() error = %v", err)
	}

	if s.Status != SessionStatusPending {
		t.Errorf("Status = %s, want PENDING", s.Status)
	}
	if !s.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want now+5m", s.ExpiresAt)
	}
	wantPrefix := "upi://pay?pa=hotel@upi&pn=Hotel%20Booking&am=7080.00&cu=INR&tr=HBP"
	if !strings.HasPrefix(s.QRPayload, wantPrefix) {
		t.Errorf("QRPayload = %q, want prefix %q", s.QRPayload, wantPrefix)
	}
	if !strings.HasSuffix(s.QRPayload, ReferenceFromToken(s.Token)) {
		t.Errorf("QRPayload = %q should end with the token reference", s.QRPayload)
	}

	if _, err := NewPaymentSession("b1", 0, "INR", testMerchant, time.Minute, now); !IsValidationError(err) {
		t.Errorf("zero amount error = %v, want ValidationError", err)
	}
}

func TestPaymentSession_Expiry(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := NewPaymentSession("b1", 100, "INR", testMerchant, 5*time.Minute, now)

	if s.IsExpiredAt(now.Add(5 * time.Minute)) {
		t.Error("session should still be open exactly at expires_at")
	}
	if !s.IsExpiredAt(now.Add(5*time.Minute + time.Second)) {
		t.Error("session should be expired one second after expires_at")
	}

	if got := s.RemainingSeconds(now.Add(90 * time.Second)); got != 210 {
		t.Errorf("RemainingSeconds() = %d, want 210", got)
	}
	if got := s.RemainingSeconds(now.Add(10 * time.Minute)); got != 0 {
		t.Errorf("RemainingSeconds() past expiry = %d, want 0", got)
	}
}

func TestPaymentSession_Transitions(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	fresh := func() *PaymentSession {
		s, _ := NewPaymentSession("b1", 100, "INR", testMerchant, 5*time.Minute, now)
		return s
	}

	s := fresh()
	if err := s.MarkPaid(now.Add(time.Minute)); err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if err := s.MarkPaid(now.Add(time.Minute)); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("second MarkPaid() error = %v, want ErrAlreadyVerified", err)
	}
	if err := s.Expire(now.Add(time.Hour)); !IsInvalidStateError(err) {
		t.Errorf("Expire() on PAID error = %v, want InvalidStateError", err)
	}

	s = fresh()
	if err := s.MarkPaid(now.Add(6 * time.Minute)); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("MarkPaid() after deadline error = %v, want ErrSessionExpired", err)
	}
	if s.Status != SessionStatusPending {
		t.Errorf("failed MarkPaid changed status to %s", s.Status)
	}
	if err := s.Expire(now.Add(6 * time.Minute)); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}
	if err := s.MarkPaid(now.Add(6 * time.Minute)); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("MarkPaid() on EXPIRED error = %v, want ErrSessionExpired", err)
	}

	s = fresh()
	if err := s.Fail("declined", now); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if !s.Status.IsTerminal() || s.FailureReason != "declined" {
		t.Errorf("Fail() left status=%s reason=%q", s.Status, s.FailureReason)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if m, err := ParsePaymentMethod(""); err != nil || m != PaymentMethodUPI {
		t.Errorf("ParsePaymentMethod(\"\") = %v, %v, want upi", m, err)
	}
	if m, err := ParsePaymentMethod("CARD"); err != nil || m != PaymentMethodCard {
		t.Errorf("ParsePaymentMethod(CARD) = %v, %v, want card", m, err)
	}
	if _, err := ParsePaymentMethod("crypto"); !IsValidationError(err) {
		t.Errorf("ParsePaymentMethod(crypto) error = %v, want ValidationError", err)
	}
}
