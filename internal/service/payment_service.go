package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/gateway"
	"github.com/prohmpiriya/hotel-booking-engine/internal/metrics"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// VerifyInput is a claim that an external transaction settled a session
type VerifyInput struct {
	SessionID             string
	ExternalTransactionID string
	Method                domain.PaymentMethod
	Actor                 string
}

// VerifyResult is the committed outcome of a successful verification
type VerifyResult struct {
	Session *domain.PaymentSession
	Payment *domain.Payment
	Booking *domain.Booking
}

// PaymentService manages time-bound payment sessions
type PaymentService interface {
	// CreateSession returns the booking's open session or mints a new one.
	// A zero amount means the booking total.
	CreateSession(ctx context.Context, bookingID string, amount float64) (*domain.PaymentSession, error)

	// GetSession returns a session, expiring it first when its deadline passed
	GetSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error)

	// Verify settles a session and confirms its booking in one unit
	Verify(ctx context.Context, in *VerifyInput) (*VerifyResult, error)

	// SweepExpired expires overdue PENDING sessions and returns how many
	SweepExpired(ctx context.Context) (int, error)

	// ListPayments lists settled payments of a booking
	ListPayments(ctx context.Context, bookingID string) ([]*domain.Payment, error)

	// RemainingSeconds is the time left on a PENDING session, floored at zero
	RemainingSeconds(session *domain.PaymentSession) int
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	bookingRepo repository.BookingRepository
	verifier    gateway.TransactionVerifier
	events      eventEmitter
	cfg         *EngineConfig
	log         *logger.Logger
}

// NewPaymentService creates a new payment service. A nil verifier approves
// staff-attested transactions only.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	bookingRepo repository.BookingRepository,
	verifier gateway.TransactionVerifier,
	eventPublisher EventPublisher,
	cfg *EngineConfig,
) PaymentService {
	if verifier == nil {
		verifier = gateway.NewManualVerifier()
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		verifier:    verifier,
		events:      newEventEmitter(eventPublisher),
		cfg:         cfg.withDefaults(),
		log:         logger.Get(),
	}
}

func (s *paymentService) CreateSession(ctx context.Context, bookingID string, amount float64) (*domain.PaymentSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.create_session")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if bookingID == "" {
		return nil, domain.NewValidationError("booking_id", "is required")
	}
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, domain.NewInvalidStateError("booking", booking.ID, string(booking.Status), "create payment session for")
	}

	total := booking.Price.Total
	if amount == 0 {
		amount = total
	}
	if domain.Round2(amount) != domain.Round2(total) {
		return nil, domain.NewValidationError("amount", fmt.Sprintf("must equal the booking total %.2f", total))
	}

	currency := booking.Price.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	now := s.cfg.now()
	candidate, err := domain.NewPaymentSession(booking.ID, amount, currency, s.cfg.Merchant, s.cfg.PaymentSessionWindow, now)
	if err != nil {
		return nil, err
	}

	session, created, err := s.paymentRepo.GetOrCreateSession(ctx, candidate, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.Bool("created", created),
	)
	if created {
		metrics.RecordSessionCreated(ctx, session.Currency)
		s.events.payment(ctx, domain.PaymentEventSessionCreated, session, nil, now)
	}
	span.SetStatus(codes.Ok, "")
	return session, nil
}

func (s *paymentService) GetSession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.get_session")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionID))

	if sessionID == "" {
		return nil, domain.NewValidationError("session_id", "is required")
	}
	session, err := s.paymentRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	if !session.IsExpiredAt(now) {
		return session, nil
	}

	expired, err := s.paymentRepo.MarkSessionExpired(ctx, session.ID, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if expired.Status == domain.SessionStatusExpired && session.Status == domain.SessionStatusPending {
		metrics.RecordSessionsExpired(ctx, "lazy", 1)
		s.events.payment(ctx, domain.PaymentEventSessionExpired, expired, nil, now)
	}
	return expired, nil
}

func (s *paymentService) Verify(ctx context.Context, in *VerifyInput) (*VerifyResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.verify")
	defer span.End()

	if in == nil {
		return nil, domain.NewValidationError("session_id", "is required")
	}
	span.SetAttributes(
		attribute.String("session_id", in.SessionID),
		attribute.String("method", string(in.Method)),
	)

	session, err := s.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case domain.SessionStatusPaid:
		return nil, domain.ErrAlreadyVerified
	case domain.SessionStatusExpired:
		return nil, domain.ErrSessionExpired
	case domain.SessionStatusFailed:
		return nil, domain.NewInvalidStateError("payment session", session.ID, string(session.Status), "verify")
	}

	now := s.cfg.now()
	payment, err := domain.NewPayment(session, in.ExternalTransactionID, in.Method, in.Actor, now)
	if err != nil {
		return nil, err
	}

	verdict, err := s.verifier.Verify(ctx, &gateway.VerifyRequest{
		SessionID:             session.ID,
		BookingID:             session.BookingID,
		ExternalTransactionID: payment.ExternalTransactionID,
		Amount:                session.Amount,
		Currency:              session.Currency,
		Method:                payment.Method,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !verdict.Approved {
		return nil, s.fail(ctx, session, payment, verdict.Reason)
	}

	paid, booking, err := s.paymentRepo.ConfirmPayment(ctx, payment, now)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			if expired, getErr := s.paymentRepo.GetSession(ctx, session.ID); getErr == nil {
				metrics.RecordSessionsExpired(ctx, "lazy", 1)
				s.events.payment(ctx, domain.PaymentEventSessionExpired, expired, nil, now)
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordPaymentVerified(ctx, string(payment.Method))
	s.events.payment(ctx, domain.PaymentEventVerified, paid, payment, now)
	s.events.booking(ctx, domain.BookingEventConfirmed, booking, now)
	s.log.Info("payment verified",
		zap.String("session_id", paid.ID),
		zap.String("booking_id", booking.ID),
		zap.String("payment_id", payment.ID),
		zap.String("method", string(payment.Method)),
		zap.String("actor", in.Actor),
	)

	span.SetAttributes(attribute.String("payment_id", payment.ID))
	span.SetStatus(codes.Ok, "")
	return &VerifyResult{Session: paid, Payment: payment, Booking: booking}, nil
}

// fail records a definitive decline from the rail
func (s *paymentService) fail(ctx context.Context, session *domain.PaymentSession, payment *domain.Payment, reason string) error {
	now := s.cfg.now()
	failed, err := s.paymentRepo.MarkSessionFailed(ctx, session.ID, reason, now)
	if err != nil {
		return err
	}
	switch failed.Status {
	case domain.SessionStatusFailed:
		metrics.RecordSessionFailed(ctx, string(payment.Method))
		s.events.payment(ctx, domain.PaymentEventSessionFailed, failed, payment, now)
		s.log.Warn("payment declined by rail",
			zap.String("session_id", failed.ID),
			zap.String("external_transaction_id", payment.ExternalTransactionID),
			zap.String("reason", reason),
		)
		return &domain.PaymentFailedError{SessionID: failed.ID, Reason: reason}
	case domain.SessionStatusPaid:
		return domain.ErrAlreadyVerified
	case domain.SessionStatusExpired:
		return domain.ErrSessionExpired
	default:
		return domain.NewInvalidStateError("payment session", failed.ID, string(failed.Status), "fail")
	}
}

func (s *paymentService) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.sweep_expired")
	defer span.End()
	start := time.Now()

	now := s.cfg.now()
	expired, err := s.paymentRepo.ExpireOverdue(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	for _, session := range expired {
		s.events.payment(ctx, domain.PaymentEventSessionExpired, session, nil, now)
	}
	metrics.RecordSessionsExpired(ctx, "sweeper", len(expired))
	metrics.RecordSweepDuration(ctx, time.Since(start).Seconds(), len(expired))

	span.SetAttributes(attribute.Int("expired", len(expired)))
	span.SetStatus(codes.Ok, "")
	return len(expired), nil
}

func (s *paymentService) ListPayments(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.payment.list")
	defer span.End()

	if _, err := s.bookingRepo.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListPayments(ctx, bookingID)
}

func (s *paymentService) RemainingSeconds(session *domain.PaymentSession) int {
	if session == nil {
		return 0
	}
	return session.RemainingSeconds(s.cfg.now())
}
