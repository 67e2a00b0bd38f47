package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/dto"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/middleware"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/response"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PaymentHandler handles payment session HTTP requests
type PaymentHandler struct {
	paymentService service.PaymentService
	bookingService service.BookingService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService service.PaymentService, bookingService service.BookingService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		bookingService: bookingService,
	}
}

// CreateSession handles POST /bookings/:id/payment-session
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.create_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	if !h.authorizeBooking(c, bookingID) {
		return
	}

	var req dto.CreatePaymentSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	span.SetAttributes(attribute.String("booking_id", bookingID))

	session, err := h.paymentService.CreateSession(ctx, bookingID, req.Amount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("session_id", session.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.SessionFromDomain(session, h.paymentService.RemainingSeconds(session)))
}

// GetSession handles GET /payment-sessions/:id
func (h *PaymentHandler) GetSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if _, ok := currentUser(c); !ok {
		return
	}

	sessionID := c.Param("id")
	span.SetAttributes(attribute.String("session_id", sessionID))

	session, err := h.paymentService.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	if !h.authorizeBooking(c, session.BookingID) {
		return
	}

	span.SetAttributes(attribute.String("status", string(session.Status)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.SessionFromDomain(session, h.paymentService.RemainingSeconds(session)))
}

// VerifyPayment handles POST /payment-sessions/:id/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.verify")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		handleError(c, err)
		return
	}

	sessionID := c.Param("id")
	actor := c.GetString(middleware.ContextKeyUserID)
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("method", string(method)),
		attribute.String("actor", actor),
	)

	result, err := h.paymentService.Verify(ctx, &service.VerifyInput{
		SessionID:             sessionID,
		ExternalTransactionID: req.ExternalTransactionID,
		Method:                method,
		Actor:                 actor,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("payment_id", result.Payment.ID))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.VerifyPaymentResponse{
		Session: dto.SessionFromDomain(result.Session, 0),
		Payment: result.Payment,
		Booking: dto.FromDomain(result.Booking),
	})
}

// SweepExpired handles POST /admin/payment-sessions/sweep
func (h *PaymentHandler) SweepExpired(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.sweep")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	n, err := h.paymentService.SweepExpired(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("expired", n))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.SweepResponse{Expired: n})
}

// ListPayments handles GET /bookings/:id/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	if !h.authorizeBooking(c, bookingID) {
		return
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))

	payments, err := h.paymentService.ListPayments(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, payments)
}

// authorizeBooking lets staff through and guests only for their own booking
func (h *PaymentHandler) authorizeBooking(c *gin.Context, bookingID string) bool {
	userID, ok := currentUser(c)
	if !ok {
		return false
	}
	if middleware.IsStaff(c) {
		return true
	}
	booking, err := h.bookingService.Get(c.Request.Context(), bookingID)
	if err != nil {
		handleError(c, err)
		return false
	}
	if booking.UserID != userID {
		handleError(c, domain.NewNotFoundError("booking", bookingID))
		return false
	}
	return true
}
