package handler

import (
	"net/http"
	"strconv"

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

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := currentUser(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}
	checkIn, checkOut, err := dto.ParseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("hotel_id", req.HotelID),
		attribute.String("room_type_id", req.RoomTypeID),
	)

	booking, err := h.bookingService.Create(ctx, &service.CreateBookingInput{
		HotelID:    req.HotelID,
		RoomTypeID: req.RoomTypeID,
		UserID:     userID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guest:      req.Guest(),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.FromDomain(booking))
}

// GetUserBookings handles GET /bookings
func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// Parse pagination parameters
	page := 1
	pageSize := 20
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if n, err := strconv.Atoi(ps); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	bookings, total, err := h.bookingService.ListMyBookings(ctx, userID, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.SuccessWithMeta(c, dto.FromDomainList(bookings), dto.PageMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	booking, ok := h.loadVisible(c, c.Param("id"))
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(booking))
}

// CancelBooking handles POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	booking, ok := h.loadVisible(c, c.Param("id"))
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	actor := c.GetString(middleware.ContextKeyUserID)
	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("actor", actor),
	)

	result, err := h.bookingService.Cancel(ctx, booking.ID, req.Reason, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(result))
}

// CheckIn handles POST /bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.check_in")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	bookingID := c.Param("id")
	actor := c.GetString(middleware.ContextKeyUserID)
	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("room_id", req.RoomID),
	)

	result, err := h.bookingService.CheckIn(ctx, bookingID, req.RoomID, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(result))
}

// CheckOut handles POST /bookings/:id/check-out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.check_out")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	result, err := h.bookingService.CheckOut(ctx, bookingID, c.GetString(middleware.ContextKeyUserID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(result))
}

// MarkNoShow handles POST /bookings/:id/no-show
func (h *BookingHandler) MarkNoShow(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.no_show")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	result, err := h.bookingService.MarkNoShow(ctx, bookingID, c.GetString(middleware.ContextKeyUserID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(result))
}

// loadVisible fetches a booking the caller may see: their own, or any for staff.
// Other users' bookings are reported as not found.
func (h *BookingHandler) loadVisible(c *gin.Context, bookingID string) (*domain.Booking, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	if bookingID == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "booking id required", "")
		return nil, false
	}

	booking, err := h.bookingService.Get(c.Request.Context(), bookingID)
	if err != nil {
		handleError(c, err)
		return nil, false
	}
	if booking.UserID != userID && !middleware.IsStaff(c) {
		handleError(c, domain.NewNotFoundError("booking", bookingID))
		return nil, false
	}
	return booking, true
}
