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

// PricingHandler serves public price quotes and availability
type PricingHandler struct {
	pricing      service.PricingService
	coupons      service.CouponService
	availability service.AvailabilityService
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricing service.PricingService, coupons service.CouponService, availability service.AvailabilityService) *PricingHandler {
	return &PricingHandler{
		pricing:      pricing,
		coupons:      coupons,
		availability: availability,
	}
}

// Quote handles POST /pricing/quote
// A rejected coupon still returns the undiscounted quote with the reason attached
func (h *PricingHandler) Quote(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.pricing.quote")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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
		attribute.String("hotel_id", req.HotelID),
		attribute.String("room_type_id", req.RoomTypeID),
		attribute.Bool("with_coupon", req.CouponCode != ""),
	)

	quote, err := h.pricing.Quote(ctx, req.HotelID, req.RoomTypeID, checkIn, checkOut, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	var coupon *domain.CouponValidation
	if req.CouponCode != "" {
		userID := c.GetString(middleware.ContextKeyUserID)
		coupon, err = h.coupons.Validate(ctx, req.CouponCode, req.HotelID, quote.Subtotal, userID)
		if err != nil {
			span.RecordError(err)
			handleError(c, err)
			return
		}
		if coupon.Valid {
			quote, err = h.pricing.Quote(ctx, req.HotelID, req.RoomTypeID, checkIn, checkOut, coupon.DiscountAmount)
			if err != nil {
				span.RecordError(err)
				handleError(c, err)
				return
			}
		}
	}

	span.SetAttributes(attribute.Float64("total", quote.Total))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.QuoteFromDomain(quote, coupon))
}

// Availability handles GET /availability
func (h *PricingHandler) Availability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.availability.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	hotelID := c.Query("hotel_id")
	roomTypeID := c.Query("room_type_id")
	if hotelID == "" || roomTypeID == "" {
		response.BadRequest(c, "hotel_id and room_type_id are required")
		return
	}
	checkIn, checkOut, err := dto.ParseStay(c.Query("check_in_date"), c.Query("check_out_date"))
	if err != nil {
		handleError(c, err)
		return
	}

	n, err := h.availability.AvailableCount(ctx, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.AvailabilityResponse{
		HotelID:        hotelID,
		RoomTypeID:     roomTypeID,
		CheckIn:        domain.FormatDate(checkIn),
		CheckOut:       domain.FormatDate(checkOut),
		AvailableRooms: n,
		IsAvailable:    n > 0,
	})
}

// ValidateCoupon handles POST /coupons/validate
// A rejected coupon is returned with 200 and valid=false
func (h *PricingHandler) ValidateCoupon(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.coupon.validate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID := c.GetString(middleware.ContextKeyUserID)
	result, err := h.coupons.Validate(ctx, req.Code, req.HotelID, req.BookingAmount, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("valid", result.Valid))
	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
