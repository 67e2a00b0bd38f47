package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/dto"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/response"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AdminHandler serves staff and admin management endpoints
type AdminHandler struct {
	pricing   service.PricingService
	coupons   service.CouponService
	bookings  service.BookingService
	occupancy service.OccupancyService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	pricing service.PricingService,
	coupons service.CouponService,
	bookings service.BookingService,
	occupancy service.OccupancyService,
) *AdminHandler {
	return &AdminHandler{
		pricing:   pricing,
		coupons:   coupons,
		bookings:  bookings,
		occupancy: occupancy,
	}
}

// GetPricingRules handles GET /admin/hotels/:hotelId/pricing-rules
func (h *AdminHandler) GetPricingRules(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.get_pricing_rules")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	hotelID := c.Param("hotelId")
	span.SetAttributes(attribute.String("hotel_id", hotelID))

	rules, err := h.pricing.GetPricingRules(ctx, hotelID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.PricingRulesFromDomain(rules))
}

// ReplacePricingRules handles PUT /admin/hotels/:hotelId/pricing-rules
func (h *AdminHandler) ReplacePricingRules(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.replace_pricing_rules")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.PricingRulesDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	hotelID := c.Param("hotelId")
	rules, err := req.ToDomain(hotelID)
	if err != nil {
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("hotel_id", hotelID),
		attribute.Int("seasonal", len(rules.Seasonal)),
		attribute.Int("occupancy_tiers", len(rules.Occupancy)),
	)

	saved, err := h.pricing.ReplacePricingRules(ctx, rules)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.PricingRulesFromDomain(saved))
}

// ListCoupons handles GET /admin/coupons
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_coupons")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	coupons, err := h.coupons.ListCoupons(ctx, c.Query("hotel_id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, coupons)
}

// CreateCoupon handles POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.create_coupon")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	coupon, err := h.coupons.CreateCoupon(ctx, req.ToDomain())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("coupon_id", coupon.ID), attribute.String("code", coupon.Code))
	span.SetStatus(codes.Ok, "")
	response.Created(c, coupon)
}

// DeactivateCoupon handles DELETE /admin/coupons/:id
func (h *AdminHandler) DeactivateCoupon(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.deactivate_coupon")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	couponID := c.Param("id")
	span.SetAttributes(attribute.String("coupon_id", couponID))

	coupon, err := h.coupons.DeactivateCoupon(ctx, couponID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, coupon)
}

// ListRooms handles GET /admin/hotels/:hotelId/rooms
func (h *AdminHandler) ListRooms(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.list_rooms")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	rooms, err := h.bookings.ListRooms(ctx, c.Param("hotelId"), c.Query("room_type_id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, rooms)
}

// UpdateRoomStatus handles PATCH /admin/rooms/:id/status
func (h *AdminHandler) UpdateRoomStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_room_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.UpdateRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	status, err := domain.ParseRoomStatus(req.Status)
	if err != nil {
		handleError(c, err)
		return
	}

	roomID := c.Param("id")
	span.SetAttributes(attribute.String("room_id", roomID), attribute.String("status", string(status)))

	room, err := h.bookings.UpdateRoomStatus(ctx, roomID, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, room)
}

// OccupancyReport handles GET /admin/hotels/:hotelId/occupancy?from=&to=
func (h *AdminHandler) OccupancyReport(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.occupancy")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	from, err := dto.ParseDateParam("from", c.Query("from"))
	if err != nil {
		handleError(c, err)
		return
	}
	to, err := dto.ParseDateParam("to", c.Query("to"))
	if err != nil {
		handleError(c, err)
		return
	}

	hotelID := c.Param("hotelId")
	span.SetAttributes(attribute.String("hotel_id", hotelID))

	report, err := h.occupancy.OccupancyReport(ctx, hotelID, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Float64("average_percent", report.AveragePercent))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.OccupancyReportFromDomain(report))
}
