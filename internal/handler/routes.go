package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/middleware"
)

// Handlers groups every API handler
type Handlers struct {
	Pricing *PricingHandler
	Booking *BookingHandler
	Payment *PaymentHandler
	Admin   *AdminHandler
}

// RouteMiddleware supplies the authentication and idempotency layers.
// Idempotency may be nil when Redis is not available.
type RouteMiddleware struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Idempotency  gin.HandlerFunc
}

// RegisterRoutes mounts the API on group, normally /api/v1
func RegisterRoutes(group *gin.RouterGroup, h *Handlers, mw RouteMiddleware) {
	idem := mw.Idempotency
	if idem == nil {
		idem = func(c *gin.Context) { c.Next() }
	}
	staff := middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin)

	// Public
	group.POST("/pricing/quote", mw.OptionalAuth, h.Pricing.Quote)
	group.GET("/availability", h.Pricing.Availability)
	group.POST("/coupons/validate", mw.OptionalAuth, h.Pricing.ValidateCoupon)

	bookings := group.Group("/bookings", mw.Auth)
	{
		bookings.POST("", idem, h.Booking.CreateBooking)
		bookings.GET("", h.Booking.GetUserBookings)
		bookings.GET("/:id", h.Booking.GetBooking)
		bookings.POST("/:id/cancel", h.Booking.CancelBooking)
		bookings.POST("/:id/payment-session", idem, h.Payment.CreateSession)
		bookings.GET("/:id/payments", h.Payment.ListPayments)
		bookings.POST("/:id/check-in", staff, h.Booking.CheckIn)
		bookings.POST("/:id/check-out", staff, h.Booking.CheckOut)
		bookings.POST("/:id/no-show", staff, h.Booking.MarkNoShow)
	}

	sessions := group.Group("/payment-sessions", mw.Auth)
	{
		sessions.GET("/:id", h.Payment.GetSession)
		sessions.POST("/:id/verify", staff, idem, h.Payment.VerifyPayment)
	}

	admin := group.Group("/admin", mw.Auth, staff)
	{
		admin.POST("/payment-sessions/sweep", h.Payment.SweepExpired)
		admin.GET("/hotels/:hotelId/pricing-rules", h.Admin.GetPricingRules)
		admin.PUT("/hotels/:hotelId/pricing-rules", h.Admin.ReplacePricingRules)
		admin.GET("/hotels/:hotelId/rooms", h.Admin.ListRooms)
		admin.GET("/hotels/:hotelId/occupancy", h.Admin.OccupancyReport)
		admin.GET("/coupons", h.Admin.ListCoupons)
		admin.POST("/coupons", h.Admin.CreateCoupon)
		admin.DELETE("/coupons/:id", h.Admin.DeactivateCoupon)
		admin.PATCH("/rooms/:id/status", h.Admin.UpdateRoomStatus)
	}
}
