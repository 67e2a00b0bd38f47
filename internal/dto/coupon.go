package dto

import (
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// ValidateCouponRequest checks a code against a booking amount
type ValidateCouponRequest struct {
	Code          string  `json:"code" binding:"required"`
	HotelID       string  `json:"hotel_id" binding:"required"`
	BookingAmount float64 `json:"booking_amount" binding:"min=0"`
}

// CreateCouponRequest represents request to create a coupon
type CreateCouponRequest struct {
	Code             string    `json:"code" binding:"required"`
	HotelID          string    `json:"hotel_id,omitempty"`
	Description      string    `json:"description,omitempty"`
	DiscountType     string    `json:"discount_type" binding:"required"`
	DiscountValue    float64   `json:"discount_value" binding:"min=0"`
	MaxDiscount      *float64  `json:"max_discount,omitempty"`
	MinBookingAmount float64   `json:"min_booking_amount,omitempty"`
	UsageLimit       *int      `json:"usage_limit,omitempty"`
	ValidFrom        time.Time `json:"valid_from" binding:"required"`
	ValidUntil       time.Time `json:"valid_until" binding:"required"`
}

// ToDomain converts the request to an unsaved coupon
func (r *CreateCouponRequest) ToDomain() *domain.Coupon {
	return &domain.Coupon{
		Code:             r.Code,
		HotelID:          r.HotelID,
		Description:      r.Description,
		DiscountType:     domain.DiscountType(r.DiscountType),
		DiscountValue:    r.DiscountValue,
		MaxDiscount:      r.MaxDiscount,
		MinBookingAmount: r.MinBookingAmount,
		UsageLimit:       r.UsageLimit,
		ValidFrom:        r.ValidFrom.UTC(),
		ValidUntil:       r.ValidUntil.UTC(),
	}
}
