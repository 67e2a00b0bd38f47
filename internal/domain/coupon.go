package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiscountType is how a coupon's value is applied
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon is a promotional code, hotel-scoped or global when HotelID is empty
type Coupon struct {
	ID               string       `json:"id"`
	Code             string       `json:"code"`
	HotelID          string       `json:"hotel_id,omitempty"`
	Description      string       `json:"description,omitempty"`
	DiscountType     DiscountType `json:"discount_type"`
	DiscountValue    float64      `json:"discount_value"`
	MaxDiscount      *float64     `json:"max_discount,omitempty"`
	MinBookingAmount float64      `json:"min_booking_amount"`
	UsageLimit       *int         `json:"usage_limit,omitempty"`
	UsedCount        int          `json:"used_count"`
	ValidFrom        time.Time    `json:"valid_from"`
	ValidUntil       time.Time    `json:"valid_until"`
	IsActive         bool         `json:"is_active"`
	DeletedAt        *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NormalizeCode makes coupon lookups case-insensitive
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks an administratively created coupon
func (c *Coupon) Validate() error {
	if NormalizeCode(c.Code) == "" {
		return NewValidationError("code", "is required")
	}
	if !c.DiscountType.IsValid() {
		return NewValidationError("discount_type", "must be PERCENTAGE or FIXED")
	}
	if c.DiscountValue < 0 {
		return NewValidationError("discount_value", "must not be negative")
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue > 100 {
		return NewValidationError("discount_value", "percentage must not exceed 100")
	}
	if c.MaxDiscount != nil && *c.MaxDiscount < 0 {
		return NewValidationError("max_discount", "must not be negative")
	}
	if c.MinBookingAmount < 0 {
		return NewValidationError("min_booking_amount", "must not be negative")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return NewValidationError("usage_limit", "must not be negative")
	}
	if c.ValidFrom.IsZero() || c.ValidUntil.IsZero() {
		return NewValidationError("valid_from", "validity window is required")
	}
	if c.ValidUntil.Before(c.ValidFrom) {
		return NewValidationError("valid_until", "must not be before valid_from")
	}
	return nil
}

// IsLive reports whether the coupon is active and not soft-deleted
func (c *Coupon) IsLive() bool {
	return c.IsActive && c.DeletedAt == nil
}

// InWindow reports whether now is within [ValidFrom, ValidUntil]
func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// AppliesToHotel is true for global coupons and for the coupon's own hotel
func (c *Coupon) AppliesToHotel(hotelID string) bool {
	return c.HotelID == "" || c.HotelID == hotelID
}

// LimitReached reports whether the usage limit, if any, is exhausted
func (c *Coupon) LimitReached() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// ComputeDiscount returns the discount for amount, clamped to [0, amount]
func (c *Coupon) ComputeDiscount(amount float64) float64 {
	if amount <= 0 {
		return 0
	}

	var discount float64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = amount * c.DiscountValue / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
	}

	discount = Round2(discount)
	return math.Max(0, math.Min(discount, amount))
}

// Deactivate soft-deletes the coupon
func (c *Coupon) Deactivate(now time.Time) {
	t := now.UTC()
	c.IsActive = false
	c.DeletedAt = &t
	c.UpdatedAt = t
}

// Clone returns a deep copy
func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	out := *c
	if c.MaxDiscount != nil {
		v := *c.MaxDiscount
		out.MaxDiscount = &v
	}
	if c.UsageLimit != nil {
		v := *c.UsageLimit
		out.UsageLimit = &v
	}
	out.DeletedAt = cloneTime(c.DeletedAt)
	return &out
}

// CouponUsage records one redemption of a coupon by a user for a booking
type CouponUsage struct {
	ID              string    `json:"id"`
	CouponID        string    `json:"coupon_id"`
	UserID          string    `json:"user_id"`
	BookingID       string    `json:"booking_id"`
	DiscountApplied float64   `json:"discount_applied"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewCouponUsage(couponID, userID, bookingID string, discount float64, now time.Time) *CouponUsage {
	return &CouponUsage{
		ID:              uuid.New().String(),
		CouponID:        couponID,
		UserID:          userID,
		BookingID:       bookingID,
		DiscountApplied: discount,
		CreatedAt:       now.UTC(),
	}
}

// CouponValidation is the outcome of validating a code against an amount
type CouponValidation struct {
	Valid          bool         `json:"valid"`
	CouponID       string       `json:"coupon_id,omitempty"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type,omitempty"`
	DiscountAmount float64      `json:"discount_amount"`
	Reason         CouponReason `json:"reason,omitempty"`
}

// Err returns the rejection as a *CouponError, or nil when valid
func (v *CouponValidation) Err() error {
	if v.Valid {
		return nil
	}
	return NewCouponError(v.Code, v.Reason)
}
