package dto

import (
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// CreateBookingRequest represents a guest's request for a stay
type CreateBookingRequest struct {
	HotelID         string `json:"hotel_id" binding:"required"`
	RoomTypeID      string `json:"room_type_id" binding:"required"`
	CheckIn         string `json:"check_in_date" binding:"required"`
	CheckOut        string `json:"check_out_date" binding:"required"`
	GuestName       string `json:"guest_name" binding:"required"`
	GuestEmail      string `json:"guest_email" binding:"required"`
	GuestPhone      string `json:"guest_phone,omitempty"`
	Guests          int    `json:"guests" binding:"required,min=1"`
	SpecialRequests string `json:"special_requests,omitempty"`
	CouponCode      string `json:"coupon_code,omitempty"`
}

// Guest returns the guest details of the request
func (r *CreateBookingRequest) Guest() domain.GuestDetails {
	return domain.GuestDetails{
		Name:            r.GuestName,
		Email:           r.GuestEmail,
		Phone:           r.GuestPhone,
		Guests:          r.Guests,
		SpecialRequests: r.SpecialRequests,
	}
}

// CancelBookingRequest carries an optional cancellation reason
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CheckInRequest names the room assigned at the front desk
type CheckInRequest struct {
	RoomID string `json:"room_id" binding:"required"`
}

// PriceResponse is the price frozen onto a booking
type PriceResponse struct {
	BasePrice           float64 `json:"base_price"`
	SeasonalMultiplier  float64 `json:"seasonal_multiplier"`
	DayTypeMultiplier   float64 `json:"day_type_multiplier"`
	OccupancyMultiplier float64 `json:"occupancy_multiplier"`
	Nights              int     `json:"nights"`
	Subtotal            float64 `json:"subtotal"`
	CouponCode          string  `json:"coupon_code,omitempty"`
	DiscountAmount      float64 `json:"discount_amount"`
	Taxes               float64 `json:"taxes"`
	Total               float64 `json:"total"`
	Currency            string  `json:"currency"`
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID                 string              `json:"id"`
	Reference          string              `json:"reference"`
	HotelID            string              `json:"hotel_id"`
	RoomTypeID         string              `json:"room_type_id"`
	RoomID             string              `json:"room_id,omitempty"`
	UserID             string              `json:"user_id"`
	CheckIn            string              `json:"check_in_date"`
	CheckOut           string              `json:"check_out_date"`
	Guest              domain.GuestDetails `json:"guest"`
	Price              PriceResponse       `json:"price"`
	Status             string              `json:"status"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	CheckedInAt        *time.Time          `json:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time          `json:"checked_out_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	NoShowAt           *time.Time          `json:"no_show_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// FromDomain converts domain Booking to BookingResponse
func FromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:         b.ID,
		Reference:  b.Reference,
		HotelID:    b.HotelID,
		RoomTypeID: b.RoomTypeID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		CheckIn:    domain.FormatDate(b.CheckInDate),
		CheckOut:   domain.FormatDate(b.CheckOutDate),
		Guest:      b.Guest,
		Price: PriceResponse{
			BasePrice:           b.Price.BasePrice,
			SeasonalMultiplier:  b.Price.SeasonalMultiplier,
			DayTypeMultiplier:   b.Price.DayTypeMultiplier,
			OccupancyMultiplier: b.Price.OccupancyMultiplier,
			Nights:              b.Price.Nights,
			Subtotal:            b.Price.Subtotal,
			CouponCode:          b.Price.CouponCode,
			DiscountAmount:      b.Price.DiscountAmount,
			Taxes:               b.Price.Taxes,
			Total:               b.Price.Total,
			Currency:            b.Price.Currency,
		},
		Status:             string(b.Status),
		ConfirmedAt:        b.ConfirmedAt,
		CheckedInAt:        b.CheckedInAt,
		CheckedOutAt:       b.CheckedOutAt,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		NoShowAt:           b.NoShowAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// FromDomainList converts a page of bookings
func FromDomainList(bookings []*domain.Booking) []*BookingResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, FromDomain(b))
	}
	return out
}
