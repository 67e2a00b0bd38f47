package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// InventoryRepository reads hotels, room types and rooms and manages room status
type InventoryRepository interface {
	CreateHotel(ctx context.Context, hotel *domain.Hotel) error
	GetHotel(ctx context.Context, id string) (*domain.Hotel, error)
	CreateRoomType(ctx context.Context, roomType *domain.RoomType) error
	GetRoomType(ctx context.Context, id string) (*domain.RoomType, error)
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id string) (*domain.Room, error)

	// ListRooms lists a hotel's rooms, optionally narrowed to one room type
	ListRooms(ctx context.Context, hotelID, roomTypeID string) ([]*domain.Room, error)

	// CountActiveRooms counts active rooms of a room type, or of the whole
	// hotel when roomTypeID is empty
	CountActiveRooms(ctx context.Context, hotelID, roomTypeID string) (int, error)

	UpdateRoomStatus(ctx context.Context, id string, status domain.RoomStatus, now time.Time) (*domain.Room, error)
}

// CouponRedemption is the coupon usage committed together with a booking
type CouponRedemption struct {
	Usage            *domain.CouponUsage
	Code             string
	SingleUsePerUser bool
}

// BookingRepository persists bookings
type BookingRepository interface {
	// CreateWithCapacity inserts a PENDING booking only if the room type still
	// has a free room for every night of the stay. When redemption is not nil
	// the coupon usage is recorded in the same unit. Returns *domain.CapacityError
	// or *domain.CouponError without writing anything when a check fails.
	CreateWithCapacity(ctx context.Context, booking *domain.Booking, redemption *CouponRedemption) error

	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// ListByUser returns a page of the user's bookings, newest first, and the total count
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, int, error)

	// CountOverlapping counts holding bookings intersecting [checkIn, checkOut)
	// for a room type, or for the whole hotel when roomTypeID is empty
	CountOverlapping(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (int, error)

	// UpdateStatus persists a transition already applied to booking, provided
	// the stored status is still from. The optional room change is applied in
	// the same unit. Cancelling also fails the booking's PENDING payment
	// sessions with domain.FailureBookingCancelled.
	UpdateStatus(ctx context.Context, booking *domain.Booking, from domain.BookingStatus, room *domain.RoomStatusChange) error
}

// CouponRepository persists coupons and their usages
type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)

	// GetByCode finds the coupon that is not soft-deleted for a case-insensitive code
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	List(ctx context.Context, hotelID string) ([]*domain.Coupon, error)
	Deactivate(ctx context.Context, id string, now time.Time) (*domain.Coupon, error)
	HasUsage(ctx context.Context, couponID, userID string) (bool, error)

	// RecordUsage inserts the usage and increments used_count under the coupon's lock
	RecordUsage(ctx context.Context, redemption *CouponRedemption) error
}

// PricingRepository stores per-hotel pricing rule tables
type PricingRepository interface {
	GetRules(ctx context.Context, hotelID string) (*domain.PricingRules, error)

	// ReplaceRules swaps all of a hotel's rules in one unit
	ReplaceRules(ctx context.Context, rules *domain.PricingRules) error
}

// PaymentRepository persists payment sessions and payments
type PaymentRepository interface {
	// GetOrCreateSession returns the booking's open PENDING session, or stores
	// candidate when there is none. Overdue PENDING sessions of the booking are
	// expired on the way. created reports whether candidate was stored.
	GetOrCreateSession(ctx context.Context, candidate *domain.PaymentSession, now time.Time) (session *domain.PaymentSession, created bool, err error)

	GetSession(ctx context.Context, id string) (*domain.PaymentSession, error)

	// MarkSessionExpired expires a PENDING session and returns its current state
	MarkSessionExpired(ctx context.Context, id string, now time.Time) (*domain.PaymentSession, error)

	// MarkSessionFailed fails a PENDING session and returns its current state
	MarkSessionFailed(ctx context.Context, id, reason string, now time.Time) (*domain.PaymentSession, error)

	// ConfirmPayment inserts payment, marks the session PAID and confirms the
	// booking in one unit. It returns domain.ErrAlreadyVerified or
	// domain.ErrSessionExpired when the session is no longer payable; an
	// overdue session is expired before returning.
	ConfirmPayment(ctx context.Context, payment *domain.Payment, now time.Time) (*domain.PaymentSession, *domain.Booking, error)

	// ExpireOverdue expires up to limit PENDING sessions past their deadline
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentSession, error)

	ListPayments(ctx context.Context, bookingID string) ([]*domain.Payment, error)
}
