package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is a state of the booking lifecycle
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusNoShow     BookingStatus = "NO_SHOW"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusCheckedIn, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusCheckedIn:  {BookingStatusCheckedOut},
	BookingStatusCheckedOut: {},
	BookingStatusCancelled:  {},
	BookingStatusNoShow:     {},
}

// HoldingStatuses consume room-type inventory
var HoldingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCheckedIn,
}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// HoldsInventory reports whether bookings in s count against availability
func (s BookingStatus) HoldsInventory() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusCheckedIn
}

func (s BookingStatus) String() string {
	return string(s)
}

// PriceSnapshot is the price frozen onto a booking at creation
type PriceSnapshot struct {
	BasePrice           float64 `json:"base_price"`
	SeasonalMultiplier  float64 `json:"seasonal_multiplier"`
	DayTypeMultiplier   float64 `json:"day_type_multiplier"`
	OccupancyMultiplier float64 `json:"occupancy_multiplier"`
	Nights              int     `json:"nights"`
	Subtotal            float64 `json:"subtotal"`
	CouponID            string  `json:"coupon_id,omitempty"`
	CouponCode          string  `json:"coupon_code,omitempty"`
	DiscountAmount      float64 `json:"discount_amount"`
	Taxes               float64 `json:"taxes"`
	Total               float64 `json:"total"`
	Currency            string  `json:"currency"`
}

// GuestDetails are the contact fields captured at booking time
type GuestDetails struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Validate checks the required guest fields against the room type capacity
func (g GuestDetails) Validate(maxOccupancy int) error {
	if strings.TrimSpace(g.Name) == "" {
		return NewValidationError("guest_name", "is required")
	}
	email := strings.TrimSpace(g.Email)
	if email == "" {
		return NewValidationError("guest_email", "is required")
	}
	if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 {
		return NewValidationError("guest_email", "is not a valid email address")
	}
	if g.Guests < 1 {
		return NewValidationError("guests", "must be at least 1")
	}
	if maxOccupancy > 0 && g.Guests > maxOccupancy {
		return NewValidationError("guests", fmt.Sprintf("exceeds room type capacity of %d", maxOccupancy))
	}
	return nil
}

// Booking is a reservation of one room of a room type for a stay
type Booking struct {
	ID           string        `json:"id"`
	Reference    string        `json:"reference"`
	HotelID      string        `json:"hotel_id"`
	RoomTypeID   string        `json:"room_type_id"`
	RoomID       string        `json:"room_id,omitempty"`
	UserID       string        `json:"user_id"`
	CheckInDate  time.Time     `json:"check_in_date"`
	CheckOutDate time.Time     `json:"check_out_date"`
	Guest        GuestDetails  `json:"guest"`
	Price        PriceSnapshot `json:"price"`
	Status       BookingStatus `json:"status"`

	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy        string     `json:"checked_in_by,omitempty"`
	CheckedOutAt       *time.Time `json:"checked_out_at,omitempty"`
	CheckedOutBy       string     `json:"checked_out_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	NoShowAt           *time.Time `json:"no_show_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBookingParams carries everything needed to open a PENDING booking
type NewBookingParams struct {
	HotelID      string
	RoomTypeID   string
	UserID       string
	CheckInDate  time.Time
	CheckOutDate time.Time
	Guest        GuestDetails
	Price        PriceSnapshot
}

// NewBooking opens a PENDING booking with a fresh id and reference
func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if p.HotelID == "" {
		return nil, NewValidationError("hotel_id", "is required")
	}
	if p.RoomTypeID == "" {
		return nil, NewValidationError("room_type_id", "is required")
	}
	if p.UserID == "" {
		return nil, NewValidationError("user_id", "is required")
	}
	if err := ValidateStay(p.CheckInDate, p.CheckOutDate); err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		ID:           uuid.New().String(),
		Reference:    NewBookingReference(),
		HotelID:      p.HotelID,
		RoomTypeID:   p.RoomTypeID,
		UserID:       p.UserID,
		CheckInDate:  Date(p.CheckInDate),
		CheckOutDate: Date(p.CheckOutDate),
		Guest:        p.Guest,
		Price:        p.Price,
		Status:       BookingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewBookingReference returns a short code such as HB3F9A01C2
func NewBookingReference() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		id := uuid.New()
		copy(b, id[:4])
	}
	return "HB" + strings.ToUpper(hex.EncodeToString(b))
}

// Overlaps reports whether the booking's stay intersects [checkIn, checkOut)
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return Overlaps(b.CheckInDate, b.CheckOutDate, Date(checkIn), Date(checkOut))
}

// Nights is the length of the stay
func (b *Booking) Nights() int {
	return Nights(b.CheckInDate, b.CheckOutDate)
}

func (b *Booking) transition(to BookingStatus, action string, now time.Time) error {
	if !b.Status.CanTransitionTo(to) {
		return NewInvalidStateError("booking", b.ID, string(b.Status), action)
	}
	b.Status = to
	b.UpdatedAt = now.UTC()
	return nil
}

// Confirm moves a PENDING booking to CONFIRMED once payment is verified
func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(BookingStatusConfirmed, "confirm", now); err != nil {
		return err
	}
	t := now.UTC()
	b.ConfirmedAt = &t
	return nil
}

// CheckIn assigns roomID and moves a CONFIRMED booking to CHECKED_IN
func (b *Booking) CheckIn(roomID, actor string, now time.Time) error {
	if roomID == "" {
		return NewValidationError("room_id", "is required")
	}
	if err := b.transition(BookingStatusCheckedIn, "check in", now); err != nil {
		return err
	}
	t := now.UTC()
	b.RoomID = roomID
	b.CheckedInAt = &t
	b.CheckedInBy = actor
	return nil
}

// CheckOut moves a CHECKED_IN booking to CHECKED_OUT
func (b *Booking) CheckOut(actor string, now time.Time) error {
	if err := b.transition(BookingStatusCheckedOut, "check out", now); err != nil {
		return err
	}
	t := now.UTC()
	b.CheckedOutAt = &t
	b.CheckedOutBy = actor
	return nil
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED
func (b *Booking) Cancel(reason, actor string, now time.Time) error {
	if err := b.transition(BookingStatusCancelled, "cancel", now); err != nil {
		return err
	}
	t := now.UTC()
	b.CancelledAt = &t
	b.CancelledBy = actor
	b.CancellationReason = reason
	return nil
}

// MarkNoShow moves a CONFIRMED booking to NO_SHOW after its check-in date
func (b *Booking) MarkNoShow(now time.Time) error {
	if b.Status == BookingStatusConfirmed && !Date(now).After(b.CheckInDate) {
		return NewValidationError("check_in_date", "no-show can only be recorded after the check-in date")
	}
	if err := b.transition(BookingStatusNoShow, "mark no-show", now); err != nil {
		return err
	}
	t := now.UTC()
	b.NoShowAt = &t
	return nil
}

// Clone returns a deep copy
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.ConfirmedAt = cloneTime(b.ConfirmedAt)
	c.CheckedInAt = cloneTime(b.CheckedInAt)
	c.CheckedOutAt = cloneTime(b.CheckedOutAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.NoShowAt = cloneTime(b.NoShowAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
