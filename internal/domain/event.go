package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventVersion is the schema version stamped on published events
const EventVersion = 1

// BookingEventType represents the type of booking event
type BookingEventType string

const (
	BookingEventCreated    BookingEventType = "booking.created"
	BookingEventConfirmed  BookingEventType = "booking.confirmed"
	BookingEventCancelled  BookingEventType = "booking.cancelled"
	BookingEventCheckedIn  BookingEventType = "booking.checked_in"
	BookingEventCheckedOut BookingEventType = "booking.checked_out"
	BookingEventNoShow     BookingEventType = "booking.no_show"
)

// BookingEvent is published after a committed booking transition
type BookingEvent struct {
	EventID    string            `json:"event_id"`
	EventType  BookingEventType  `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Version    int               `json:"version"`
	Data       *BookingEventData `json:"data"`
}

// BookingEventData contains the booking data in the event
type BookingEventData struct {
	BookingID    string     `json:"booking_id"`
	Reference    string     `json:"reference"`
	HotelID      string     `json:"hotel_id"`
	RoomTypeID   string     `json:"room_type_id"`
	RoomID       string     `json:"room_id,omitempty"`
	UserID       string     `json:"user_id"`
	CheckInDate  string     `json:"check_in_date"`
	CheckOutDate string     `json:"check_out_date"`
	Status       string     `json:"status"`
	TotalAmount  float64    `json:"total_amount"`
	Currency     string     `json:"currency"`
	CouponCode   string     `json:"coupon_code,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// NewBookingEvent snapshots booking into an event
func NewBookingEvent(eventType BookingEventType, b *Booking, now time.Time) *BookingEvent {
	return &BookingEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Version:    EventVersion,
		Data: &BookingEventData{
			BookingID:    b.ID,
			Reference:    b.Reference,
			HotelID:      b.HotelID,
			RoomTypeID:   b.RoomTypeID,
			RoomID:       b.RoomID,
			UserID:       b.UserID,
			CheckInDate:  FormatDate(b.CheckInDate),
			CheckOutDate: FormatDate(b.CheckOutDate),
			Status:       string(b.Status),
			TotalAmount:  b.Price.Total,
			Currency:     b.Price.Currency,
			CouponCode:   b.Price.CouponCode,
			ConfirmedAt:  cloneTime(b.ConfirmedAt),
			CancelledAt:  cloneTime(b.CancelledAt),
		},
	}
}

// Key partitions booking events by booking so they stay ordered
func (e *BookingEvent) Key() string {
	if e.Data == nil {
		return e.EventID
	}
	return e.Data.BookingID
}

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventSessionCreated PaymentEventType = "payment.session_created"
	PaymentEventVerified       PaymentEventType = "payment.verified"
	PaymentEventSessionExpired PaymentEventType = "payment.session_expired"
	PaymentEventSessionFailed  PaymentEventType = "payment.session_failed"
)

// PaymentEvent is published after a committed payment session transition
type PaymentEvent struct {
	EventID    string            `json:"event_id"`
	EventType  PaymentEventType  `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Version    int               `json:"version"`
	Data       *PaymentEventData `json:"data"`
}

// PaymentEventData contains the session and, once verified, payment data
type PaymentEventData struct {
	SessionID             string    `json:"session_id"`
	BookingID             string    `json:"booking_id"`
	PaymentID             string    `json:"payment_id,omitempty"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency"`
	Status                string    `json:"status"`
	Method                string    `json:"method,omitempty"`
	ExternalTransactionID string    `json:"external_transaction_id,omitempty"`
	FailureReason         string    `json:"failure_reason,omitempty"`
	ExpiresAt             time.Time `json:"expires_at"`
}

// NewPaymentEvent snapshots a session, and optionally its payment, into an event
func NewPaymentEvent(eventType PaymentEventType, s *PaymentSession, p *Payment, now time.Time) *PaymentEvent {
	data := &PaymentEventData{
		SessionID:     s.ID,
		BookingID:     s.BookingID,
		Amount:        s.Amount,
		Currency:      s.Currency,
		Status:        string(s.Status),
		FailureReason: s.FailureReason,
		ExpiresAt:     s.ExpiresAt,
	}
	if p != nil {
		data.PaymentID = p.ID
		data.Method = string(p.Method)
		data.ExternalTransactionID = p.ExternalTransactionID
	}
	return &PaymentEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Version:    EventVersion,
		Data:       data,
	}
}

// Key partitions payment events by booking alongside booking events
func (e *PaymentEvent) Key() string {
	if e.Data == nil {
		return e.EventID
	}
	return e.Data.BookingID
}
