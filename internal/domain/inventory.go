package domain

import (
	"fmt"
	"strings"
	"time"
)

// Hotel is a property whose rooms are sold by the engine
type Hotel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomType is the unit reservations are made against until check-in
type RoomType struct {
	ID           string    `json:"id"`
	HotelID      string    `json:"hotel_id"`
	Name         string    `json:"name"`
	BasePrice    float64   `json:"base_price"`
	MaxOccupancy int       `json:"max_occupancy"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoomStatus is the operational status of a physical room
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusOccupied    RoomStatus = "OCCUPIED"
	RoomStatusCleaning    RoomStatus = "CLEANING"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
	RoomStatusOutOfOrder  RoomStatus = "OUT_OF_ORDER"
)

var roomStatuses = map[RoomStatus]struct{}{
	RoomStatusAvailable:   {},
	RoomStatusOccupied:    {},
	RoomStatusCleaning:    {},
	RoomStatusMaintenance: {},
	RoomStatusOutOfOrder:  {},
}

func (s RoomStatus) IsValid() bool {
	_, ok := roomStatuses[s]
	return ok
}

func (s RoomStatus) String() string {
	return string(s)
}

// ParseRoomStatus accepts either case and dashes or underscores
func ParseRoomStatus(s string) (RoomStatus, error) {
	status := RoomStatus(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !status.IsValid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown room status %q", s))
	}
	return status, nil
}

// Room is a physical inventory unit
type Room struct {
	ID         string     `json:"id"`
	HotelID    string     `json:"hotel_id"`
	RoomTypeID string     `json:"room_type_id"`
	RoomNumber string     `json:"room_number"`
	Floor      int        `json:"floor"`
	Status     RoomStatus `json:"status"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CheckAssignable verifies the room can take the booking's guests
func (r *Room) CheckAssignable(b *Booking) error {
	if r.HotelID != b.HotelID || r.RoomTypeID != b.RoomTypeID {
		return NewValidationError("room_id", fmt.Sprintf("room %s is not a %s room of hotel %s", r.RoomNumber, b.RoomTypeID, b.HotelID))
	}
	if !r.IsActive {
		return NewInvalidStateError("room", r.ID, "INACTIVE", "assign")
	}
	if r.Status != RoomStatusAvailable {
		return NewInvalidStateError("room", r.ID, string(r.Status), "assign")
	}
	return nil
}

// RoomStatusChange is applied together with a booking transition.
// When Expect is set the change only applies if the room is active and in
// that status.
type RoomStatusChange struct {
	RoomID string
	Status RoomStatus
	Expect RoomStatus
}
