package service

import (
	"testing"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

func TestCreateBooking(t *testing.T) {
	h := newHarness(t, 2)

	b := h.mustCreate(h.input("u1", "2030-06-01", "2030-06-04"))

	if b.ID == "" || b.Reference == "" {
		t.Fatalf("booking id/reference = %q/%q", b.ID, b.Reference)
	}
	if b.Status != domain.BookingStatusPending {
		t.Errorf("Status = %s, want PENDING", b.Status)
	}
	if b.Price.Nights != 3 || b.Price.Subtotal != 6000 || b.Price.Taxes != 1080 || b.Price.Total != 7080 {
		t.Errorf("price = %+v, want 3 nights 6000/1080/7080", b.Price)
	}
	if b.Price.Currency != "INR" || b.RoomID != "" {
		t.Errorf("currency/room = %s/%q", b.Price.Currency, b.RoomID)
	}

	stored := h.storedBooking(b.ID)
	if stored.Status != domain.BookingStatusPending || stored.Price.Total != 7080 {
		t.Errorf("stored booking = %+v", stored)
	}
	if n := h.publisher.count(string(domain.BookingEventCreated)); n != 1 {
		t.Errorf("booking.created events = %d, want 1", n)
	}
}

func TestCreateBooking_WithCoupon(t *testing.T) {
	h := newHarness(t, 3)
	c := h.addCoupon(&domain.Coupon{Code: "SAVE10", DiscountValue: 10, MaxDiscount: floatPtr(300)})

	in := h.input("u1", "2030-06-01", "2030-06-04")
	in.CouponCode = "save10"
	b := h.mustCreate(in)

	if b.Price.DiscountAmount != 300 || b.Price.Taxes != 1026 || b.Price.Total != 6726 {
		t.Errorf("price = %+v, want discount 300, taxes 1026, total 6726", b.Price)
	}
	if b.Price.CouponID != c.ID || b.Price.CouponCode != "SAVE10" {
		t.Errorf("coupon on snapshot = %s/%s", b.Price.CouponID, b.Price.CouponCode)
	}

	stored, err := h.store.Coupons.GetByID(h.ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.UsedCount != 1 {
		t.Errorf("UsedCount = %d, want 1", stored.UsedCount)
	}

	// the same guest cannot redeem it twice, and the failed attempt holds nothing
	_, err = h.bookings.Create(h.ctx, in)
	if ce, ok := domain.AsCouponError(err); !ok || ce.Reason != domain.CouponAlreadyUsed {
		t.Fatalf("second Create() error = %v, want ALREADY_USED", err)
	}
	n, err := h.availability.AvailableCount(h.ctx, h.hotel.ID, h.roomType.ID, in.CheckIn, in.CheckOut)
	if err != nil {
		t.Fatalf("AvailableCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("AvailableCount() = %d, want 2", n)
	}
}

func TestCreateBooking_CouponBelowMinimum(t *testing.T) {
	h := newHarness(t, 1)
	h.addCoupon(&domain.Coupon{Code: "LUXE", DiscountValue: 20, MinBookingAmount: 10000})

	in := h.input("u1", "2030-06-01", "2030-06-04")
	in.CouponCode = "LUXE"
	_, err := h.bookings.Create(h.ctx, in)
	if ce, ok := domain.AsCouponError(err); !ok || ce.Reason != domain.CouponBelowMinimum {
		t.Fatalf("Create() error = %v, want BELOW_MINIMUM", err)
	}
	if n := h.publisher.count(string(domain.BookingEventCreated)); n != 0 {
		t.Errorf("booking.created events = %d, want 0", n)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	h := newHarness(t, 1)
	closed := &domain.RoomType{HotelID: h.hotel.ID, Name: "Closed", BasePrice: 900, MaxOccupancy: 2, IsActive: false}
	if err := h.store.Inventory.CreateRoomType(h.ctx, closed); err != nil {
		t.Fatalf("CreateRoomType() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(in *CreateBookingInput)
		check  func(error) bool
	}{
		{"check-in in the past", func(in *CreateBookingInput) {
			in.CheckIn, in.CheckOut = date(t, "2030-04-30"), date(t, "2030-05-02")
		}, domain.IsValidationError},
		{"zero nights", func(in *CreateBookingInput) { in.CheckOut = in.CheckIn }, domain.IsValidationError},
		{"stay too long", func(in *CreateBookingInput) { in.CheckOut = date(t, "2400-06-01") }, domain.IsValidationError},
		{"too many guests", func(in *CreateBookingInput) { in.Guest.Guests = 3 }, domain.IsValidationError},
		{"no guests", func(in *CreateBookingInput) { in.Guest.Guests = 0 }, domain.IsValidationError},
		{"missing guest name", func(in *CreateBookingInput) { in.Guest.Name = "" }, domain.IsValidationError},
		{"missing user", func(in *CreateBookingInput) { in.UserID = "" }, domain.IsValidationError},
		{"closed room type", func(in *CreateBookingInput) { in.RoomTypeID = closed.ID }, domain.IsValidationError},
		{"unknown room type", func(in *CreateBookingInput) { in.RoomTypeID = "missing" }, domain.IsNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := h.input("u1", "2030-06-01", "2030-06-03")
			tt.mutate(in)
			_, err := h.bookings.Create(h.ctx, in)
			if !tt.check(err) {
				t.Errorf("Create() error = %v", err)
			}
		})
	}

	// today is a valid check-in date
	h.mustCreate(h.input("u1", "2030-05-01", "2030-05-02"))
}

func TestBookingLifecycle(t *testing.T) {
	h := newHarness(t, 2)
	room := h.rooms[0]

	b := h.mustCreate(h.input("u1", "2030-05-01", "2030-05-03"))
	b = h.mustConfirm(b)
	if b.Status != domain.BookingStatusConfirmed || b.ConfirmedAt == nil {
		t.Fatalf("after payment status = %s", b.Status)
	}

	b, err := h.bookings.CheckIn(h.ctx, b.ID, room.ID, "staff-1")
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if b.Status != domain.BookingStatusCheckedIn || b.RoomID != room.ID || b.CheckedInBy != "staff-1" {
		t.Errorf("checked in booking = %+v", b)
	}
	rm, _ := h.store.Inventory.GetRoom(h.ctx, room.ID)
	if rm.Status != domain.RoomStatusOccupied {
		t.Errorf("room status = %s, want OCCUPIED", rm.Status)
	}

	h.clock.Advance(26 * time.Hour)
	b, err = h.bookings.CheckOut(h.ctx, b.ID, "staff-2")
	if err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}
	if b.Status != domain.BookingStatusCheckedOut || b.CheckedOutBy != "staff-2" {
		t.Errorf("checked out booking = %+v", b)
	}
	rm, _ = h.store.Inventory.GetRoom(h.ctx, room.ID)
	if rm.Status != domain.RoomStatusCleaning {
		t.Errorf("room status = %s, want CLEANING", rm.Status)
	}

	if _, err := h.bookings.UpdateRoomStatus(h.ctx, room.ID, domain.RoomStatusAvailable); err != nil {
		t.Fatalf("UpdateRoomStatus() error = %v", err)
	}

	// a checked-out booking is terminal
	if _, err := h.bookings.Cancel(h.ctx, b.ID, "late", "u1"); !domain.IsInvalidStateError(err) {
		t.Errorf("Cancel() after checkout error = %v, want InvalidStateError", err)
	}

	for _, ev := range []domain.BookingEventType{
		domain.BookingEventCreated,
		domain.BookingEventConfirmed,
		domain.BookingEventCheckedIn,
		domain.BookingEventCheckedOut,
	} {
		if n := h.publisher.count(string(ev)); n != 1 {
			t.Errorf("%s events = %d, want 1", ev, n)
		}
	}
}

func TestBooking_IllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	h := newHarness(t, 1)
	room := h.rooms[0]
	b := h.mustCreate(h.input("u1", "2030-05-01", "2030-05-02"))

	if _, err := h.bookings.CheckIn(h.ctx, b.ID, room.ID, "staff-1"); !domain.IsInvalidStateError(err) {
		t.Errorf("CheckIn() on PENDING error = %v, want InvalidStateError", err)
	}
	if _, err := h.bookings.CheckOut(h.ctx, b.ID, "staff-1"); !domain.IsInvalidStateError(err) {
		t.Errorf("CheckOut() on PENDING error = %v, want InvalidStateError", err)
	}
	if _, err := h.bookings.MarkNoShow(h.ctx, b.ID, "staff-1"); !domain.IsInvalidStateError(err) {
		t.Errorf("MarkNoShow() on PENDING error = %v, want InvalidStateError", err)
	}

	stored := h.storedBooking(b.ID)
	if stored.Status != domain.BookingStatusPending || stored.RoomID != "" {
		t.Errorf("stored booking = %s room %q, want PENDING without room", stored.Status, stored.RoomID)
	}
	rm, _ := h.store.Inventory.GetRoom(h.ctx, room.ID)
	if rm.Status != domain.RoomStatusAvailable {
		t.Errorf("room status = %s, want AVAILABLE", rm.Status)
	}

	cancelled, err := h.bookings.Cancel(h.ctx, b.ID, "", "u1")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled || cancelled.CancelledAt == nil {
		t.Errorf("cancelled booking = %+v", cancelled)
	}
	if _, err := h.bookings.Cancel(h.ctx, b.ID, "", "u1"); !domain.IsInvalidStateError(err) {
		t.Errorf("second Cancel() error = %v, want InvalidStateError", err)
	}
	if n := h.publisher.count(string(domain.BookingEventCancelled)); n != 1 {
		t.Errorf("booking.cancelled events = %d, want 1", n)
	}
}

func TestCheckIn_RoomChecks(t *testing.T) {
	h := newHarness(t, 2)
	twin := &domain.RoomType{HotelID: h.hotel.ID, Name: "Twin", BasePrice: 1500, MaxOccupancy: 2, IsActive: true}
	if err := h.store.Inventory.CreateRoomType(h.ctx, twin); err != nil {
		t.Fatalf("CreateRoomType() error = %v", err)
	}
	twinRoom := &domain.Room{HotelID: h.hotel.ID, RoomTypeID: twin.ID, RoomNumber: "701", IsActive: true}
	if err := h.store.Inventory.CreateRoom(h.ctx, twinRoom); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	b := h.mustConfirm(h.mustCreate(h.input("u1", "2030-05-01", "2030-05-02")))

	if _, err := h.bookings.CheckIn(h.ctx, b.ID, twinRoom.ID, "staff-1"); !domain.IsValidationError(err) {
		t.Errorf("CheckIn() into another room type error = %v, want ValidationError", err)
	}

	if _, err := h.bookings.UpdateRoomStatus(h.ctx, h.rooms[0].ID, domain.RoomStatusMaintenance); err != nil {
		t.Fatalf("UpdateRoomStatus() error = %v", err)
	}
	if _, err := h.bookings.CheckIn(h.ctx, b.ID, h.rooms[0].ID, "staff-1"); !domain.IsInvalidStateError(err) {
		t.Errorf("CheckIn() into a room under maintenance error = %v, want InvalidStateError", err)
	}

	if _, err := h.bookings.CheckIn(h.ctx, b.ID, "missing", "staff-1"); !domain.IsNotFoundError(err) {
		t.Errorf("CheckIn() into unknown room error = %v, want NotFoundError", err)
	}

	if s := h.storedBooking(b.ID).Status; s != domain.BookingStatusConfirmed {
		t.Errorf("stored status = %s, want CONFIRMED", s)
	}

	if _, err := h.bookings.CheckIn(h.ctx, b.ID, h.rooms[1].ID, "staff-1"); err != nil {
		t.Errorf("CheckIn() into a free room error = %v", err)
	}
}

func TestMarkNoShow(t *testing.T) {
	h := newHarness(t, 1)
	b := h.mustConfirm(h.mustCreate(h.input("u1", "2030-05-02", "2030-05-04")))

	if _, err := h.bookings.MarkNoShow(h.ctx, b.ID, "staff-1"); !domain.IsValidationError(err) {
		t.Errorf("MarkNoShow() before check-in date error = %v, want ValidationError", err)
	}

	// still on the check-in date
	h.clock.Advance(24 * time.Hour)
	if _, err := h.bookings.MarkNoShow(h.ctx, b.ID, "staff-1"); !domain.IsValidationError(err) {
		t.Errorf("MarkNoShow() on check-in date error = %v, want ValidationError", err)
	}

	h.clock.Advance(24 * time.Hour)
	got, err := h.bookings.MarkNoShow(h.ctx, b.ID, "staff-1")
	if err != nil {
		t.Fatalf("MarkNoShow() error = %v", err)
	}
	if got.Status != domain.BookingStatusNoShow || got.NoShowAt == nil {
		t.Errorf("no-show booking = %+v", got)
	}

	// a no-show releases the room type
	ok, err := h.availability.IsAvailable(h.ctx, h.hotel.ID, h.roomType.ID, date(t, "2030-05-03"), date(t, "2030-05-04"))
	if err != nil {
		t.Fatalf("IsAvailable() error = %v", err)
	}
	if !ok {
		t.Error("IsAvailable() = false after no-show")
	}
}

func TestListMyBookings(t *testing.T) {
	h := newHarness(t, 5)
	for i := 0; i < 3; i++ {
		h.mustCreate(h.input("u1", "2030-06-01", "2030-06-02"))
	}
	h.mustCreate(h.input("u2", "2030-06-01", "2030-06-02"))

	page, total, err := h.bookings.ListMyBookings(h.ctx, "u1", 1, 2)
	if err != nil {
		t.Fatalf("ListMyBookings() error = %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("page/total = %d/%d, want 2/3", len(page), total)
	}
	for _, b := range page {
		if b.UserID != "u1" {
			t.Errorf("listed booking of %s", b.UserID)
		}
	}

	page, _, err = h.bookings.ListMyBookings(h.ctx, "u1", 2, 2)
	if err != nil {
		t.Fatalf("ListMyBookings() error = %v", err)
	}
	if len(page) != 1 {
		t.Errorf("second page = %d, want 1", len(page))
	}

	if _, _, err := h.bookings.ListMyBookings(h.ctx, "", 1, 20); !domain.IsValidationError(err) {
		t.Errorf("missing user error = %v, want ValidationError", err)
	}
}

func TestUpdateRoomStatus_Validation(t *testing.T) {
	h := newHarness(t, 1)

	if _, err := h.bookings.UpdateRoomStatus(h.ctx, h.rooms[0].ID, "BROKEN"); !domain.IsValidationError(err) {
		t.Errorf("unknown status error = %v, want ValidationError", err)
	}
	if _, err := h.bookings.UpdateRoomStatus(h.ctx, "missing", domain.RoomStatusCleaning); !domain.IsNotFoundError(err) {
		t.Errorf("unknown room error = %v, want NotFoundError", err)
	}

	rooms, err := h.bookings.ListRooms(h.ctx, h.hotel.ID, "")
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(rooms) != 1 {
		t.Errorf("ListRooms() = %d, want 1", len(rooms))
	}
}
