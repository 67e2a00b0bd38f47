package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/gateway"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
)

// testClock is a settable engine clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher keeps every published event type in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishBookingEvent(ctx context.Context, event *domain.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, string(event.EventType))
	return nil
}

func (p *recordingPublisher) PublishPaymentEvent(ctx context.Context, event *domain.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, string(event.EventType))
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// declineVerifier fails every transaction
type declineVerifier struct{ reason string }

func (v *declineVerifier) Name() string { return "decline" }

func (v *declineVerifier) Verify(ctx context.Context, req *gateway.VerifyRequest) (*gateway.Verdict, error) {
	return gateway.Declined(v.reason, "failed"), nil
}

var harnessStart = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	t         *testing.T
	ctx       context.Context
	store     *repository.MemoryStore
	clock     *testClock
	cfg       *EngineConfig
	publisher *recordingPublisher

	hotel    *domain.Hotel
	roomType *domain.RoomType
	rooms    []*domain.Room

	availability AvailabilityService
	occupancy    OccupancyService
	pricing      PricingService
	coupons      CouponService
	bookings     BookingService
	payments     PaymentService
}

func newHarness(t *testing.T, rooms int) *harness {
	t.Helper()
	return newHarnessWithVerifier(t, rooms, nil)
}

func newHarnessWithVerifier(t *testing.T, rooms int, verifier gateway.TransactionVerifier) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		store:     repository.NewMemoryStore(),
		clock:     newTestClock(harnessStart),
		publisher: &recordingPublisher{},
	}
	h.cfg = &EngineConfig{
		GSTRate:                0.18,
		PaymentSessionWindow:   5 * time.Minute,
		Merchant:               domain.Merchant{ID: "lakeview@upi", Name: "Lakeview Hotel"},
		Currency:               "INR",
		CouponSingleUsePerUser: true,
		SweepBatchSize:         100,
		Now:                    h.clock.Now,
	}

	h.hotel = &domain.Hotel{Name: "Lakeview", City: "Udaipur", IsActive: true}
	if err := h.store.Inventory.CreateHotel(h.ctx, h.hotel); err != nil {
		t.Fatalf("CreateHotel() error = %v", err)
	}
	h.roomType = &domain.RoomType{HotelID: h.hotel.ID, Name: "Deluxe", BasePrice: 2000, MaxOccupancy: 2, IsActive: true}
	if err := h.store.Inventory.CreateRoomType(h.ctx, h.roomType); err != nil {
		t.Fatalf("CreateRoomType() error = %v", err)
	}
	for i := 0; i < rooms; i++ {
		room := &domain.Room{
			HotelID:    h.hotel.ID,
			RoomTypeID: h.roomType.ID,
			RoomNumber: string(rune('1'+i)) + "01",
			Floor:      i + 1,
			IsActive:   true,
		}
		if err := h.store.Inventory.CreateRoom(h.ctx, room); err != nil {
			t.Fatalf("CreateRoom() error = %v", err)
		}
		h.rooms = append(h.rooms, room)
	}

	h.availability = NewAvailabilityService(h.store.Inventory, h.store.Bookings)
	h.occupancy = NewOccupancyService(h.store.Inventory, h.store.Bookings)
	h.pricing = NewPricingService(h.store.Inventory, h.store.Pricing, h.occupancy, h.cfg)
	h.coupons = NewCouponService(h.store.Coupons, h.store.Inventory, h.cfg)
	h.bookings = NewBookingService(h.store.Bookings, h.store.Inventory, h.availability, h.pricing, h.coupons, h.publisher, h.cfg)
	h.payments = NewPaymentService(h.store.Payments, h.store.Bookings, verifier, h.publisher, h.cfg)
	return h
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func (h *harness) input(userID, in, out string) *CreateBookingInput {
	return &CreateBookingInput{
		HotelID:    h.hotel.ID,
		RoomTypeID: h.roomType.ID,
		UserID:     userID,
		CheckIn:    date(h.t, in),
		CheckOut:   date(h.t, out),
		Guest:      domain.GuestDetails{Name: "Asha Rao", Email: "asha@example.com", Guests: 2},
	}
}

func (h *harness) mustCreate(in *CreateBookingInput) *domain.Booking {
	h.t.Helper()
	b, err := h.bookings.Create(h.ctx, in)
	if err != nil {
		h.t.Fatalf("Create() error = %v", err)
	}
	return b
}

// mustConfirm pays for b through a manual session verification
func (h *harness) mustConfirm(b *domain.Booking) *domain.Booking {
	h.t.Helper()
	session, err := h.payments.CreateSession(h.ctx, b.ID, 0)
	if err != nil {
		h.t.Fatalf("CreateSession() error = %v", err)
	}
	res, err := h.payments.Verify(h.ctx, &VerifyInput{
		SessionID:             session.ID,
		ExternalTransactionID: "UTR-" + b.Reference,
		Method:                domain.PaymentMethodUPI,
		Actor:                 "staff-1",
	})
	if err != nil {
		h.t.Fatalf("Verify() error = %v", err)
	}
	return res.Booking
}

func (h *harness) storedBooking(id string) *domain.Booking {
	h.t.Helper()
	b, err := h.store.Bookings.GetByID(h.ctx, id)
	if err != nil {
		h.t.Fatalf("GetByID() error = %v", err)
	}
	return b
}

func (h *harness) addCoupon(c *domain.Coupon) *domain.Coupon {
	h.t.Helper()
	if c.ValidFrom.IsZero() {
		c.ValidFrom = harnessStart.AddDate(0, -1, 0)
	}
	if c.ValidUntil.IsZero() {
		c.ValidUntil = harnessStart.AddDate(1, 0, 0)
	}
	if c.DiscountType == "" {
		c.DiscountType = domain.DiscountPercentage
	}
	c.IsActive = true
	if err := h.store.Coupons.Create(h.ctx, c); err != nil {
		h.t.Fatalf("Coupons.Create() error = %v", err)
	}
	return c
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
