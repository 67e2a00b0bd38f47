package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/metrics"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateBookingInput is a guest's request for a stay
type CreateBookingInput struct {
	HotelID    string
	RoomTypeID string
	UserID     string
	CheckIn    time.Time
	CheckOut   time.Time
	Guest      domain.GuestDetails
	CouponCode string
}

// BookingService defines the interface for booking business logic
type BookingService interface {
	// Create opens a PENDING booking with a frozen price snapshot
	Create(ctx context.Context, in *CreateBookingInput) (*domain.Booking, error)

	// Get retrieves a booking by ID
	Get(ctx context.Context, bookingID string) (*domain.Booking, error)

	// ListMyBookings returns a page of a guest's bookings and the total count
	ListMyBookings(ctx context.Context, userID string, page, pageSize int) ([]*domain.Booking, int, error)

	// CheckIn assigns a room to a CONFIRMED booking and marks the room OCCUPIED
	CheckIn(ctx context.Context, bookingID, roomID, actor string) (*domain.Booking, error)

	// CheckOut closes a CHECKED_IN stay and sends the room to CLEANING
	CheckOut(ctx context.Context, bookingID, actor string) (*domain.Booking, error)

	// Cancel cancels a PENDING or CONFIRMED booking
	Cancel(ctx context.Context, bookingID, reason, actor string) (*domain.Booking, error)

	// MarkNoShow records that a CONFIRMED guest never arrived
	MarkNoShow(ctx context.Context, bookingID, actor string) (*domain.Booking, error)

	// UpdateRoomStatus sets a room's operational status
	UpdateRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) (*domain.Room, error)

	// ListRooms lists a hotel's rooms, optionally of one room type
	ListRooms(ctx context.Context, hotelID, roomTypeID string) ([]*domain.Room, error)
}

// bookingService implements BookingService
type bookingService struct {
	bookingRepo   repository.BookingRepository
	inventoryRepo repository.InventoryRepository
	availability  AvailabilityService
	pricing       PricingService
	coupons       CouponService
	events        eventEmitter
	cfg           *EngineConfig
	log           *logger.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo repository.BookingRepository,
	inventoryRepo repository.InventoryRepository,
	availability AvailabilityService,
	pricing PricingService,
	coupons CouponService,
	eventPublisher EventPublisher,
	cfg *EngineConfig,
) BookingService {
	return &bookingService{
		bookingRepo:   bookingRepo,
		inventoryRepo: inventoryRepo,
		availability:  availability,
		pricing:       pricing,
		coupons:       coupons,
		events:        newEventEmitter(eventPublisher),
		cfg:           cfg.withDefaults(),
		log:           logger.Get(),
	}
}

// Create opens a PENDING booking
func (s *bookingService) Create(ctx context.Context, in *CreateBookingInput) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	if in == nil {
		return nil, domain.NewValidationError("booking", "is required")
	}
	span.SetAttributes(
		attribute.String("hotel_id", in.HotelID),
		attribute.String("room_type_id", in.RoomTypeID),
		attribute.String("user_id", in.UserID),
	)

	now := s.cfg.now()
	if err := s.validateCreate(in, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rt, err := lookupRoomType(ctx, s.inventoryRepo, in.HotelID, in.RoomTypeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !rt.IsActive {
		return nil, domain.NewValidationError("room_type_id", "room type is not open for booking")
	}
	if err := in.Guest.Validate(rt.MaxOccupancy); err != nil {
		return nil, err
	}

	available, err := s.availability.AvailableCount(ctx, in.HotelID, in.RoomTypeID, in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, err
	}
	if available == 0 {
		metrics.RecordCapacityRejection(ctx, in.HotelID, in.RoomTypeID)
		return nil, s.capacityError(in)
	}

	quote, coupon, err := s.priceStay(ctx, span, in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var couponID, couponCode string
	if coupon != nil {
		couponID, couponCode = coupon.CouponID, coupon.Code
	}
	booking, err := domain.NewBooking(domain.NewBookingParams{
		HotelID:      in.HotelID,
		RoomTypeID:   in.RoomTypeID,
		UserID:       in.UserID,
		CheckInDate:  in.CheckIn,
		CheckOutDate: in.CheckOut,
		Guest:        in.Guest,
		Price:        quote.Snapshot(couponID, couponCode),
	}, now)
	if err != nil {
		return nil, err
	}

	var redemption *repository.CouponRedemption
	if coupon != nil {
		redemption = &repository.CouponRedemption{
			Usage:            domain.NewCouponUsage(coupon.CouponID, in.UserID, booking.ID, quote.CouponDiscount, now),
			Code:             coupon.Code,
			SingleUsePerUser: s.cfg.CouponSingleUsePerUser,
		}
	}

	if err := s.bookingRepo.CreateWithCapacity(ctx, booking, redemption); err != nil {
		switch {
		case domain.IsCapacityError(err):
			metrics.RecordCapacityRejection(ctx, in.HotelID, in.RoomTypeID)
		default:
			if ce, ok := domain.AsCouponError(err); ok {
				metrics.RecordCouponRejection(ctx, string(ce.Reason))
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordBookingCreated(ctx, booking.HotelID, booking.RoomTypeID, coupon != nil)
	s.events.booking(ctx, domain.BookingEventCreated, booking, now)

	span.AddEvent("booking_created", trace.WithAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("reference", booking.Reference),
		attribute.Int("nights", booking.Price.Nights),
		attribute.Float64("total", booking.Price.Total),
	))
	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

func (s *bookingService) validateCreate(in *CreateBookingInput, now time.Time) error {
	if in.HotelID == "" {
		return domain.NewValidationError("hotel_id", "is required")
	}
	if in.RoomTypeID == "" {
		return domain.NewValidationError("room_type_id", "is required")
	}
	if in.UserID == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if err := domain.ValidateStay(in.CheckIn, in.CheckOut); err != nil {
		return err
	}
	if domain.Date(in.CheckIn).Before(domain.Date(now)) {
		return domain.NewValidationError("check_in_date", "must not be in the past")
	}
	return nil
}

// priceStay quotes the stay and, when a code is given, validates it in two
// passes: a probe before the subtotal is known, then a full validation
// against the discount-free subtotal, then a final quote with the discount.
func (s *bookingService) priceStay(ctx context.Context, span trace.Span, in *CreateBookingInput) (*domain.PriceBreakdown, *domain.CouponValidation, error) {
	code := domain.NormalizeCode(in.CouponCode)
	if code != "" {
		probe, err := s.coupons.Probe(ctx, code, in.HotelID, in.UserID)
		if err != nil {
			return nil, nil, err
		}
		if err := probe.Err(); err != nil {
			return nil, nil, err
		}
	}

	quote, err := s.pricing.Quote(ctx, in.HotelID, in.RoomTypeID, in.CheckIn, in.CheckOut, 0)
	if err != nil {
		return nil, nil, err
	}
	if code == "" {
		return quote, nil, nil
	}

	validation, err := s.coupons.Validate(ctx, code, in.HotelID, quote.Subtotal, in.UserID)
	if err != nil {
		return nil, nil, err
	}
	if err := validation.Err(); err != nil {
		return nil, nil, err
	}

	quote, err = s.pricing.Quote(ctx, in.HotelID, in.RoomTypeID, in.CheckIn, in.CheckOut, validation.DiscountAmount)
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.String("coupon_code", code),
		attribute.Float64("discount", validation.DiscountAmount),
	)
	return quote, validation, nil
}

func (s *bookingService) capacityError(in *CreateBookingInput) error {
	return &domain.CapacityError{
		RoomTypeID: in.RoomTypeID,
		CheckIn:    domain.Date(in.CheckIn),
		CheckOut:   domain.Date(in.CheckOut),
	}
}

// Get retrieves a booking by ID
func (s *bookingService) Get(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	if bookingID == "" {
		return nil, domain.NewValidationError("booking_id", "is required")
	}
	span.SetAttributes(attribute.String("booking_id", bookingID))
	return s.bookingRepo.GetByID(ctx, bookingID)
}

// ListMyBookings retrieves a page of the user's bookings
func (s *bookingService) ListMyBookings(ctx context.Context, userID string, page, pageSize int) ([]*domain.Booking, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_mine")
	defer span.End()

	if userID == "" {
		return nil, 0, domain.NewValidationError("user_id", "is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.bookingRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
}

// CheckIn assigns roomID to a CONFIRMED booking
func (s *bookingService) CheckIn(ctx context.Context, bookingID, roomID, actor string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check_in")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("room_id", roomID),
	)

	if roomID == "" {
		return nil, domain.NewValidationError("room_id", "is required")
	}
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	room, err := s.inventoryRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	from := booking.Status
	if err := booking.CheckIn(room.ID, actor, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := room.CheckAssignable(booking); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	change := &domain.RoomStatusChange{
		RoomID: room.ID,
		Status: domain.RoomStatusOccupied,
		Expect: domain.RoomStatusAvailable,
	}
	if err := s.bookingRepo.UpdateStatus(ctx, booking, from, change); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordCheckIn(ctx, booking.HotelID)
	s.events.booking(ctx, domain.BookingEventCheckedIn, booking, now)
	s.log.Info("guest checked in",
		zap.String("booking_id", booking.ID),
		zap.String("room_id", room.ID),
		zap.String("actor", actor),
	)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// CheckOut closes a CHECKED_IN stay
func (s *bookingService) CheckOut(ctx context.Context, bookingID, actor string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check_out")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	from := booking.Status
	if err := booking.CheckOut(actor, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var change *domain.RoomStatusChange
	if booking.RoomID != "" {
		change = &domain.RoomStatusChange{RoomID: booking.RoomID, Status: domain.RoomStatusCleaning}
	}
	if err := s.bookingRepo.UpdateStatus(ctx, booking, from, change); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordCheckOut(ctx, booking.HotelID)
	s.events.booking(ctx, domain.BookingEventCheckedOut, booking, now)
	s.log.Info("guest checked out",
		zap.String("booking_id", booking.ID),
		zap.String("room_id", booking.RoomID),
		zap.String("actor", actor),
	)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// Cancel cancels a PENDING or CONFIRMED booking
func (s *bookingService) Cancel(ctx context.Context, bookingID, reason, actor string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	from := booking.Status
	if err := booking.Cancel(reason, actor, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.bookingRepo.UpdateStatus(ctx, booking, from, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordBookingCancelled(ctx, booking.HotelID, string(from))
	s.events.booking(ctx, domain.BookingEventCancelled, booking, now)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// MarkNoShow moves a CONFIRMED booking whose check-in date has passed to NO_SHOW
func (s *bookingService) MarkNoShow(ctx context.Context, bookingID, actor string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.no_show")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	from := booking.Status
	if err := booking.MarkNoShow(now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.bookingRepo.UpdateStatus(ctx, booking, from, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordNoShow(ctx, booking.HotelID)
	s.events.booking(ctx, domain.BookingEventNoShow, booking, now)
	s.log.Info("booking marked no-show",
		zap.String("booking_id", booking.ID),
		zap.String("actor", actor),
	)

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// UpdateRoomStatus sets a room's operational status
func (s *bookingService) UpdateRoomStatus(ctx context.Context, roomID string, status domain.RoomStatus) (*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", roomID),
		attribute.String("status", string(status)),
	)

	if roomID == "" {
		return nil, domain.NewValidationError("room_id", "is required")
	}
	if !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown room status")
	}
	return s.inventoryRepo.UpdateRoomStatus(ctx, roomID, status, s.cfg.now())
}

// ListRooms lists a hotel's rooms
func (s *bookingService) ListRooms(ctx context.Context, hotelID, roomTypeID string) ([]*domain.Room, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.room.list")
	defer span.End()

	if _, err := s.inventoryRepo.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.inventoryRepo.ListRooms(ctx, hotelID, roomTypeID)
}
