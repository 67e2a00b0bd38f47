package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AvailabilityService answers how many rooms of a type are free for a stay
type AvailabilityService interface {
	// IsAvailable reports whether at least one room is free for every night
	IsAvailable(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (bool, error)

	// AvailableCount is active rooms minus overlapping holding bookings, floored at zero
	AvailableCount(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (int, error)
}

type availabilityService struct {
	inventoryRepo repository.InventoryRepository
	bookingRepo   repository.BookingRepository
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(inventoryRepo repository.InventoryRepository, bookingRepo repository.BookingRepository) AvailabilityService {
	return &availabilityService{
		inventoryRepo: inventoryRepo,
		bookingRepo:   bookingRepo,
	}
}

func (s *availabilityService) IsAvailable(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (bool, error) {
	n, err := s.AvailableCount(ctx, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *availabilityService) AvailableCount(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.count")
	defer span.End()

	span.SetAttributes(
		attribute.String("hotel_id", hotelID),
		attribute.String("room_type_id", roomTypeID),
	)

	if hotelID == "" {
		return 0, domain.NewValidationError("hotel_id", "is required")
	}
	if roomTypeID == "" {
		return 0, domain.NewValidationError("room_type_id", "is required")
	}
	if err := domain.ValidateStay(checkIn, checkOut); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	if _, err := lookupRoomType(ctx, s.inventoryRepo, hotelID, roomTypeID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	active, err := s.inventoryRepo.CountActiveRooms(ctx, hotelID, roomTypeID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	booked, err := s.bookingRepo.CountOverlapping(ctx, hotelID, roomTypeID, domain.Date(checkIn), domain.Date(checkOut))
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	available := max(0, active-booked)
	span.SetAttributes(
		attribute.Int("active_rooms", active),
		attribute.Int("booked_rooms", booked),
		attribute.Int("available", available),
	)
	span.SetStatus(codes.Ok, "")
	return available, nil
}

// lookupRoomType loads a room type and checks it belongs to hotelID
func lookupRoomType(ctx context.Context, repo repository.InventoryRepository, hotelID, roomTypeID string) (*domain.RoomType, error) {
	rt, err := repo.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if rt.HotelID != hotelID {
		return nil, domain.NewNotFoundError("room type", roomTypeID)
	}
	return rt, nil
}
