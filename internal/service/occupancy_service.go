package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// OccupancyService reports hotel-wide occupancy
type OccupancyService interface {
	// OccupancyPercent is the share of active rooms held by bookings on date
	OccupancyPercent(ctx context.Context, hotelID string, date time.Time) (int, error)

	// DailyOccupancy returns one entry per night in [from, to)
	DailyOccupancy(ctx context.Context, hotelID string, from, to time.Time) ([]domain.OccupancyDay, error)

	// OccupancyReport is DailyOccupancy for a known hotel with a bounded range
	OccupancyReport(ctx context.Context, hotelID string, from, to time.Time) (*domain.OccupancyReport, error)
}

type occupancyService struct {
	inventoryRepo repository.InventoryRepository
	bookingRepo   repository.BookingRepository
}

// NewOccupancyService creates a new occupancy service
func NewOccupancyService(inventoryRepo repository.InventoryRepository, bookingRepo repository.BookingRepository) OccupancyService {
	return &occupancyService{
		inventoryRepo: inventoryRepo,
		bookingRepo:   bookingRepo,
	}
}

func (s *occupancyService) OccupancyPercent(ctx context.Context, hotelID string, date time.Time) (int, error) {
	d := domain.Date(date)
	days, err := s.DailyOccupancy(ctx, hotelID, d, d.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	return days[0].Percent, nil
}

func (s *occupancyService) DailyOccupancy(ctx context.Context, hotelID string, from, to time.Time) ([]domain.OccupancyDay, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.occupancy.daily")
	defer span.End()

	if hotelID == "" {
		return nil, domain.NewValidationError("hotel_id", "is required")
	}
	if err := domain.ValidateRange(from, to); err != nil {
		return nil, err
	}

	active, err := s.inventoryRepo.CountActiveRooms(ctx, hotelID, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	dates := domain.StayDates(from, to)
	span.SetAttributes(
		attribute.String("hotel_id", hotelID),
		attribute.Int("active_rooms", active),
		attribute.Int("nights", len(dates)),
	)

	days := make([]domain.OccupancyDay, 0, len(dates))
	for _, d := range dates {
		booked := 0
		if active > 0 {
			booked, err = s.bookingRepo.CountOverlapping(ctx, hotelID, "", d, d.AddDate(0, 0, 1))
			if err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		days = append(days, domain.OccupancyDay{
			Date:        d,
			BookedRooms: booked,
			ActiveRooms: active,
			Percent:     domain.OccupancyPercent(booked, active),
		})
	}
	return days, nil
}

func (s *occupancyService) OccupancyReport(ctx context.Context, hotelID string, from, to time.Time) (*domain.OccupancyReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.occupancy.report")
	defer span.End()

	if err := domain.ValidateRange(from, to); err != nil {
		return nil, err
	}
	if n := domain.Nights(from, to); n > domain.MaxReportDays {
		return nil, domain.NewValidationError("to", fmt.Sprintf("range of %d days exceeds %d", n, domain.MaxReportDays))
	}
	if _, err := s.inventoryRepo.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}

	days, err := s.DailyOccupancy(ctx, hotelID, from, to)
	if err != nil {
		return nil, err
	}
	return domain.NewOccupancyReport(hotelID, from, to, days), nil
}
