package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/metrics"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PricingService quotes stays and manages per-hotel pricing rules
type PricingService interface {
	// Quote prices every night of [checkIn, checkOut) and applies couponDiscount and tax
	Quote(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time, couponDiscount float64) (*domain.PriceBreakdown, error)

	// GetPricingRules returns a hotel's rules in evaluation order
	GetPricingRules(ctx context.Context, hotelID string) (*domain.PricingRules, error)

	// ReplacePricingRules swaps all of a hotel's rules
	ReplacePricingRules(ctx context.Context, rules *domain.PricingRules) (*domain.PricingRules, error)
}

type pricingService struct {
	inventoryRepo repository.InventoryRepository
	pricingRepo   repository.PricingRepository
	occupancy     OccupancyService
	cfg           *EngineConfig
}

// NewPricingService creates a new pricing service
func NewPricingService(
	inventoryRepo repository.InventoryRepository,
	pricingRepo repository.PricingRepository,
	occupancy OccupancyService,
	cfg *EngineConfig,
) PricingService {
	return &pricingService{
		inventoryRepo: inventoryRepo,
		pricingRepo:   pricingRepo,
		occupancy:     occupancy,
		cfg:           cfg.withDefaults(),
	}
}

func (s *pricingService) Quote(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time, couponDiscount float64) (*domain.PriceBreakdown, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.quote")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("hotel_id", hotelID),
		attribute.String("room_type_id", roomTypeID),
	)

	if err := domain.ValidateStay(checkIn, checkOut); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if couponDiscount < 0 {
		return nil, domain.NewValidationError("coupon_discount", "must not be negative")
	}

	rt, err := lookupRoomType(ctx, s.inventoryRepo, hotelID, roomTypeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rules, err := s.pricingRepo.GetRules(ctx, hotelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	occupancy, err := s.occupancy.DailyOccupancy(ctx, hotelID, checkIn, checkOut)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	daily := make([]domain.DailyRate, 0, len(occupancy))
	var raw, sumSeasonal, sumDayType, sumOccupancy float64
	for _, occ := range occupancy {
		d := occ.Date
		seasonal := rules.SeasonalMultiplier(d)
		dayType := rules.DayTypeMultiplier(d)
		occMult := rules.OccupancyMultiplier(occ.Percent)

		price := rt.BasePrice * seasonal * dayType * occMult
		raw += price
		sumSeasonal += seasonal
		sumDayType += dayType
		sumOccupancy += occMult

		daily = append(daily, domain.DailyRate{
			Date:                d,
			DayType:             domain.DayTypeOf(d),
			SeasonalMultiplier:  seasonal,
			DayTypeMultiplier:   dayType,
			OccupancyPercent:    occ.Percent,
			OccupancyMultiplier: occMult,
			Price:               domain.Round2(price),
		})
	}

	nights := float64(len(daily))
	totals := domain.ComputeTotals(raw, couponDiscount, s.cfg.GSTRate)
	breakdown := &domain.PriceBreakdown{
		HotelID:                hotelID,
		RoomTypeID:             roomTypeID,
		CheckIn:                domain.Date(checkIn),
		CheckOut:               domain.Date(checkOut),
		Nights:                 len(daily),
		BasePrice:              rt.BasePrice,
		Daily:                  daily,
		AvgSeasonalMultiplier:  sumSeasonal / nights,
		AvgDayTypeMultiplier:   sumDayType / nights,
		AvgOccupancyMultiplier: sumOccupancy / nights,
		Subtotal:               totals.Subtotal,
		CouponDiscount:         totals.Discount,
		DiscountedSubtotal:     totals.DiscountedSubtotal,
		TaxRate:                s.cfg.GSTRate,
		Taxes:                  totals.Taxes,
		Total:                  totals.Total,
		Currency:               s.cfg.Currency,
	}

	metrics.RecordQuoteDuration(ctx, hotelID, time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("nights", breakdown.Nights),
		attribute.Float64("total", breakdown.Total),
	)
	span.SetStatus(codes.Ok, "")
	return breakdown, nil
}

func (s *pricingService) GetPricingRules(ctx context.Context, hotelID string) (*domain.PricingRules, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.get_rules")
	defer span.End()

	if _, err := s.inventoryRepo.GetHotel(ctx, hotelID); err != nil {
		return nil, err
	}
	return s.pricingRepo.GetRules(ctx, hotelID)
}

func (s *pricingService) ReplacePricingRules(ctx context.Context, rules *domain.PricingRules) (*domain.PricingRules, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.replace_rules")
	defer span.End()

	if rules == nil || rules.HotelID == "" {
		return nil, domain.NewValidationError("hotel_id", "is required")
	}
	span.SetAttributes(
		attribute.String("hotel_id", rules.HotelID),
		attribute.Int("seasonal_rules", len(rules.Seasonal)),
		attribute.Int("day_type_rules", len(rules.DayTypes)),
		attribute.Int("occupancy_tiers", len(rules.Occupancy)),
	)

	if err := rules.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	rules.Normalize()
	if _, err := s.inventoryRepo.GetHotel(ctx, rules.HotelID); err != nil {
		return nil, err
	}

	if err := s.pricingRepo.ReplaceRules(ctx, rules); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s.pricingRepo.GetRules(ctx, rules.HotelID)
}
