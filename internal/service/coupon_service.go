package service

import (
	"context"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/metrics"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CouponService validates and administers coupons
type CouponService interface {
	// Validate runs every check in order and stops at the first failure.
	// A rejected coupon is reported in the result, not as an error.
	Validate(ctx context.Context, code, hotelID string, bookingAmount float64, userID string) (*domain.CouponValidation, error)

	// Probe runs every check except the minimum amount, for use before the
	// amount is known
	Probe(ctx context.Context, code, hotelID, userID string) (*domain.CouponValidation, error)

	// RecordUsage commits a redemption and increments the coupon's used count
	RecordUsage(ctx context.Context, usage *domain.CouponUsage, code string) error

	CreateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error)
	DeactivateCoupon(ctx context.Context, id string) (*domain.Coupon, error)
	ListCoupons(ctx context.Context, hotelID string) ([]*domain.Coupon, error)
}

type couponService struct {
	couponRepo    repository.CouponRepository
	inventoryRepo repository.InventoryRepository
	cfg           *EngineConfig
}

// NewCouponService creates a new coupon service
func NewCouponService(couponRepo repository.CouponRepository, inventoryRepo repository.InventoryRepository, cfg *EngineConfig) CouponService {
	return &couponService{
		couponRepo:    couponRepo,
		inventoryRepo: inventoryRepo,
		cfg:           cfg.withDefaults(),
	}
}

func (s *couponService) Validate(ctx context.Context, code, hotelID string, bookingAmount float64, userID string) (*domain.CouponValidation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.validate")
	defer span.End()

	if bookingAmount < 0 {
		return nil, domain.NewValidationError("booking_amount", "must not be negative")
	}
	return s.check(ctx, span, code, hotelID, bookingAmount, userID, true)
}

func (s *couponService) Probe(ctx context.Context, code, hotelID, userID string) (*domain.CouponValidation, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.probe")
	defer span.End()

	return s.check(ctx, span, code, hotelID, 0, userID, false)
}

func (s *couponService) check(
	ctx context.Context,
	span trace.Span,
	code, hotelID string,
	amount float64,
	userID string,
	checkMinimum bool,
) (*domain.CouponValidation, error) {
	normalized := domain.NormalizeCode(code)
	span.SetAttributes(
		attribute.String("coupon_code", normalized),
		attribute.String("hotel_id", hotelID),
	)

	reject := func(reason domain.CouponReason) (*domain.CouponValidation, error) {
		metrics.RecordCouponRejection(ctx, string(reason))
		span.SetAttributes(attribute.String("reason", string(reason)))
		return &domain.CouponValidation{Valid: false, Code: normalized, Reason: reason}, nil
	}

	if normalized == "" {
		return reject(domain.CouponInvalidCode)
	}

	coupon, err := s.couponRepo.GetByCode(ctx, normalized)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return reject(domain.CouponInvalidCode)
		}
		return nil, err
	}
	if !coupon.IsLive() {
		return reject(domain.CouponInvalidCode)
	}
	if !coupon.InWindow(s.cfg.now()) {
		return reject(domain.CouponExpired)
	}
	if !coupon.AppliesToHotel(hotelID) {
		return reject(domain.CouponWrongHotel)
	}
	if coupon.LimitReached() {
		return reject(domain.CouponLimitReached)
	}
	if checkMinimum && amount < coupon.MinBookingAmount {
		return reject(domain.CouponBelowMinimum)
	}
	if s.cfg.CouponSingleUsePerUser && userID != "" {
		used, err := s.couponRepo.HasUsage(ctx, coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if used {
			return reject(domain.CouponAlreadyUsed)
		}
	}

	return &domain.CouponValidation{
		Valid:          true,
		CouponID:       coupon.ID,
		Code:           normalized,
		DiscountType:   coupon.DiscountType,
		DiscountAmount: coupon.ComputeDiscount(amount),
	}, nil
}

func (s *couponService) RecordUsage(ctx context.Context, usage *domain.CouponUsage, code string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.record_usage")
	defer span.End()

	if usage == nil || usage.CouponID == "" {
		return domain.NewValidationError("coupon_id", "is required")
	}
	if usage.BookingID == "" {
		return domain.NewValidationError("booking_id", "is required")
	}

	err := s.couponRepo.RecordUsage(ctx, &repository.CouponRedemption{
		Usage:            usage,
		Code:             domain.NormalizeCode(code),
		SingleUsePerUser: s.cfg.CouponSingleUsePerUser,
	})
	if err != nil {
		if ce, ok := domain.AsCouponError(err); ok {
			metrics.RecordCouponRejection(ctx, string(ce.Reason))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *couponService) CreateCoupon(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.create")
	defer span.End()

	if coupon == nil {
		return nil, domain.NewValidationError("coupon", "is required")
	}
	coupon.Code = domain.NormalizeCode(coupon.Code)
	if err := coupon.Validate(); err != nil {
		return nil, err
	}
	if coupon.HotelID != "" {
		if _, err := s.inventoryRepo.GetHotel(ctx, coupon.HotelID); err != nil {
			return nil, err
		}
	}

	now := s.cfg.now()
	coupon.ID = ""
	coupon.UsedCount = 0
	coupon.IsActive = true
	coupon.DeletedAt = nil
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("coupon_id", coupon.ID))
	return coupon, nil
}

func (s *couponService) DeactivateCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.deactivate")
	defer span.End()

	if id == "" {
		return nil, domain.NewValidationError("coupon_id", "is required")
	}
	return s.couponRepo.Deactivate(ctx, id, s.cfg.now())
}

func (s *couponService) ListCoupons(ctx context.Context, hotelID string) ([]*domain.Coupon, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.coupon.list")
	defer span.End()

	return s.couponRepo.List(ctx, hotelID)
}
