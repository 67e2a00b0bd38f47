package service

import (
	"testing"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

func TestCouponValidate_Reasons(t *testing.T) {
	h := newHarness(t, 1)
	other := &domain.Hotel{Name: "Seaside", City: "Goa", IsActive: true}
	if err := h.store.Inventory.CreateHotel(h.ctx, other); err != nil {
		t.Fatalf("CreateHotel() error = %v", err)
	}

	h.addCoupon(&domain.Coupon{Code: "SAVE10", DiscountValue: 10, MaxDiscount: floatPtr(300), MinBookingAmount: 1000})
	h.addCoupon(&domain.Coupon{
		Code:          "LATER",
		DiscountValue: 10,
		ValidFrom:     harnessStart.AddDate(0, 0, 1),
		ValidUntil:    harnessStart.AddDate(0, 1, 0),
	})
	h.addCoupon(&domain.Coupon{
		Code:          "GONE",
		DiscountValue: 10,
		ValidFrom:     harnessStart.AddDate(0, -2, 0),
		ValidUntil:    harnessStart.AddDate(0, -1, 0),
	})
	h.addCoupon(&domain.Coupon{Code: "SEASIDE", HotelID: other.ID, DiscountValue: 10})
	h.addCoupon(&domain.Coupon{Code: "FULL", DiscountValue: 10, UsageLimit: intPtr(2), UsedCount: 2})
	// expired and scoped to another hotel at once
	h.addCoupon(&domain.Coupon{
		Code:          "STALEOTHER",
		HotelID:       other.ID,
		DiscountValue: 10,
		ValidFrom:     harnessStart.AddDate(0, -2, 0),
		ValidUntil:    harnessStart.AddDate(0, -1, 0),
	})
	off := h.addCoupon(&domain.Coupon{Code: "RETIRED", DiscountValue: 10})
	if _, err := h.coupons.DeactivateCoupon(h.ctx, off.ID); err != nil {
		t.Fatalf("DeactivateCoupon() error = %v", err)
	}

	tests := []struct {
		name   string
		code   string
		amount float64
		want   domain.CouponReason
	}{
		{"unknown code", "NOPE", 6000, domain.CouponInvalidCode},
		{"blank code", "  ", 6000, domain.CouponInvalidCode},
		{"deactivated", "RETIRED", 6000, domain.CouponInvalidCode},
		{"not yet valid", "LATER", 6000, domain.CouponExpired},
		{"expired", "GONE", 6000, domain.CouponExpired},
		{"other hotel", "SEASIDE", 6000, domain.CouponWrongHotel},
		{"limit reached", "FULL", 6000, domain.CouponLimitReached},
		{"below minimum", "SAVE10", 999.99, domain.CouponBelowMinimum},
		{"window checked before hotel", "STALEOTHER", 6000, domain.CouponExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := h.coupons.Validate(h.ctx, tt.code, h.hotel.ID, tt.amount, "u1")
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if v.Valid {
				t.Fatalf("Validate() valid, want %s", tt.want)
			}
			if v.Reason != tt.want {
				t.Errorf("Reason = %s, want %s", v.Reason, tt.want)
			}
			if ce, ok := domain.AsCouponError(v.Err()); !ok || ce.Reason != tt.want {
				t.Errorf("Err() = %v", v.Err())
			}
		})
	}
}

func TestCouponValidate_DiscountCapAndCase(t *testing.T) {
	h := newHarness(t, 1)
	h.addCoupon(&domain.Coupon{Code: "SAVE10", DiscountValue: 10, MaxDiscount: floatPtr(300)})
	h.addCoupon(&domain.Coupon{Code: "FLAT5K", DiscountType: domain.DiscountFixed, DiscountValue: 5000})

	v, err := h.coupons.Validate(h.ctx, "save10", h.hotel.ID, 6000, "u1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid || v.Code != "SAVE10" {
		t.Fatalf("Validate() = %+v, want valid SAVE10", v)
	}
	if v.DiscountAmount != 300 {
		t.Errorf("DiscountAmount = %v, want 300", v.DiscountAmount)
	}

	// a fixed discount never exceeds the amount
	v, err = h.coupons.Validate(h.ctx, "FLAT5K", h.hotel.ID, 1200, "u1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid || v.DiscountAmount != 1200 {
		t.Errorf("Validate() = %+v, want discount 1200", v)
	}

	if _, err := h.coupons.Validate(h.ctx, "SAVE10", h.hotel.ID, -1, "u1"); !domain.IsValidationError(err) {
		t.Errorf("negative amount error = %v, want ValidationError", err)
	}
}

func TestCouponValidate_SingleUsePerUser(t *testing.T) {
	h := newHarness(t, 1)
	c := h.addCoupon(&domain.Coupon{Code: "ONCE", DiscountValue: 5})

	usage := domain.NewCouponUsage(c.ID, "u1", "booking-1", 100, harnessStart)
	if err := h.coupons.RecordUsage(h.ctx, usage, "once"); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}

	v, err := h.coupons.Validate(h.ctx, "ONCE", h.hotel.ID, 2000, "u1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid || v.Reason != domain.CouponAlreadyUsed {
		t.Errorf("same user = %+v, want ALREADY_USED", v)
	}

	v, err = h.coupons.Validate(h.ctx, "ONCE", h.hotel.ID, 2000, "u2")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid {
		t.Errorf("other user = %+v, want valid", v)
	}

	// anonymous checks skip the per-user rule
	v, err = h.coupons.Validate(h.ctx, "ONCE", h.hotel.ID, 2000, "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid {
		t.Errorf("anonymous = %+v, want valid", v)
	}

	stored, err := h.store.Coupons.GetByID(h.ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.UsedCount != 1 {
		t.Errorf("UsedCount = %d, want 1", stored.UsedCount)
	}

	err = h.coupons.RecordUsage(h.ctx, domain.NewCouponUsage(c.ID, "u1", "booking-2", 100, harnessStart), "ONCE")
	if ce, ok := domain.AsCouponError(err); !ok || ce.Reason != domain.CouponAlreadyUsed {
		t.Errorf("second RecordUsage() error = %v, want ALREADY_USED", err)
	}
}

func TestCouponValidate_MultiUseWhenConfigured(t *testing.T) {
	h := newHarness(t, 1)
	h.cfg.CouponSingleUsePerUser = false
	coupons := NewCouponService(h.store.Coupons, h.store.Inventory, h.cfg)
	c := h.addCoupon(&domain.Coupon{Code: "AGAIN", DiscountValue: 5})

	if err := coupons.RecordUsage(h.ctx, domain.NewCouponUsage(c.ID, "u1", "booking-1", 50, harnessStart), "AGAIN"); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}
	v, err := coupons.Validate(h.ctx, "AGAIN", h.hotel.ID, 1000, "u1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid {
		t.Errorf("Validate() = %+v, want valid", v)
	}
}

func TestCouponProbe_SkipsMinimum(t *testing.T) {
	h := newHarness(t, 1)
	h.addCoupon(&domain.Coupon{Code: "BIG", DiscountValue: 10, MinBookingAmount: 50000})

	v, err := h.coupons.Probe(h.ctx, "BIG", h.hotel.ID, "u1")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !v.Valid {
		t.Errorf("Probe() = %+v, want valid", v)
	}

	v, err = h.coupons.Probe(h.ctx, "MISSING", h.hotel.ID, "u1")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if v.Valid || v.Reason != domain.CouponInvalidCode {
		t.Errorf("Probe() = %+v, want INVALID_CODE", v)
	}
}

func TestCreateCoupon(t *testing.T) {
	h := newHarness(t, 1)

	c, err := h.coupons.CreateCoupon(h.ctx, &domain.Coupon{
		Code:          " monsoon ",
		HotelID:       h.hotel.ID,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 15,
		UsedCount:     7,
		ValidFrom:     harnessStart,
		ValidUntil:    harnessStart.AddDate(0, 3, 0),
	})
	if err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}
	if c.ID == "" || c.Code != "MONSOON" || c.UsedCount != 0 || !c.IsActive {
		t.Errorf("created coupon = %+v", c)
	}

	_, err = h.coupons.CreateCoupon(h.ctx, &domain.Coupon{
		Code:          "MONSOON",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 100,
		ValidFrom:     harnessStart,
		ValidUntil:    harnessStart.AddDate(0, 1, 0),
	})
	if !domain.IsValidationError(err) {
		t.Errorf("duplicate code error = %v, want ValidationError", err)
	}

	_, err = h.coupons.CreateCoupon(h.ctx, &domain.Coupon{
		Code:          "X",
		HotelID:       "missing",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 100,
		ValidFrom:     harnessStart,
		ValidUntil:    harnessStart.AddDate(0, 1, 0),
	})
	if !domain.IsNotFoundError(err) {
		t.Errorf("unknown hotel error = %v, want NotFoundError", err)
	}

	_, err = h.coupons.CreateCoupon(h.ctx, &domain.Coupon{Code: "BAD", DiscountType: domain.DiscountPercentage, DiscountValue: 120})
	if !domain.IsValidationError(err) {
		t.Errorf("percentage over 100 error = %v, want ValidationError", err)
	}

	list, err := h.coupons.ListCoupons(h.ctx, h.hotel.ID)
	if err != nil {
		t.Fatalf("ListCoupons() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListCoupons() = %d coupons, want 1", len(list))
	}
}
