package service

import (
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// EngineConfig contains configuration shared by the engine services
type EngineConfig struct {
	GSTRate                float64
	PaymentSessionWindow   time.Duration
	Merchant               domain.Merchant
	Currency               string
	CouponSingleUsePerUser bool
	SweepBatchSize         int

	// Now is the engine clock; defaults to time.Now
	Now func() time.Time
}

// DefaultEngineConfig returns the configuration used when none is given
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		GSTRate:                0.18,
		PaymentSessionWindow:   5 * time.Minute,
		Merchant:               domain.Merchant{ID: "merchant@upi", Name: "Hotel Booking"},
		Currency:               "INR",
		CouponSingleUsePerUser: true,
		SweepBatchSize:         500,
		Now:                    time.Now,
	}
}

// withDefaults fills zero fields, leaving GSTRate as given
func (c *EngineConfig) withDefaults() *EngineConfig {
	def := DefaultEngineConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.PaymentSessionWindow <= 0 {
		out.PaymentSessionWindow = def.PaymentSessionWindow
	}
	if out.Merchant.ID == "" {
		out.Merchant = def.Merchant
	}
	if out.Currency == "" {
		out.Currency = def.Currency
	}
	if out.SweepBatchSize <= 0 {
		out.SweepBatchSize = def.SweepBatchSize
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

func (c *EngineConfig) now() time.Time {
	return c.Now().UTC()
}
