package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Round2 rounds half away from zero to 2 decimal places
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// IsWeekend reports Saturday or Sunday
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DayType classifies a night for day-type pricing
type DayType string

const (
	DayTypeWeekday DayType = "WEEKDAY"
	DayTypeWeekend DayType = "WEEKEND"
)

func DayTypeOf(d time.Time) DayType {
	if IsWeekend(d) {
		return DayTypeWeekend
	}
	return DayTypeWeekday
}

// SeasonalRule applies a multiplier to nights in [StartDate, EndDate]
type SeasonalRule struct {
	ID         string    `json:"id"`
	HotelID    string    `json:"hotel_id"`
	Name       string    `json:"name,omitempty"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Multiplier float64   `json:"multiplier"`
	// Priority resolves overlapping rules; higher wins, ties keep stored order
	Priority int `json:"priority"`
	Position int `json:"position"`
}

func (r SeasonalRule) Matches(d time.Time) bool {
	d = Date(d)
	return !d.Before(Date(r.StartDate)) && !d.After(Date(r.EndDate))
}

// DayTypeRule applies a multiplier to weekday or weekend nights
type DayTypeRule struct {
	ID         string  `json:"id"`
	HotelID    string  `json:"hotel_id"`
	DayType    DayType `json:"day_type"`
	Multiplier float64 `json:"multiplier"`
}

// OccupancyTier applies a multiplier when occupancy is within [MinPercent, MaxPercent]
type OccupancyTier struct {
	ID         string  `json:"id"`
	HotelID    string  `json:"hotel_id"`
	MinPercent int     `json:"min_occupancy"`
	MaxPercent int     `json:"max_occupancy"`
	Multiplier float64 `json:"multiplier"`
	Position   int     `json:"position"`
}

func (t OccupancyTier) Matches(percent int) bool {
	return percent >= t.MinPercent && percent <= t.MaxPercent
}

// PricingRules are a hotel's rule tables, replaced wholesale by staff
type PricingRules struct {
	HotelID   string          `json:"hotel_id"`
	Seasonal  []SeasonalRule  `json:"seasonal"`
	DayTypes  []DayTypeRule   `json:"day_types"`
	Occupancy []OccupancyTier `json:"occupancy"`
}

// Normalize assigns hotel ids and stored positions and orders seasonal
// rules for first-match lookup.
func (p *PricingRules) Normalize() {
	for i := range p.Seasonal {
		p.Seasonal[i].HotelID = p.HotelID
		if p.Seasonal[i].Position == 0 {
			p.Seasonal[i].Position = i + 1
		}
		p.Seasonal[i].StartDate = Date(p.Seasonal[i].StartDate)
		p.Seasonal[i].EndDate = Date(p.Seasonal[i].EndDate)
	}
	for i := range p.DayTypes {
		p.DayTypes[i].HotelID = p.HotelID
	}
	for i := range p.Occupancy {
		p.Occupancy[i].HotelID = p.HotelID
		if p.Occupancy[i].Position == 0 {
			p.Occupancy[i].Position = i + 1
		}
	}
	sort.SliceStable(p.Seasonal, func(i, j int) bool {
		if p.Seasonal[i].Priority != p.Seasonal[j].Priority {
			return p.Seasonal[i].Priority > p.Seasonal[j].Priority
		}
		return p.Seasonal[i].Position < p.Seasonal[j].Position
	})
	sort.SliceStable(p.Occupancy, func(i, j int) bool {
		return p.Occupancy[i].Position < p.Occupancy[j].Position
	})
}

// Validate rejects rule sets that could not be priced
func (p *PricingRules) Validate() error {
	for i, r := range p.Seasonal {
		if r.Multiplier < 0 {
			return NewValidationError(fmt.Sprintf("seasonal[%d].multiplier", i), "must not be negative")
		}
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			return NewValidationError(fmt.Sprintf("seasonal[%d]", i), "start_date and end_date are required")
		}
		if Date(r.EndDate).Before(Date(r.StartDate)) {
			return NewValidationError(fmt.Sprintf("seasonal[%d].end_date", i), "must not be before start_date")
		}
	}
	seen := map[DayType]bool{}
	for i, r := range p.DayTypes {
		if r.DayType != DayTypeWeekday && r.DayType != DayTypeWeekend {
			return NewValidationError(fmt.Sprintf("day_types[%d].day_type", i), "must be WEEKDAY or WEEKEND")
		}
		if seen[r.DayType] {
			return NewValidationError(fmt.Sprintf("day_types[%d].day_type", i), "duplicate day type")
		}
		seen[r.DayType] = true
		if r.Multiplier < 0 {
			return NewValidationError(fmt.Sprintf("day_types[%d].multiplier", i), "must not be negative")
		}
	}
	for i, t := range p.Occupancy {
		if t.MinPercent < 0 || t.MaxPercent > 100 || t.MaxPercent < t.MinPercent {
			return NewValidationError(fmt.Sprintf("occupancy[%d]", i), "range must satisfy 0 <= min <= max <= 100")
		}
		if t.Multiplier < 0 {
			return NewValidationError(fmt.Sprintf("occupancy[%d].multiplier", i), "must not be negative")
		}
	}
	return nil
}

// SeasonalMultiplier returns the first matching rule's multiplier, else 1.0.
// Rules must already be in lookup order (see Normalize).
func (p *PricingRules) SeasonalMultiplier(d time.Time) float64 {
	for _, r := range p.Seasonal {
		if r.Matches(d) {
			return r.Multiplier
		}
	}
	return 1.0
}

func (p *PricingRules) DayTypeMultiplier(d time.Time) float64 {
	dt := DayTypeOf(d)
	for _, r := range p.DayTypes {
		if r.DayType == dt {
			return r.Multiplier
		}
	}
	return 1.0
}

func (p *PricingRules) OccupancyMultiplier(percent int) float64 {
	for _, t := range p.Occupancy {
		if t.Matches(percent) {
			return t.Multiplier
		}
	}
	return 1.0
}

// OccupancyPercent is round(booked / active * 100), or 0 with no active rooms
func OccupancyPercent(booked, active int) int {
	if active <= 0 {
		return 0
	}
	return int(math.Round(float64(booked) / float64(active) * 100))
}

// DailyRate is one night of a quote
type DailyRate struct {
	Date                time.Time `json:"date"`
	DayType             DayType   `json:"day_type"`
	SeasonalMultiplier  float64   `json:"seasonal_multiplier"`
	DayTypeMultiplier   float64   `json:"day_type_multiplier"`
	OccupancyPercent    int       `json:"occupancy_percent"`
	OccupancyMultiplier float64   `json:"occupancy_multiplier"`
	// Price is rounded for display; totals use the unrounded value
	Price float64 `json:"price"`
}

// PriceBreakdown is a full quote for a stay
type PriceBreakdown struct {
	HotelID                string      `json:"hotel_id"`
	RoomTypeID             string      `json:"room_type_id"`
	CheckIn                time.Time   `json:"check_in"`
	CheckOut               time.Time   `json:"check_out"`
	Nights                 int         `json:"nights"`
	BasePrice              float64     `json:"base_price"`
	Daily                  []DailyRate `json:"daily"`
	AvgSeasonalMultiplier  float64     `json:"avg_seasonal_multiplier"`
	AvgDayTypeMultiplier   float64     `json:"avg_day_type_multiplier"`
	AvgOccupancyMultiplier float64     `json:"avg_occupancy_multiplier"`
	Subtotal               float64     `json:"subtotal"`
	CouponDiscount         float64     `json:"coupon_discount"`
	DiscountedSubtotal     float64     `json:"discounted_subtotal"`
	TaxRate                float64     `json:"tax_rate"`
	Taxes                  float64     `json:"taxes"`
	Total                  float64     `json:"total"`
	Currency               string      `json:"currency"`
}

// Totals is the aggregate part of a quote
type Totals struct {
	Subtotal           float64
	Discount           float64
	DiscountedSubtotal float64
	Taxes              float64
	Total              float64
}

// ComputeTotals applies a discount and tax to the unrounded sum of nightly prices
func ComputeTotals(rawSubtotal, discount, taxRate float64) Totals {
	subtotal := Round2(rawSubtotal)
	if discount < 0 {
		discount = 0
	}
	discounted := math.Max(0, Round2(subtotal-discount))
	taxes := Round2(discounted * taxRate)
	return Totals{
		Subtotal:           subtotal,
		Discount:           discount,
		DiscountedSubtotal: discounted,
		Taxes:              taxes,
		Total:              Round2(discounted + taxes),
	}
}

// Snapshot freezes the quote onto a booking
func (b *PriceBreakdown) Snapshot(couponID, couponCode string) PriceSnapshot {
	return PriceSnapshot{
		BasePrice:           b.BasePrice,
		SeasonalMultiplier:  b.AvgSeasonalMultiplier,
		DayTypeMultiplier:   b.AvgDayTypeMultiplier,
		OccupancyMultiplier: b.AvgOccupancyMultiplier,
		Nights:              b.Nights,
		Subtotal:            b.Subtotal,
		CouponID:            couponID,
		CouponCode:          couponCode,
		DiscountAmount:      b.CouponDiscount,
		Taxes:               b.Taxes,
		Total:               b.Total,
		Currency:            b.Currency,
	}
}
