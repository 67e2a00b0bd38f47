package dto

import (
	"fmt"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// QuoteRequest asks for the price of a stay, optionally with a coupon
type QuoteRequest struct {
	HotelID    string `json:"hotel_id" binding:"required"`
	RoomTypeID string `json:"room_type_id" binding:"required"`
	CheckIn    string `json:"check_in_date" binding:"required"`
	CheckOut   string `json:"check_out_date" binding:"required"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// DailyRateResponse is one night of a quote
type DailyRateResponse struct {
	Date                string  `json:"date"`
	DayType             string  `json:"day_type"`
	SeasonalMultiplier  float64 `json:"seasonal_multiplier"`
	DayTypeMultiplier   float64 `json:"day_type_multiplier"`
	OccupancyPercent    int     `json:"occupancy_percent"`
	OccupancyMultiplier float64 `json:"occupancy_multiplier"`
	Price               float64 `json:"price"`
}

// QuoteResponse is a price breakdown plus the coupon outcome when one was given
type QuoteResponse struct {
	HotelID                string                   `json:"hotel_id"`
	RoomTypeID             string                   `json:"room_type_id"`
	CheckIn                string                   `json:"check_in_date"`
	CheckOut               string                   `json:"check_out_date"`
	Nights                 int                      `json:"nights"`
	BasePrice              float64                  `json:"base_price"`
	Daily                  []DailyRateResponse      `json:"daily"`
	AvgSeasonalMultiplier  float64                  `json:"avg_seasonal_multiplier"`
	AvgDayTypeMultiplier   float64                  `json:"avg_day_type_multiplier"`
	AvgOccupancyMultiplier float64                  `json:"avg_occupancy_multiplier"`
	Subtotal               float64                  `json:"subtotal"`
	CouponDiscount         float64                  `json:"coupon_discount"`
	DiscountedSubtotal     float64                  `json:"discounted_subtotal"`
	TaxRate                float64                  `json:"tax_rate"`
	Taxes                  float64                  `json:"taxes"`
	Total                  float64                  `json:"total"`
	Currency               string                   `json:"currency"`
	Coupon                 *domain.CouponValidation `json:"coupon,omitempty"`
}

// QuoteFromDomain converts a breakdown to its wire shape
func QuoteFromDomain(q *domain.PriceBreakdown, coupon *domain.CouponValidation) *QuoteResponse {
	daily := make([]DailyRateResponse, 0, len(q.Daily))
	for _, d := range q.Daily {
		daily = append(daily, DailyRateResponse{
			Date:                domain.FormatDate(d.Date),
			DayType:             string(d.DayType),
			SeasonalMultiplier:  d.SeasonalMultiplier,
			DayTypeMultiplier:   d.DayTypeMultiplier,
			OccupancyPercent:    d.OccupancyPercent,
			OccupancyMultiplier: d.OccupancyMultiplier,
			Price:               d.Price,
		})
	}
	return &QuoteResponse{
		HotelID:                q.HotelID,
		RoomTypeID:             q.RoomTypeID,
		CheckIn:                domain.FormatDate(q.CheckIn),
		CheckOut:               domain.FormatDate(q.CheckOut),
		Nights:                 q.Nights,
		BasePrice:              q.BasePrice,
		Daily:                  daily,
		AvgSeasonalMultiplier:  q.AvgSeasonalMultiplier,
		AvgDayTypeMultiplier:   q.AvgDayTypeMultiplier,
		AvgOccupancyMultiplier: q.AvgOccupancyMultiplier,
		Subtotal:               q.Subtotal,
		CouponDiscount:         q.CouponDiscount,
		DiscountedSubtotal:     q.DiscountedSubtotal,
		TaxRate:                q.TaxRate,
		Taxes:                  q.Taxes,
		Total:                  q.Total,
		Currency:               q.Currency,
		Coupon:                 coupon,
	}
}

// AvailabilityResponse is the free room count of a room type for a stay
type AvailabilityResponse struct {
	HotelID        string `json:"hotel_id"`
	RoomTypeID     string `json:"room_type_id"`
	CheckIn        string `json:"check_in_date"`
	CheckOut       string `json:"check_out_date"`
	AvailableRooms int    `json:"available_rooms"`
	IsAvailable    bool   `json:"is_available"`
}

// SeasonalRuleDTO is a seasonal rule with wire dates
type SeasonalRuleDTO struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Multiplier float64 `json:"multiplier"`
	Priority   int     `json:"priority"`
}

// DayTypeRuleDTO is a weekday or weekend multiplier
type DayTypeRuleDTO struct {
	ID         string  `json:"id,omitempty"`
	DayType    string  `json:"day_type"`
	Multiplier float64 `json:"multiplier"`
}

// OccupancyTierDTO is an inclusive occupancy band and its multiplier
type OccupancyTierDTO struct {
	ID         string  `json:"id,omitempty"`
	MinPercent int     `json:"min_occupancy"`
	MaxPercent int     `json:"max_occupancy"`
	Multiplier float64 `json:"multiplier"`
}

// PricingRulesDTO is the full rule set of a hotel, used for both reads and
// wholesale replacement
type PricingRulesDTO struct {
	HotelID   string             `json:"hotel_id,omitempty"`
	Seasonal  []SeasonalRuleDTO  `json:"seasonal"`
	DayTypes  []DayTypeRuleDTO   `json:"day_types"`
	Occupancy []OccupancyTierDTO `json:"occupancy"`
}

// ToDomain parses the rule set for hotelID
func (r *PricingRulesDTO) ToDomain(hotelID string) (*domain.PricingRules, error) {
	rules := &domain.PricingRules{HotelID: hotelID}
	for i, s := range r.Seasonal {
		start, err := parseDateField(fmt.Sprintf("seasonal[%d].start_date", i), s.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDateField(fmt.Sprintf("seasonal[%d].end_date", i), s.EndDate)
		if err != nil {
			return nil, err
		}
		rules.Seasonal = append(rules.Seasonal, domain.SeasonalRule{
			Name:       s.Name,
			StartDate:  start,
			EndDate:    end,
			Multiplier: s.Multiplier,
			Priority:   s.Priority,
		})
	}
	for _, d := range r.DayTypes {
		rules.DayTypes = append(rules.DayTypes, domain.DayTypeRule{
			DayType:    domain.DayType(d.DayType),
			Multiplier: d.Multiplier,
		})
	}
	for _, t := range r.Occupancy {
		rules.Occupancy = append(rules.Occupancy, domain.OccupancyTier{
			MinPercent: t.MinPercent,
			MaxPercent: t.MaxPercent,
			Multiplier: t.Multiplier,
		})
	}
	return rules, nil
}

// PricingRulesFromDomain converts stored rules to the wire shape
func PricingRulesFromDomain(p *domain.PricingRules) *PricingRulesDTO {
	out := &PricingRulesDTO{
		HotelID:   p.HotelID,
		Seasonal:  make([]SeasonalRuleDTO, 0, len(p.Seasonal)),
		DayTypes:  make([]DayTypeRuleDTO, 0, len(p.DayTypes)),
		Occupancy: make([]OccupancyTierDTO, 0, len(p.Occupancy)),
	}
	for _, s := range p.Seasonal {
		out.Seasonal = append(out.Seasonal, SeasonalRuleDTO{
			ID:         s.ID,
			Name:       s.Name,
			StartDate:  domain.FormatDate(s.StartDate),
			EndDate:    domain.FormatDate(s.EndDate),
			Multiplier: s.Multiplier,
			Priority:   s.Priority,
		})
	}
	for _, d := range p.DayTypes {
		out.DayTypes = append(out.DayTypes, DayTypeRuleDTO{ID: d.ID, DayType: string(d.DayType), Multiplier: d.Multiplier})
	}
	for _, t := range p.Occupancy {
		out.Occupancy = append(out.Occupancy, OccupancyTierDTO{
			ID:         t.ID,
			MinPercent: t.MinPercent,
			MaxPercent: t.MaxPercent,
			Multiplier: t.Multiplier,
		})
	}
	return out
}

// OccupancyDayResponse is one night of an occupancy report
type OccupancyDayResponse struct {
	Date        string `json:"date"`
	BookedRooms int    `json:"booked_rooms"`
	ActiveRooms int    `json:"active_rooms"`
	Percent     int    `json:"occupancy_percent"`
}

// OccupancyReportResponse is per-night occupancy over a date range
type OccupancyReportResponse struct {
	HotelID        string                 `json:"hotel_id"`
	From           string                 `json:"from"`
	To             string                 `json:"to"`
	Days           []OccupancyDayResponse `json:"days"`
	AveragePercent float64                `json:"average_occupancy_percent"`
}

func OccupancyReportFromDomain(r *domain.OccupancyReport) *OccupancyReportResponse {
	days := make([]OccupancyDayResponse, 0, len(r.Days))
	for _, d := range r.Days {
		days = append(days, OccupancyDayResponse{
			Date:        domain.FormatDate(d.Date),
			BookedRooms: d.BookedRooms,
			ActiveRooms: d.ActiveRooms,
			Percent:     d.Percent,
		})
	}
	return &OccupancyReportResponse{
		HotelID:        r.HotelID,
		From:           domain.FormatDate(r.From),
		To:             domain.FormatDate(r.To),
		Days:           days,
		AveragePercent: r.AveragePercent,
	}
}
