package dto

import (
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
)

// ParseStay parses wire check-in and check-out dates
func ParseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseDateField("check_in_date", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDateField("check_out_date", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

// ParseDateParam parses a required YYYY-MM-DD value named field
func ParseDateParam(field, value string) (time.Time, error) {
	return parseDateField(field, value)
}

func parseDateField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.NewValidationError(field, "is required")
	}
	t, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, err.Error())
	}
	return t, nil
}

// PageMeta describes one page of a listing
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}
