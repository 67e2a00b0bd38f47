package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for stay dates
const DateLayout = "2006-01-02"

// MaxStayNights bounds a single stay
const MaxStayNights = 30

const secondsPerDay = 24 * 60 * 60

// Date truncates t to midnight UTC of its UTC calendar day
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD stay date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Nights counts calendar nights in [checkIn, checkOut)
func Nights(checkIn, checkOut time.Time) int {
	return int((Date(checkOut).Unix() - Date(checkIn).Unix()) / secondsPerDay)
}

// StayDates lists each night's date in [checkIn, checkOut)
func StayDates(checkIn, checkOut time.Time) []time.Time {
	n := Nights(checkIn, checkOut)
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, 0, n)
	start := Date(checkIn)
	for i := 0; i < n; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

// Overlaps is the half-open interval test: the checkout day is not occupied
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// ValidateStay rejects empty, inverted or overlong stays
func ValidateStay(checkIn, checkOut time.Time) error {
	if err := ValidateRange(checkIn, checkOut); err != nil {
		return err
	}
	if n := Nights(checkIn, checkOut); n > MaxStayNights {
		return NewValidationError("check_out_date", fmt.Sprintf("stay of %d nights exceeds %d", n, MaxStayNights))
	}
	return nil
}

// ValidateRange rejects empty or inverted date ranges
func ValidateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() {
		return NewValidationError("check_in_date", "is required")
	}
	if checkOut.IsZero() {
		return NewValidationError("check_out_date", "is required")
	}
	if !Date(checkOut).After(Date(checkIn)) {
		return NewValidationError("check_out_date", "must be after check_in_date")
	}
	return nil
}
