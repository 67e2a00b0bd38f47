package domain

import (
	"errors"
	"testing"
)

func TestNights_CalendarDays(t *testing.T) {
	tests := []struct {
		in, out string
		want    int
	}{
		{"2030-06-01", "2030-06-04", 3},
		{"2030-02-27", "2030-03-02", 3},
		{"2030-06-01", "2400-06-01", 135140},
		{"2030-06-04", "2030-06-01", -3},
	}
	for _, tt := range tests {
		if got := Nights(day(tt.in), day(tt.out)); got != tt.want {
			t.Errorf("Nights(%s, %s) = %d, want %d", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestValidateStay(t *testing.T) {
	tests := []struct {
		name      string
		in, out   string
		wantField string
	}{
		{"one night", "2030-06-01", "2030-06-02", ""},
		{"longest stay", "2030-06-01", "2030-07-01", ""},
		{"one night too long", "2030-06-01", "2030-07-02", "check_out_date"},
		{"centuries", "2030-06-01", "2400-06-01", "check_out_date"},
		{"same day", "2030-06-01", "2030-06-01", "check_out_date"},
		{"inverted", "2030-06-04", "2030-06-01", "check_out_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStay(day(tt.in), day(tt.out))
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStay() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("ValidateStay() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestValidateRange_AllowsLongRanges(t *testing.T) {
	if err := ValidateRange(day("2030-01-01"), day("2031-01-01")); err != nil {
		t.Errorf("ValidateRange() error = %v", err)
	}
}
