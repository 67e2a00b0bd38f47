package domain

import "time"

// MaxReportDays bounds an occupancy report range
const MaxReportDays = 366

// OccupancyDay is a hotel's occupancy for one night
type OccupancyDay struct {
	Date        time.Time `json:"date"`
	BookedRooms int       `json:"booked_rooms"`
	ActiveRooms int       `json:"active_rooms"`
	Percent     int       `json:"percent"`
}

// OccupancyReport is per-night occupancy over [From, To)
type OccupancyReport struct {
	HotelID        string         `json:"hotel_id"`
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Days           []OccupancyDay `json:"days"`
	AveragePercent float64        `json:"average_percent"`
}

// NewOccupancyReport summarises days
func NewOccupancyReport(hotelID string, from, to time.Time, days []OccupancyDay) *OccupancyReport {
	r := &OccupancyReport{HotelID: hotelID, From: Date(from), To: Date(to), Days: days}
	if len(days) == 0 {
		return r
	}
	var sum int
	for _, d := range days {
		sum += d.Percent
	}
	r.AveragePercent = Round2(float64(sum) / float64(len(days)))
	return r
}
