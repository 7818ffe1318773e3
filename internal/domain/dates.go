package domain

import "time"

// Day truncates t to its calendar date at UTC midnight. Stay dates are kept
// at day granularity so that night counts never depend on DST offsets.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights is the number of calendar days between two stay dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}
