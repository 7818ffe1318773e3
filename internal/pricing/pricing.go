package pricing

import (
	"math"
	"time"

	"github.com/kirinyoku/inn-go/internal/domain"
)

// NightlyRate applies a percentage discount to a base rate.
func NightlyRate(baseRate, discountPercent float64) float64 {
	return baseRate - baseRate*discountPercent/100
}

// Price returns the total for a stay, rounded to cents. Nights are counted
// on calendar dates, so a stay across a DST switch still bills whole nights.
func Price(baseRate, discountPercent float64, checkIn, checkOut time.Time) float64 {
	nights := domain.Nights(checkIn, checkOut)
	if nights <= 0 {
		return 0
	}

	return round2(NightlyRate(baseRate, discountPercent) * float64(nights))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
