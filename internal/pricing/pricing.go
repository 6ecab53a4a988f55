// Package pricing implements the deterministic dynamic pricing function.
package pricing

import (
	"math"
	"time"
)

// Factor weights and the urgency horizon.
const (
	SeatWeight   = 0.5
	TimeWeight   = 0.3
	DemandWeight = 0.2

	HorizonHours = 240.0
)

// Inputs are the pre-validated pricing dimensions: BaseFare > 0,
// 0 <= SeatsLeft <= TotalSeats, TotalSeats > 0, HoursToDeparture >= 0 and
// 0 <= DemandIndex <= 1.
type Inputs struct {
	BaseFare         float64
	SeatsLeft        int
	TotalSeats       int
	HoursToDeparture int
	DemandIndex      float64
}

// Breakdown is a computed price with the factors that produced it.
type Breakdown struct {
	SeatFactor   float64
	TimeFactor   float64
	DemandFactor float64
	Price        float64
}

// Price computes the dynamic price for in. It never fails; callers validate.
func Price(in Inputs) Breakdown {
	seat := (1 - float64(in.SeatsLeft)/float64(in.TotalSeats)) * SeatWeight
	tm := math.Max(0, 1-float64(in.HoursToDeparture)/HorizonHours) * TimeWeight
	dem := in.DemandIndex * DemandWeight
	return Breakdown{
		SeatFactor:   seat,
		TimeFactor:   tm,
		DemandFactor: dem,
		Price:        Round2(in.BaseFare * (1 + seat + tm + dem)),
	}
}

// Round2 rounds v half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

// HoursToDeparture returns whole hours from now until departure, rounded to
// the nearest hour and never negative.
func HoursToDeparture(departure, now time.Time) int {
	h := math.Round(departure.Sub(now).Hours())
	if h < 0 {
		return 0
	}
	return int(h)
}
