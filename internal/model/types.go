// Package model defines domain types used by the service.
package model

import "time"

// GlobalFlightKey is the demand key used when a request names no flight.
const GlobalFlightKey = "global"

// PricingRequest is an incoming dynamic price request.
type PricingRequest struct {
	BaseFare         float64  `json:"base_fare"`
	SeatsLeft        int      `json:"seats_left"`
	TotalSeats       int      `json:"total_seats"`
	HoursToDeparture int      `json:"hours_to_departure"`
	DemandIndex      *float64 `json:"demand_index,omitempty"`
	FlightID         string   `json:"flight_id,omitempty"`
}

// FlightKey returns the flight identifier or GlobalFlightKey when none was given.
func (r PricingRequest) FlightKey() string {
	if r.FlightID == "" {
		return GlobalFlightKey
	}
	return r.FlightID
}

// Metadata carries computation details alongside a price.
type Metadata struct {
	CalculatedAt string  `json:"calculated_at"`
	QuoteID      string  `json:"quote_id"`
	CacheKey     string  `json:"cache_key"`
	BaseFare     float64 `json:"base_fare"`
	SeatFactor   float64 `json:"seat_factor"`
	TimeFactor   float64 `json:"time_factor"`
	DemandFactor float64 `json:"demand_factor"`
}

// PricingResponse is the computed price for a request.
type PricingResponse struct {
	DynamicPrice     float64  `json:"dynamic_price"`
	DemandIndex      float64  `json:"demand_index"`
	SeatsLeft        int      `json:"seats_left"`
	TotalSeats       int      `json:"total_seats"`
	HoursToDeparture int      `json:"hours_to_departure"`
	FromCache        bool     `json:"from_cache"`
	Metadata         Metadata `json:"metadata"`
}

// DemandEntry is the demand state of one flight key.
type DemandEntry struct {
	FlightID    string    `json:"flight_id"`
	DemandIndex float64   `json:"demand_index"`
	UpdatedAt   time.Time `json:"updated_at"`
}
