// Package service orchestrates price quotes over the demand registry, the
// pricing function and the price cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/flight-pricing-engine/internal/cache"
	"github.com/fairyhunter13/flight-pricing-engine/internal/demand"
	"github.com/fairyhunter13/flight-pricing-engine/internal/model"
	"github.com/fairyhunter13/flight-pricing-engine/internal/obs"
	"github.com/fairyhunter13/flight-pricing-engine/internal/pricing"
)

// ErrInvalidRequest marks requests rejected before pricing.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Validate checks the request constraints the pricing function relies on.
func Validate(req model.PricingRequest) error {
	switch {
	case math.IsNaN(req.BaseFare) || math.IsInf(req.BaseFare, 0) || req.BaseFare <= 0:
		return invalid("base_fare must be > 0")
	case req.TotalSeats <= 0:
		return invalid("total_seats must be greater than zero")
	case req.SeatsLeft < 0:
		return invalid("seats_left must be >= 0")
	case req.SeatsLeft > req.TotalSeats:
		return invalid("seats_left cannot exceed total_seats")
	case req.HoursToDeparture < 0:
		return invalid("hours_to_departure must be >= 0")
	}
	if d := req.DemandIndex; d != nil && (math.IsNaN(*d) || *d < 0 || *d > 1) {
		return invalid("demand_index must be within [0, 1]")
	}
	return nil
}

// CacheKey builds the cache key of a request. The fare is not part of it, so
// the same itinerary shape quoted at a different fare shares an entry.
func CacheKey(req model.PricingRequest) string {
	return fmt.Sprintf("%s:%d:%d:%d", req.FlightKey(), req.SeatsLeft, req.TotalSeats, req.HoursToDeparture)
}

// Service serves dynamic price quotes.
type Service struct {
	registry *demand.Registry
	cache    *cache.PriceCache
	metrics  *obs.Metrics
	now      func() time.Time
	inflight singleflight.Group
}

// New constructs a Service. metrics may be nil.
func New(reg *demand.Registry, pc *cache.PriceCache, metrics *obs.Metrics) *Service {
	return &Service{registry: reg, cache: pc, metrics: metrics, now: time.Now}
}

// Quote returns the price for req, from the cache when an unexpired quote
// exists for the same key and freshly computed otherwise.
func (s *Service) Quote(ctx context.Context, req model.PricingRequest) (model.PricingResponse, error) {
	if err := ctx.Err(); err != nil {
		return model.PricingResponse{}, err
	}
	key := CacheKey(req)
	cached, res := s.cache.Lookup(key)
	s.metrics.CacheLookup(lookupLabel(res))
	if res == cache.Hit {
		cached.FromCache = true
		s.metrics.Quote(true, 0)
		return cached, nil
	}

	if err := Validate(req); err != nil {
		s.metrics.QuoteError("validation")
		return model.PricingResponse{}, err
	}

	// Identical concurrent misses share one computation. An override is part
	// of the flight key so every distinct override still reaches the registry.
	flight := key
	if req.DemandIndex != nil {
		flight += "|" + strconv.FormatFloat(*req.DemandIndex, 'g', -1, 64)
	}
	v, _, _ := s.inflight.Do(flight, func() (any, error) {
		return s.compute(key, req), nil
	})
	out := v.(model.PricingResponse)
	s.metrics.Quote(false, out.DynamicPrice/out.Metadata.BaseFare)
	return out, nil
}

func (s *Service) compute(key string, req model.PricingRequest) model.PricingResponse {
	idx := s.registry.Resolve(req.FlightKey(), req.DemandIndex)
	b := pricing.Price(pricing.Inputs{
		BaseFare:         req.BaseFare,
		SeatsLeft:        req.SeatsLeft,
		TotalSeats:       req.TotalSeats,
		HoursToDeparture: req.HoursToDeparture,
		DemandIndex:      idx,
	})
	out := model.PricingResponse{
		DynamicPrice:     b.Price,
		DemandIndex:      idx,
		SeatsLeft:        req.SeatsLeft,
		TotalSeats:       req.TotalSeats,
		HoursToDeparture: req.HoursToDeparture,
		Metadata: model.Metadata{
			CalculatedAt: s.now().UTC().Format(time.RFC3339Nano),
			QuoteID:      uuid.NewString(),
			CacheKey:     key,
			BaseFare:     req.BaseFare,
			SeatFactor:   round4(b.SeatFactor),
			TimeFactor:   round4(b.TimeFactor),
			DemandFactor: round4(b.DemandFactor),
		},
	}
	s.cache.Put(key, out)
	s.metrics.Sizes(s.registry.Len(), s.cache.Len())
	obs.Logger.Debug("price_computed",
		"cache_key", key,
		"dynamic_price", out.DynamicPrice,
		"demand_index", idx,
		"quote_id", out.Metadata.QuoteID,
	)
	return out
}

// Demand returns the current demand registry entries ordered by flight key.
func (s *Service) Demand() []model.DemandEntry {
	return s.registry.Snapshot()
}

// Stats reports cache counters and the registry size.
func (s *Service) Stats() (cache.Stats, int) {
	return s.cache.Stats(), s.registry.Len()
}

func lookupLabel(r cache.Result) string {
	switch r {
	case cache.Hit:
		return obs.LookupHit
	case cache.Expired:
		return obs.LookupExpired
	default:
		return obs.LookupMiss
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
