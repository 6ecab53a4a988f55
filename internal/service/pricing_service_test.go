package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/flight-pricing-engine/internal/cache"
	"github.com/fairyhunter13/flight-pricing-engine/internal/demand"
	"github.com/fairyhunter13/flight-pricing-engine/internal/model"
	"github.com/fairyhunter13/flight-pricing-engine/internal/obs"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *demand.Registry, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	reg := demand.NewRegistry(demand.WithClock(clk.Now))
	svc := New(reg, cache.NewWithClock(60*time.Second, clk.Now), obs.NewMetrics())
	svc.now = clk.Now
	return svc, reg, clk
}

func demandPtr(v float64) *float64 { return &v }

func workedRequest() model.PricingRequest {
	return model.PricingRequest{
		BaseFare:         100,
		SeatsLeft:        10,
		TotalSeats:       100,
		HoursToDeparture: 12,
		DemandIndex:      demandPtr(0.5),
		FlightID:         "6E-2134",
	}
}

var ignoreFromCache = cmpopts.IgnoreFields(model.PricingResponse{}, "FromCache")

func TestQuoteWorkedExample(t *testing.T) {
	svc, _, _ := newTestService(t)
	out, err := svc.Quote(context.Background(), workedRequest())
	require.NoError(t, err)
	assert.Equal(t, 183.50, out.DynamicPrice)
	assert.Equal(t, 0.5, out.DemandIndex)
	assert.False(t, out.FromCache)
	assert.Equal(t, "6E-2134:10:100:12", out.Metadata.CacheKey)
	assert.Equal(t, 0.45, out.Metadata.SeatFactor)
	assert.Equal(t, 0.285, out.Metadata.TimeFactor)
	assert.Equal(t, 0.1, out.Metadata.DemandFactor)
	assert.NotEmpty(t, out.Metadata.QuoteID)
	assert.Equal(t, "2026-06-01T08:00:00Z", out.Metadata.CalculatedAt)
}

func TestQuoteCacheHitIsIdenticalAndDoesNotTouchDemand(t *testing.T) {
	svc, reg, clk := newTestService(t)
	req := workedRequest()
	req.DemandIndex = nil

	first, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	before := reg.Snapshot()

	clk.Advance(30 * time.Second)
	second, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	if diff := cmp.Diff(first, second, ignoreFromCache); diff != "" {
		t.Fatalf("cached payload differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, before, reg.Snapshot())
}

func TestQuoteCacheHitIgnoresOverride(t *testing.T) {
	svc, reg, _ := newTestService(t)
	_, err := svc.Quote(context.Background(), workedRequest())
	require.NoError(t, err)

	req := workedRequest()
	req.DemandIndex = demandPtr(0.9)
	out, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.FromCache)
	assert.Equal(t, 0.5, out.DemandIndex)
	v, _ := reg.Get("6E-2134")
	assert.Equal(t, 0.5, v)
}

func TestQuoteRecomputesAfterTTL(t *testing.T) {
	svc, _, clk := newTestService(t)
	first, err := svc.Quote(context.Background(), workedRequest())
	require.NoError(t, err)

	clk.Advance(60 * time.Second)
	second, err := svc.Quote(context.Background(), workedRequest())
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.NotEqual(t, first.Metadata.CalculatedAt, second.Metadata.CalculatedAt)
	assert.NotEqual(t, first.Metadata.QuoteID, second.Metadata.QuoteID)
	assert.Equal(t, first.DynamicPrice, second.DynamicPrice)
}

func TestQuoteRecomputeSeesDrift(t *testing.T) {
	svc, reg, clk := newTestService(t)
	req := workedRequest()
	req.DemandIndex = nil
	first, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	reg.Resolve(req.FlightID, demandPtr(0.95))
	clk.Advance(61 * time.Second)
	second, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0.95, second.DemandIndex)
	assert.NotEqual(t, first.DemandIndex, second.DemandIndex)
}

func TestQuoteFareNotInCacheKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := workedRequest()
	first, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	req.BaseFare = 500
	second, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.DynamicPrice, second.DynamicPrice, "same itinerary shape shares a cache entry across fares")
}

func TestQuoteWithoutFlightUsesGlobalKey(t *testing.T) {
	svc, reg, _ := newTestService(t)
	req := workedRequest()
	req.FlightID = ""
	req.DemandIndex = nil
	out, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "global:10:100:12", out.Metadata.CacheKey)
	v, ok := reg.Get(model.GlobalFlightKey)
	require.True(t, ok)
	assert.Equal(t, v, out.DemandIndex)
	assert.GreaterOrEqual(t, v, 0.2)
	assert.LessOrEqual(t, v, 0.8)
}

func TestQuoteInvalidRequests(t *testing.T) {
	cases := map[string]func(*model.PricingRequest){
		"zero total seats":   func(r *model.PricingRequest) { r.TotalSeats = 0; r.SeatsLeft = 0 },
		"seats exceed total": func(r *model.PricingRequest) { r.SeatsLeft = 101 },
		"negative seats":     func(r *model.PricingRequest) { r.SeatsLeft = -1 },
		"zero fare":          func(r *model.PricingRequest) { r.BaseFare = 0 },
		"negative hours":     func(r *model.PricingRequest) { r.HoursToDeparture = -2 },
		"demand above range": func(r *model.PricingRequest) { r.DemandIndex = demandPtr(1.2) },
		"demand below range": func(r *model.PricingRequest) { r.DemandIndex = demandPtr(-0.1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, reg, _ := newTestService(t)
			req := workedRequest()
			mutate(&req)
			_, err := svc.Quote(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
			assert.Zero(t, reg.Len(), "rejected request must not touch demand")
		})
	}
}

func TestQuoteCanceledContext(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Quote(ctx, workedRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuoteConcurrentWithDrift(t *testing.T) {
	svc, reg, _ := newTestService(t)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			req := workedRequest()
			req.DemandIndex = nil
			req.FlightID = fmt.Sprintf("F-%d", i%4)
			req.SeatsLeft = i % 7
			out, err := svc.Quote(context.Background(), req)
			if err != nil {
				t.Errorf("quote: %v", err)
				return
			}
			if out.DemandIndex < 0 || out.DemandIndex > 1 {
				t.Errorf("demand out of range: %v", out.DemandIndex)
			}
		}(i)
		go func() {
			defer wg.Done()
			reg.DriftAll(0.1)
		}()
	}
	wg.Wait()
	for _, e := range svc.Demand() {
		assert.GreaterOrEqual(t, e.DemandIndex, 0.0)
		assert.LessOrEqual(t, e.DemandIndex, 1.0)
		assert.False(t, e.UpdatedAt.IsZero())
	}
	st, n := svc.Stats()
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(40), st.Hits+st.Misses+st.Expired)
}

func TestQuoteConcurrentMissesShareOneComputation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var resolves atomic.Int32
	reg := demand.NewRegistry(demand.WithClock(func() time.Time {
		if resolves.Add(1) == 1 {
			close(entered)
			<-release
		}
		return time.Now()
	}))
	metrics := obs.NewMetrics()
	svc := New(reg, cache.New(time.Minute), metrics)

	const callers = 50
	results := make([]model.PricingResponse, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := workedRequest()
			if i%5 == 4 {
				req.BaseFare = 500
			}
			out, err := svc.Quote(context.Background(), req)
			if err != nil {
				t.Errorf("quote: %v", err)
				return
			}
			results[i] = out
		}(i)
	}

	<-entered
	require.Eventually(t, func() bool {
		st, _ := svc.Stats()
		return st.Misses+st.Hits == callers
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	ids := map[string]struct{}{}
	for _, out := range results {
		ids[out.Metadata.QuoteID] = struct{}{}
		assert.Equal(t, results[0], out)
	}
	assert.Len(t, ids, 1)
	assert.Equal(t, int32(1), resolves.Load())

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "pricing_price_ratio" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		require.NotZero(t, h.GetSampleCount())
		assert.InDelta(t, 1.835*float64(h.GetSampleCount()), h.GetSampleSum(), 1e-9,
			"every computed quote records price over the fare it was priced at")
	}
	assert.True(t, found)
}
