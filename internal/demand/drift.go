package demand

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/fairyhunter13/flight-pricing-engine/internal/obs"
)

// Drifter periodically nudges every registry entry by a bounded random delta.
type Drifter struct {
	reg      *Registry
	interval time.Duration
	maxDelta float64
	metrics  *obs.Metrics
	sched    *cron.Cron

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error

	mu      sync.Mutex
	stopped bool
	cycles  sync.WaitGroup
}

// NewDrifter constructs a Drifter firing every interval. metrics may be nil.
func NewDrifter(reg *Registry, interval time.Duration, maxDelta float64, metrics *obs.Metrics) *Drifter {
	c := cron.New()
	c.ErrorLog = obs.StdLogger(slog.LevelError)
	return &Drifter{
		reg:      reg,
		interval: interval,
		maxDelta: maxDelta,
		metrics:  metrics,
		sched:    c,
	}
}

// Start schedules the drift cycle. Calling it more than once has no effect.
func (d *Drifter) Start() {
	d.startOnce.Do(func() {
		d.sched.Schedule(cron.Every(d.interval), cron.FuncJob(d.RunOnce))
		d.sched.Start()
		obs.Logger.Info("demand_drift_started", "interval_sec", d.interval.Seconds(), "max_delta", d.maxDelta)
	})
}

// RunOnce performs a single drift cycle unless the Drifter has been stopped.
func (d *Drifter) RunOnce() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.cycles.Add(1)
	d.mu.Unlock()
	defer d.cycles.Done()

	start := time.Now()
	n := d.reg.DriftAll(d.maxDelta)
	d.metrics.DriftCycle(n)
	obs.Logger.Debug("demand_drift_cycle", "entries", n, "latency_ms", float64(time.Since(start).Microseconds())/1000.0)
}

// Stop prevents further cycles and waits for an in-flight cycle to finish or
// for ctx to be done, whichever comes first. Subsequent calls return the
// result of the first.
func (d *Drifter) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.sched.Stop()
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.cycles.Wait()
			close(done)
		}()
		select {
		case <-done:
			obs.Logger.Info("demand_drift_stopped")
		case <-ctx.Done():
			d.stopErr = ctx.Err()
			obs.Logger.Warn("demand_drift_stop_timeout", "error", d.stopErr)
		}
	})
	return d.stopErr
}
