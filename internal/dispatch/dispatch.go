// Package dispatch fans a run out over the device fleet with bounded
// concurrency and guarantees exactly one outcome per targeted device.
package dispatch

import (
	"context"

	"github.com/AndrewPiroli/NOS-MCT/internal/device"
	"github.com/AndrewPiroli/NOS-MCT/internal/inventory"
	"github.com/AndrewPiroli/NOS-MCT/internal/job"
	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
	"github.com/AndrewPiroli/NOS-MCT/pkg/workerpool"
)

// DefaultConcurrency is the admission gate size when none is configured.
const DefaultConcurrency = workerpool.TotalMaxWorkers

// Config holds the run-level execution knobs.
type Config struct {
	ConcurrencyLimit int // 0 means DefaultConcurrency
}

// Dispatcher owns the concurrency substrate shared by all modes. It never
// interprets mode semantics, that stays inside the device worker.
type Dispatcher struct {
	dialer device.Dialer
	log    lg.Logger
}

func New(dialer device.Dialer, logger lg.Logger) *Dispatcher {
	return &Dispatcher{dialer: dialer, log: logger}
}

// Run executes the spec against every device and streams outcomes as they
// complete, in no particular order. The returned channel is closed once
// every device has produced its outcome; failed devices produce one too,
// they are never retried and never delay their siblings.
func (d *Dispatcher) Run(ctx context.Context, devices []inventory.Record, spec job.Spec, cfg Config) <-chan device.Outcome {
	outcomes := make(chan device.Outcome, len(devices))
	pool := workerpool.New(cfg.ConcurrencyLimit, func(ctx context.Context, rec inventory.Record) {
		outcomes <- device.Run(ctx, d.dialer, rec, spec)
	})

	ctx = lg.Attach(ctx, d.log)
	pool.Start(ctx)
	go func() {
		defer close(outcomes)
		for _, rec := range devices {
			pool.Submit(rec)
		}
		pool.Close()
	}()
	return outcomes
}

// RunAll is Run with the stream drained into a slice, for callers that
// have no use for incremental results.
func (d *Dispatcher) RunAll(ctx context.Context, devices []inventory.Record, spec job.Spec, cfg Config) []device.Outcome {
	results := make([]device.Outcome, 0, len(devices))
	for out := range d.Run(ctx, devices, spec, cfg) {
		results = append(results, out)
	}
	return results
}
