package core

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// batchJob is one option set of a batch.
type batchJob struct {
	index int
	opts  model.Options
}

// BatchResult is the outcome of one job of a batch, in input order.
type BatchResult struct {
	Index   int
	Options model.Options
	Result  *Result
	Err     error
}

// Batch runs independent simulations of one rocket on a fixed pool of
// workers. Every run owns its status and branches; the rocket and the
// engine's shared models are only read.
type Batch struct {
	engine  *Engine
	workers int
}

// NewBatch creates a batch runner with the given number of workers.
func NewBatch(engine *Engine, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{engine: engine, workers: workers}
}

// Run simulates rocket once per option set. Results come back in input
// order; jobs not started before ctx is done are reported with ErrCanceled.
func (b *Batch) Run(ctx context.Context, rocket *model.Rocket, options []model.Options) []BatchResult {
	results := make([]BatchResult, len(options))
	for i, o := range options {
		results[i] = BatchResult{Index: i, Options: o, Err: ErrCanceled}
	}
	if len(options) == 0 {
		return results
	}

	jobs := make(chan batchJob, b.workers*2)
	out := make(chan BatchResult, b.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := b.engine.Simulate(logging.ContextWithChildRunID(ctx, job.index), rocket, job.opts)
				select {
				case out <- BatchResult{Index: job.index, Options: job.opts, Result: res, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, o := range options {
			select {
			case jobs <- batchJob{index: i, opts: o}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var failed int
	for r := range out {
		results[r.Index] = r
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		b.engine.logger().Warn(ctx, "batch runs failed",
			logging.Int("failed", failed),
			logging.Int("total", len(options)),
		)
	}
	return results
}

// WindPerturbations returns n copies of base with wind speed and direction
// drawn from normal distributions around the base values. The standard
// deviation of the speed is the turbulence intensity times the base speed,
// and that of the direction is the intensity times 90°. A zero intensity
// uses 0.1. The same seed always yields the same variants.
func WindPerturbations(base model.Options, n int, seed int64) []model.Options {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	intensity := base.WindTurbulence
	if !(intensity > 0) {
		intensity = 0.1
	}
	out := make([]model.Options, n)
	for i := range out {
		o := base
		o.WindSpeed = math.Max(0, base.WindSpeed*(1+intensity*rng.NormFloat64()))
		o.WindDirection = base.WindDirection + intensity*math.Pi/2*rng.NormFloat64()
		out[i] = o
	}
	return out
}
