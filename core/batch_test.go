package core

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

func TestWindPerturbationsAreSeeded(t *testing.T) {
	base := model.DefaultOptions()
	base.WindSpeed = 4
	a := WindPerturbations(base, 5, 42)
	b := WindPerturbations(base, 5, 42)
	c := WindPerturbations(base, 5, 7)
	if len(a) != 5 {
		t.Fatalf("len = %d, want 5", len(a))
	}
	differs := false
	for i := range a {
		if a[i].WindSpeed != b[i].WindSpeed || a[i].WindDirection != b[i].WindDirection {
			t.Fatalf("variant %d differs for the same seed: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].WindSpeed < 0 {
			t.Fatalf("variant %d has negative wind speed %v", i, a[i].WindSpeed)
		}
		if a[i].WindSpeed != c[i].WindSpeed {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("different seeds produced identical variants")
	}
	if got := WindPerturbations(base, 0, 1); got != nil {
		t.Fatalf("WindPerturbations(n=0) = %v, want nil", got)
	}
}

func TestBatchReturnsResultsInInputOrder(t *testing.T) {
	base := model.DefaultOptions()
	base.WindSpeed = 2
	opts := WindPerturbations(base, 4, 1)

	results := NewBatch(NewEngine(logging.Noop()), 2).Run(context.Background(), sample.SingleStage(), opts)
	if len(results) != len(opts) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(opts))
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("results[%d].Index = %d", i, r.Index)
		}
		if r.Err != nil {
			t.Fatalf("results[%d].Err = %v", i, r.Err)
		}
		if r.Options.WindSpeed != opts[i].WindSpeed {
			t.Fatalf("results[%d] carries options of another job", i)
		}
		if r.Result.Outcome != OutcomeLanded {
			t.Fatalf("results[%d].Outcome = %s, want landed", i, r.Result.Outcome)
		}
	}
}

func TestBatchCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := WindPerturbations(model.DefaultOptions(), 3, 1)
	results := NewBatch(NewEngine(logging.Noop()), 1).Run(ctx, sample.SingleStage(), opts)
	for i, r := range results {
		if !errors.Is(r.Err, ErrCanceled) {
			t.Fatalf("results[%d].Err = %v, want ErrCanceled", i, r.Err)
		}
	}
}
