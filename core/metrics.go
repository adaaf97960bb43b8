package core

import (
	"time"

	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// MetricsRecorder receives engine telemetry. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	ObserveRun(outcome Outcome, duration time.Duration, steps int)
	ObserveBisection(iterations int)
	ObserveEvent(t model.EventType)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRun(Outcome, time.Duration, int) {}
func (noopMetrics) ObserveBisection(int)                   {}
func (noopMetrics) ObserveEvent(model.EventType)           {}
