package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

var (
	// ErrNonFinite marks a state quantity that became NaN or infinite.
	ErrNonFinite = errors.New("non-finite state quantity")
	// ErrBisectionDiverged marks an event that could not be located within
	// the configured number of bisection iterations.
	ErrBisectionDiverged = errors.New("event bisection did not converge")
	// ErrCanceled is returned when the run's context is done before the
	// flight ends.
	ErrCanceled = errors.New("simulation canceled")
)

// SimulationError describes a numeric failure during integration.
type SimulationError struct {
	Time     float64
	Quantity string
	Event    model.EventType
	Branch   string
	Err      error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: %v in %s near %s at t=%.4fs", e.Branch, e.Err, e.Quantity, e.Event, e.Time)
}

func (e *SimulationError) Unwrap() error { return e.Err }

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeLanded     Outcome = "landed"
	OutcomeDidNotLand Outcome = "did_not_land"
	OutcomeFailed     Outcome = "failed"
	OutcomeIncomplete Outcome = "incomplete"
)
