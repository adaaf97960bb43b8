// Package aero computes aerodynamic coefficients for a stack of rocket stages
// using the Barrowman method for normal force and a component build-up for
// drag.
package aero

import (
	"errors"
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
)

// ErrInvalidGeometry is returned when a stack cannot be described
// aerodynamically.
var ErrInvalidGeometry = errors.New("invalid aerodynamic geometry")

// FlightConditions is the aerodynamic state of the vehicle at one instant.
type FlightConditions struct {
	Velocity   float64 // m/s airspeed
	Mach       float64
	AOA        float64 // rad between the axis and the relative wind, [0, π]
	Atmosphere atmosphere.Conditions
	Thrusting  bool // motor exhaust fills part of the base
}

// Forces are the coefficients referenced to the calculator's reference area.
type Forces struct {
	CD         float64
	FrictionCD float64
	PressureCD float64
	BaseCD     float64

	CNa float64 // per radian
	CN  float64
	CP  float64 // m aft of the stack tip
}

// Calculator is the aerodynamic model consumed by the engine. Implementations
// are deterministic and safe for concurrent use once built.
type Calculator interface {
	Forces(fc FlightConditions) Forces
	// DampingMoment returns the magnitude in N·m of the pitch damping moment
	// opposing angular rate omega about the CG at cg.
	DampingMoment(fc FlightConditions, cg, omega float64) float64
	ReferenceArea() float64
	ReferenceLength() float64
	Length() float64
}

// Beta returns the Prandtl-Glauert factor sqrt(|1-M²|), floored so that the
// transonic band stays finite.
func Beta(mach float64) float64 {
	return math.Sqrt(math.Max(math.Abs(1-mach*mach), 0.36))
}

// Stability returns the static margin in calibers.
func Stability(c Calculator, cp, cg float64) float64 {
	return (cp - cg) / c.ReferenceLength()
}
