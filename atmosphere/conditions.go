// Package atmosphere maps altitude to local air conditions.
//
// Concrete models (ISA, extended ISA) describe the exact conditions at any
// altitude; Interpolating pre-computes them on a 500 m lattice and linearly
// interpolates between lattice entries.
package atmosphere

import "math"

const (
	// GasConstant is the specific gas constant of dry air in J/(kg·K).
	GasConstant = 287.053
	// Gamma is the ratio of specific heats of air.
	Gamma = 1.4
	// StandardGravity in m/s², used in the barometric formula.
	StandardGravity = 9.80665

	sutherlandRef      = 1.458e-6
	sutherlandConstant = 110.4
)

// Conditions is the air temperature (K) and pressure (Pa) at one altitude.
type Conditions struct {
	Temperature float64
	Pressure    float64
}

// Density returns the air density in kg/m³.
func (c Conditions) Density() float64 {
	return c.Pressure / (GasConstant * c.Temperature)
}

// SpeedOfSound returns the local speed of sound in m/s.
func (c Conditions) SpeedOfSound() float64 {
	return math.Sqrt(Gamma * GasConstant * c.Temperature)
}

// KinematicViscosity returns ν in m²/s using Sutherland's law.
func (c Conditions) KinematicViscosity() float64 {
	mu := sutherlandRef * math.Pow(c.Temperature, 1.5) / (c.Temperature + sutherlandConstant)
	return mu / c.Density()
}

// Model answers atmospheric conditions for an altitude above sea level.
// Implementations must be safe for concurrent use.
type Model interface {
	Conditions(altitude float64) Conditions
}

// Source is an exact atmospheric description that Interpolating samples.
type Source interface {
	MaxAltitude() float64
	ExactConditions(altitude float64) Conditions
}
