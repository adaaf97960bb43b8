package model

import (
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
)

// Options is the launch-condition and integrator snapshot taken at run start.
// Angles are in radians.
type Options struct {
	LaunchRodLength    float64 // m
	LaunchRodAngle     float64 // from vertical
	LaunchRodDirection float64 // azimuth the rod leans towards, 0 = north
	LaunchRodFriction  float64 // N of static friction to overcome at liftoff

	LaunchLatitude  float64 // degrees
	LaunchLongitude float64 // degrees
	LaunchAltitude  float64 // m above sea level

	WindSpeed      float64 // m/s
	WindDirection  float64 // azimuth the wind blows from, 0 = north
	WindTurbulence float64 // turbulence intensity, Monte-Carlo only

	Atmosphere        atmosphere.Kind
	LaunchTemperature float64 // K, extended ISA
	LaunchPressure    float64 // Pa, extended ISA

	TimeStep               float64 // s, powered flight and launch rod
	MaxTimeStep            float64 // s, coast and descent
	MaxAngleStep           float64 // rad of rotation per step
	MaxSimulationTime      float64 // s
	EventTimeTolerance     float64 // s
	MaxBisectionIterations int
}

// DefaultOptions returns a vertical 1 m rod launch in still ISA air.
func DefaultOptions() Options {
	return Options{
		LaunchRodLength:        1,
		LaunchLatitude:         28.61,
		LaunchLongitude:        -80.6,
		Atmosphere:             atmosphere.KindISA,
		LaunchTemperature:      atmosphere.ISATemperature,
		LaunchPressure:         atmosphere.ISAPressure,
		TimeStep:               0.01,
		MaxTimeStep:            0.1,
		MaxAngleStep:           3 * math.Pi / 180,
		MaxSimulationTime:      1200,
		EventTimeTolerance:     1e-4,
		MaxBisectionIterations: 60,
	}
}

// Normalize returns a copy with malformed values replaced by defaults. Each
// substitution adds a warning; the run still proceeds.
func (o Options) Normalize() (Options, WarningSet) {
	var warnings WarningSet
	def := DefaultOptions()

	fix := func(v *float64, fallback float64, ok func(float64) bool, msg string) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || !ok(*v) {
			warnings.Add(msg)
			*v = fallback
		}
	}
	pos := func(v float64) bool { return v > 0 }
	nonNeg := func(v float64) bool { return v >= 0 }
	anything := func(float64) bool { return true }

	fix(&o.LaunchRodLength, def.LaunchRodLength, nonNeg, "Illegal launch rod length specified, using default.")
	fix(&o.LaunchRodAngle, 0, func(v float64) bool { return math.Abs(v) <= math.Pi/3 }, "Illegal launch rod angle specified, using vertical.")
	fix(&o.LaunchRodDirection, 0, anything, "Illegal launch rod direction specified, using north.")
	fix(&o.LaunchRodFriction, 0, nonNeg, "Illegal launch rod friction specified, ignoring.")
	fix(&o.LaunchLatitude, def.LaunchLatitude, func(v float64) bool { return math.Abs(v) <= 90 }, "Illegal launch latitude specified, using default.")
	fix(&o.LaunchLongitude, def.LaunchLongitude, func(v float64) bool { return math.Abs(v) <= 180 }, "Illegal launch longitude specified, using default.")
	fix(&o.LaunchAltitude, 0, anything, "Illegal launch altitude specified, using sea level.")
	fix(&o.WindSpeed, 0, nonNeg, "Illegal wind speed specified, using calm air.")
	fix(&o.WindDirection, 0, anything, "Illegal wind direction specified, using north.")
	fix(&o.WindTurbulence, 0, nonNeg, "Illegal wind turbulence specified, ignoring.")
	fix(&o.LaunchTemperature, def.LaunchTemperature, pos, "Illegal base temperature specified, ignoring.")
	fix(&o.LaunchPressure, def.LaunchPressure, pos, "Illegal base pressure specified, ignoring.")
	fix(&o.TimeStep, def.TimeStep, pos, "Illegal time step specified, using default.")
	fix(&o.MaxTimeStep, def.MaxTimeStep, pos, "Illegal maximum time step specified, using default.")
	fix(&o.MaxAngleStep, def.MaxAngleStep, pos, "Illegal maximum angle step specified, using default.")
	fix(&o.MaxSimulationTime, def.MaxSimulationTime, pos, "Illegal maximum simulation time specified, using default.")
	fix(&o.EventTimeTolerance, def.EventTimeTolerance, pos, "Illegal event time tolerance specified, using default.")

	if o.MaxTimeStep < o.TimeStep {
		o.MaxTimeStep = o.TimeStep
	}
	if o.MaxBisectionIterations <= 0 {
		o.MaxBisectionIterations = def.MaxBisectionIterations
	}
	return o, warnings
}
