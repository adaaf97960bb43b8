// Package motor models a rocket motor from its sampled thrust curve.
package motor

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
)

// ErrInvalidMotorData is returned when a thrust curve cannot be used.
var ErrInvalidMotorData = errors.New("invalid motor data")

// Sample is one anchor of a thrust curve.
type Sample struct {
	Time           float64 // s since ignition
	Thrust         float64 // N
	PropellantMass float64 // kg remaining
}

// ThrustCurve is a motor described by time-ordered samples.
// A ThrustCurve is immutable once built and safe to share between runs.
type ThrustCurve struct {
	Designation string
	Diameter    float64 // m
	Length      float64 // m
	CasingMass  float64 // kg, motor mass without propellant

	samples []Sample
}

// NewThrustCurve validates samples and builds a motor. Samples must be
// non-empty, finite, non-negative and non-decreasing in time, starting at
// t >= 0.
func NewThrustCurve(designation string, casingMass float64, samples []Sample) (*ThrustCurve, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("motor %q: %w: no thrust samples", designation, ErrInvalidMotorData)
	}
	if !numeric.IsFinite(casingMass) || casingMass < 0 {
		return nil, fmt.Errorf("motor %q: %w: casing mass %v", designation, ErrInvalidMotorData, casingMass)
	}
	for i, s := range samples {
		if !numeric.IsFinite(s.Time) || !numeric.IsFinite(s.Thrust) || !numeric.IsFinite(s.PropellantMass) {
			return nil, fmt.Errorf("motor %q: %w: sample %d is not finite", designation, ErrInvalidMotorData, i)
		}
		if s.Time < 0 || s.Thrust < 0 || s.PropellantMass < 0 {
			return nil, fmt.Errorf("motor %q: %w: sample %d has negative values", designation, ErrInvalidMotorData, i)
		}
		if i > 0 && s.Time < samples[i-1].Time {
			return nil, fmt.Errorf("motor %q: %w: sample %d goes back in time", designation, ErrInvalidMotorData, i)
		}
	}

	cp := make([]Sample, len(samples))
	copy(cp, samples)
	return &ThrustCurve{
		Designation: designation,
		CasingMass:  casingMass,
		samples:     cp,
	}, nil
}

// NewThrustCurveFromThrust builds a motor from a plain thrust table. The
// propellant mass at each sample is derived from the fraction of total
// impulse still to be delivered.
func NewThrustCurveFromThrust(designation string, casingMass, propellantMass float64, times, thrusts []float64) (*ThrustCurve, error) {
	if len(times) != len(thrusts) {
		return nil, fmt.Errorf("motor %q: %w: %d times for %d thrust values", designation, ErrInvalidMotorData, len(times), len(thrusts))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("motor %q: %w: no thrust samples", designation, ErrInvalidMotorData)
	}

	cumulative := make([]float64, len(times))
	for i := 1; i < len(times); i++ {
		cumulative[i] = cumulative[i-1] + (thrusts[i-1]+thrusts[i])/2*(times[i]-times[i-1])
	}
	total := cumulative[len(cumulative)-1]

	samples := make([]Sample, len(times))
	for i := range times {
		remaining := propellantMass
		if total > 0 {
			remaining = propellantMass * (1 - cumulative[i]/total)
		} else if i == len(times)-1 {
			remaining = 0
		}
		samples[i] = Sample{Time: times[i], Thrust: thrusts[i], PropellantMass: math.Max(remaining, 0)}
	}
	return NewThrustCurve(designation, casingMass, samples)
}

// Samples returns a copy of the thrust curve anchors.
func (m *ThrustCurve) Samples() []Sample {
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

// BurnTime is the time of the last sample.
func (m *ThrustCurve) BurnTime() float64 {
	return m.samples[len(m.samples)-1].Time
}

// Thrust returns the thrust at t seconds after ignition; zero outside
// [0, BurnTime].
func (m *ThrustCurve) Thrust(t float64) float64 {
	if math.IsNaN(t) || t < 0 || t > m.BurnTime() {
		return 0
	}
	return m.interpolate(t, func(s Sample) float64 { return s.Thrust })
}

// PropellantMass returns the propellant left at t seconds after ignition.
// Outside [0, BurnTime] it is the terminal value.
func (m *ThrustCurve) PropellantMass(t float64) float64 {
	if math.IsNaN(t) || t < 0 || t > m.BurnTime() {
		return m.samples[len(m.samples)-1].PropellantMass
	}
	return m.interpolate(t, func(s Sample) float64 { return s.PropellantMass })
}

// InitialPropellantMass is the propellant loaded before ignition.
func (m *ThrustCurve) InitialPropellantMass() float64 {
	return m.samples[0].PropellantMass
}

// TotalMass is the loaded motor mass.
func (m *ThrustCurve) TotalMass() float64 {
	return m.CasingMass + m.InitialPropellantMass()
}

// TotalImpulse integrates thrust over the curve with the trapezoid rule.
func (m *ThrustCurve) TotalImpulse() float64 {
	impulse := 0.0
	for i := 1; i < len(m.samples); i++ {
		a, b := m.samples[i-1], m.samples[i]
		impulse += (a.Thrust + b.Thrust) / 2 * (b.Time - a.Time)
	}
	return impulse
}

// AverageThrust is total impulse over burn time, or zero for an
// instantaneous motor.
func (m *ThrustCurve) AverageThrust() float64 {
	if bt := m.BurnTime(); bt > 0 {
		return m.TotalImpulse() / bt
	}
	return 0
}

// interpolate finds the last sample at or before t and interpolates towards
// the next one. Repeated sample times resolve to the later sample.
func (m *ThrustCurve) interpolate(t float64, value func(Sample) float64) float64 {
	s := m.samples
	if t <= s[0].Time {
		return value(s[0])
	}
	lo, hi := 0, len(s)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s[mid].Time <= t {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo == len(s)-1 {
		return value(s[lo])
	}
	a, b := s[lo], s[lo+1]
	span := b.Time - a.Time
	if span <= 0 {
		return value(b)
	}
	return numeric.Lerp(value(a), value(b), (t-a.Time)/span)
}
