package core

import (
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
)

// integrate advances s by h with one classical fourth-order Runge-Kutta step.
// Discrete state is held fixed across the step; only time and kinematics
// change.
func (r *run) integrate(s Status, h float64) Status {
	next := s
	next.Time = s.Time + h
	if !s.Liftoff || s.Landed || h <= 0 {
		return next
	}

	t := s.Time
	k0 := s.kinematics
	d1, _ := r.evaluate(s, k0, t, h)
	d2, _ := r.evaluate(s, k0.add(d1, h/2), t+h/2, h)
	d3, _ := r.evaluate(s, k0.add(d2, h/2), t+h/2, h)
	d4, _ := r.evaluate(s, k0.add(d3, h), t+h, h)

	k := k0.add(d1, h/6).add(d2, h/3).add(d3, h/3).add(d4, h/6)

	if s.RodCleared && !s.dragOnly() {
		k.Axis = k.Axis.Normalize()
		if k.Axis == numeric.Zero {
			k.Axis = s.Axis
		}
		k.AngularVelocity = k.AngularVelocity.Sub(k.Axis.Scale(k.AngularVelocity.Dot(k.Axis)))
	} else {
		k.Axis = s.Axis
		k.AngularVelocity = numeric.Zero
	}
	next.kinematics = k
	return next
}

// stepSize picks the next step for s before clipping to timed events. Free
// flight is limited by the rotation per step and by the period of the
// weathercock oscillation; drag-only descent by the drag time constant.
func (r *run) stepSize(s Status) float64 {
	switch s.Mode {
	case ModeReady, ModeOnLaunchRod, ModePoweredAscent:
		return r.opts.TimeStep
	}
	dt := r.opts.MaxTimeStep
	if w := s.AngularVelocity.Norm(); w > 0 {
		dt = math.Min(dt, r.opts.MaxAngleStep/w)
	}
	if s.dragOnly() {
		dt = math.Min(dt, r.dragTimeStep(s))
	} else {
		_, fd := r.evaluate(s, s.kinematics, s.Time, 0)
		calc := r.calculator(s)
		rho := fd.conditions.Density()
		speed := s.Velocity.Sub(r.wind).Norm()
		stiffness := 0.5 * rho * speed * speed * fd.forces.CNa * calc.ReferenceArea() * math.Abs(fd.forces.CP-fd.mass.CG)
		if stiffness > 0 && fd.mass.Inertia > 0 {
			dt = math.Min(dt, math.Sqrt(fd.mass.Inertia/stiffness))
		}
	}
	return math.Max(dt, r.opts.TimeStep/10)
}

// dragTimeStep bounds the step of a drag-only stack to half of
// m/(ρ·v·CdA), the inverse rate at which drag damps the airspeed. RK4 is
// unstable for steps beyond about 2.8 over that rate.
func (r *run) dragTimeStep(s Status) float64 {
	speed := s.Velocity.Sub(r.wind).Norm()
	rho := r.atm.Conditions(s.Position.Z + r.opts.LaunchAltitude).Density()
	rate := rho * speed * r.dragArea(s) / r.massAt(s, s.Time).Mass
	if !(rate > 0) {
		return math.Inf(1)
	}
	return 0.5 / rate
}
