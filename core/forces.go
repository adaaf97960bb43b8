package core

import (
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/aero"
	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
)

// EarthRadius is the mean Earth radius used by the default gravity model, m.
const EarthRadius = 6371009.0

// InverseSquareGravity returns standard gravity reduced with altitude above
// sea level.
func InverseSquareGravity(altitude float64) float64 {
	r := EarthRadius / (EarthRadius + altitude)
	return atmosphere.StandardGravity * r * r
}

// flightData is everything the force evaluation learns about one instant.
type flightData struct {
	mass       massProperties
	conditions atmosphere.Conditions
	forces     aero.Forces
	thrust     float64
	drag       float64
	mach       float64
	aoa        float64
	accel      numeric.Vec3
}

// evaluate returns the time derivative of k for the discrete state of s at
// time t. dt is the step in progress, used to bound the damping moment so it
// cannot reverse the rotation within one step.
func (r *run) evaluate(s Status, k kinematics, t, dt float64) (kinematics, flightData) {
	var fd flightData
	fd.mass = r.massAt(s, t)
	alt := k.Position.Z + r.opts.LaunchAltitude
	fd.conditions = r.atm.Conditions(alt)
	fd.thrust = r.thrust(s, t)
	gravity := numeric.Vec3{Z: -r.gravity(alt)}

	if !s.Liftoff || s.Landed {
		return kinematics{}, fd
	}

	air := k.Velocity.Sub(r.wind)
	speed := air.Norm()
	rho := fd.conditions.Density()
	q := 0.5 * rho * speed * speed
	fd.mach = speed / fd.conditions.SpeedOfSound()
	inv := 1 / fd.mass.Mass

	if s.dragOnly() {
		cda := r.dragArea(s)
		fd.drag = q * cda
		force := k.Axis.Scale(fd.thrust)
		if speed > 0 {
			force = force.Add(air.Scale(-fd.drag / speed))
		}
		fd.accel = force.Scale(inv).Add(gravity)
		return kinematics{Position: k.Velocity, Velocity: fd.accel}, fd
	}

	calc := r.calculator(s)
	if speed > 0 {
		fd.aoa = math.Acos(numeric.Clamp(k.Axis.Dot(air)/speed, -1, 1))
	}
	fc := aero.FlightConditions{
		Velocity:   speed,
		Mach:       fd.mach,
		AOA:        fd.aoa,
		Atmosphere: fd.conditions,
		Thrusting:  fd.thrust > 0,
	}
	fd.forces = calc.Forces(fc)
	aref := calc.ReferenceArea()
	fd.drag = q * fd.forces.CD * aref

	force := k.Axis.Scale(fd.thrust)
	if speed > 0 {
		force = force.Add(air.Scale(-fd.drag / speed))
	}
	var torque numeric.Vec3
	perp := air.Sub(k.Axis.Scale(air.Dot(k.Axis)))
	if n := perp.Norm(); n > 0 {
		normal := perp.Scale(-q * fd.forces.CN * aref / n)
		force = force.Add(normal)
		arm := k.Axis.Scale(-(fd.forces.CP - fd.mass.CG))
		torque = arm.Cross(normal)
	}
	fd.accel = force.Scale(inv).Add(gravity)

	if !s.RodCleared {
		along := fd.accel.Dot(r.rodAxis)
		if along < 0 && k.Velocity.Dot(r.rodAxis) <= 0 {
			along = 0
		}
		fd.accel = r.rodAxis.Scale(along)
		return kinematics{Position: k.Velocity, Velocity: fd.accel}, fd
	}

	inertia := fd.mass.Inertia
	if w := k.AngularVelocity.Norm(); w > 0 {
		damp := calc.DampingMoment(fc, fd.mass.CG, w)
		if dt > 0 {
			damp = math.Min(damp, inertia*w/dt)
		}
		torque = torque.Sub(k.AngularVelocity.Scale(damp / w))
	}
	torque = torque.Sub(k.Axis.Scale(torque.Dot(k.Axis)))

	return kinematics{
		Position:        k.Velocity,
		Velocity:        fd.accel,
		Axis:            k.AngularVelocity.Cross(k.Axis),
		AngularVelocity: torque.Scale(1 / inertia),
	}, fd
}

// thrust returns the summed thrust of the burning motors of the stack.
func (r *run) thrust(s Status, t float64) float64 {
	total := 0.0
	for st := s.FirstStage; st <= s.LastStage; st++ {
		ms := s.motors[st]
		if !ms.Ignited || ms.BurntOut {
			continue
		}
		total += r.rocket.Stages[st].Motor.Motor.Thrust(t - ms.IgnitionAt)
	}
	return total
}

// dragArea returns CD·A of a stack descending on its recovery devices or
// tumbling.
func (r *run) dragArea(s Status) float64 {
	cda := 0.0
	for st := s.FirstStage; st <= s.LastStage; st++ {
		for i, d := range r.rocket.Stages[st].Recovery {
			if s.isDeployed(st, i) {
				cda += d.DragArea()
			}
		}
	}
	if s.Tumbling || cda == 0 {
		calc := r.calculator(s)
		if t, ok := calc.(interface{ TumblingDragArea() float64 }); ok {
			cda += t.TumblingDragArea()
		} else {
			cda += calc.ReferenceArea()
		}
	}
	return cda
}
