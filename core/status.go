package core

import (
	"fmt"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

const (
	// MaxStages is the largest stage count the engine accepts.
	MaxStages = 8
	// MaxRecoveryDevices is the largest recovery device count per stage.
	MaxRecoveryDevices = 8
)

// FlightMode is the coarse state of a status in the flight state machine.
type FlightMode int

const (
	ModeReady FlightMode = iota
	ModeOnLaunchRod
	ModePoweredAscent
	ModeCoastingAscent
	ModeDescent
	ModeRecovery
	ModeTumbling
	ModeLanded
)

func (m FlightMode) String() string {
	switch m {
	case ModeReady:
		return "READY"
	case ModeOnLaunchRod:
		return "ON_LAUNCH_ROD"
	case ModePoweredAscent:
		return "POWERED_ASCENT"
	case ModeCoastingAscent:
		return "COASTING_ASCENT"
	case ModeDescent:
		return "DESCENT"
	case ModeRecovery:
		return "DESCENT_DEPLOYED"
	case ModeTumbling:
		return "TUMBLING"
	case ModeLanded:
		return "LANDED"
	default:
		return fmt.Sprintf("FlightMode(%d)", int(m))
	}
}

// kinematics is the continuous part of a status. The same shape doubles as
// its time derivative inside the integrator.
type kinematics struct {
	Position        numeric.Vec3 // m east/north/up of the launch site
	Velocity        numeric.Vec3 // m/s
	Axis            numeric.Vec3 // unit vector towards the nose
	AngularVelocity numeric.Vec3 // rad/s
}

func (k kinematics) add(d kinematics, h float64) kinematics {
	return kinematics{
		Position:        k.Position.Add(d.Position.Scale(h)),
		Velocity:        k.Velocity.Add(d.Velocity.Scale(h)),
		Axis:            k.Axis.Add(d.Axis.Scale(h)),
		AngularVelocity: k.AngularVelocity.Add(d.AngularVelocity.Scale(h)),
	}
}

// nonFinite returns the name of the first non-finite quantity, or "".
func (k kinematics) nonFinite() string {
	switch {
	case !k.Position.IsFinite():
		return "position"
	case !k.Velocity.IsFinite():
		return "velocity"
	case !k.Axis.IsFinite():
		return "orientation"
	case !k.AngularVelocity.IsFinite():
		return "angular velocity"
	}
	return ""
}

type motorState struct {
	Scheduled   bool
	ScheduledAt float64
	Ignited     bool
	IgnitionAt  float64
	BurntOut    bool
	BurnoutAt   float64
	Ejected     bool
}

// Status is the complete state of one flying stack at one instant. It is a
// value: the engine derives each successor from its predecessor and never
// shares one between branches.
type Status struct {
	Time float64
	kinematics

	Mode FlightMode

	// Stages FirstStage..LastStage of the rocket fly together.
	FirstStage, LastStage int

	Liftoff    bool
	RodCleared bool
	Apogee     bool
	Tumbling   bool
	Landed     bool

	motors [MaxStages]motorState

	// Recovery devices are indexed stage*MaxRecoveryDevices+i.
	triggered     uint64
	deployPending uint64
	deployed      uint64
	deployAt      [MaxStages * MaxRecoveryDevices]float64

	// Branch is the index of the branch this status records into.
	Branch int
	// LastEvent is the most recent event applied, for error reports.
	LastEvent model.EventType
}

func deviceIndex(stage, device int) int { return stage*MaxRecoveryDevices + device }

// Thrusting reports whether any motor of the stack is burning.
func (s Status) Thrusting() bool {
	for st := s.FirstStage; st <= s.LastStage; st++ {
		if m := s.motors[st]; m.Ignited && !m.BurntOut {
			return true
		}
	}
	return false
}

// Deployed reports whether any recovery device of the stack is deployed.
func (s Status) Deployed() bool { return s.deployed != 0 }

func (s Status) isDeployed(stage, device int) bool {
	return s.deployed&(1<<deviceIndex(stage, device)) != 0
}

func (s *Status) scheduleDeploy(stage, device int, at float64) {
	i := deviceIndex(stage, device)
	bit := uint64(1) << i
	if s.triggered&bit != 0 {
		return
	}
	s.triggered |= bit
	s.deployPending |= bit
	s.deployAt[i] = at
}

func (s *Status) updateMode() {
	switch {
	case s.Landed:
		s.Mode = ModeLanded
	case !s.Liftoff:
		s.Mode = ModeReady
	case !s.RodCleared:
		s.Mode = ModeOnLaunchRod
	case s.deployed != 0:
		s.Mode = ModeRecovery
	case s.Tumbling:
		s.Mode = ModeTumbling
	case s.Thrusting():
		s.Mode = ModePoweredAscent
	case !s.Apogee:
		s.Mode = ModeCoastingAscent
	default:
		s.Mode = ModeDescent
	}
}

// dragOnly reports whether the stack descends as a point mass with a fixed
// drag area.
func (s Status) dragOnly() bool {
	return s.Mode == ModeRecovery || s.Mode == ModeTumbling
}
