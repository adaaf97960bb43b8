package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

// ErrInvalidConfiguration marks a rocket or options set that cannot be
// simulated. Nothing is integrated when it is returned.
var ErrInvalidConfiguration = errors.New("invalid rocket configuration")

// ComponentKind identifies the aerodynamic strategy of a body component.
type ComponentKind int

const (
	KindNoseCone ComponentKind = iota
	KindBodyTube
	KindTransition
)

func (k ComponentKind) String() string {
	switch k {
	case KindNoseCone:
		return "nosecone"
	case KindBodyTube:
		return "bodytube"
	case KindTransition:
		return "transition"
	default:
		return fmt.Sprintf("ComponentKind(%d)", int(k))
	}
}

// NoseShape is the profile of a nose cone or transition.
type NoseShape string

const (
	ShapeConical   NoseShape = "conical"
	ShapeOgive     NoseShape = "ogive"
	ShapeEllipsoid NoseShape = "ellipsoid"
	ShapeParabolic NoseShape = "parabolic"
)

// BodyComponent is one axially stacked piece of the airframe. Components of a
// stage are placed one after another starting at the stage's fore end.
type BodyComponent struct {
	Kind       ComponentKind
	Name       string
	Length     float64 // m
	ForeRadius float64 // m, zero for a nose cone
	AftRadius  float64 // m
	Shape      NoseShape
	Mass       float64 // kg
	FinSets    []FinSet
}

// FinSet is a set of identical trapezoidal fins attached to a body tube.
type FinSet struct {
	Name      string
	Count     int
	RootChord float64 // m
	TipChord  float64 // m
	Span      float64 // m
	Sweep     float64 // m, leading-edge offset of the tip from the root
	Thickness float64 // m
	Position  float64 // m, root leading edge aft of the parent's fore end
	Mass      float64 // kg
}

// PlanformArea returns the area of one fin.
func (f FinSet) PlanformArea() float64 {
	return (f.RootChord + f.TipChord) / 2 * f.Span
}

// MassComponent is a point mass placed inside a stage.
type MassComponent struct {
	Name     string
	Mass     float64 // kg
	Position float64 // m aft of the stage fore end
}

// RecoveryKind is the type of a recovery device.
type RecoveryKind string

const (
	RecoveryParachute RecoveryKind = "parachute"
	RecoveryStreamer  RecoveryKind = "streamer"
)

// DeployTrigger selects what deploys a recovery device.
type DeployTrigger string

const (
	DeployAtApogee   DeployTrigger = "apogee"
	DeployAtEjection DeployTrigger = "ejection"
	DeployAtAltitude DeployTrigger = "altitude"
	DeployNever      DeployTrigger = "never"
)

// RecoveryDevice is a parachute or streamer.
type RecoveryDevice struct {
	Name           string
	Kind           RecoveryKind
	Diameter       float64 // m, parachutes
	Length, Width  float64 // m, streamers
	CD             float64
	Trigger        DeployTrigger
	DeployAltitude float64 // m above the launch site, for DeployAtAltitude
	DeployDelay    float64 // s after the trigger
	Mass           float64 // kg
	Position       float64 // m aft of the stage fore end
}

// DragArea returns CD·A for the deployed device.
func (r RecoveryDevice) DragArea() float64 {
	switch r.Kind {
	case RecoveryStreamer:
		return r.CD * r.Length * r.Width
	default:
		return r.CD * math.Pi * r.Diameter * r.Diameter / 4
	}
}

// MotorMount places a motor in a stage.
type MotorMount struct {
	Motor         *motor.ThrustCurve
	Position      float64 // m, motor fore end aft of the stage fore end
	IgnitionDelay float64 // s, for upper stages: after separation of the stage below
	EjectionDelay float64 // s after burnout
	Plugged       bool    // no ejection charge
}

// SeparationTrigger selects when a stage separates from the stages above it.
type SeparationTrigger string

const (
	SeparateAtBurnout  SeparationTrigger = "burnout"
	SeparateAtTime     SeparationTrigger = "time"
	SeparateAtAltitude SeparationTrigger = "altitude"
	SeparateNever      SeparationTrigger = "never"
)

// Separation configures the separation of a stage from the one above.
type Separation struct {
	Trigger  SeparationTrigger
	Delay    float64 // s after burnout
	Time     float64 // s after launch, for SeparateAtTime
	Altitude float64 // m above the launch site on the way up, for SeparateAtAltitude
}

// Stage is one independently separable section. Index 0 of Rocket.Stages is
// the top stage.
type Stage struct {
	Name       string
	Components []BodyComponent
	Masses     []MassComponent
	Motor      *MotorMount
	Recovery   []RecoveryDevice
	Separation Separation
}

// Length returns the total axial length of the stage.
func (s Stage) Length() float64 {
	l := 0.0
	for _, c := range s.Components {
		l += c.Length
	}
	return l
}

// MaxRadius returns the largest body radius of the stage.
func (s Stage) MaxRadius() float64 {
	r := 0.0
	for _, c := range s.Components {
		r = math.Max(r, math.Max(c.ForeRadius, c.AftRadius))
	}
	return r
}

// HasNose reports whether the stage starts with a nose cone.
func (s Stage) HasNose() bool {
	return len(s.Components) > 0 && s.Components[0].Kind == KindNoseCone
}

// Rocket is the static configuration consumed by the engine. The engine
// holds it read-only for the duration of a run.
type Rocket struct {
	Name   string
	Stages []Stage
}

// Validate rejects configurations that cannot be simulated.
func (r *Rocket) Validate() error {
	if r == nil || len(r.Stages) == 0 {
		return fmt.Errorf("%w: rocket has no stages", ErrInvalidConfiguration)
	}
	if !r.Stages[0].HasNose() {
		return fmt.Errorf("%w: top stage must start with a nose cone", ErrInvalidConfiguration)
	}
	hasMotor := false
	for i, st := range r.Stages {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: stage %d (%s): %v", ErrInvalidConfiguration, i, st.Name, err)
		}
		if st.Motor != nil {
			hasMotor = true
		}
	}
	if !hasMotor {
		return fmt.Errorf("%w: no motor configured: %w", ErrInvalidConfiguration, motor.ErrInvalidMotorData)
	}
	if r.Stages[len(r.Stages)-1].Motor == nil {
		return fmt.Errorf("%w: bottom stage has no motor", ErrInvalidConfiguration)
	}
	return nil
}

func (s Stage) validate() error {
	if len(s.Components) == 0 {
		return errors.New("no body components")
	}
	for i, c := range s.Components {
		if !positive(c.Length) {
			return fmt.Errorf("component %d (%s): length must be positive", i, c.Name)
		}
		if !nonNegative(c.ForeRadius) || !nonNegative(c.AftRadius) || !nonNegative(c.Mass) {
			return fmt.Errorf("component %d (%s): radii and mass must be non-negative", i, c.Name)
		}
		if c.Kind == KindNoseCone && (i != 0 || c.ForeRadius != 0 || !positive(c.AftRadius)) {
			return fmt.Errorf("component %d (%s): nose cone must be first with a zero tip radius", i, c.Name)
		}
		if c.Kind == KindBodyTube && c.ForeRadius != c.AftRadius {
			return fmt.Errorf("component %d (%s): body tube radii differ", i, c.Name)
		}
		for j, f := range c.FinSets {
			if c.Kind != KindBodyTube {
				return fmt.Errorf("component %d (%s): fins must attach to a body tube", i, c.Name)
			}
			if f.Count < 1 || !positive(f.RootChord) || !nonNegative(f.TipChord) || !positive(f.Span) || !nonNegative(f.Thickness) || !nonNegative(f.Mass) {
				return fmt.Errorf("component %d (%s): fin set %d has invalid geometry", i, c.Name, j)
			}
		}
	}
	for _, m := range s.Masses {
		if !nonNegative(m.Mass) {
			return fmt.Errorf("mass %s must be non-negative", m.Name)
		}
	}
	for _, d := range s.Recovery {
		if !positive(d.CD) || !positive(d.DragArea()) || !nonNegative(d.DeployDelay) {
			return fmt.Errorf("recovery device %s has invalid drag or delay", d.Name)
		}
		if d.Trigger == DeployAtAltitude && !positive(d.DeployAltitude) {
			return fmt.Errorf("recovery device %s needs a positive deploy altitude", d.Name)
		}
	}
	if s.Motor != nil && s.Motor.Motor == nil {
		return fmt.Errorf("motor mount without motor: %w", motor.ErrInvalidMotorData)
	}
	switch sep := s.Separation; sep.Trigger {
	case SeparateAtTime:
		if !nonNegative(sep.Time) {
			return fmt.Errorf("separation time %v must be non-negative", sep.Time)
		}
	case SeparateAtAltitude:
		if !positive(sep.Altitude) {
			return fmt.Errorf("separation altitude %v must be positive", sep.Altitude)
		}
	}
	return nil
}

func positive(v float64) bool    { return v > 0 && !math.IsInf(v, 0) }
func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
