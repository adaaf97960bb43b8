// Package config reads rocket and simulation option files.
//
// Files are YAML. The same document types carry JSON tags so they double as
// the wire form of the RPC service. Angles in files are degrees; the model
// works in radians.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

// RocketDocument is the top-level structure of a rocket file.
type RocketDocument struct {
	Name   string          `yaml:"name" json:"name"`
	Stages []StageDocument `yaml:"stages" json:"stages"`
}

// StageDocument describes one stage, top stage first.
type StageDocument struct {
	Name       string              `yaml:"name" json:"name"`
	Components []ComponentDocument `yaml:"components" json:"components"`
	Masses     []MassDocument      `yaml:"masses,omitempty" json:"masses,omitempty"`
	Motor      *MotorDocument      `yaml:"motor,omitempty" json:"motor,omitempty"`
	Recovery   []RecoveryDocument  `yaml:"recovery,omitempty" json:"recovery,omitempty"`
	Separation *SeparationDocument `yaml:"separation,omitempty" json:"separation,omitempty"`
}

// ComponentDocument is a nose cone, body tube or transition. Radius is a
// shorthand for body tubes that sets both ends.
type ComponentDocument struct {
	Type       string        `yaml:"type" json:"type"`
	Name       string        `yaml:"name,omitempty" json:"name,omitempty"`
	Length     float64       `yaml:"length" json:"length"`
	Radius     float64       `yaml:"radius,omitempty" json:"radius,omitempty"`
	ForeRadius float64       `yaml:"fore_radius,omitempty" json:"fore_radius,omitempty"`
	AftRadius  float64       `yaml:"aft_radius,omitempty" json:"aft_radius,omitempty"`
	Shape      string        `yaml:"shape,omitempty" json:"shape,omitempty"`
	Mass       float64       `yaml:"mass,omitempty" json:"mass,omitempty"`
	Fins       []FinDocument `yaml:"fins,omitempty" json:"fins,omitempty"`
}

type FinDocument struct {
	Name      string  `yaml:"name,omitempty" json:"name,omitempty"`
	Count     int     `yaml:"count" json:"count"`
	RootChord float64 `yaml:"root_chord" json:"root_chord"`
	TipChord  float64 `yaml:"tip_chord" json:"tip_chord"`
	Span      float64 `yaml:"span" json:"span"`
	Sweep     float64 `yaml:"sweep,omitempty" json:"sweep,omitempty"`
	Thickness float64 `yaml:"thickness,omitempty" json:"thickness,omitempty"`
	Position  float64 `yaml:"position" json:"position"`
	Mass      float64 `yaml:"mass,omitempty" json:"mass,omitempty"`
}

type MassDocument struct {
	Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
	Mass     float64 `yaml:"mass" json:"mass"`
	Position float64 `yaml:"position" json:"position"`
}

// MotorDocument names a built-in motor or carries a thrust curve.
type MotorDocument struct {
	Builtin        string          `yaml:"builtin,omitempty" json:"builtin,omitempty"`
	Designation    string          `yaml:"designation,omitempty" json:"designation,omitempty"`
	CasingMass     float64         `yaml:"casing_mass,omitempty" json:"casing_mass,omitempty"`
	PropellantMass float64         `yaml:"propellant_mass,omitempty" json:"propellant_mass,omitempty"`
	Diameter       float64         `yaml:"diameter,omitempty" json:"diameter,omitempty"`
	Length         float64         `yaml:"length,omitempty" json:"length,omitempty"`
	Curve          []CurveDocument `yaml:"curve,omitempty" json:"curve,omitempty"`

	Position      float64 `yaml:"position" json:"position"`
	IgnitionDelay float64 `yaml:"ignition_delay,omitempty" json:"ignition_delay,omitempty"`
	EjectionDelay float64 `yaml:"ejection_delay,omitempty" json:"ejection_delay,omitempty"`
	Plugged       bool    `yaml:"plugged,omitempty" json:"plugged,omitempty"`
}

// CurveDocument is one thrust curve point. When every point carries
// Propellant the curve is used as is; otherwise the propellant mass is
// spread over the curve by impulse.
type CurveDocument struct {
	Time       float64  `yaml:"t" json:"t"`
	Thrust     float64  `yaml:"thrust" json:"thrust"`
	Propellant *float64 `yaml:"propellant,omitempty" json:"propellant,omitempty"`
}

type RecoveryDocument struct {
	Name           string  `yaml:"name,omitempty" json:"name,omitempty"`
	Type           string  `yaml:"type" json:"type"`
	Diameter       float64 `yaml:"diameter,omitempty" json:"diameter,omitempty"`
	Length         float64 `yaml:"length,omitempty" json:"length,omitempty"`
	Width          float64 `yaml:"width,omitempty" json:"width,omitempty"`
	CD             float64 `yaml:"cd" json:"cd"`
	Deploy         string  `yaml:"deploy" json:"deploy"`
	DeployAltitude float64 `yaml:"deploy_altitude,omitempty" json:"deploy_altitude,omitempty"`
	DeployDelay    float64 `yaml:"deploy_delay,omitempty" json:"deploy_delay,omitempty"`
	Mass           float64 `yaml:"mass,omitempty" json:"mass,omitempty"`
	Position       float64 `yaml:"position,omitempty" json:"position,omitempty"`
}

type SeparationDocument struct {
	Trigger  string  `yaml:"trigger" json:"trigger"`
	Delay    float64 `yaml:"delay,omitempty" json:"delay,omitempty"`
	Time     float64 `yaml:"time,omitempty" json:"time,omitempty"`
	Altitude float64 `yaml:"altitude,omitempty" json:"altitude,omitempty"`
}

var builtinMotors = map[string]func() *motor.ThrustCurve{
	"c6": sample.C6,
	"b6": sample.B6,
}

// LoadRocket reads, converts and validates a rocket file.
func LoadRocket(path string) (*model.Rocket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rocket config: %w", err)
	}
	return ParseRocket(data)
}

// ParseRocket converts and validates a YAML rocket document.
func ParseRocket(data []byte) (*model.Rocket, error) {
	var doc RocketDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rocket config: %w", err)
	}
	return doc.Rocket()
}

// Rocket converts the document into a validated model.
func (d RocketDocument) Rocket() (*model.Rocket, error) {
	r := &model.Rocket{Name: d.Name}
	for i, sd := range d.Stages {
		st, err := sd.stage()
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, sd.Name, err)
		}
		r.Stages = append(r.Stages, st)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (d StageDocument) stage() (model.Stage, error) {
	st := model.Stage{Name: d.Name}
	for _, cd := range d.Components {
		c, err := cd.component()
		if err != nil {
			return st, err
		}
		st.Components = append(st.Components, c)
	}
	for _, m := range d.Masses {
		st.Masses = append(st.Masses, model.MassComponent{Name: m.Name, Mass: m.Mass, Position: m.Position})
	}
	if d.Motor != nil {
		mount, err := d.Motor.mount()
		if err != nil {
			return st, err
		}
		st.Motor = mount
	}
	for _, rd := range d.Recovery {
		dev, err := rd.device()
		if err != nil {
			return st, err
		}
		st.Recovery = append(st.Recovery, dev)
	}
	if d.Separation != nil {
		sep, err := d.Separation.separation()
		if err != nil {
			return st, err
		}
		st.Separation = sep
	}
	return st, nil
}

func (d ComponentDocument) component() (model.BodyComponent, error) {
	c := model.BodyComponent{
		Name:       d.Name,
		Length:     d.Length,
		ForeRadius: d.ForeRadius,
		AftRadius:  d.AftRadius,
		Mass:       d.Mass,
	}
	switch strings.ToLower(d.Type) {
	case "nosecone", "nose":
		c.Kind = model.KindNoseCone
		if c.AftRadius == 0 {
			c.AftRadius = d.Radius
		}
		c.Shape = model.NoseShape(strings.ToLower(d.Shape))
		switch c.Shape {
		case "":
			c.Shape = model.ShapeOgive
		case model.ShapeConical, model.ShapeOgive, model.ShapeEllipsoid, model.ShapeParabolic:
		default:
			return c, fmt.Errorf("%w: unknown nose shape %q", model.ErrInvalidConfiguration, d.Shape)
		}
	case "bodytube", "body":
		c.Kind = model.KindBodyTube
		if d.Radius > 0 {
			c.ForeRadius, c.AftRadius = d.Radius, d.Radius
		}
	case "transition":
		c.Kind = model.KindTransition
	default:
		return c, fmt.Errorf("%w: unknown component type %q", model.ErrInvalidConfiguration, d.Type)
	}
	for _, f := range d.Fins {
		c.FinSets = append(c.FinSets, model.FinSet{
			Name:      f.Name,
			Count:     f.Count,
			RootChord: f.RootChord,
			TipChord:  f.TipChord,
			Span:      f.Span,
			Sweep:     f.Sweep,
			Thickness: f.Thickness,
			Position:  f.Position,
			Mass:      f.Mass,
		})
	}
	return c, nil
}

func (d MotorDocument) mount() (*model.MotorMount, error) {
	m, err := d.thrustCurve()
	if err != nil {
		return nil, err
	}
	return &model.MotorMount{
		Motor:         m,
		Position:      d.Position,
		IgnitionDelay: d.IgnitionDelay,
		EjectionDelay: d.EjectionDelay,
		Plugged:       d.Plugged,
	}, nil
}

func (d MotorDocument) thrustCurve() (*motor.ThrustCurve, error) {
	if d.Builtin != "" {
		build, ok := builtinMotors[strings.ToLower(d.Builtin)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown built-in motor %q", motor.ErrInvalidMotorData, d.Builtin)
		}
		return build(), nil
	}

	withPropellant := len(d.Curve) > 0
	for _, p := range d.Curve {
		if p.Propellant == nil {
			withPropellant = false
		}
	}

	var (
		m   *motor.ThrustCurve
		err error
	)
	if withPropellant {
		samples := make([]motor.Sample, len(d.Curve))
		for i, p := range d.Curve {
			samples[i] = motor.Sample{Time: p.Time, Thrust: p.Thrust, PropellantMass: *p.Propellant}
		}
		m, err = motor.NewThrustCurve(d.Designation, d.CasingMass, samples)
	} else {
		times := make([]float64, len(d.Curve))
		thrusts := make([]float64, len(d.Curve))
		for i, p := range d.Curve {
			times[i], thrusts[i] = p.Time, p.Thrust
		}
		m, err = motor.NewThrustCurveFromThrust(d.Designation, d.CasingMass, d.PropellantMass, times, thrusts)
	}
	if err != nil {
		return nil, err
	}
	m.Diameter = d.Diameter
	m.Length = d.Length
	return m, nil
}

func (d RecoveryDocument) device() (model.RecoveryDevice, error) {
	dev := model.RecoveryDevice{
		Name:           d.Name,
		Kind:           model.RecoveryKind(strings.ToLower(d.Type)),
		Diameter:       d.Diameter,
		Length:         d.Length,
		Width:          d.Width,
		CD:             d.CD,
		Trigger:        model.DeployTrigger(strings.ToLower(d.Deploy)),
		DeployAltitude: d.DeployAltitude,
		DeployDelay:    d.DeployDelay,
		Mass:           d.Mass,
		Position:       d.Position,
	}
	switch dev.Kind {
	case model.RecoveryParachute, model.RecoveryStreamer:
	default:
		return dev, fmt.Errorf("%w: unknown recovery device type %q", model.ErrInvalidConfiguration, d.Type)
	}
	switch dev.Trigger {
	case "":
		dev.Trigger = model.DeployAtEjection
	case model.DeployAtApogee, model.DeployAtEjection, model.DeployAtAltitude, model.DeployNever:
	default:
		return dev, fmt.Errorf("%w: unknown deploy trigger %q", model.ErrInvalidConfiguration, d.Deploy)
	}
	return dev, nil
}

func (d SeparationDocument) separation() (model.Separation, error) {
	sep := model.Separation{
		Trigger:  model.SeparationTrigger(strings.ToLower(d.Trigger)),
		Delay:    d.Delay,
		Time:     d.Time,
		Altitude: d.Altitude,
	}
	switch sep.Trigger {
	case "":
		sep.Trigger = model.SeparateAtBurnout
	case model.SeparateAtBurnout, model.SeparateAtTime, model.SeparateAtAltitude, model.SeparateNever:
	default:
		return sep, fmt.Errorf("%w: unknown separation trigger %q", model.ErrInvalidConfiguration, d.Trigger)
	}
	return sep, nil
}

// FromRocket converts a model back into its document form. Thrust curves
// are written out point by point with their propellant mass.
func FromRocket(r *model.Rocket) RocketDocument {
	doc := RocketDocument{Name: r.Name}
	for _, st := range r.Stages {
		sd := StageDocument{Name: st.Name}
		for _, c := range st.Components {
			cd := ComponentDocument{
				Type:       c.Kind.String(),
				Name:       c.Name,
				Length:     c.Length,
				ForeRadius: c.ForeRadius,
				AftRadius:  c.AftRadius,
				Shape:      string(c.Shape),
				Mass:       c.Mass,
			}
			for _, f := range c.FinSets {
				cd.Fins = append(cd.Fins, FinDocument{
					Name: f.Name, Count: f.Count, RootChord: f.RootChord, TipChord: f.TipChord,
					Span: f.Span, Sweep: f.Sweep, Thickness: f.Thickness, Position: f.Position, Mass: f.Mass,
				})
			}
			sd.Components = append(sd.Components, cd)
		}
		for _, m := range st.Masses {
			sd.Masses = append(sd.Masses, MassDocument{Name: m.Name, Mass: m.Mass, Position: m.Position})
		}
		if mm := st.Motor; mm != nil && mm.Motor != nil {
			md := &MotorDocument{
				Designation:   mm.Motor.Designation,
				CasingMass:    mm.Motor.CasingMass,
				Diameter:      mm.Motor.Diameter,
				Length:        mm.Motor.Length,
				Position:      mm.Position,
				IgnitionDelay: mm.IgnitionDelay,
				EjectionDelay: mm.EjectionDelay,
				Plugged:       mm.Plugged,
			}
			for _, s := range mm.Motor.Samples() {
				p := s.PropellantMass
				md.Curve = append(md.Curve, CurveDocument{Time: s.Time, Thrust: s.Thrust, Propellant: &p})
			}
			sd.Motor = md
		}
		for _, d := range st.Recovery {
			sd.Recovery = append(sd.Recovery, RecoveryDocument{
				Name: d.Name, Type: string(d.Kind), Diameter: d.Diameter, Length: d.Length, Width: d.Width,
				CD: d.CD, Deploy: string(d.Trigger), DeployAltitude: d.DeployAltitude,
				DeployDelay: d.DeployDelay, Mass: d.Mass, Position: d.Position,
			})
		}
		if st.Separation.Trigger != "" {
			sd.Separation = &SeparationDocument{
				Trigger:  string(st.Separation.Trigger),
				Delay:    st.Separation.Delay,
				Time:     st.Separation.Time,
				Altitude: st.Separation.Altitude,
			}
		}
		doc.Stages = append(doc.Stages, sd)
	}
	return doc
}
