package aero

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// body is one axisymmetric piece placed in the stack frame.
type body struct {
	kind       model.ComponentKind
	shape      string
	x          float64 // fore end, m aft of the stack tip
	length     float64
	foreRadius float64
	aftRadius  float64
}

// fins is one fin set placed in the stack frame.
type fins struct {
	count     int
	root, tip float64
	span      float64
	sweep     float64
	thickness float64
	x         float64 // root leading edge
	radius    float64 // body radius at the root
	midChord  float64 // length of the mid-chord line
}

// Barrowman is the Calculator for a stack of stages. Positions are measured
// from the fore end of the first stage given.
type Barrowman struct {
	bodies []body
	fins   []fins

	refRadius   float64
	length      float64
	wetBody     float64
	wetFins     float64
	finTCRatio  float64
	motorRadius float64
	bluntFront  float64 // frontal area of a forward facing face
}

var _ Calculator = (*Barrowman)(nil)

// NewBarrowman builds a calculator for stages flying together, top first.
func NewBarrowman(stages []model.Stage) (*Barrowman, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: empty stack", ErrInvalidGeometry)
	}
	b := &Barrowman{}
	x := 0.0
	prevRadius := 0.0
	finArea := 0.0
	finThick := 0.0
	for si, st := range stages {
		for ci, c := range st.Components {
			if !(c.Length > 0) || c.AftRadius < 0 || c.ForeRadius < 0 {
				return nil, fmt.Errorf("%w: stage %d component %d (%s)", ErrInvalidGeometry, si, ci, c.Name)
			}
			fore := c.ForeRadius
			if c.Kind == model.KindNoseCone {
				fore = 0
			}
			if fore > prevRadius {
				b.bluntFront += math.Pi * (fore*fore - prevRadius*prevRadius)
			}
			b.bodies = append(b.bodies, body{
				kind: c.Kind, shape: string(c.Shape), x: x, length: c.Length,
				foreRadius: fore, aftRadius: c.AftRadius,
			})
			b.refRadius = math.Max(b.refRadius, math.Max(fore, c.AftRadius))
			b.wetBody += math.Pi * (fore + c.AftRadius) * math.Hypot(c.AftRadius-fore, c.Length)

			for fi, f := range c.FinSets {
				if f.Count < 1 || !(f.Span > 0) || !(f.RootChord > 0) || f.TipChord < 0 {
					return nil, fmt.Errorf("%w: stage %d fin set %d (%s)", ErrInvalidGeometry, si, fi, f.Name)
				}
				b.fins = append(b.fins, fins{
					count: f.Count, root: f.RootChord, tip: f.TipChord, span: f.Span,
					sweep: f.Sweep, thickness: f.Thickness, x: x + f.Position, radius: c.AftRadius,
					midChord: math.Hypot(f.Span, f.Sweep+f.TipChord/2-f.RootChord/2),
				})
				a := float64(f.Count) * f.PlanformArea()
				finArea += a
				finThick += a * f.Thickness / ((f.RootChord + f.TipChord) / 2)
			}
			x += c.Length
			prevRadius = c.AftRadius
		}
	}
	if !(b.refRadius > 0) {
		return nil, fmt.Errorf("%w: stack has no radius", ErrInvalidGeometry)
	}
	b.length = x
	b.wetFins = 2 * finArea
	if finArea > 0 {
		b.finTCRatio = finThick / finArea
	}
	if m := stages[len(stages)-1].Motor; m != nil && m.Motor != nil {
		b.motorRadius = math.Min(m.Motor.Diameter/2, prevRadius)
	}
	return b, nil
}

// ReferenceArea returns the maximum frontal area.
func (b *Barrowman) ReferenceArea() float64 { return math.Pi * b.refRadius * b.refRadius }

// ReferenceLength returns the maximum body diameter.
func (b *Barrowman) ReferenceLength() float64 { return 2 * b.refRadius }

// Length returns the axial length of the stack.
func (b *Barrowman) Length() float64 { return b.length }

// Forces evaluates the coefficients at fc.
func (b *Barrowman) Forces(fc FlightConditions) Forces {
	var f Forces
	beta := Beta(fc.Mach)
	aref := b.ReferenceArea()

	moment := 0.0
	for _, bd := range b.bodies {
		cna, cp := bd.normal(aref)
		f.CNa += cna
		moment += cna * cp
	}
	for _, fs := range b.fins {
		cna, cp := fs.normal(beta, b.ReferenceLength())
		f.CNa += cna
		moment += cna * cp
	}
	if f.CNa != 0 {
		f.CP = moment / f.CNa
	} else {
		f.CP = b.length / 2
	}
	f.CN = f.CNa * math.Sin(fc.AOA)

	f.FrictionCD = b.frictionDrag(fc)
	f.PressureCD = b.pressureDrag(fc.Mach)
	f.BaseCD = b.baseDrag(fc)
	f.CD = f.FrictionCD + f.PressureCD + f.BaseCD
	return f
}

func (bd body) normal(aref float64) (cna, cp float64) {
	a0 := math.Pi * bd.foreRadius * bd.foreRadius
	a1 := math.Pi * bd.aftRadius * bd.aftRadius
	switch bd.kind {
	case model.KindNoseCone:
		cna = 2 * a1 / aref
		cp = bd.x + noseCPFraction(bd.shape)*bd.length
	case model.KindTransition:
		cna = 2 * (a1 - a0) / aref
		cp = bd.x + bd.length/2
		if bd.aftRadius > 0 && bd.foreRadius != bd.aftRadius {
			q := bd.foreRadius / bd.aftRadius
			cp = bd.x + bd.length/3*(1+(1-q)/(1-q*q))
		}
	default:
		cp = bd.x + bd.length/2
	}
	return cna, cp
}

func noseCPFraction(shape string) float64 {
	switch shape {
	case "ogive":
		return 0.466
	case "ellipsoid":
		return 0.333
	case "parabolic":
		return 0.5
	default:
		return 2.0 / 3.0
	}
}

func (fs fins) normal(beta, refLength float64) (cna, cp float64) {
	interference := 1 + fs.radius/(fs.span+fs.radius)
	sd := fs.span / refLength
	k := 2 * beta * fs.midChord / (fs.root + fs.tip)
	cna = interference * 4 * float64(fs.count) * sd * sd / (1 + math.Sqrt(1+k*k))

	sum := fs.root + fs.tip
	cp = fs.x + fs.sweep/3*(fs.root+2*fs.tip)/sum + (sum-fs.root*fs.tip/sum)/6
	return cna, cp
}

func (b *Barrowman) frictionDrag(fc FlightConditions) float64 {
	nu := fc.Atmosphere.KinematicViscosity()
	re := 0.0
	if nu > 0 {
		re = math.Abs(fc.Velocity) * b.length / nu
	}
	cf := skinFriction(re, fc.Mach)
	fineness := b.length / b.ReferenceLength()
	wet := (1+1/(2*fineness))*b.wetBody + (1+2*b.finTCRatio)*b.wetFins
	return cf * wet / b.ReferenceArea()
}

func (b *Barrowman) pressureDrag(mach float64) float64 {
	aref := b.ReferenceArea()
	cd := 0.0
	for _, bd := range b.bodies {
		a0 := math.Pi * bd.foreRadius * bd.foreRadius
		a1 := math.Pi * bd.aftRadius * bd.aftRadius
		switch {
		case bd.aftRadius > bd.foreRadius:
			phi := math.Atan((bd.aftRadius - bd.foreRadius) / bd.length)
			cd += nosePressureDrag(bd.shape, phi, mach) * (a1 - a0) / aref
		case bd.aftRadius < bd.foreRadius:
			cd += boattailDrag(bd.length, bd.foreRadius, bd.aftRadius, mach) * (a0 - a1) / aref
		}
	}
	cd += bluntDrag(mach) * b.bluntFront / aref

	le := leadingEdgeDrag(mach)
	te := baseDrag(mach) / 2
	for _, fs := range b.fins {
		gamma := math.Atan2(fs.sweep, fs.span)
		frontal := float64(fs.count) * fs.thickness * fs.span
		cd += (le*math.Cos(gamma)*math.Cos(gamma) + te) * frontal / aref
	}
	return cd
}

func (b *Barrowman) baseDrag(fc FlightConditions) float64 {
	if len(b.bodies) == 0 {
		return 0
	}
	r := b.bodies[len(b.bodies)-1].aftRadius
	area := math.Pi * r * r
	if fc.Thrusting {
		area -= math.Pi * b.motorRadius * b.motorRadius
	}
	return baseDrag(fc.Mach) * math.Max(area, 0) / b.ReferenceArea()
}

// DampingMoment returns the pitch damping moment of the body and fins.
func (b *Barrowman) DampingMoment(fc FlightConditions, cg, omega float64) float64 {
	rho := fc.Atmosphere.Density()
	w2 := omega * omega

	// Body: integrate over the lengths fore and aft of the CG.
	avgRadius := b.wetBody / (2 * math.Pi * b.length)
	fore := math.Max(cg, 0)
	aft := math.Max(b.length-cg, 0)
	m := 0.275 * rho * avgRadius * (fore*fore*fore*fore + aft*aft*aft*aft) * w2

	for _, fs := range b.fins {
		_, cp := fs.normal(1, b.ReferenceLength())
		arm := math.Abs(cp - cg)
		area := (fs.root + fs.tip) / 2 * fs.span
		m += 0.6 * rho * float64(fs.count) * area * arm * arm * arm * w2
	}
	return m
}

// tumbleFinFactor scales the fin side area by fin count for a tumbling body.
var tumbleFinFactor = [...]float64{0, 0.5, 1.0, 1.41, 1.81, 1.73, 1.90, 1.85}

// TumblingDragArea returns CD·A in m² of the stack tumbling end over end,
// used for separated stages descending without a nose.
func (b *Barrowman) TumblingDragArea() float64 {
	side := 0.0
	for _, bd := range b.bodies {
		side += (bd.foreRadius + bd.aftRadius) * bd.length
	}
	cda := 0.56 * side
	for _, fs := range b.fins {
		k := tumbleFinFactor[len(tumbleFinFactor)-1]
		if fs.count < len(tumbleFinFactor) {
			k = tumbleFinFactor[fs.count]
		}
		cda += 1.42 * k * (fs.root + fs.tip) / 2 * fs.span
	}
	return cda
}
