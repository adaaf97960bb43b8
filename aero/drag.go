package aero

import "math"

// skinFriction returns the skin friction coefficient for Reynolds number re
// at the given Mach number.
func skinFriction(re, mach float64) float64 {
	cf := 1.48e-2
	if re > 1e4 {
		d := 1.50*math.Log(re) - 5.6
		cf = 1 / (d * d)
	}
	if mach < 1 {
		return cf * (1 - 0.1*mach*mach)
	}
	return cf / math.Pow(1+0.15*mach*mach, 0.58)
}

// baseDrag is the base pressure coefficient of an aft-facing surface.
func baseDrag(mach float64) float64 {
	if mach < 1 {
		return 0.12 + 0.13*mach*mach
	}
	return 0.25 / mach
}

// stagnation is the stagnation pressure ratio q_stag/q of a forward facing
// blunt surface.
func stagnation(mach float64) float64 {
	if mach < 1 {
		m2 := mach * mach
		return 1 + m2/4 + m2*m2/40
	}
	m2 := mach * mach
	return 1.84 - 0.76/m2 + 0.166/(m2*m2) + 0.035/(m2*m2*m2)
}

// bluntDrag is the pressure drag coefficient of a flat forward facing face.
func bluntDrag(mach float64) float64 {
	return 0.85 * stagnation(mach)
}

// leadingEdgeDrag is the pressure drag of a rounded fin leading edge per
// unit of frontal area.
func leadingEdgeDrag(mach float64) float64 {
	switch {
	case mach < 0.9:
		return math.Pow(1-mach*mach, -0.417) - 1
	case mach < 1:
		return 1 - 1.785*(mach-0.9)
	default:
		m2 := mach * mach
		return 1.214 - 0.502/m2 + 0.1095/(m2*m2)
	}
}

var waveFactor = map[string]float64{
	"conical":   1,
	"ogive":     0.6,
	"ellipsoid": 0.8,
	"parabolic": 0.5,
}

// nosePressureDrag is the pressure drag of a nose or shoulder with half angle
// phi, referenced to its own frontal area. Conical profiles carry pressure
// drag at all speeds; curved ones only develop wave drag in the transonic
// drag-rise band.
func nosePressureDrag(shape string, phi, mach float64) float64 {
	s := math.Sin(phi)
	sub := 0.0
	if shape == "conical" || shape == "" {
		sub = 0.8 * s * s
	}
	if mach <= 0.8 {
		return sub
	}
	rise := math.Min((mach-0.8)/0.4, 1)
	k, ok := waveFactor[shape]
	if !ok {
		k = 1
	}
	return sub + rise*k*2.1*s*s
}

// boattailDrag is the pressure drag of a narrowing transition referenced to
// the area it removes.
func boattailDrag(length, foreRadius, aftRadius, mach float64) float64 {
	gamma := length / (2 * (foreRadius - aftRadius))
	switch {
	case gamma <= 1:
		return baseDrag(mach)
	case gamma >= 3:
		return 0
	default:
		return baseDrag(mach) * (3 - gamma) / 2
	}
}
