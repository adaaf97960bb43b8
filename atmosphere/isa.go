package atmosphere

import "math"

// Standard sea-level values of the International Standard Atmosphere.
const (
	ISATemperature = 288.15
	ISAPressure    = 101325.0

	isaMaxAltitude = 84852.0
)

// Standard layer base altitudes (m) and their temperature lapse rates (K/m).
var isaLayers = []struct {
	altitude float64
	lapse    float64
}{
	{0, -0.0065},
	{11000, 0},
	{20000, 0.001},
	{32000, 0.0028},
	{47000, 0},
	{51000, -0.0028},
	{71000, -0.002},
}

type layer struct {
	altitude    float64
	lapse       float64
	temperature float64
	pressure    float64
}

// Layered is the piecewise-linear temperature profile of the ISA, anchored
// so that a reference altitude has a given temperature and pressure.
type Layered struct {
	layers []layer
}

// NewLayered builds the ISA layer structure through (altitude, temperature,
// pressure). With (0, ISATemperature, ISAPressure) it is the standard ISA.
func NewLayered(altitude, temperature, pressure float64) *Layered {
	layers := make([]layer, len(isaLayers))
	for i, l := range isaLayers {
		layers[i] = layer{altitude: l.altitude, lapse: l.lapse}
	}

	k := 0
	for i := range layers {
		if altitude >= layers[i].altitude {
			k = i
		}
	}

	// Reference layer base, extrapolated back from the anchor.
	ref := &layers[k]
	ref.temperature, ref.pressure = propagate(altitude, temperature, pressure, ref.lapse, ref.altitude)

	for i := k + 1; i < len(layers); i++ {
		prev := layers[i-1]
		layers[i].temperature, layers[i].pressure = propagate(prev.altitude, prev.temperature, prev.pressure, prev.lapse, layers[i].altitude)
	}
	for i := k - 1; i >= 0; i-- {
		next := layers[i+1]
		layers[i].temperature, layers[i].pressure = propagate(next.altitude, next.temperature, next.pressure, layers[i].lapse, layers[i].altitude)
	}

	return &Layered{layers: layers}
}

// MaxAltitude implements Source.
func (l *Layered) MaxAltitude() float64 { return isaMaxAltitude }

// ExactConditions implements Source. Altitudes below the first layer use the
// first layer's lapse rate.
func (l *Layered) ExactConditions(altitude float64) Conditions {
	base := l.layers[0]
	for _, ly := range l.layers {
		if altitude >= ly.altitude {
			base = ly
		}
	}
	t, p := propagate(base.altitude, base.temperature, base.pressure, base.lapse, altitude)
	return Conditions{Temperature: t, Pressure: p}
}

// propagate moves (temperature, pressure) known at altitude from along a
// constant lapse rate to altitude to.
func propagate(from, temperature, pressure, lapse, to float64) (float64, float64) {
	dh := to - from
	if lapse == 0 {
		return temperature, pressure * math.Exp(-StandardGravity*dh/(GasConstant*temperature))
	}
	t := temperature + lapse*dh
	return t, pressure * math.Pow(temperature/t, StandardGravity/(GasConstant*lapse))
}

// NewISA returns the interpolated International Standard Atmosphere.
func NewISA() *Interpolating {
	return NewInterpolating(NewLayered(0, ISATemperature, ISAPressure))
}

// NewExtendedISA returns an ISA whose layers are anchored to the launch-site
// temperature and pressure at the launch altitude.
func NewExtendedISA(launchAltitude, temperature, pressure float64) *Interpolating {
	return NewInterpolating(NewLayered(launchAltitude, temperature, pressure))
}
