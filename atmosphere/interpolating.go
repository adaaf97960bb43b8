package atmosphere

import (
	"math"
	"sync"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
)

// LayerThickness is the lattice spacing in metres.
const LayerThickness = 500.0

// Interpolating pre-computes a Source on a LayerThickness lattice and
// interpolates linearly between neighbouring entries.
//
// The lattice is built on first use. An entry that is found unset when read
// causes the whole lattice to be recomputed before the read continues.
type Interpolating struct {
	source Source
	count  int

	mu     sync.RWMutex
	levels []*Conditions
	builds int
}

// NewInterpolating wraps src. The lattice holds floor(max/ΔLAYER)+1 entries.
func NewInterpolating(src Source) *Interpolating {
	return &Interpolating{
		source: src,
		count:  int(src.MaxAltitude()/LayerThickness) + 1,
	}
}

// Source returns the exact model behind the lattice.
func (m *Interpolating) Source() Source { return m.source }

// LayerCount returns the lattice length.
func (m *Interpolating) LayerCount() int { return m.count }

// Conditions returns the interpolated conditions at altitude. Altitudes below
// zero (and NaN) clamp to the first entry, altitudes at or above the last
// lattice point clamp to the last entry.
func (m *Interpolating) Conditions(altitude float64) Conditions {
	top := m.count - 1
	if math.IsNaN(altitude) || altitude <= 0 {
		return m.level(0)
	}
	if altitude >= LayerThickness*float64(top) {
		return m.level(top)
	}

	n := int(altitude / LayerThickness)
	d := (altitude - float64(n)*LayerThickness) / LayerThickness
	low, high := m.level(n), m.level(n+1)
	return Conditions{
		Temperature: numeric.Lerp(low.Temperature, high.Temperature, d),
		Pressure:    numeric.Lerp(low.Pressure, high.Pressure, d),
	}
}

func (m *Interpolating) level(i int) Conditions {
	m.mu.RLock()
	if m.levels != nil && m.levels[i] != nil {
		c := *m.levels[i]
		m.mu.RUnlock()
		return c
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.levels == nil || m.levels[i] == nil {
		m.computeLayers()
	}
	return *m.levels[i]
}

// computeLayers must be called with mu held for writing.
func (m *Interpolating) computeLayers() {
	levels := make([]*Conditions, m.count)
	for i := range levels {
		c := m.source.ExactConditions(float64(i) * LayerThickness)
		levels[i] = &c
	}
	m.levels = levels
	m.builds++
}
