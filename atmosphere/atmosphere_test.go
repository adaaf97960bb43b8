package atmosphere

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestISASeaLevelMatchesExact(t *testing.T) {
	m := NewISA()
	got := m.Conditions(0)
	want := m.Source().ExactConditions(0)
	if got != want {
		t.Fatalf("Conditions(0) = %+v, want %+v", got, want)
	}
	if got.Temperature != ISATemperature || got.Pressure != ISAPressure {
		t.Fatalf("sea level = %+v, want %v K / %v Pa", got, ISATemperature, ISAPressure)
	}
}

func TestClampBelowZeroAndNaN(t *testing.T) {
	m := NewISA()
	sea := m.Conditions(0)
	for _, alt := range []float64{-1, -5000, math.NaN(), math.Inf(-1)} {
		if got := m.Conditions(alt); got != sea {
			t.Fatalf("Conditions(%v) = %+v, want layer 0 %+v", alt, got, sea)
		}
	}
}

func TestClampAboveTopLayer(t *testing.T) {
	m := NewISA()
	top := float64(m.LayerCount()-1) * LayerThickness
	want := m.Source().ExactConditions(top)
	for _, alt := range []float64{top, top + 1, 1e7, math.Inf(1)} {
		if got := m.Conditions(alt); got != want {
			t.Fatalf("Conditions(%v) = %+v, want top layer %+v", alt, got, want)
		}
	}
}

func TestLayerCount(t *testing.T) {
	m := NewISA()
	want := int(math.Floor(isaMaxAltitude/LayerThickness)) + 1
	if got := m.LayerCount(); got != want {
		t.Fatalf("LayerCount() = %d, want %d", got, want)
	}
}

func TestInterpolationIsLinearWithinLayer(t *testing.T) {
	m := NewISA()
	a1, a2 := 1000.0, 1500.0
	t1 := m.Conditions(a1).Temperature
	t2 := m.Conditions(a2).Temperature
	prev := t1
	for alt := a1; alt <= a2; alt += 25 {
		got := m.Conditions(alt).Temperature
		if got > prev+1e-12 || got < t2-1e-12 {
			t.Fatalf("temperature at %v = %v not monotonic between %v and %v", alt, got, t1, t2)
		}
		prev = got
	}

	mid := m.Conditions(1250)
	low := m.Source().ExactConditions(1000)
	high := m.Source().ExactConditions(1500)
	if want := (low.Pressure + high.Pressure) / 2; math.Abs(mid.Pressure-want) > 1e-9 {
		t.Fatalf("pressure at layer midpoint = %v, want %v", mid.Pressure, want)
	}
}

func TestISAReferenceValues(t *testing.T) {
	src := NewLayered(0, ISATemperature, ISAPressure)
	c := src.ExactConditions(11000)
	if math.Abs(c.Temperature-216.65) > 1e-9 {
		t.Fatalf("T(11 km) = %v, want 216.65", c.Temperature)
	}
	if math.Abs(c.Pressure-22632) > 5 {
		t.Fatalf("P(11 km) = %v, want ~22632", c.Pressure)
	}
	if rho := src.ExactConditions(0).Density(); math.Abs(rho-1.225) > 1e-3 {
		t.Fatalf("sea-level density = %v, want ~1.225", rho)
	}
	if a := src.ExactConditions(0).SpeedOfSound(); math.Abs(a-340.3) > 0.1 {
		t.Fatalf("sea-level speed of sound = %v, want ~340.3", a)
	}
}

func TestExtendedISAAnchoredAtLaunchSite(t *testing.T) {
	src := NewLayered(1200, 300, 90000)
	c := src.ExactConditions(1200)
	if math.Abs(c.Temperature-300) > 1e-9 || math.Abs(c.Pressure-90000) > 1e-6 {
		t.Fatalf("anchor conditions = %+v, want 300 K / 90000 Pa", c)
	}
	below := src.ExactConditions(0)
	if below.Temperature <= c.Temperature || below.Pressure <= c.Pressure {
		t.Fatalf("conditions below anchor %+v should be warmer and denser than %+v", below, c)
	}
}

func TestSelfHealingRebuildsMissingEntry(t *testing.T) {
	m := NewISA()
	want := m.Conditions(2750)
	if m.builds != 1 {
		t.Fatalf("builds after first query = %d, want 1", m.builds)
	}

	m.mu.Lock()
	m.levels[5] = nil
	m.mu.Unlock()

	if got := m.Conditions(2750); got != want {
		t.Fatalf("Conditions after rebuild = %+v, want %+v", got, want)
	}
	if m.builds != 2 {
		t.Fatalf("builds after missing entry = %d, want 2", m.builds)
	}
}

func TestConcurrentQueries(t *testing.T) {
	m := NewISA()
	want := NewISA().Conditions(12345)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := m.Conditions(12345); got != want {
					t.Errorf("concurrent Conditions = %+v, want %+v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestForKind(t *testing.T) {
	site := LaunchSite{Altitude: 0, Temperature: 280, Pressure: 100000}

	if _, err := ForKind(ParseKind(" ISA "), site); err != nil {
		t.Fatalf("ForKind(isa) error: %v", err)
	}

	ext, err := ForKind(KindExtendedISA, site)
	if err != nil {
		t.Fatalf("ForKind(extendedisa) error: %v", err)
	}
	if got := ext.Conditions(0).Temperature; got != 280 {
		t.Fatalf("extended ISA T(0) = %v, want 280", got)
	}

	m, err := ForKind("martian", site)
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("ForKind(unknown) error = %v, want ErrUnknownModel", err)
	}
	if m == nil || m.Conditions(0).Temperature != ISATemperature {
		t.Fatalf("ForKind(unknown) should fall back to ISA, got %#v", m)
	}
}
