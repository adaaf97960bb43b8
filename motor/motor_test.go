package motor

import (
	"errors"
	"math"
	"testing"
)

func estesC6(t *testing.T) *ThrustCurve {
	t.Helper()
	m, err := NewThrustCurveFromThrust("C6", 0.0128, 0.0108,
		[]float64{0, 0.1, 0.2, 0.3, 1.0, 1.8, 1.86},
		[]float64{0, 10, 14, 6, 5, 4.5, 0},
	)
	if err != nil {
		t.Fatalf("NewThrustCurveFromThrust: %v", err)
	}
	return m
}

func TestThrustInterpolation(t *testing.T) {
	m := estesC6(t)
	if got := m.Thrust(0.05); math.Abs(got-5) > 1e-12 {
		t.Fatalf("Thrust(0.05) = %v, want 5", got)
	}
	if got := m.Thrust(0.2); got != 14 {
		t.Fatalf("Thrust(0.2) = %v, want 14", got)
	}
	for _, tt := range []float64{-1, 1.87, 10, math.NaN()} {
		if got := m.Thrust(tt); got != 0 {
			t.Fatalf("Thrust(%v) = %v, want 0 outside burn", tt, got)
		}
	}
}

func TestPropellantMassDecreasesToTerminal(t *testing.T) {
	m := estesC6(t)
	if got := m.PropellantMass(0); got != 0.0108 {
		t.Fatalf("PropellantMass(0) = %v, want 0.0108", got)
	}
	prev := m.PropellantMass(0)
	for tt := 0.0; tt <= m.BurnTime(); tt += 0.01 {
		got := m.PropellantMass(tt)
		if got > prev+1e-15 {
			t.Fatalf("PropellantMass(%v) = %v increased from %v", tt, got, prev)
		}
		prev = got
	}
	if got := m.PropellantMass(5); got != 0 {
		t.Fatalf("PropellantMass after burnout = %v, want terminal 0", got)
	}
}

func TestImpulseAndAverageThrust(t *testing.T) {
	m := estesC6(t)
	if imp := m.TotalImpulse(); math.Abs(imp-10.485) > 1e-9 {
		t.Fatalf("TotalImpulse() = %v, want 10.485 Ns", imp)
	}
	if avg := m.AverageThrust(); math.Abs(avg-m.TotalImpulse()/1.86) > 1e-12 {
		t.Fatalf("AverageThrust() = %v, want impulse/burn time", avg)
	}
}

func TestSingleSampleMotor(t *testing.T) {
	m, err := NewThrustCurve("impulse", 0.01, []Sample{{Time: 0, Thrust: 50, PropellantMass: 0}})
	if err != nil {
		t.Fatalf("NewThrustCurve single sample: %v", err)
	}
	if bt := m.BurnTime(); bt != 0 {
		t.Fatalf("BurnTime() = %v, want 0", bt)
	}
	if got := m.Thrust(0.001); got != 0 {
		t.Fatalf("Thrust after instant burn = %v, want 0", got)
	}
	if got := m.AverageThrust(); got != 0 {
		t.Fatalf("AverageThrust() = %v, want 0", got)
	}
}

func TestInvalidMotorData(t *testing.T) {
	cases := map[string][]Sample{
		"empty":      nil,
		"negative":   {{Time: 0, Thrust: -1}},
		"nan":        {{Time: math.NaN(), Thrust: 1}},
		"backwards":  {{Time: 1, Thrust: 1}, {Time: 0.5, Thrust: 1}},
		"before0":    {{Time: -0.1, Thrust: 1}},
		"infinitely": {{Time: 0, Thrust: math.Inf(1)}},
	}
	for name, samples := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewThrustCurve(name, 0, samples); !errors.Is(err, ErrInvalidMotorData) {
				t.Fatalf("NewThrustCurve error = %v, want ErrInvalidMotorData", err)
			}
		})
	}

	if _, err := NewThrustCurveFromThrust("mismatch", 0, 0.01, []float64{0, 1}, []float64{1}); !errors.Is(err, ErrInvalidMotorData) {
		t.Fatalf("mismatched table error = %v, want ErrInvalidMotorData", err)
	}
}
