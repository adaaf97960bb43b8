package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

func TestLoadSampleRocketFile(t *testing.T) {
	r, err := LoadRocket(filepath.Join("..", "..", "configs", "alpha.yaml"))
	if err != nil {
		t.Fatalf("LoadRocket: %v", err)
	}
	want := sample.SingleStage()
	if r.Name != want.Name || len(r.Stages) != 1 {
		t.Fatalf("rocket = %q with %d stages, want %q with 1", r.Name, len(r.Stages), want.Name)
	}
	st := r.Stages[0]
	if got := st.Length(); math.Abs(got-want.Stages[0].Length()) > 1e-12 {
		t.Fatalf("stage length = %v, want %v", got, want.Stages[0].Length())
	}
	if st.Components[1].ForeRadius != 0.0124 || st.Components[1].AftRadius != 0.0124 {
		t.Fatalf("body tube radius shorthand not applied: %+v", st.Components[1])
	}
	if st.Motor.Motor.Designation != "C6" || st.Motor.EjectionDelay != 5 {
		t.Fatalf("motor = %+v, want built-in C6 with 5 s delay", st.Motor)
	}
	if st.Recovery[0].Trigger != model.DeployAtEjection {
		t.Fatalf("recovery trigger = %q, want ejection", st.Recovery[0].Trigger)
	}
}

func TestLoadSampleOptionsFile(t *testing.T) {
	o, err := LoadOptions(filepath.Join("..", "..", "configs", "options.yaml"))
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if math.Abs(o.LaunchRodAngle-5*math.Pi/180) > 1e-12 {
		t.Fatalf("LaunchRodAngle = %v, want 5 degrees in radians", o.LaunchRodAngle)
	}
	if math.Abs(o.WindDirection-1.5*math.Pi) > 1e-12 || o.WindSpeed != 3 {
		t.Fatalf("wind = %v m/s from %v rad", o.WindSpeed, o.WindDirection)
	}
	if o.Atmosphere != atmosphere.KindISA {
		t.Fatalf("Atmosphere = %q, want isa", o.Atmosphere)
	}
	def := model.DefaultOptions()
	if o.EventTimeTolerance != def.EventTimeTolerance || o.MaxBisectionIterations != def.MaxBisectionIterations {
		t.Fatalf("unset fields did not keep defaults: %+v", o)
	}
}

func TestRocketDocumentRoundTrip(t *testing.T) {
	want := sample.TwoStage()
	got, err := FromRocket(want).Rocket()
	if err != nil {
		t.Fatalf("Rocket: %v", err)
	}
	if len(got.Stages) != 2 || got.Stages[1].Separation.Trigger != model.SeparateAtBurnout {
		t.Fatalf("stages = %+v", got.Stages)
	}
	for i := range want.Stages {
		wm, gm := want.Stages[i].Motor.Motor, got.Stages[i].Motor.Motor
		if gm.TotalImpulse() != wm.TotalImpulse() || gm.TotalMass() != wm.TotalMass() {
			t.Fatalf("stage %d motor impulse/mass = %v/%v, want %v/%v",
				i, gm.TotalImpulse(), gm.TotalMass(), wm.TotalImpulse(), wm.TotalMass())
		}
		if got.Stages[i].Motor.Plugged != want.Stages[i].Motor.Plugged {
			t.Fatalf("stage %d plugged = %v", i, got.Stages[i].Motor.Plugged)
		}
	}
}

func TestAltitudeSeparationRoundTrip(t *testing.T) {
	want := sample.TwoStage()
	want.Stages[1].Separation = model.Separation{Trigger: model.SeparateAtAltitude, Altitude: 30}
	got, err := FromRocket(want).Rocket()
	if err != nil {
		t.Fatalf("Rocket: %v", err)
	}
	if sep := got.Stages[1].Separation; sep != want.Stages[1].Separation {
		t.Fatalf("Separation = %+v, want %+v", sep, want.Stages[1].Separation)
	}
}

func TestOptionsDocumentRoundTrip(t *testing.T) {
	want := model.DefaultOptions()
	want.LaunchRodAngle = 0.1
	want.WindSpeed = 4
	got := FromOptions(want).Options()
	if math.Abs(got.LaunchRodAngle-want.LaunchRodAngle) > 1e-12 || got.WindSpeed != want.WindSpeed {
		t.Fatalf("Options() = %+v, want %+v", got, want)
	}
	if got.MaxBisectionIterations != want.MaxBisectionIterations || got.Atmosphere != want.Atmosphere {
		t.Fatalf("Options() = %+v, want %+v", got, want)
	}
}

func TestInlineThrustCurve(t *testing.T) {
	doc := []byte(`
name: Inline
stages:
  - name: Only
    components:
      - {type: nose, length: 0.1, radius: 0.02, shape: conical}
      - {type: body, length: 0.3, radius: 0.02}
    motor:
      designation: X1
      casing_mass: 0.02
      propellant_mass: 0.01
      position: 0.3
      curve:
        - {t: 0, thrust: 0}
        - {t: 0.5, thrust: 10}
        - {t: 1.0, thrust: 0}
`)
	r, err := ParseRocket(doc)
	if err != nil {
		t.Fatalf("ParseRocket: %v", err)
	}
	m := r.Stages[0].Motor.Motor
	if m.BurnTime() != 1 || m.TotalImpulse() != 5 {
		t.Fatalf("burn time/impulse = %v/%v, want 1/5", m.BurnTime(), m.TotalImpulse())
	}
	if m.InitialPropellantMass() != 0.01 || m.PropellantMass(1) != 0 {
		t.Fatalf("propellant = %v -> %v, want 0.01 -> 0", m.InitialPropellantMass(), m.PropellantMass(1))
	}
}

func TestParseRocketErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown component", "name: x\nstages:\n  - components:\n      - {type: wing, length: 1}\n", model.ErrInvalidConfiguration},
		{"unknown shape", "name: x\nstages:\n  - components:\n      - {type: nose, length: 1, radius: 0.1, shape: blob}\n", model.ErrInvalidConfiguration},
		{"unknown motor", "name: x\nstages:\n  - components:\n      - {type: nose, length: 1, radius: 0.1}\n    motor: {builtin: Z9}\n", motor.ErrInvalidMotorData},
		{"no motor", "name: x\nstages:\n  - components:\n      - {type: nose, length: 1, radius: 0.1}\n", model.ErrInvalidConfiguration},
		{"bad separation", "name: x\nstages:\n  - components:\n      - {type: nose, length: 1, radius: 0.1}\n    separation: {trigger: sideways}\n", model.ErrInvalidConfiguration},
		{"bad trigger", "name: x\nstages:\n  - components:\n      - {type: nose, length: 1, radius: 0.1}\n    recovery:\n      - {type: parachute, diameter: 0.3, cd: 0.8, deploy: soon}\n", model.ErrInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRocket([]byte(tt.doc)); !errors.Is(err, tt.want) {
				t.Fatalf("ParseRocket error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := ParseRocket([]byte("stages: [")); err == nil {
		t.Fatalf("expected YAML syntax error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadRocket(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadRocket error = %v, want os.ErrNotExist", err)
	}
}
