package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

func TestSampleRocketsValidate(t *testing.T) {
	for _, r := range []*model.Rocket{sample.SingleStage(), sample.TwoStage()} {
		if err := r.Validate(); err != nil {
			t.Fatalf("Validate(%s) = %v, want nil", r.Name, err)
		}
	}
}

func TestValidateRejectsBadConfigurations(t *testing.T) {
	cases := map[string]func(r *model.Rocket){
		"no stages":        func(r *model.Rocket) { r.Stages = nil },
		"no nose":          func(r *model.Rocket) { r.Stages[0].Components = r.Stages[0].Components[1:] },
		"no motor":         func(r *model.Rocket) { r.Stages[0].Motor = nil },
		"zero length":      func(r *model.Rocket) { r.Stages[0].Components[1].Length = 0 },
		"negative mass":    func(r *model.Rocket) { r.Stages[0].Masses[0].Mass = -1 },
		"fin on nose":      func(r *model.Rocket) { r.Stages[0].Components[0].FinSets = r.Stages[0].Components[1].FinSets },
		"zero fins":        func(r *model.Rocket) { r.Stages[0].Components[1].FinSets[0].Count = 0 },
		"chute without cd": func(r *model.Rocket) { r.Stages[0].Recovery[0].CD = 0 },
		"tube taper":       func(r *model.Rocket) { r.Stages[0].Components[1].AftRadius = 0.02 },
		"infinite length":  func(r *model.Rocket) { r.Stages[0].Components[1].Length = math.Inf(1) },
		"sep at ground":    func(r *model.Rocket) { r.Stages[0].Separation = model.Separation{Trigger: model.SeparateAtAltitude} },
	}
	for name, mutate := range cases {
		r := sample.SingleStage()
		mutate(r)
		if err := r.Validate(); !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidConfiguration", name, err)
		}
	}
}

func TestValidateMissingMotorWrapsMotorError(t *testing.T) {
	r := sample.SingleStage()
	r.Stages[0].Motor = nil
	err := r.Validate()
	if !errors.Is(err, motor.ErrInvalidMotorData) {
		t.Fatalf("Validate() = %v, want wrapped ErrInvalidMotorData", err)
	}
}

func TestValidateBottomStageNeedsMotor(t *testing.T) {
	r := sample.TwoStage()
	r.Stages[1].Motor = nil
	if err := r.Validate(); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("Validate() = %v, want ErrInvalidConfiguration", err)
	}
}

func TestStageGeometry(t *testing.T) {
	st := sample.SingleStage().Stages[0]
	if got := st.Length(); math.Abs(got-0.31) > 1e-12 {
		t.Fatalf("Length() = %v, want 0.31", got)
	}
	if got := st.MaxRadius(); got != 0.0124 {
		t.Fatalf("MaxRadius() = %v, want 0.0124", got)
	}
	if !st.HasNose() {
		t.Fatalf("HasNose() = false, want true")
	}
	if sample.TwoStage().Stages[1].HasNose() {
		t.Fatalf("booster HasNose() = true, want false")
	}
}

func TestRecoveryDragArea(t *testing.T) {
	chute := model.RecoveryDevice{Kind: model.RecoveryParachute, Diameter: 1, CD: 0.8}
	if got, want := chute.DragArea(), 0.8*math.Pi/4; math.Abs(got-want) > 1e-12 {
		t.Fatalf("parachute DragArea() = %v, want %v", got, want)
	}
	streamer := model.RecoveryDevice{Kind: model.RecoveryStreamer, Length: 1, Width: 0.05, CD: 0.5}
	if got := streamer.DragArea(); math.Abs(got-0.025) > 1e-12 {
		t.Fatalf("streamer DragArea() = %v, want 0.025", got)
	}
}

func TestNormalizeSubstitutesDefaults(t *testing.T) {
	o := model.DefaultOptions()
	o.LaunchTemperature = -5
	o.TimeStep = math.NaN()
	o.WindSpeed = -1
	o.MaxBisectionIterations = 0

	got, warnings := o.Normalize()
	def := model.DefaultOptions()
	if got.LaunchTemperature != def.LaunchTemperature || got.TimeStep != def.TimeStep || got.WindSpeed != 0 {
		t.Fatalf("Normalize() = %+v, want defaults substituted", got)
	}
	if got.MaxBisectionIterations != def.MaxBisectionIterations {
		t.Fatalf("MaxBisectionIterations = %d, want %d", got.MaxBisectionIterations, def.MaxBisectionIterations)
	}
	if warnings.Len() != 3 {
		t.Fatalf("warnings = %v, want 3", warnings.Messages())
	}
	found := false
	for _, m := range warnings.Messages() {
		if m == "Illegal base temperature specified, ignoring." {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v, want base temperature warning", warnings.Messages())
	}
}

func TestNormalizeKeepsValidOptions(t *testing.T) {
	o := model.DefaultOptions()
	o.WindSpeed = 4
	got, warnings := o.Normalize()
	if warnings.Len() != 0 {
		t.Fatalf("warnings = %v, want none", warnings.Messages())
	}
	if got != o {
		t.Fatalf("Normalize() changed valid options: %+v", got)
	}
}

func TestWarningSetDeduplicates(t *testing.T) {
	var w model.WarningSet
	w.Add("a")
	w.Add("b")
	w.Add("a")
	var other model.WarningSet
	other.Add("b")
	other.Add("c")
	w.Merge(other)
	if got := w.Messages(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Messages() = %v, want [a b c]", got)
	}
}

func TestCoalesceEvents(t *testing.T) {
	events := []model.FlightEvent{
		{Time: 1.860, Type: model.EventBurnout},
		{Time: 0, Type: model.EventLaunch},
		{Time: 0, Type: model.EventIgnition},
		{Time: 1.865, Type: model.EventStageSeparation},
		{Time: 1.862, Type: model.EventIgnition},
		{Time: 6.86, Type: model.EventEjectionCharge},
	}
	groups := model.CoalesceEvents(events, model.DefaultCoalesceEpsilon)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3: %v", len(groups), groups)
	}
	if len(groups[0]) != 2 || len(groups[1]) != 3 || len(groups[2]) != 1 {
		t.Fatalf("groups = %v, want sizes 2,3,1", groups)
	}
	if groups[1][0].Type != model.EventBurnout {
		t.Fatalf("groups[1][0] = %v, want BURNOUT", groups[1][0])
	}
}

func TestCoalesceRepeatedTypeStartsNewGroup(t *testing.T) {
	events := []model.FlightEvent{
		{Time: 1, Type: model.EventRecoveryDeviceDeployment, Source: "drogue"},
		{Time: 1.001, Type: model.EventRecoveryDeviceDeployment, Source: "main"},
	}
	if groups := model.CoalesceEvents(events, 0.01); len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if model.CoalesceEvents(nil, 0.01) != nil {
		t.Fatalf("CoalesceEvents(nil) != nil")
	}
}

func TestEventTypeString(t *testing.T) {
	if got := model.EventLaunchRodClearance.String(); got != "LAUNCHROD_CLEARANCE" {
		t.Fatalf("String() = %q", got)
	}
	if got := model.EventType(99).String(); got != "EventType(99)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestBranchColumnsStayAligned(t *testing.T) {
	b := model.NewFlightDataBranch("Sustainer")
	for i := 0; i < 5; i++ {
		var p model.Point
		p[model.TypeTime] = float64(i) * 0.1
		p[model.TypeAltitude] = float64(i * i)
		if err := b.AddPoint(p); err != nil {
			t.Fatalf("AddPoint: %v", err)
		}
	}
	for d := model.DataType(0); d < model.NumDataTypes; d++ {
		if n := len(b.Get(d)); n != b.Len() {
			t.Fatalf("len(%s) = %d, want %d", d, n, b.Len())
		}
	}
	if v, at := b.Max(model.TypeAltitude); v != 16 || math.Abs(at-0.4) > 1e-12 {
		t.Fatalf("Max(altitude) = %v at %v, want 16 at 0.4", v, at)
	}
	if got := b.Last(model.TypeTime); math.Abs(got-0.4) > 1e-12 {
		t.Fatalf("Last(time) = %v, want 0.4", got)
	}
}

func TestBranchForkAndSeal(t *testing.T) {
	b := model.NewFlightDataBranch("Sustainer")
	_ = b.AddPoint(model.Point{})
	_ = b.AddEvent(model.FlightEvent{Type: model.EventLaunch})

	f := b.Fork("Booster")
	if f.Name() != "Booster" || f.Len() != 1 || len(f.Events()) != 1 {
		t.Fatalf("Fork() = %s len %d events %d, want copy", f.Name(), f.Len(), len(f.Events()))
	}
	_ = f.AddPoint(model.Point{})
	if b.Len() != 1 {
		t.Fatalf("parent Len() = %d after child append, want 1", b.Len())
	}

	b.Seal()
	if err := b.AddPoint(model.Point{}); !errors.Is(err, model.ErrBranchSealed) {
		t.Fatalf("AddPoint on sealed = %v, want ErrBranchSealed", err)
	}
	if err := b.AddEvent(model.FlightEvent{}); !errors.Is(err, model.ErrBranchSealed) {
		t.Fatalf("AddEvent on sealed = %v, want ErrBranchSealed", err)
	}
	if _, ok := b.FindEvent(model.EventLaunch); !ok {
		t.Fatalf("FindEvent(LAUNCH) not found")
	}
}
