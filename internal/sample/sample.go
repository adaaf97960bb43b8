// Package sample provides built-in motors and rockets used by the CLI demo
// mode and by tests across packages.
package sample

import (
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

// C6 returns a thrust curve shaped like a common 18 mm C-class motor.
func C6() *motor.ThrustCurve {
	return buildMotor("C6", 0.0133, 0.0108,
		[]float64{0, 0.031, 0.092, 0.139, 0.192, 0.209, 0.231, 0.248, 0.292, 0.370, 0.475, 0.671, 0.702, 1.208, 1.630, 1.800, 1.850, 1.860},
		[]float64{0, 0.946, 4.826, 9.936, 14.090, 11.446, 7.381, 6.151, 5.489, 4.921, 4.448, 4.258, 4.542, 4.164, 4.448, 4.353, 1.420, 0},
		0.018, 0.070)
}

// B6 returns a B-class motor, used as a sustainer.
func B6() *motor.ThrustCurve {
	return buildMotor("B6", 0.0124, 0.0056,
		[]float64{0, 0.023, 0.057, 0.089, 0.116, 0.148, 0.171, 0.191, 0.200, 0.230, 0.312, 0.521, 0.800, 0.830, 0.860},
		[]float64{0, 0.688, 2.457, 4.816, 7.274, 9.929, 12.140, 11.695, 10.719, 7.667, 5.700, 4.966, 4.818, 1.200, 0},
		0.018, 0.070)
}

func buildMotor(designation string, casing, propellant float64, times, thrusts []float64, diameter, length float64) *motor.ThrustCurve {
	m, err := motor.NewThrustCurveFromThrust(designation, casing, propellant, times, thrusts)
	if err != nil {
		panic(err)
	}
	m.Diameter = diameter
	m.Length = length
	return m
}

// SingleStage returns a small single-stage rocket with a parachute deployed
// by the motor ejection charge.
func SingleStage() *model.Rocket {
	return &model.Rocket{
		Name: "Alpha",
		Stages: []model.Stage{{
			Name: "Sustainer",
			Components: []model.BodyComponent{
				{Kind: model.KindNoseCone, Name: "Nose cone", Length: 0.07, AftRadius: 0.0124, Shape: model.ShapeOgive, Mass: 0.005},
				{
					Kind: model.KindBodyTube, Name: "Body tube", Length: 0.24, ForeRadius: 0.0124, AftRadius: 0.0124, Mass: 0.015,
					FinSets: []model.FinSet{{
						Name: "Fins", Count: 3, RootChord: 0.06, TipChord: 0.03, Span: 0.05, Sweep: 0.03,
						Thickness: 0.002, Position: 0.18, Mass: 0.006,
					}},
				},
			},
			Masses: []model.MassComponent{{Name: "Shock cord", Mass: 0.002, Position: 0.10}},
			Motor:  &model.MotorMount{Motor: C6(), Position: 0.24, EjectionDelay: 5},
			Recovery: []model.RecoveryDevice{{
				Name: "Parachute", Kind: model.RecoveryParachute, Diameter: 0.3, CD: 0.8,
				Trigger: model.DeployAtEjection, Mass: 0.004, Position: 0.12,
			}},
		}},
	}
}

// TwoStage returns a booster + sustainer stack. The booster separates at its
// burnout and the sustainer motor lights on separation.
func TwoStage() *model.Rocket {
	r := SingleStage()
	r.Name = "Alpha two-stage"
	r.Stages[0].Motor = &model.MotorMount{Motor: B6(), Position: 0.24, EjectionDelay: 4}
	r.Stages = append(r.Stages, model.Stage{
		Name: "Booster",
		Components: []model.BodyComponent{{
			Kind: model.KindBodyTube, Name: "Booster tube", Length: 0.09, ForeRadius: 0.0124, AftRadius: 0.0124, Mass: 0.006,
			FinSets: []model.FinSet{{
				Name: "Booster fins", Count: 3, RootChord: 0.06, TipChord: 0.03, Span: 0.055, Sweep: 0.03,
				Thickness: 0.002, Position: 0.03, Mass: 0.006,
			}},
		}},
		Motor:      &model.MotorMount{Motor: C6(), Position: 0.02, Plugged: true},
		Separation: model.Separation{Trigger: model.SeparateAtBurnout},
	})
	return r
}
