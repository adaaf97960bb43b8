package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// OptionsDocument is the top-level structure of an options file. Unset
// fields keep the model defaults.
type OptionsDocument struct {
	LaunchRod   LaunchRodDocument   `yaml:"launch_rod" json:"launch_rod"`
	Site        SiteDocument        `yaml:"site" json:"site"`
	Wind        WindDocument        `yaml:"wind" json:"wind"`
	Atmosphere  AtmosphereDocument  `yaml:"atmosphere" json:"atmosphere"`
	Integration IntegrationDocument `yaml:"integration" json:"integration"`
}

type LaunchRodDocument struct {
	Length       *float64 `yaml:"length,omitempty" json:"length,omitempty"`
	AngleDeg     *float64 `yaml:"angle_deg,omitempty" json:"angle_deg,omitempty"`
	DirectionDeg *float64 `yaml:"direction_deg,omitempty" json:"direction_deg,omitempty"`
	Friction     *float64 `yaml:"friction,omitempty" json:"friction,omitempty"`
}

type SiteDocument struct {
	Latitude  *float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Altitude  *float64 `yaml:"altitude,omitempty" json:"altitude,omitempty"`
}

type WindDocument struct {
	Speed        *float64 `yaml:"speed,omitempty" json:"speed,omitempty"`
	DirectionDeg *float64 `yaml:"direction_deg,omitempty" json:"direction_deg,omitempty"`
	Turbulence   *float64 `yaml:"turbulence,omitempty" json:"turbulence,omitempty"`
}

type AtmosphereDocument struct {
	Model       *string  `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Pressure    *float64 `yaml:"pressure,omitempty" json:"pressure,omitempty"`
}

type IntegrationDocument struct {
	TimeStep               *float64 `yaml:"time_step,omitempty" json:"time_step,omitempty"`
	MaxTimeStep            *float64 `yaml:"max_time_step,omitempty" json:"max_time_step,omitempty"`
	MaxAngleStepDeg        *float64 `yaml:"max_angle_step_deg,omitempty" json:"max_angle_step_deg,omitempty"`
	MaxTime                *float64 `yaml:"max_time,omitempty" json:"max_time,omitempty"`
	EventTolerance         *float64 `yaml:"event_tolerance,omitempty" json:"event_tolerance,omitempty"`
	MaxBisectionIterations *int     `yaml:"max_bisection_iterations,omitempty" json:"max_bisection_iterations,omitempty"`
}

// LoadOptions reads an options file and applies it over the defaults.
func LoadOptions(path string) (model.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Options{}, fmt.Errorf("read options config: %w", err)
	}
	return ParseOptions(data)
}

// ParseOptions applies a YAML options document over the defaults.
func ParseOptions(data []byte) (model.Options, error) {
	var doc OptionsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.Options{}, fmt.Errorf("parse options config: %w", err)
	}
	return doc.Options(), nil
}

// Options applies the document over model.DefaultOptions. Values are not
// range-checked here; the engine normalizes them and warns.
func (d OptionsDocument) Options() model.Options {
	o := model.DefaultOptions()
	set(&o.LaunchRodLength, d.LaunchRod.Length, 1)
	set(&o.LaunchRodAngle, d.LaunchRod.AngleDeg, math.Pi/180)
	set(&o.LaunchRodDirection, d.LaunchRod.DirectionDeg, math.Pi/180)
	set(&o.LaunchRodFriction, d.LaunchRod.Friction, 1)

	set(&o.LaunchLatitude, d.Site.Latitude, 1)
	set(&o.LaunchLongitude, d.Site.Longitude, 1)
	set(&o.LaunchAltitude, d.Site.Altitude, 1)

	set(&o.WindSpeed, d.Wind.Speed, 1)
	set(&o.WindDirection, d.Wind.DirectionDeg, math.Pi/180)
	set(&o.WindTurbulence, d.Wind.Turbulence, 1)

	if d.Atmosphere.Model != nil {
		o.Atmosphere = atmosphere.ParseKind(*d.Atmosphere.Model)
	}
	set(&o.LaunchTemperature, d.Atmosphere.Temperature, 1)
	set(&o.LaunchPressure, d.Atmosphere.Pressure, 1)

	set(&o.TimeStep, d.Integration.TimeStep, 1)
	set(&o.MaxTimeStep, d.Integration.MaxTimeStep, 1)
	set(&o.MaxAngleStep, d.Integration.MaxAngleStepDeg, math.Pi/180)
	set(&o.MaxSimulationTime, d.Integration.MaxTime, 1)
	set(&o.EventTimeTolerance, d.Integration.EventTolerance, 1)
	if d.Integration.MaxBisectionIterations != nil {
		o.MaxBisectionIterations = *d.Integration.MaxBisectionIterations
	}
	return o
}

// FromOptions converts options into a fully populated document.
func FromOptions(o model.Options) OptionsDocument {
	deg := func(rad float64) *float64 { v := rad * 180 / math.Pi; return &v }
	val := func(v float64) *float64 { return &v }
	kind := string(o.Atmosphere)
	iters := o.MaxBisectionIterations
	return OptionsDocument{
		LaunchRod: LaunchRodDocument{
			Length:       val(o.LaunchRodLength),
			AngleDeg:     deg(o.LaunchRodAngle),
			DirectionDeg: deg(o.LaunchRodDirection),
			Friction:     val(o.LaunchRodFriction),
		},
		Site: SiteDocument{
			Latitude:  val(o.LaunchLatitude),
			Longitude: val(o.LaunchLongitude),
			Altitude:  val(o.LaunchAltitude),
		},
		Wind: WindDocument{
			Speed:        val(o.WindSpeed),
			DirectionDeg: deg(o.WindDirection),
			Turbulence:   val(o.WindTurbulence),
		},
		Atmosphere: AtmosphereDocument{
			Model:       &kind,
			Temperature: val(o.LaunchTemperature),
			Pressure:    val(o.LaunchPressure),
		},
		Integration: IntegrationDocument{
			TimeStep:               val(o.TimeStep),
			MaxTimeStep:            val(o.MaxTimeStep),
			MaxAngleStepDeg:        deg(o.MaxAngleStep),
			MaxTime:                val(o.MaxSimulationTime),
			EventTolerance:         val(o.EventTimeTolerance),
			MaxBisectionIterations: &iters,
		},
	}
}

func set(dst *float64, v *float64, scale float64) {
	if v != nil {
		*dst = *v * scale
	}
}
