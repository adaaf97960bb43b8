package model

import (
	"errors"
	"fmt"
)

// ErrBranchSealed is returned when appending to a branch handed back to a
// caller.
var ErrBranchSealed = errors.New("flight data branch is sealed")

// DataType names one recorded quantity.
type DataType int

const (
	TypeTime DataType = iota
	TypeAltitude
	TypePositionEast
	TypePositionNorth
	TypeLateralDistance
	TypeVerticalVelocity
	TypeTotalVelocity
	TypeVerticalAcceleration
	TypeTotalAcceleration
	TypeMass
	TypePropellantMass
	TypeThrust
	TypeDragForce
	TypeMach
	TypeAngleOfAttack
	TypeDragCoefficient
	TypeCPLocation
	TypeCGLocation
	TypeStability
	TypeAirTemperature
	TypeAirPressure
	TypeAirDensity
	TypeLatitude
	TypeLongitude

	NumDataTypes
)

var dataTypeInfo = [NumDataTypes]struct {
	name, unit string
}{
	TypeTime:                 {"time", "s"},
	TypeAltitude:             {"altitude", "m"},
	TypePositionEast:         {"position_east", "m"},
	TypePositionNorth:        {"position_north", "m"},
	TypeLateralDistance:      {"lateral_distance", "m"},
	TypeVerticalVelocity:     {"vertical_velocity", "m/s"},
	TypeTotalVelocity:        {"total_velocity", "m/s"},
	TypeVerticalAcceleration: {"vertical_acceleration", "m/s2"},
	TypeTotalAcceleration:    {"total_acceleration", "m/s2"},
	TypeMass:                 {"mass", "kg"},
	TypePropellantMass:       {"propellant_mass", "kg"},
	TypeThrust:               {"thrust", "N"},
	TypeDragForce:            {"drag_force", "N"},
	TypeMach:                 {"mach", ""},
	TypeAngleOfAttack:        {"angle_of_attack", "rad"},
	TypeDragCoefficient:      {"drag_coefficient", ""},
	TypeCPLocation:           {"cp_location", "m"},
	TypeCGLocation:           {"cg_location", "m"},
	TypeStability:            {"stability", "cal"},
	TypeAirTemperature:       {"air_temperature", "K"},
	TypeAirPressure:          {"air_pressure", "Pa"},
	TypeAirDensity:           {"air_density", "kg/m3"},
	TypeLatitude:             {"latitude", "deg"},
	TypeLongitude:            {"longitude", "deg"},
}

func (d DataType) String() string {
	if d >= 0 && d < NumDataTypes {
		return dataTypeInfo[d].name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// Unit returns the SI unit of the quantity.
func (d DataType) Unit() string {
	if d >= 0 && d < NumDataTypes {
		return dataTypeInfo[d].unit
	}
	return ""
}

// Point is one sample of every recorded quantity.
type Point [NumDataTypes]float64

// FlightDataBranch is one stage's recorded trajectory and event log. Every
// quantity column has the same length; the time column is the shared axis.
type FlightDataBranch struct {
	name    string
	columns [NumDataTypes][]float64
	events  []FlightEvent
	sealed  bool
}

// NewFlightDataBranch creates an empty branch.
func NewFlightDataBranch(name string) *FlightDataBranch {
	return &FlightDataBranch{name: name}
}

// Fork returns an unsealed copy of b under a new name, used when a stage
// separates and inherits the flight history so far.
func (b *FlightDataBranch) Fork(name string) *FlightDataBranch {
	nb := &FlightDataBranch{name: name, events: append([]FlightEvent(nil), b.events...)}
	for i := range b.columns {
		nb.columns[i] = append([]float64(nil), b.columns[i]...)
	}
	return nb
}

// Name returns the branch name.
func (b *FlightDataBranch) Name() string { return b.name }

// Len returns the number of samples.
func (b *FlightDataBranch) Len() int { return len(b.columns[TypeTime]) }

// AddPoint appends one sample to every column.
func (b *FlightDataBranch) AddPoint(p Point) error {
	if b.sealed {
		return ErrBranchSealed
	}
	for i := range b.columns {
		b.columns[i] = append(b.columns[i], p[i])
	}
	return nil
}

// AddEvent appends an event to the log.
func (b *FlightDataBranch) AddEvent(e FlightEvent) error {
	if b.sealed {
		return ErrBranchSealed
	}
	b.events = append(b.events, e)
	return nil
}

// Seal makes the branch read-only.
func (b *FlightDataBranch) Seal() { b.sealed = true }

// Get returns a copy of one column.
func (b *FlightDataBranch) Get(d DataType) []float64 {
	if d < 0 || d >= NumDataTypes {
		return nil
	}
	return append([]float64(nil), b.columns[d]...)
}

// At returns sample i.
func (b *FlightDataBranch) At(i int) Point {
	var p Point
	for d := range b.columns {
		p[d] = b.columns[d][i]
	}
	return p
}

// Last returns the most recent value of a column, or zero for an empty branch.
func (b *FlightDataBranch) Last(d DataType) float64 {
	col := b.columns[d]
	if len(col) == 0 {
		return 0
	}
	return col[len(col)-1]
}

// Max returns the maximum recorded value of a column and the time it occurred.
func (b *FlightDataBranch) Max(d DataType) (value, time float64) {
	col := b.columns[d]
	for i, v := range col {
		if i == 0 || v > value {
			value, time = v, b.columns[TypeTime][i]
		}
	}
	return value, time
}

// Events returns a copy of the event log.
func (b *FlightDataBranch) Events() []FlightEvent {
	return append([]FlightEvent(nil), b.events...)
}

// FindEvent returns the first event of type t.
func (b *FlightDataBranch) FindEvent(t EventType) (FlightEvent, bool) {
	for _, e := range b.events {
		if e.Type == t {
			return e, true
		}
	}
	return FlightEvent{}, false
}
