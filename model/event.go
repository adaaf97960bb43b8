package model

import (
	"fmt"
	"sort"
)

// EventType enumerates discrete flight events.
type EventType int

const (
	EventLaunch EventType = iota
	EventLiftoff
	EventLaunchRodClearance
	EventIgnition
	EventBurnout
	EventEjectionCharge
	EventStageSeparation
	EventApogee
	EventRecoveryDeviceDeployment
	EventGroundHit
	EventSimulationEnd
	EventAltitude
	EventTumble
	EventSimWarn
	EventSimAbort
)

var eventNames = map[EventType]string{
	EventLaunch:                   "LAUNCH",
	EventLiftoff:                  "LIFTOFF",
	EventLaunchRodClearance:       "LAUNCHROD_CLEARANCE",
	EventIgnition:                 "IGNITION",
	EventBurnout:                  "BURNOUT",
	EventEjectionCharge:           "EJECTION_CHARGE",
	EventStageSeparation:          "STAGE_SEPARATION",
	EventApogee:                   "APOGEE",
	EventRecoveryDeviceDeployment: "RECOVERY_DEVICE_DEPLOYMENT",
	EventGroundHit:                "GROUND_HIT",
	EventSimulationEnd:            "SIMULATION_END",
	EventAltitude:                 "ALTITUDE",
	EventTumble:                   "TUMBLE",
	EventSimWarn:                  "SIM_WARN",
	EventSimAbort:                 "SIM_ABORT",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// FlightEvent is an immutable, timestamped fact about a flight.
type FlightEvent struct {
	Time   float64   `json:"time"`
	Type   EventType `json:"type"`
	Source string    `json:"source,omitempty"`
}

func (e FlightEvent) String() string {
	if e.Source != "" {
		return fmt.Sprintf("%s@%.4f(%s)", e.Type, e.Time, e.Source)
	}
	return fmt.Sprintf("%s@%.4f", e.Type, e.Time)
}

// DefaultCoalesceEpsilon groups events for display.
const DefaultCoalesceEpsilon = 0.01

// CoalesceEvents groups events of different types whose times lie within eps
// of the first event of the group. A repeated type starts a new group. It is
// meant for display; simulation logic acts on every event individually.
func CoalesceEvents(events []FlightEvent, eps float64) [][]FlightEvent {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]FlightEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var groups [][]FlightEvent
	start := 0
	types := map[EventType]bool{sorted[0].Type: true}
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Time-sorted[start].Time > eps || types[sorted[i].Type] {
			groups = append(groups, sorted[start:i:i])
			start = i
			types = map[EventType]bool{}
		}
		if i < len(sorted) {
			types[sorted[i].Type] = true
		}
	}
	return groups
}
