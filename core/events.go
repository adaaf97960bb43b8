package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// timedEvent is an event whose time is known in advance.
type timedEvent struct {
	at     float64
	typ    model.EventType
	stage  int
	device int
}

// timedEvents lists the pending timed events of s in time order.
func (r *run) timedEvents(s Status) []timedEvent {
	var out []timedEvent
	for st := s.FirstStage; st <= s.LastStage; st++ {
		mount := r.rocket.Stages[st].Motor
		if mount == nil {
			continue
		}
		ms := s.motors[st]
		switch {
		case ms.Scheduled && !ms.Ignited:
			out = append(out, timedEvent{at: ms.ScheduledAt, typ: model.EventIgnition, stage: st})
		case ms.Ignited && !ms.BurntOut:
			out = append(out, timedEvent{at: ms.IgnitionAt + mount.Motor.BurnTime(), typ: model.EventBurnout, stage: st})
		case ms.BurntOut && !ms.Ejected && !mount.Plugged:
			out = append(out, timedEvent{at: ms.BurnoutAt + mount.EjectionDelay, typ: model.EventEjectionCharge, stage: st})
		}
	}

	if last := s.LastStage; last > s.FirstStage {
		sep := r.rocket.Stages[last].Separation
		switch sep.Trigger {
		case model.SeparateAtBurnout:
			if ms := s.motors[last]; ms.BurntOut {
				out = append(out, timedEvent{at: ms.BurnoutAt + sep.Delay, typ: model.EventStageSeparation, stage: last})
			}
		case model.SeparateAtTime:
			out = append(out, timedEvent{at: sep.Time, typ: model.EventStageSeparation, stage: last})
		}
	}

	for st := s.FirstStage; st <= s.LastStage; st++ {
		for i := range r.rocket.Stages[st].Recovery {
			idx := deviceIndex(st, i)
			if s.deployPending&(1<<idx) != 0 {
				out = append(out, timedEvent{at: s.deployAt[idx], typ: model.EventRecoveryDeviceDeployment, stage: st, device: i})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].at != out[j].at {
			return out[i].at < out[j].at
		}
		return out[i].typ < out[j].typ
	})
	return out
}

// predicate is a trigger condition that fires when value crosses from <= 0
// to > 0.
type predicate struct {
	typ    model.EventType
	stage  int
	device int
	value  func(s Status) float64
}

// predicates returns the armed trigger conditions of s.
func (r *run) predicates(s Status) []predicate {
	var out []predicate
	if s.Landed {
		return nil
	}
	if !s.Liftoff {
		out = append(out, predicate{typ: model.EventLiftoff, value: r.liftoffMargin})
		return out
	}
	if !s.RodCleared {
		out = append(out, predicate{typ: model.EventLaunchRodClearance, value: func(s Status) float64 {
			return s.Position.Norm() - r.opts.LaunchRodLength
		}})
	}
	if !s.Apogee {
		out = append(out, predicate{typ: model.EventApogee, value: func(s Status) float64 {
			return -s.Velocity.Z
		}})
	}
	if last := s.LastStage; last > s.FirstStage {
		if sep := r.rocket.Stages[last].Separation; sep.Trigger == model.SeparateAtAltitude {
			alt := sep.Altitude
			out = append(out, predicate{typ: model.EventStageSeparation, stage: last, value: func(s Status) float64 {
				return s.Position.Z - alt
			}})
		}
	}
	if s.Apogee {
		for st := s.FirstStage; st <= s.LastStage; st++ {
			for i, d := range r.rocket.Stages[st].Recovery {
				if d.Trigger != model.DeployAtAltitude || s.triggered&(1<<deviceIndex(st, i)) != 0 {
					continue
				}
				alt := d.DeployAltitude
				out = append(out, predicate{typ: model.EventAltitude, stage: st, device: i, value: func(s Status) float64 {
					return alt - s.Position.Z
				}})
			}
		}
	}
	out = append(out, predicate{typ: model.EventGroundHit, value: func(s Status) float64 {
		return -s.Position.Z
	}})
	return out
}

// liftoffMargin is the thrust along the rod minus the weight component along
// it and the rod's static friction.
func (r *run) liftoffMargin(s Status) float64 {
	mp := r.massAt(s, s.Time)
	weight := mp.Mass * r.gravity(r.opts.LaunchAltitude) * r.rodAxis.Z
	return r.thrust(s, s.Time) - weight - r.opts.LaunchRodFriction
}

// locate finds, by bisection, the earliest time within (0, h] after prev at
// which p fires. The returned offset always lies on the fired side.
func (r *run) locate(prev Status, h float64, p predicate) (float64, int, error) {
	lo, hi := 0.0, h
	for i := 0; ; i++ {
		if hi-lo <= r.opts.EventTimeTolerance {
			return hi, i, nil
		}
		if i >= r.opts.MaxBisectionIterations {
			return hi, i, ErrBisectionDiverged
		}
		mid := (lo + hi) / 2
		v := p.value(r.integrate(prev, mid))
		if !numeric.IsFinite(v) {
			return mid, i, ErrNonFinite
		}
		if v > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
}

// fired reports whether p fires between prev and next.
func fired(p predicate, prev, next Status) bool {
	return p.value(prev) <= 0 && p.value(next) > 0
}

// before reports whether a is due no later than b, within a rounding slack.
func before(a, b float64) bool {
	return a <= b+1e-9*math.Max(1, math.Abs(b))
}
