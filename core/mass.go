package core

import (
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// stageMass is the static mass of one stage excluding its motor, with its
// first moment about the stage fore end.
type stageMass struct {
	mass   float64
	moment float64
	length float64
}

func newStageMass(st model.Stage) stageMass {
	var sm stageMass
	x := 0.0
	for _, c := range st.Components {
		center := x + c.Length/2
		if c.Kind == model.KindNoseCone {
			center = x + c.Length*2/3
		}
		sm.add(c.Mass, center)
		for _, f := range c.FinSets {
			sm.add(f.Mass, x+f.Position+f.RootChord/2)
		}
		x += c.Length
	}
	for _, m := range st.Masses {
		sm.add(m.Mass, m.Position)
	}
	for _, d := range st.Recovery {
		sm.add(d.Mass, d.Position)
	}
	sm.length = x
	return sm
}

func (sm *stageMass) add(mass, position float64) {
	sm.mass += mass
	sm.moment += mass * position
}

// massProperties is the mass state of a stack at one instant.
type massProperties struct {
	Mass       float64 // kg
	CG         float64 // m aft of the stack tip
	Propellant float64 // kg
	Length     float64 // m
	Inertia    float64 // kg·m², pitch, slender rod about the CG
}

// massAt sums the stages of the stack and their motors at time t.
func (r *run) massAt(s Status, t float64) massProperties {
	var mp massProperties
	moment := 0.0
	offset := 0.0
	for st := s.FirstStage; st <= s.LastStage; st++ {
		sm := r.stageMass[st]
		mp.Mass += sm.mass
		moment += sm.moment + sm.mass*offset

		if mount := r.rocket.Stages[st].Motor; mount != nil {
			m := mount.Motor
			prop := m.InitialPropellantMass()
			if ms := s.motors[st]; ms.Ignited {
				prop = m.PropellantMass(t - ms.IgnitionAt)
			}
			total := m.CasingMass + prop
			mp.Mass += total
			mp.Propellant += prop
			moment += total * (offset + mount.Position + m.Length/2)
		}
		offset += sm.length
	}
	mp.Length = offset
	if mp.Mass > 0 {
		mp.CG = moment / mp.Mass
	}
	mp.Inertia = mp.Mass * mp.Length * mp.Length / 12
	return mp
}
