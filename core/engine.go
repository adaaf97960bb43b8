// Package core integrates rocket flights. An Engine advances a Status value
// through the flight state machine with a fourth-order Runge-Kutta
// integrator, detects discrete events by sign changes of trigger predicates,
// locates them by bisection, and records every stage into its own
// FlightDataBranch.
package core

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/rocket-flight-simulator/aero"
	"github.com/signalsfoundry/rocket-flight-simulator/atmosphere"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/numeric"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// Engine runs flight simulations. It keeps no per-run state, so one Engine
// may run many simulations concurrently.
type Engine struct {
	Logger  logging.Logger
	Metrics MetricsRecorder

	// Atmosphere, when set, replaces the model selected by the options and
	// is shared by every run.
	Atmosphere atmosphere.Model
	// Gravity returns the gravitational acceleration at an altitude above
	// sea level. Defaults to InverseSquareGravity.
	Gravity func(altitude float64) float64
	// Aerodynamics builds the calculator for stages flying together, top
	// first. Defaults to the Barrowman calculator.
	Aerodynamics func(stages []model.Stage) (aero.Calculator, error)
}

// NewEngine returns an Engine with the default physical models.
func NewEngine(log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{Logger: log}
}

// Result is the output of one run. Branch 0 is the top stage; later branches
// are separated stages in separation order.
type Result struct {
	RunID    string
	Rocket   string
	Outcome  Outcome
	Branches []*model.FlightDataBranch
	Warnings model.WarningSet
	Err      error
	Duration time.Duration
	Steps    int
}

// Summary condenses the main branch of a result.
type Summary struct {
	MaxAltitude     float64 `json:"max_altitude"`
	ApogeeTime      float64 `json:"apogee_time"`
	MaxVelocity     float64 `json:"max_velocity"`
	MaxAcceleration float64 `json:"max_acceleration"`
	MaxMach         float64 `json:"max_mach"`
	FlightTime      float64 `json:"flight_time"`
	GroundHitSpeed  float64 `json:"ground_hit_speed"`
	LandingDistance float64 `json:"landing_distance"`
}

// Summary returns the headline numbers of the main branch.
func (r *Result) Summary() Summary {
	if r == nil || len(r.Branches) == 0 || r.Branches[0].Len() == 0 {
		return Summary{}
	}
	b := r.Branches[0]
	var s Summary
	s.MaxAltitude, s.ApogeeTime = b.Max(model.TypeAltitude)
	if e, ok := b.FindEvent(model.EventApogee); ok {
		s.ApogeeTime = e.Time
	}
	s.MaxVelocity, _ = b.Max(model.TypeTotalVelocity)
	s.MaxAcceleration, _ = b.Max(model.TypeTotalAcceleration)
	s.MaxMach, _ = b.Max(model.TypeMach)
	s.FlightTime = b.Last(model.TypeTime)
	s.GroundHitSpeed = b.Last(model.TypeTotalVelocity)
	s.LandingDistance = b.Last(model.TypeLateralDistance)
	return s
}

var tracer = otel.Tracer("github.com/signalsfoundry/rocket-flight-simulator/core")

// Simulate runs one flight. Configuration errors return (nil, err) before
// anything is integrated. Numeric failures and cancellation return the
// partial result alongside the error; a flight that does not land within
// the maximum simulation time is a result with OutcomeDidNotLand and no
// error.
func (e *Engine) Simulate(ctx context.Context, rocket *model.Rocket, opts model.Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := rocket.Validate(); err != nil {
		return nil, err
	}
	if err := checkLimits(rocket); err != nil {
		return nil, err
	}

	ctx, log := logging.WithRunLogger(ctx, e.logger())
	runID := logging.RunIDFromContext(ctx)
	ctx, span := tracer.Start(ctx, "core.Simulate", trace.WithAttributes(
		attribute.String("rocket.name", rocket.Name),
		attribute.String("run.id", runID),
		attribute.Int("rocket.stages", len(rocket.Stages)),
	))
	defer span.End()

	r, err := e.newRun(rocket, opts, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	log.Info(ctx, "simulation started",
		logging.String("rocket", rocket.Name),
		logging.Int("stages", len(rocket.Stages)),
		logging.String("atmosphere", string(r.opts.Atmosphere)),
	)
	outcome, simErr := r.simulate(ctx)

	res := &Result{
		RunID:    runID,
		Rocket:   rocket.Name,
		Outcome:  outcome,
		Branches: r.branches,
		Warnings: r.warnings,
		Err:      simErr,
		Duration: time.Since(start),
		Steps:    r.steps,
	}
	for _, w := range r.warnings.Messages() {
		log.Warn(ctx, w)
	}
	e.metrics().ObserveRun(outcome, res.Duration, r.steps)

	sum := res.Summary()
	span.SetAttributes(
		attribute.String("run.outcome", string(outcome)),
		attribute.Int("run.steps", r.steps),
		attribute.Float64("flight.max_altitude", sum.MaxAltitude),
	)
	if simErr != nil {
		span.RecordError(simErr)
		span.SetStatus(codes.Error, simErr.Error())
		log.Error(ctx, "simulation failed", logging.String("outcome", string(outcome)), logging.Err(simErr))
		return res, simErr
	}
	log.Info(ctx, "simulation finished",
		logging.String("outcome", string(outcome)),
		logging.Int("steps", r.steps),
		logging.Int("branches", len(r.branches)),
		logging.Float64("max_altitude", sum.MaxAltitude),
		logging.Float64("flight_time", sum.FlightTime),
		logging.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (e *Engine) logger() logging.Logger {
	if e.Logger == nil {
		return logging.Noop()
	}
	return e.Logger
}

func (e *Engine) metrics() MetricsRecorder {
	if e.Metrics == nil {
		return noopMetrics{}
	}
	return e.Metrics
}

func checkLimits(rocket *model.Rocket) error {
	if len(rocket.Stages) > MaxStages {
		return fmt.Errorf("%w: %d stages exceed the limit of %d", model.ErrInvalidConfiguration, len(rocket.Stages), MaxStages)
	}
	for _, st := range rocket.Stages {
		if len(st.Recovery) > MaxRecoveryDevices {
			return fmt.Errorf("%w: stage %s has %d recovery devices, limit %d", model.ErrInvalidConfiguration, st.Name, len(st.Recovery), MaxRecoveryDevices)
		}
	}
	return nil
}

// run is the per-simulation working set. It is confined to one goroutine.
type run struct {
	rocket    *model.Rocket
	opts      model.Options
	atm       atmosphere.Model
	gravity   func(float64) float64
	calcs     map[[2]int]aero.Calculator
	stageMass []stageMass
	wind      numeric.Vec3
	rodAxis   numeric.Vec3
	geo       geodetic
	log       logging.Logger
	metrics   MetricsRecorder

	branches []*model.FlightDataBranch
	queue    []Status
	warnings model.WarningSet
	steps    int
	ctx      context.Context
}

func (e *Engine) newRun(rocket *model.Rocket, opts model.Options, log logging.Logger) (*run, error) {
	r := &run{
		rocket:  rocket,
		log:     log,
		metrics: e.metrics(),
		gravity: e.Gravity,
		calcs:   make(map[[2]int]aero.Calculator),
	}
	r.opts, r.warnings = opts.Normalize()
	if r.gravity == nil {
		r.gravity = InverseSquareGravity
	}

	r.atm = e.Atmosphere
	if r.atm == nil {
		atm, err := atmosphere.ForKind(r.opts.Atmosphere, atmosphere.LaunchSite{
			Altitude:    r.opts.LaunchAltitude,
			Temperature: r.opts.LaunchTemperature,
			Pressure:    r.opts.LaunchPressure,
		})
		if err != nil {
			r.warnings.Add("Unknown atmospheric model, using ISA.")
		}
		r.atm = atm
	}

	build := e.Aerodynamics
	if build == nil {
		build = func(stages []model.Stage) (aero.Calculator, error) { return aero.NewBarrowman(stages) }
	}
	n := len(rocket.Stages)
	for last := 0; last < n; last++ {
		c, err := build(rocket.Stages[:last+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfiguration, err)
		}
		r.calcs[[2]int{0, last}] = c
	}
	for st := 1; st < n; st++ {
		c, err := build(rocket.Stages[st : st+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfiguration, err)
		}
		r.calcs[[2]int{st, st}] = c
	}

	for _, st := range rocket.Stages {
		r.stageMass = append(r.stageMass, newStageMass(st))
	}

	// Tilt the vertical towards the rod direction.
	lean := numeric.Vec3{X: math.Sin(r.opts.LaunchRodDirection), Y: math.Cos(r.opts.LaunchRodDirection)}
	r.rodAxis = numeric.UnitZ.Rotate(numeric.UnitZ.Cross(lean), r.opts.LaunchRodAngle)
	r.wind = numeric.Vec3{
		X: -r.opts.WindSpeed * math.Sin(r.opts.WindDirection),
		Y: -r.opts.WindSpeed * math.Cos(r.opts.WindDirection),
	}
	r.geo = newGeodetic(r.opts.LaunchLatitude, r.opts.LaunchLongitude, r.opts.LaunchAltitude)
	return r, nil
}

func (r *run) calculator(s Status) aero.Calculator {
	return r.calcs[[2]int{s.FirstStage, s.LastStage}]
}

func (r *run) initialStatus() Status {
	bottom := len(r.rocket.Stages) - 1
	s := Status{FirstStage: 0, LastStage: bottom}
	s.Axis = r.rodAxis
	mount := r.rocket.Stages[bottom].Motor
	s.motors[bottom].Scheduled = true
	s.motors[bottom].ScheduledAt = mount.IgnitionDelay
	s.LastEvent = model.EventLaunch
	s.updateMode()
	return s
}

// simulate flies the main branch, then every separated stage in the order
// it separated.
func (r *run) simulate(ctx context.Context) (Outcome, error) {
	r.ctx = ctx
	r.branches = []*model.FlightDataBranch{model.NewFlightDataBranch(r.rocket.Stages[0].Name)}
	r.queue = []Status{r.initialStatus()}

	outcome := OutcomeLanded
	for len(r.queue) > 0 {
		s := r.queue[0]
		r.queue = r.queue[1:]
		o, err := r.fly(ctx, s)
		r.branches[s.Branch].Seal()
		if err != nil {
			for _, b := range r.branches {
				b.Seal()
			}
			return o, err
		}
		if o == OutcomeDidNotLand {
			outcome = o
		}
	}
	return outcome, nil
}

// fly integrates one status until its stack lands or the run ends.
func (r *run) fly(ctx context.Context, s Status) (Outcome, error) {
	b := r.branches[s.Branch]
	if s.Branch == 0 {
		r.event(b, &s, model.EventLaunch, r.rocket.Name)
	}
	if s.Tumbling {
		r.event(b, &s, model.EventTumble, r.rocket.Stages[s.FirstStage].Name)
	}
	s = r.fireTimed(b, s)
	r.record(b, s)

	for {
		if err := ctx.Err(); err != nil {
			r.event(b, &s, model.EventSimAbort, "canceled")
			return OutcomeIncomplete, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		if s.Landed {
			r.event(b, &s, model.EventSimulationEnd, "")
			return OutcomeLanded, nil
		}
		if !before(s.Time, r.opts.MaxSimulationTime-r.opts.EventTimeTolerance) {
			r.warn(b, &s, "Simulation reached the maximum simulation time before landing.")
			r.event(b, &s, model.EventSimulationEnd, "")
			return OutcomeDidNotLand, nil
		}
		if !s.Liftoff {
			if r.liftoffMargin(s) > 0 {
				r.event(b, &s, model.EventLiftoff, "")
				s.Liftoff = true
				s.updateMode()
			} else if r.exhausted(s) {
				r.warn(b, &s, "The rocket did not lift off.")
				r.event(b, &s, model.EventSimulationEnd, "")
				return OutcomeLanded, nil
			}
		}

		dt := math.Min(r.stepSize(s), r.opts.MaxSimulationTime-s.Time)
		if timed := r.timedEvents(s); len(timed) > 0 && timed[0].at-s.Time < dt {
			dt = math.Max(timed[0].at-s.Time, 0)
		}

		next := r.integrate(s, dt)
		r.steps++
		if q := next.nonFinite(); q != "" {
			return r.fail(b, next, q, ErrNonFinite)
		}

		preds := r.predicates(s)
		earliest := math.Inf(1)
		for _, p := range preds {
			if !fired(p, s, next) {
				continue
			}
			at, iters, err := r.locate(s, dt, p)
			r.metrics.ObserveBisection(iters)
			if err != nil {
				return r.fail(b, s, p.typ.String()+" time", err)
			}
			earliest = math.Min(earliest, at)
		}
		if !math.IsInf(earliest, 1) && earliest < dt {
			next = r.integrate(s, earliest)
			if q := next.nonFinite(); q != "" {
				return r.fail(b, next, q, ErrNonFinite)
			}
		}

		var crossed []predicate
		for _, p := range preds {
			if fired(p, s, next) {
				crossed = append(crossed, p)
			}
		}
		for _, p := range crossed {
			r.applyCrossing(b, &next, p)
		}

		s = r.fireTimed(b, next)
		s.updateMode()
		r.record(b, s)
	}
}

// exhausted reports whether no motor of the stack can still produce thrust.
func (r *run) exhausted(s Status) bool {
	for st := s.FirstStage; st <= s.LastStage; st++ {
		if r.rocket.Stages[st].Motor == nil {
			continue
		}
		if ms := s.motors[st]; !ms.BurntOut && (ms.Ignited || ms.Scheduled) {
			return false
		}
	}
	return true
}

// fireTimed applies every timed event due at s.Time.
func (r *run) fireTimed(b *model.FlightDataBranch, s Status) Status {
	for guard := 0; guard < 4*MaxStages*MaxRecoveryDevices; guard++ {
		timed := r.timedEvents(s)
		if len(timed) == 0 || !before(timed[0].at, s.Time) {
			break
		}
		r.applyTimed(b, &s, timed[0])
		s.updateMode()
	}
	return s
}

func (r *run) applyTimed(b *model.FlightDataBranch, s *Status, ev timedEvent) {
	stage := r.rocket.Stages[ev.stage]
	switch ev.typ {
	case model.EventIgnition:
		r.event(b, s, ev.typ, stage.Motor.Motor.Designation)
		s.motors[ev.stage].Ignited = true
		s.motors[ev.stage].IgnitionAt = s.Time
	case model.EventBurnout:
		r.event(b, s, ev.typ, stage.Motor.Motor.Designation)
		s.motors[ev.stage].BurntOut = true
		s.motors[ev.stage].BurnoutAt = s.Time
	case model.EventEjectionCharge:
		r.event(b, s, ev.typ, stage.Motor.Motor.Designation)
		s.motors[ev.stage].Ejected = true
		for st := s.FirstStage; st <= ev.stage; st++ {
			r.trigger(s, st, model.DeployAtEjection)
		}
	case model.EventStageSeparation:
		r.event(b, s, ev.typ, stage.Name)
		r.separate(b, s)
	case model.EventRecoveryDeviceDeployment:
		r.event(b, s, ev.typ, stage.Recovery[ev.device].Name)
		bit := uint64(1) << deviceIndex(ev.stage, ev.device)
		s.deployPending &^= bit
		s.deployed |= bit
		s.AngularVelocity = numeric.Zero
	}
}

func (r *run) applyCrossing(b *model.FlightDataBranch, s *Status, p predicate) {
	switch p.typ {
	case model.EventLiftoff:
		r.event(b, s, p.typ, "")
		s.Liftoff = true
	case model.EventLaunchRodClearance:
		r.event(b, s, p.typ, "")
		s.RodCleared = true
	case model.EventApogee:
		r.event(b, s, p.typ, "")
		s.Apogee = true
		for st := s.FirstStage; st <= s.LastStage; st++ {
			r.trigger(s, st, model.DeployAtApogee)
			r.deployBelow(b, s, st)
		}
	case model.EventAltitude:
		d := r.rocket.Stages[p.stage].Recovery[p.device]
		r.event(b, s, p.typ, d.Name)
		s.scheduleDeploy(p.stage, p.device, s.Time+d.DeployDelay)
	case model.EventStageSeparation:
		r.event(b, s, p.typ, r.rocket.Stages[p.stage].Name)
		r.separate(b, s)
	case model.EventGroundHit:
		r.event(b, s, p.typ, "")
		s.Landed = true
	}
	s.updateMode()
}

// trigger schedules the deployment of every device of stage st armed by
// the given trigger.
func (r *run) trigger(s *Status, st int, trig model.DeployTrigger) {
	for i, d := range r.rocket.Stages[st].Recovery {
		if d.Trigger == trig {
			s.scheduleDeploy(st, i, s.Time+d.DeployDelay)
		}
	}
}

// deployBelow arms the altitude-triggered devices of stage st whose deploy
// altitude the stack never rose above.
func (r *run) deployBelow(b *model.FlightDataBranch, s *Status, st int) {
	for i, d := range r.rocket.Stages[st].Recovery {
		if d.Trigger != model.DeployAtAltitude || s.Position.Z > d.DeployAltitude {
			continue
		}
		if s.triggered&(1<<deviceIndex(st, i)) != 0 {
			continue
		}
		r.event(b, s, model.EventAltitude, d.Name)
		s.scheduleDeploy(st, i, s.Time+d.DeployDelay)
	}
}

// separate detaches the bottom stage of s into its own status and branch,
// queued to fly after the current branch, and schedules the ignition of the
// stage above.
func (r *run) separate(b *model.FlightDataBranch, s *Status) {
	last := s.LastStage
	stage := r.rocket.Stages[last]

	booster := *s
	booster.FirstStage = last
	booster.Tumbling = !stage.HasNose()
	booster.Branch = len(r.branches)
	booster.updateMode()
	r.branches = append(r.branches, b.Fork(stage.Name))
	r.queue = append(r.queue, booster)

	s.LastStage = last - 1
	if mount := r.rocket.Stages[last-1].Motor; mount != nil && !s.motors[last-1].Scheduled {
		s.motors[last-1].Scheduled = true
		s.motors[last-1].ScheduledAt = s.Time + mount.IgnitionDelay
	}
}

func (r *run) event(b *model.FlightDataBranch, s *Status, typ model.EventType, source string) {
	ev := model.FlightEvent{Time: s.Time, Type: typ, Source: source}
	if err := b.AddEvent(ev); err != nil {
		r.log.Warn(r.ctx, "event dropped", logging.String("branch", b.Name()), logging.Err(err))
		return
	}
	s.LastEvent = typ
	r.metrics.ObserveEvent(typ)
	r.log.Debug(r.ctx, "flight event",
		logging.String("branch", b.Name()),
		logging.String("event", typ.String()),
		logging.String("source", source),
		logging.Float64("time", s.Time),
	)
}

// warn records a soft warning in the result and as a SIM_WARN event.
func (r *run) warn(b *model.FlightDataBranch, s *Status, msg string) {
	r.warnings.Add(msg)
	r.event(b, s, model.EventSimWarn, msg)
}

func (r *run) fail(b *model.FlightDataBranch, s Status, quantity string, err error) (Outcome, error) {
	event := s.LastEvent
	r.event(b, &s, model.EventSimAbort, quantity)
	return OutcomeFailed, &SimulationError{
		Time:     s.Time,
		Quantity: quantity,
		Event:    event,
		Branch:   b.Name(),
		Err:      err,
	}
}

// record appends the sample of s to b.
func (r *run) record(b *model.FlightDataBranch, s Status) {
	_, fd := r.evaluate(s, s.kinematics, s.Time, 0)

	forces := fd.forces
	var calc aero.Calculator
	if !s.dragOnly() {
		calc = r.calculator(s)
		if !s.Liftoff {
			forces = calc.Forces(aero.FlightConditions{Atmosphere: fd.conditions})
		}
	}

	var p model.Point
	p[model.TypeTime] = s.Time
	p[model.TypeAltitude] = s.Position.Z
	p[model.TypePositionEast] = s.Position.X
	p[model.TypePositionNorth] = s.Position.Y
	p[model.TypeLateralDistance] = math.Hypot(s.Position.X, s.Position.Y)
	p[model.TypeVerticalVelocity] = s.Velocity.Z
	p[model.TypeTotalVelocity] = s.Velocity.Norm()
	p[model.TypeVerticalAcceleration] = fd.accel.Z
	p[model.TypeTotalAcceleration] = fd.accel.Norm()
	p[model.TypeMass] = fd.mass.Mass
	p[model.TypePropellantMass] = fd.mass.Propellant
	p[model.TypeThrust] = fd.thrust
	p[model.TypeDragForce] = fd.drag
	p[model.TypeMach] = fd.mach
	p[model.TypeAngleOfAttack] = fd.aoa
	p[model.TypeDragCoefficient] = forces.CD
	p[model.TypeCPLocation] = forces.CP
	p[model.TypeCGLocation] = fd.mass.CG
	if calc != nil {
		p[model.TypeStability] = aero.Stability(calc, forces.CP, fd.mass.CG)
	}
	p[model.TypeAirTemperature] = fd.conditions.Temperature
	p[model.TypeAirPressure] = fd.conditions.Pressure
	p[model.TypeAirDensity] = fd.conditions.Density()
	p[model.TypeLatitude], p[model.TypeLongitude] = r.geo.latLon(s.Position)

	if err := b.AddPoint(p); err != nil {
		r.log.Warn(r.ctx, "sample dropped", logging.String("branch", b.Name()), logging.Err(err))
	}
}
