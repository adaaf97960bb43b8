package rpc

import (
	"math"
	"strconv"
	"time"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/config"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// SimulateRequest asks for one flight. Either Rocket or Sample must be set;
// Sample names a built-in rocket ("single" or "two-stage").
type SimulateRequest struct {
	Rocket      *config.RocketDocument  `json:"rocket,omitempty"`
	Sample      string                  `json:"sample,omitempty"`
	Options     *config.OptionsDocument `json:"options,omitempty"`
	IncludeData bool                    `json:"include_data,omitempty"`
}

type GetRunRequest struct {
	ID          string `json:"id"`
	IncludeData bool   `json:"include_data,omitempty"`
}

type ListRunsRequest struct{}

// Run describes one simulated flight. Error is set when the run failed or
// stopped early; partial data is still available.
type Run struct {
	ID              string       `json:"id"`
	Rocket          string       `json:"rocket"`
	Outcome         string       `json:"outcome"`
	Error           string       `json:"error,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
	Summary         core.Summary `json:"summary"`
	Steps           int          `json:"steps"`
	DurationSeconds float64      `json:"duration_seconds"`
	BranchNames     []string     `json:"branch_names"`
	Branches        []Branch     `json:"branches,omitempty"`
}

// Branch is a recorded trajectory with one column per quantity, keyed by
// quantity name.
type Branch struct {
	Name    string             `json:"name"`
	Columns map[string][]Float `json:"columns"`
	Events  []Event            `json:"events"`
}

// Float is a sample value; non-finite values travel as JSON null and come
// back as NaN.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

type Event struct {
	Time   float64 `json:"time"`
	Type   string  `json:"type"`
	Source string  `json:"source,omitempty"`
}

type RunRecord struct {
	ID       string       `json:"id"`
	Rocket   string       `json:"rocket"`
	Outcome  string       `json:"outcome"`
	StoredAt time.Time    `json:"stored_at"`
	Summary  core.Summary `json:"summary"`
}

type ListRunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

// RunFromResult converts an engine result; flight data is included on
// request.
func RunFromResult(res *core.Result, includeData bool) *Run {
	run := &Run{
		ID:              res.RunID,
		Rocket:          res.Rocket,
		Outcome:         string(res.Outcome),
		Warnings:        res.Warnings.Messages(),
		Summary:         finiteSummary(res.Summary()),
		Steps:           res.Steps,
		DurationSeconds: res.Duration.Seconds(),
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	for _, b := range res.Branches {
		run.BranchNames = append(run.BranchNames, b.Name())
		if includeData {
			run.Branches = append(run.Branches, branchFromModel(b))
		}
	}
	return run
}

func branchFromModel(b *model.FlightDataBranch) Branch {
	out := Branch{Name: b.Name(), Columns: make(map[string][]Float, model.NumDataTypes)}
	for d := model.DataType(0); d < model.NumDataTypes; d++ {
		col := b.Get(d)
		vals := make([]Float, len(col))
		for i, v := range col {
			vals[i] = Float(v)
		}
		out.Columns[d.String()] = vals
	}
	for _, e := range b.Events() {
		out.Events = append(out.Events, Event{Time: e.Time, Type: e.Type.String(), Source: e.Source})
	}
	return out
}

func recordFromStore(r kb.Record) RunRecord {
	return RunRecord{
		ID:       r.ID,
		Rocket:   r.Rocket,
		Outcome:  string(r.Outcome),
		StoredAt: r.StoredAt,
		Summary:  finiteSummary(r.Summary),
	}
}

// finiteSummary zeroes non-finite figures left by a diverged run.
func finiteSummary(s core.Summary) core.Summary {
	for _, v := range []*float64{
		&s.MaxAltitude, &s.ApogeeTime, &s.MaxVelocity, &s.MaxAcceleration,
		&s.MaxMach, &s.FlightTime, &s.GroundHitSpeed, &s.LandingDistance,
	} {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	return s
}
