package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/config"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/export"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/timectrl"
)

// Config holds the command line of one invocation.
type Config struct {
	RocketPath  string
	Sample      string
	OptionsPath string
	WindSpeed   float64

	Batch   int
	Seed    int64
	Workers int

	CSVDir      string
	JSON        bool
	Replay      string
	ReplaySpeed float64
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.RocketPath, "rocket", "", "rocket YAML file; empty uses -sample")
	flag.StringVar(&cfg.Sample, "sample", "single", "built-in rocket: single or two-stage")
	flag.StringVar(&cfg.OptionsPath, "options", "", "simulation options YAML file")
	flag.Float64Var(&cfg.WindSpeed, "wind", -1, "override wind speed in m/s")
	flag.IntVar(&cfg.Batch, "batch", 0, "run N wind-perturbed Monte-Carlo variants")
	flag.Int64Var(&cfg.Seed, "seed", 1, "seed for -batch perturbations")
	flag.IntVar(&cfg.Workers, "workers", 4, "worker goroutines for -batch")
	flag.StringVar(&cfg.CSVDir, "csv", "", "directory to write one CSV per branch")
	flag.BoolVar(&cfg.JSON, "json", false, "print summaries as JSON")
	flag.StringVar(&cfg.Replay, "replay", "", "replay the main branch: realtime or accelerated")
	flag.Float64Var(&cfg.ReplaySpeed, "replay-speed", 1, "real-time replay speed factor")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error(ctx, "flightsim failed", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log logging.Logger, out io.Writer) error {
	rocket, err := loadRocket(cfg)
	if err != nil {
		return err
	}
	opts := model.DefaultOptions()
	if cfg.OptionsPath != "" {
		if opts, err = config.LoadOptions(cfg.OptionsPath); err != nil {
			return err
		}
	}
	if cfg.WindSpeed >= 0 {
		opts.WindSpeed = cfg.WindSpeed
	}

	engine := core.NewEngine(log)
	if cfg.Batch > 0 {
		return runBatch(ctx, cfg, engine, rocket, opts, out)
	}

	res, err := engine.Simulate(ctx, rocket, opts)
	if res == nil {
		return err
	}
	if err := printResult(out, res, cfg.JSON); err != nil {
		return err
	}
	if cfg.CSVDir != "" {
		if err := writeCSV(cfg.CSVDir, res); err != nil {
			return err
		}
	}
	if cfg.Replay != "" {
		if err := replay(ctx, cfg, res.Branches[0], out); err != nil {
			return err
		}
	}
	return err
}

func loadRocket(cfg Config) (*model.Rocket, error) {
	if cfg.RocketPath != "" {
		return config.LoadRocket(cfg.RocketPath)
	}
	switch strings.ToLower(cfg.Sample) {
	case "", "single":
		return sample.SingleStage(), nil
	case "two-stage":
		return sample.TwoStage(), nil
	default:
		return nil, fmt.Errorf("unknown sample rocket %q", cfg.Sample)
	}
}

func runBatch(ctx context.Context, cfg Config, engine *core.Engine, rocket *model.Rocket, opts model.Options, out io.Writer) error {
	variants := core.WindPerturbations(opts, cfg.Batch, cfg.Seed)
	results := core.NewBatch(engine, cfg.Workers).Run(ctx, rocket, variants)

	var failed int
	for _, r := range results {
		if r.Result == nil {
			failed++
			fmt.Fprintf(out, "#%d wind %.2f m/s: %v\n", r.Index, r.Options.WindSpeed, r.Err)
			continue
		}
		if r.Err != nil {
			failed++
		}
		s := r.Result.Summary()
		if cfg.JSON {
			if err := json.NewEncoder(out).Encode(struct {
				Index     int          `json:"index"`
				WindSpeed float64      `json:"wind_speed"`
				Outcome   core.Outcome `json:"outcome"`
				Summary   core.Summary `json:"summary"`
			}{r.Index, r.Options.WindSpeed, r.Result.Outcome, s}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "#%d wind %.2f m/s: %s apogee %.1f m landing %.1f m\n",
			r.Index, r.Options.WindSpeed, r.Result.Outcome, s.MaxAltitude, s.LandingDistance)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch runs failed", failed, len(results))
	}
	return nil
}

func printResult(out io.Writer, res *core.Result, asJSON bool) error {
	s := res.Summary()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			RunID    string       `json:"run_id"`
			Rocket   string       `json:"rocket"`
			Outcome  core.Outcome `json:"outcome"`
			Warnings []string     `json:"warnings,omitempty"`
			Summary  core.Summary `json:"summary"`
		}{res.RunID, res.Rocket, res.Outcome, res.Warnings.Messages(), s})
	}

	fmt.Fprintf(out, "%s: %s\n", res.Rocket, res.Outcome)
	fmt.Fprintf(out, "  apogee         %8.1f m at %.2f s\n", s.MaxAltitude, s.ApogeeTime)
	fmt.Fprintf(out, "  max velocity   %8.1f m/s (Mach %.2f)\n", s.MaxVelocity, s.MaxMach)
	fmt.Fprintf(out, "  max accel      %8.1f m/s2\n", s.MaxAcceleration)
	fmt.Fprintf(out, "  flight time    %8.1f s\n", s.FlightTime)
	fmt.Fprintf(out, "  ground hit     %8.1f m/s, %.1f m from the pad\n", s.GroundHitSpeed, s.LandingDistance)
	for _, w := range res.Warnings.Messages() {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, b := range res.Branches {
		fmt.Fprintf(out, "  branch %s:\n", b.Name())
		for _, group := range model.CoalesceEvents(b.Events(), 0.01) {
			names := make([]string, len(group))
			for i, e := range group {
				names[i] = e.Type.String()
			}
			fmt.Fprintf(out, "    %7.3f s %s\n", group[0].Time, strings.Join(names, ", "))
		}
	}
	return nil
}

func writeCSV(dir string, res *core.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	for i, b := range res.Branches {
		name := fmt.Sprintf("%02d-%s.csv", i, strings.ReplaceAll(strings.ToLower(b.Name()), " ", "_"))
		if err := export.WriteFile(filepath.Join(dir, name), b, export.Options{Events: true}); err != nil {
			return err
		}
	}
	return nil
}

func replay(ctx context.Context, cfg Config, b *model.FlightDataBranch, out io.Writer) error {
	mode := timectrl.Accelerated
	switch strings.ToLower(cfg.Replay) {
	case "realtime", "real-time":
		mode = timectrl.RealTime
	case "accelerated":
	default:
		return errors.New("-replay must be realtime or accelerated")
	}
	r := timectrl.NewReplayer(b, mode)
	r.Speed = cfg.ReplaySpeed
	r.AddListener(func(f timectrl.Frame) {
		for _, e := range f.Events {
			fmt.Fprintf(out, "[%7.3f] %s\n", e.Time, e.Type)
		}
		fmt.Fprintf(out, "t=%7.3f alt=%8.2f v=%7.2f\n", f.Time, f.Point[model.TypeAltitude], f.Point[model.TypeTotalVelocity])
	})
	<-r.Start(ctx)
	return ctx.Err()
}
