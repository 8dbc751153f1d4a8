package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/chaoskit/internal/analysis"
	"github.com/san-kum/chaoskit/internal/config"
	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/engine"
	"github.com/san-kum/chaoskit/internal/export"
	"github.com/san-kum/chaoskit/internal/integrators"
	"github.com/san-kum/chaoskit/internal/logging"
	"github.com/san-kum/chaoskit/internal/observability"
	"github.com/san-kum/chaoskit/internal/schema"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/validate"
	"github.com/san-kum/chaoskit/internal/vecmath"
	"github.com/san-kum/chaoskit/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dt            float64
	steps         int
	stepsPerFrame int
	integrator    string
	preset        string
	configFile    string
	paramFlags    []string
	outFile       string
	metricsAddr   string
	logLevel      string
	logFormat     string
	duration      float64
	perturbation  float64
	spectrum      bool
	svgFile       string
	xAxis         int
	yAxis         int
	rangeFlags    []string
	workers       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chaoskit",
		Short: "chaotic dynamics simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	runCmd := &cobra.Command{
		Use:   "run [system]",
		Short: "run a simulation headless",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addEngineFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 10000, "steps to run")
	runCmd.Flags().StringVar(&outFile, "out", "", "write final state as JSON to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	liveCmd := &cobra.Command{
		Use:   "live [system]",
		Short: "run a simulation with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addEngineFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [system]",
		Short: "run a simulation and export it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSimulation,
	}
	addEngineFlags(exportCmd)
	exportCmd.Flags().IntVar(&steps, "steps", 10000, "steps to run before exporting")
	exportCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "resume a simulation from an exported JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  importSimulation,
	}
	importCmd.Flags().IntVar(&steps, "steps", 0, "additional steps to run after import")
	importCmd.Flags().StringVar(&outFile, "out", "", "re-export result to this file")

	plotCmd := &cobra.Command{
		Use:   "plot [file]",
		Short: "plot the recorded history of an exported document",
		Args:  cobra.ExactArgs(1),
		RunE:  plotDocument,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "write a phase-plane SVG instead of terminal output")
	plotCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for the SVG x-axis")
	plotCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for the SVG y-axis")

	sweepCmd := &cobra.Command{
		Use:   "sweep [system]",
		Short: "map Lyapunov exponents over a parameter grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addEngineFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&rangeFlags, "range", nil, "parameter range, name=min:max:count (repeatable)")
	sweepCmd.Flags().Float64Var(&duration, "time", 30.0, "trajectory duration per cell")
	sweepCmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial separation")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent cells (0 = all cores)")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [system]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.ExactArgs(1),
		RunE:  runLyapunov,
	}
	addEngineFlags(lyapunovCmd)
	lyapunovCmd.Flags().Float64Var(&duration, "time", 50.0, "trajectory duration")
	lyapunovCmd.Flags().Float64Var(&perturbation, "perturbation", 1e-8, "initial separation")
	lyapunovCmd.Flags().BoolVar(&spectrum, "spectrum", false, "perturb every dimension independently")

	rootCmd.AddCommand(runCmd, liveCmd, presetsCmd, exportCmd, importCmd, plotCmd, sweepCmd, lyapunovCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", config.DefaultStepsPerFrame, "physics steps per frame")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4 or euler)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a named preset")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "parameter override, name=value (repeatable)")
}

// resolveConfig layers preset, config file and changed CLI flags for
// the named system, in increasing precedence.
func resolveConfig(cmd *cobra.Command, system string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.System = system

	if preset != "" {
		p := config.GetPreset(system, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", preset, config.ListPresets(system))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		loaded.System = system
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("steps-per-frame") {
		cfg.StepsPerFrame = stepsPerFrame
	}

	for _, pf := range paramFlags {
		name, raw, ok := strings.Cut(pf, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --param %q, want name=value", pf)
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed --param %q: %w", pf, err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[name] = val
	}

	return cfg, nil
}

func parseIntegrator(name string) (dynamo.Integrator, error) {
	switch name {
	case "rk4", "":
		return integrators.NewRK4(), nil
	case "euler":
		return integrators.NewEuler(), nil
	}
	return nil, fmt.Errorf("unknown integrator %q", name)
}

func buildSystem(cfg *config.Config, val *validate.Validator) (systems.System, error) {
	kind, err := systems.ParseKind(cfg.System)
	if err != nil {
		return nil, err
	}

	if kind == systems.KindNBody && len(cfg.Bodies) > 0 {
		bodies := make([]systems.Body, len(cfg.Bodies))
		for i, b := range cfg.Bodies {
			bodies[i] = systems.Body{
				Name:     b.Name,
				Color:    b.Color,
				Mass:     b.Mass,
				Position: vecmath.FromArray(b.Position),
				Velocity: vecmath.FromArray(b.Velocity),
			}
		}
		return systems.NewNBody(val, bodies), nil
	}
	return systems.New(kind)
}

func buildEngine(cfg *config.Config, opts engine.Options) (*engine.Engine, error) {
	if opts.Validator == nil {
		opts.Validator = validate.New(opts.Logger)
	}
	sys, err := buildSystem(cfg, opts.Validator)
	if err != nil {
		return nil, err
	}
	opts.Dt = cfg.Dt
	opts.Integrator, err = parseIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	eng := engine.New(sys, opts)

	for name, val := range cfg.Params {
		if name == "buckets" {
			continue
		}
		if err := eng.SetParam(name, val); err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
	}
	if len(cfg.InitState) > 0 {
		if len(cfg.InitState) != sys.StateDim() {
			return nil, fmt.Errorf("init state has %d components, %s wants %d",
				len(cfg.InitState), cfg.System, sys.StateDim())
		}
		eng.LoadInitial(dynamo.State(cfg.InitState))
	}
	return eng, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: logLevel, Format: logFormat})
	opts := engine.Options{Logger: log}

	if metricsAddr != "" {
		collector := observability.NewCollector(nil)
		opts.Collector = collector
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Error("metrics server failed", "err", err)
			}
		}()
		log.Info("serving metrics", "addr", metricsAddr)
	}

	eng, err := buildEngine(cfg, opts)
	if err != nil {
		return err
	}

	fmt.Printf("running %s for %d steps (dt=%g)...\n", cfg.System, steps, eng.Dt())
	start := time.Now()

	remaining := steps
	recoveries := 0
	for remaining > 0 {
		chunk := 1000
		if remaining < chunk {
			chunk = remaining
		}
		_, err := eng.Step(chunk)
		if err != nil {
			var simErr *dynamo.SimulationError
			if errors.As(err, &simErr) && errors.Is(err, dynamo.ErrInvalidState) {
				// the run is deterministic, so a rollback alone will
				// diverge again; give up after a few attempts
				recoveries++
				if recoveries > 3 {
					return fmt.Errorf("state keeps diverging at step %d: %w", simErr.Step, err)
				}
				log.Warn("recovered from invalid state", "step", simErr.Step)
				continue
			}
			return err
		}
		remaining -= chunk
	}
	elapsed := time.Since(start)

	snap := eng.Snapshot()
	fmt.Printf("completed in %v (%.0f steps/sec)\n\n", elapsed, float64(steps)/elapsed.Seconds())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "time\t%.4f\n", snap.Time)
	fmt.Fprintf(w, "steps\t%d\n", snap.Steps)
	fmt.Fprintf(w, "energy\t%.6f\n", snap.Energy)
	fmt.Fprintf(w, "drift\t%.4f%%\n", snap.DriftPct)
	if snap.Bodies > 0 {
		fmt.Fprintf(w, "bodies\t%d\n", snap.Bodies)
		fmt.Fprintf(w, "dispersion\t%.4f\n", snap.Dispersion)
	}
	if snap.Corrections > 0 {
		fmt.Fprintf(w, "corrections\t%d\n", snap.Corrections)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if outFile != "" {
		return writeExport(eng, outFile)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	// engine diagnostics would corrupt the TUI frame
	eng, err := buildEngine(cfg, engine.Options{Logger: logging.Discard()})
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(eng, cfg.StepsPerFrame))
	_, err = p.Run()
	return err
}

func exportSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg, engine.Options{Logger: logging.Discard()})
	if err != nil {
		return err
	}
	if _, err := eng.Step(steps); err != nil {
		return err
	}

	if outFile != "" {
		return writeExport(eng, outFile)
	}
	data, err := schema.ExportJSON(eng)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

func writeExport(eng *engine.Engine, path string) error {
	data, err := schema.ExportJSON(eng)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", path)
	return nil
}

func importSimulation(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: logLevel, Format: logFormat})
	eng, err := schema.Import(data, engine.Options{Logger: log})
	if err != nil {
		return err
	}

	snap := eng.Snapshot()
	fmt.Printf("imported %s at t=%.4f (%d steps)\n", snap.Kind, snap.Time, snap.Steps)

	if steps > 0 {
		if _, err := eng.Step(steps); err != nil {
			return err
		}
		snap = eng.Snapshot()
		fmt.Printf("resumed to t=%.4f, energy=%.6f, drift=%.4f%%\n",
			snap.Time, snap.Energy, snap.DriftPct)
	}

	if outFile != "" {
		return writeExport(eng, outFile)
	}
	return nil
}

func plotDocument(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	eng, err := schema.Import(data, engine.Options{Logger: logging.Discard()})
	if err != nil {
		return err
	}

	records := eng.History().Records()
	if len(records) == 0 {
		return fmt.Errorf("document has no recorded history")
	}

	if svgFile != "" {
		svg, err := export.TrajectorySVG(records, xAxis, yAxis, 800, 600, "")
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (x%d vs x%d, %d samples)\n", svgFile, xAxis, yAxis, len(records))
		return nil
	}

	fmt.Printf("system: %s\n", eng.System().Kind())
	fmt.Printf("samples: %d\n\n", len(records))

	energy := make([]float64, len(records))
	for i, r := range records {
		energy[i] = r.Energy
	}
	fmt.Println(asciigraph.Plot(energy,
		asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("energy")))
	fmt.Println()

	numVars := len(records[len(records)-1].State)
	if numVars > 6 {
		numVars = 6
	}
	for v := 0; v < numVars; v++ {
		series := make([]float64, 0, len(records))
		for _, r := range records {
			if v < len(r.State) {
				series = append(series, r.State[v])
			}
		}
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(8), asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs time", v))))
		fmt.Println()
	}
	return nil
}

// parseRange understands name=min:max:count grid specs.
func parseRange(spec string) (string, []float64, error) {
	name, raw, ok := strings.Cut(spec, "=")
	if !ok {
		return "", nil, fmt.Errorf("malformed --range %q, want name=min:max:count", spec)
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("malformed --range %q, want name=min:max:count", spec)
	}
	min, err1 := strconv.ParseFloat(parts[0], 64)
	max, err2 := strconv.ParseFloat(parts[1], 64)
	count, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || count < 1 {
		return "", nil, fmt.Errorf("malformed --range %q", spec)
	}

	values := make([]float64, count)
	if count == 1 {
		values[0] = min
		return name, values, nil
	}
	step := (max - min) / float64(count-1)
	for i := range values {
		values[i] = min + float64(i)*step
	}
	return name, values, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(rangeFlags) == 0 {
		return fmt.Errorf("at least one --range is required")
	}

	sweep := &analysis.Sweep{Workers: workers}
	for _, spec := range rangeFlags {
		name, values, err := parseRange(spec)
		if err != nil {
			return err
		}
		sweep.Names = append(sweep.Names, name)
		sweep.Values = append(sweep.Values, values)
	}

	build := func(params map[string]float64) (dynamo.System, dynamo.Integrator, dynamo.State, error) {
		sys, err := buildSystem(cfg, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		for name, v := range cfg.Params {
			if name == "buckets" {
				continue
			}
			if err := sys.SetParam(name, v); err != nil {
				return nil, nil, nil, err
			}
		}
		for name, v := range params {
			if err := sys.SetParam(name, v); err != nil {
				return nil, nil, nil, err
			}
		}
		integ, err := parseIntegrator(cfg.Integrator)
		if err != nil {
			return nil, nil, nil, err
		}
		x0 := sys.DefaultState()
		if len(cfg.InitState) > 0 {
			x0 = dynamo.State(cfg.InitState)
		}
		return sys, integ, x0, nil
	}

	cells := 1
	for _, v := range sweep.Values {
		cells *= len(v)
	}
	fmt.Printf("sweeping %s over %d cells (t=%g per cell)...\n\n", cfg.System, cells, duration)

	start := time.Now()
	points, err := sweep.Run(cmd.Context(), build, cfg.Dt, duration, perturbation)
	if err != nil {
		return err
	}

	best := analysis.MostChaotic(points)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := strings.Join(sweep.Names, "\t") + "\tlambda\t"
	fmt.Fprintln(w, header)
	for i, p := range points {
		for _, name := range sweep.Names {
			fmt.Fprintf(w, "%g\t", p.Params[name])
		}
		mark := ""
		if i == best {
			mark = "  <- most chaotic"
		}
		fmt.Fprintf(w, "%+.6f\t%s\n", p.Exponent, mark)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", time.Since(start))
	return nil
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	sys, err := buildSystem(cfg, nil)
	if err != nil {
		return err
	}
	for name, val := range cfg.Params {
		if name == "buckets" {
			continue
		}
		if err := sys.SetParam(name, val); err != nil {
			return fmt.Errorf("param %s: %w", name, err)
		}
	}

	integ, err := parseIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	x0 := sys.DefaultState()
	if len(cfg.InitState) > 0 {
		x0 = dynamo.State(cfg.InitState)
	}

	fmt.Printf("estimating Lyapunov exponent for %s (dt=%g, t=%g)...\n", cfg.System, cfg.Dt, duration)

	if spectrum {
		sp := analysis.LyapunovSpectrum(sys, integ, x0, cfg.Dt, duration, perturbation)
		for i, l := range sp {
			fmt.Printf("  lambda[%d] = %+.6f\n", i, l)
		}
		return nil
	}

	lambda := analysis.LyapunovExponent(sys, integ, x0, cfg.Dt, duration, perturbation)
	fmt.Printf("  lambda = %+.6f\n", lambda)
	if lambda > 0 {
		fmt.Println("  positive exponent: trajectories diverge exponentially (chaotic)")
	} else {
		fmt.Println("  non-positive exponent: trajectories do not diverge (regular)")
	}
	return nil
}
