package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fluxdrive/internal/automation"
	"github.com/san-kum/fluxdrive/internal/optim"
	"github.com/san-kum/fluxdrive/internal/storage"
)

var (
	// Sweep
	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepN     int
	workers    int
	// Tune
	tuneMetric   string
	alphaTauGrid []float64
	observerGrid []float64
	// Monte Carlo
	trials  int
	perturb float64
	seed    int64
)

func studyCommands() []*cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one configuration across values of a parameter",
		Long: "Runs the configuration once per parameter value, in parallel. Sweeping t_s\n" +
			"shows where the forward-Euler flux estimator stops converging.",
		Args: cobra.NoArgs,
		RunE: runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "t_s", "parameter to sweep (t_s, alpha_psi, alpha_tau, alpha_s, g, w_o, u_dc)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 125e-6, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1e-3, "last value")
	sweepCmd.Flags().IntVar(&sweepN, "n", 8, "number of values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = one per value)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search alpha_tau and g for the lowest metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "speed_rms", "metric to minimise")
	tuneCmd.Flags().Float64SliceVar(&alphaTauGrid, "alpha-tau", []float64{2 * math.Pi * 100, 2 * math.Pi * 200, 2 * math.Pi * 400}, "alpha_tau values (rad/s)")
	tuneCmd.Flags().Float64SliceVar(&observerGrid, "g", []float64{2 * math.Pi * 10, 2 * math.Pi * 15, 2 * math.Pi * 30}, "observer gain values (rad/s)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of drive runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run with perturbed motor parameter estimates",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 16, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.2, "relative estimate error bound")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 1, "random seed (0 = time based)")
	monteCarloCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = one per trial)")

	return []*cobra.Command{sweepCmd, tuneCmd, scenarioCmd, monteCarloCmd}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		Values:    automation.LinearValues(sweepFrom, sweepTo, sweepN),
		Workers:   workers,
	}
	logger.Info("sweep", "preset", cfg.Preset, "param", sweepParam, "points", len(sweep.Values))
	results, err := automation.RunSweep(ctx, sweep)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTICKS\tSTABLE\tSPEED_RMS\tTORQUE_RIPPLE\tFLUX_RMS\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%t\t%.4g\t%.4g\t%.4g\n",
			r.ParamValue,
			r.Steps,
			!r.Unstable,
			r.Metrics["speed_rms"],
			r.Metrics["torque_ripple"],
			r.Metrics["flux_rms"],
		)
	}
	return w.Flush()
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	gs := optim.NewGridSearch([]string{"alpha_tau", "g"}, [][]float64{alphaTauGrid, observerGrid})
	best, val, points, err := gs.Search(ctx, cfg, tuneMetric)
	if err != nil {
		return err
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Unstable != points[j].Unstable {
			return !points[i].Unstable
		}
		return points[i].Value < points[j].Value
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ALPHA_TAU\tG\t%s\n", tuneMetric)
	for _, tr := range points {
		v := fmt.Sprintf("%.5g", tr.Value)
		if tr.Unstable {
			v = "diverged"
		}
		fmt.Fprintf(w, "%.4g\t%.4g\t%s\n", tr.Params["alpha_tau"], tr.Params["g"], v)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: alpha_tau=%.4g g=%.4g %s=%.5g\n", best["alpha_tau"], best["g"], tuneMetric, val)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	st.SetLogger(logger)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(ctx, sc, st, logger)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPRESET\tRUN\tTICKS\tSTATUS")
	for i, r := range results {
		ticks, runID := 0, r.RunID
		if r.Result != nil {
			ticks = r.Result.StepsTaken
		}
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i+1, r.Preset, runID, ticks, describeErr(r.Err))
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
		Workers:      workers,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tR_S\tL_D\tL_Q\tPSI_F\tSTABLE\tSPEED_RMS")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%.3f\t%t\t%.4g\n",
			r.TrialID, r.Scale[0], r.Scale[1], r.Scale[2], r.Scale[3], r.Stable, r.SpeedRMS)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d, diverged: %d (estimate error within ±%.0f%%)\n", stable, unstable, 100*perturb)
	return nil
}
