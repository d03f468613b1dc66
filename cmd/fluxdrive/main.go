package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fluxdrive/internal/analysis"
	"github.com/san-kum/fluxdrive/internal/canbus"
	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/experiment"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/logging"
	"github.com/san-kum/fluxdrive/internal/sim"
	"github.com/san-kum/fluxdrive/internal/storage"
	"github.com/san-kum/fluxdrive/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logFile  string
	logger   *log.Logger
	closeLog io.Closer
	// Run configuration
	configFile string
	preset     string
	duration   float64
	ts         float64
	integrator string
	substeps   int
	noSave     bool
	// Plot and analysis
	channels  []string
	width     int
	height    int
	outDir    string
	format    string
	channel   string
	from      float64
	withLocus bool
	// Live view
	ticksPerFrame int
	// CAN frames
	frameEvery int
	iface      string
	send       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fluxdrive",
		Short: "flux-vector control of synchronous motor drives",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeLog != nil {
				closeLog.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fluxdrive", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to a rotating file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a drive and save the run",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot telemetry of a run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&channels, "channels", nil, "channels on one chart (default: reference/actual pairs)")
	plotCmd.Flags().IntVar(&width, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 10, "chart height")

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "write telemetry charts as image files",
		Args:  cobra.ExactArgs(1),
		RunE:  imageRun,
	}
	pngCmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	pngCmd.Flags().StringVar(&format, "format", "png", "image format (png, svg, pdf)")
	pngCmd.Flags().BoolVar(&withLocus, "locus", true, "also draw the dq current locus")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run telemetry to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "power spectrum of a telemetry channel",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&channel, "channel", fluxvec.ChanTorque, "telemetry channel")
	analyzeCmd.Flags().Float64Var(&from, "from", 0, "ignore samples before this time (s)")
	analyzeCmd.Flags().BoolVar(&withLocus, "locus", false, "also draw the dq current locus")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available drive presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "validate a configuration and print the derived gains",
		Args:  cobra.NoArgs,
		RunE:  checkConfig,
	}
	addConfigFlags(checkCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a drive interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&ticksPerFrame, "ticks", 40, "sampling periods simulated per frame")

	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "simulate and emit duty command and status CAN frames",
		Args:  cobra.NoArgs,
		RunE:  emitFrames,
	}
	addConfigFlags(framesCmd)
	framesCmd.Flags().IntVar(&frameEvery, "every", 4, "emit frames every n ticks")
	framesCmd.Flags().StringVar(&iface, "iface", "vcan0", "CAN interface name")
	framesCmd.Flags().BoolVar(&send, "send", false, "transmit on the SocketCAN interface instead of printing")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, pngCmd, exportCSVCmd, exportJSONCmd, analyzeCmd, presetsCmd, checkCmd, liveCmd, framesCmd)
	rootCmd.AddCommand(studyCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	var err error
	if logFile != "" {
		logger, closeLog, err = logging.NewFile(logFile, logLevel)
		return err
	}
	logger, err = logging.New(os.Stderr, logLevel)
	return err
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "pmsm_2kw", "use preset configuration")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration (s)")
	cmd.Flags().Float64Var(&ts, "ts", 0, "sampling period override (s)")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "plant integrator")
	cmd.Flags().IntVar(&substeps, "substeps", config.DefaultSubsteps, "integrator substeps per sampling period")
}

// loadConfig starts from the preset, or the config file when given, and
// applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		c, err := config.LookupPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	if cmd.Flags().Changed("time") {
		cfg.Sim.Duration = duration
	}
	if cmd.Flags().Changed("ts") {
		cfg.Control.Ts = ts
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if cmd.Flags().Changed("substeps") {
		cfg.Sim.Substeps = substeps
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s for %.3fs...\n", cfg.Preset, cfg.Sim.Duration)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	if !noSave {
		st := storage.New(dataDir)
		st.SetLogger(logger)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("completed in %v\n\n", elapsed)
	fmt.Println(viz.Summary(cfg.Preset, result.Metrics, result.StepsTaken, runErr))
	return runErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	st.SetLogger(logger)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tT_S\tINTEG\tSENSORLESS\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = run.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.6fs\t%s\t%t\t%s\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ts,
			run.Integrator,
			run.Sensorless,
			status,
		)
	}

	return w.Flush()
}

func loadRecords(runID string) (*storage.RunMetadata, []fluxvec.Record, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	tel, err := st.LoadTelemetry(runID)
	if err != nil {
		return nil, nil, err
	}
	records := tel.Records()
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no data to plot")
	}
	return meta, records, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRecords(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(records))

	groups := viz.ChannelGroups
	if len(channels) > 0 {
		groups = [][]string{channels}
	}
	for _, names := range groups {
		graph, err := viz.PlotChannels(records, names, width, height)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func imageRun(cmd *cobra.Command, args []string) error {
	_, records, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	paths, err := viz.SaveImages(outDir, format, records, viz.ChannelGroups)
	if err != nil {
		return err
	}
	if withLocus {
		path, err := viz.SaveLocus(outDir, format, analysis.NewLocus(records, fluxvec.ChanCurrentD, fluxvec.ChanCurrentQ))
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, records, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	return storage.WriteTelemetryCSV(os.Stdout, records)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	cfg, err := st.LoadConfig(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, cfg, result)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRecords(args[0])
	if err != nil {
		return err
	}

	data := analysis.Channel(records, channel, from)
	if len(data) < 4 {
		return fmt.Errorf("too few samples of %s after t = %.3fs", channel, from)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("channel: %s, samples: %d\n\n", channel, len(data))

	spec := analysis.PowerSpectrum(data, 1/meta.Ts)
	// the upper quarter of the band only holds switching-rate noise
	plotData := spec.Power[:len(spec.Power)/4]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s), 0..%.0f hz", channel, spec.Frequencies[len(plotData)-1])),
	)
	fmt.Println(graph)
	fmt.Println()

	freq, power := analysis.DominantFrequency(spec)
	fmt.Printf("dominant frequency: %.3f hz (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f ms\n", 1000/freq)
	}

	if withLocus {
		l := analysis.NewLocus(records, fluxvec.ChanCurrentD, fluxvec.ChanCurrentQ)
		fmt.Printf("\ncurrent locus (%s vs %s)\n", l.YName, l.XName)
		fmt.Println(l.ToASCII(60, 20))
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSENSORLESS\tR_S\tL_D\tL_Q\tPSI_F\tP\tU_DC")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		m := cfg.Motor
		fmt.Fprintf(w, "%s\t%t\t%g\t%g\t%g\t%g\t%d\t%g\n",
			name, cfg.Control.Sensorless, m.Rs, m.Ld, m.Lq, m.PsiF, m.PolePair, cfg.Plant.DCVoltage)
	}
	return w.Flush()
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := cfg.ControlParameters()
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	ctrl := exp.GetSimulator().Session().Controller()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "preset\t%s\n", cfg.Preset)
	fmt.Fprintf(w, "sensorless\t%t\n", p.Sensorless)
	fmt.Fprintf(w, "t_s\t%g s\n", p.Ts)
	fmt.Fprintf(w, "alpha_psi\t%g rad/s\n", p.AlphaPsi)
	fmt.Fprintf(w, "alpha_tau\t%g rad/s\n", p.AlphaTau)
	fmt.Fprintf(w, "alpha_s\t%g rad/s\n", p.AlphaS)
	fmt.Fprintf(w, "g\t%g rad/s\n", p.G)
	fmt.Fprintf(w, "psi_s_min\t%g Wb\n", p.PsiSMin)
	fmt.Fprintf(w, "k_tau\t%g\n", ctrl.TorqueGain())
	fmt.Fprintf(w, "ticks\t%d\n", exp.GetSimulator().Ticks(cfg.Sim.Duration))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println("\nconfiguration ok")
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the TUI owns the terminal
	exp, err := experiment.New(cfg, logging.Discard())
	if err != nil {
		return err
	}
	return viz.RunLive(exp, ticksPerFrame)
}

func emitFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	rec := canbus.NewRecorder(frameEvery)
	exp.GetSimulator().AddObserver(rec)

	ctx, cancel := signalContext()
	defer cancel()

	_, runErr := exp.Run(ctx)
	if runErr != nil && !sim.IsUnstable(runErr) {
		return runErr
	}

	var w canbus.Writer
	if send {
		sw, err := canbus.NewSocketCANWriter(ctx, iface)
		if err != nil {
			return err
		}
		w = sw
	} else {
		w = canbus.NewDumpWriter(os.Stdout, iface)
	}
	defer w.Close()

	if err := canbus.WriteAll(ctx, w, rec.Frames); err != nil {
		return err
	}
	logger.Info("frames written", "count", len(rec.Frames), "iface", iface, "send", send)
	if runErr != nil {
		return fmt.Errorf("frames cover the run up to divergence: %w", runErr)
	}
	return nil
}

// describeErr shortens run errors for tables.
func describeErr(err error) string {
	var se *dynamo.SimulationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return fmt.Sprintf("diverged at tick %d (t = %.4fs)", se.Tick, se.Time)
	default:
		return err.Error()
	}
}
