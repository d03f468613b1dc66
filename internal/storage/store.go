package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/logging"
	"github.com/san-kum/fluxdrive/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	configFile    = "config.yaml"
	statesFile    = "states.csv"
	telemetryFile = "telemetry.csv"
)

// StateColumns name the plant state and duty columns of states.csv.
var StateColumns = []string{"psi_d", "psi_q", "w_M", "theta_M", "d_a", "d_b", "d_c"}

const stateDim = 4

type Store struct {
	baseDir string
	logger  *log.Logger
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, logger: logging.Discard()}
}

func (s *Store) SetLogger(l *log.Logger) { s.logger = l }

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Sensorless bool               `json:"sensorless"`
	Ts         float64            `json:"t_s"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Substeps   int                `json:"substeps"`
	Steps      int                `json:"steps"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes a run directory holding the metadata, the config used, the
// plant states and the controller telemetry. runErr is recorded when the
// run stopped early.
func (s *Store) Save(cfg *config.Config, result *sim.Result, runErr error) (string, error) {
	name := cfg.Preset
	if name == "" {
		name = "custom"
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Preset:     cfg.Preset,
		Timestamp:  now,
		Sensorless: cfg.Control.Sensorless,
		Ts:         cfg.Control.Ts,
		Duration:   cfg.Sim.Duration,
		Integrator: cfg.Sim.Integrator,
		Substeps:   cfg.Sim.Substeps,
		Steps:      result.StepsTaken,
		Metrics:    result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return WriteStatesCSV(w, result)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, telemetryFile), func(w io.Writer) error {
		return WriteTelemetryCSV(w, result.Telemetry)
	}); err != nil {
		return "", err
	}

	s.logger.Info("run saved", "id", runID, "steps", result.StepsTaken)
	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			s.logger.Debug("skipping run", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadConfig returns the config a run was made with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadStates returns the rows of states.csv after the time column.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	_, rows, times, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	return rows, times, err
}

// Telemetry is a loaded telemetry.csv keyed by channel name.
type Telemetry struct {
	Times    []float64
	Channels map[string][]float64
}

func (s *Store) LoadTelemetry(runID string) (*Telemetry, error) {
	header, rows, times, err := readCSV(filepath.Join(s.baseDir, runID, telemetryFile))
	if err != nil {
		return nil, err
	}

	tel := &Telemetry{Times: times, Channels: make(map[string][]float64, len(header))}
	for j, name := range header {
		col := make([]float64, len(rows))
		for i, row := range rows {
			if j < len(row) {
				col[i] = row[j]
			}
		}
		tel.Channels[name] = col
	}
	return tel, nil
}

// LoadResult rebuilds the result of a saved run from its files.
func (s *Store) LoadResult(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	rows, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, err
	}
	tel, err := s.LoadTelemetry(runID)
	if err != nil {
		return nil, err
	}

	result := &sim.Result{
		Times:      times,
		States:     make([]dynamo.State, 0, len(rows)),
		Duties:     make([]dynamo.Control, 0, len(rows)),
		Telemetry:  tel.Records(),
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}
	for _, row := range rows {
		n := min(len(row), stateDim)
		result.States = append(result.States, dynamo.State(append([]float64(nil), row[:n]...)))
		if len(row) == len(StateColumns) {
			result.Duties = append(result.Duties, dynamo.Control(append([]float64(nil), row[stateDim:]...)))
		}
	}
	return result, nil
}

// Records rebuilds telemetry records from the loaded channels. The flux
// vector is restored as its magnitude on the real axis.
func (t *Telemetry) Records() []fluxvec.Record {
	col := func(name string, i int) float64 {
		c := t.Channels[name]
		if i < len(c) {
			return c[i]
		}
		return 0
	}

	out := make([]fluxvec.Record, len(t.Times))
	for i, ts := range t.Times {
		out[i] = fluxvec.Record{
			Time:      ts,
			SpeedRef:  col(fluxvec.ChanSpeedRef, i),
			Speed:     col(fluxvec.ChanSpeed, i),
			Angle:     col(fluxvec.ChanAngle, i),
			Current:   complex(col(fluxvec.ChanCurrentD, i), col(fluxvec.ChanCurrentQ, i)),
			Flux:      complex(col(fluxvec.ChanFlux, i), 0),
			FluxRef:   col(fluxvec.ChanFluxRef, i),
			TorqueRef: col(fluxvec.ChanTorqueRef, i),
			Torque:    col(fluxvec.ChanTorque, i),
			DCVoltage: col(fluxvec.ChanDCVoltage, i),
			Voltage:   complex(col(fluxvec.ChanVoltageD, i), col(fluxvec.ChanVoltageQ, i)),
		}
	}
	return out
}

// WriteStatesCSV writes one row per sampling instant: time, plant state and
// the duty ratios applied from that instant.
func WriteStatesCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, StateColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{formatFloat(result.Times[i])}
		for _, val := range result.States[i] {
			row = append(row, formatFloat(val))
		}
		if i < len(result.Duties) {
			for _, val := range result.Duties[i] {
				row = append(row, formatFloat(val))
			}
		} else {
			row = append(row, "", "", "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTelemetryCSV writes one row per record with the columns of
// [fluxvec.Channels].
func WriteTelemetryCSV(w io.Writer, records []fluxvec.Record) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, fluxvec.Channels...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		v := r.Values()
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(r.Time))
		for _, name := range fluxvec.Channels {
			row = append(row, formatFloat(v[name]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func readCSV(path string) ([]string, [][]float64, []float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	if len(records) < 1 {
		return nil, [][]float64{}, []float64{}, nil
	}

	header := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, val)
		}
		rows = append(rows, row)
	}

	return header, rows, times, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
