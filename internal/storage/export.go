package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/sim"
)

type ExportData struct {
	Preset     string               `json:"preset"`
	Sensorless bool                 `json:"sensorless"`
	Integrator string               `json:"integrator"`
	Ts         float64              `json:"t_s"`
	Duration   float64              `json:"duration"`
	Steps      int                  `json:"steps"`
	Times      []float64            `json:"times"`
	States     [][]float64          `json:"states"`
	Duties     [][]float64          `json:"duties"`
	Telemetry  map[string][]float64 `json:"telemetry"`
	Metrics    map[string]float64   `json:"metrics"`
}

// NewExportData flattens a run. Telemetry of a tick that diverged is left
// out since JSON cannot carry NaN.
func NewExportData(cfg *config.Config, result *sim.Result) ExportData {
	records := result.Telemetry
	if len(records) > result.StepsTaken {
		records = records[:result.StepsTaken]
	}

	data := ExportData{
		Preset:     cfg.Preset,
		Sensorless: cfg.Control.Sensorless,
		Integrator: cfg.Sim.Integrator,
		Ts:         cfg.Control.Ts,
		Duration:   cfg.Sim.Duration,
		Steps:      result.StepsTaken,
		Times:      result.Times,
		States:     make([][]float64, len(result.States)),
		Duties:     make([][]float64, len(result.Duties)),
		Telemetry:  make(map[string][]float64, len(fluxvec.Channels)),
		Metrics:    result.Metrics,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, d := range result.Duties {
		data.Duties[i] = d
	}
	for _, name := range fluxvec.Channels {
		data.Telemetry[name] = make([]float64, len(records))
	}
	for i, r := range records {
		for name, v := range r.Values() {
			data.Telemetry[name][i] = v
		}
	}
	return data
}

// ExportJSON writes the run to w, or to stdout when w is nil.
func ExportJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	if w == nil {
		w = os.Stdout
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(cfg, result))
}

func ExportJSONFile(path string, cfg *config.Config, result *sim.Result) error {
	return writeFile(path, func(w io.Writer) error {
		return ExportJSON(w, cfg, result)
	})
}
