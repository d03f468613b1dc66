package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/experiment"
	"github.com/san-kum/fluxdrive/internal/logging"
	"github.com/san-kum/fluxdrive/internal/sim"
	"github.com/san-kum/fluxdrive/internal/storage"
)

// Scenario defines a scripted sequence of drive runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run: a preset with overrides.
type ScenarioStep struct {
	Preset   string             `yaml:"preset"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	Save     bool               `yaml:"save"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Preset string
	RunID  string
	Result *sim.Result
	Err    error
}

// RunScenario executes the steps in order. A diverging step is reported in
// its result and does not stop the scenario; configuration errors do.
// store may be nil when no step saves.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger *log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		logger.Info("scenario step", "n", i+1, "of", len(scenario.Steps), "preset", step.Preset)

		cfg, err := stepConfig(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.New(cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, runErr := exp.Run(ctx)
		if runErr != nil && !sim.IsUnstable(runErr) {
			return results, fmt.Errorf("step %d run: %w", i+1, runErr)
		}

		sr := StepResult{Preset: step.Preset, Result: result, Err: runErr}
		if step.Save && store != nil {
			id, err := store.Save(cfg, result, runErr)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

func stepConfig(step ScenarioStep) (*config.Config, error) {
	cfg, err := config.LookupPreset(step.Preset)
	if err != nil {
		return nil, err
	}
	for k, v := range step.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if step.Duration > 0 {
		cfg.Sim.Duration = step.Duration
	}
	return cfg, nil
}

// ParameterSweep runs one config across values of a single parameter
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	Values    []float64
	// Workers bounds the concurrent runs; zero means one per value.
	Workers int
}

// SweepResult holds the outcome of one sweep point
type SweepResult struct {
	ParamValue float64
	Steps      int
	Unstable   bool
	Metrics    map[string]float64
}

// LinearValues returns n evenly spaced values from lo to hi.
func LinearValues(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// RunSweep executes the sweep points concurrently. Divergence is a result,
// not an error.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	jobs := make([]dynamo.Job[SweepResult], len(sweep.Values))
	for i, v := range sweep.Values {
		jobs[i] = func(ctx context.Context) (SweepResult, error) {
			cfg := sweep.Base.Clone()
			if err := cfg.SetParam(sweep.ParamName, v); err != nil {
				return SweepResult{}, err
			}
			exp, err := experiment.New(cfg, nil)
			if err != nil {
				return SweepResult{}, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
			}

			result, err := exp.Run(ctx)
			if err != nil && !sim.IsUnstable(err) {
				return SweepResult{}, err
			}
			return SweepResult{
				ParamValue: v,
				Steps:      result.StepsTaken,
				Unstable:   err != nil,
				Metrics:    result.Metrics,
			}, nil
		}
	}

	return dynamo.Ensemble(ctx, sweep.Workers, jobs)
}

// MonteCarloConfig perturbs the controller's motor parameter estimates to
// test robustness against parameter errors.
type MonteCarloConfig struct {
	Base *config.Config
	// Perturbation is the relative error bound, e.g. 0.2 for ±20 %.
	Perturbation float64
	NumTrials    int
	Seed         int64
	Workers      int
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	TrialID  int
	Scale    [4]float64 // R_s, L_d, L_q, psi_f estimate factors
	SpeedRMS float64
	Stable   bool // Did the run finish without diverging?
}

// RunMonteCarlo executes the trials. With Seed zero the trials differ
// between calls.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, errors.New("automation: need at least one trial")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	jobs := make([]dynamo.Job[MonteCarloResult], cfg.NumTrials)
	for trial := range jobs {
		var scale [4]float64
		for k := range scale {
			scale[k] = 1 + (rng.Float64()-0.5)*2*cfg.Perturbation
		}

		jobs[trial] = func(ctx context.Context) (MonteCarloResult, error) {
			c := cfg.Base.Clone()
			c.Control.Motor.Rs *= scale[0]
			c.Control.Motor.Ld *= scale[1]
			c.Control.Motor.Lq *= scale[2]
			c.Control.Motor.PsiF *= scale[3]

			res := MonteCarloResult{TrialID: trial, Scale: scale}
			exp, err := experiment.New(c, nil)
			if err != nil {
				// An estimate set the controller rejects counts as unstable.
				return res, nil
			}
			result, err := exp.Run(ctx)
			if err != nil && !sim.IsUnstable(err) {
				return res, err
			}
			res.Stable = err == nil
			res.SpeedRMS = result.Metrics["speed_rms"]
			return res, nil
		}
	}

	return dynamo.Ensemble(ctx, cfg.Workers, jobs)
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
