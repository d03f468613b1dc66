package automation

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/storage"
)

const scenarioYAML = `
name: smoke
description: two short runs
steps:
  - preset: pmsm_2kw_sensored
    duration: 0.01
    save: true
  - preset: spm_1kw
    duration: 0.005
    params:
      alpha_s: 12.5
`

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	store := storage.New(filepath.Join(dir, "runs"))
	results, err := RunScenario(context.Background(), sc, store, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID == "" || results[1].RunID != "" {
		t.Errorf("only the first step should be saved: %q %q", results[0].RunID, results[1].RunID)
	}
	if results[0].Result.StepsTaken != 40 || results[1].Result.StepsTaken != 20 {
		t.Errorf("unexpected tick counts %d, %d", results[0].Result.StepsTaken, results[1].Result.StepsTaken)
	}
}

func TestRunScenarioUnknownPreset(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{{Preset: "bogus"}}}
	if _, err := RunScenario(context.Background(), sc, nil, nil); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestRunSweepFindsDivergence(t *testing.T) {
	base := config.GetPreset("pmsm_2kw_sensored")
	base.Sim.Duration = 1.0

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "g",
		Values:    []float64{2 * math.Pi * 15, 20000},
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Unstable {
		t.Error("nominal gain diverged")
	}
	if !results[1].Unstable {
		t.Error("T_s*g = 5 should diverge")
	}
	if base.Control.G != config.DefaultConfig().Control.G {
		t.Error("sweep mutated the base config")
	}
}

func TestLinearValues(t *testing.T) {
	v := LinearValues(1, 2, 5)
	want := []float64{1, 1.25, 1.5, 1.75, 2}
	for i := range want {
		if math.Abs(v[i]-want[i]) > 1e-12 {
			t.Errorf("value %d = %v, want %v", i, v[i], want[i])
		}
	}
	if got := LinearValues(3, 4, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("single value = %v", got)
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := config.GetPreset("pmsm_2kw_sensored")
	base.Sim.Duration = 0.02

	cfg := &MonteCarloConfig{Base: base, Perturbation: 0.05, NumTrials: 4, Seed: 7, Workers: 2}
	a, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := RunMonteCarlo(context.Background(), cfg)

	stable, unstable := MonteCarloStats(a)
	if stable != 4 || unstable != 0 {
		t.Errorf("stable=%d unstable=%d, want 4 and 0", stable, unstable)
	}
	for i := range a {
		if a[i].TrialID != i {
			t.Errorf("trial %d out of order", i)
		}
		if a[i].Scale != b[i].Scale {
			t.Errorf("seeded trial %d differs between calls", i)
		}
		for _, s := range a[i].Scale {
			if s < 0.95 || s > 1.05 {
				t.Errorf("scale %v outside ±5%%", s)
			}
		}
	}
}
