package sim_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/experiment"
	"github.com/san-kum/fluxdrive/internal/integrators"
	"github.com/san-kum/fluxdrive/internal/sim"
)

func build(t *testing.T, cfg *config.Config) *sim.Simulator {
	t.Helper()
	exp, err := experiment.New(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return exp.GetSimulator()
}

func TestNewSessionInvalid(t *testing.T) {
	if _, err := sim.NewSession(nil, nil, integrators.NewRK4(), 1, nil); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestRunInvalidDuration(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))

	for _, d := range []float64{0, -1} {
		if _, err := s.Run(context.Background(), d); !errors.Is(err, dynamo.ErrParameterBounds) {
			t.Errorf("duration %v: expected ErrParameterBounds, got %v", d, err)
		}
	}
}

func TestRunRecordsEveryTick(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))

	result, err := s.Run(context.Background(), 0.005)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 20 {
		t.Errorf("expected 20 ticks, got %d", result.StepsTaken)
	}
	if len(result.States) != 21 || len(result.Times) != 21 {
		t.Errorf("expected 21 states and times, got %d and %d", len(result.States), len(result.Times))
	}
	if len(result.Duties) != 20 {
		t.Errorf("expected 20 duties, got %d", len(result.Duties))
	}
	for k, r := range result.Telemetry {
		if r.Time != result.Times[k] {
			t.Fatalf("record %d at t=%v, want %v", k, r.Time, result.Times[k])
		}
	}
}

type countingObserver struct{ n int }

func (c *countingObserver) OnStep(dynamo.Sample) { c.n++ }

func TestObserversSeeEveryTick(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))
	obs := &countingObserver{}
	s.AddObserver(obs)

	if _, err := s.Run(context.Background(), 0.0025); err != nil {
		t.Fatal(err)
	}
	if obs.n != 10 {
		t.Errorf("expected 10 observations, got %d", obs.n)
	}
}

func TestRunCanceled(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, 0.1)
	if !errors.Is(err, dynamo.ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
	if result == nil || result.StepsTaken != 0 {
		t.Error("expected an empty partial result")
	}
}

func TestRunWithCallbackStops(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))

	n := 0
	err := s.RunWithCallback(context.Background(), 1.0, func(dynamo.Sample) bool {
		n++
		return n < 5
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 || s.Session().Steps() != 5 {
		t.Errorf("expected 5 ticks, got %d (session %d)", n, s.Session().Steps())
	}
}

func TestDivergenceReported(t *testing.T) {
	cfg := config.GetPreset("pmsm_2kw_sensored")
	cfg.Control.Ts = 1e-3
	cfg.Control.G = 5000

	result, err := build(t, cfg).Run(context.Background(), 1.0)
	if !sim.IsUnstable(err) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %T", err)
	}
	if simErr.Tick < 1 || simErr.Tick > 1000 {
		t.Errorf("unexpected divergence step %d", simErr.Tick)
	}
	if result.StepsTaken != simErr.Tick-1 {
		t.Errorf("partial result has %d ticks, error at %d", result.StepsTaken, simErr.Tick)
	}
}

func TestTickAppliesPreviousCommand(t *testing.T) {
	cfg := config.GetPreset("pmsm_2kw_sensored")
	s := build(t, cfg)

	// past the speed step, so consecutive commands differ
	result, err := s.Run(context.Background(), 0.21)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	n := result.StepsTaken
	drive := s.Session().Drive()

	want := integrators.Hold(integrators.NewRK4(), drive, result.States[n-1], result.Duties[n-2], result.Times[n-1], cfg.Control.Ts, cfg.Sim.Substeps)
	for i := range want {
		if math.Abs(result.States[n][i]-want[i]) > 1e-12 {
			t.Fatalf("state %d = %v, want %v from the previous command", i, result.States[n][i], want[i])
		}
	}

	same := integrators.Hold(integrators.NewRK4(), drive, result.States[n-1], result.Duties[n-1], result.Times[n-1], cfg.Control.Ts, cfg.Sim.Substeps)
	if math.Abs(same[0]-want[0])+math.Abs(same[1]-want[1]) == 0 {
		t.Fatal("last two commands are identical, the check above proves nothing")
	}
}

func TestFirstTickAppliesZeroVoltage(t *testing.T) {
	s := build(t, config.GetPreset("pmsm_2kw_sensored"))
	before := s.Session().State()
	if _, err := s.Session().Tick(); err != nil {
		t.Fatal(err)
	}
	// standstill, magnet flux only, no current and no voltage: nothing moves
	after := s.Session().State()
	for i := range before {
		if math.Abs(after[i]-before[i]) > 1e-12 {
			t.Errorf("state %d moved from %v to %v", i, before[i], after[i])
		}
	}
}
