package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/integrators"
	"github.com/san-kum/fluxdrive/internal/metrics"
)

// Settle time after the last speed step before tracking metrics count.
const settleAfterStep = 0.3

type Registry struct {
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the metrics recorded for every run. Tracking and
// ripple count only once the last speed step has settled.
func (r *Registry) DefaultMetrics(cfg *config.Config) []dynamo.Metric {
	settle := 0.0
	for _, s := range cfg.SpeedRef {
		if s.Time+settleAfterStep > settle {
			settle = s.Time + settleAfterStep
		}
	}
	return []dynamo.Metric{
		metrics.NewSpeedTracking(settle),
		metrics.NewFluxTracking(settle),
		metrics.NewTorqueRipple(settle),
		metrics.NewModulation(),
		metrics.NewEnergy(),
		metrics.NewStability(10 * maxFlux(cfg)),
	}
}

func maxFlux(cfg *config.Config) float64 {
	m := cfg.Motor
	psi := m.PsiF
	if cfg.Control.PsiSMin > psi {
		psi = cfg.Control.PsiSMin
	}
	if i := cfg.Control.Limits.MaxCurrent; i > 0 {
		psi += m.Ld * i
	}
	if psi <= 0 {
		psi = 1
	}
	return psi
}
