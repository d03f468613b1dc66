package sim_test

import (
	"context"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/experiment"
	"github.com/san-kum/fluxdrive/internal/plant"
	"github.com/san-kum/fluxdrive/internal/sim"
)

func runPreset(name string, duration float64) (*sim.Result, *config.Config, error) {
	cfg := config.GetPreset(name)
	cfg.Sim.Duration = duration
	exp, err := experiment.New(cfg, nil)
	Expect(err).NotTo(HaveOccurred())
	result, err := exp.Run(context.Background())
	return result, cfg, err
}

// electricalSpeed of the plant at the end of the run.
func electricalSpeed(r *sim.Result, cfg *config.Config) float64 {
	return float64(cfg.Motor.PolePair) * r.Final()[plant.Speed]
}

var _ = Describe("Flux-vector controlled drive", func() {
	wRef := 2 * math.Pi * 75

	Context("with a position sensor", func() {
		It("accelerates to the speed reference", func() {
			result, cfg, err := runPreset("pmsm_2kw_sensored", 0.7)
			Expect(err).NotTo(HaveOccurred())
			Expect(electricalSpeed(result, cfg)).To(BeNumerically("~", wRef, 0.03*wRef))
		})

		It("keeps the flux estimate on the machine flux", func() {
			result, cfg, err := runPreset("pmsm_2kw_sensored", 0.7)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Control.Sensorless).To(BeFalse())

			// Telemetry[k] holds the estimate used on tick k, States[k] the
			// drive at the start of that tick.
			n := len(result.Telemetry)
			for k := n - 200; k < n; k++ {
				x := result.States[k]
				psi := complex(x[plant.FluxD], x[plant.FluxQ])
				Expect(cmplx.Abs(result.Telemetry[k].Flux-psi)).To(BeNumerically("<", 0.005), "tick %d", k)
			}
		})

		It("holds the torque reference within the limit", func() {
			result, cfg, err := runPreset("pmsm_2kw_sensored", 0.4)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range result.Telemetry {
				Expect(math.Abs(r.TorqueRef)).To(BeNumerically("<=", cfg.Control.Limits.MaxTorque+1e-9))
			}
		})

		It("is deterministic", func() {
			a, _, errA := runPreset("pmsm_2kw_sensored", 0.05)
			b, _, errB := runPreset("pmsm_2kw_sensored", 0.05)
			Expect(errA).NotTo(HaveOccurred())
			Expect(errB).NotTo(HaveOccurred())
			Expect(a.Telemetry).To(Equal(b.Telemetry))
			Expect(a.States).To(Equal(b.States))
		})
	})

	Context("without a position sensor", func() {
		It("estimates the rotor speed", func() {
			result, cfg, err := runPreset("pmsm_2kw", 0.7)
			Expect(err).NotTo(HaveOccurred())

			w := electricalSpeed(result, cfg)
			est := result.Telemetry[len(result.Telemetry)-1].Speed
			Expect(w).To(BeNumerically("~", wRef, 0.1*wRef))
			Expect(est).To(BeNumerically("~", w, 0.1*wRef))
		})
	})

	Context("with a synchronous reluctance machine", func() {
		It("builds flux from zero and runs", func() {
			result, cfg, err := runPreset("syrm_7kw", 0.6)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics["stability"]).To(Equal(1.0))

			last := result.Telemetry[len(result.Telemetry)-1]
			Expect(last.FluxRef).To(BeNumerically(">=", cfg.Control.Limits.PsiSMin))
		})
	})

	Context("with an unstable observer gain", func() {
		It("reports divergence", func() {
			cfg := config.GetPreset("pmsm_2kw_sensored")
			cfg.Control.Ts = 1e-3
			cfg.Control.G = 5000
			exp, err := experiment.New(cfg, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = exp.Run(context.Background())
			Expect(sim.IsUnstable(err)).To(BeTrue())
		})
	})

	It("records the estimated torque from committed flux and current", func() {
		result, _, err := runPreset("pmsm_2kw_sensored", 0.3)
		Expect(err).NotTo(HaveOccurred())
		p := 3.0
		for _, r := range result.Telemetry {
			want := 1.5 * p * imag(r.Current*complex(real(r.Flux), -imag(r.Flux)))
			Expect(r.Torque).To(BeNumerically("~", want, 1e-9))
		}
	})
})
