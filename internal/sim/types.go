package sim

import (
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

type Result struct {
	Times      []float64
	States     []dynamo.State
	Duties     []dynamo.Control
	Telemetry  []fluxvec.Record
	Metrics    map[string]float64
	StepsTaken int
}

// Final returns the last plant state.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
