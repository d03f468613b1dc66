package canbus

import (
	"go.einride.tech/can"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

// Stamped is a frame with its simulation time.
type Stamped struct {
	Time  float64
	Frame can.Frame
}

// Recorder is a simulation observer that emits a duty command and a status
// frame every Every ticks.
type Recorder struct {
	Every  int
	Frames []Stamped

	ticks   int
	counter uint8
}

func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{Every: every}
}

func (r *Recorder) OnStep(s dynamo.Sample) {
	r.ticks++
	if (r.ticks-1)%r.Every != 0 {
		return
	}

	cmd := DutyCommand{Counter: r.counter}
	copy(cmd.Duty[:], s.Control)
	r.counter++
	r.Frames = append(r.Frames, Stamped{Time: s.Time, Frame: cmd.Encode()})

	if s.Values != nil {
		st := Status{
			Speed:     s.Values[fluxvec.ChanSpeed],
			Torque:    s.Values[fluxvec.ChanTorque],
			Flux:      s.Values[fluxvec.ChanFlux],
			DCVoltage: s.Values[fluxvec.ChanDCVoltage],
		}
		r.Frames = append(r.Frames, Stamped{Time: s.Time, Frame: st.Encode()})
	}
}
