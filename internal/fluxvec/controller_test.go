package fluxvec

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/fluxdrive/internal/transform"
)

type fakeSpeed struct {
	kp      float64
	updates []float64
}

func (f *fakeSpeed) Output(wRef, w float64) float64 { return f.kp * (wRef - w) }
func (f *fakeSpeed) Update(tau float64)             { f.updates = append(f.updates, tau) }

type fakeShaper struct {
	psi   float64
	limit float64
}

func (f *fakeShaper) Reference(tauRef, w, uDC float64) (float64, float64) {
	return f.psi, math.Max(-f.limit, math.Min(f.limit, tauRef))
}

type fakeModulator struct {
	realized complex128
	refs     []complex128
}

func (f *fakeModulator) Output(uRef complex128, uDC, theta, w float64) ([3]float64, complex128) {
	f.refs = append(f.refs, uRef)
	abc := transform.ComplexToABC(transform.Rotate(uRef, theta))
	var d [3]float64
	for k := range abc {
		d[k] = 0.5 + abc[k]/uDC
	}
	return d, uRef
}

func (f *fakeModulator) Update(uLim complex128)      { f.realized = uLim }
func (f *fakeModulator) RealizedVoltage() complex128 { return f.realized }

type fakeRotor struct {
	Observer
	w, theta float64
}

func (f *fakeRotor) Speed() float64 { return f.w }
func (f *fakeRotor) Angle() float64 { return f.theta }

func sensored() Parameters {
	p := DefaultParameters()
	p.Sensorless = false
	return p
}

func collaborators(log Recorder) Collaborators {
	return Collaborators{
		SpeedRef:  func(t float64) float64 { return 2 * math.Pi * 20 },
		Speed:     &fakeSpeed{kp: 0.5},
		Reference: &fakeShaper{psi: 0.545, limit: 10},
		Modulator: &fakeModulator{},
		Recorder:  log,
	}
}

func feedbackSequence(n int) []Feedback {
	fbs := make([]Feedback, n)
	for k := range fbs {
		theta := 0.01 * float64(k)
		i := transform.Rotate(complex(-0.4, 1.5), theta)
		fbs[k] = Feedback{
			Currents:  transform.ComplexToABC(i),
			DCVoltage: 540,
			Speed:     10 + 0.01*float64(k),
			Position:  theta / 3,
		}
	}
	return fbs
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	p := sensored()
	p.Ts = 0
	if _, err := New(p, collaborators(nil)); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}

	p = sensored()
	p.Motor.Ld = -1
	if _, err := New(p, collaborators(nil)); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	c := collaborators(nil)
	c.Modulator = nil
	if _, err := New(sensored(), c); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestNewSensorlessNeedsRotorSource(t *testing.T) {
	p := DefaultParameters()

	if _, err := New(p, collaborators(nil)); !errors.Is(err, ErrNoRotorSource) {
		t.Errorf("expected ErrNoRotorSource, got %v", err)
	}

	c := collaborators(nil)
	cause := errors.New("observer gain must be positive")
	c.Sensorless = func(Parameters) (RotorObserver, error) { return nil, cause }
	_, err := New(p, c)
	if !errors.Is(err, ErrNoRotorSource) || !errors.Is(err, cause) {
		t.Errorf("expected wrapped observer error, got %v", err)
	}
}

func TestStepUsesEstimatedRotorInSensorlessMode(t *testing.T) {
	log := &Log{}
	c := collaborators(log)
	obs, err := NewSensoredObserver(sensored())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rotor := &fakeRotor{Observer: obs, w: 123, theta: 0.4}
	c.Sensorless = func(Parameters) (RotorObserver, error) { return rotor, nil }

	ctrl, err := New(DefaultParameters(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctrl.Step(Feedback{Currents: [3]float64{1, -0.5, -0.5}, DCVoltage: 540, Speed: 999, Position: 2})

	rec := log.Records[0]
	if rec.Speed != 123 || rec.Angle != 0.4 {
		t.Errorf("expected estimated rotor (123, 0.4), got (%f, %f)", rec.Speed, rec.Angle)
	}
	want := transform.Rotate(complex(1, 0), -0.4)
	if cmplx.Abs(rec.Current-want) > 1e-12 {
		t.Errorf("expected current %v, got %v", want, rec.Current)
	}
}

func TestStepOrdering(t *testing.T) {
	p := sensored()
	log := &Log{}
	c := collaborators(log)
	mod := c.Modulator.(*fakeModulator)
	speed := c.Speed.(*fakeSpeed)

	ctrl, err := New(p, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := NewSensoredObserver(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reg, err := NewRegulator(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var realized complex128
	for k, fb := range feedbackSequence(50) {
		out := ctrl.Step(fb)

		rec := log.Records[k]
		if rec.Flux != ref.Flux() {
			t.Fatalf("tick %d: regulation used flux %v, want committed %v", k, rec.Flux, ref.Flux())
		}
		if rec.Voltage != realized {
			t.Fatalf("tick %d: observer fed %v, want previous realized %v", k, rec.Voltage, realized)
		}

		want := reg.VoltageReference(rec.FluxRef, rec.TorqueRef, ref.Flux(), rec.Current, rec.Speed)
		if cmplx.Abs(out.VoltageRef-want) > 1e-12 {
			t.Fatalf("tick %d: expected voltage %v, got %v", k, want, out.VoltageRef)
		}
		if speed.updates[k] != rec.TorqueRef {
			t.Fatalf("tick %d: speed loop updated with %f, want %f", k, speed.updates[k], rec.TorqueRef)
		}

		ref.Update(realized, rec.Current, rec.Speed)
		realized = mod.refs[k]

		if out.SamplingPeriod != p.Ts {
			t.Fatalf("tick %d: expected period %g, got %g", k, p.Ts, out.SamplingPeriod)
		}
	}

	if ctrl.Flux() != ref.Flux() {
		t.Errorf("expected committed flux %v, got %v", ref.Flux(), ctrl.Flux())
	}
}

func TestStepAdvancesClock(t *testing.T) {
	p := sensored()
	log := &Log{}
	ctrl, err := New(p, collaborators(log))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fb := range feedbackSequence(8) {
		ctrl.Step(fb)
	}

	if math.Abs(ctrl.Time()-8*p.Ts) > 1e-15 {
		t.Errorf("expected time %g, got %g", 8*p.Ts, ctrl.Time())
	}
	for k, rec := range log.Records {
		if rec.Time != float64(k)*p.Ts {
			t.Errorf("record %d: expected time %g, got %g", k, float64(k)*p.Ts, rec.Time)
		}
	}
}

func TestStepWithoutRecorder(t *testing.T) {
	ctrl, err := New(sensored(), collaborators(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := ctrl.Step(feedbackSequence(1)[0])
	if out.SamplingPeriod == 0 {
		t.Error("expected a sampling period")
	}
}

func TestStepDeterministic(t *testing.T) {
	run := func() ([]Output, []Record) {
		log := &Log{}
		ctrl, err := New(sensored(), collaborators(log))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var outs []Output
		for _, fb := range feedbackSequence(200) {
			outs = append(outs, ctrl.Step(fb))
		}
		return outs, log.Records
	}

	outA, recA := run()
	outB, recB := run()

	if diff := cmp.Diff(outA, outB); diff != "" {
		t.Errorf("outputs differ between runs (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(recA, recB); diff != "" {
		t.Errorf("telemetry differs between runs (-a +b):\n%s", diff)
	}
}
