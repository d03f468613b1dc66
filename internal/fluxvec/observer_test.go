package fluxvec

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestSensoredObserverInitialState(t *testing.T) {
	o, err := NewSensoredObserver(DefaultParameters())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Flux() != complex(0.545, 0) {
		t.Errorf("expected initial flux 0.545, got %v", o.Flux())
	}
}

func TestSensoredObserverOpenLoop(t *testing.T) {
	p := DefaultParameters()
	p.G = 0
	p.Motor.Rs = 0

	o, err := NewSensoredObserver(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o.Update(complex(1, 0), complex(3, -2), 0)

	want := complex(0.545250, 0)
	if cmplx.Abs(o.Flux()-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, o.Flux())
	}
}

func TestSensoredObserverOpenLoopRotation(t *testing.T) {
	p := DefaultParameters()
	p.G = 0
	p.Motor.Rs = 0

	o, err := NewSensoredObserver(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := 100.0
	psi := o.Flux()
	for k := 0; k < 10; k++ {
		u := complex(0.2, -0.1)
		psi += complex(p.Ts, 0) * (u - complex(0, w)*psi)
		o.Update(u, 0, w)
	}

	if cmplx.Abs(o.Flux()-psi) > 1e-12 {
		t.Errorf("expected %v, got %v", psi, o.Flux())
	}
}

func TestSensoredObserverConvergesToCurrentModel(t *testing.T) {
	p := DefaultParameters()
	o, err := NewSensoredObserver(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With a consistent voltage model the estimate settles at the current model.
	i := complex(-1, 3)
	w := 200.0
	target := p.Motor.Flux(i)
	u := complex(p.Motor.Rs, 0)*i + complex(0, w)*target

	o.psi = 0
	for k := 0; k < 40000; k++ {
		o.Update(u, i, w)
	}

	if cmplx.Abs(o.Flux()-target) > 1e-6 {
		t.Errorf("expected %v, got %v", target, o.Flux())
	}
}

func TestSensoredObserverDivergesWithOversizedPeriod(t *testing.T) {
	p := DefaultParameters()
	p.Ts = 0.05
	p.G = 100

	o, err := NewSensoredObserver(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// psi_f with no current is the fixed point; start away from it.
	// Each step scales the error by 1 - Ts*g = -4.
	o.psi = 0
	for k := 0; k < 200; k++ {
		o.Update(0, 0, 0)
	}

	if a := cmplx.Abs(o.Flux()); !(a > 1e6) && !math.IsNaN(a) && !math.IsInf(a, 0) {
		t.Errorf("expected divergence, got |psi| = %g", a)
	}
}
